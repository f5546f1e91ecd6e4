package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/spec-kit/grievance-desk/internal/domain"
)

// TicketModel is the gorm row for the local SQLite store.
type TicketModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string `gorm:"not null"`
	Category    string `gorm:"not null;index"`
	Priority    string `gorm:"not null"`
	Status      string `gorm:"not null;index"`
	CreatedBy   string `gorm:"not null;index"`
	AssigneeID  *string
	Attachment  *string
	Comments    string    `gorm:"not null;default:'[]'"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false;index"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

// TableName pins the table name shared with the Postgres schema.
func (TicketModel) TableName() string { return "tickets" }

// UserModel is the gorm row for accounts.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"not null;uniqueIndex"`
	Role         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
}

// TableName pins the table name shared with the Postgres schema.
func (UserModel) TableName() string { return "users" }

// SQLiteModels lists the models AutoMigrate must create.
func SQLiteModels() []any {
	return []any{&TicketModel{}, &UserModel{}}
}

type sqliteTicketRepository struct {
	db *gorm.DB
}

// NewSQLiteTicketRepository returns a gorm-backed implementation for local files.
func NewSQLiteTicketRepository(db *gorm.DB) TicketRepository {
	return &sqliteTicketRepository{db: db}
}

func (r *sqliteTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	model, err := toTicketModel(ticket)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *sqliteTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	model, err := toTicketModel(ticket)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&TicketModel{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]interface{}{
			"title":       model.Title,
			"description": model.Description,
			"category":    model.Category,
			"priority":    model.Priority,
			"status":      model.Status,
			"assignee_id": model.AssigneeID,
			"attachment":  model.Attachment,
			"comments":    model.Comments,
			"updated_at":  model.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *sqliteTicketRepository) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	var models []TicketModel
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(models))
	for i := range models {
		ticket, err := fromTicketModel(&models[i])
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func toTicketModel(ticket *domain.Ticket) (*TicketModel, error) {
	attachment, comments, err := encodeExtras(ticket)
	if err != nil {
		return nil, err
	}
	return &TicketModel{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    string(ticket.Category),
		Priority:    string(ticket.Priority),
		Status:      string(ticket.Status),
		CreatedBy:   ticket.CreatedBy,
		AssigneeID:  ticket.AssigneeID,
		Attachment:  attachment,
		Comments:    comments,
		CreatedAt:   ticket.CreatedAt.UTC(),
		UpdatedAt:   ticket.UpdatedAt.UTC(),
	}, nil
}

func fromTicketModel(model *TicketModel) (domain.Ticket, error) {
	ticket := domain.Ticket{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Category:    domain.TicketCategory(model.Category),
		Priority:    domain.TicketPriority(model.Priority),
		Status:      domain.TicketStatus(model.Status),
		CreatedBy:   model.CreatedBy,
		AssigneeID:  model.AssigneeID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	var attachmentJSON []byte
	if model.Attachment != nil {
		attachmentJSON = []byte(*model.Attachment)
	}
	if err := decodeExtras(&ticket, attachmentJSON, []byte(model.Comments)); err != nil {
		return domain.Ticket{}, err
	}
	if err := ticket.Validate(); err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

type sqliteUserRepository struct {
	db *gorm.DB
}

// NewSQLiteUserRepository returns a gorm-backed implementation for local files.
func NewSQLiteUserRepository(db *gorm.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(&UserModel{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *sqliteUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *sqliteUserRepository) List(ctx context.Context) ([]domain.User, error) {
	var models []UserModel
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, fromUserModel(&models[i]))
	}
	return users, nil
}

func (r *sqliteUserRepository) first(ctx context.Context, where string, arg any) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, where, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user := fromUserModel(&model)
	return &user, nil
}

func fromUserModel(model *UserModel) domain.User {
	return domain.User{
		ID:           model.ID,
		Name:         model.Name,
		Email:        model.Email,
		Role:         domain.UserRole(model.Role),
		PasswordHash: model.PasswordHash,
		CreatedAt:    model.CreatedAt,
	}
}
