package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/grievance-desk/internal/domain"
	"github.com/spec-kit/grievance-desk/internal/events"
	"github.com/spec-kit/grievance-desk/internal/repository"
)

var errDiskFull = errors.New("disk full")

// failingRepo wraps a real repository and fails writes on demand.
type failingRepo struct {
	repository.TicketRepository
	failInsert bool
	failUpdate bool
	failLoad   bool
}

func (r *failingRepo) Insert(ctx context.Context, t *domain.Ticket) error {
	if r.failInsert {
		return errDiskFull
	}
	return r.TicketRepository.Insert(ctx, t)
}

func (r *failingRepo) Update(ctx context.Context, t *domain.Ticket) error {
	if r.failUpdate {
		return errDiskFull
	}
	return r.TicketRepository.Update(ctx, t)
}

func (r *failingRepo) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	if r.failLoad {
		return nil, errDiskFull
	}
	return r.TicketRepository.LoadAll(ctx)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(repo repository.TicketRepository, clock *fakeClock, dispatcher events.Dispatcher) *TicketStore {
	seq := 0
	return NewTicketStore(TicketStoreDependencies{
		TicketRepo: repo,
		Dispatcher: dispatcher,
		Now:        clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("t-%d", seq)
		},
	})
}

func baseClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestCreateAppliesDefaults(t *testing.T) {
	clock := baseClock()
	store := newTestStore(repository.NewMemoryTicketRepository(), clock, nil)

	ticket, err := store.Create(context.Background(), domain.NewTicket{
		Title:       " Broken chair ",
		Description: "Lecture hall B",
		CreatedBy:   "u-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.ID != "t-1" || ticket.Title != "Broken chair" {
		t.Fatalf("ticket = %+v", ticket)
	}
	if ticket.Category != domain.TicketCategoryGeneral || ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("defaults: category=%s priority=%s", ticket.Category, ticket.Priority)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.AssigneeID != nil {
		t.Fatalf("status=%s assignee=%v", ticket.Status, ticket.AssigneeID)
	}
	if !ticket.CreatedAt.Equal(clock.Now()) || !ticket.UpdatedAt.Equal(ticket.CreatedAt) {
		t.Fatalf("timestamps: %v %v", ticket.CreatedAt, ticket.UpdatedAt)
	}
	if ticket.Comments == nil || len(ticket.Comments) != 0 {
		t.Fatalf("comments = %v", ticket.Comments)
	}
}

func TestCreatePayloadOverridesDefaults(t *testing.T) {
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), nil)
	status := domain.TicketStatusInProgress
	assignee := "admin-1"

	ticket, err := store.Create(context.Background(), domain.NewTicket{
		Title:       "Payroll",
		Description: "late",
		Category:    domain.TicketCategoryFinance,
		Priority:    domain.TicketPriorityUrgent,
		CreatedBy:   "u-1",
		Status:      &status,
		AssigneeID:  &assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != status || ticket.AssigneeID == nil || *ticket.AssigneeID != assignee {
		t.Fatalf("override lost: %+v", ticket)
	}
	if ticket.Category != domain.TicketCategoryFinance || ticket.Priority != domain.TicketPriorityUrgent {
		t.Fatalf("payload lost: %+v", ticket)
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name  string
		input domain.NewTicket
		field string
	}{
		{"blank title", domain.NewTicket{Title: "  ", Description: "d", CreatedBy: "u"}, "title"},
		{"blank description", domain.NewTicket{Title: "t", Description: "", CreatedBy: "u"}, "description"},
		{"no owner", domain.NewTicket{Title: "t", Description: "d"}, "created_by"},
		{"bad category", domain.NewTicket{Title: "t", Description: "d", CreatedBy: "u", Category: "canteen"}, "category"},
		{"bad priority", domain.NewTicket{Title: "t", Description: "d", CreatedBy: "u", Priority: "critical"}, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), nil)
			_, err := store.Create(context.Background(), tc.input)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("err = %v, want validation on %s", err, tc.field)
			}
			if len(store.List()) != 0 {
				t.Fatal("invalid ticket reached the collection")
			}
		})
	}
}

func TestCreatePrependsNewest(t *testing.T) {
	clock := baseClock()
	store := newTestStore(repository.NewMemoryTicketRepository(), clock, nil)
	for _, title := range []string{"first", "second", "third"} {
		if _, err := store.Create(context.Background(), domain.NewTicket{Title: title, Description: "d", CreatedBy: "u"}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		clock.Advance(time.Minute)
	}
	list := store.List()
	if len(list) != 3 || list[0].Title != "third" || list[2].Title != "first" {
		t.Fatalf("order = %v", titles(list))
	}
}

func TestCreateAdapterFailureLeavesCollection(t *testing.T) {
	repo := &failingRepo{TicketRepository: repository.NewMemoryTicketRepository()}
	store := newTestStore(repo, baseClock(), nil)
	if _, err := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	repo.failInsert = true
	_, err := store.Create(context.Background(), domain.NewTicket{Title: "b", Description: "d", CreatedBy: "u"})
	if !errors.Is(err, domain.ErrAdapterFailure) || !errors.Is(err, errDiskFull) {
		t.Fatalf("err = %v", err)
	}
	if list := store.List(); len(list) != 1 || list[0].Title != "a" {
		t.Fatalf("collection changed: %v", titles(list))
	}
}

func TestUpdateTouchesOnlyTarget(t *testing.T) {
	clock := baseClock()
	store := newTestStore(repository.NewMemoryTicketRepository(), clock, nil)
	a, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})
	b, _ := store.Create(context.Background(), domain.NewTicket{Title: "b", Description: "d", CreatedBy: "u"})
	before := store.List()

	clock.Advance(2 * time.Hour)
	resolved := domain.TicketStatusResolved
	updated, err := store.Update(context.Background(), events.Actor{UserID: "admin"}, a.ID, domain.TicketPatch{Status: &resolved})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != resolved || !updated.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("updated = %+v", updated)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) || updated.Title != "a" {
		t.Fatalf("unpatched fields changed: %+v", updated)
	}

	got, _ := store.Get(b.ID)
	if got.Status != domain.TicketStatusOpen || !got.UpdatedAt.Equal(b.UpdatedAt) {
		t.Fatalf("other ticket changed: %+v", got)
	}
	for _, t0 := range before {
		if t0.ID == a.ID && t0.Status != domain.TicketStatusOpen {
			t.Fatal("earlier snapshot was mutated")
		}
	}
}

func TestEmptyPatchBumpsUpdatedAt(t *testing.T) {
	clock := baseClock()
	store := newTestStore(repository.NewMemoryTicketRepository(), clock, nil)
	ticket, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	clock.Advance(time.Minute)
	updated, err := store.Update(context.Background(), events.Actor{}, ticket.ID, domain.TicketPatch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.After(ticket.UpdatedAt) {
		t.Fatalf("updated_at not bumped: %v", updated.UpdatedAt)
	}
}

func TestEmptyPatchPublishesOnlyUpdated(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), dispatcher)
	ticket, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	var seen []events.EventType
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	})
	if _, err := store.Update(context.Background(), events.Actor{UserID: "u"}, ticket.ID, domain.TicketPatch{}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(seen) != 1 || seen[0] != events.EventTicketUpdated {
		t.Fatalf("events = %v", seen)
	}
}

func TestUpdatedAtNeverMovesBackwards(t *testing.T) {
	clock := baseClock()
	store := newTestStore(repository.NewMemoryTicketRepository(), clock, nil)
	ticket, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	clock.Advance(-time.Hour)
	updated, err := store.Update(context.Background(), events.Actor{}, ticket.ID, domain.TicketPatch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updated_at %v before created_at %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestUpdateClearsAssigneeAndAttachment(t *testing.T) {
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), nil)
	assignee := "admin-1"
	ticket, _ := store.Create(context.Background(), domain.NewTicket{
		Title: "a", Description: "d", CreatedBy: "u", AssigneeID: &assignee,
		Attachment: &domain.Attachment{Name: "a.png", URL: "https://files/a.png", Size: 10, Type: "image/png"},
	})

	updated, err := store.Update(context.Background(), events.Actor{}, ticket.ID, domain.TicketPatch{
		Assignee:   &domain.OptionalID{},
		Attachment: &domain.OptionalAttachment{},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AssigneeID != nil || updated.Attachment != nil {
		t.Fatalf("fields not cleared: %+v", updated)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), nil)
	store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	_, err := store.Update(context.Background(), events.Actor{}, "nope", domain.TicketPatch{})
	if !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(store.List()) != 1 {
		t.Fatal("collection changed")
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), nil)
	ticket, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	bogus := domain.TicketStatus("pending")
	_, err := store.Update(context.Background(), events.Actor{}, ticket.ID, domain.TicketPatch{Status: &bogus})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	got, _ := store.Get(ticket.ID)
	if got.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestUpdateAdapterFailureLeavesCollection(t *testing.T) {
	repo := &failingRepo{TicketRepository: repository.NewMemoryTicketRepository()}
	clock := baseClock()
	store := newTestStore(repo, clock, nil)
	ticket, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	repo.failUpdate = true
	clock.Advance(time.Hour)
	title := "changed"
	_, err := store.Update(context.Background(), events.Actor{}, ticket.ID, domain.TicketPatch{Title: &title})
	if !errors.Is(err, domain.ErrAdapterFailure) {
		t.Fatalf("err = %v", err)
	}
	got, _ := store.Get(ticket.ID)
	if got.Title != "a" || !got.UpdatedAt.Equal(ticket.UpdatedAt) {
		t.Fatalf("ticket changed: %+v", got)
	}
}

func TestReloadReplacesCollection(t *testing.T) {
	repo := &failingRepo{TicketRepository: repository.NewMemoryTicketRepository()}
	clock := baseClock()
	writer := newTestStore(repo, clock, nil)
	writer.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})
	clock.Advance(time.Minute)
	writer.Create(context.Background(), domain.NewTicket{Title: "b", Description: "d", CreatedBy: "u"})

	reader := newTestStore(repo, clock, nil)
	if err := reader.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := titles(reader.List()); len(got) != 2 || got[0] != "b" {
		t.Fatalf("reloaded = %v", got)
	}

	repo.failLoad = true
	if err := reader.Reload(context.Background()); !errors.Is(err, domain.ErrAdapterFailure) {
		t.Fatalf("err = %v", err)
	}
	if len(reader.List()) != 2 {
		t.Fatal("failed reload should keep the previous collection")
	}
}

// pausingRepo holds the first LoadAll after it has read the adapter, until
// release is closed.
type pausingRepo struct {
	repository.TicketRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (r *pausingRepo) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := r.TicketRepository.LoadAll(ctx)
	r.once.Do(func() {
		close(r.loaded)
		<-r.release
	})
	return tickets, err
}

func TestReloadDoesNotDropConcurrentCreate(t *testing.T) {
	repo := &pausingRepo{
		TicketRepository: repository.NewMemoryTicketRepository(),
		loaded:           make(chan struct{}),
		release:          make(chan struct{}),
	}
	store := NewTicketStore(TicketStoreDependencies{TicketRepo: repo})

	reloaded := make(chan error, 1)
	go func() { reloaded <- store.Reload(context.Background()) }()
	<-repo.loaded

	created := make(chan domain.Ticket, 1)
	go func() {
		ticket, err := store.Create(context.Background(), domain.NewTicket{Title: "late", Description: "d", CreatedBy: "u"})
		if err != nil {
			t.Errorf("create: %v", err)
		}
		created <- ticket
	}()
	time.Sleep(20 * time.Millisecond)
	close(repo.release)

	if err := <-reloaded; err != nil {
		t.Fatalf("reload: %v", err)
	}
	ticket := <-created

	if _, err := store.Get(ticket.ID); err != nil {
		t.Fatalf("get created ticket: %v", err)
	}
	persisted, _ := repo.TicketRepository.LoadAll(context.Background())
	if len(store.List()) != len(persisted) {
		t.Fatalf("store has %d tickets, adapter has %d", len(store.List()), len(persisted))
	}
}

func TestReloadInterleavedWithMutations(t *testing.T) {
	repo := repository.NewMemoryTicketRepository()
	store := NewTicketStore(TicketStoreDependencies{TicketRepo: repo})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			ticket, err := store.Create(ctx, domain.NewTicket{
				Title: fmt.Sprintf("t%d", i), Description: "d", CreatedBy: "u",
			})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			status := domain.TicketStatusInProgress
			if _, err := store.Update(ctx, events.Actor{UserID: "admin"}, ticket.ID, domain.TicketPatch{Status: &status}); err != nil {
				t.Errorf("update: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if err := store.Reload(ctx); err != nil {
				t.Errorf("reload: %v", err)
			}
		}()
	}
	wg.Wait()

	list := store.List()
	if len(list) != 20 {
		t.Fatalf("len = %d, want 20", len(list))
	}
	for _, tk := range list {
		if tk.Status != domain.TicketStatusInProgress {
			t.Fatalf("ticket %s status = %s", tk.ID, tk.Status)
		}
	}
	persisted, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, tk := range persisted {
		got, err := store.Get(tk.ID)
		if err != nil {
			t.Fatalf("get %s: %v", tk.ID, err)
		}
		if got.Status != tk.Status || !got.UpdatedAt.Equal(tk.UpdatedAt) {
			t.Fatalf("store and adapter disagree on %s", tk.ID)
		}
	}
}

func TestListReturnsCopies(t *testing.T) {
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), nil)
	store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	list := store.List()
	list[0].Title = "mutated"
	if got := store.List()[0].Title; got != "a" {
		t.Fatalf("store title = %q", got)
	}
}

func TestUpdatePublishesEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var seen []events.EventType
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	})
	store := newTestStore(repository.NewMemoryTicketRepository(), baseClock(), dispatcher)
	ticket, _ := store.Create(context.Background(), domain.NewTicket{Title: "a", Description: "d", CreatedBy: "u"})

	status := domain.TicketStatusClosed
	priority := domain.TicketPriorityHigh
	assignee := "admin"
	_, err := store.Update(context.Background(), events.Actor{UserID: "admin"}, ticket.ID, domain.TicketPatch{
		Status:   &status,
		Priority: &priority,
		Assignee: &domain.OptionalID{Value: &assignee},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketAssigned,
	}
	if len(seen) != len(want) {
		t.Fatalf("events = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events = %v", seen)
		}
	}
}

func TestConcurrentCreates(t *testing.T) {
	store := NewTicketStore(TicketStoreDependencies{TicketRepo: repository.NewMemoryTicketRepository()})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Create(context.Background(), domain.NewTicket{
				Title: fmt.Sprintf("t%d", i), Description: "d", CreatedBy: "u",
			})
			if err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	list := store.List()
	if len(list) != 50 {
		t.Fatalf("len = %d", len(list))
	}
	ids := make(map[string]bool, len(list))
	for _, tk := range list {
		if ids[tk.ID] {
			t.Fatalf("duplicate id %s", tk.ID)
		}
		ids[tk.ID] = true
	}
}

func titles(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.Title
	}
	return out
}
