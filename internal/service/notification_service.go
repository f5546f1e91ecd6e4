package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-desk/internal/events"
	"github.com/spec-kit/grievance-desk/internal/realtime"
)

// NotificationService logs ticket events and broadcasts them to other
// instances through the realtime notifier.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   realtime.Notifier
	logger     *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier realtime.Notifier, logger *zap.Logger) *NotificationService {
	if notifier == nil {
		notifier = realtime.NoopNotifier{}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every ticket event. Creates and updates are
// broadcast to other instances; the finer-grained events are only logged.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	events.SubscribeAll(n.dispatcher, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketCreated:
		n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
		return n.broadcast(ctx, event)
	case events.EventTicketUpdated:
		n.logger.Debug("TicketUpdated", zap.String("ticket_id", event.TicketID), zap.String("actor", event.Actor.UserID))
		return n.broadcast(ctx, event)
	default:
		n.logger.Info(string(event.Type),
			zap.String("ticket_id", event.TicketID),
			zap.String("actor", event.Actor.UserID),
			zap.Any("payload", event.Payload))
		return nil
	}
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event) error {
	err := n.notifier.Publish(ctx, realtime.Change{
		Type:     string(event.Type),
		TicketID: event.TicketID,
		At:       event.Timestamp,
	})
	if err != nil {
		n.logger.Warn("realtime publish failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return err
}
