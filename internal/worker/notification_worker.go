package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-desk/internal/realtime"
	"github.com/spec-kit/grievance-desk/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// Reloader refreshes local state after another instance changed it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Resubscribe backoff bounds.
var (
	resubscribeMinBackoff = time.Second
	resubscribeMaxBackoff = 30 * time.Second
)

// StartRealtimeWorker subscribes to remote changes and reloads the store on
// each one. A lost or failed subscription is retried with backoff until ctx
// is done. The returned channel closes when the worker stops.
func StartRealtimeWorker(ctx context.Context, notifier realtime.Notifier, store Reloader, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notifier == nil || store == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		backoff := resubscribeMinBackoff
		for {
			err := notifier.Run(ctx, func(ctx context.Context, change realtime.Change) error {
				if change.Type == realtime.ChangeSubscribed {
					backoff = resubscribeMinBackoff
				}
				logger.Debug("remote change",
					zap.String("origin", change.Origin),
					zap.String("type", change.Type),
					zap.String("ticket_id", change.TicketID))
				if err := store.Reload(ctx); err != nil {
					logger.Warn("reload after remote change failed", zap.Error(err))
					return err
				}
				return nil
			})
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = errors.New("subscription closed")
			}
			logger.Warn("realtime subscription lost", zap.Error(err), zap.Duration("retry_in", backoff))

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, resubscribeMaxBackoff)
		}
	}()
	return done
}
