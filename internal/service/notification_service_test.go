package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-desk/internal/events"
	"github.com/spec-kit/grievance-desk/internal/realtime"
)

type recordingNotifier struct {
	realtime.NoopNotifier
	published []realtime.Change
	err       error
}

func (r *recordingNotifier) Publish(_ context.Context, change realtime.Change) error {
	r.published = append(r.published, change)
	return r.err
}

func TestNotificationServiceBroadcastsMutations(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &recordingNotifier{}
	NewNotificationService(dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "t1", Timestamp: at})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketStatusChanged, TicketID: "t1", Timestamp: at})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketUpdated, TicketID: "t1", Timestamp: at})

	if len(notifier.published) != 2 {
		t.Fatalf("published = %+v", notifier.published)
	}
	if notifier.published[0].Type != string(events.EventTicketCreated) || notifier.published[0].TicketID != "t1" {
		t.Fatalf("first change = %+v", notifier.published[0])
	}
}

func TestNotificationServiceSurfacesPublishErrors(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &recordingNotifier{err: errors.New("redis down")}
	NewNotificationService(dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketUpdated, TicketID: "t1"})
	if err == nil {
		t.Fatal("expected publish error to propagate to the dispatcher")
	}
}

func TestNotificationServiceDefaultsToNoop(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, nil, zap.NewNop()).RegisterHandlers()
	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
