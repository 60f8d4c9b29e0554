package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/events"
)

func TestNotificationServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "desk@example.com",
		WebhookURL: "https://hooks.example.com/tickets",
	})
	svc.RegisterHandlers()

	ctx := context.Background()
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "t1"})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: "t1"})

	if got := logs.FilterMessage("TicketCreated").Len(); got != 1 {
		t.Fatalf("TicketCreated logs = %d", got)
	}
	if got := logs.FilterMessage("sendEmailNotificationStub").Len(); got != 1 {
		t.Fatalf("email stub logs = %d", got)
	}
	if got := logs.FilterMessage("sendWebhookNotificationStub").Len(); got != 2 {
		t.Fatalf("webhook stub logs = %d", got)
	}
}
