package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		t.Fatal("deleted handler should not run")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(got) != 2 || got[0] != "first:t1" || got[1] != "second:t1" {
		t.Fatalf("handlers ran = %v", got)
	}
}

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	ran := 0
	d.Subscribe(EventTicketNoteAdded, func(context.Context, Event) error {
		ran++
		return boom
	})
	d.Subscribe(EventTicketNoteAdded, func(context.Context, Event) error {
		ran++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketNoteAdded})
	if !errors.Is(err, boom) {
		t.Fatalf("Publish() error = %v, want boom", err)
	}
	if ran != 2 {
		t.Fatalf("ran = %d handlers, want 2", ran)
	}
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	seen := map[EventType]bool{}
	SubscribeAll(d, func(_ context.Context, e Event) error {
		seen[e.Type] = true
		return nil
	})
	for _, eventType := range AllEventTypes {
		_ = d.Publish(context.Background(), Event{Type: eventType})
	}
	if len(seen) != len(AllEventTypes) {
		t.Fatalf("seen = %v", seen)
	}
}
