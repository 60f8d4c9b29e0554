package events

import (
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketNoteAdded     EventType = "ticket.note_added"
	EventTicketDeleted       EventType = "ticket.deleted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketNoteAdded,
	EventTicketDeleted,
}

// Actor identifies who triggered an event: the desk operator over HTTP or the CLI.
type Actor struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Actor types.
const (
	ActorOperator = "operator"
	ActorCLI      = "cli"
)

// OperatorActor is the authenticated desk operator acting over HTTP.
func OperatorActor(name string) Actor {
	return Actor{Type: ActorOperator, Name: name}
}

// CLIActor is a local user running ticketctl.
func CLIActor(name string) Actor {
	return Actor{Type: ActorCLI, Name: name}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ShortID   string    `json:"short_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerName    string `json:"customer_name"`
	ProductCategory string `json:"product_category"`
	ProductModel    string `json:"product_model"`
	SerialNumber    string `json:"serial_number"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	Note string `json:"note"`
}
