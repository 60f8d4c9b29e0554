package domain

import "time"

// History labels written by the repository.
const (
	ActionCreated       = "Created"
	ActionUpdated       = "Updated"
	statusChangedPrefix = "Status changed to "

	DescriptionCreated = "Ticket created by customer service"
	DescriptionUpdated = "Ticket updated"
)

// StatusChangedAction returns the action label for a status change.
func StatusChangedAction(status TicketStatus) string {
	return statusChangedPrefix + string(status)
}

// TicketHistoryEntry is an immutable audit trail entry.
type TicketHistoryEntry struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	Action      string        `json:"action"`
	Description string        `json:"description"`
	Status      *TicketStatus `json:"status,omitempty"`
}
