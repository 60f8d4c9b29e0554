package persistence

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoRows is returned by single-row lookups and targeted writes that match nothing.
var ErrNoRows = errors.New("persistence: no rows")

// TicketRow mirrors a row of the tickets table.
type TicketRow struct {
	ID              string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CustomerName    string
	ContactNumber   string
	ProductCategory string
	ProductModel    string
	SerialNumber    string
	Problem         string
	Status          string
}

// HistoryRow mirrors a row of the ticket_history table. Status is nil for pure notes.
type HistoryRow struct {
	ID          string
	TicketID    string
	Timestamp   time.Time
	Action      string
	Description string
	Status      *string
}

// TicketInsert holds the client-supplied columns of a new ticket row.
type TicketInsert struct {
	CustomerName    string
	ContactNumber   string
	ProductCategory string
	ProductModel    string
	SerialNumber    string
	Problem         string
	Status          string
}

// HistoryInsert holds the client-supplied columns of a new history row.
type HistoryInsert struct {
	TicketID    string
	Action      string
	Description string
	Status      *string
}

// TicketQuery narrows SelectTickets. Search is a case-insensitive contains match OR-ed across
// customer_name, product_model, serial_number and id; Status is an equality filter. Zero
// values disable the corresponding filter.
type TicketQuery struct {
	Search string
	Status string
}

// Store is the generic tabular collaborator behind the ticket repository.
type Store interface {
	// SelectTickets returns matching tickets ordered by updated_at descending.
	SelectTickets(ctx context.Context, query TicketQuery) ([]TicketRow, error)
	SelectTicket(ctx context.Context, id string) (TicketRow, error)
	InsertTicket(ctx context.Context, row TicketInsert) (TicketRow, error)
	// UpdateTicketStatus sets status and refreshes updated_at.
	UpdateTicketStatus(ctx context.Context, id, status string) (TicketRow, error)
	DeleteTicket(ctx context.Context, id string) error

	// SelectHistory returns history rows for the given tickets (all rows when ticketIDs is nil)
	// ordered by timestamp descending.
	SelectHistory(ctx context.Context, ticketIDs []string) ([]HistoryRow, error)
	InsertHistory(ctx context.Context, row HistoryInsert) (HistoryRow, error)
	DeleteHistory(ctx context.Context, ticketID string) error

	// WithinTx runs fn against a transactional view of the store. Every write made through
	// that view is discarded when fn returns an error.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// escapeLike escapes LIKE wildcards so user input matches literally with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// containsPattern builds a lower-cased %...% pattern for a search term.
func containsPattern(search string) string {
	return "%" + escapeLike(strings.ToLower(search)) + "%"
}
