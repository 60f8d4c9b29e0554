package repository

import (
	"context"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Append(ctx context.Context, ticketID, action, description string, status *domain.TicketStatus) (domain.TicketHistoryEntry, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistoryEntry, error)
	// ListByTickets groups entries by ticket id, newest first. A nil ids slice loads every entry.
	ListByTickets(ctx context.Context, ids []string) (map[string][]domain.TicketHistoryEntry, error)
}

type ticketHistoryRepository struct {
	store persistence.Store
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(store persistence.Store) TicketHistoryRepository {
	return &ticketHistoryRepository{store: store}
}

func (r *ticketHistoryRepository) Append(ctx context.Context, ticketID, action, description string, status *domain.TicketStatus) (domain.TicketHistoryEntry, error) {
	insert := persistence.HistoryInsert{
		TicketID:    ticketID,
		Action:      action,
		Description: description,
	}
	if status != nil {
		raw := string(*status)
		insert.Status = &raw
	}
	row, err := r.store.InsertHistory(ctx, insert)
	if err != nil {
		return domain.TicketHistoryEntry{}, err
	}
	return historyFromRow(row), nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistoryEntry, error) {
	grouped, err := r.ListByTickets(ctx, []string{ticketID})
	if err != nil {
		return nil, err
	}
	return grouped[ticketID], nil
}

func (r *ticketHistoryRepository) ListByTickets(ctx context.Context, ids []string) (map[string][]domain.TicketHistoryEntry, error) {
	rows, err := r.store.SelectHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]domain.TicketHistoryEntry)
	for _, row := range rows {
		grouped[row.TicketID] = append(grouped[row.TicketID], historyFromRow(row))
	}
	return grouped, nil
}

func historyFromRow(row persistence.HistoryRow) domain.TicketHistoryEntry {
	entry := domain.TicketHistoryEntry{
		ID:          row.ID,
		Timestamp:   row.Timestamp,
		Action:      row.Action,
		Description: row.Description,
	}
	if row.Status != nil {
		status := domain.TicketStatus(*row.Status)
		entry.Status = &status
	}
	return entry
}
