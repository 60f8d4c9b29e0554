package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

var (
	// ErrTicketNotFound is returned by writes that target a missing ticket.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrNoChanges is returned by Update when the input would change nothing.
	ErrNoChanges = errors.New("no changes to apply")
)

// UpdateTicketInput describes a status change, a note, or both. A nil Status leaves the status
// untouched.
type UpdateTicketInput struct {
	Status *domain.TicketStatus
	Note   string
}

// IsEmpty reports whether the input carries neither a status nor a note.
func (in UpdateTicketInput) IsEmpty() bool {
	return in.Status == nil && strings.TrimSpace(in.Note) == ""
}

// TicketRepository encapsulates ticket persistence. Every returned ticket carries its full
// history, newest entry first.
type TicketRepository interface {
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, bool, error)
	Search(ctx context.Context, query string) ([]domain.Ticket, error)
	ListByStatus(ctx context.Context, filter domain.StatusFilter) ([]domain.Ticket, error)
	SearchAndFilter(ctx context.Context, query string, filter domain.StatusFilter) ([]domain.Ticket, error)
	Create(ctx context.Context, data domain.CreateTicketData) (*domain.Ticket, error)
	Update(ctx context.Context, id string, input UpdateTicketInput) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	store  persistence.Store
	logger *zap.Logger
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store persistence.Store, logger *zap.Logger) TicketRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ticketRepository{store: store, logger: logger}
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := r.store.SelectTickets(ctx, persistence.TicketQuery{})
	if err != nil {
		r.logger.Error("list tickets failed", zap.Error(err))
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	grouped, err := NewTicketHistoryRepository(r.store).ListByTickets(ctx, nil)
	if err != nil {
		r.logger.Error("list ticket history failed", zap.Error(err))
		return nil, fmt.Errorf("list ticket history: %w", err)
	}
	return joinTickets(rows, grouped), nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, bool, error) {
	ticket, err := loadTicket(ctx, r.store, id)
	if errors.Is(err, persistence.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("get ticket failed", zap.String("ticket_id", id), zap.Error(err))
		return nil, false, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return ticket, true, nil
}

func (r *ticketRepository) Search(ctx context.Context, query string) ([]domain.Ticket, error) {
	return r.SearchAndFilter(ctx, query, domain.StatusAll)
}

func (r *ticketRepository) ListByStatus(ctx context.Context, filter domain.StatusFilter) ([]domain.Ticket, error) {
	return r.SearchAndFilter(ctx, "", filter)
}

func (r *ticketRepository) SearchAndFilter(ctx context.Context, query string, filter domain.StatusFilter) ([]domain.Ticket, error) {
	query = strings.TrimSpace(query)
	if query == "" && filter.IsAll() {
		return r.ListAll(ctx)
	}

	rows, err := r.store.SelectTickets(ctx, persistence.TicketQuery{
		Search: query,
		Status: string(filter.Status()),
	})
	if err != nil {
		r.logger.Error("search tickets failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("search tickets: %w", err)
	}
	if len(rows) == 0 {
		return []domain.Ticket{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	grouped, err := NewTicketHistoryRepository(r.store).ListByTickets(ctx, ids)
	if err != nil {
		r.logger.Error("search ticket history failed", zap.Error(err))
		return nil, fmt.Errorf("search ticket history: %w", err)
	}
	return joinTickets(rows, grouped), nil
}

func (r *ticketRepository) Create(ctx context.Context, data domain.CreateTicketData) (*domain.Ticket, error) {
	var created *domain.Ticket
	err := r.store.WithinTx(ctx, func(tx persistence.Store) error {
		row, err := tx.InsertTicket(ctx, persistence.TicketInsert{
			CustomerName:    data.CustomerName,
			ContactNumber:   data.ContactNumber,
			ProductCategory: data.ProductCategory,
			ProductModel:    data.ProductModel,
			SerialNumber:    data.SerialNumber,
			Problem:         data.Problem,
			Status:          string(domain.TicketStatusOpen),
		})
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		status := domain.TicketStatusOpen
		entry, err := NewTicketHistoryRepository(tx).Append(ctx, row.ID, domain.ActionCreated, domain.DescriptionCreated, &status)
		if err != nil {
			return fmt.Errorf("insert creation history: %w", err)
		}

		created = ticketFromRow(row)
		created.History = []domain.TicketHistoryEntry{entry}
		return nil
	})
	if err != nil {
		r.logger.Error("create ticket failed", zap.Error(err))
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return created, nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, input UpdateTicketInput) (*domain.Ticket, error) {
	if input.IsEmpty() {
		return nil, ErrNoChanges
	}
	note := strings.TrimSpace(input.Note)

	var updated *domain.Ticket
	err := r.store.WithinTx(ctx, func(tx persistence.Store) error {
		ticket, err := loadTicket(ctx, tx, id)
		if errors.Is(err, persistence.ErrNoRows) {
			return ErrTicketNotFound
		}
		if err != nil {
			return err
		}

		changed := input.Status != nil && *input.Status != ticket.Status
		if !changed && note == "" {
			return ErrNoChanges
		}

		action := domain.ActionUpdated
		var snapshot *domain.TicketStatus
		if changed {
			row, err := tx.UpdateTicketStatus(ctx, id, string(*input.Status))
			if err != nil {
				return fmt.Errorf("update ticket status: %w", err)
			}
			ticket.Status = domain.TicketStatus(row.Status)
			ticket.UpdatedAt = row.UpdatedAt
			action = domain.StatusChangedAction(*input.Status)
			status := *input.Status
			snapshot = &status
		}

		description := note
		if description == "" {
			description = domain.DescriptionUpdated
		}
		entry, err := NewTicketHistoryRepository(tx).Append(ctx, id, action, description, snapshot)
		if err != nil {
			return fmt.Errorf("insert update history: %w", err)
		}

		ticket.History = append([]domain.TicketHistoryEntry{entry}, ticket.History...)
		updated = ticket
		return nil
	})
	switch {
	case errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrNoChanges):
		return nil, err
	case err != nil:
		r.logger.Error("update ticket failed", zap.String("ticket_id", id), zap.Error(err))
		return nil, fmt.Errorf("update ticket %s: %w", id, err)
	}
	return updated, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	err := r.store.WithinTx(ctx, func(tx persistence.Store) error {
		if err := tx.DeleteHistory(ctx, id); err != nil {
			return fmt.Errorf("delete ticket history: %w", err)
		}
		if err := tx.DeleteTicket(ctx, id); err != nil {
			if errors.Is(err, persistence.ErrNoRows) {
				return ErrTicketNotFound
			}
			return err
		}
		return nil
	})
	if errors.Is(err, ErrTicketNotFound) {
		return err
	}
	if err != nil {
		r.logger.Error("delete ticket failed", zap.String("ticket_id", id), zap.Error(err))
		return fmt.Errorf("delete ticket %s: %w", id, err)
	}
	return nil
}

func loadTicket(ctx context.Context, store persistence.Store, id string) (*domain.Ticket, error) {
	row, err := store.SelectTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := NewTicketHistoryRepository(store).ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket := ticketFromRow(row)
	if history != nil {
		ticket.History = history
	}
	return ticket, nil
}

func joinTickets(rows []persistence.TicketRow, grouped map[string][]domain.TicketHistoryEntry) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket := ticketFromRow(row)
		if history, ok := grouped[row.ID]; ok {
			ticket.History = history
		}
		tickets = append(tickets, *ticket)
	}
	return tickets
}

func ticketFromRow(row persistence.TicketRow) *domain.Ticket {
	return &domain.Ticket{
		ID:              row.ID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		CustomerName:    row.CustomerName,
		ContactNumber:   row.ContactNumber,
		ProductCategory: row.ProductCategory,
		ProductModel:    row.ProductModel,
		SerialNumber:    row.SerialNumber,
		Problem:         row.Problem,
		Status:          domain.TicketStatus(row.Status),
		History:         []domain.TicketHistoryEntry{},
	}
}
