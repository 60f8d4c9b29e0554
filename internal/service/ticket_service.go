package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/repository"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketListFilter carries raw list parameters as received from a caller.
type TicketListFilter struct {
	Query  string
	Status string
}

// TicketUpdateInput carries raw update parameters. An empty Status leaves the status untouched.
type TicketUpdateInput struct {
	Status string
	Note   string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Categories returns the product categories suggested at intake.
func (s *TicketService) Categories() []string {
	return append([]string(nil), domain.DefaultProductCategories...)
}

// ListTickets returns tickets matching the text query and status filter, most recently
// updated first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	status, err := domain.ParseStatusFilter(filter.Status)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": filter.Status})
	}
	tickets, err := s.tickets.SearchAndFilter(ctx, filter.Query, status)
	if err != nil {
		return nil, s.internal("list tickets", err)
	}
	return tickets, nil
}

// Stats counts every ticket per status.
func (s *TicketService) Stats(ctx context.Context) (domain.StatusCounts, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return domain.StatusCounts{}, s.internal("ticket stats", err)
	}
	return domain.CountByStatus(tickets), nil
}

// GetTicket loads a ticket with its history.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	id = strings.TrimSpace(id)
	ticket, found, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.internal("get ticket", err)
	}
	if !found {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

// CreateTicket validates intake data and records a new open ticket.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, data domain.CreateTicketData) (*domain.Ticket, error) {
	data = data.Trimmed()
	if missing := data.MissingFields(); len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing)
	}

	ticket, err := s.tickets.Create(ctx, data)
	if err != nil {
		return nil, s.internal("create ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ShortID:  ticket.ShortID(),
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			CustomerName:    ticket.CustomerName,
			ProductCategory: ticket.ProductCategory,
			ProductModel:    ticket.ProductModel,
			SerialNumber:    ticket.SerialNumber,
		},
	})
	return ticket, nil
}

// UpdateTicket changes the status, appends a note, or both.
func (s *TicketService) UpdateTicket(ctx context.Context, actor events.Actor, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	id = strings.TrimSpace(id)
	update := repository.UpdateTicketInput{Note: input.Note}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
		}
		update.Status = &status
	}

	ticket, err := s.tickets.Update(ctx, id, update)
	switch {
	case errors.Is(err, repository.ErrNoChanges):
		return nil, apperrors.NewNoChanges("update changes nothing: choose a different status or add a note")
	case errors.Is(err, repository.ErrTicketNotFound):
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	case err != nil:
		return nil, s.internal("update ticket", err)
	}

	entry, _ := ticket.LatestEntry()
	if entry.Status != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ShortID:  ticket.ShortID(),
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: previousStatus(ticket),
				NewStatus: *entry.Status,
				Note:      strings.TrimSpace(input.Note),
			},
		})
	} else {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketNoteAdded,
			TicketID: ticket.ID,
			ShortID:  ticket.ShortID(),
			Actor:    actor,
			Payload:  events.TicketNoteAddedPayload{Note: entry.Description},
		})
	}
	return ticket, nil
}

// DeleteTicket removes a ticket and its history.
func (s *TicketService) DeleteTicket(ctx context.Context, actor events.Actor, id string) error {
	id = strings.TrimSpace(id)
	err := s.tickets.Delete(ctx, id)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if err != nil {
		return s.internal("delete ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		ShortID:  domain.ShortID(id),
		Actor:    actor,
	})
	return nil
}

func (s *TicketService) internal(op string, err error) error {
	s.logger.Error(op+" failed", zap.Error(err))
	return apperrors.NewInternalError(err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// previousStatus is the status snapshot recorded before the newest entry.
func previousStatus(ticket *domain.Ticket) domain.TicketStatus {
	for _, entry := range ticket.History[1:] {
		if entry.Status != nil {
			return *entry.Status
		}
	}
	return ""
}
