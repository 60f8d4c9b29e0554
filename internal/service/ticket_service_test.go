package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/repository"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) last() events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[len(d.events)-1]
}

// brokenRepo fails every call with err.
type brokenRepo struct {
	repository.TicketRepository
	err error
}

func (r brokenRepo) ListAll(context.Context) ([]domain.Ticket, error) { return nil, r.err }
func (r brokenRepo) GetByID(context.Context, string) (*domain.Ticket, bool, error) {
	return nil, false, r.err
}
func (r brokenRepo) SearchAndFilter(context.Context, string, domain.StatusFilter) ([]domain.Ticket, error) {
	return nil, r.err
}

var testActor = events.CLIActor("tester")

func newTestTicketService() (*TicketService, *recordingDispatcher) {
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: repository.NewTicketRepository(persistence.NewMemoryStore(), nil),
		Dispatcher: dispatcher,
	})
	return svc, dispatcher
}

func validIntake() domain.CreateTicketData {
	return domain.CreateTicketData{
		CustomerName:    "  Jane Doe ",
		ContactNumber:   "555-1234",
		ProductCategory: "Printer",
		ProductModel:    "LX-200",
		SerialNumber:    "SN123",
		Problem:         "Paper jam",
	}
}

func assertCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	de := apperrors.ToDomainError(err)
	if de == nil || de.Code != code || de.HTTPStatus != status {
		t.Fatalf("error = %v, want %s/%d", err, code, status)
	}
}

func TestCreateTicketTrimsAndPublishes(t *testing.T) {
	svc, dispatcher := newTestTicketService()
	ticket, err := svc.CreateTicket(context.Background(), testActor, validIntake())
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	if ticket.CustomerName != "Jane Doe" {
		t.Fatalf("CustomerName = %q, want trimmed", ticket.CustomerName)
	}

	event := dispatcher.last()
	if event.Type != events.EventTicketCreated || event.TicketID != ticket.ID || event.ID == "" {
		t.Fatalf("event = %+v", event)
	}
	if event.ShortID != ticket.ShortID() || event.Actor != testActor {
		t.Fatalf("event = %+v", event)
	}
}

func TestCreateTicketRejectsBlankFields(t *testing.T) {
	svc, dispatcher := newTestTicketService()
	data := validIntake()
	data.SerialNumber = "   "
	data.Problem = ""

	_, err := svc.CreateTicket(context.Background(), testActor, data)
	assertCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	fields := apperrors.ToDomainError(err).Details["fields"].([]string)
	if len(fields) != 2 || fields[0] != "serialNumber" || fields[1] != "problem" {
		t.Fatalf("fields = %v", fields)
	}
	if len(dispatcher.events) != 0 {
		t.Fatal("no event expected for rejected intake")
	}
}

func TestUpdateTicketPublishesStatusChange(t *testing.T) {
	svc, dispatcher := newTestTicketService()
	ctx := context.Background()
	ticket, _ := svc.CreateTicket(ctx, testActor, validIntake())

	updated, err := svc.UpdateTicket(ctx, testActor, ticket.ID, TicketUpdateInput{Status: "In-Progress", Note: "Replaced roller"})
	if err != nil {
		t.Fatalf("UpdateTicket() error = %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %q", updated.Status)
	}

	event := dispatcher.last()
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if event.Type != events.EventTicketStatusChanged || !ok {
		t.Fatalf("event = %+v", event)
	}
	if payload.OldStatus != domain.TicketStatusOpen || payload.NewStatus != domain.TicketStatusInProgress || payload.Note != "Replaced roller" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestUpdateTicketNoteOnlyPublishesNoteAdded(t *testing.T) {
	svc, dispatcher := newTestTicketService()
	ctx := context.Background()
	ticket, _ := svc.CreateTicket(ctx, testActor, validIntake())

	if _, err := svc.UpdateTicket(ctx, testActor, ticket.ID, TicketUpdateInput{Note: "Called customer"}); err != nil {
		t.Fatalf("UpdateTicket() error = %v", err)
	}
	event := dispatcher.last()
	payload, ok := event.Payload.(events.TicketNoteAddedPayload)
	if event.Type != events.EventTicketNoteAdded || !ok || payload.Note != "Called customer" {
		t.Fatalf("event = %+v", event)
	}
}

func TestUpdateTicketErrors(t *testing.T) {
	svc, _ := newTestTicketService()
	ctx := context.Background()
	ticket, _ := svc.CreateTicket(ctx, testActor, validIntake())

	_, err := svc.UpdateTicket(ctx, testActor, ticket.ID, TicketUpdateInput{})
	assertCode(t, err, apperrors.CodeNoChanges, http.StatusBadRequest)

	_, err = svc.UpdateTicket(ctx, testActor, ticket.ID, TicketUpdateInput{Status: "open"})
	assertCode(t, err, apperrors.CodeNoChanges, http.StatusBadRequest)

	_, err = svc.UpdateTicket(ctx, testActor, ticket.ID, TicketUpdateInput{Status: "pending"})
	assertCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	_, err = svc.UpdateTicket(ctx, testActor, "missing", TicketUpdateInput{Note: "x"})
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestGetAndDeleteTicket(t *testing.T) {
	svc, dispatcher := newTestTicketService()
	ctx := context.Background()
	ticket, _ := svc.CreateTicket(ctx, testActor, validIntake())

	got, err := svc.GetTicket(ctx, ticket.ID)
	if err != nil || got.ID != ticket.ID {
		t.Fatalf("GetTicket() = %v, %v", got, err)
	}

	if err := svc.DeleteTicket(ctx, testActor, ticket.ID); err != nil {
		t.Fatalf("DeleteTicket() error = %v", err)
	}
	if event := dispatcher.last(); event.Type != events.EventTicketDeleted || event.TicketID != ticket.ID {
		t.Fatalf("event = %+v", event)
	}

	_, err = svc.GetTicket(ctx, ticket.ID)
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	err = svc.DeleteTicket(ctx, testActor, ticket.ID)
	assertCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestListTicketsAndStats(t *testing.T) {
	svc, _ := newTestTicketService()
	ctx := context.Background()
	a, _ := svc.CreateTicket(ctx, testActor, validIntake())
	other := validIntake()
	other.CustomerName = "Bob Smith"
	_, _ = svc.CreateTicket(ctx, testActor, other)
	_, _ = svc.UpdateTicket(ctx, testActor, a.ID, TicketUpdateInput{Status: "closed"})

	list, err := svc.ListTickets(ctx, TicketListFilter{Query: "JANE", Status: "all"})
	if err != nil || len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("ListTickets() = %v, %v", list, err)
	}
	list, _ = svc.ListTickets(ctx, TicketListFilter{Status: "open"})
	if len(list) != 1 || list[0].CustomerName != "Bob Smith" {
		t.Fatalf("ListTickets(open) = %+v", list)
	}

	_, err = svc.ListTickets(ctx, TicketListFilter{Status: "archived"})
	assertCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats != (domain.StatusCounts{Total: 2, Open: 1, Closed: 1}) {
		t.Fatalf("Stats() = %+v", stats)
	}
}

func TestStoreFailuresBecomeInternalErrors(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewTicketService(TicketDependencies{TicketRepo: brokenRepo{err: boom}})
	ctx := context.Background()

	_, err := svc.ListTickets(ctx, TicketListFilter{})
	assertCode(t, err, apperrors.CodeInternal, http.StatusInternalServerError)
	if !errors.Is(err, boom) {
		t.Fatal("internal error should wrap the cause")
	}

	_, err = svc.GetTicket(ctx, "x")
	assertCode(t, err, apperrors.CodeInternal, http.StatusInternalServerError)

	_, err = svc.Stats(ctx)
	assertCode(t, err, apperrors.CodeInternal, http.StatusInternalServerError)
}
