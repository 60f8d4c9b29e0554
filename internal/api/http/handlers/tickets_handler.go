package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/api/dto"
	"github.com/spec-kit/service-desk/internal/auth"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/printing"
	"github.com/spec-kit/service-desk/internal/service"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// TicketsHandler serves the ticket desk endpoints.
type TicketsHandler struct {
	service  *service.TicketService
	printing printing.Options
}

// NewTicketsHandler constructs handler. printOpts.AutoPrint is decided per request.
func NewTicketsHandler(ticketService *service.TicketService, printOpts printing.Options) *TicketsHandler {
	return &TicketsHandler{service: ticketService, printing: printOpts}
}

// ListTickets GET /api/tickets?q=&status=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), service.TicketListFilter{
		Query:  c.Query("q"),
		Status: c.Query("status"),
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// Categories GET /api/categories.
func (h *TicketsHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Categories()})
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actorFrom(c), req.ToCreateData())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var input service.TicketUpdateInput
	if req.Status != nil {
		input.Status = *req.Status
	}
	if req.Note != nil {
		input.Note = *req.Note
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), actorFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.DeleteTicket(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PrintTicket GET /api/tickets/:id/print.
func (h *TicketsHandler) PrintTicket(c *fiber.Ctx) error {
	return h.render(c, printing.KindTicket)
}

// PrintLabel GET /api/tickets/:id/label.
func (h *TicketsHandler) PrintLabel(c *fiber.Ctx) error {
	return h.render(c, printing.KindLabel)
}

func (h *TicketsHandler) render(c *fiber.Ctx, kind printing.Kind) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	opts := h.printing
	opts.AutoPrint = queryBool(c, "autoprint")
	doc, err := printing.Render(kind, ticket, opts)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(doc)
}

// actorFrom names the caller for published events. With auth disabled the desk operator is
// anonymous.
func actorFrom(c *fiber.Ctx) events.Actor {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return events.OperatorActor(principal.Name)
	}
	return events.OperatorActor("")
}

func queryBool(c *fiber.Ctx, key string) bool {
	raw := c.Query(key)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
