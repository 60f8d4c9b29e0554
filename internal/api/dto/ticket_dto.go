package dto

import (
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// CreateTicketRequest payload. Every field is required.
type CreateTicketRequest struct {
	CustomerName    string `json:"customerName"`
	ContactNumber   string `json:"contactNumber"`
	ProductCategory string `json:"productCategory"`
	ProductModel    string `json:"productModel"`
	SerialNumber    string `json:"serialNumber"`
	Problem         string `json:"problem"`
}

// ToCreateData converts the payload into intake data.
func (r CreateTicketRequest) ToCreateData() domain.CreateTicketData {
	return domain.CreateTicketData{
		CustomerName:    r.CustomerName,
		ContactNumber:   r.ContactNumber,
		ProductCategory: r.ProductCategory,
		ProductModel:    r.ProductModel,
		SerialNumber:    r.SerialNumber,
		Problem:         r.Problem,
	}
}

// UpdateTicketRequest payload for PATCH. Omitted fields are left alone.
type UpdateTicketRequest struct {
	Status *string `json:"status"`
	Note   *string `json:"note"`
}

// TicketSummary is a list row.
type TicketSummary struct {
	ID              string              `json:"id"`
	ShortID         string              `json:"shortId"`
	CustomerName    string              `json:"customerName"`
	ProductCategory string              `json:"productCategory"`
	ProductModel    string              `json:"productModel"`
	SerialNumber    string              `json:"serialNumber"`
	Status          domain.TicketStatus `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID              string                  `json:"id"`
	ShortID         string                  `json:"shortId"`
	CustomerName    string                  `json:"customerName"`
	ContactNumber   string                  `json:"contactNumber"`
	ProductCategory string                  `json:"productCategory"`
	ProductModel    string                  `json:"productModel"`
	SerialNumber    string                  `json:"serialNumber"`
	Problem         string                  `json:"problem"`
	Status          domain.TicketStatus     `json:"status"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
	History         []TicketHistoryResponse `json:"history"`
}

// TicketHistoryResponse represents one audit entry.
type TicketHistoryResponse struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Action      string               `json:"action"`
	Description string               `json:"description"`
	Status      *domain.TicketStatus `json:"status,omitempty"`
}

// NewTicketSummary maps a ticket to a list row.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:              t.ID,
		ShortID:         t.ShortID(),
		CustomerName:    t.CustomerName,
		ProductCategory: t.ProductCategory,
		ProductModel:    t.ProductModel,
		SerialNumber:    t.SerialNumber,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket and its history.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	history := make([]TicketHistoryResponse, 0, len(t.History))
	for _, h := range t.History {
		history = append(history, TicketHistoryResponse{
			ID:          h.ID,
			Timestamp:   h.Timestamp,
			Action:      h.Action,
			Description: h.Description,
			Status:      h.Status,
		})
	}
	return TicketDetailResponse{
		ID:              t.ID,
		ShortID:         t.ShortID(),
		CustomerName:    t.CustomerName,
		ContactNumber:   t.ContactNumber,
		ProductCategory: t.ProductCategory,
		ProductModel:    t.ProductModel,
		SerialNumber:    t.SerialNumber,
		Problem:         t.Problem,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		History:         history,
	}
}
