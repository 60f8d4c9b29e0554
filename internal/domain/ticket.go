package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. Any status may move to any other.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// Label returns the human-readable form of the status.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusOpen:
		return "Open"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusClosed:
		return "Closed"
	}
	return string(s)
}

// ParseStatus converts raw input into a TicketStatus.
func ParseStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return status, nil
}

// StatusFilter is either a TicketStatus or StatusAll.
type StatusFilter string

// StatusAll disables status filtering.
const StatusAll StatusFilter = "all"

// ParseStatusFilter accepts "all", an empty string (treated as all) or a status.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == string(StatusAll) {
		return StatusAll, nil
	}
	status, err := ParseStatus(trimmed)
	if err != nil {
		return "", err
	}
	return StatusFilter(status), nil
}

// FilterFor builds a filter that matches a single status.
func FilterFor(status TicketStatus) StatusFilter {
	return StatusFilter(status)
}

// IsAll reports whether the filter matches every status.
func (f StatusFilter) IsAll() bool {
	return f == "" || f == StatusAll
}

// Status returns the status the filter selects, or "" for all.
func (f StatusFilter) Status() TicketStatus {
	if f.IsAll() {
		return ""
	}
	return TicketStatus(f)
}

// Matches reports whether status passes the filter.
func (f StatusFilter) Matches(status TicketStatus) bool {
	return f.IsAll() || TicketStatus(f) == status
}

// Ticket is the aggregate for a customer service request.
type Ticket struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CustomerName  string `json:"customerName"`
	ContactNumber string `json:"contactNumber"`

	ProductCategory string `json:"productCategory"`
	ProductModel    string `json:"productModel"`
	SerialNumber    string `json:"serialNumber"`

	Problem string       `json:"problem"`
	Status  TicketStatus `json:"status"`

	History []TicketHistoryEntry `json:"history"`
}

// ShortID is the identifier form shown to people.
func (t *Ticket) ShortID() string {
	return ShortID(t.ID)
}

// LatestEntry returns the newest history entry, if any.
func (t *Ticket) LatestEntry() (TicketHistoryEntry, bool) {
	if len(t.History) == 0 {
		return TicketHistoryEntry{}, false
	}
	return t.History[0], true
}

// ShortID returns the last six characters of id, uppercased.
func ShortID(id string) string {
	if len(id) <= 6 {
		return strings.ToUpper(id)
	}
	return strings.ToUpper(id[len(id)-6:])
}

// CreateTicketData carries intake fields for a new ticket. Status is always open on creation.
type CreateTicketData struct {
	CustomerName    string `json:"customerName"`
	ContactNumber   string `json:"contactNumber"`
	ProductCategory string `json:"productCategory"`
	ProductModel    string `json:"productModel"`
	SerialNumber    string `json:"serialNumber"`
	Problem         string `json:"problem"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (d CreateTicketData) Trimmed() CreateTicketData {
	return CreateTicketData{
		CustomerName:    strings.TrimSpace(d.CustomerName),
		ContactNumber:   strings.TrimSpace(d.ContactNumber),
		ProductCategory: strings.TrimSpace(d.ProductCategory),
		ProductModel:    strings.TrimSpace(d.ProductModel),
		SerialNumber:    strings.TrimSpace(d.SerialNumber),
		Problem:         strings.TrimSpace(d.Problem),
	}
}

// MissingFields lists the JSON names of blank fields.
func (d CreateTicketData) MissingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"customerName", d.CustomerName},
		{"contactNumber", d.ContactNumber},
		{"productCategory", d.ProductCategory},
		{"productModel", d.ProductModel},
		{"serialNumber", d.SerialNumber},
		{"problem", d.Problem},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// DefaultProductCategories are offered at intake; other values are accepted.
var DefaultProductCategories = []string{"Computer", "Laptop", "Printer", "UPS", "Other"}

// StatusCounts summarises tickets per status.
type StatusCounts struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}

// CountByStatus tallies tickets per status.
func CountByStatus(tickets []Ticket) StatusCounts {
	counts := StatusCounts{Total: len(tickets)}
	for _, t := range tickets {
		switch t.Status {
		case TicketStatusOpen:
			counts.Open++
		case TicketStatusInProgress:
			counts.InProgress++
		case TicketStatusClosed:
			counts.Closed++
		}
	}
	return counts
}
