package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps both tables in process memory. It backs local development when no database
// is configured and doubles as the store for tests.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	now     func() time.Time
	newID   func() string
	seq     int64
	tickets map[string]memoryTicket
	history map[string]memoryHistory
}

type memoryTicket struct {
	row TicketRow
	seq int64
}

type memoryHistory struct {
	row HistoryRow
	seq int64
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*memoryState)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *memoryState) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(newID func() string) MemoryOption {
	return func(s *memoryState) { s.newID = newID }
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	state := &memoryState{
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		tickets: make(map[string]memoryTicket),
		history: make(map[string]memoryHistory),
	}
	for _, opt := range opts {
		opt(state)
	}
	return &MemoryStore{state: state}
}

func (m *MemoryStore) SelectTickets(_ context.Context, query TicketQuery) ([]TicketRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.selectTickets(query), nil
}

func (m *MemoryStore) SelectTicket(_ context.Context, id string) (TicketRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.selectTicket(id)
}

func (m *MemoryStore) InsertTicket(_ context.Context, row TicketInsert) (TicketRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.insertTicket(row), nil
}

func (m *MemoryStore) UpdateTicketStatus(_ context.Context, id, status string) (TicketRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateTicketStatus(id, status)
}

func (m *MemoryStore) DeleteTicket(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteTicket(id)
}

func (m *MemoryStore) SelectHistory(_ context.Context, ticketIDs []string) ([]HistoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.selectHistory(ticketIDs), nil
}

func (m *MemoryStore) InsertHistory(_ context.Context, row HistoryInsert) (HistoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.insertHistory(row)
}

func (m *MemoryStore) DeleteHistory(_ context.Context, ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.deleteHistory(ticketID)
	return nil
}

// WithinTx holds the store lock for the whole of fn and restores the previous contents when fn
// fails.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memoryTx{state: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// memoryTx operates on the state directly; the owning store already holds the lock.
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) SelectTickets(_ context.Context, query TicketQuery) ([]TicketRow, error) {
	return t.state.selectTickets(query), nil
}

func (t *memoryTx) SelectTicket(_ context.Context, id string) (TicketRow, error) {
	return t.state.selectTicket(id)
}

func (t *memoryTx) InsertTicket(_ context.Context, row TicketInsert) (TicketRow, error) {
	return t.state.insertTicket(row), nil
}

func (t *memoryTx) UpdateTicketStatus(_ context.Context, id, status string) (TicketRow, error) {
	return t.state.updateTicketStatus(id, status)
}

func (t *memoryTx) DeleteTicket(_ context.Context, id string) error {
	return t.state.deleteTicket(id)
}

func (t *memoryTx) SelectHistory(_ context.Context, ticketIDs []string) ([]HistoryRow, error) {
	return t.state.selectHistory(ticketIDs), nil
}

func (t *memoryTx) InsertHistory(_ context.Context, row HistoryInsert) (HistoryRow, error) {
	return t.state.insertHistory(row)
}

func (t *memoryTx) DeleteHistory(_ context.Context, ticketID string) error {
	t.state.deleteHistory(ticketID)
	return nil
}

func (t *memoryTx) WithinTx(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

func (s *memoryState) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		now:     s.now,
		newID:   s.newID,
		seq:     s.seq,
		tickets: make(map[string]memoryTicket, len(s.tickets)),
		history: make(map[string]memoryHistory, len(s.history)),
	}
	for id, t := range s.tickets {
		out.tickets[id] = t
	}
	for id, h := range s.history {
		out.history[id] = h
	}
	return out
}

func (s *memoryState) selectTickets(query TicketQuery) []TicketRow {
	search := strings.ToLower(query.Search)
	matched := make([]memoryTicket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if query.Status != "" && t.row.Status != query.Status {
			continue
		}
		if search != "" && !rowContains(t.row, search) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].row.UpdatedAt.Equal(matched[j].row.UpdatedAt) {
			return matched[i].row.UpdatedAt.After(matched[j].row.UpdatedAt)
		}
		return matched[i].seq > matched[j].seq
	})
	out := make([]TicketRow, len(matched))
	for i, t := range matched {
		out[i] = t.row
	}
	return out
}

func rowContains(row TicketRow, lowered string) bool {
	for _, field := range []string{row.CustomerName, row.ProductModel, row.SerialNumber, row.ID} {
		if strings.Contains(strings.ToLower(field), lowered) {
			return true
		}
	}
	return false
}

func (s *memoryState) selectTicket(id string) (TicketRow, error) {
	t, ok := s.tickets[id]
	if !ok {
		return TicketRow{}, ErrNoRows
	}
	return t.row, nil
}

func (s *memoryState) insertTicket(in TicketInsert) TicketRow {
	now := s.now()
	row := TicketRow{
		ID:              s.newID(),
		CreatedAt:       now,
		UpdatedAt:       now,
		CustomerName:    in.CustomerName,
		ContactNumber:   in.ContactNumber,
		ProductCategory: in.ProductCategory,
		ProductModel:    in.ProductModel,
		SerialNumber:    in.SerialNumber,
		Problem:         in.Problem,
		Status:          in.Status,
	}
	s.tickets[row.ID] = memoryTicket{row: row, seq: s.nextSeq()}
	return row
}

func (s *memoryState) updateTicketStatus(id, status string) (TicketRow, error) {
	t, ok := s.tickets[id]
	if !ok {
		return TicketRow{}, ErrNoRows
	}
	t.row.Status = status
	t.row.UpdatedAt = s.now()
	t.seq = s.nextSeq()
	// Callers may pass ids that alias a reused request buffer; keys must stay the stored id.
	s.tickets[t.row.ID] = t
	return t.row, nil
}

func (s *memoryState) deleteTicket(id string) error {
	if _, ok := s.tickets[id]; !ok {
		return ErrNoRows
	}
	delete(s.tickets, id)
	return nil
}

func (s *memoryState) selectHistory(ticketIDs []string) []HistoryRow {
	var wanted map[string]struct{}
	if ticketIDs != nil {
		wanted = make(map[string]struct{}, len(ticketIDs))
		for _, id := range ticketIDs {
			wanted[id] = struct{}{}
		}
	}
	matched := make([]memoryHistory, 0, len(s.history))
	for _, h := range s.history {
		if wanted != nil {
			if _, ok := wanted[h.row.TicketID]; !ok {
				continue
			}
		}
		matched = append(matched, h)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].row.Timestamp.Equal(matched[j].row.Timestamp) {
			return matched[i].row.Timestamp.After(matched[j].row.Timestamp)
		}
		return matched[i].seq > matched[j].seq
	})
	out := make([]HistoryRow, len(matched))
	for i, h := range matched {
		out[i] = h.row
	}
	return out
}

func (s *memoryState) insertHistory(in HistoryInsert) (HistoryRow, error) {
	if _, ok := s.tickets[in.TicketID]; !ok {
		return HistoryRow{}, ErrNoRows
	}
	row := HistoryRow{
		ID:          s.newID(),
		TicketID:    strings.Clone(in.TicketID),
		Timestamp:   s.now(),
		Action:      in.Action,
		Description: in.Description,
	}
	if in.Status != nil {
		status := *in.Status
		row.Status = &status
	}
	s.history[row.ID] = memoryHistory{row: row, seq: s.nextSeq()}
	return row, nil
}

func (s *memoryState) deleteHistory(ticketID string) {
	for id, h := range s.history {
		if h.row.TicketID == ticketID {
			delete(s.history, id)
		}
	}
}
