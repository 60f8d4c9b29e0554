// Package tui is the terminal dashboard behind `ticketctl dash`: a searchable, filterable
// ticket list with a detail view for status changes and notes.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/search"
	"github.com/spec-kit/service-desk/internal/service"
)

// Source is the ticket backend the dashboard reads from and writes to.
type Source interface {
	ListTickets(ctx context.Context, filter service.TicketListFilter) ([]domain.Ticket, error)
	Stats(ctx context.Context) (domain.StatusCounts, error)
	UpdateTicket(ctx context.Context, actor events.Actor, id string, input service.TicketUpdateInput) (*domain.Ticket, error)
}

// Focus identifies which part of the dashboard receives key presses.
type Focus int

const (
	FocusList Focus = iota
	FocusSearch
	FocusDetail
	FocusNote
)

// statusFilters is the cycle order of the status filter.
var statusFilters = []domain.StatusFilter{
	domain.StatusAll,
	domain.FilterFor(domain.TicketStatusOpen),
	domain.FilterFor(domain.TicketStatusInProgress),
	domain.FilterFor(domain.TicketStatusClosed),
}

// Options tunes a Model.
type Options struct {
	// Debounce is the quiet period before a typed query is searched. Zero searches at once.
	Debounce time.Duration
	// Actor is recorded on events published by updates made from the dashboard.
	Actor events.Actor
	Keys  *KeyMap
	Theme *Theme
}

type debounceMsg struct {
	token uint64
}

type ticketsLoadedMsg struct {
	token   uint64
	tickets []domain.Ticket
	stats   domain.StatusCounts
	err     error
}

type ticketUpdatedMsg struct {
	ticket *domain.Ticket
	err    error
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx      context.Context
	source   Source
	keys     KeyMap
	theme    Theme
	actor    events.Actor
	debounce time.Duration

	// Keystrokes take debounce tokens; fetches take fetch tokens. Only the latest of each
	// is acted on.
	debounceSeq *search.Sequencer
	fetchSeq    *search.Sequencer

	search      textinput.Model
	note        textinput.Model
	filterIndex int
	focus       Focus

	tickets []domain.Ticket
	stats   domain.StatusCounts
	cursor  int
	detail  *domain.Ticket
	loading bool
	notice  string
	err     error

	width  int
	height int
}

// NewModel builds a dashboard over source.
func NewModel(ctx context.Context, source Source, opts Options) Model {
	keys := DefaultKeyMap
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	theme := DefaultTheme
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	searchInput := textinput.New()
	searchInput.Prompt = "Search: "
	searchInput.Placeholder = "customer, model, serial or ticket id"
	searchInput.CharLimit = 120

	noteInput := textinput.New()
	noteInput.Prompt = "Note: "
	noteInput.CharLimit = 500

	return Model{
		ctx:         ctx,
		source:      source,
		keys:        keys,
		theme:       theme,
		actor:       opts.Actor,
		debounce:    opts.Debounce,
		debounceSeq: &search.Sequencer{},
		fetchSeq:    &search.Sequencer{},
		search:      searchInput,
		note:        noteInput,
		loading:     true,
		width:       100,
		height:      30,
	}
}

// Init loads the first page of tickets.
func (model Model) Init() tea.Cmd {
	return model.fetchCmd(model.fetchSeq.Next())
}

// Update handles messages.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case debounceMsg:
		if !model.debounceSeq.IsLatest(message.token) {
			return model, nil
		}
		return model, model.startFetch()

	case ticketsLoadedMsg:
		if !model.fetchSeq.IsLatest(message.token) {
			return model, nil
		}
		model.loading = false
		if message.err != nil {
			model.err = message.err
			return model, nil
		}
		model.err = nil
		model.tickets = message.tickets
		model.stats = message.stats
		model.clampCursor()
		return model, nil

	case ticketUpdatedMsg:
		if message.err != nil {
			model.err = message.err
			return model, nil
		}
		model.err = nil
		model.detail = message.ticket
		model.notice = "Ticket #" + message.ticket.ShortID() + " updated"
		return model, model.startFetch()

	case tea.KeyMsg:
		switch model.focus {
		case FocusSearch:
			return model.handleSearchKeys(message)
		case FocusNote:
			return model.handleNoteKeys(message)
		case FocusDetail:
			return model.handleDetailKeys(message)
		default:
			return model.handleListKeys(message)
		}
	}

	// Cursor blink and other input housekeeping.
	var command tea.Cmd
	switch model.focus {
	case FocusSearch:
		model.search, command = model.search.Update(message)
	case FocusNote:
		model.note, command = model.note.Update(message)
	}
	return model, command
}

func (model Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
		return model, nil

	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.tickets)-1 {
			model.cursor++
		}
		return model, nil

	case key.Matches(message, model.keys.Open):
		if len(model.tickets) == 0 {
			return model, nil
		}
		selected := model.tickets[model.cursor]
		model.detail = &selected
		model.focus = FocusDetail
		model.notice = ""
		return model, nil

	case key.Matches(message, model.keys.Search):
		model.focus = FocusSearch
		return model, model.search.Focus()

	case key.Matches(message, model.keys.Filter):
		model.filterIndex = (model.filterIndex + 1) % len(statusFilters)
		model.cursor = 0
		// A filter change supersedes any pending debounced search.
		model.debounceSeq.Next()
		return model, model.startFetch()

	case key.Matches(message, model.keys.Reload):
		return model, model.startFetch()
	}
	return model, nil
}

// handleSearchKeys routes typing into the search box. Esc clears the query, or leaves the box
// when it is already empty; Enter searches at once and returns to the list.
func (model Model) handleSearchKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyCtrlC:
		return model, tea.Quit

	case tea.KeyEsc:
		if model.search.Value() != "" {
			model.search.SetValue("")
			model.cursor = 0
			return model, model.scheduleSearch()
		}
		model.search.Blur()
		model.focus = FocusList
		return model, nil

	case tea.KeyEnter:
		model.search.Blur()
		model.focus = FocusList
		model.debounceSeq.Next()
		return model, model.startFetch()
	}

	before := model.search.Value()
	var command tea.Cmd
	model.search, command = model.search.Update(message)
	if model.search.Value() == before {
		return model, command
	}
	model.cursor = 0
	return model, tea.Batch(command, model.scheduleSearch())
}

func (model Model) handleDetailKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Back):
		model.detail = nil
		model.focus = FocusList
		model.notice = ""
		model.err = nil
		return model, nil

	case key.Matches(message, model.keys.SetOpen):
		return model, model.updateCmd(domain.TicketStatusOpen, "")

	case key.Matches(message, model.keys.SetInProgress):
		return model, model.updateCmd(domain.TicketStatusInProgress, "")

	case key.Matches(message, model.keys.SetClosed):
		return model, model.updateCmd(domain.TicketStatusClosed, "")

	case key.Matches(message, model.keys.AddNote):
		model.note.Reset()
		model.focus = FocusNote
		return model, model.note.Focus()
	}
	return model, nil
}

func (model Model) handleNoteKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyCtrlC:
		return model, tea.Quit

	case tea.KeyEsc:
		model.note.Blur()
		model.focus = FocusDetail
		return model, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(model.note.Value())
		model.note.Blur()
		model.focus = FocusDetail
		if text == "" {
			return model, nil
		}
		return model, model.updateCmd("", text)
	}

	var command tea.Cmd
	model.note, command = model.note.Update(message)
	return model, command
}

// scheduleSearch restarts the debounce delay for the current query.
func (model *Model) scheduleSearch() tea.Cmd {
	token := model.debounceSeq.Next()
	if model.debounce <= 0 {
		return func() tea.Msg { return debounceMsg{token: token} }
	}
	return tea.Tick(model.debounce, func(time.Time) tea.Msg {
		return debounceMsg{token: token}
	})
}

// startFetch loads tickets for the current query and filter under a fresh fetch token.
func (model *Model) startFetch() tea.Cmd {
	model.loading = true
	return model.fetchCmd(model.fetchSeq.Next())
}

func (model Model) fetchCmd(token uint64) tea.Cmd {
	source, ctx := model.source, model.ctx
	filter := service.TicketListFilter{
		Query:  model.search.Value(),
		Status: string(model.statusFilter()),
	}
	return func() tea.Msg {
		tickets, err := source.ListTickets(ctx, filter)
		if err != nil {
			return ticketsLoadedMsg{token: token, err: err}
		}
		stats, err := source.Stats(ctx)
		return ticketsLoadedMsg{token: token, tickets: tickets, stats: stats, err: err}
	}
}

func (model Model) updateCmd(status domain.TicketStatus, note string) tea.Cmd {
	if model.detail == nil {
		return nil
	}
	source, ctx, actor, id := model.source, model.ctx, model.actor, model.detail.ID
	input := service.TicketUpdateInput{Status: string(status), Note: note}
	return func() tea.Msg {
		ticket, err := source.UpdateTicket(ctx, actor, id, input)
		return ticketUpdatedMsg{ticket: ticket, err: err}
	}
}

func (model Model) statusFilter() domain.StatusFilter {
	return statusFilters[model.filterIndex]
}

func (model *Model) clampCursor() {
	if model.cursor >= len(model.tickets) {
		model.cursor = len(model.tickets) - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
}

// Tickets returns the tickets currently listed.
func (model Model) Tickets() []domain.Ticket {
	return model.tickets
}
