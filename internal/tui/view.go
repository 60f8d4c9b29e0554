package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spec-kit/service-desk/internal/printing"
)

// View renders the dashboard.
func (model Model) View() string {
	sections := []string{model.renderHeader(), model.renderFilterBar(), model.search.View(), ""}
	if model.detail != nil && (model.focus == FocusDetail || model.focus == FocusNote) {
		sections = append(sections, model.renderDetail())
	} else {
		sections = append(sections, model.renderList())
	}
	sections = append(sections, "", model.renderStatusLine(), model.renderHelp())
	return strings.Join(sections, "\n")
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("Service Desk")
	stats := lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(fmt.Sprintf(
		"%d shown  %d open  %d in progress  %d closed  (%d total)",
		len(model.tickets), model.stats.Open, model.stats.InProgress, model.stats.Closed, model.stats.Total))

	gap := model.width - lipgloss.Width(title) - lipgloss.Width(stats)
	if gap < 2 {
		gap = 2
	}
	return title + strings.Repeat(" ", gap) + stats
}

func (model Model) renderFilterBar() string {
	active := lipgloss.NewStyle().Bold(true).Underline(true).Foreground(model.theme.HeaderForeground)
	inactive := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	parts := make([]string, 0, len(statusFilters))
	for index, filter := range statusFilters {
		label := "All"
		if !filter.IsAll() {
			label = filter.Status().Label()
		}
		if index == model.filterIndex {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	return "Status: " + strings.Join(parts, "  ")
}

func (model Model) renderList() string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	if model.loading && len(model.tickets) == 0 {
		return faint.Render("Loading tickets...")
	}
	if len(model.tickets) == 0 {
		if model.search.Value() != "" || !model.statusFilter().IsAll() {
			return faint.Render("No tickets match the current search.")
		}
		return faint.Render("No tickets yet.")
	}

	header := faint.Render(fmt.Sprintf("%-8s %-20s %-18s %-14s %-12s %s",
		"ID", "Customer", "Model", "Serial", "Status", "Updated"))
	lines := []string{header}

	start, end := model.visibleRange()
	selected := lipgloss.NewStyle().
		Background(model.theme.SelectedBackground).
		Foreground(model.theme.SelectedForeground)
	for index := start; index < end; index++ {
		ticket := model.tickets[index]
		status := lipgloss.NewStyle().Foreground(model.theme.StatusColor(ticket.Status)).
			Render(fmt.Sprintf("%-12s", ticket.Status.Label()))
		row := fmt.Sprintf("%-8s %-20s %-18s %-14s ",
			"#"+ticket.ShortID(),
			truncate(ticket.CustomerName, 20),
			truncate(ticket.ProductModel, 18),
			truncate(ticket.SerialNumber, 14)) +
			status + " " + ticket.UpdatedAt.Local().Format(printing.DateTimeLayout)
		if index == model.cursor {
			row = selected.Render(row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

// visibleRange keeps the cursor on screen, leaving room for the chrome around the list.
func (model Model) visibleRange() (int, int) {
	rows := model.height - 9
	if rows < 3 {
		rows = 3
	}
	start := 0
	if model.cursor >= rows {
		start = model.cursor - rows + 1
	}
	end := start + rows
	if end > len(model.tickets) {
		end = len(model.tickets)
	}
	return start, end
}

func (model Model) renderDetail() string {
	t := model.detail
	label := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	status := lipgloss.NewStyle().Bold(true).Foreground(model.theme.StatusColor(t.Status))

	field := func(name, value string) string {
		return label.Render(fmt.Sprintf("%-10s", name)) + " " + value
	}

	lines := []string{
		title.Render("Ticket #"+t.ShortID()) + "  " + status.Render(t.Status.Label()),
		field("Customer", t.CustomerName),
		field("Contact", t.ContactNumber),
		field("Product", t.ProductCategory+" / "+t.ProductModel),
		field("Serial", t.SerialNumber),
		field("Problem", t.Problem),
		field("Created", t.CreatedAt.Local().Format(printing.DateTimeLayout)),
		field("Updated", t.UpdatedAt.Local().Format(printing.DateTimeLayout)),
		"",
		title.Render("History"),
	}
	for _, entry := range t.History {
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			label.Render(entry.Timestamp.Local().Format(printing.DateTimeLayout)),
			entry.Action,
			label.Render(entry.Description)))
	}
	if model.focus == FocusNote {
		lines = append(lines, "", model.note.View())
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderStatusLine() string {
	switch {
	case model.err != nil:
		return lipgloss.NewStyle().Foreground(model.theme.ErrorText).Render("Error: " + model.err.Error())
	case model.notice != "":
		return lipgloss.NewStyle().Foreground(model.theme.StatusOpen).Render(model.notice)
	case model.loading:
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("Loading...")
	}
	return ""
}

func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	var help string
	switch model.focus {
	case FocusSearch:
		help = " [SEARCH] type to search  enter done  esc clear"
	case FocusNote:
		help = " [NOTE] enter save  esc cancel"
	case FocusDetail:
		help = " [DETAIL] o open  i in progress  c close  n note  esc back  q quit"
	default:
		help = " [LIST] ↑↓ navigate  enter open  / search  tab status  r reload  q quit"
	}
	return style.Render(help)
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
