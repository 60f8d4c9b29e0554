package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/spec-kit/service-desk/internal/domain"
)

// Theme is the dashboard colour palette (ANSI 256 codes).
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	StatusOpen       lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusClosed     lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color
}

// DefaultTheme targets dark 256-colour terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusOpen:       lipgloss.Color("114"),
	StatusInProgress: lipgloss.Color("220"),
	StatusClosed:     lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("196"),
}

// StatusColor returns the colour for a ticket status; unknown values are faint.
func (theme Theme) StatusColor(status domain.TicketStatus) lipgloss.Color {
	switch status {
	case domain.TicketStatusOpen:
		return theme.StatusOpen
	case domain.TicketStatusInProgress:
		return theme.StatusInProgress
	case domain.TicketStatusClosed:
		return theme.StatusClosed
	default:
		return theme.FaintText
	}
}
