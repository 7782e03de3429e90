// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	outboundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	inboundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

// styled reports whether stdout is a terminal
func styled() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func renderTitle(text string) string {
	if !styled() {
		return text
	}
	return titleStyle.Render(text)
}

func renderError(text string) string {
	if !styled() {
		return text
	}
	return errorStyle.Render(text)
}

func renderLabel(text string) string {
	if !styled() {
		return text
	}
	return labelStyle.Render(text)
}

// renderPacket colors the header line of a formatted packet by direction
func renderPacket(dir dsproto.Direction, formatted string) string {
	if !styled() {
		return formatted
	}
	header, body, _ := strings.Cut(formatted, "\n")
	style := outboundStyle
	if dir == dsproto.DirectionInbound {
		style = inboundStyle
	}
	return style.Render(header) + "\n" + body
}
