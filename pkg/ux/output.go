// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the uiregistry CLI.
//
// A Printer renders either styled output (colors, icons) for terminals or
// plain tab-separated lines for pipes and scripts. The mode is chosen once
// from the destination writer.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with its status color.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Mode selects how a Printer renders.
type Mode int

const (
	// ModeStyled renders colors and icons.
	ModeStyled Mode = iota

	// ModePlain renders prefix-tagged or tab-separated text.
	ModePlain
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes human-readable CLI output.
type Printer struct {
	out  io.Writer
	mode Mode
}

// NewPrinter creates a Printer for w, styled only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	mode := ModePlain
	if IsTerminal(w) {
		mode = ModeStyled
	}
	return &Printer{out: w, mode: mode}
}

// NewPrinterWithMode creates a Printer with an explicit mode.
func NewPrinterWithMode(w io.Writer, mode Mode) *Printer {
	return &Printer{out: w, mode: mode}
}

// Mode returns the printer's rendering mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Title prints a heading. Plain mode prints nothing.
func (p *Printer) Title(text string) {
	if p.mode == ModePlain {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.out, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.out, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.out, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.mode == ModePlain {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text. Plain mode prints nothing.
func (p *Printer) Muted(text string) {
	if p.mode == ModePlain {
		return
	}
	fmt.Fprintln(p.out, Styles.Muted.Render(text))
}

// Row prints one record: tab-separated in plain mode, icon plus aligned
// columns otherwise. notes are shown muted in parentheses.
func (p *Printer) Row(icon Icon, fields []string, notes ...string) {
	if p.mode == ModePlain {
		fmt.Fprintln(p.out, strings.Join(append(append([]string{}, fields...), notes...), "\t"))
		return
	}
	line := icon.Render() + " " + strings.Join(fields, "  ")
	if len(notes) > 0 {
		line += " " + Styles.Muted.Render("("+strings.Join(notes, ", ")+")")
	}
	fmt.Fprintln(p.out, line)
}

// Box prints text in a rounded box, or "title: content" in plain mode.
func (p *Printer) Box(title, content string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
}

// Summary prints labelled counts on one line.
func (p *Printer) Summary(counts ...Count) {
	if p.mode == ModePlain {
		parts := make([]string, 0, len(counts))
		for _, c := range counts {
			parts = append(parts, fmt.Sprintf("%s=%d", c.Label, c.Value))
		}
		fmt.Fprintf(p.out, "SUMMARY: %s\n", strings.Join(parts, " "))
		return
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, Styles.Bold.Render(fmt.Sprintf("%d", c.Value))+" "+Styles.Muted.Render(c.Label))
	}
	fmt.Fprintf(p.out, "\n%s\n", strings.Join(parts, "  "))
}

// Count is one labelled number in a Summary.
type Count struct {
	Label string
	Value int
}
