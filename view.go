package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))

	roleUserStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	roleAssistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// newMarkdownRenderer builds the glamour renderer used for assistant
// turns. A nil renderer degrades to plain word-wrapped text.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(20, width-4)),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// renderTranscript renders timeline entries for the conversation
// viewport. Assistant turns go through the markdown renderer; user turns
// are word-wrapped plain text.
func renderTranscript(entries []timelineEntry, width int, renderer *glamour.TermRenderer) string {
	maxWidth := max(20, width-2)
	chunks := make([]string, 0, len(entries))
	for _, entry := range entries {
		header := strings.TrimSpace(formatTimestamp(entry.timestamp) + "  " + strings.ToUpper(entry.role))

		body := entry.content
		if strings.TrimSpace(body) == "" {
			body = "(no text content)"
		}

		rendered := ""
		if entry.role == roleAssistant && renderer != nil {
			if md, err := renderer.Render(body); err == nil {
				rendered = strings.Trim(md, "\n")
			}
		}
		if rendered == "" {
			rendered = indentLines(wrapText(body, maxWidth), "  ")
		}

		styledHeader := roleStyle(entry.role).Bold(true).Render(header)
		chunks = append(chunks, styledHeader+"\n"+roleStyle(entry.role).Render(rendered))
	}
	return strings.Join(chunks, "\n\n")
}

func roleStyle(role string) lipgloss.Style {
	if strings.EqualFold(role, roleUser) {
		return roleUserStyle
	}
	return roleAssistantStyle
}

func wrapText(text string, width int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	wrapped := wordwrap.String(trimmed, width)
	return strings.ReplaceAll(wrapped, "\r", "")
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for idx := range lines {
		lines[idx] = prefix + lines[idx]
	}
	return strings.Join(lines, "\n")
}

// formatTimestamp renders an RFC3339 instant as local wall-clock time.
// The send-failure surrogate carries no timestamp and renders as empty.
func formatTimestamp(ts string) string {
	trimmed := strings.TrimSpace(ts)
	if trimmed == "" {
		return ""
	}
	if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return parsed.Local().Format("2006-01-02 15:04:05")
	}
	return trimmed
}

func listOffset(cursor, total, visible int) int {
	if total <= visible {
		return 0
	}
	offset := cursor - visible/2
	maxOffset := total - visible
	return clamp(offset, 0, maxOffset)
}

func clamp(value, low, high int) int {
	if high < low {
		return low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
