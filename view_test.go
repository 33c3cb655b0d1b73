package main

import (
	"strings"
	"testing"
)

func TestRenderTranscriptFallsBackWithoutRenderer(t *testing.T) {
	t.Parallel()

	entries := []timelineEntry{
		{chatMessage: chatMessage{role: roleUser, content: "What is our runway?", timestamp: "2026-01-02T10:00:00Z"}},
		{chatMessage: chatMessage{role: roleAssistant, content: "18 months at current burn", timestamp: "2026-01-02T10:00:05Z"}},
	}

	out := renderTranscript(entries, 80, nil)
	if !strings.Contains(out, "What is our runway?") {
		t.Fatalf("user turn missing from transcript: %q", out)
	}
	if !strings.Contains(out, "18 months at current burn") {
		t.Fatalf("assistant turn missing from transcript: %q", out)
	}
	if !strings.Contains(out, "USER") || !strings.Contains(out, "ASSISTANT") {
		t.Fatalf("role headers missing from transcript: %q", out)
	}
}

func TestRenderTranscriptOmitsTimestampForFailureSurrogate(t *testing.T) {
	t.Parallel()

	entries := []timelineEntry{
		{chatMessage: turnFailureMessage()},
	}

	out := renderTranscript(entries, 80, nil)
	if !strings.Contains(out, turnFailureText) {
		t.Fatalf("apology missing from transcript: %q", out)
	}
	lines := strings.Split(out, "\n")
	if !strings.HasSuffix(strings.TrimSpace(stripANSI(lines[0])), "ASSISTANT") {
		t.Fatalf("header must be the bare role when timestamp is empty: %q", lines[0])
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	if got := formatTimestamp(""); got != "" {
		t.Fatalf("empty timestamp must render empty, got %q", got)
	}
	if got := formatTimestamp("not a time"); got != "not a time" {
		t.Fatalf("unparseable timestamp must pass through, got %q", got)
	}
	if got := formatTimestamp("2026-01-02T10:00:00Z"); len(got) != len("2006-01-02 15:04:05") {
		t.Fatalf("unexpected formatted timestamp: %q", got)
	}
}

func TestWrapTextBreaksLongLines(t *testing.T) {
	t.Parallel()

	wrapped := wrapText(strings.Repeat("word ", 30), 20)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 20 {
			t.Fatalf("line longer than wrap width: %q", line)
		}
	}
}

func TestListOffsetCentersCursor(t *testing.T) {
	t.Parallel()

	if got := listOffset(0, 3, 10); got != 0 {
		t.Fatalf("short list offset = %d, want 0", got)
	}
	if got := listOffset(50, 100, 10); got != 45 {
		t.Fatalf("mid list offset = %d, want 45", got)
	}
	if got := listOffset(99, 100, 10); got != 90 {
		t.Fatalf("end of list offset = %d, want 90", got)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	if got := clamp(5, 0, 3); got != 3 {
		t.Fatalf("clamp above = %d", got)
	}
	if got := clamp(-2, 0, 3); got != 0 {
		t.Fatalf("clamp below = %d", got)
	}
	if got := clamp(1, 2, 0); got != 2 {
		t.Fatalf("clamp inverted range = %d", got)
	}
}
