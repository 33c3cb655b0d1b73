package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// Fixed transcript texts, identical to the web client's.
const (
	greetingText      = "Hello! I am ready to review your documents. How can I help?"
	turnFailureText   = "I'm having trouble connecting. Please try again."
	uploadFailureText = "Failed to upload document. Please try again."
)

// chatMessage is one turn in a conversation timeline.
type chatMessage struct {
	id        string
	role      string // roleUser or roleAssistant
	content   string // markdown
	timestamp string // RFC3339; empty only on the send-failure surrogate
}

// provenance tags whether a timeline entry was shown before or after its
// remote operation confirmed.
type provenance int

const (
	provenanceOptimistic provenance = iota
	provenanceConfirmed
)

type timelineEntry struct {
	chatMessage
	provenance provenance
}

// timeline is the append-only message log backing the chat transcript.
// The only mutations are the two appends and a wholesale reseed; entries
// are never removed, reordered, or edited in place.
type timeline struct {
	entries []timelineEntry
}

// appendOptimistic inserts an entry before its remote operation confirms,
// keeping the transcript responsive. Used for the user's own turns and
// for attachment notices.
func (t *timeline) appendOptimistic(msg chatMessage) {
	t.entries = append(t.entries, timelineEntry{chatMessage: msg, provenance: provenanceOptimistic})
}

// appendConfirmed inserts an agent reply, or the fixed surrogate when an
// exchange fails.
func (t *timeline) appendConfirmed(msg chatMessage) {
	t.entries = append(t.entries, timelineEntry{chatMessage: msg, provenance: provenanceConfirmed})
}

// reseed replaces the whole log with the fetched history. An empty history
// seeds exactly one assistant greeting instead, so the transcript is never
// blank; the greeting is local only and never persisted server-side.
func (t *timeline) reseed(history []chatMessage) {
	if len(history) == 0 {
		t.entries = []timelineEntry{{
			chatMessage: chatMessage{
				id:        "init",
				role:      roleAssistant,
				content:   greetingText,
				timestamp: time.Now().Format(time.RFC3339),
			},
			provenance: provenanceConfirmed,
		}}
		return
	}
	entries := make([]timelineEntry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, timelineEntry{chatMessage: msg, provenance: provenanceConfirmed})
	}
	t.entries = entries
}

func (t *timeline) clear() {
	t.entries = nil
}

func (t timeline) len() int {
	return len(t.entries)
}

func newUserMessage(content string) chatMessage {
	return chatMessage{
		id:        uuid.NewString(),
		role:      roleUser,
		content:   content,
		timestamp: time.Now().Format(time.RFC3339),
	}
}

func newAssistantMessage(content string) chatMessage {
	return chatMessage{
		id:        uuid.NewString(),
		role:      roleAssistant,
		content:   content,
		timestamp: time.Now().Format(time.RFC3339),
	}
}

// turnFailureMessage is the surrogate appended when send-turn fails. Its
// timestamp is deliberately empty, matching the web client.
func turnFailureMessage() chatMessage {
	return chatMessage{
		id:      uuid.NewString(),
		role:    roleAssistant,
		content: turnFailureText,
	}
}

// uploadNoticeMessage marks a successful attachment upload; the document
// contents are never rendered, only this marker.
func uploadNoticeMessage(filename string) chatMessage {
	return chatMessage{
		id:        uuid.NewString(),
		role:      roleUser,
		content:   fmt.Sprintf("📎 Uploaded **%s** for analysis.", filename),
		timestamp: time.Now().Format(time.RFC3339),
	}
}

func uploadFailureMessage() chatMessage {
	return chatMessage{
		id:        uuid.NewString(),
		role:      roleAssistant,
		content:   uploadFailureText,
		timestamp: time.Now().Format(time.RFC3339),
	}
}
