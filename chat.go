package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// chatState owns the conversation bound to the selected agent. gen is a
// selection generation counter: every async completion carries the gen
// captured when its command was built, and a result whose gen no longer
// matches the active selection is dropped on arrival.
type chatState struct {
	gen            int
	agentID        string
	agentName      string
	agentPersona   string
	conversationID string
	timeline       timeline
	busy           bool

	input     textinput.Model
	attach    textinput.Model
	attaching bool
	spin      spinner.Model
	viewport  viewport.Model
}

func newChatState() chatState {
	input := textinput.New()
	input.Placeholder = "Send a message"
	input.Prompt = "> "

	attach := textinput.New()
	attach.Placeholder = "Path to file (.pdf, .txt, .md)"
	attach.Prompt = "attach> "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return chatState{input: input, attach: attach, spin: spin}
}

type sessionResolvedMsg struct {
	gen            int
	conversationID string
	err            error
}

type historyLoadedMsg struct {
	gen      int
	messages []chatMessage
	err      error
}

type turnResultMsg struct {
	gen   int
	reply string
	err   error
}

type uploadResultMsg struct {
	gen      int
	filename string
	err      error
}

type accountRefreshedMsg struct {
	account accountInfo
	err     error
}

// selectAgent starts a fresh conversation session for agent. The timeline
// is cleared before any remote work starts, so the transcript never mixes
// two agents' messages. A missing agent id is a no-op.
func (m *model) selectAgent(agent agentInfo) tea.Cmd {
	if agent.ID == "" {
		return nil
	}
	m.chat.gen++
	m.chat.agentID = agent.ID
	m.chat.agentName = agent.Name
	m.chat.agentPersona = agent.RolePersona
	m.chat.conversationID = ""
	m.chat.timeline.clear()
	m.chat.busy = true
	m.chat.attaching = false
	m.chat.attach.Reset()
	m.chat.input.Reset()
	m.chat.input.Focus()
	m.refreshChatViewport()
	m.screen = screenChat
	m.status = "Connecting to " + agent.Name + "..."
	return tea.Batch(m.chat.spin.Tick, m.resolveSessionCmd())
}

func (m model) resolveSessionCmd() tea.Cmd {
	gen := m.chat.gen
	agentID := m.chat.agentID
	api := m.api
	return func() tea.Msg {
		conversationID, err := api.startConversation(context.Background(), agentID)
		if err != nil {
			return sessionResolvedMsg{gen: gen, err: err}
		}
		return sessionResolvedMsg{gen: gen, conversationID: conversationID}
	}
}

// handleSessionResolved feeds the resolved conversation id into the
// history load. A failure here leaves the conversation unset and reports
// on the status line only; the timeline gets no error bubble.
func (m model) handleSessionResolved(msg sessionResolvedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.chat.gen {
		return m, nil
	}
	if msg.err != nil {
		m.chat.busy = false
		if isUnauthorized(msg.err) {
			return m.forceLogin()
		}
		m.status = "Error: start conversation: " + msg.err.Error()
		return m, nil
	}
	m.chat.conversationID = msg.conversationID
	m.status = "Loading history..."
	return m, m.fetchHistoryCmd()
}

func (m model) fetchHistoryCmd() tea.Cmd {
	gen := m.chat.gen
	conversationID := m.chat.conversationID
	api := m.api
	return func() tea.Msg {
		messages, err := api.fetchHistory(context.Background(), conversationID)
		if err != nil {
			return historyLoadedMsg{gen: gen, err: err}
		}
		return historyLoadedMsg{gen: gen, messages: messages}
	}
}

func (m model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.chat.gen {
		return m, nil
	}
	m.chat.busy = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			return m.forceLogin()
		}
		m.status = "Error: load history: " + msg.err.Error()
		return m, nil
	}
	m.chat.timeline.reseed(msg.messages)
	m.refreshChatViewport()
	if len(msg.messages) > 0 {
		m.status = fmt.Sprintf("Loaded %d messages", len(msg.messages))
	} else {
		m.status = "New conversation with " + m.chat.agentName
	}
	return m, nil
}

// startTurn dispatches one user turn. Preconditions: trimmed input
// non-empty, a resolved conversation, and no exchange already in flight;
// anything else is a silent rejection with zero timeline mutations and
// zero remote calls.
func (m *model) startTurn() tea.Cmd {
	text := strings.TrimSpace(m.chat.input.Value())
	if text == "" || m.chat.conversationID == "" || m.chat.busy {
		return nil
	}
	m.chat.timeline.appendOptimistic(newUserMessage(text))
	m.chat.input.Reset()
	m.chat.busy = true
	m.refreshChatViewport()

	gen := m.chat.gen
	conversationID := m.chat.conversationID
	api := m.api
	return tea.Batch(m.chat.spin.Tick, func() tea.Msg {
		reply, err := api.sendTurn(context.Background(), conversationID, text)
		if err != nil {
			return turnResultMsg{gen: gen, err: err}
		}
		return turnResultMsg{gen: gen, reply: reply}
	})
}

// handleTurnResult settles one exchange: the reply is appended as a
// confirmed assistant message, or the fixed apology on failure. The
// optimistic user message is never rolled back. Busy is lowered either
// way so the input stays usable.
func (m model) handleTurnResult(msg turnResultMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.chat.gen {
		return m, nil
	}
	m.chat.busy = false
	if msg.err != nil {
		m.chat.timeline.appendConfirmed(turnFailureMessage())
		m.refreshChatViewport()
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	m.chat.timeline.appendConfirmed(newAssistantMessage(msg.reply))
	m.refreshChatViewport()
	m.status = ""
	return m, m.refreshAccountCmd()
}

// refreshAccountCmd re-reads /auth/me so the credits block tracks chat
// usage. Best effort: a failure touches the status line at most.
func (m model) refreshAccountCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		account, err := api.me(context.Background())
		return accountRefreshedMsg{account: account, err: err}
	}
}

func (m model) handleAccountRefreshed(msg accountRefreshedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "credit refresh failed: " + msg.err.Error()
		return m, nil
	}
	m.account = msg.account
	return m, nil
}

// startUpload uploads the file at path against the active conversation
// and marks it in the timeline. Without a resolved conversation this is a
// silent no-op.
func (m *model) startUpload(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" || m.chat.conversationID == "" {
		return nil
	}
	m.chat.busy = true
	m.status = "Uploading " + filepath.Base(path) + "..."

	gen := m.chat.gen
	conversationID := m.chat.conversationID
	filename := filepath.Base(path)
	api := m.api
	return tea.Batch(m.chat.spin.Tick, func() tea.Msg {
		file, err := os.Open(path)
		if err != nil {
			return uploadResultMsg{gen: gen, filename: filename, err: err}
		}
		defer file.Close()
		if err := api.uploadDocument(context.Background(), conversationID, filename, file); err != nil {
			return uploadResultMsg{gen: gen, filename: filename, err: err}
		}
		return uploadResultMsg{gen: gen, filename: filename}
	})
}

func (m model) handleUploadResult(msg uploadResultMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.chat.gen {
		return m, nil
	}
	m.chat.busy = false
	if msg.err != nil {
		m.chat.timeline.appendConfirmed(uploadFailureMessage())
		m.refreshChatViewport()
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	m.chat.timeline.appendOptimistic(uploadNoticeMessage(msg.filename))
	m.refreshChatViewport()
	m.status = "Uploaded " + msg.filename
	return m, nil
}

func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chat.attaching {
		switch msg.String() {
		case "enter":
			path := m.chat.attach.Value()
			m.chat.attaching = false
			m.chat.attach.Reset()
			m.chat.input.Focus()
			cmd := m.startUpload(path)
			return m, cmd
		case "esc":
			m.chat.attaching = false
			m.chat.attach.Reset()
			m.chat.input.Focus()
			return m, nil
		}
		var cmd tea.Cmd
		m.chat.attach, cmd = m.chat.attach.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		cmd := m.startTurn()
		return m, cmd
	case "esc":
		m.screen = screenAgents
		m.status = "Back to agents"
		return m, nil
	case "ctrl+u":
		if m.chat.conversationID == "" || m.chat.busy {
			return m, nil
		}
		m.chat.attaching = true
		m.chat.input.Blur()
		m.chat.attach.Focus()
		return m, textinput.Blink
	case "pgup":
		m.chat.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.chat.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return m, cmd
}

func (m *model) resizeChatViewport() {
	width := max(20, m.width-2)
	height := max(3, m.height-6)
	if m.chat.viewport.Width == 0 {
		m.chat.viewport = viewport.New(width, height)
		return
	}
	m.chat.viewport.Width = width
	m.chat.viewport.Height = height
}

func (m *model) refreshChatViewport() {
	if m.chat.viewport.Width <= 0 || m.chat.viewport.Height <= 0 {
		return
	}
	if m.chat.timeline.len() == 0 {
		m.chat.viewport.SetContent("")
		m.chat.viewport.GotoTop()
		return
	}
	m.chat.viewport.SetContent(renderTranscript(m.chat.timeline.entries, m.chat.viewport.Width, m.markdown))
	m.chat.viewport.GotoBottom()
}

func (m model) renderChat() string {
	if m.chat.viewport.Width <= 0 || m.chat.viewport.Height <= 0 {
		return "Loading conversation..."
	}

	prompt := m.chat.input.View()
	switch {
	case m.chat.busy:
		prompt = m.chat.spin.View() + " waiting for " + m.chat.agentName + "..."
	case m.chat.attaching:
		prompt = m.chat.attach.View()
	}
	return m.chat.viewport.View() + "\n" + prompt
}
