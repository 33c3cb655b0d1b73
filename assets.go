package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// assetsState drives the assets library: the organization-wide document
// list plus a path prompt for uploads that are not scoped to any chat.
type assetsState struct {
	documents []documentInfo
	cursor    int
	loading   bool
	uploading bool
	prompting bool
	pathInput textinput.Model
}

type documentsLoadedMsg struct {
	documents []documentInfo
	err       error
}

type documentUploadedMsg struct {
	filename string
	err      error
}

func newAssetsState() assetsState {
	return assetsState{pathInput: newAssetsPathInput()}
}

func (m model) loadDocumentsCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		docs, err := api.listDocuments(context.Background())
		return documentsLoadedMsg{documents: docs, err: err}
	}
}

func (m model) handleDocumentsLoaded(msg documentsLoadedMsg) (tea.Model, tea.Cmd) {
	m.assets.loading = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			return m.forceLogin()
		}
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	m.assets.documents = msg.documents
	m.assets.cursor = clamp(m.assets.cursor, 0, len(m.assets.documents)-1)
	m.status = fmt.Sprintf("%d documents", len(msg.documents))
	return m, nil
}

func (m model) handleDocumentUploaded(msg documentUploadedMsg) (tea.Model, tea.Cmd) {
	m.assets.uploading = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			return m.forceLogin()
		}
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	m.assets.loading = true
	m.status = "Uploaded " + msg.filename
	return m, m.loadDocumentsCmd()
}

func (m model) handleAssetsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.assets.prompting {
		switch msg.String() {
		case "enter":
			path := strings.TrimSpace(m.assets.pathInput.Value())
			m.assets.prompting = false
			m.assets.pathInput.Reset()
			if path == "" {
				return m, nil
			}
			cmd := m.startLibraryUpload(path)
			return m, cmd
		case "esc":
			m.assets.prompting = false
			m.assets.pathInput.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.assets.pathInput, cmd = m.assets.pathInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		m.assets.cursor = clamp(m.assets.cursor-1, 0, len(m.assets.documents)-1)
	case "down", "j":
		m.assets.cursor = clamp(m.assets.cursor+1, 0, len(m.assets.documents)-1)
	case "u":
		if m.assets.uploading {
			return m, nil
		}
		m.assets.prompting = true
		m.assets.pathInput = newAssetsPathInput()
		m.assets.pathInput.Focus()
		return m, textinput.Blink
	case "r":
		m.assets.loading = true
		m.status = "Loading documents..."
		return m, m.loadDocumentsCmd()
	case "b", "backspace", "esc":
		m.screen = screenAgents
		m.status = "Back to agents"
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func newAssetsPathInput() textinput.Model {
	pathInput := textinput.New()
	pathInput.Placeholder = "Path to file (.pdf, .txt, .md)"
	pathInput.Prompt = "upload> "
	return pathInput
}

// startLibraryUpload uploads a document for the whole organization; it is
// not bound to any conversation.
func (m *model) startLibraryUpload(path string) tea.Cmd {
	m.assets.uploading = true
	m.status = "Uploading " + filepath.Base(path) + "..."
	filename := filepath.Base(path)
	api := m.api
	return func() tea.Msg {
		file, err := os.Open(path)
		if err != nil {
			return documentUploadedMsg{filename: filename, err: err}
		}
		defer file.Close()
		if err := api.uploadDocument(context.Background(), "", filename, file); err != nil {
			return documentUploadedMsg{filename: filename, err: err}
		}
		return documentUploadedMsg{filename: filename}
	}
}

func (m model) renderAssets() string {
	if m.assets.prompting {
		return labelStyle.Render("Upload a document") + "\n\n  " + m.assets.pathInput.View()
	}
	if m.assets.loading {
		return "Loading documents..."
	}
	if len(m.assets.documents) == 0 {
		return "No documents yet. Press u to upload one."
	}

	visible := max(1, m.height-4)
	offset := listOffset(m.assets.cursor, len(m.assets.documents), visible)

	lines := make([]string, 0, visible)
	for idx := offset; idx < min(len(m.assets.documents), offset+visible); idx++ {
		doc := m.assets.documents[idx]
		line := fmt.Sprintf("  %s  %s", doc.Filename, formatTimestamp(doc.UploadDate))
		if idx == m.assets.cursor {
			line = selectedStyle.Render(fmt.Sprintf("> %s  %s", doc.Filename, formatTimestamp(doc.UploadDate)))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
