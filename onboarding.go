package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// onboardState drives the one-shot organization setup wizard: name,
// industry and a seed document. On success the backend deploys the
// default agent personas.
type onboardState struct {
	orgName    textinput.Model
	industry   textinput.Model
	docPath    textinput.Model
	focus      int
	submitting bool
}

type onboardResultMsg struct {
	err error
}

func newOnboardState() onboardState {
	orgName := textinput.New()
	orgName.Placeholder = "Acme Inc."
	orgName.Prompt = ""

	industry := textinput.New()
	industry.Placeholder = "SaaS"
	industry.Prompt = ""

	docPath := textinput.New()
	docPath.Placeholder = "path to a reference document (.pdf, .txt, .md)"
	docPath.Prompt = ""

	return onboardState{orgName: orgName, industry: industry, docPath: docPath}
}

func (s *onboardState) fields() []*textinput.Model {
	return []*textinput.Model{&s.orgName, &s.industry, &s.docPath}
}

func (s *onboardState) focusField(idx int) {
	fields := s.fields()
	s.focus = clamp(idx, 0, len(fields)-1)
	for i, field := range fields {
		if i == s.focus {
			field.Focus()
		} else {
			field.Blur()
		}
	}
}

func (m model) handleOnboardingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.onboard.submitting {
		return m, nil
	}
	switch msg.String() {
	case "tab", "down":
		m.onboard.focusField((m.onboard.focus + 1) % 3)
		return m, nil
	case "shift+tab", "up":
		m.onboard.focusField((m.onboard.focus + 2) % 3)
		return m, nil
	case "enter":
		cmd := m.submitOnboarding()
		return m, cmd
	}

	fields := m.onboard.fields()
	field := fields[m.onboard.focus]
	var cmd tea.Cmd
	*field, cmd = field.Update(msg)
	return m, cmd
}

func (m *model) submitOnboarding() tea.Cmd {
	orgName := strings.TrimSpace(m.onboard.orgName.Value())
	industry := strings.TrimSpace(m.onboard.industry.Value())
	docPath := strings.TrimSpace(m.onboard.docPath.Value())
	if orgName == "" || industry == "" || docPath == "" {
		m.status = "Organization name, industry and a document are required"
		return nil
	}

	m.onboard.submitting = true
	m.status = "Setting up your organization..."

	api := m.api
	return func() tea.Msg {
		file, err := os.Open(docPath)
		if err != nil {
			return onboardResultMsg{err: err}
		}
		defer file.Close()
		err = api.completeOnboarding(context.Background(), orgName, industry, filepath.Base(docPath), file)
		return onboardResultMsg{err: err}
	}
}

func (m model) handleOnboardResult(msg onboardResultMsg) (tea.Model, tea.Cmd) {
	m.onboard.submitting = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			return m.forceLogin()
		}
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	m.screen = screenAgents
	m.loadingDashboard = true
	m.status = "Organization created, agents deployed"
	return m, m.loadDashboardCmd()
}

func (m model) renderOnboarding() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Set up your organization") + "\n\n")
	b.WriteString("  Organization name\n  " + m.onboard.orgName.View() + "\n\n")
	b.WriteString("  Industry\n  " + m.onboard.industry.View() + "\n\n")
	b.WriteString("  Seed document\n  " + m.onboard.docPath.View() + "\n\n")
	if m.onboard.submitting {
		b.WriteString(faintStyle.Render("  Submitting..."))
	} else {
		b.WriteString(faintStyle.Render("  enter: finish setup | tab: next field"))
	}
	return b.String()
}
