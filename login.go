package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginMode int

const (
	loginModeSignIn loginMode = iota
	loginModeSignUp
)

// loginState drives the login/signup form. Both flows are plain
// submit-then-navigate; the interesting state lives in the chat screen.
type loginState struct {
	mode       loginMode
	fullName   textinput.Model
	email      textinput.Model
	password   textinput.Model
	focus      int
	submitting bool
}

type loginResultMsg struct {
	token string
	mode  loginMode
	err   error
}

func newLoginState() loginState {
	fullName := textinput.New()
	fullName.Placeholder = "Ada Lovelace"
	fullName.Prompt = ""

	email := textinput.New()
	email.Placeholder = "founder@example.com"
	email.Prompt = ""
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword

	return loginState{mode: loginModeSignIn, fullName: fullName, email: email, password: password}
}

func (s *loginState) fields() []*textinput.Model {
	if s.mode == loginModeSignUp {
		return []*textinput.Model{&s.fullName, &s.email, &s.password}
	}
	return []*textinput.Model{&s.email, &s.password}
}

func (s *loginState) cycleFocus(delta int) {
	fields := s.fields()
	s.focus = (s.focus + delta + len(fields)) % len(fields)
	for idx, field := range fields {
		if idx == s.focus {
			field.Focus()
		} else {
			field.Blur()
		}
	}
}

func (s *loginState) toggleMode() {
	if s.mode == loginModeSignIn {
		s.mode = loginModeSignUp
	} else {
		s.mode = loginModeSignIn
	}
	s.focus = 0
	s.cycleFocus(0)
}

func (m model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.submitting {
		return m, nil
	}
	switch msg.String() {
	case "tab", "down":
		m.login.cycleFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.login.cycleFocus(-1)
		return m, nil
	case "ctrl+s":
		m.login.toggleMode()
		m.status = ""
		return m, nil
	case "enter":
		cmd := m.submitLogin()
		return m, cmd
	}

	fields := m.login.fields()
	field := fields[clamp(m.login.focus, 0, len(fields)-1)]
	var cmd tea.Cmd
	*field, cmd = field.Update(msg)
	return m, cmd
}

func (m *model) submitLogin() tea.Cmd {
	email := strings.TrimSpace(m.login.email.Value())
	password := m.login.password.Value()
	if email == "" || password == "" {
		m.status = "Email and password are required"
		return nil
	}
	fullName := strings.TrimSpace(m.login.fullName.Value())
	if m.login.mode == loginModeSignUp && fullName == "" {
		m.status = "Full name is required"
		return nil
	}

	m.login.submitting = true
	if m.login.mode == loginModeSignUp {
		m.status = "Creating account..."
	} else {
		m.status = "Signing in..."
	}

	mode := m.login.mode
	api := m.api
	return func() tea.Msg {
		ctx := context.Background()
		if mode == loginModeSignUp {
			token, err := api.register(ctx, email, fullName, password)
			return loginResultMsg{token: token, mode: mode, err: err}
		}
		token, err := api.login(ctx, email, password)
		return loginResultMsg{token: token, mode: mode, err: err}
	}
}

func (m model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.login.submitting = false
	if msg.err != nil {
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}

	setAuthToken(msg.token)
	if err := saveAuthToken(m.cfg.TokenPath, msg.token); err != nil {
		m.status = "Warning: token not persisted: " + err.Error()
	} else {
		m.status = ""
	}

	if msg.mode == loginModeSignUp {
		m.screen = screenOnboarding
		m.onboard.focusField(0)
		m.status = "Welcome! Set up your organization."
		return m, textinput.Blink
	}
	m.screen = screenAgents
	m.loadingDashboard = true
	m.status = "Loading workspace..."
	return m, m.loadDashboardCmd()
}

func (m model) renderLogin() string {
	var b strings.Builder
	if m.login.mode == loginModeSignUp {
		b.WriteString(labelStyle.Render("Create your FlowSync account") + "\n\n")
		b.WriteString("  Full name\n  " + m.login.fullName.View() + "\n\n")
	} else {
		b.WriteString(labelStyle.Render("Sign in to FlowSync") + "\n\n")
	}
	b.WriteString("  Email\n  " + m.login.email.View() + "\n\n")
	b.WriteString("  Password\n  " + m.login.password.View() + "\n\n")
	if m.login.submitting {
		b.WriteString(faintStyle.Render("  Submitting..."))
	} else if m.login.mode == loginModeSignUp {
		b.WriteString(faintStyle.Render("  enter: create account | ctrl+s: back to sign in"))
	} else {
		b.WriteString(faintStyle.Render("  enter: sign in | ctrl+s: create an account"))
	}
	return b.String()
}
