package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

type screen int

const (
	screenLogin screen = iota
	screenOnboarding
	screenAgents
	screenChat
	screenAssets
)

// model tracks TUI state across all navigation levels.
type model struct {
	screen screen
	cfg    appConfig
	api    *apiClient

	width  int
	height int
	status string

	account          accountInfo
	agents           []agentInfo
	agentCursor      int
	loadingDashboard bool

	login   loginState
	onboard onboardState
	assets  assetsState
	chat    chatState

	markdown *glamour.TermRenderer
}

type dashboardLoadedMsg struct {
	account accountInfo
	agents  []agentInfo
	err     error
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowsync-tui: %v\n", err)
		os.Exit(1)
	}

	m := newModel(cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "flowsync-tui failed: %v\n", err)
		os.Exit(1)
	}
}

func newModel(cfg appConfig) model {
	m := model{
		screen:  screenLogin,
		cfg:     cfg,
		api:     newAPIClient(cfg),
		login:   newLoginState(),
		onboard: newOnboardState(),
		assets:  newAssetsState(),
		chat:    newChatState(),
	}
	if token, err := loadAuthToken(cfg.TokenPath); err == nil && token != "" {
		setAuthToken(token)
		m.screen = screenAgents
		m.loadingDashboard = true
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.screen == screenAgents {
		return m.loadDashboardCmd()
	}
	return textinput.Blink
}

// loadDashboardCmd fetches the profile and agent list that back the
// navigation chrome.
func (m model) loadDashboardCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx := context.Background()
		account, err := api.me(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		agents, err := api.listAgents(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		return dashboardLoadedMsg{account: account, agents: agents}
	}
}

func (m model) handleDashboardLoaded(msg dashboardLoadedMsg) (tea.Model, tea.Cmd) {
	m.loadingDashboard = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			return m.forceLogin()
		}
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	m.account = msg.account
	m.agents = msg.agents
	m.agentCursor = clamp(m.agentCursor, 0, len(m.agents)-1)
	if m.account.Org == nil {
		m.screen = screenOnboarding
		m.onboard.focusField(0)
		m.status = "Complete onboarding to deploy your agents"
		return m, textinput.Blink
	}
	m.status = fmt.Sprintf("Loaded %d agents", len(m.agents))
	return m, nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.markdown = newMarkdownRenderer(msg.Width)
		m.resizeChatViewport()
		m.refreshChatViewport()
		return m, nil
	case dashboardLoadedMsg:
		return m.handleDashboardLoaded(msg)
	case loginResultMsg:
		return m.handleLoginResult(msg)
	case onboardResultMsg:
		return m.handleOnboardResult(msg)
	case documentsLoadedMsg:
		return m.handleDocumentsLoaded(msg)
	case documentUploadedMsg:
		return m.handleDocumentUploaded(msg)
	case sessionResolvedMsg:
		return m.handleSessionResolved(msg)
	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)
	case turnResultMsg:
		return m.handleTurnResult(msg)
	case uploadResultMsg:
		return m.handleUploadResult(msg)
	case accountRefreshedMsg:
		return m.handleAccountRefreshed(msg)
	case spinner.TickMsg:
		if !m.chat.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.chat.spin, cmd = m.chat.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenLogin:
		return m.handleLoginKey(msg)
	case screenOnboarding:
		return m.handleOnboardingKey(msg)
	case screenAgents:
		return m.handleAgentsKey(msg)
	case screenChat:
		return m.handleChatKey(msg)
	case screenAssets:
		return m.handleAssetsKey(msg)
	default:
		return m, nil
	}
}

func (m model) handleAgentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.agentCursor = clamp(m.agentCursor-1, 0, len(m.agents)-1)
	case "down", "j":
		m.agentCursor = clamp(m.agentCursor+1, 0, len(m.agents)-1)
	case "enter":
		if len(m.agents) == 0 {
			m.status = "No agents available"
			return m, nil
		}
		cmd := m.selectAgent(m.agents[m.agentCursor])
		return m, cmd
	case "a":
		m.screen = screenAssets
		m.assets.loading = true
		m.status = "Loading documents..."
		return m, m.loadDocumentsCmd()
	case "r":
		m.loadingDashboard = true
		m.status = "Refreshing..."
		return m, m.loadDashboardCmd()
	case "ctrl+l":
		return m.logout("Logged out")
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// logout clears the token slot and its on-disk copy, then returns to a
// fresh login screen.
func (m model) logout(status string) (tea.Model, tea.Cmd) {
	clearAuthToken()
	removeAuthToken(m.cfg.TokenPath)

	fresh := newModel(m.cfg)
	fresh.screen = screenLogin
	fresh.width = m.width
	fresh.height = m.height
	fresh.markdown = m.markdown
	fresh.resizeChatViewport()
	fresh.status = status
	return fresh, textinput.Blink
}

// forceLogin is the 401 path: the surrounding app treats a rejected token
// as "redirect to login".
func (m model) forceLogin() (tea.Model, tea.Cmd) {
	return m.logout("Session expired. Please sign in again.")
}

func (m model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing flowsync-tui..."
	}

	header := m.renderHeader()
	body := m.renderBody()
	footer := helpStyle.Render(m.renderStatus())
	return header + "\n" + body + "\n" + footer
}

func (m model) renderHeader() string {
	title := "flowsync-tui"
	switch m.screen {
	case screenLogin:
		title += " | Sign in"
	case screenOnboarding:
		title += " | Onboarding"
	case screenAgents:
		title += " | Agents"
		if m.account.Org != nil {
			title += " | " + m.account.Org.Name
		}
	case screenChat:
		title += " | " + m.chat.agentName
		if m.chat.agentPersona != "" {
			title += " (" + m.chat.agentPersona + ")"
		}
		if m.account.Org != nil {
			title += fmt.Sprintf(" | credits %d/%d", m.account.Org.CreditsUsed, creditLimit)
		}
	case screenAssets:
		title += " | Assets Library"
	}
	return titleStyle.Render(title) + "\n" + helpStyle.Render(m.renderHelp())
}

func (m model) renderHelp() string {
	switch m.screen {
	case screenLogin:
		return "tab: next field | enter: submit | ctrl+s: toggle sign up | ctrl+c: quit"
	case screenOnboarding:
		return "tab: next field | enter: finish setup | ctrl+c: quit"
	case screenAgents:
		return "up/down: move | enter: chat | a: assets | r: refresh | ctrl+l: logout | q: quit"
	case screenChat:
		if m.chat.attaching {
			return "enter: upload | esc: cancel"
		}
		return "enter: send | ctrl+u: attach file | pgup/pgdown: scroll | esc: back | ctrl+c: quit"
	case screenAssets:
		if m.assets.prompting {
			return "enter: upload | esc: cancel"
		}
		return "up/down: move | u: upload | r: reload | b: back | q: quit"
	default:
		return "ctrl+c: quit"
	}
}

func (m model) renderBody() string {
	switch m.screen {
	case screenLogin:
		return m.renderLogin()
	case screenOnboarding:
		return m.renderOnboarding()
	case screenAgents:
		return m.renderAgents()
	case screenChat:
		return m.renderChat()
	case screenAssets:
		return m.renderAssets()
	default:
		return "Unknown screen"
	}
}

func (m model) renderStatus() string {
	return m.status
}

func (m model) renderAgents() string {
	if m.loadingDashboard {
		return "Loading agents..."
	}
	if len(m.agents) == 0 {
		return "No agents yet. Complete onboarding to deploy your team."
	}

	visible := max(1, m.height-6)
	offset := listOffset(m.agentCursor, len(m.agents), visible)

	lines := make([]string, 0, visible+2)
	for idx := offset; idx < min(len(m.agents), offset+visible); idx++ {
		agent := m.agents[idx]
		line := fmt.Sprintf("  %s  (%s)", agent.Name, agent.RolePersona)
		if idx == m.agentCursor {
			line = selectedStyle.Render(fmt.Sprintf("> %s  (%s)", agent.Name, agent.RolePersona))
		}
		lines = append(lines, line)
	}
	if credits := m.renderCredits(); credits != "" {
		lines = append(lines, "", credits)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderCredits() string {
	if m.account.Org == nil {
		return ""
	}
	return faintStyle.Render(fmt.Sprintf("%s | Credits %d/%d", m.account.Org.Name, m.account.Org.CreditsUsed, creditLimit))
}
