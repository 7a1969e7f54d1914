// Package chatui is the terminal front-end of the chat widget.
package chatui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/campus-chat/backend/internal/widget"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// status line + input line + help line
	chromeHeight = 3
)

// AppendedMsg tells the model the chat log grew.
type AppendedMsg struct{}

// InputEnabledMsg carries the client's request to enable or disable the input.
type InputEnabledMsg struct{ Enabled bool }

type submitDoneMsg struct{ err error }

type statusMsg struct{ status widget.Status }

// Model renders a widget.Log and drives a widget.Client. The client owns the send
// state: the model only reacts to the Control calls it forwards as InputEnabledMsg.
type Model struct {
	ctx    context.Context
	client *widget.Client
	log    *widget.Log

	viewport viewport.Model
	input    textinput.Model
	status   widget.Status
	note     string
	width    int
}

// New builds the model. client must append to log and deliver its Control calls to
// the program as InputEnabledMsg; ctx bounds every request the model starts.
func New(ctx context.Context, client *widget.Client, log *widget.Log) Model {
	in := textinput.New()
	in.Placeholder = "Ask a question..."
	in.Prompt = "You> "
	in.CharLimit = 0
	in.Width = defaultWidth - len(in.Prompt) - 1
	in.Focus()

	m := Model{
		ctx:      ctx,
		client:   client,
		log:      log,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		input:    in,
		width:    defaultWidth,
	}
	m.refresh()
	return m
}

// NotifyAppend returns a Log hook that forwards appends to p.
func NotifyAppend(p *tea.Program) func(widget.Message) {
	return func(widget.Message) {
		p.Send(AppendedMsg{})
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.pollStatus())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.client.Close()
			return m, tea.Quit
		case "ctrl+s":
			return m, m.pollStatus()
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case InputEnabledMsg:
		if !msg.Enabled {
			// The client accepted the message; it is in the log now.
			m.input.SetValue("")
			m.input.Blur()
			return m, nil
		}
		cmd := m.input.Focus()
		return m, cmd

	case AppendedMsg, submitDoneMsg:
		m.refresh()
		return m, nil

	case statusMsg:
		m.status = msg.status
		return m, nil
	}

	if !m.client.InputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || !m.client.InputEnabled() {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.command(text), nil
	}

	// The input is cleared once the client disables it, so a message rejected as
	// already in flight is not lost.
	ctx, client := m.ctx, m.client
	return m, func() tea.Msg {
		return submitDoneMsg{err: client.Submit(ctx, text)}
	}
}

// command handles the local "/lang" and "/kb" settings.
func (m Model) command(text string) Model {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/lang":
		lang := strings.ToLower(arg)
		switch lang {
		case "", "auto":
			m.client.SetLanguage("")
			m.note = "Reply language: auto"
		case "en", "es", "ja":
			m.client.SetLanguage(lang)
			m.note = "Reply language: " + lang
		default:
			m.note = fmt.Sprintf("Unknown language %q (use en, es, ja or auto)", arg)
			return m
		}
	case "/kb":
		m.client.SetKnowledge(arg)
		if arg == "" {
			m.note = "Knowledge context cleared"
		} else {
			m.note = fmt.Sprintf("Knowledge context set (%d chars)", len(arg))
		}
	default:
		m.note = fmt.Sprintf("Unknown command %s (try /lang or /kb)", name)
		return m
	}
	m.input.SetValue("")
	return m
}

func (m Model) pollStatus() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		return statusMsg{status: client.PollStatus(ctx)}
	}
}

// refresh re-renders the transcript and keeps the newest message in view.
func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.log.Messages(), m.width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(badgeStyle(m.status).Render(m.status.Label()))
	if m.note != "" {
		b.WriteString(" ")
		b.WriteString(helpStyle.Render(m.note))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.client.Sending() {
		b.WriteString(helpStyle.Render("Sending..."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · /lang en|es|ja|auto · /kb text · ctrl+s status · esc quit"))
	return b.String()
}
