package chatui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/campus-chat/backend/internal/widget"
)

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	helpStyle      = lipgloss.NewStyle().Faint(true)

	connectedBadge    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("28"))
	disconnectedBadge = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("240"))
)

func badgeStyle(s widget.Status) lipgloss.Style {
	if s.Connected {
		return connectedBadge
	}
	return disconnectedBadge
}

// renderTranscript lays messages out top to bottom, oldest first. Text goes through
// widget.TerminalText so replies cannot inject escape sequences.
func renderTranscript(messages []widget.Message, width int) string {
	body := lipgloss.NewStyle().Width(max(width-2, 10)).PaddingLeft(2)

	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		label := botLabelStyle.Render("Bot")
		if msg.Role == widget.RoleUser {
			label = userLabelStyle.Render("You")
		}
		blocks = append(blocks, label+"\n"+body.Render(widget.TerminalText(msg.Text)))
	}
	return strings.Join(blocks, "\n\n")
}
