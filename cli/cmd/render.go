package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/xiaot623/roundtable/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	humanStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	systemStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("13"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	bodyStyle   = lipgloss.NewStyle().PaddingLeft(2)

	roleStyles = map[domain.RoleTag]lipgloss.Style{
		domain.RoleResearcher: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		domain.RoleCritic:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		domain.RoleCreative:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		domain.RoleSummarizer: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		domain.RoleAnalyst:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		domain.RoleGeneralist: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
	}
)

// renderDiscussionLine prints one row of the discussion list.
func renderDiscussionLine(w io.Writer, d domain.Discussion, now time.Time) {
	fmt.Fprintf(w, "%s  %s  %s\n",
		titleStyle.Render(d.DiscussionID),
		d.Topic,
		dimStyle.Render(fmt.Sprintf("%s messages, updated %s",
			humanize.Comma(d.LastSeq), humanize.RelTime(d.UpdatedAt, now, "ago", "from now"))))
}

func renderRoster(w io.Writer, participants []domain.Participant) {
	for _, p := range participants {
		fmt.Fprintf(w, "  %s %s\n", roleStyle(p.Role).Render(p.DisplayName), dimStyle.Render(p.Description))
	}
}

// speakerLabel names the author of a message the way the transcript shows it.
func speakerLabel(m domain.Message) string {
	switch m.SenderKind {
	case domain.SenderHuman:
		return humanStyle.Render("You (" + m.SenderID + ")")
	case domain.SenderParticipant:
		name := m.Metadata.ParticipantName
		if name == "" {
			name = m.SenderID
		}
		label := name
		if m.Metadata.Round > 0 {
			label += fmt.Sprintf(" · round %d", m.Metadata.Round)
		}
		return roleStyle(m.Metadata.Role).Render(label)
	default:
		if m.IsSynthesis() {
			return systemStyle.Render("Synthesis")
		}
		return systemStyle.Render("System")
	}
}

func renderMessage(w io.Writer, m domain.Message) {
	fmt.Fprintf(w, "%s %s %s\n", dimStyle.Render(fmt.Sprintf("#%d", m.Seq)), speakerLabel(m), dimStyle.Render(humanize.Time(m.CreatedAt)))
	fmt.Fprintln(w, bodyStyle.Render(strings.TrimSpace(m.Content)))
	fmt.Fprintln(w)
}

func renderError(w io.Writer, code, message string) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("error [%s]: %s", code, message)))
}

func roleStyle(role domain.RoleTag) lipgloss.Style {
	if s, ok := roleStyles[role]; ok {
		return s
	}
	return roleStyles[domain.RoleGeneralist]
}
