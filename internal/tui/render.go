package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/events"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var roleColors = map[conversations.RoleID]lipgloss.Color{
	conversations.RoleGuidelines: lipgloss.Color("#5fafff"),
	conversations.RoleEvidence:   lipgloss.Color("#af87ff"),
	conversations.RoleCases:      lipgloss.Color("#5fd7af"),
	conversations.RoleSafety:     lipgloss.Color("#ffaf5f"),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#005f87")).Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	patientStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d7d7d7"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c6c6c"))
	questionBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#ffd75f")).Padding(0, 1)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c6c6c"))
)

func roleStyle(key conversations.RoleID) lipgloss.Style {
	color, ok := roleColors[key]
	if !ok {
		color = lipgloss.Color("#d0d0d0")
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}

// renderer turns stream events into transcript blocks.
type renderer struct {
	roles []conversations.Role
	width int
}

func (r renderer) wrap(text string) string {
	width := r.width - 2
	if width < 20 {
		width = 20
	}
	return indent.String(wordwrap.String(text, width), 2)
}

func (r renderer) heading(agent string, key conversations.RoleID) string {
	icon := ""
	if role, ok := conversations.FindRole(r.roles, key); ok && role.Icon != "" {
		icon = role.Icon + " "
	}
	return roleStyle(key).Render(icon + agent)
}

// render returns the transcript block for an event. Events that only change
// transient state, like a specialist thinking, render nothing.
func (r renderer) render(event events.Event) (string, bool) {
	switch typed := event.(type) {
	case events.Status:
		return statusStyle.Render(typed.Message), true
	case events.Emergency:
		block := errorStyle.Bold(true).Render("EMERGENCY: "+typed.Condition) + "\n" + r.wrap(typed.Message)
		if typed.Reasoning != "" {
			block += "\n" + r.wrap(typed.Reasoning)
		}
		return block, true
	case events.AgentMessage:
		block := r.heading(typed.Agent, typed.AgentKey) + "\n" + r.wrap(typed.Text)
		if len(typed.Sources) > 0 {
			citations := make([]string, len(typed.Sources))
			for i, source := range typed.Sources {
				citations[i] = source.Citation()
			}
			block += "\n" + sourceStyle.Render(r.wrap("Sources: "+strings.Join(citations, "; ")))
		}
		return block, true
	case events.AgentQuestion:
		text := fmt.Sprintf("%s asks: %s\n(answer below within %ds, or type /skip)", typed.Agent, typed.Question, typed.TimeoutSeconds)
		return questionBox.Width(max(20, r.width-4)).Render(text), true
	case events.AgentError:
		return r.heading(typed.Agent, typed.AgentKey) + "\n" + errorStyle.Render(r.wrap(typed.Reason)), true
	case events.PatientResponse:
		return patientStyle.Render(conversations.HumanSpeaker) + "\n" + r.wrap(typed.Message), true
	case events.Interjection:
		return patientStyle.Render(conversations.HumanSpeaker+" (added)") + "\n" + r.wrap(typed.Message), true
	case events.Consensus:
		verdict := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(typed.Urgency.Color)).
			Render(fmt.Sprintf("URGENCY %s: %s", typed.Urgency.Level, typed.Urgency.Message))
		return titleStyle.Render("Team consensus") + "\n" + r.wrap(typed.Text) + "\n\n" + verdict, true
	case events.ConsensusError:
		return errorStyle.Render(r.wrap(typed.Reason)), true
	case events.StreamError:
		return errorStyle.Render(r.wrap("Something went wrong: " + typed.Message)), true
	default:
		return "", false
	}
}
