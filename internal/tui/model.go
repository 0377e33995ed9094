// Package tui runs a consultation in the terminal. The participant types the
// case, watches the specialists speak and can add details or answer their
// questions while the consultation runs.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/huddle-core/core"
	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/events"
)

const skipCommand = "/skip"

type appState int

const (
	stateCase    appState = iota // waiting for the case description
	stateRunning                 // consultation in progress
	stateDone                    // stream ended, transcript stays readable
)

type eventMsg struct{ event events.Event }

type runFinishedMsg struct{ err error }

type participantMsg struct {
	answered bool
	skipped  bool
	err      error
}

type Model struct {
	orchestrator *orchestration.Orchestrator
	ctx          context.Context
	cancel       context.CancelFunc

	state     appState
	sessionID string
	blocks    []string
	thinking  string
	asking    bool
	notice    string
	err       error

	streamNext tea.Cmd

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
}

type Option func(*Model)

// WithSymptoms starts the consultation right away instead of asking for the
// case first.
func WithSymptoms(symptoms string) Option {
	return func(m *Model) { m.input.SetValue(symptoms) }
}

func New(ctx context.Context, orchestrator *orchestration.Orchestrator, opts ...Option) *Model {
	ctx, cancel := context.WithCancel(ctx)

	input := textinput.New()
	input.Placeholder = "Describe your symptoms, how bad they are and for how long"
	input.CharLimit = 2000
	input.Focus()

	m := &Model{
		orchestrator: orchestrator,
		ctx:          ctx,
		cancel:       cancel,
		state:        stateCase,
		input:        input,
		viewport:     viewport.New(80, 20),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:        80,
		height:       24,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	if m.state == stateCase && strings.TrimSpace(m.input.Value()) != "" {
		return tea.Batch(textinput.Blink, m.submit())
	}
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(5, msg.Height-6)
		m.input.Width = max(20, msg.Width-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case eventMsg:
		return m, m.handleEvent(msg.event)

	case runFinishedMsg:
		m.state = stateDone
		m.thinking = ""
		m.asking = false
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}
		m.notice = "Consultation finished. Press esc to leave."
		return m, nil

	case participantMsg:
		switch {
		case msg.err != nil:
			m.notice = msg.err.Error()
		case msg.answered:
			m.notice = "Answer sent."
		case msg.skipped:
			m.notice = "Question skipped."
		default:
			m.notice = "Added to the consultation."
		}
		return m, nil

	case spinner.TickMsg:
		if m.thinking == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()

	switch m.state {
	case stateCase:
		id, err := m.orchestrator.StartSession(conversations.NewCase(text, "", ""))
		if err != nil {
			m.err = err
			return nil
		}
		m.sessionID = id
		m.state = stateRunning
		m.input.Placeholder = "Add details at any time, answer questions, or /skip"
		m.append(patientStyle.Render(conversations.HumanSpeaker) + "\n" + renderer{width: m.width}.wrap(text))
		return m.startRun(id)

	case stateRunning:
		return m.sendParticipantInput(text)
	}
	return nil
}

func (m *Model) sendParticipantInput(text string) tea.Cmd {
	ctx, orchestrator, id := m.ctx, m.orchestrator, m.sessionID
	if text == skipCommand {
		return func() tea.Msg {
			skipped, err := orchestrator.SkipQuestion(id)
			if err == nil && !skipped {
				err = errors.New("no question to skip")
			}
			return participantMsg{skipped: skipped, err: err}
		}
	}
	return func() tea.Msg {
		answered, err := orchestrator.Interject(ctx, id, text)
		return participantMsg{answered: answered, err: err}
	}
}

// startRun drives the session on its own goroutine and feeds its events
// back into the program one at a time.
func (m *Model) startRun(id string) tea.Cmd {
	stream := make(chan events.Event, 16)
	result := make(chan error, 1)
	ctx := m.ctx

	go func() {
		err := m.orchestrator.Run(ctx, id, orchestration.EmitterFunc(func(ctx context.Context, event events.Event) error {
			select {
			case stream <- event:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))
		result <- err
		close(stream)
	}()

	m.streamNext = func() tea.Msg {
		event, ok := <-stream
		if !ok {
			return runFinishedMsg{err: <-result}
		}
		return eventMsg{event: event}
	}
	return m.streamNext
}

func (m *Model) handleEvent(event events.Event) tea.Cmd {
	cmds := []tea.Cmd{m.streamNext}

	switch typed := event.(type) {
	case events.AgentSpeaking:
		m.thinking = typed.Agent
		cmds = append(cmds, m.spinner.Tick)
	case events.AgentMessage, events.AgentError:
		m.thinking = ""
	case events.AgentQuestion:
		m.asking = true
	case events.PatientResponse:
		m.asking = false
	case events.Status:
		if typed.Phase == events.PhaseQuestion {
			m.asking = false
		}
	}

	if block, ok := (renderer{roles: m.orchestrator.Roles(), width: m.width}).render(event); ok {
		m.append(block)
	}
	return tea.Batch(cmds...)
}

func (m *Model) append(block string) {
	m.blocks = append(m.blocks, block)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.blocks, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *Model) View() string {
	header := titleStyle.Render("Health Huddle")

	var footer []string
	switch {
	case m.thinking != "":
		footer = append(footer, m.spinner.View()+" "+m.thinking+" is thinking...")
	case m.asking:
		footer = append(footer, hintStyle.Render("A specialist is waiting for your answer."))
	}
	if m.notice != "" {
		footer = append(footer, hintStyle.Render(m.notice))
	}
	if m.err != nil {
		footer = append(footer, errorStyle.Render(m.err.Error()))
	}
	if m.state != stateDone {
		footer = append(footer, m.input.View())
	}

	body := m.viewport.View()
	if m.state == stateCase && len(m.blocks) == 0 {
		body = hintStyle.Render("Describe what is going on. A team of specialists will discuss it.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, strings.Join(footer, "\n"))
}
