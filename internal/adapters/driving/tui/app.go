package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// Options holds chat behaviour configuration.
type Options struct {
	// HistoryTurns is the number of past exchanges sent as context.
	HistoryTurns int

	// DisplayMinScore hides sources scoring below it.
	DisplayMinScore float64
}

// exchange is one question/answer pair in the transcript.
type exchange struct {
	question string
	answer   *domain.Answer
	err      error
}

// answerMsg carries a completed query back into the update loop.
type answerMsg struct {
	question string
	answer   *domain.Answer
	err      error
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *Styles
	opts   Options

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// sessionID correlates all queries from this chat session.
	sessionID string

	// history is the bounded conversation context, oldest first.
	history []domain.ChatTurn

	// transcript holds every exchange for rendering.
	transcript []exchange

	waiting     bool
	showSources bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat application with the given ports.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = domain.DefaultAppSettings().Pipeline.ChatHistoryTurns
	}
	if opts.DisplayMinScore <= 0 {
		opts.DisplayMinScore = domain.DefaultAppSettings().Pipeline.DisplayMinScore
	}

	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.Focus()
	input.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    DefaultStyles(),
		opts:      opts,
		input:     input,
		spinner:   sp,
		sessionID: uuid.NewString(),
	}, nil
}

// WithContext sets the context used for queries.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("docent - Document Q&A"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		a.viewport.SetContent(a.renderTranscript())
		a.viewport.GotoBottom()
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return a, tea.Quit
		case tea.KeyCtrlS:
			a.showSources = !a.showSources
			a.viewport.SetContent(a.renderTranscript())
			return a, nil
		case tea.KeyEnter:
			return a, a.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}

	case answerMsg:
		a.waiting = false
		a.transcript = append(a.transcript, exchange{
			question: msg.question,
			answer:   msg.answer,
			err:      msg.err,
		})
		if msg.err == nil && msg.answer != nil {
			a.pushHistory(msg.question, msg.answer)
		}
		a.viewport.SetContent(a.renderTranscript())
		a.viewport.GotoBottom()
		return a, nil

	case spinner.TickMsg:
		if !a.waiting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit sends the current input as a question.
func (a *App) submit() tea.Cmd {
	question := strings.TrimSpace(a.input.Value())
	if question == "" || a.waiting {
		return nil
	}
	a.input.Reset()
	a.waiting = true

	// Copy so the command goroutine never races the model.
	history := make([]domain.ChatTurn, len(a.history))
	copy(history, a.history)

	ask := func() tea.Msg {
		answer, err := a.ports.Query.Query(a.ctx, domain.QueryRequest{
			Query:     question,
			History:   history,
			SessionID: a.sessionID,
		})
		return answerMsg{question: question, answer: answer, err: err}
	}
	return tea.Batch(a.spinner.Tick, ask)
}

// pushHistory appends one exchange and trims to the configured depth.
func (a *App) pushHistory(question string, answer *domain.Answer) {
	text := answer.Answer
	if answer.GeneralAnswer != nil {
		text = *answer.GeneralAnswer
	}
	a.history = append(a.history,
		domain.ChatTurn{Role: domain.RoleUser, Content: question},
		domain.ChatTurn{Role: domain.RoleAssistant, Content: text},
	)
	if maxTurns := a.opts.HistoryTurns * 2; len(a.history) > maxTurns {
		a.history = a.history[len(a.history)-maxTurns:]
	}
}

// layout sizes the viewport to the space left over by input and status.
func (a *App) layout() {
	inputHeight := 3
	statusHeight := 1
	vpHeight := a.height - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !a.ready {
		a.viewport = viewport.New(a.width, vpHeight)
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = vpHeight
	}
	a.input.Width = a.width - 6
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	status := "Enter: send  Ctrl+S: sources  PgUp/PgDn: scroll  Ctrl+C: quit"
	if a.waiting {
		status = a.spinner.View() + " Thinking..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		a.styles.Input.Width(a.width-2).Render(a.input.View()),
		a.styles.Status.Render(status),
	)
}

// renderTranscript renders every exchange into viewport content.
func (a *App) renderTranscript() string {
	if len(a.transcript) == 0 {
		return a.styles.Status.Render("Ask a question about your documents.")
	}

	wrap := lipgloss.NewStyle().Width(a.contentWidth())
	var b strings.Builder
	for i := range a.transcript {
		e := &a.transcript[i]
		b.WriteString(a.styles.You.Render("You: "))
		b.WriteString(wrap.Render(e.question))
		b.WriteString("\n\n")

		if e.err != nil {
			b.WriteString(a.styles.Error.Render("Error: " + e.err.Error()))
			b.WriteString("\n\n")
			continue
		}

		b.WriteString(a.styles.Assistant.Render("Docent: "))
		b.WriteString(wrap.Render(e.answer.Answer))
		b.WriteString("\n")
		if e.answer.GeneralAnswer != nil {
			b.WriteString(wrap.Render(*e.answer.GeneralAnswer))
			b.WriteString("\n")
		}
		b.WriteString(a.renderSources(e.answer))
		b.WriteString("\n")
	}
	return b.String()
}

// renderSources renders the citation list for one answer.
func (a *App) renderSources(answer *domain.Answer) string {
	sources := domain.FilterForDisplay(answer.Sources, a.opts.DisplayMinScore, answer.Degraded)
	if len(sources) == 0 && !answer.Degraded {
		return ""
	}

	var b strings.Builder
	for _, s := range sources {
		line := fmt.Sprintf("  [%d] %s", s.LocalID, s.Document)
		if s.Section != "" {
			line += " > " + s.Section
		}
		line += fmt.Sprintf(" (%.2f)", s.Score)
		b.WriteString(a.styles.Source.Render(line))
		b.WriteString("\n")
		if a.showSources {
			detail := lipgloss.NewStyle().Width(a.contentWidth() - 6).Render(s.Text)
			b.WriteString(a.styles.Source.Render("      " + detail))
			b.WriteString("\n")
		}
	}
	if answer.Degraded {
		b.WriteString(a.styles.Degraded.Render("  (reranking unavailable, retrieval order)"))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) contentWidth() int {
	if a.width > 8 {
		return a.width - 2
	}
	return 78
}
