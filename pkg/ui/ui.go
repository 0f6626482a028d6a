package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type errMsg error

// states:
// - user input
// - user scrolling through messages
// - stream completion
// - showing error

type State string

const (
	StateUserInput        State = "user_input"
	StateMovingAround     State = "moving_around"
	StateStreamCompletion State = "stream_completion"
	StateError            State = "error"
)

type model struct {
	ctx        context.Context
	controller *session.Controller
	commands   *Commands

	viewport viewport.Model
	textArea textarea.Model
	help     help.Model

	err    error
	keyMap KeyMap

	style    *Style
	markdown *MarkdownRenderer
	width    int
	height   int

	// cancels the running turn, nil when idle
	cancelTurn func()
	// text of the last submitted message, restored if the turn is rolled back
	lastSubmitted string

	currentResponse        string
	previousResponseHeight int
	status                 string

	state        State
	quitReceived bool
}

type refreshMessageMsg struct {
	GoToBottom bool
}

type turnFinishedMsg struct {
	Err error
}

type ModelOption func(*model)

func WithStyle(style *Style) ModelOption {
	return func(m *model) {
		m.style = style
	}
}

// WithMarkdownRenderer renders assistant messages as markdown. Without it they are
// shown as wrapped plain text.
func WithMarkdownRenderer(r *MarkdownRenderer) ModelOption {
	return func(m *model) {
		m.markdown = r
	}
}

func WithKeyMap(keyMap KeyMap) ModelOption {
	return func(m *model) {
		m.keyMap = keyMap
	}
}

func InitialModel(ctx context.Context, controller *session.Controller, options ...ModelOption) model {
	ret := model{
		ctx:        ctx,
		controller: controller,
		commands:   NewCommands(controller),
		style:      DefaultStyles(),
		keyMap:     DefaultKeyMap,
		viewport:   viewport.New(0, 0),
		help:       help.New(),
	}
	for _, o := range options {
		o(&ret)
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Ask something, or type /help"
	ret.textArea.Focus()
	ret.state = StateUserInput

	ret.viewport.SetContent(ret.messageView())
	ret.viewport.YPosition = 0
	ret.viewport.GotoBottom()

	ret.updateKeyBindings()

	return ret
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			if m.cancelTurn != nil {
				m.quitReceived = true
				m.cancelTurn()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.DismissError):
			if m.state == StateError {
				m.err = nil
				m.state = StateUserInput
				cmds = append(cmds, m.textArea.Focus())
				m.updateKeyBindings()
				m.recomputeSize()
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, m.keyMap.UnfocusMessage):
			if m.state == StateUserInput {
				m.textArea.Blur()
				m.state = StateMovingAround
				m.updateKeyBindings()
			}

		case key.Matches(msg, m.keyMap.FocusMessage):
			if m.state == StateMovingAround {
				cmds = append(cmds, m.textArea.Focus())
				m.state = StateUserInput
				m.updateKeyBindings()
			}

		case key.Matches(msg, m.keyMap.SubmitMessage):
			if m.state == StateUserInput {
				cmds = append(cmds, m.submit())
			}

		case key.Matches(msg, m.keyMap.SaveToFile):
			cmds = append(cmds, m.runCommand("/export"))

		case key.Matches(msg, m.keyMap.NewConversation):
			cmds = append(cmds, m.runCommand("/new"))

		case key.Matches(msg, m.keyMap.ToggleFullHelp):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()

		default:
			switch m.state {
			case StateUserInput:
				m.textArea, cmd = m.textArea.Update(msg)
				cmds = append(cmds, cmd)
			case StateMovingAround, StateStreamCompletion, StateError:
				m.viewport, cmd = m.viewport.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.recomputeSize()

	case errMsg:
		m.setError(msg)
		return m, nil

	case StreamStartMsg:
		m.currentResponse = ""
		m.status = fmt.Sprintf("%s is answering...", msg.Model)
		cmds = append(cmds, refresh(true))

	case StreamCompletionMsg:
		m.currentResponse = msg.Completion
		newHeight := lipgloss.Height(m.textAreaView())
		if newHeight != m.previousResponseHeight {
			m.recomputeSize()
			m.previousResponseHeight = newHeight
		}

	case StreamDoneMsg:
		m.currentResponse = ""
		m.status = ""
		cmds = append(cmds, refresh(true))

	case StreamCompletionError:
		m.currentResponse = ""
		m.status = ""

	case turnFinishedMsg:
		m.finishTurn(msg.Err)
		if m.quitReceived {
			return m, tea.Quit
		}
		cmds = append(cmds, m.textArea.Focus(), refresh(true))

	case ConversationChangedMsg:
		log.Debug().Str("action", string(msg.Action)).Str("conversation", msg.Name).Msg("conversation changed")
		cmds = append(cmds, refresh(true))

	case refreshMessageMsg:
		m.viewport.SetContent(m.messageView())
		m.recomputeSize()
		if msg.GoToBottom {
			m.viewport.GotoBottom()
		}

	default:
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func refresh(goToBottom bool) tea.Cmd {
	return func() tea.Msg {
		return refreshMessageMsg{GoToBottom: goToBottom}
	}
}

func (m *model) updateKeyBindings() {
	m.keyMap.SaveToFile.SetEnabled(m.state != StateStreamCompletion)
	m.keyMap.NewConversation.SetEnabled(m.state != StateStreamCompletion)

	m.keyMap.FocusMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.UnfocusMessage.SetEnabled(m.state == StateUserInput)
	m.keyMap.SubmitMessage.SetEnabled(m.state == StateUserInput)

	m.keyMap.DismissError.SetEnabled(m.state == StateError)
}

func (m *model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	textAreaHeight := lipgloss.Height(m.textAreaView())
	helpViewHeight := lipgloss.Height(m.help.View(m.keyMap))

	m.previousResponseHeight = textAreaHeight
	newHeight := m.height - textAreaHeight - headerHeight - helpViewHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight + 1

	h, _ := m.style.SelectedMessage.GetFrameSize()
	if m.width > h {
		m.textArea.SetWidth(m.width - h)
	}
	m.help.Width = m.width

	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m model) headerView() string {
	current := m.controller.Current()
	header := m.style.Header.Render(
		fmt.Sprintf("PARLEY: %s (%d messages, ~%d tokens)", current.Name, current.Len(), current.TokenCount))

	var status []string
	if m.commands.PendingImage != nil {
		status = append(status, fmt.Sprintf("[image: %s]", m.commands.PendingImage.ImageName))
	}
	if m.status != "" {
		status = append(status, m.status)
	}
	if len(status) > 0 {
		header += "\n" + m.style.Status.Render(wrapWords(strings.Join(status, " "), m.width))
	}
	return header
}

func (m model) contentWidth() int {
	w, _ := m.style.UnselectedMessage.GetFrameSize()
	width := m.width - w
	if width < 10 {
		width = 10
	}
	return width
}

func (m model) renderMessage(msg *conversation.Message) string {
	width := m.contentWidth()
	if msg.Role == conversation.RoleAssistant && m.markdown != nil {
		return fmt.Sprintf("[%s]:\n%s", msg.Role, m.markdown.Render(msg.Text(), width))
	}
	return wrapWords(msg.View(), width)
}

func (m model) messageView() string {
	ret := ""

	for _, msg := range m.controller.Current().Messages {
		v := m.renderMessage(msg)
		v = m.style.UnselectedMessage.Width(m.contentWidth()).Render(v)
		ret += v
		ret += "\n"
	}

	return ret
}

func (m model) textAreaView() string {
	if m.err != nil {
		w, _ := m.style.ErrorMessage.GetFrameSize()
		v := wrapWords(m.err.Error(), m.width-w)
		return m.style.ErrorMessage.Render(v)
	}

	if m.state == StateStreamCompletion {
		v := wrapWords(fmt.Sprintf("[%s]: %s", conversation.RoleAssistant, m.currentResponse), m.contentWidth())
		return m.style.SelectedMessage.Width(m.contentWidth()).Render(v)
	}

	v := m.textArea.View()
	switch m.state {
	case StateUserInput:
		v = m.style.FocusedMessage.Render(v)
	case StateMovingAround, StateStreamCompletion:
		v = m.style.UnselectedMessage.Render(v)
	case StateError:
	}

	return v
}

func (m model) View() string {
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.textAreaView() + "\n" + m.help.View(m.keyMap)
}

// submit either runs a slash command or starts a turn in a background command. The
// events of the turn come back through StepChatForwardFunc, the result through
// turnFinishedMsg.
func (m *model) submit() tea.Cmd {
	text := m.textArea.Value()
	if IsCommand(text) {
		m.textArea.SetValue("")
		return m.runCommand(text)
	}

	if strings.TrimSpace(text) == "" && m.commands.PendingImage == nil {
		return nil
	}
	if m.cancelTurn != nil {
		return func() tea.Msg {
			return errMsg(session.ErrTurnInProgress)
		}
	}

	image := m.commands.TakePendingImage()
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelTurn = cancel
	m.lastSubmitted = text

	m.textArea.SetValue("")
	m.textArea.Blur()
	m.state = StateStreamCompletion
	m.currentResponse = ""
	m.previousResponseHeight = 0
	m.updateKeyBindings()

	controller := m.controller
	return func() tea.Msg {
		defer cancel()
		_, err := controller.SubmitTurn(ctx, text, image)
		return turnFinishedMsg{Err: err}
	}
}

func (m *model) runCommand(line string) tea.Cmd {
	result, err := m.commands.Execute(m.ctx, line)
	if err != nil {
		m.setError(err)
		return nil
	}
	if result.Quit {
		return tea.Quit
	}
	m.status = result.Output
	m.recomputeSize()
	return refresh(true)
}

func (m *model) finishTurn(err error) {
	m.cancelTurn = nil
	m.currentResponse = ""
	m.previousResponseHeight = 0
	m.state = StateUserInput

	if err != nil {
		if errors.Is(err, session.ErrEmptyTurn) {
			err = nil
		} else if m.controller.RollbackPolicy() == session.RollbackTurn {
			m.textArea.SetValue(m.lastSubmitted)
		}
	}
	m.lastSubmitted = ""

	if err != nil {
		m.setError(err)
		return
	}

	m.updateKeyBindings()
	m.recomputeSize()
}

func (m *model) setError(err error) {
	m.err = err
	m.state = StateError
	m.textArea.Blur()
	m.updateKeyBindings()
	m.recomputeSize()
}
