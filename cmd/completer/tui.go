package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/completer"
	"github.com/rlch/completer/handler"
	"github.com/rlch/completer/model"
	"github.com/rlch/completer/textbuf"
)

// popupHeight is the number of candidates shown at once.
const popupHeight = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Reverse(true)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	enabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))
)

type keyMap struct {
	Complete key.Binding
	Accept   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Dismiss  key.Binding
	Undo     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Complete: key.NewBinding(key.WithKeys("tab", "ctrl+@"), key.WithHelp("tab", "complete")),
	Accept:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
	Next:     key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next")),
	Prev:     key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "prev")),
	Dismiss:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
	Undo:     key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// invokeMsg carries a handler's scheduled invoke onto the event loop.
type invokeMsg struct{ fn func() }

// updatedMsg reports that the display changed off the event loop.
type updatedMsg struct{}

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive editor with completion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "file to edit; used to match a kernel session",
			},
		},
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")

	var text string
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: file path from user input is expected
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		text = string(data)
	} else {
		path = "untitled"
	}

	var program *tea.Program
	schedule := func(fn func()) {
		go program.Send(invokeMsg{fn: fn})
	}

	eng, err := newEngine(ctx, cmd, path, schedule)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close(ctx) }()

	buf := textbuf.New(text)
	surface, h := eng.open("tui", path, buf)
	defer surface.Dispose()

	m := &tuiModel{
		id:      "tui",
		path:    path,
		eng:     eng,
		buf:     buf,
		handler: h,
		display: displayOf(h),
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}

	program = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())

	conn := m.display.Updated().Connect(func(struct{}) {
		go program.Send(updatedMsg{})
	})
	defer conn.Disconnect()

	_, err = program.Run()

	return err
}

type tuiModel struct {
	id      string
	path    string
	eng     *engine
	buf     *textbuf.Buffer
	handler *handler.Handler
	display *model.Completer
	spinner spinner.Model
	width   int
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

// waiting reports whether a session is open with no reply yet.
func (m *tuiModel) waiting() bool {
	state := m.display.State()
	return state.Original() != nil && len(state.Items()) == 0
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case invokeMsg:
		msg.fn()
		if m.waiting() {
			return m, m.spinner.Tick
		}

	case updatedMsg:

	case spinner.TickMsg:
		if m.waiting() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	visible := !m.display.IsHidden()

	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit

	case key.Matches(msg, keys.Complete):
		if err := m.eng.manager.Invoke(m.id); err != nil {
			m.eng.logger.Warn("invoke", zap.Error(err))
		}

	case visible && key.Matches(msg, keys.Accept):
		if err := m.eng.manager.SelectActive(m.id); err != nil {
			m.eng.logger.Warn("select", zap.Error(err))
		}

	case visible && key.Matches(msg, keys.Next):
		m.display.Cycle(1)

	case visible && key.Matches(msg, keys.Prev):
		m.display.Cycle(-1)

	case key.Matches(msg, keys.Dismiss):
		m.display.State().Reset(true)

	case key.Matches(msg, keys.Undo):
		m.buf.Undo()

	case msg.Type == tea.KeyEnter:
		m.buf.Insert("\n")

	case msg.Type == tea.KeyBackspace:
		m.buf.Backspace()

	case msg.Type == tea.KeyLeft:
		m.buf.MoveCursor(-1, 0)

	case msg.Type == tea.KeyRight:
		m.buf.MoveCursor(1, 0)

	case msg.Type == tea.KeyUp:
		m.buf.MoveCursor(0, -1)

	case msg.Type == tea.KeyDown:
		m.buf.MoveCursor(0, 1)

	case msg.Type == tea.KeySpace:
		m.buf.Insert(" ")

	case msg.Type == tea.KeyRunes:
		m.buf.Insert(string(msg.Runes))
	}

	return nil
}

func (m *tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("completer"))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(m.path))
	b.WriteString("\n\n")

	cursor := m.buf.CursorPosition()
	lines := strings.Split(m.buf.Text(), "\n")
	for i, line := range lines {
		if i != cursor.Line {
			b.WriteString(line)
			b.WriteString("\n")
			continue
		}

		b.WriteString(renderCursorLine(line, cursor.Column))
		b.WriteString("\n")

		if popup := m.renderPopup(); popup != "" {
			indent := strings.Repeat(" ", max(cursor.Column-utf8.RuneCountInString(m.display.State().Query()), 0))
			for _, pl := range strings.Split(popup, "\n") {
				b.WriteString(indent)
				b.WriteString(pl)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	return b.String()
}

func renderCursorLine(line string, column int) string {
	at := completer.ByteIndex(line, column)
	if at >= len(line) {
		return line + cursorStyle.Render(" ")
	}

	_, size := utf8.DecodeRuneInString(line[at:])

	return line[:at] + cursorStyle.Render(line[at:at+size]) + line[at+size:]
}

func (m *tuiModel) renderPopup() string {
	items := m.display.Items()
	if len(items) == 0 {
		return ""
	}

	active := m.display.Active()
	first := 0
	if active >= popupHeight {
		first = active - popupHeight + 1
	}
	last := min(first+popupHeight, len(items))

	rows := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		item := items[i]
		label := normalStyle.Render(item.Label)
		if i == active {
			label = selectedStyle.Render("› " + item.Label)
		} else {
			label = "  " + label
		}
		if item.Type != "" {
			label += " " + dimStyle.Render(item.Type)
		}
		rows = append(rows, label)
	}

	if doc := items[active].Documentation; doc != "" {
		rows = append(rows, dimStyle.Render(doc))
	}

	return popupStyle.Render(strings.Join(rows, "\n"))
}

func (m *tuiModel) renderStatus() string {
	var parts []string

	state := m.handler.State()
	if state == handler.Disabled {
		parts = append(parts, dimStyle.Render(state.String()))
	} else {
		parts = append(parts, enabledStyle.Render(state.String()))
	}

	if m.waiting() {
		parts = append(parts, m.spinner.View()+" fetching")
	}

	var help []string
	for _, b := range []key.Binding{keys.Complete, keys.Accept, keys.Dismiss, keys.Undo, keys.Quit} {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	parts = append(parts, dimStyle.Render(strings.Join(help, " • ")))

	return strings.Join(parts, "  ")
}
