package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/J-Broadway/TrapCode/pattern"
	"github.com/J-Broadway/TrapCode/sequencer"
	"github.com/J-Broadway/TrapCode/theme"
	"github.com/J-Broadway/TrapCode/widgets"
)

// stripWidth is the resolution of the one-cycle event strip.
const stripWidth = 32

// Entry is one editable pattern row: the live text plus the bind options
// to reuse when the text is re-applied.
type Entry struct {
	Name string
	Text string
	Opts sequencer.PatternOpts
}

type Model struct {
	Session   *sequencer.Session
	Transport *sequencer.Transport
	Theme     *theme.Theme

	entries []Entry
	cursor  int

	editing bool
	input   string
	errMsg  string

	showHelp bool
	quitting bool
}

type tickMsg time.Time

func NewModel(session *sequencer.Session, transport *sequencer.Transport, th *theme.Theme, entries []Entry) Model {
	return Model{
		Session:   session,
		Transport: transport,
		Theme:     th,
		entries:   entries,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateNormal(msg)

	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Transport.Pause()
		m.Session.ReleaseAll()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case "enter":
		if len(m.entries) > 0 {
			m.editing = true
			m.input = m.entries[m.cursor].Text
			m.errMsg = ""
		}

	case " ":
		if m.Transport.Playing() {
			m.Transport.Pause()
		} else {
			m.Transport.Play()
		}

	case "p":
		if len(m.entries) > 0 {
			name := m.entries[m.cursor].Name
			if st, ok := m.Session.Status(name); ok && st.Running {
				m.Session.Stop(name)
			} else {
				m.Session.Start(name)
			}
		}

	case "r":
		if len(m.entries) > 0 {
			m.Session.Reset(m.entries[m.cursor].Name)
		}

	case "x":
		m.Session.ReleaseAll()

	case "+", "=":
		m.Transport.SetBPM(m.Transport.BPM() + 5)

	case "-", "_":
		m.Transport.SetBPM(m.Transport.BPM() - 5)

	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.errMsg = ""

	case "enter":
		e := &m.entries[m.cursor]
		wasRunning := false
		if st, ok := m.Session.Status(e.Name); ok {
			wasRunning = st.Running
		}
		if _, err := m.Session.Bind(e.Name, m.input, e.Opts); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		e.Text = m.input
		m.editing = false
		m.errMsg = ""
		if wasRunning {
			m.Session.Start(e.Name)
		}

	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}

	default:
		if len(msg.String()) == 1 {
			m.input += msg.String()
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if m.Transport.Playing() {
		playState = "PLAY"
	}
	header := headerStyle.Render(fmt.Sprintf("trapcode  %s  %3.0fbpm  voices:%d",
		playState, m.Transport.BPM(), m.Session.ActiveVoices()))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	for i, e := range m.entries {
		marker := " "
		style := dimStyle
		if st, ok := m.Session.Status(e.Name); ok && st.Running {
			marker = string(m.Theme.Symbols.Running)
			style = activeStyle
		}
		line := fmt.Sprintf("%s %-8s %s", marker, e.Name, e.Text)
		if i == m.cursor {
			if m.editing {
				line = fmt.Sprintf("%s %-8s %s_", marker, e.Name, m.input)
			}
			line = cursorStyle.Render("> " + line)
		} else {
			line = style.Render("  " + line)
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	if len(m.entries) > 0 {
		e := m.entries[m.cursor]
		if st, ok := m.Session.Status(e.Name); ok {
			out.WriteString("\n")
			out.WriteString(dimStyle.Render("  " + m.renderStrip(st)))
			out.WriteString("\n")
		}
	}

	if m.errMsg != "" {
		out.WriteString("\n")
		out.WriteString(errStyle.Render("  " + m.errMsg))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	switch {
	case m.editing:
		out.WriteString(dimStyle.Render("enter:apply  esc:cancel"))
	case m.showHelp:
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(helpSections)))
	default:
		out.WriteString(dimStyle.Render("j/k:select  enter:edit  p:start/stop  ?:help  q:quit"))
	}
	return out.String()
}

var helpSections = []widgets.KeySection{
	{
		Title: "Patterns",
		Keys: []widgets.KeyBinding{
			{Key: "j/k, up/down", Desc: "select pattern"},
			{Key: "enter", Desc: "edit pattern text"},
			{Key: "p", Desc: "start/stop selected pattern"},
			{Key: "r", Desc: "rewind selected pattern to cycle 0"},
		},
	},
	{
		Title: "Transport",
		Keys: []widgets.KeyBinding{
			{Key: "space", Desc: "play/pause the clock"},
			{Key: "+/-", Desc: "tempo up/down 5 bpm"},
			{Key: "x", Desc: "release all sounding notes"},
			{Key: "q", Desc: "quit"},
		},
	},
}

// renderStrip draws one cycle of the pattern with a marker on each onset
// and a playhead at the pattern's cursor position.
func (m Model) renderStrip(st sequencer.PatternStatus) string {
	span := pattern.Span{Begin: pattern.NewRat(0, 1), End: pattern.NewRat(1, 1)}
	var onsets []float64
	for _, h := range st.Source.Query(span, st.Root, st.Seed) {
		if h.HasOnset() {
			onsets = append(onsets, h.Whole.Begin.Float())
		}
	}

	// Playhead at the fractional part of the cursor.
	pos := st.Cursor
	frac := pos.Sub(pattern.NewRat(pos.Floor(), 1))

	return widgets.RenderStrip(onsets, frac.Float(), stripWidth, widgets.StripSymbols{
		Empty:    m.Theme.Symbols.StepEmpty,
		Onset:    m.Theme.Symbols.StepActive,
		Playhead: m.Theme.Symbols.StepPlayhead,
	})
}
