// Package ui provides the voice browser for the voices application.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/voices/internal/voices"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
	maxNameWidth         = 32
)

// Subscriber is implemented by loaders that publish state changes.
type Subscriber interface {
	Subscribe(func(voices.State)) (unsubscribe func())
}

// NewProgram returns a new Tea program browsing the loader's voices. If the
// loader publishes state changes, they are forwarded to the program.
func NewProgram(cfg Config, loader VoiceLoader) *tea.Program {
	log.Debug("Starting voice browser", "server", cfg.Server, "watching", cfg.Watching)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(newModel(cfg, loader), opts...)
	if s, ok := loader.(Subscriber); ok {
		s.Subscribe(func(st voices.State) {
			p.Send(voicesStateMsg(st))
		})
	}
	return p
}

type model struct {
	cfg    Config
	loader VoiceLoader
	keys   keyMap

	// Latest loader snapshot
	state   voices.State
	updated time.Time

	width  int
	height int

	spinner   spinner.Model
	filter    textinput.Model
	filtering bool
	cursor    int
	help      help.Model

	statusMessage string
	statusIsError bool
}

func newModel(cfg Config, loader VoiceLoader) model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(spinnerStyle),
	)

	ti := textinput.New()
	ti.Prompt = "Find: "
	ti.Placeholder = "voice name"
	ti.CharLimit = 64

	return model{
		cfg:     cfg,
		loader:  loader,
		keys:    newKeyMap(),
		state:   loader.State(),
		spinner: sp,
		filter:  ti,
		help:    help.New(),
	}
}

func (m model) Init() tea.Cmd {
	log.Debug("Init() called", "server", m.cfg.Server)
	return tea.Batch(activateCmd(m.loader), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Refresh):
			return m, refreshCmd(m.loader)

		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			m.help.ShowAll = false
			cmd := m.filter.Focus()
			return m, cmd

		case key.Matches(msg, m.keys.Clear):
			m.filter.Reset()
			m.clampCursor()

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows())-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.CopyPath):
			if v, ok := m.selected(); ok {
				return m, copyCmd("path", v.Path)
			}

		case key.Matches(msg, m.keys.CopyName):
			if v, ok := m.selected(); ok {
				return m, copyCmd("name", v.Name)
			}

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.filter.Width = max(msg.Width-len(m.filter.Prompt)-4, 10)

	case voicesStateMsg:
		if cmd := m.applyState(voices.State(msg)); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		// stop ticking once nothing is loading
		if m.state.Loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case clipboardMsg:
		if msg.err != nil {
			log.Warn("Unable to copy to clipboard", "what", msg.what, "error", msg.err)
			m.statusMessage = "Could not copy " + msg.what
			m.statusIsError = true
		} else {
			m.statusMessage = "Copied " + msg.what + "!"
			m.statusIsError = false
		}
		cmds = append(cmds, statusMessageTimeoutCmd())

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false
	}

	return m, tea.Batch(cmds...)
}

// updateFilter handles keys while the filter input is focused.
func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Clear):
		m.filtering = false
		m.filter.Blur()
		m.filter.Reset()
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.Accept):
		m.filtering = false
		m.filter.Blur()
		return m, nil

	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	return m, cmd
}

// applyState stores a loader snapshot. Snapshots older than the one held
// are ignored since notifications from overlapping fetches may arrive out
// of order.
func (m *model) applyState(s voices.State) tea.Cmd {
	if s.Version < m.state.Version {
		return nil
	}
	wasLoading := m.state.Loading
	m.state = s

	if !s.Loading && !s.HasError() {
		m.updated = time.Now()
	}
	m.clampCursor()

	log.Debug("Voice state changed",
		"version", s.Version,
		"phase", s.Phase(),
		"voices", len(s.Voices),
		"error", s.Error)

	if s.Loading && !wasLoading {
		return m.spinner.Tick
	}
	return nil
}

// visible returns the voices matching the filter, in server order.
func (m model) visible() []voices.Voice {
	term := strings.TrimSpace(m.filter.Value())
	if term == "" {
		return m.state.Voices
	}

	names := make([]string, len(m.state.Voices))
	for i, v := range m.state.Voices {
		names[i] = v.Name
	}

	matched := make([]bool, len(names))
	for _, match := range fuzzy.Find(term, names) {
		matched[match.Index] = true
	}

	var out []voices.Voice
	for i, v := range m.state.Voices {
		if matched[i] {
			out = append(out, v)
		}
	}
	return out
}

// rows returns the visible voices in display order.
func (m model) rows() []voices.Voice {
	var out []voices.Voice
	for _, g := range voices.GroupByCategory(m.visible()) {
		out = append(out, g.Voices...)
	}
	return out
}

func (m model) selected() (voices.Voice, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return voices.Voice{}, false
	}
	return rows[m.cursor], true
}

func (m *model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString("  " + m.filter.View() + "\n\n")
	}

	if line := m.statusView(); line != "" {
		b.WriteString("  " + line + "\n\n")
	}

	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString("  " + m.footerView())

	if m.cfg.ShowHelp {
		b.WriteString("\n\n  " + m.help.View(m.keys))
	}
	return b.String()
}

func (m model) headerView() string {
	header := "  " + titleStyle(" Voices ")
	if m.cfg.Server != "" {
		header += " " + subtleStyle(m.cfg.Server)
	}
	if len(m.cfg.Watching) > 0 {
		header += " " + subtleStyle("watching "+strings.Join(m.cfg.Watching, ", "))
	}
	return header
}

// statusView renders the loading and error cells.
func (m model) statusView() string {
	var parts []string
	if m.state.Loading {
		parts = append(parts, m.spinner.View()+" "+subtleStyle("Loading voices"+ellipsis))
	}
	if m.state.HasError() {
		msg := m.state.Error
		if m.width > 12 {
			msg = truncate.StringWithTail(msg, uint(m.width-12), ellipsis) //nolint:gosec
		}
		parts = append(parts, errorStyle("Error: "+msg))
	}
	return strings.Join(parts, "  ")
}

func (m model) listView() string {
	groups := voices.GroupByCategory(m.visible())
	if len(groups) == 0 {
		if m.state.Loading {
			return ""
		}
		if m.filter.Value() != "" {
			return "  " + subtleStyle("No voices match.") + "\n"
		}
		return "  " + subtleStyle("No voices.") + "\n"
	}

	nameWidth := 0
	for _, v := range m.state.Voices {
		nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
	}
	nameWidth = min(nameWidth, maxNameWidth)

	var b strings.Builder
	row := 0
	for _, g := range groups {
		b.WriteString("  " + categoryStyle(g.Category.Label()) + "\n")
		for _, v := range g.Voices {
			b.WriteString(m.voiceView(v, nameWidth, row == m.cursor))
			b.WriteString("\n")
			row++
		}
	}
	return b.String()
}

func (m model) voiceView(v voices.Voice, nameWidth int, selected bool) string {
	name := runewidth.FillRight(runewidth.Truncate(v.Name, nameWidth, ellipsis), nameWidth)
	kind := runewidth.FillRight(string(v.Type), len(voices.TypeEmbeddings))

	line := name + "  " + subtleStyle(kind)
	if m.cfg.ShowPaths && v.Path != "" {
		path := v.Path
		if avail := m.width - nameWidth - len(voices.TypeEmbeddings) - 10; m.width > 0 && avail > 0 {
			path = truncate.StringWithTail(path, uint(avail), ellipsis) //nolint:gosec
		}
		line += "  " + pathStyle(path)
	}

	if selected {
		return "  " + selectedStyle("│ ") + line
	}
	return "    " + line
}

func (m model) footerView() string {
	if m.statusMessage != "" {
		if m.statusIsError {
			return errorStyle(m.statusMessage)
		}
		return statusMessageStyle(m.statusMessage)
	}

	total := len(m.state.Voices)
	note := fmt.Sprintf("%d %s", total, plural(total, "voice", "voices"))
	if shown := len(m.visible()); shown != total {
		note = fmt.Sprintf("%d of %s", shown, note)
	}
	if !m.updated.IsZero() {
		note += " • updated " + humanize.Time(m.updated)
	}
	return subtleStyle(note)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
