package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sindng-ui/tailpane/internal/config"
	"github.com/sindng-ui/tailpane/internal/engine"
	"github.com/sindng-ui/tailpane/internal/filter"
	"github.com/sindng-ui/tailpane/pkg/logformat"
)

// Mode represents the current UI input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeFilter
	ModeGoto
)

// Model is the dual-pane application model. It consumes the engine purely
// through broker requests and status events; all pane state it holds is a
// display copy.
type Model struct {
	cfg    *config.Config
	panes  []*PaneView
	active int
	events <-chan engine.Event

	input     textinput.Model
	mode      Mode
	width     int
	height    int
	statusMsg string

	keymap map[string]action

	gotoTime      *time.Time
	followOnStart bool
}

// action is a normal-mode command resolved from the keybinding config
type action int

const (
	actNone action = iota
	actQuit
	actScrollUp
	actScrollDown
	actPageUp
	actPageDown
	actTop
	actBottom
	actSearch
	actNextMatch
	actPrevMatch
	actFilter
	actBookmark
	actNextBookmark
	actPrevBookmark
	actSwitchPane
	actFollow
)

func buildKeymap(kb config.KeybindingConfig) map[string]action {
	km := make(map[string]action)
	bind := func(keys []string, a action) {
		for _, k := range keys {
			km[k] = a
		}
	}
	bind(kb.Quit, actQuit)
	bind(kb.ScrollUp, actScrollUp)
	bind(kb.ScrollDown, actScrollDown)
	bind(kb.PageUp, actPageUp)
	bind(kb.PageDown, actPageDown)
	bind(kb.Top, actTop)
	bind(kb.Bottom, actBottom)
	bind(kb.Search, actSearch)
	bind(kb.NextMatch, actNextMatch)
	bind(kb.PrevMatch, actPrevMatch)
	bind(kb.Filter, actFilter)
	bind(kb.Bookmark, actBookmark)
	bind(kb.NextBookmark, actNextBookmark)
	bind(kb.PrevBookmark, actPrevBookmark)
	bind(kb.SwitchPane, actSwitchPane)
	bind(kb.Follow, actFollow)
	return km
}

// ModelOptions carries startup behavior from the command line
type ModelOptions struct {
	// GotoTime scrolls each pane to the first line at or after this time
	// once its index is ready
	GotoTime *time.Time
	// FollowOnStart enables follow mode on file panes as they become ready
	FollowOnStart bool
}

type eventMsg struct{ ev engine.Event }

type findMsg struct {
	title string
	res   engine.FindResult
	ok    bool
	err   error
}

type statusMsg struct{ text string }

type gotoPosMsg struct {
	title string
	pos   engine.Position
	note  string
}

type followMsg struct {
	title string
	on    bool
	stop  func()
	err   error
}

// NewModel creates the application model over already-attached panes
func NewModel(cfg *config.Config, panes []*PaneView, events <-chan engine.Event, opts ModelOptions) *Model {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.CharLimit = 256

	return &Model{
		cfg:           cfg,
		panes:         panes,
		events:        events,
		input:         ti,
		mode:          ModeNormal,
		keymap:        buildKeymap(cfg.Keybindings),
		gotoTime:      opts.GotoTime,
		followOnStart: opts.FollowOnStart,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitEvent()}
	for _, pv := range m.panes {
		cmds = append(cmds, pv.refreshCmd())
	}
	return tea.Batch(cmds...)
}

func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return eventMsg{ev}
	}
}

func (m *Model) paneByID(id string) *PaneView {
	for _, pv := range m.panes {
		if pv.title == id {
			return pv
		}
	}
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, m.refreshAll()

	case eventMsg:
		return m.handleEvent(msg.ev)

	case paneLinesMsg:
		if pv := m.paneByID(msg.title); pv != nil {
			pv.apply(msg)
		}
		return m, nil

	case findMsg:
		return m.handleFind(msg)

	case statusMsg:
		m.statusMsg = msg.text
		return m, nil

	case gotoPosMsg:
		if pv := m.paneByID(msg.title); pv != nil {
			pv.GotoGlobal(msg.pos.GlobalIdx)
			m.statusMsg = msg.note
			return m, pv.refreshCmd()
		}
		return m, nil

	case followMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
			return m, nil
		}
		if pv := m.paneByID(msg.title); pv != nil {
			pv.following = msg.on
			pv.stopFollow = msg.stop
			if msg.on {
				m.statusMsg = "follow on"
				pv.GotoBottom()
			} else {
				m.statusMsg = "follow off"
			}
			return m, pv.refreshCmd()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) layout() {
	paneWidth := m.width
	if len(m.panes) > 1 {
		paneWidth = (m.width - 1) / len(m.panes)
	}
	// Two lines reserved: status bar and prompt/help
	paneHeight := m.height - 2
	if paneHeight < 1 {
		paneHeight = 1
	}
	for _, pv := range m.panes {
		pv.SetSize(paneWidth, paneHeight)
	}
}

func (m *Model) refreshAll() tea.Cmd {
	var cmds []tea.Cmd
	for _, pv := range m.panes {
		cmds = append(cmds, pv.refreshCmd())
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleEvent(ev engine.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitEvent()}
	pv := m.paneByID(ev.Pane())

	switch ev := ev.(type) {
	case engine.ProgressEvent:
		m.statusMsg = fmt.Sprintf("[%s] indexing %d%%", ev.Pane(), ev.Percent)
	case engine.ReadyEvent:
		m.statusMsg = fmt.Sprintf("[%s] ready, %d lines", ev.Pane(), ev.LineCount)
		if pv != nil {
			if m.gotoTime != nil && ev.LineCount > 0 {
				cmds = append(cmds, m.gotoTimeCmd(pv, *m.gotoTime))
			}
			if m.followOnStart && !pv.following {
				cmds = append(cmds, m.toggleFollowCmd(pv))
			}
		}
	case engine.FilterDoneEvent:
		m.statusMsg = fmt.Sprintf("[%s] filter matched %d lines", ev.Pane(), ev.Matches)
	case engine.AppendedEvent:
		if pv != nil && pv.following {
			pv.GotoBottom()
		}
	case engine.DecodeWarningsEvent:
		m.statusMsg = fmt.Sprintf("[%s] %d decode warnings", ev.Pane(), ev.Count)
	case engine.SourceErrorEvent:
		// Fatal to that pane only; the other pane keeps working
		m.statusMsg = fmt.Sprintf("[%s] source error: %v", ev.Pane(), ev.Err)
	}

	if pv != nil {
		cmds = append(cmds, pv.refreshCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleFind(msg findMsg) (tea.Model, tea.Cmd) {
	pv := m.paneByID(msg.title)
	if pv == nil {
		return m, nil
	}
	if msg.err != nil {
		m.statusMsg = msg.err.Error()
		return m, nil
	}
	if !msg.ok {
		m.statusMsg = fmt.Sprintf("pattern not found: %s", pv.searchTerm)
		return m, nil
	}
	pv.lastHit = msg.res
	pv.GotoGlobal(msg.res.GlobalIdx)
	if msg.res.Wrapped {
		m.statusMsg = "search wrapped"
	} else {
		m.statusMsg = ""
	}
	return m, pv.refreshCmd()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != ModeNormal {
		return m.handlePromptKey(msg)
	}

	pv := m.panes[m.active]

	switch m.keymap[msg.String()] {
	case actQuit:
		for _, pv := range m.panes {
			pv.Close()
		}
		return m, tea.Quit

	case actSwitchPane:
		m.active = (m.active + 1) % len(m.panes)
		return m, nil

	case actScrollDown:
		pv.ScrollBy(1)
	case actScrollUp:
		pv.ScrollBy(-1)
	case actPageDown:
		pv.ScrollBy(int64(pv.height - 1))
	case actPageUp:
		pv.ScrollBy(int64(-(pv.height - 1)))
	case actTop:
		pv.GotoTop()
	case actBottom:
		pv.GotoBottom()

	case actSearch:
		return m, m.enterPrompt(ModeSearch, "Search...")
	case actFilter:
		return m, m.enterPrompt(ModeFilter, "Filter: terms AND, comma OR, !exclude")

	case actNextMatch:
		return m, m.findCmd(pv, false)
	case actPrevMatch:
		return m, m.findCmd(pv, true)

	case actBookmark:
		return m, m.toggleBookmarkCmd(pv)
	case actNextBookmark:
		return m, m.bookmarkNavCmd(pv, true)
	case actPrevBookmark:
		return m, m.bookmarkNavCmd(pv, false)

	case actFollow:
		return m, m.toggleFollowCmd(pv)

	default:
		// Fixed keys outside the configurable set
		switch msg.String() {
		case ":":
			return m, m.enterPrompt(ModeGoto, "Line number...")
		case "x":
			return m, m.applyRuleCmd(pv, filter.Rule{})
		case "c":
			return m, m.copyLineCmd(pv)
		case "e":
			return m, m.toggleQuickCmd(pv, filter.QuickError)
		case "E":
			return m, m.toggleQuickCmd(pv, filter.QuickException)
		}
		return m, nil
	}

	return m, pv.refreshCmd()
}

func (m *Model) enterPrompt(mode Mode, placeholder string) tea.Cmd {
	m.mode = mode
	m.input.SetValue("")
	m.input.Placeholder = placeholder
	m.input.Focus()
	return textinput.Blink
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := m.input.Value()
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		pv := m.panes[m.active]

		switch mode {
		case ModeSearch:
			pv.searchTerm = value
			return m, m.findCmd(pv, false)
		case ModeFilter:
			return m, m.applyRuleCmd(pv, parseRuleInput(value))
		case ModeGoto:
			return m, m.gotoCmd(pv, value)
		}
		return m, nil

	case "esc":
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// parseRuleInput turns prompt text into a rule: comma-separated groups,
// whitespace-separated AND terms, '!' prefix for excludes.
func parseRuleInput(s string) filter.Rule {
	var rule filter.Rule
	for _, groupStr := range strings.Split(s, ",") {
		var group []string
		for _, term := range strings.Fields(groupStr) {
			if strings.HasPrefix(term, "!") {
				if t := strings.TrimPrefix(term, "!"); t != "" {
					rule.Excludes = append(rule.Excludes, t)
				}
				continue
			}
			group = append(group, term)
		}
		if len(group) > 0 {
			rule.IncludeGroups = append(rule.IncludeGroups, group)
		}
	}
	return rule
}

func (m *Model) findCmd(pv *PaneView, backward bool) tea.Cmd {
	term := pv.searchTerm
	if term == "" {
		return nil
	}
	from := pv.lastHit.GlobalIdx
	if pv.lastHit.LineNum == 0 {
		from = pv.CursorIdx()
	}
	return func() tea.Msg {
		value, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			res, ok, err := pv.pane.Find(term, from, backward)
			if err != nil {
				return nil, err
			}
			return findMsg{title: pv.title, res: res, ok: ok}, nil
		})
		if err != nil {
			return findMsg{title: pv.title, err: err}
		}
		return value.(findMsg)
	}
}

func (m *Model) applyRuleCmd(pv *PaneView, rule filter.Rule) tea.Cmd {
	return func() tea.Msg {
		_, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			return nil, pv.pane.ApplyRule(rule)
		})
		if err != nil {
			return statusMsg{err.Error()}
		}
		return statusMsg{"filtering..."}
	}
}

// toggleQuickCmd flips a quick filter on the pane's current rule
func (m *Model) toggleQuickCmd(pv *PaneView, q filter.QuickFilter) tea.Cmd {
	return func() tea.Msg {
		_, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			rule := pv.pane.Rule()
			if rule.Quick == q {
				rule.Quick = filter.QuickNone
			} else {
				rule.Quick = q
			}
			return nil, pv.pane.ApplyRule(rule)
		})
		if err != nil {
			return statusMsg{err.Error()}
		}
		return statusMsg{"filtering..."}
	}
}

func (m *Model) gotoCmd(pv *PaneView, value string) tea.Cmd {
	lineNum, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || lineNum < 1 {
		return func() tea.Msg { return statusMsg{"invalid line number"} }
	}
	return func() tea.Msg {
		value, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			pos, _ := pv.pane.RestoreToLine(lineNum)
			return pos, nil
		})
		if err != nil {
			return statusMsg{err.Error()}
		}
		pos := value.(engine.Position)
		return gotoPosMsg{
			title: pv.title,
			pos:   pos,
			note:  fmt.Sprintf("line %d (segment %d)", lineNum, pos.Segment+1),
		}
	}
}

func (m *Model) gotoTimeCmd(pv *PaneView, target time.Time) tea.Cmd {
	return func() tea.Msg {
		value, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			lineNum, ok := pv.pane.LineAtTime(target)
			if !ok {
				return nil, nil
			}
			pos, _ := pv.pane.RestoreToLine(lineNum)
			return pos, nil
		})
		if err != nil {
			return statusMsg{err.Error()}
		}
		if value == nil {
			return statusMsg{fmt.Sprintf("no line at or after %s", logformat.FormatTime(&target))}
		}
		return gotoPosMsg{
			title: pv.title,
			pos:   value.(engine.Position),
			note:  fmt.Sprintf("jumped to %s", logformat.FormatTime(&target)),
		}
	}
}

func (m *Model) toggleBookmarkCmd(pv *PaneView) tea.Cmd {
	if len(pv.lines) == 0 {
		return nil
	}
	lineNum := pv.lines[0].LineNum
	return func() tea.Msg {
		_, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			pv.pane.ToggleBookmark(lineNum)
			return nil, nil
		})
		if err != nil {
			return statusMsg{err.Error()}
		}
		return statusMsg{fmt.Sprintf("bookmark toggled at line %d", lineNum)}
	}
}

func (m *Model) bookmarkNavCmd(pv *PaneView, forward bool) tea.Cmd {
	from := pv.CursorIdx()
	return func() tea.Msg {
		value, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			if forward {
				hit, ok := pv.pane.NextBookmark(from)
				return findMsg{title: pv.title, ok: ok, res: engine.FindResult{
					LineNum: hit.LineNum, GlobalIdx: hit.GlobalIdx, Wrapped: hit.Wrapped,
				}}, nil
			}
			hit, ok := pv.pane.PrevBookmark(from)
			return findMsg{title: pv.title, ok: ok, res: engine.FindResult{
				LineNum: hit.LineNum, GlobalIdx: hit.GlobalIdx, Wrapped: hit.Wrapped,
			}}, nil
		})
		if err != nil {
			return findMsg{title: pv.title, err: err}
		}
		return value.(findMsg)
	}
}

func (m *Model) toggleFollowCmd(pv *PaneView) tea.Cmd {
	turnOff := pv.following
	stopPrev := pv.stopFollow
	return func() tea.Msg {
		if turnOff {
			if stopPrev != nil {
				stopPrev()
			}
			return followMsg{title: pv.title, on: false}
		}
		stop, err := pv.pane.Follow()
		if err != nil {
			return followMsg{title: pv.title, err: err}
		}
		return followMsg{title: pv.title, on: true, stop: stop}
	}
}

func (m *Model) copyLineCmd(pv *PaneView) tea.Cmd {
	idx := pv.CursorIdx()
	return func() tea.Msg {
		value, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			return pv.pane.LinesByIndices([]int64{idx})
		})
		if err != nil {
			return statusMsg{err.Error()}
		}
		lines := value.([]engine.LineOut)
		if len(lines) == 0 {
			return statusMsg{"nothing to copy"}
		}
		if err := clipboard.WriteAll(lines[0].Content); err != nil {
			return statusMsg{fmt.Sprintf("clipboard: %v", err)}
		}
		return statusMsg{fmt.Sprintf("copied line %d", lines[0].LineNum)}
	}
}

// View implements tea.Model
func (m *Model) View() string {
	paneHeight := m.height - 2
	if paneHeight < 1 {
		paneHeight = 1
	}
	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.cfg.Theme.ActiveBorder)).
		Render(strings.TrimSuffix(strings.Repeat("│\n", paneHeight), "\n"))

	var rendered []string
	for _, pv := range m.panes {
		rendered = append(rendered, pv.Render())
	}

	var b strings.Builder
	if len(rendered) > 1 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered[0], divider, rendered[1]))
	} else if len(rendered) == 1 {
		b.WriteString(rendered[0])
	}
	b.WriteString("\n")

	statusStyle := lipgloss.NewStyle().
		Background(lipgloss.Color(m.cfg.Theme.StatusBar)).
		Foreground(lipgloss.Color(m.cfg.Theme.StatusBarText)).
		Width(m.width)

	var status string
	if m.mode != ModeNormal {
		status = m.promptPrefix() + m.input.View()
	} else {
		var parts []string
		for i, pv := range m.panes {
			marker := " "
			if i == m.active {
				marker = "*"
			}
			parts = append(parts, marker+pv.StatusLine())
		}
		if m.statusMsg != "" {
			parts = append(parts, m.statusMsg)
		}
		status = strings.Join(parts, " | ")
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.cfg.Theme.LineNumbers))
	help := "j/k:scroll  /:search  &:filter  e/E:quick  x:clear  m:mark  [/]:marks  F:follow  tab:pane  q:quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) promptPrefix() string {
	switch m.mode {
	case ModeSearch:
		return "/"
	case ModeFilter:
		return "&"
	case ModeGoto:
		return ":"
	}
	return ""
}
