package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sindng-ui/tailpane/internal/config"
	"github.com/sindng-ui/tailpane/internal/engine"
	"github.com/sindng-ui/tailpane/internal/render"
	"github.com/sindng-ui/tailpane/internal/view"
)

// PaneView is the UI-side state for one engine pane: a scroll window over
// the filtered view plus the cached lines currently on screen. All engine
// access goes through the broker; the view only ever holds copies.
type PaneView struct {
	pane   *engine.Pane
	broker *engine.Broker
	inbox  chan engine.Request
	cancel context.CancelFunc

	title    string
	width    int
	height   int
	scroll   int64 // global filtered index of the top visible line
	segment  int   // active segment, derived from scroll
	stats    engine.Stats
	lines    []engine.LineOut
	marks    []int64
	renderer render.Renderer
	showNums bool
	tabWidth int

	following  bool
	stopFollow func()
	searchTerm string
	lastHit    engine.FindResult
	status     string

	lineNumberStyle lipgloss.Style
	bookmarkStyle   lipgloss.Style
	highlightStyle  lipgloss.Style
}

// NewPaneView creates the view for one pane
func NewPaneView(pane *engine.Pane, broker *engine.Broker, title string, cfg *config.Config) *PaneView {
	var renderer render.Renderer = render.NewLogLevelRenderer(cfg)
	if render.IsSyntaxHighlightable(title) {
		renderer = render.NewSyntaxRenderer(title)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pv := &PaneView{
		pane:            pane,
		broker:          broker,
		inbox:           make(chan engine.Request, 16),
		cancel:          cancel,
		title:           title,
		width:           80,
		height:          24,
		renderer:        renderer,
		showNums:        cfg.Display.ShowLineNumbers,
		tabWidth:        cfg.Display.TabWidth,
		lineNumberStyle: lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.LineNumbers)),
		bookmarkStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Bookmark)).Bold(true),
		highlightStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.SearchMatch)).Bold(true),
	}
	go broker.Serve(ctx, pv.inbox)
	return pv
}

// Close stops the serve loop and the underlying pane
func (pv *PaneView) Close() {
	if pv.stopFollow != nil {
		pv.stopFollow()
	}
	pv.cancel()
	pv.pane.Close()
}

// SetSize updates the viewport dimensions
func (pv *PaneView) SetSize(width, height int) {
	pv.width = width
	pv.height = height
}

// paneLinesMsg carries a refreshed window of lines back to Update
type paneLinesMsg struct {
	title string
	start int64
	lines []engine.LineOut
	stats engine.Stats
	marks []int64
	err   error
}

// refreshCmd fetches the visible window through the broker
func (pv *PaneView) refreshCmd() tea.Cmd {
	start := pv.scroll
	count := int64(pv.height)
	return func() tea.Msg {
		value, err := pv.broker.Call(context.Background(), pv.inbox, func() (any, error) {
			lines, err := pv.pane.Lines(start, count)
			if err != nil {
				return nil, err
			}
			return paneLinesMsg{
				title: pv.title,
				start: start,
				lines: lines,
				stats: pv.pane.Stats(),
				marks: pv.pane.Bookmarks(),
			}, nil
		})
		if err != nil {
			return paneLinesMsg{title: pv.title, err: err}
		}
		return value.(paneLinesMsg)
	}
}

// apply installs a refreshed window
func (pv *PaneView) apply(msg paneLinesMsg) {
	if msg.err != nil {
		pv.status = msg.err.Error()
		return
	}
	pv.stats = msg.stats
	pv.lines = msg.lines
	pv.marks = msg.marks
	pv.segment, _ = locateSegment(msg.start)
}

func locateSegment(globalIdx int64) (int, int64) {
	seg := int(globalIdx / view.MaxSegmentSize)
	return seg, globalIdx - int64(seg)*view.MaxSegmentSize
}

// clampScroll keeps the window inside the filtered view
func (pv *PaneView) clampScroll() {
	max := pv.stats.MatchCount - int64(pv.height)
	if max < 0 {
		max = 0
	}
	if pv.scroll > max {
		pv.scroll = max
	}
	if pv.scroll < 0 {
		pv.scroll = 0
	}
}

// ScrollBy moves the window and re-clamps
func (pv *PaneView) ScrollBy(n int64) {
	pv.scroll += n
	pv.clampScroll()
}

// GotoTop jumps to the first filtered line
func (pv *PaneView) GotoTop() {
	pv.scroll = 0
}

// GotoBottom jumps so the last filtered line is visible
func (pv *PaneView) GotoBottom() {
	pv.scroll = pv.stats.MatchCount - int64(pv.height)
	pv.clampScroll()
}

// GotoGlobal centers the window on a global filtered index
func (pv *PaneView) GotoGlobal(idx int64) {
	pv.scroll = idx - int64(pv.height)/2
	pv.clampScroll()
}

// CursorIdx is the global filtered index used as navigation cursor
func (pv *PaneView) CursorIdx() int64 {
	return pv.scroll
}

// marksSet builds a lookup for render
func marksSet(marks []int64) map[int64]bool {
	if len(marks) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(marks))
	for _, m := range marks {
		set[m] = true
	}
	return set
}

// Render draws the pane content from the cached window
func (pv *PaneView) Render() string {
	var b strings.Builder
	markSet := marksSet(pv.marks)

	total := pv.stats.LineCount
	numWidth := 0
	if pv.showNums {
		numWidth = len(fmt.Sprintf("%d", max64(total, 1)))
	}

	rows := 0
	for _, line := range pv.lines {
		if rows > 0 {
			b.WriteString("\n")
		}
		if pv.showNums {
			numStr := fmt.Sprintf("%*d ", numWidth, line.LineNum)
			switch {
			case markSet[line.LineNum]:
				b.WriteString(pv.bookmarkStyle.Render(numStr))
			case pv.lastHit.LineNum == line.LineNum && pv.searchTerm != "":
				b.WriteString(pv.highlightStyle.Render(numStr))
			default:
				b.WriteString(pv.lineNumberStyle.Render(numStr))
			}
		}
		content := pv.expandTabs(line.Content)
		b.WriteString(truncate(pv.renderer.Render(content), pv.width-numWidth-1))
		rows++
	}
	for ; rows < pv.height; rows++ {
		if rows > 0 {
			b.WriteString("\n")
		}
		b.WriteString("~")
	}
	return b.String()
}

// StatusLine summarizes pane state for the status bar
func (pv *PaneView) StatusLine() string {
	s := pv.stats
	parts := []string{pv.title}
	if !s.Ready {
		parts = append(parts, "indexing...")
	} else {
		parts = append(parts, fmt.Sprintf("%d/%d lines", s.MatchCount, s.LineCount))
		if s.SegmentCount > 1 {
			parts = append(parts, fmt.Sprintf("seg %d/%d", pv.segment+1, s.SegmentCount))
		}
	}
	if s.Accelerated {
		parts = append(parts, "fast")
	}
	if pv.following {
		parts = append(parts, "follow")
	}
	if s.DecodeWarnings > 0 {
		parts = append(parts, fmt.Sprintf("%d decode warnings", s.DecodeWarnings))
	}
	if pv.status != "" {
		parts = append(parts, pv.status)
	}
	return strings.Join(parts, "  ")
}

// expandTabs replaces tabs so column math stays simple downstream
func (pv *PaneView) expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	width := pv.tabWidth
	if width <= 0 {
		width = 4
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", width))
}

// truncate cuts a rendered line to the pane width, counting display cells
// rather than bytes so styled and wide-rune lines never wrap.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "")
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
