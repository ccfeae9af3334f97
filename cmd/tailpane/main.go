package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sindng-ui/tailpane/internal/config"
	"github.com/sindng-ui/tailpane/internal/engine"
	"github.com/sindng-ui/tailpane/internal/filter"
	"github.com/sindng-ui/tailpane/internal/stream"
	"github.com/sindng-ui/tailpane/internal/ui"
)

func main() {
	followFlag := flag.Bool("f", false, "Follow file growth (like tail -f)")
	timeFlag := flag.String("t", "", "Go to time (e.g., 14:00, 14:30:00)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tailpane [-f] [-t time] <file> [file2]\n")
		fmt.Fprintf(os.Stderr, "  -f\tFollow file growth (like tail -f)\n")
		fmt.Fprintf(os.Stderr, "  -t\tGo to time (e.g., 14:00, 14:30:00)\n")
		fmt.Fprintf(os.Stderr, "Use \"-\" as a file argument to read from stdin\n")
		fmt.Fprintf(os.Stderr, "Config file: %s\n", config.GetConfigPath())
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	opts := ui.ModelOptions{FollowOnStart: *followFlag}
	if *timeFlag != "" {
		target, err := parseClock(*timeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.GotoTime = &target
	}

	// Progress ticks may be dropped if the UI falls behind; pane state never
	// depends on event delivery.
	events := make(chan engine.Event, 256)
	emit := func(ev engine.Event) {
		select {
		case events <- ev:
		default:
		}
	}

	paneOpts := engine.Options{
		ChunkThreshold: cfg.Engine.ChunkThresholdBytes,
		MaxWorkers:     cfg.Engine.MaxWorkers,
		Stream: stream.Config{
			MaxFragments: cfg.Stream.FlushMaxFragments,
			IdleFlush:    time.Duration(cfg.Stream.FlushIdleMs) * time.Millisecond,
			MaxBytes:     cfg.Stream.FlushMaxBytes,
		},
		TailPoll:       time.Duration(cfg.Stream.TailPollMs) * time.Millisecond,
	}
	broker := engine.NewBroker(time.Duration(cfg.Engine.RequestTimeoutMs) * time.Millisecond)
	startRule := filter.FromLegacy(cfg.Filter.Includes, cfg.Filter.Excludes, cfg.Filter.CaseSensitive)

	var panes []*ui.PaneView
	for i := 0; i < flag.NArg(); i++ {
		arg := flag.Arg(i)
		title := arg
		if arg == "-" {
			title = "stdin"
		}
		pane := engine.NewPane(title, paneOpts, emit)

		if arg == "-" {
			if err := pane.AttachStream(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			go pumpStdin(pane)
		} else {
			if err := pane.AttachFile(arg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if !startRule.IsEmpty() {
			if err := pane.ApplyRule(startRule); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		panes = append(panes, ui.NewPaneView(pane, broker, title, cfg))
	}

	model := ui.NewModel(cfg, panes, events, opts)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// pumpStdin forwards stdin into the pane's stream buffer until EOF
func pumpStdin(pane *engine.Pane) {
	reader := bufio.NewReaderSize(os.Stdin, 64*1024)
	buf := make([]byte, 64*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			pane.PushFragment(string(buf[:n]))
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "stdin: %v\n", err)
			}
			return
		}
	}
}

// parseClock interprets HH:MM or HH:MM:SS as a time today
func parseClock(s string) (time.Time, error) {
	var t time.Time
	var err error
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err = time.Parse(layout, s); err == nil {
			now := time.Now()
			return time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, now.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (expected HH:MM or HH:MM:SS)", s)
}
