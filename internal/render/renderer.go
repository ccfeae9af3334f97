package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sindng-ui/tailpane/internal/config"
	"github.com/sindng-ui/tailpane/pkg/logformat"
)

// Renderer applies styling to line content
type Renderer interface {
	Render(line string) string
}

// LogLevelRenderer colors lines based on detected log level
type LogLevelRenderer struct {
	detector *logformat.LevelDetector
	styles   map[logformat.LogLevel]lipgloss.Style
}

// NewLogLevelRenderer creates a renderer from config
func NewLogLevelRenderer(cfg *config.Config) *LogLevelRenderer {
	detector := logformat.NewLevelDetector(logformat.LevelPatterns{
		Trace: cfg.LogLevels.TracePatterns,
		Debug: cfg.LogLevels.DebugPatterns,
		Info:  cfg.LogLevels.InfoPatterns,
		Warn:  cfg.LogLevels.WarnPatterns,
		Error: cfg.LogLevels.ErrorPatterns,
		Fatal: cfg.LogLevels.FatalPatterns,
	})

	styles := map[logformat.LogLevel]lipgloss.Style{
		logformat.LevelUnknown: lipgloss.NewStyle(),
		logformat.LevelTrace:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Trace)),
		logformat.LevelDebug:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Debug)),
		logformat.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Info)),
		logformat.LevelWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Warn)),
		logformat.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Error)),
		logformat.LevelFatal:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Fatal)),
	}

	return &LogLevelRenderer{
		detector: detector,
		styles:   styles,
	}
}

// Render applies log level styling to a line
func (r *LogLevelRenderer) Render(line string) string {
	return r.styles[r.detector.Detect(line)].Render(line)
}

// PlainRenderer renders without styling
type PlainRenderer struct{}

// NewPlainRenderer creates a plain renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// Render returns the line content as-is
func (r *PlainRenderer) Render(line string) string {
	return line
}
