package logformat

import "strings"

// LogLevel represents a log severity level
type LogLevel int

const (
	LevelUnknown LogLevel = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// LevelPatterns holds the substring patterns used to detect each level
type LevelPatterns struct {
	Trace []string
	Debug []string
	Info  []string
	Warn  []string
	Error []string
	Fatal []string
}

// DefaultLevelPatterns returns patterns matching common logger conventions
func DefaultLevelPatterns() LevelPatterns {
	return LevelPatterns{
		Trace: []string{"[TRC]", "[TRACE]", "TRACE", "TRC"},
		Debug: []string{"[DBG]", "[DEBUG]", "DEBUG", "DBG"},
		Info:  []string{"[INF]", "[INFO]", "INFO", "INF"},
		Warn:  []string{"[WRN]", "[WARN]", "[WARNING]", "WARN", "WRN", "WARNING"},
		Error: []string{"[ERR]", "[ERROR]", "ERROR", "ERR"},
		Fatal: []string{"[FTL]", "[FATAL]", "FATAL", "FTL", "[CRIT]", "CRITICAL"},
	}
}

// LevelDetector detects log levels from line content
type LevelDetector struct {
	patterns map[LogLevel][]string
}

// NewLevelDetector creates a detector from the given patterns
func NewLevelDetector(p LevelPatterns) *LevelDetector {
	return &LevelDetector{
		patterns: map[LogLevel][]string{
			LevelTrace: p.Trace,
			LevelDebug: p.Debug,
			LevelInfo:  p.Info,
			LevelWarn:  p.Warn,
			LevelError: p.Error,
			LevelFatal: p.Fatal,
		},
	}
}

// Detect returns the log level for a line. Levels are checked from most to
// least severe so that a line mentioning both wins the higher severity.
func (d *LevelDetector) Detect(line string) LogLevel {
	order := []LogLevel{LevelFatal, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace}
	for _, level := range order {
		for _, pattern := range d.patterns[level] {
			if strings.Contains(line, pattern) {
				return level
			}
		}
	}
	return LevelUnknown
}
