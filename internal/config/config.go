package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Theme       ThemeConfig      `toml:"theme"`
	LogLevels   LogLevelConfig   `toml:"log_levels"`
	Stream      StreamConfig     `toml:"stream"`
	Engine      EngineConfig     `toml:"engine"`
	Keybindings KeybindingConfig `toml:"keybindings"`
	Display     DisplayConfig    `toml:"display"`
	Filter      FilterConfig     `toml:"filter"`
}

// ThemeConfig defines color schemes
type ThemeConfig struct {
	Name          string         `toml:"name"`
	LineNumbers   string         `toml:"line_numbers"`
	StatusBar     string         `toml:"status_bar"`
	StatusBarText string         `toml:"status_bar_text"`
	SearchMatch   string         `toml:"search_match"`
	Bookmark      string         `toml:"bookmark"`
	ActiveBorder  string         `toml:"active_border"`
	Levels        LogLevelColors `toml:"levels"`
}

// LogLevelColors defines colors for each log level
type LogLevelColors struct {
	Trace string `toml:"trace"`
	Debug string `toml:"debug"`
	Info  string `toml:"info"`
	Warn  string `toml:"warn"`
	Error string `toml:"error"`
	Fatal string `toml:"fatal"`
}

// LogLevelConfig defines log level detection patterns
type LogLevelConfig struct {
	TracePatterns []string `toml:"trace_patterns"`
	DebugPatterns []string `toml:"debug_patterns"`
	InfoPatterns  []string `toml:"info_patterns"`
	WarnPatterns  []string `toml:"warn_patterns"`
	ErrorPatterns []string `toml:"error_patterns"`
	FatalPatterns []string `toml:"fatal_patterns"`
}

// StreamConfig tunes the live-stream buffering layer
type StreamConfig struct {
	FlushMaxFragments int `toml:"flush_max_fragments"`
	FlushIdleMs       int `toml:"flush_idle_ms"`
	FlushMaxBytes     int `toml:"flush_max_bytes"`
	TailPollMs        int `toml:"tail_poll_ms"`
}

// EngineConfig tunes filtering and request handling
type EngineConfig struct {
	RequestTimeoutMs    int   `toml:"request_timeout_ms"`
	ChunkThresholdBytes int64 `toml:"chunk_threshold_bytes"`
	MaxWorkers          int   `toml:"max_workers"`
}

// KeybindingConfig allows customizing keybindings
type KeybindingConfig struct {
	Quit         []string `toml:"quit"`
	ScrollUp     []string `toml:"scroll_up"`
	ScrollDown   []string `toml:"scroll_down"`
	PageUp       []string `toml:"page_up"`
	PageDown     []string `toml:"page_down"`
	Top          []string `toml:"top"`
	Bottom       []string `toml:"bottom"`
	Search       []string `toml:"search"`
	NextMatch    []string `toml:"next_match"`
	PrevMatch    []string `toml:"prev_match"`
	Filter       []string `toml:"filter"`
	Bookmark     []string `toml:"bookmark"`
	NextBookmark []string `toml:"next_bookmark"`
	PrevBookmark []string `toml:"prev_bookmark"`
	SwitchPane   []string `toml:"switch_pane"`
	Follow       []string `toml:"follow"`
}

// FilterConfig seeds the filter applied to every pane at startup. The lists
// are flat: each include keyword stands alone (plain OR).
type FilterConfig struct {
	Includes      []string `toml:"includes"`
	Excludes      []string `toml:"excludes"`
	CaseSensitive bool     `toml:"case_sensitive"`
}

// DisplayConfig holds display options
type DisplayConfig struct {
	ShowLineNumbers bool `toml:"show_line_numbers"`
	TabWidth        int  `toml:"tab_width"`
	WrapLines       bool `toml:"wrap_lines"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Theme: ThemeConfig{
			Name:          "subtle",
			LineNumbers:   "240",
			StatusBar:     "236",
			StatusBarText: "252",
			SearchMatch:   "226",
			Bookmark:      "39",
			ActiveBorder:  "63",
			Levels: LogLevelColors{
				Trace: "240",
				Debug: "244",
				Info:  "250",
				Warn:  "214",
				Error: "167",
				Fatal: "196",
			},
		},
		LogLevels: LogLevelConfig{
			TracePatterns: []string{"[TRC]", "[TRACE]", "TRACE", "TRC"},
			DebugPatterns: []string{"[DBG]", "[DEBUG]", "DEBUG", "DBG"},
			InfoPatterns:  []string{"[INF]", "[INFO]", "INFO", "INF"},
			WarnPatterns:  []string{"[WRN]", "[WARN]", "[WARNING]", "WARN", "WRN", "WARNING"},
			ErrorPatterns: []string{"[ERR]", "[ERROR]", "ERROR", "ERR"},
			FatalPatterns: []string{"[FTL]", "[FATAL]", "FATAL", "FTL", "[CRIT]", "CRITICAL"},
		},
		Stream: StreamConfig{
			FlushMaxFragments: 500,
			FlushIdleMs:       250,
			FlushMaxBytes:     512 * 1024,
			TailPollMs:        500,
		},
		Engine: EngineConfig{
			RequestTimeoutMs:    10_000,
			ChunkThresholdBytes: 4 * 1024 * 1024,
			MaxWorkers:          8,
		},
		Keybindings: KeybindingConfig{
			Quit:         []string{"q", "ctrl+c"},
			ScrollUp:     []string{"k", "up"},
			ScrollDown:   []string{"j", "down"},
			PageUp:       []string{"b", "pgup", "ctrl+u"},
			PageDown:     []string{"f", "pgdown", "ctrl+d", " "},
			Top:          []string{"g", "home"},
			Bottom:       []string{"G", "end"},
			Search:       []string{"/"},
			NextMatch:    []string{"n"},
			PrevMatch:    []string{"N"},
			Filter:       []string{"&"},
			Bookmark:     []string{"m"},
			NextBookmark: []string{"]"},
			PrevBookmark: []string{"["},
			SwitchPane:   []string{"tab"},
			Follow:       []string{"F"},
		},
		Display: DisplayConfig{
			ShowLineNumbers: true,
			TabWidth:        4,
			WrapLines:       false,
		},
	}
}

// Load loads config from file, falling back to defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := getConfigPath()
	if configPath == "" {
		return nil
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tailpane", "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "tailpane", "config.toml")
}

// GetConfigPath exports the config path for user reference
func GetConfigPath() string {
	return getConfigPath()
}
