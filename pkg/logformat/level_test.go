package logformat

import "testing"

func TestDetectLevel(t *testing.T) {
	d := NewLevelDetector(DefaultLevelPatterns())

	tests := []struct {
		line string
		want LogLevel
	}{
		{"2024-01-01 [INF] server started", LevelInfo},
		{"2024-01-01 DEBUG cache miss", LevelDebug},
		{"[WARN] disk at 90%", LevelWarn},
		{"ERROR connection refused", LevelError},
		{"FATAL out of memory", LevelFatal},
		{"TRACE entering handler", LevelTrace},
		{"plain unleveled line", LevelUnknown},
	}
	for _, tt := range tests {
		if got := d.Detect(tt.line); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestDetectPrefersHigherSeverity(t *testing.T) {
	d := NewLevelDetector(DefaultLevelPatterns())

	// A line mentioning both wins the higher severity
	if got := d.Detect("INFO retrying after ERROR"); got != LevelError {
		t.Errorf("Detect = %v, want LevelError", got)
	}
	if got := d.Detect("ERROR escalated to FATAL"); got != LevelFatal {
		t.Errorf("Detect = %v, want LevelFatal", got)
	}
}
