package logformat

import "testing"

func TestHasErrorMarker(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"2024-01-01 ERROR boom", true},
		{"Error: something", true},
		{"build Failed", true},
		{"FATAL shutdown", true},
		{"01-01 10:00:00 E/ActivityManager: crash", true},
		{"all systems nominal", false},
		{"lowercase error alone", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasErrorMarker(tt.line); got != tt.want {
			t.Errorf("HasErrorMarker(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestHasException(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"java.lang.NullPointerException", true},
		{"EXCEPTION in thread main", true},
		{"caught exception, retrying", true},
		{"excellent throughput", false},
		{"plain line", false},
	}
	for _, tt := range tests {
		if got := HasException(tt.line); got != tt.want {
			t.Errorf("HasException(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestLooksStandard(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"clock token mid-line", "level=info time=12:30:45 msg=x", true},
		{"clock token at start", "12:30:45.123 something", true},
		{"kernel timestamp", "[ 1234.567890] usb 1-1: new device", true},
		{"kernel timestamp no pad", "[5.123] early boot", true},
		{"logcat brief", "E/AndroidRuntime: FATAL EXCEPTION", true},
		{"logcat warn", "W/zygote: unusual", true},
		{"shell prompt output", "$ make all", false},
		{"build noise", "CC src/main.o", false},
		{"bare text", "hello world", false},
		{"lone bracket", "[section]", false},
		{"partial clock", "12:30 short", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksStandard(tt.line); got != tt.want {
				t.Errorf("LooksStandard(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
