package render

import (
	"strings"
	"testing"

	"github.com/sindng-ui/tailpane/internal/config"
)

func TestLogLevelRendererKeepsContent(t *testing.T) {
	r := NewLogLevelRenderer(config.DefaultConfig())

	lines := []string{
		"ERROR something broke",
		"INFO all good",
		"no level at all",
		"",
	}
	for _, line := range lines {
		got := r.Render(line)
		if stripANSI(got) != line {
			t.Errorf("Render(%q) altered content: %q", line, got)
		}
	}
}

func TestPlainRenderer(t *testing.T) {
	r := NewPlainRenderer()
	if got := r.Render("as is"); got != "as is" {
		t.Errorf("Render = %q", got)
	}
}

func TestSyntaxRendererSingleLine(t *testing.T) {
	r := NewSyntaxRenderer("main.go")
	got := r.Render("func main() {}")
	if strings.ContainsAny(got, "\n\r") {
		t.Errorf("highlighted output contains newlines: %q", got)
	}
	if stripANSI(got) != "func main() {}" {
		t.Errorf("highlighting altered content: %q", stripANSI(got))
	}
}

func TestIsSyntaxHighlightable(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"main.go", true},
		{"script.py", true},
		{"Makefile", true},
		{"dockerfile", true},
		{"server.log", false},
		{"README", false},
	}
	for _, tt := range tests {
		if got := IsSyntaxHighlightable(tt.name); got != tt.want {
			t.Errorf("IsSyntaxHighlightable(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// stripANSI removes escape sequences for content comparison
func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
