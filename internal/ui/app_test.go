package ui

import (
	"testing"

	"github.com/sindng-ui/tailpane/internal/filter"
)

func TestParseRuleInput(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantGroups   [][]string
		wantExcludes []string
	}{
		{"empty", "", nil, nil},
		{"single term", "error", [][]string{{"error"}}, nil},
		{"or groups", "error, warn", [][]string{{"error"}, {"warn"}}, nil},
		{"and terms", "conn timeout", [][]string{{"conn", "timeout"}}, nil},
		{"mixed", "conn timeout, panic", [][]string{{"conn", "timeout"}, {"panic"}}, nil},
		{"exclude", "error !healthcheck", [][]string{{"error"}}, []string{"healthcheck"}},
		{"exclude only", "!noise", nil, []string{"noise"}},
		{"bare bang dropped", "error !", [][]string{{"error"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRuleInput(tt.input)
			assertGroups(t, got, tt.wantGroups)
			assertTerms(t, got.Excludes, tt.wantExcludes)
		})
	}
}

func assertGroups(t *testing.T, got filter.Rule, want [][]string) {
	t.Helper()
	if len(got.IncludeGroups) != len(want) {
		t.Fatalf("groups = %v, want %v", got.IncludeGroups, want)
	}
	for i := range want {
		assertTerms(t, got.IncludeGroups[i], want[i])
	}
}

func assertTerms(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("terms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("terms = %v, want %v", got, want)
		}
	}
}
