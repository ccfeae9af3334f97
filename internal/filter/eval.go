package filter

import (
	"strings"

	"github.com/sindng-ui/tailpane/pkg/logformat"
)

// TestLogMarker is the sentinel token that makes a line pass any shell-side
// filter unconditionally.
const TestLogMarker = "TAILPANE_TEST_LOG"

// includeMatcher decides whether a line satisfies the include side of a
// rule. Implementations receive both the raw line and a memoized lowercase
// view so the line is lowered at most once per evaluation.
type includeMatcher interface {
	matches(line string, lower func() string) bool
}

// CompiledRule is a rule prepared for one filter pass: terms are
// case-normalized up front and the include strategy is chosen once, not per
// line. The same compiled rule serves preview, chunk workers and the live
// stream path.
type CompiledRule struct {
	quick       QuickFilter
	bypassRaw   bool
	excludes    []string
	excludeCS   bool
	includeCS   bool
	inc         includeMatcher
	accelerated bool
}

// Compile normalizes and prepares a rule for evaluation
func Compile(r Rule) *CompiledRule {
	r = r.Normalize()

	c := &CompiledRule{
		quick:     r.Quick,
		bypassRaw: r.BypassRawFilter,
		excludeCS: r.ExcludeCaseSensitive,
		includeCS: r.IncludeCaseSensitive,
	}

	for _, t := range r.Excludes {
		if !r.ExcludeCaseSensitive {
			t = strings.ToLower(t)
		}
		c.excludes = append(c.excludes, t)
	}

	if len(r.IncludeGroups) == 0 {
		return c // empty rule: include everything
	}

	if r.simpleOR() {
		terms := make([]string, 0, len(r.IncludeGroups))
		for _, group := range r.IncludeGroups {
			t := group[0]
			if !r.IncludeCaseSensitive {
				t = strings.ToLower(t)
			}
			terms = append(terms, t)
		}
		c.inc = newACMatcher(terms)
		c.accelerated = true
		return c
	}

	groups := make([][]string, len(r.IncludeGroups))
	for i, group := range r.IncludeGroups {
		groups[i] = make([]string, len(group))
		for j, t := range group {
			if !r.IncludeCaseSensitive {
				t = strings.ToLower(t)
			}
			groups[i][j] = t
		}
	}
	c.inc = &groupMatcher{groups: groups}
	return c
}

// Accelerated reports whether the simple-OR fast path was selected
func (c *CompiledRule) Accelerated() bool {
	return c.accelerated
}

// Match applies the rule to one line. bypassShell marks lines arriving from
// a remote shell, enabling the sentinel and raw-mode escapes. The evaluation
// order is fixed: quick filter, sentinel, raw bypass, excludes, includes.
func (c *CompiledRule) Match(line string, bypassShell bool) bool {
	switch c.quick {
	case QuickError:
		if !logformat.HasErrorMarker(line) {
			return false
		}
	case QuickException:
		if !logformat.HasException(line) {
			return false
		}
	}

	if bypassShell && strings.Contains(line, TestLogMarker) {
		return true
	}

	// Raw mode: anything that does not look like a standard log line is
	// opaque shell output the user always wants to see.
	if bypassShell && c.bypassRaw && !logformat.LooksStandard(line) {
		return true
	}

	var lowered string
	haveLowered := false
	lower := func() string {
		if !haveLowered {
			lowered = strings.ToLower(line)
			haveLowered = true
		}
		return lowered
	}

	for _, t := range c.excludes {
		hay := line
		if !c.excludeCS {
			hay = lower()
		}
		if strings.Contains(hay, t) {
			return false
		}
	}

	if c.inc == nil {
		return true
	}
	if c.includeCS {
		return c.inc.matches(line, func() string { return line })
	}
	return c.inc.matches(line, lower)
}

// groupMatcher is the general OR-of-ANDs evaluator
type groupMatcher struct {
	groups [][]string
}

func (g *groupMatcher) matches(line string, lower func() string) bool {
	hay := lower()
	for _, group := range g.groups {
		all := true
		for _, t := range group {
			if !strings.Contains(hay, t) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
