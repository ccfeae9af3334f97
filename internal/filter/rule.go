package filter

import "strings"

// QuickFilter is a built-in coarse filter applied before the user's rule
type QuickFilter int

const (
	QuickNone QuickFilter = iota
	QuickError
	QuickException
)

// Rule is the canonical match configuration. A rule value is immutable once
// submitted for a filter pass; callers construct a new value to change it.
//
// IncludeGroups is OR-of-ANDs: a line is included when every term of any one
// group is a substring. Excludes always win over includes.
type Rule struct {
	IncludeGroups        [][]string
	Excludes             []string
	IncludeCaseSensitive bool
	ExcludeCaseSensitive bool
	Quick                QuickFilter
	BypassRawFilter      bool
}

// FromLegacy migrates the historical flat include list into the canonical
// shape: each entry becomes its own single-term group (plain OR). Migration
// happens once at the boundary; nothing downstream branches on rule shape.
func FromLegacy(includes, excludes []string, caseSensitive bool) Rule {
	groups := make([][]string, 0, len(includes))
	for _, term := range includes {
		groups = append(groups, []string{term})
	}
	return Rule{
		IncludeGroups:        groups,
		Excludes:             excludes,
		IncludeCaseSensitive: caseSensitive,
		ExcludeCaseSensitive: caseSensitive,
	}
}

// Normalize returns a copy with terms trimmed and empty terms and groups
// dropped. An ill-formed rule normalizes to "exclude nothing, include
// everything" rather than being rejected.
func (r Rule) Normalize() Rule {
	out := r
	out.IncludeGroups = nil
	for _, group := range r.IncludeGroups {
		var terms []string
		for _, t := range group {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
		if len(terms) > 0 {
			out.IncludeGroups = append(out.IncludeGroups, terms)
		}
	}

	out.Excludes = nil
	for _, t := range r.Excludes {
		if t = strings.TrimSpace(t); t != "" {
			out.Excludes = append(out.Excludes, t)
		}
	}
	return out
}

// IsEmpty reports whether the normalized rule constrains nothing
func (r Rule) IsEmpty() bool {
	n := r.Normalize()
	return len(n.IncludeGroups) == 0 && len(n.Excludes) == 0 &&
		n.Quick == QuickNone
}

// simpleOR reports whether every include group carries exactly one term.
// Only such rules are eligible for the accelerated matcher; any rule with a
// multi-term AND group takes the general evaluator.
func (r Rule) simpleOR() bool {
	for _, group := range r.IncludeGroups {
		if len(group) != 1 {
			return false
		}
	}
	return true
}
