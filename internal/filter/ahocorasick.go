package filter

// acMatcher is the accelerated include matcher for simple-OR rules: an
// Aho-Corasick automaton built once per filter pass over the normalized
// keyword set. It answers "does any keyword occur" in a single scan of the
// line, independent of keyword count, and is exactly equivalent to checking
// strings.Contains per keyword.
type acMatcher struct {
	next     []map[byte]int32
	fail     []int32
	terminal []bool
}

// newACMatcher builds the automaton. Terms must be non-empty and already
// case-normalized; case handling is the caller's concern.
func newACMatcher(terms []string) *acMatcher {
	m := &acMatcher{
		next:     []map[byte]int32{{}},
		fail:     []int32{0},
		terminal: []bool{false},
	}

	for _, term := range terms {
		state := int32(0)
		for i := 0; i < len(term); i++ {
			c := term[i]
			child, ok := m.next[state][c]
			if !ok {
				child = int32(len(m.next))
				m.next[state][c] = child
				m.next = append(m.next, map[byte]int32{})
				m.fail = append(m.fail, 0)
				m.terminal = append(m.terminal, false)
			}
			state = child
		}
		m.terminal[state] = true
	}

	// BFS to wire failure links; terminal status propagates through them so
	// a suffix hit is detected without walking the chain at match time.
	queue := make([]int32, 0, len(m.next))
	for _, child := range m.next[0] {
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		for c, child := range m.next[state] {
			f := m.fail[state]
			for f != 0 {
				if _, ok := m.next[f][c]; ok {
					break
				}
				f = m.fail[f]
			}
			if n, ok := m.next[f][c]; ok && n != child {
				m.fail[child] = n
			} else {
				m.fail[child] = 0
			}
			if m.terminal[m.fail[child]] {
				m.terminal[child] = true
			}
			queue = append(queue, child)
		}
	}

	return m
}

func (m *acMatcher) matches(line string, lower func() string) bool {
	return m.find(lower())
}

// find reports whether any keyword occurs in the haystack
func (m *acMatcher) find(hay string) bool {
	state := int32(0)
	for i := 0; i < len(hay); i++ {
		c := hay[i]
		for {
			if child, ok := m.next[state][c]; ok {
				state = child
				break
			}
			if state == 0 {
				break
			}
			state = m.fail[state]
		}
		if m.terminal[state] {
			return true
		}
	}
	return false
}
