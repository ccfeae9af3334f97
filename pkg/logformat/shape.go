package logformat

import "strings"

// errorMarkers are the fixed literals that mark a line as error-like for the
// coarse error quick-filter. The " E/" form matches logcat-style tags.
var errorMarkers = []string{" E/", "ERROR", "Error", "Fail", "FATAL"}

// HasErrorMarker reports whether the line contains any error-like marker.
func HasErrorMarker(line string) bool {
	for _, m := range errorMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// HasException reports whether the line mentions an exception,
// case-insensitively.
func HasException(line string) bool {
	return containsFold(line, "exception")
}

// containsFold is a case-insensitive strings.Contains restricted to ASCII
// folding, which is all the exception check needs.
func containsFold(s, lower string) bool {
	n := len(lower)
	if n == 0 {
		return true
	}
	for i := 0; i+n <= len(s); i++ {
		if equalFoldAt(s, i, lower) {
			return true
		}
	}
	return false
}

func equalFoldAt(s string, off int, lower string) bool {
	for j := 0; j < len(lower); j++ {
		c := s[off+j]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[j] {
			return false
		}
	}
	return true
}

// LooksStandard classifies a line as standard log output. A line qualifies if
// it carries an HH:MM:SS clock token anywhere, starts with a bracketed
// floating-point kernel timestamp like "[ 1234.567890]", or starts with a
// single capital tag letter followed by '/' (logcat brief format).
//
// Lines failing all three are treated by raw mode as opaque shell output.
// The boundary of this heuristic is a behavioral contract; do not tighten it.
func LooksStandard(line string) bool {
	return hasClockToken(line) || hasKernelTimestamp(line) || hasTagPrefix(line)
}

// hasClockToken scans for a digit pair, ':', digit pair, ':', digit pair.
func hasClockToken(line string) bool {
	for i := 0; i+8 <= len(line); i++ {
		if isDigit(line[i]) && isDigit(line[i+1]) && line[i+2] == ':' &&
			isDigit(line[i+3]) && isDigit(line[i+4]) && line[i+5] == ':' &&
			isDigit(line[i+6]) && isDigit(line[i+7]) {
			return true
		}
	}
	return false
}

// hasKernelTimestamp matches a leading "[ <float>]" as printed by dmesg.
func hasKernelTimestamp(line string) bool {
	if len(line) == 0 || line[0] != '[' {
		return false
	}
	i := 1
	for i < len(line) && line[i] == ' ' {
		i++
	}
	digits := 0
	for i < len(line) && isDigit(line[i]) {
		i++
		digits++
	}
	if digits == 0 || i >= len(line) || line[i] != '.' {
		return false
	}
	i++
	digits = 0
	for i < len(line) && isDigit(line[i]) {
		i++
		digits++
	}
	return digits > 0 && i < len(line) && line[i] == ']'
}

// hasTagPrefix matches logcat brief lines like "E/SomeTag: message".
func hasTagPrefix(line string) bool {
	return len(line) >= 2 && line[0] >= 'A' && line[0] <= 'Z' && line[1] == '/'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
