package logformat

import (
	"regexp"
	"strconv"
	"time"
)

// TimestampParser extracts timestamps from log lines. Extraction is
// heuristic: the first pattern that yields a parseable time wins.
type TimestampParser struct {
	patterns []timestampPattern
}

type timestampPattern struct {
	regex   *regexp.Regexp
	layouts []string
}

// NewTimestampParser creates a parser covering the common log formats
func NewTimestampParser() *TimestampParser {
	return &TimestampParser{
		patterns: []timestampPattern{
			// 2024-01-15T10:30:45.123Z / +09:00 variants
			{
				regex:   regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)`),
				layouts: []string{time.RFC3339Nano, time.RFC3339},
			},
			// 2024-01-15 10:30:45.123 (also bracketed)
			{
				regex:   regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d{3})?)`),
				layouts: []string{"2006-01-02 15:04:05.000", "2006-01-02 15:04:05"},
			},
			// Syslog: Jan 15 10:30:45
			{
				regex:   regexp.MustCompile(`([A-Z][a-z]{2} \d{1,2} \d{2}:\d{2}:\d{2})`),
				layouts: []string{"Jan 2 15:04:05"},
			},
			// Unix epoch seconds or milliseconds at line start
			{
				regex:   regexp.MustCompile(`^(\d{10}|\d{13})(?:\D|$)`),
				layouts: []string{"unix"},
			},
			// Bare clock time (assume the file's day)
			{
				regex:   regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}(?:\.\d{3})?)`),
				layouts: []string{"15:04:05.000", "15:04:05"},
			},
		},
	}
}

// Parse attempts to extract a timestamp from a log line, returning nil when
// no known pattern applies.
func (p *TimestampParser) Parse(line string) *time.Time {
	for _, pattern := range p.patterns {
		m := pattern.regex.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		stamp := m[1]

		if pattern.layouts[0] == "unix" {
			n, err := strconv.ParseInt(stamp, 10, 64)
			if err != nil {
				continue
			}
			var t time.Time
			if len(stamp) == 13 {
				t = time.UnixMilli(n)
			} else {
				t = time.Unix(n, 0)
			}
			return &t
		}

		for _, layout := range pattern.layouts {
			t, err := time.Parse(layout, stamp)
			if err != nil {
				continue
			}
			now := time.Now()
			switch layout {
			case "15:04:05", "15:04:05.000":
				t = time.Date(now.Year(), now.Month(), now.Day(),
					t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
			case "Jan 2 15:04:05":
				t = time.Date(now.Year(), t.Month(), t.Day(),
					t.Hour(), t.Minute(), t.Second(), 0, time.Local)
			}
			return &t
		}
	}
	return nil
}

// FormatTime formats a timestamp for status display
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04:05")
}
