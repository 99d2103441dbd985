package connectors

import (
	"strings"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

var defaultLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime tries each layout in turn and returns the instant in UTC, or nil
// when s is blank or matches none of them.
func ParseTime(s string, layouts ...string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(layouts) == 0 {
		layouts = defaultLayouts
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ParseDay validates a YYYY-MM-DD flag value.
func ParseDay(param, v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, &core.ValidationError{Param: param, Msg: "expected YYYY-MM-DD, got " + quote(v)}
	}
	return t, nil
}

func quote(s string) string {
	return `"` + s + `"`
}
