package http

import (
	"strconv"
	"time"
)

// timeLayouts are tried in order when reading query-string instants.
// RFC3339Nano accepts plain RFC3339 too, and dashboards often send a
// bare date from range pickers.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// ParseTimeDefault reads s as an RFC 3339 instant, a bare date, or unix
// seconds. Empty or unreadable input falls back to def.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if s == "" {
		return def
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC()
	}
	return def
}
