package util

import (
	"strconv"
	"strings"
	"time"
)

// unixMillisCutoff separates unix seconds from unix milliseconds; 1e12 seconds is year 33658.
const unixMillisCutoff = 1_000_000_000_000

// ParseTime accepts RFC3339 (with or without fraction), unix seconds and unix milliseconds.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ts <= 0 {
		return time.Time{}, false
	}
	if ts >= unixMillisCutoff {
		return time.UnixMilli(ts), true
	}
	return time.Unix(ts, 0), true
}

// ParseTimeDefault parses time or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
