// Package time contains clock helpers shared by the jobs
package time

import "time"

// Now is the process clock; tests swap it to pin run stamps and cutoffs
var Now = func() time.Time { return time.Now().UTC() }

// stampLayout is safe for file names on every platform
const stampLayout = "20060102T150405Z"

// Stamp formats t (in UTC) for use in artifact names like df_errors_<stamp>.csv
func Stamp(t time.Time) string { return t.UTC().Format(stampLayout) }

// Cutoff returns the retention boundary: rows created strictly before it are expired
func Cutoff(now time.Time, maxAge time.Duration) time.Time { return now.Add(-maxAge) }

// Days converts whole days to a duration
func Days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }
