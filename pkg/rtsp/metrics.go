package rtsp

import "time"

// Metrics holds the two latency observations captured once per
// session (spec §3, §7): origin request time (connect duration) and
// origin response time (time from end of connect to completion of all
// SETUPs).
type Metrics struct {
	OriginRequestTimeMS  int64
	OriginResponseTimeMS int64
}

func elapsedMS(since time.Time) int64 {
	return time.Since(since).Milliseconds()
}
