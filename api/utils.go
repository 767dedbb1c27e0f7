package api

import (
	"sync/atomic"
	"time"
)

var lastEventTime atomic.Int64

// nextEventTime returns a unix millisecond timestamp that is strictly greater
// than any value it returned before, so change events from one instance stay
// ordered even within the same millisecond.
func nextEventTime() int64 {
	for {
		now := time.Now().UnixMilli()
		last := lastEventTime.Load()
		if now <= last {
			now = last + 1
		}
		if lastEventTime.CompareAndSwap(last, now) {
			return now
		}
	}
}
