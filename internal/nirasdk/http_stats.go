package nirasdk

import (
	"sync/atomic"
	"time"
)

// httpStats counts part bytes accepted by the upload service.
type httpStats struct {
	bytesSent  atomic.Int64
	partsSent  atomic.Int64
	lastSentNs atomic.Int64
}

func (s *httpStats) onSend(n int) {
	s.partsSent.Add(1)
	if n > 0 {
		s.bytesSent.Add(int64(n))
	}
	s.lastSentNs.Store(time.Now().UnixNano())
}

// HTTPStats is a point in time copy of the transfer counters.
type HTTPStats struct {
	BytesSent int64
	PartsSent int64
	LastSent  time.Time
}

func (s *httpStats) snapshot() HTTPStats {
	out := HTTPStats{
		BytesSent: s.bytesSent.Load(),
		PartsSent: s.partsSent.Load(),
	}
	if ns := s.lastSentNs.Load(); ns > 0 {
		out.LastSent = time.Unix(0, ns)
	}
	return out
}
