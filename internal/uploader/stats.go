package uploader

import (
	"sync/atomic"
	"time"
)

// ProgressFunc is called after every part a file sends. It must not block.
type ProgressFunc func(file string, partsDone, totalParts int)

// TransferStats summarizes one UploadAsset call.
type TransferStats struct {
	Files        int
	Deduplicated int
	PartsSent    int64
	BytesRead    int64
	BytesSent    int64
	Elapsed      time.Duration
}

type transferStats struct {
	files        atomic.Int64
	deduplicated atomic.Int64
	partsSent    atomic.Int64
	bytesRead    atomic.Int64
	bytesSent    atomic.Int64
	started      time.Time
}

func newTransferStats() *transferStats {
	return &transferStats{started: time.Now()}
}

func (s *transferStats) onPart(read, sent int) {
	s.partsSent.Add(1)
	s.bytesRead.Add(int64(read))
	s.bytesSent.Add(int64(sent))
}

func (s *transferStats) snapshot() TransferStats {
	return TransferStats{
		Files:        int(s.files.Load()),
		Deduplicated: int(s.deduplicated.Load()),
		PartsSent:    s.partsSent.Load(),
		BytesRead:    s.bytesRead.Load(),
		BytesSent:    s.bytesSent.Load(),
		Elapsed:      time.Since(s.started),
	}
}
