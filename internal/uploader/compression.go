package uploader

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zlib"
)

const (
	// compressionSamples is how many parts are compressed before deciding
	compressionSamples = 6
	// poorCompressionRatio is the compressed/raw mean at which compression stops paying off
	poorCompressionRatio = 0.9
)

// ShouldDisableCompression decides on the first compressionSamples ratios.
// Fewer samples never disable.
func ShouldDisableCompression(ratios []float64) bool {
	if len(ratios) < compressionSamples {
		return false
	}
	var sum float64
	for _, r := range ratios[:compressionSamples] {
		sum += r
	}
	return sum/compressionSamples >= poorCompressionRatio
}

// compressionState is shared by the part workers of one file. Once disabled
// it stays disabled; the decision is made at most once.
type compressionState struct {
	disabled atomic.Bool

	mu      sync.Mutex
	ratios  []float64
	decided bool
}

func newCompressionState(enabled bool) *compressionState {
	c := &compressionState{}
	c.disabled.Store(!enabled)
	return c
}

func (c *compressionState) enabled() bool {
	return !c.disabled.Load()
}

// record adds a ratio sample and returns true if this call turned compression off.
func (c *compressionState) record(ratio float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.decided {
		return false
	}
	c.ratios = append(c.ratios, ratio)
	if len(c.ratios) < compressionSamples {
		return false
	}

	c.decided = true
	if ShouldDisableCompression(c.ratios) {
		c.disabled.Store(true)
		return true
	}
	return false
}

func (c *compressionState) meanRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ratios) == 0 {
		return 0
	}
	var sum float64
	for _, r := range c.ratios {
		sum += r
	}
	return sum / float64(len(c.ratios))
}

var zlibWriters = sync.Pool{
	New: func() any {
		w, _ := zlib.NewWriterLevel(nil, zlib.BestSpeed)
		return w
	},
}

// deflate zlib-compresses data at the fastest level.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	w := zlibWriters.Get().(*zlib.Writer)
	defer zlibWriters.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
