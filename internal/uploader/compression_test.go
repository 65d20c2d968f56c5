package uploader

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldDisableCompression(t *testing.T) {
	tests := []struct {
		name   string
		ratios []float64
		want   bool
	}{
		{name: "too few samples", ratios: []float64{1, 1, 1, 1, 1}, want: false},
		{name: "poor", ratios: []float64{0.95, 0.92, 0.9, 0.91, 0.99, 0.93}, want: true},
		{name: "exactly threshold", ratios: []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9}, want: true},
		{name: "good", ratios: []float64{0.3, 0.4, 0.5, 0.3, 0.2, 0.4}, want: false},
		{name: "only first six count", ratios: []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 5, 5, 5}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldDisableCompression(tt.ratios))
		})
	}
}

func TestCompressionState_DecidesOnce(t *testing.T) {
	s := newCompressionState(true)
	for range compressionSamples - 1 {
		assert.False(t, s.record(0.2))
	}
	assert.False(t, s.record(0.2))
	assert.True(t, s.enabled())

	// poor samples after the decision change nothing
	for range 20 {
		assert.False(t, s.record(1.5))
	}
	assert.True(t, s.enabled())
}

func TestCompressionState_DisablesOnce(t *testing.T) {
	s := newCompressionState(true)

	var wg sync.WaitGroup
	var mu sync.Mutex
	flips := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.record(1.01) {
				mu.Lock()
				flips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, flips)
	assert.False(t, s.enabled())
}

func TestCompressionState_StartsDisabled(t *testing.T) {
	assert.False(t, newCompressionState(false).enabled())
}

func TestDeflate_RoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte("nira mesh data "), 1000)
	out, err := deflate(in)
	require.NoError(t, err)
	assert.Less(t, len(out), len(in))

	zr, err := zlib.NewReader(bytes.NewReader(out))
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// pooled writers are reset between uses
	again, err := deflate(in)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}
