package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/openmined/niraclient/internal/nirasdk"
	"golang.org/x/sync/errgroup"
)

// chunkedUploader sends the parts of one file through a small worker pool
// and finalizes it. It is created once per upload and shared by all files.
type chunkedUploader struct {
	upload    uploadAPI
	host      string
	chunkSize int64
	workers   int
	compress  bool
	stats     *transferStats
	progress  ProgressFunc
}

// UploadFile sends every part of task then finalizes it. Deduplicated files
// are only finalized.
func (u *chunkedUploader) UploadFile(ctx context.Context, task *fileTask) error {
	name := task.record.FileName
	totalParts := TotalParts(task.size, u.chunkSize)

	if task.deduplicated() {
		u.stats.deduplicated.Add(1)
		slog.Debug("file already on server", "file", name)
	} else {
		if err := u.sendParts(ctx, task, totalParts); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
	}

	return u.upload.Done(ctx, u.host, &nirasdk.UploadDoneParams{
		UUID:          task.record.UUID,
		FileName:      name,
		TotalFileSize: task.size,
		TotalParts:    totalParts,
		Fingerprint:   task.fingerprint,
	})
}

func (u *chunkedUploader) sendParts(ctx context.Context, task *fileTask, totalParts int) error {
	state := newCompressionState(u.compress)
	chunks := make(chan Chunk)
	var partsDone atomic.Int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		for _, c := range Partition(task.size, u.chunkSize) {
			select {
			case chunks <- c:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range min(u.workers, totalParts) {
		g.Go(func() error {
			w := &partWorker{u: u, task: task, totalParts: totalParts, state: state}
			defer w.close()

			for c := range chunks {
				sent, err := w.send(gctx, c)
				if err != nil {
					return err
				}
				if !sent {
					continue
				}
				done := int(partsDone.Add(1))
				if u.progress != nil {
					u.progress(task.record.FileName, done, totalParts)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if !state.enabled() && u.compress {
		slog.Debug("compression disabled for file", "file", task.record.FileName, "ratio", fmt.Sprintf("%.3f", state.meanRatio()))
	}
	return nil
}

// partWorker holds one lazily opened handle for the parts it processes.
type partWorker struct {
	u          *chunkedUploader
	task       *fileTask
	totalParts int
	state      *compressionState
	f          *os.File
	buf        []byte
}

func (w *partWorker) close() {
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
}

// send uploads one chunk. An empty read is not an error and sends nothing.
func (w *partWorker) send(ctx context.Context, c Chunk) (bool, error) {
	if w.f == nil {
		f, err := os.Open(w.task.spec.Path)
		if err != nil {
			return false, err
		}
		w.f = f
		w.buf = make([]byte, w.u.chunkSize)
	}

	n, err := io.ReadFull(io.NewSectionReader(w.f, c.Offset, w.u.chunkSize), w.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, fmt.Errorf("read part %d: %w", c.Index, err)
	}
	if n == 0 {
		return false, nil
	}

	data := w.buf[:n]
	compression := ""

	if w.state.enabled() {
		compressed, err := deflate(data)
		if err != nil {
			return false, fmt.Errorf("compress part %d: %w", c.Index, err)
		}
		if w.state.record(float64(len(compressed)) / float64(n)) {
			slog.Debug("file compresses poorly", "file", w.task.record.FileName, "ratio", fmt.Sprintf("%.3f", w.state.meanRatio()))
		}
		data = compressed
		compression = nirasdk.CompressionDeflate
	}

	params := &nirasdk.UploadPartParams{
		UUID:           w.task.record.UUID,
		ChunkSize:      len(data),
		FileName:       w.task.record.FileName,
		PartIndex:      c.Index,
		PartByteOffset: c.Offset,
		TotalParts:     w.totalParts,
		TotalFileSize:  w.task.size,
		Compression:    compression,
	}

	if err := w.u.upload.Part(ctx, w.u.host, params, data); err != nil {
		return false, err
	}

	w.u.stats.onPart(n, len(data))
	slog.Debug("part sent", "file", params.FileName, "part", c.Index, "of", w.totalParts,
		"read", humanize.IBytes(uint64(n)), "sent", humanize.IBytes(uint64(len(data))))
	return true, nil
}
