package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/niraclient/internal/hasher"
	"github.com/openmined/niraclient/internal/nirasdk"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFileWorkers bounds per-file hashing, registration and uploads
	DefaultFileWorkers = 4
	// DefaultPartWorkers bounds concurrent parts within one file
	DefaultPartWorkers = 4
)

// Options tune a Pipeline. The zero value is the production setup.
type Options struct {
	ChunkSize   int64
	FileWorkers int
	PartWorkers int

	// UploadServiceHost replaces the host handed out with each job
	UploadServiceHost string

	Clock        Clock
	PollInterval time.Duration
	Progress     ProgressFunc
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.FileWorkers <= 0 {
		out.FileWorkers = DefaultFileWorkers
	}
	if out.PartWorkers <= 0 {
		out.PartWorkers = DefaultPartWorkers
	}
	if out.Clock == nil {
		out.Clock = realClock{}
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	return out
}

// Pipeline runs asset uploads against one organization.
type Pipeline struct {
	jobs     jobsAPI
	assets   assetsAPI
	upload   uploadAPI
	hasher   hasher.ContentHasher
	assetURL func(string) string
	opts     Options
}

func New(sdk *nirasdk.NiraSDK, h hasher.ContentHasher, opts *Options) *Pipeline {
	return &Pipeline{
		jobs:     sdk.Jobs,
		assets:   sdk.Assets,
		upload:   sdk.Upload,
		hasher:   h,
		assetURL: sdk.AssetURL,
		opts:     opts.withDefaults(),
	}
}

// UploadAsset creates a job, hashes and registers every file, uploads them
// and optionally waits for the server to process the asset.
func (p *Pipeline) UploadAsset(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	tasks, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	stats := newTransferStats()
	coord := newJobCoordinator(p.jobs)

	job, err := coord.CreateJob(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Info("job created", "job", job.ID, "asset", req.AssetName, "type", req.AssetType, "batch", coord.batchID)

	if !req.fetching() {
		if err := p.transfer(ctx, req, coord, tasks, stats); err != nil {
			return nil, err
		}
	}

	watcher := &processingWatcher{
		jobs:     p.jobs,
		assets:   p.assets,
		clock:    p.opts.Clock,
		interval: p.opts.PollInterval,
		assetURL: p.assetURL,
	}

	result, err := watcher.Wait(ctx, job, req.MaxWait)
	if err != nil {
		return nil, err
	}

	result.Stats = stats.snapshot()
	slog.Info("upload finished",
		"job", job.ID,
		"status", result.Status,
		"files", result.Stats.Files,
		"deduplicated", result.Stats.Deduplicated,
		"parts", result.Stats.PartsSent,
		"read", humanize.IBytes(uint64(result.Stats.BytesRead)),
		"sent", humanize.IBytes(uint64(result.Stats.BytesSent)),
		"elapsed", result.Stats.Elapsed.Round(time.Millisecond),
	)
	return result, nil
}

// validate checks the request without touching the network. Local files
// must exist unless the server fetches them.
func (p *Pipeline) validate(req *UploadRequest) ([]*fileTask, error) {
	if len(req.Files) == 0 {
		return nil, &InputError{Err: ErrNoFiles}
	}
	if strings.TrimSpace(req.AssetName) == "" {
		return nil, &InputError{Err: ErrNoAssetName}
	}
	if strings.TrimSpace(req.AssetType) == "" {
		return nil, &InputError{Err: ErrNoAssetType}
	}

	if req.fetching() {
		for _, f := range req.Files {
			if f.FetchURL == "" {
				return nil, &InputError{Path: f.Path, Err: ErrMixedFiles}
			}
		}
		return nil, nil
	}

	tasks := make([]*fileTask, len(req.Files))
	for i, f := range req.Files {
		info, err := os.Stat(f.Path)
		if err != nil {
			return nil, &InputError{Path: f.Path, Err: ErrFileMissing}
		}
		if !info.Mode().IsRegular() {
			return nil, &InputError{Path: f.Path, Err: ErrNotAFile}
		}
		tasks[i] = &fileTask{spec: f, size: info.Size()}
	}
	return tasks, nil
}

// transfer registers every file, then uploads every file, moving the job
// to uploading in between and to uploaded at the end.
func (p *Pipeline) transfer(ctx context.Context, req *UploadRequest, coord *jobCoordinator, tasks []*fileTask, stats *transferStats) error {
	host := p.opts.UploadServiceHost
	if host == "" {
		host = coord.job.UploadServiceHost
	}
	if host == "" {
		return nirasdk.ErrNoUploadServiceHost
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.FileWorkers)
	for _, task := range tasks {
		g.Go(func() error {
			fingerprint, err := p.hasher.Hash(gctx, task.spec.Path)
			if err != nil {
				return err
			}
			task.fingerprint = fingerprint
			return coord.RegisterFile(gctx, task)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := coord.TransitionState(ctx, nirasdk.JobUploading); err != nil {
		return err
	}

	files := &chunkedUploader{
		upload:    p.upload,
		host:      host,
		chunkSize: p.opts.ChunkSize,
		workers:   p.opts.PartWorkers,
		compress:  !req.DisableCompression,
		stats:     stats,
		progress:  p.opts.Progress,
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.opts.FileWorkers)
	for _, task := range tasks {
		g.Go(func() error {
			if err := files.UploadFile(gctx, task); err != nil {
				return err
			}
			stats.files.Add(1)
			slog.Debug("file uploaded", "file", task.record.FileName, "size", humanize.IBytes(uint64(task.size)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("job %d: %w", coord.job.ID, err)
	}

	return coord.TransitionState(ctx, nirasdk.JobUploaded)
}
