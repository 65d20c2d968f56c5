package uploader

import (
	"context"
	"log/slog"
	"time"

	"github.com/openmined/niraclient/internal/nirasdk"
)

// DefaultPollInterval is the fixed delay between job status polls.
const DefaultPollInterval = 2 * time.Second

type watchState int

const (
	watchPolling watchState = iota
	watchProcessed
	watchFailed
	watchTimedOut
)

// nextWatchState is the transition taken after a poll returned status and
// waited of the timeout budget will have been spent before the next poll.
func nextWatchState(status nirasdk.JobStatus, waited, timeout time.Duration) watchState {
	switch status {
	case nirasdk.JobComplete:
		return watchProcessed
	case nirasdk.JobError:
		return watchFailed
	}
	if waited > timeout {
		return watchTimedOut
	}
	return watchPolling
}

// processingWatcher polls a job until the server is done with it or the
// caller's budget runs out.
type processingWatcher struct {
	jobs     jobsAPI
	assets   assetsAPI
	clock    Clock
	interval time.Duration
	assetURL func(shortUUID string) string
}

// Wait never polls when timeout is zero; the result is Pending with the
// best url known from the job.
func (w *processingWatcher) Wait(ctx context.Context, job *nirasdk.Job, timeout time.Duration) (*UploadResult, error) {
	result := &UploadResult{
		JobID:  job.ID,
		Status: StatusPending,
	}
	if job.AssetShortUUID != "" {
		result.AssetURL = w.assetURL(job.AssetShortUUID)
	}

	if timeout <= 0 {
		return result, nil
	}

	started := w.clock.Now()
	var waited time.Duration

	for {
		current, err := w.jobs.Get(ctx, job.ID)
		if err != nil {
			return nil, err
		}

		waited += w.interval
		switch nextWatchState(current.Status, waited, timeout) {
		case watchProcessed:
			url, err := w.resolveURL(ctx, current)
			if err != nil {
				return nil, err
			}
			if url != "" {
				result.AssetURL = url
			}
			result.Status = StatusProcessed
			slog.Debug("asset processed", "job", job.ID, "elapsed", w.clock.Now().Sub(started))
			return result, nil

		case watchFailed:
			result.Status = StatusProcessingError
			slog.Debug("asset processing failed", "job", job.ID)
			return result, nil

		case watchTimedOut:
			slog.Warn("stopped waiting for asset processing", "job", job.ID, "timeout", timeout)
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-w.clock.After(w.interval):
		}
	}
}

// resolveURL looks up the asset of a complete job for its short uuid. It
// returns "" when the poll reply names no asset.
func (w *processingWatcher) resolveURL(ctx context.Context, job *nirasdk.Job) (string, error) {
	if job.AssetID == "" {
		if job.AssetShortUUID != "" {
			return w.assetURL(job.AssetShortUUID), nil
		}
		return "", nil
	}

	asset, err := w.assets.Get(ctx, string(job.AssetID))
	if err != nil {
		return "", err
	}
	return w.assetURL(asset.ShortUUID), nil
}
