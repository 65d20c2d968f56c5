package uploader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/openmined/niraclient/internal/nirasdk"
)

type jobsAPI interface {
	Create(ctx context.Context, params *nirasdk.CreateJobParams) (*nirasdk.Job, error)
	Get(ctx context.Context, id int64) (*nirasdk.Job, error)
	Transition(ctx context.Context, id int64, batchID string, status nirasdk.JobStatus) error
	RegisterFile(ctx context.Context, params *nirasdk.RegisterFileParams) (*nirasdk.FileRecord, error)
}

type assetsAPI interface {
	Get(ctx context.Context, id string) (*nirasdk.Asset, error)
}

type uploadAPI interface {
	Part(ctx context.Context, host string, params *nirasdk.UploadPartParams, data []byte) error
	Done(ctx context.Context, host string, params *nirasdk.UploadDoneParams) error
}

// fileTask carries one file through hashing, registration and upload.
type fileTask struct {
	spec        FileSpec
	size        int64
	fingerprint string
	record      *nirasdk.FileRecord
}

func (t *fileTask) deduplicated() bool {
	return t.record != nil && t.record.Status == nirasdk.FileReadyForProcessing
}

// jobCoordinator owns the job record of one upload and the batch id that
// ties every call of that upload together.
type jobCoordinator struct {
	jobs    jobsAPI
	batchID string
	job     *nirasdk.Job
}

func newJobCoordinator(jobs jobsAPI) *jobCoordinator {
	return &jobCoordinator{jobs: jobs, batchID: uuid.NewString()}
}

func (c *jobCoordinator) CreateJob(ctx context.Context, req *UploadRequest) (*nirasdk.Job, error) {
	params := &nirasdk.CreateJobParams{
		Status:    nirasdk.JobValidating,
		AssetType: req.AssetType,
		AssetName: req.AssetName,
		BatchID:   c.batchID,
		DCCName:   req.DCCName,
	}

	if req.fetching() {
		for _, f := range req.Files {
			params.FetchFiles = append(params.FetchFiles, nirasdk.FetchFile{
				Path:     f.Path,
				Type:     f.Type,
				FetchURL: f.FetchURL,
			})
		}
	}

	job, err := c.jobs.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	c.job = job
	return job, nil
}

func (c *jobCoordinator) RegisterFile(ctx context.Context, task *fileTask) error {
	record, err := c.jobs.RegisterFile(ctx, &nirasdk.RegisterFileParams{
		FileName:    filepath.Base(task.spec.Path),
		UserPath:    userPath(task.spec.Path),
		UUID:        uuid.NewString(),
		JobID:       c.job.ID,
		Fingerprint: task.fingerprint,
		FileSize:    task.size,
		Type:        task.spec.Type,
	})
	if err != nil {
		return err
	}
	task.record = record
	return nil
}

func (c *jobCoordinator) TransitionState(ctx context.Context, status nirasdk.JobStatus) error {
	if err := c.jobs.Transition(ctx, c.job.ID, c.batchID, status); err != nil {
		return err
	}
	c.job.Status = status
	return nil
}

// userPath is the directory part of p as the user wrote it, empty for a bare file name.
func userPath(p string) string {
	i := strings.LastIndexAny(p, "/"+string(os.PathSeparator))
	switch {
	case i < 0:
		return ""
	case i == 0:
		return p[:1]
	default:
		return p[:i]
	}
}
