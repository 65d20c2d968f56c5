package nirasdk

import (
	"context"
	"fmt"
)

const (
	apiJobs  = "api/jobs"
	apiFiles = "api/files"
)

// JobsAPI creates upload jobs, moves them through their lifecycle and
// registers the files that belong to them.
type JobsAPI struct {
	t *transport
}

func newJobsAPI(t *transport) *JobsAPI {
	return &JobsAPI{t: t}
}

// Create opens a new job. Status defaults to validating.
func (j *JobsAPI) Create(ctx context.Context, params *CreateJobParams) (*Job, error) {
	if params.Status == "" {
		params.Status = JobValidating
	}

	r, err := j.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var job Job
	resp, err := r.SetBody(params).SetSuccessResult(&job).Post(apiJobs)
	if err := handleAPIError(resp, err, "create job"); err != nil {
		return nil, err
	}

	return &job, nil
}

// Get polls the current job status.
func (j *JobsAPI) Get(ctx context.Context, id int64) (*Job, error) {
	r, err := j.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var job Job
	resp, err := r.SetSuccessResult(&job).Get(fmt.Sprintf("%s/%d", apiJobs, id))
	if err := handleAPIError(resp, err, "get job"); err != nil {
		return nil, err
	}

	return &job, nil
}

// Transition moves the job to status. The caller owns the ordering.
func (j *JobsAPI) Transition(ctx context.Context, id int64, batchID string, status JobStatus) error {
	r, err := j.t.request(ctx)
	if err != nil {
		return err
	}

	resp, err := r.
		SetBody(&transitionJobParams{Status: status, BatchID: batchID}).
		Patch(fmt.Sprintf("%s/%d", apiJobs, id))

	return handleAPIError(resp, err, "transition job to "+string(status))
}

// RegisterFile creates the server record for one file of a job. A returned
// status of ready_for_processing means the content is already stored.
func (j *JobsAPI) RegisterFile(ctx context.Context, params *RegisterFileParams) (*FileRecord, error) {
	r, err := j.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var record FileRecord
	resp, err := r.SetBody(params).SetSuccessResult(&record).Post(apiFiles)
	if err := handleAPIError(resp, err, "register file "+params.FileName); err != nil {
		return nil, err
	}

	if record.UUID == "" {
		record.UUID = params.UUID
	}
	if record.FileName == "" {
		record.FileName = params.FileName
	}

	return &record, nil
}
