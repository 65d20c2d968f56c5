package uploader

import (
	"errors"
	"fmt"
	"time"
)

// Status is the outcome reported to the caller of UploadAsset.
type Status string

const (
	StatusPending         Status = "Pending"
	StatusProcessed       Status = "Processed"
	StatusProcessingError Status = "Processing Error"
)

var (
	ErrNoFiles     = errors.New("no files to upload")
	ErrNoAssetName = errors.New("asset name is required")
	ErrNoAssetType = errors.New("asset type is required")
	ErrFileMissing = errors.New("file not found")
	ErrNotAFile    = errors.New("not a regular file")
	ErrMixedFiles  = errors.New("either every file or none needs a fetchurl")
)

// InputError is a problem with the caller's input, found before any request is made.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// FileSpec is one file of an upload. When FetchURL is set on any file of a
// request, the server downloads every file itself and Path may be empty.
type FileSpec struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	FetchURL string `json:"fetchurl,omitempty" yaml:"fetchurl,omitempty"`
}

// UploadRequest describes one UploadAsset call.
type UploadRequest struct {
	Files     []FileSpec
	AssetType string
	AssetName string
	DCCName   string

	DisableCompression bool

	// MaxWait bounds the processing wait. Zero returns Pending right after upload.
	MaxWait time.Duration
}

func (r *UploadRequest) fetching() bool {
	for _, f := range r.Files {
		if f.FetchURL != "" {
			return true
		}
	}
	return false
}

// UploadResult is what the caller gets back once the job leaves the client.
type UploadResult struct {
	AssetURL string
	JobID    int64
	Status   Status
	Stats    TransferStats
}
