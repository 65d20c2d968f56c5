package nirasdk

import (
	"bytes"
	"strconv"
)

// FlexID is an identifier the server sends either as a number or a string.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	*id = FlexID(b)
	return nil
}

// JobStatus is the server side lifecycle of an upload job.
type JobStatus string

const (
	JobValidating JobStatus = "validating"
	JobUploading  JobStatus = "uploading"
	JobUploaded   JobStatus = "uploaded"
	JobComplete   JobStatus = "complete"
	JobError      JobStatus = "error"
)

// Terminal reports whether the server has finished with the job.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobError
}

// FileStatus is the upload state of one registered file.
type FileStatus string

const (
	FilePending            FileStatus = "pending"
	FileReadyForProcessing FileStatus = "ready_for_processing"
	FileUploaded           FileStatus = "uploaded"
)

// FetchFile asks the server to download a file itself instead of receiving its bytes.
type FetchFile struct {
	Path     string `json:"path,omitempty"`
	Type     string `json:"type,omitempty"`
	FetchURL string `json:"fetchurl"`
}

type CreateJobParams struct {
	Status     JobStatus   `json:"status"`
	AssetType  string      `json:"assettype"`
	BatchID    string      `json:"batchId"`
	AssetName  string      `json:"assetname"`
	DCCName    string      `json:"dccname,omitempty"`
	FetchFiles []FetchFile `json:"fetchfiles,omitempty"`
}

type Job struct {
	ID                int64     `json:"id"`
	Status            JobStatus `json:"status"`
	BatchID           string    `json:"batchId,omitempty"`
	UploadServiceHost string    `json:"uploadServiceHost,omitempty"`
	AssetShortUUID    string    `json:"assetShortUuid,omitempty"`
	AssetID           FlexID    `json:"assetId,omitempty"`
}

type transitionJobParams struct {
	Status  JobStatus `json:"status"`
	BatchID string    `json:"batchId"`
}

type RegisterFileParams struct {
	FileName    string `json:"fileName"`
	UserPath    string `json:"userpath"`
	UUID        string `json:"uuid"`
	JobID       int64  `json:"jobId"`
	Fingerprint string `json:"meowhash"`
	FileSize    int64  `json:"filesize"`
	Type        string `json:"type,omitempty"`
}

type FileRecord struct {
	UUID     string     `json:"uuid"`
	FileName string     `json:"fileName"`
	UserPath string     `json:"userpath,omitempty"`
	Type     string     `json:"type,omitempty"`
	FileSize int64      `json:"filesize,omitempty"`
	Status   FileStatus `json:"status"`
}
