package nirasdk

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/imroc/req/v3"
)

const (
	uploadPartPath = "file-upload-part"
	uploadDonePath = "file-upload-done"
)

// UploadAPI talks to the upload service host handed out per job.
type UploadAPI struct {
	t *transport
}

func newUploadAPI(t *transport) *UploadAPI {
	return &UploadAPI{t: t}
}

// uploadServiceURL accepts a bare host or a full base url.
func uploadServiceURL(host, path string) string {
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return strings.TrimSuffix(host, "/") + "/" + path
}

// Part sends one chunk as multipart form data: a JSON params field and the
// raw (possibly compressed) bytes. Both fields are re-read on every retry.
func (u *UploadAPI) Part(ctx context.Context, host string, params *UploadPartParams, data []byte) error {
	if host == "" {
		return ErrNoUploadServiceHost
	}

	paramsJSON, err := jsonMarshal(params)
	if err != nil {
		return err
	}

	r, err := u.t.request(ctx)
	if err != nil {
		return err
	}

	resp, err := r.
		SetFileUpload(
			req.FileUpload{
				// plain form field, no filename
				ParamName:   "params",
				FileSize:    int64(len(paramsJSON)),
				ContentType: "application/json",
				GetFileContent: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(paramsJSON)), nil
				},
			},
			req.FileUpload{
				ParamName:   "data",
				FileName:    params.FileName,
				FileSize:    int64(len(data)),
				ContentType: "application/octet-stream",
				GetFileContent: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(data)), nil
				},
			},
		).
		Post(uploadServiceURL(host, uploadPartPath))

	if err := handleAPIError(resp, err, "upload part"); err != nil {
		return err
	}

	u.t.stats.onSend(len(data))
	return nil
}

// Done finalizes a file once all of its parts are on the server.
func (u *UploadAPI) Done(ctx context.Context, host string, params *UploadDoneParams) error {
	if host == "" {
		return ErrNoUploadServiceHost
	}

	r, err := u.t.request(ctx)
	if err != nil {
		return err
	}

	resp, err := r.SetBody(params).Post(uploadServiceURL(host, uploadDonePath))
	return handleAPIError(resp, err, "upload done "+params.FileName)
}
