package uploader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/stretchr/testify/require"
)

const (
	testJobID     = 42
	testAssetID   = 99
	testShortUUID = "AAAAAAAAAAAAAAAAAAAAAA"
	finalSUUID    = "BBBBBBBBBBBBBBBBBBBBBB"
	testHash      = "0123abcd-4567-89ef-0123-456789abcdef"
)

type receivedPart struct {
	params nirasdk.UploadPartParams
	data   []byte
}

// fakeNira plays both the org api and the upload service.
type fakeNira struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	calls       []string
	created     map[string]any
	registered  []nirasdk.RegisterFileParams
	transitions []nirasdk.JobStatus
	parts       []receivedPart
	done        []nirasdk.UploadDoneParams
	polls       int

	// knobs
	jobStatuses []nirasdk.JobStatus
	fileStatus  nirasdk.FileStatus
	failParts   bool
}

func newFakeNira(t *testing.T) *fakeNira {
	t.Helper()
	f := &fakeNira{t: t, fileStatus: nirasdk.FilePending}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeNira) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeNira) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/jobs":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = body
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{
			"id":                testJobID,
			"status":            "validating",
			"uploadServiceHost": f.srv.URL,
			"assetShortUuid":    testShortUUID,
		})

	case r.Method == http.MethodPost && r.URL.Path == "/api/files":
		var p nirasdk.RegisterFileParams
		_ = json.NewDecoder(r.Body).Decode(&p)
		f.mu.Lock()
		f.registered = append(f.registered, p)
		status := f.fileStatus
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{"uuid": p.UUID, "fileName": p.FileName, "status": status})

	case r.Method == http.MethodPatch && r.URL.Path == "/api/jobs/42":
		var body struct {
			Status nirasdk.JobStatus `json:"status"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.transitions = append(f.transitions, body.Status)
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{})

	case r.Method == http.MethodGet && r.URL.Path == "/api/jobs/42":
		f.mu.Lock()
		status := nirasdk.JobUploaded
		if len(f.jobStatuses) > 0 {
			status = f.jobStatuses[min(f.polls, len(f.jobStatuses)-1)]
		}
		f.polls++
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{"id": testJobID, "status": status, "assetId": testAssetID})

	case r.Method == http.MethodGet && r.URL.Path == "/api/assets/99":
		f.writeJSON(w, map[string]any{"suuid": finalSUUID, "name": "asset"})

	case r.Method == http.MethodPost && r.URL.Path == "/file-upload-part":
		f.handlePart(w, r)

	case r.Method == http.MethodPost && r.URL.Path == "/file-upload-done":
		var p nirasdk.UploadDoneParams
		_ = json.NewDecoder(r.Body).Decode(&p)
		f.mu.Lock()
		f.done = append(f.done, p)
		f.mu.Unlock()

	default:
		f.t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeNira) handlePart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	fail := f.failParts
	f.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("disk full"))
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		f.t.Errorf("multipart: %v", err)
		return
	}

	var part receivedPart
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.t.Errorf("next part: %v", err)
			return
		}
		b, _ := io.ReadAll(p)
		switch p.FormName() {
		case "params":
			_ = json.Unmarshal(b, &part.params)
		case "data":
			part.data = b
		}
	}

	f.mu.Lock()
	f.parts = append(f.parts, part)
	f.mu.Unlock()
}

func (f *fakeNira) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// reassemble rebuilds a file from the received parts, inflating compressed ones.
func (f *fakeNira) reassemble(t *testing.T, size int64) []byte {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]byte, size)
	for _, p := range f.parts {
		data := p.data
		if p.params.Compression == nirasdk.CompressionDeflate {
			zr, err := zlib.NewReader(bytes.NewReader(data))
			require.NoError(t, err)
			data, err = io.ReadAll(zr)
			require.NoError(t, err)
		}
		copy(out[p.params.PartByteOffset:], data)
	}
	return out
}

type staticHasher struct{}

func (staticHasher) Hash(ctx context.Context, path string) (string, error) {
	return testHash, nil
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newTestPipeline(t *testing.T, f *fakeNira, opts *Options) (*Pipeline, *nirasdk.NiraSDK) {
	t.Helper()
	sdk, err := nirasdk.New(&nirasdk.Config{
		Org:          "example.nira.app",
		APIKeyID:     "key-id",
		APIKeySecret: "key-secret",
		BaseURL:      f.srv.URL,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(sdk.Close)

	if opts == nil {
		opts = &Options{}
	}
	if opts.Clock == nil {
		opts.Clock = newFakeClock()
	}
	return New(sdk, staticHasher{}, opts), sdk
}
