package uploader

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePatternFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i*7 + i/4096)
	}
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p, content
}

func writeRandomFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	content := make([]byte, size)
	_, err := rand.Read(content)
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p, content
}

func partSizes(f *fakeNira) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, 0, len(f.parts))
	for _, p := range f.parts {
		sizes = append(sizes, p.params.ChunkSize)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

func TestUploadAsset_ThreePartsOneDone(t *testing.T) {
	const mib = 1 << 20
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, nil)

	path, content := writePatternFile(t, "scan.obj", 45*mib)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:              []FileSpec{{Path: path}},
		AssetType:          "photogrammetry",
		AssetName:          "bridge",
		DisableCompression: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{20 * mib, 20 * mib, 5 * mib}, partSizes(f))
	require.Len(t, f.done, 1)
	assert.Equal(t, 3, f.done[0].TotalParts)
	assert.Equal(t, int64(45*mib), f.done[0].TotalFileSize)
	assert.Equal(t, testHash, f.done[0].Fingerprint)
	assert.Equal(t, "validating", f.created["status"])
	assert.Equal(t, []nirasdk.JobStatus{nirasdk.JobUploading, nirasdk.JobUploaded}, f.transitions)

	for _, part := range f.parts {
		assert.Equal(t, 3, part.params.TotalParts)
		assert.Empty(t, part.params.Compression)
		assert.Equal(t, "scan.obj", part.params.FileName)
	}
	assert.True(t, bytes.Equal(content, f.reassemble(t, int64(len(content)))))

	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, int64(testJobID), result.JobID)
	assert.Equal(t, 1, result.Stats.Files)
	assert.Equal(t, int64(3), result.Stats.PartsSent)
	assert.Equal(t, int64(45*mib), result.Stats.BytesRead)
}

func TestUploadAsset_NoWaitReturnsPendingWithoutPolling(t *testing.T) {
	f := newFakeNira(t)
	p, sdk := newTestPipeline(t, f, nil)
	path, _ := writePatternFile(t, "a.obj", 1024)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, sdk.AssetURL(testShortUUID), result.AssetURL)
	assert.Zero(t, f.callCount("GET /api/jobs"))
	assert.Zero(t, f.polls)
}

func TestUploadAsset_ServerErrorOnFirstPoll(t *testing.T) {
	f := newFakeNira(t)
	f.jobStatuses = []nirasdk.JobStatus{nirasdk.JobError}
	clock := newFakeClock()
	p, _ := newTestPipeline(t, f, &Options{Clock: clock})
	path, _ := writePatternFile(t, "a.obj", 1024)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
		MaxWait:   time.Hour,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessingError, result.Status)
	assert.Equal(t, 1, f.polls)
	assert.Empty(t, clock.sleeps)
}

func TestUploadAsset_MissingFileFailsBeforeAnyRequest(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, nil)
	existing, _ := writePatternFile(t, "a.obj", 10)
	missing := filepath.Join(t.TempDir(), "missing.obj")

	_, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: existing}, {Path: missing}},
		AssetType: "standard",
		AssetName: "a",
	})

	var ierr *InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, missing, ierr.Path)
	assert.ErrorIs(t, err, ErrFileMissing)
	assert.Empty(t, f.calls)
}

func TestUploadAsset_InputValidation(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, nil)
	path, _ := writePatternFile(t, "a.obj", 10)

	tests := []struct {
		name string
		req  *UploadRequest
		want error
	}{
		{name: "no files", req: &UploadRequest{AssetType: "standard", AssetName: "a"}, want: ErrNoFiles},
		{name: "no name", req: &UploadRequest{Files: []FileSpec{{Path: path}}, AssetType: "standard"}, want: ErrNoAssetName},
		{name: "no type", req: &UploadRequest{Files: []FileSpec{{Path: path}}, AssetName: "a"}, want: ErrNoAssetType},
		{name: "directory", req: &UploadRequest{Files: []FileSpec{{Path: t.TempDir()}}, AssetType: "standard", AssetName: "a"}, want: ErrNotAFile},
		{
			name: "mixed fetch and local",
			req: &UploadRequest{
				Files:     []FileSpec{{Path: path}, {FetchURL: "https://cdn.example.com/b.zip"}},
				AssetType: "standard",
				AssetName: "a",
			},
			want: ErrMixedFiles,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.UploadAsset(t.Context(), tt.req)
			var ierr *InputError
			require.ErrorAs(t, err, &ierr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.calls)
}

func TestUploadAsset_WaitsUntilProcessed(t *testing.T) {
	f := newFakeNira(t)
	f.jobStatuses = []nirasdk.JobStatus{nirasdk.JobUploaded, nirasdk.JobUploaded, nirasdk.JobComplete}
	clock := newFakeClock()
	p, sdk := newTestPipeline(t, f, &Options{Clock: clock})
	path, _ := writePatternFile(t, "a.obj", 10)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
		MaxWait:   time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, result.Status)
	assert.Equal(t, sdk.AssetURL(finalSUUID), result.AssetURL)
	assert.Equal(t, 3, f.polls)
	assert.Equal(t, []time.Duration{DefaultPollInterval, DefaultPollInterval}, clock.sleeps)
	assert.Equal(t, 1, f.callCount("GET /api/assets/99"))
}

func TestUploadAsset_WaitTimesOut(t *testing.T) {
	f := newFakeNira(t)
	clock := newFakeClock()
	p, sdk := newTestPipeline(t, f, &Options{Clock: clock})
	path, _ := writePatternFile(t, "a.obj", 10)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
		MaxWait:   5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, sdk.AssetURL(testShortUUID), result.AssetURL)
	assert.Equal(t, 3, f.polls)
	assert.Len(t, clock.sleeps, 2)
}

func TestUploadAsset_DeduplicatedFileIsOnlyFinalized(t *testing.T) {
	f := newFakeNira(t)
	f.fileStatus = nirasdk.FileReadyForProcessing
	p, _ := newTestPipeline(t, f, nil)
	path, _ := writePatternFile(t, "a.obj", 4096)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	assert.Zero(t, f.callCount("POST /file-upload-part"))
	assert.Equal(t, 1, f.callCount("POST /file-upload-done"))
	assert.Equal(t, 1, result.Stats.Deduplicated)
	assert.Equal(t, []nirasdk.JobStatus{nirasdk.JobUploading, nirasdk.JobUploaded}, f.transitions)
}

func TestUploadAsset_ExactMultipleSendsTrailingPartCount(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, &Options{ChunkSize: 1024})
	path, content := writePatternFile(t, "a.bin", 2048)

	_, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:              []FileSpec{{Path: path}},
		AssetType:          "standard",
		AssetName:          "a",
		DisableCompression: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.callCount("POST /file-upload-part"))
	for _, part := range f.parts {
		assert.Equal(t, 3, part.params.TotalParts)
	}
	require.Len(t, f.done, 1)
	assert.Equal(t, 3, f.done[0].TotalParts)
	assert.Equal(t, content, f.reassemble(t, 2048))
}

func TestUploadAsset_EmptyFile(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, nil)
	path, _ := writePatternFile(t, "empty.txt", 0)

	_, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	assert.Zero(t, f.callCount("POST /file-upload-part"))
	require.Len(t, f.done, 1)
	assert.Equal(t, 1, f.done[0].TotalParts)
	assert.Zero(t, f.done[0].TotalFileSize)
}

func TestUploadAsset_PoorCompressionStopsAfterSixParts(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, &Options{ChunkSize: 1024, PartWorkers: 1})
	path, content := writeRandomFile(t, "noise.bin", 10*1024)

	_, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	compressed := 0
	for _, part := range f.parts {
		if part.params.Compression == nirasdk.CompressionDeflate {
			compressed++
			assert.Less(t, part.params.PartIndex, compressionSamples)
		}
		assert.Equal(t, len(part.data), part.params.ChunkSize)
	}
	assert.Equal(t, compressionSamples, compressed)
	assert.Len(t, f.parts, 10)
	assert.Equal(t, content, f.reassemble(t, int64(len(content))))
}

func TestUploadAsset_GoodCompressionStaysOn(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, &Options{ChunkSize: 1024})
	path := filepath.Join(t.TempDir(), "zeros.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 10*1024), 0o644))

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	for _, part := range f.parts {
		assert.Equal(t, nirasdk.CompressionDeflate, part.params.Compression)
	}
	assert.Less(t, result.Stats.BytesSent, result.Stats.BytesRead)
	assert.Equal(t, make([]byte, 10*1024), f.reassemble(t, 10*1024))
}

func TestUploadAsset_ManyFiles(t *testing.T) {
	f := newFakeNira(t)
	var progressCalls atomic.Int32
	p, _ := newTestPipeline(t, f, &Options{ChunkSize: 512, Progress: func(file string, done, total int) {
		progressCalls.Add(1)
	}})

	var files []FileSpec
	for i := range 6 {
		path, _ := writePatternFile(t, "f.bin", 1000+i)
		files = append(files, FileSpec{Path: path, Type: "extra"})
	}

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     files,
		AssetType: "standard",
		AssetName: "a",
		DCCName:   "maya",
	})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Stats.Files)
	assert.Len(t, f.registered, 6)
	assert.Len(t, f.done, 6)
	assert.Equal(t, 12, f.callCount("POST /file-upload-part"))
	assert.Equal(t, int32(12), progressCalls.Load())
	assert.Equal(t, "maya", f.created["dccname"])

	uuids := map[string]bool{}
	for _, r := range f.registered {
		assert.Equal(t, int64(testJobID), r.JobID)
		assert.Equal(t, "extra", r.Type)
		assert.Equal(t, "f.bin", r.FileName)
		assert.NotEmpty(t, r.UserPath)
		uuids[r.UUID] = true
	}
	assert.Len(t, uuids, 6)

	// every register call lands before the job moves to uploading
	f.mu.Lock()
	defer f.mu.Unlock()
	lastRegister, firstPatch := -1, -1
	for i, c := range f.calls {
		if c == "POST /api/files" {
			lastRegister = i
		}
		if c == "PATCH /api/jobs/42" && firstPatch < 0 {
			firstPatch = i
		}
	}
	assert.Less(t, lastRegister, firstPatch)
}

func TestUploadAsset_PartFailureAbortsJob(t *testing.T) {
	f := newFakeNira(t)
	f.failParts = true
	p, _ := newTestPipeline(t, f, nil)
	path, _ := writePatternFile(t, "a.obj", 100)

	_, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})

	var terr *nirasdk.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 500, terr.StatusCode)
	assert.Equal(t, "disk full", terr.Body)
	assert.Equal(t, []nirasdk.JobStatus{nirasdk.JobUploading}, f.transitions)
	assert.Zero(t, f.callCount("POST /file-upload-done"))
}

func TestUploadAsset_FetchFilesSkipsTransfer(t *testing.T) {
	f := newFakeNira(t)
	p, _ := newTestPipeline(t, f, nil)

	result, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{FetchURL: "https://cdn.example/scan.obj", Type: "scene"}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, []string{"POST /api/jobs"}, f.calls)
	fetch, ok := f.created["fetchfiles"].([]any)
	require.True(t, ok)
	require.Len(t, fetch, 1)
	assert.Equal(t, "https://cdn.example/scan.obj", fetch[0].(map[string]any)["fetchurl"])
}

func TestUploadAsset_UploadServiceHostOverride(t *testing.T) {
	f := newFakeNira(t)
	other := newFakeNira(t)
	p, _ := newTestPipeline(t, f, &Options{UploadServiceHost: other.srv.URL})
	path, _ := writePatternFile(t, "a.obj", 100)

	_, err := p.UploadAsset(t.Context(), &UploadRequest{
		Files:     []FileSpec{{Path: path}},
		AssetType: "standard",
		AssetName: "a",
	})
	require.NoError(t, err)

	assert.Zero(t, f.callCount("POST /file-upload"))
	assert.Equal(t, 1, other.callCount("POST /file-upload-part"))
	assert.Equal(t, 1, other.callCount("POST /file-upload-done"))
}
