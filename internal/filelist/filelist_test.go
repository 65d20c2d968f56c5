package filelist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openmined/niraclient/internal/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(r), 0o644))
	}
}

func paths(specs []uploader.FileSpec, root string) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		rel, _ := filepath.Rel(root, s.Path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestFromArgs_PlainFilesAndDedup(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.obj", "b.mtl")

	a := filepath.Join(root, "a.obj")
	specs, err := FromArgs([]string{a, filepath.Join(root, "b.mtl"), a, filepath.Join(root, ".", "a.obj")}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.obj", "b.mtl"}, paths(specs, root))
}

func TestFromArgs_MissingPlainPathIsKept(t *testing.T) {
	// the pipeline reports missing files, with its own error
	specs, err := FromArgs([]string{"does/not/exist.obj"}, "scene")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "scene", specs[0].Type)
}

func TestFromArgs_Glob(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "photos/a/1.jpg", "photos/b/2.jpg", "photos/b/notes.txt", "mesh.obj")

	specs, err := FromArgs([]string{filepath.Join(root, "photos", "**", "*.jpg")}, "photogrammetry_image")
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/a/1.jpg", "photos/b/2.jpg"}, paths(specs, root))
	for _, s := range specs {
		assert.Equal(t, "photogrammetry_image", s.Type)
	}
}

func TestFromArgs_GlobWithoutMatches(t *testing.T) {
	_, err := FromArgs([]string{filepath.Join(t.TempDir(), "*.fbx")}, "")
	var ierr *uploader.InputError
	require.ErrorAs(t, err, &ierr)
	assert.ErrorIs(t, err, ErrNoMatches)
}

func TestFromArgs_DirectoryHonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"scene.obj",
		"textures/albedo.png",
		"textures/albedo.psd",
		"cache/tmp.bin",
		".git/HEAD",
		".DS_Store",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("*.psd\ncache/\n"), 0o644))

	specs, err := FromArgs([]string{root}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"scene.obj", "textures/albedo.png"}, paths(specs, root))
}

func TestFromArgs_Empty(t *testing.T) {
	_, err := FromArgs(nil, "")
	assert.ErrorIs(t, err, ErrEmptyList)

	_, err = FromArgs([]string{t.TempDir()}, "")
	assert.ErrorIs(t, err, ErrEmptyList)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []uploader.FileSpec
	}{
		{
			name: "json objects",
			in:   `[{"path": "a.obj", "type": "scene"}, {"path": "b.png"}]`,
			want: []uploader.FileSpec{{Path: "a.obj", Type: "scene"}, {Path: "b.png"}},
		},
		{
			name: "json strings",
			in:   ` ["a.obj", "b.png"] `,
			want: []uploader.FileSpec{{Path: "a.obj"}, {Path: "b.png"}},
		},
		{
			name: "json fetch",
			in:   `[{"fetchurl": "https://cdn.example/a.zip", "type": "extra"}]`,
			want: []uploader.FileSpec{{FetchURL: "https://cdn.example/a.zip", Type: "extra"}},
		},
		{
			name: "yaml mixed",
			in:   "- path: a.obj\n  type: scene\n- b.png\n",
			want: []uploader.FileSpec{{Path: "a.obj", Type: "scene"}, {Path: "b.png"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "empty", in: "  \n", want: ErrEmptyList},
		{name: "empty list", in: "[]", want: ErrEmptyList},
		{name: "entry without path", in: `[{"type": "scene"}]`, want: ErrNoPath},
		{name: "malformed json", in: `[{"path": }]`},
		{name: "not a list", in: "path: a.obj\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			var ierr *uploader.InputError
			require.ErrorAs(t, err, &ierr)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
