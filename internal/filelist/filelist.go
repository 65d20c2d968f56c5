// Package filelist turns command line arguments or a document on stdin into
// the list of files of an upload.
package filelist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/niraclient/internal/uploader"
)

var (
	ErrNoMatches = errors.New("pattern matched no files")
	ErrEmptyList = errors.New("file list is empty")
	ErrNoPath    = errors.New("entry needs a path or a fetchurl")
)

// FromArgs expands each argument: glob patterns (** included) are matched,
// directories are walked honoring .niraignore, anything else is taken as a
// file path. Duplicates are dropped, first occurrence wins. fileType is
// applied to every entry when not empty.
func FromArgs(args []string, fileType string) ([]uploader.FileSpec, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	var specs []uploader.FileSpec

	add := func(p string) {
		key := filepath.Clean(p)
		if !seen.Add(key) {
			return
		}
		specs = append(specs, uploader.FileSpec{Path: p, Type: fileType})
	}

	for _, arg := range args {
		paths, err := expand(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			add(p)
		}
	}

	if len(specs) == 0 {
		return nil, &uploader.InputError{Err: ErrEmptyList}
	}
	return specs, nil
}

func expand(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	switch {
	case err == nil && info.IsDir():
		return walkDir(arg)
	case err == nil:
		return []string{arg}, nil
	}

	// not a literal path, so maybe a pattern
	if !hasMeta(arg) {
		return []string{arg}, nil
	}

	matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &uploader.InputError{Path: arg, Err: err}
	}
	if len(matches) == 0 {
		return nil, &uploader.InputError{Path: arg, Err: ErrNoMatches}
	}
	sort.Strings(matches)
	return matches, nil
}

func hasMeta(p string) bool {
	for _, c := range p {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// walkDir lists the regular files under dir in lexical order.
func walkDir(dir string) ([]string, error) {
	ignore := LoadIgnoreList(dir)
	var out []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if ignore.ShouldIgnore(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignore.ShouldIgnore(rel) {
			return nil
		}

		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, &uploader.InputError{Path: dir, Err: fmt.Errorf("walk: %w", err)}
	}
	return out, nil
}
