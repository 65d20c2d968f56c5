package filelist

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/openmined/niraclient/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is read from the root of every directory argument.
const IgnoreFileName = ".niraignore"

var defaultIgnoreLines = []string{
	IgnoreFileName,
	// vcs
	".git",
	".svn",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	// editors and DCC autosaves
	"*.tmp",
	"*.swp",
	"*~",
	"*.blend1",
	"*.ma.swatches",
}

// IgnoreList applies gitignore rules relative to one directory.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

// LoadIgnoreList compiles the defaults plus baseDir/.niraignore when present.
func LoadIgnoreList(baseDir string) *IgnoreList {
	lines := slices.Clone(defaultIgnoreLines)
	ignorePath := filepath.Join(baseDir, IgnoreFileName)

	if utils.FileExists(ignorePath) {
		lines = append(lines, readIgnoreLines(ignorePath)...)
	}

	return &IgnoreList{
		baseDir: baseDir,
		ignore:  gitignore.CompileIgnoreLines(lines...),
	}
}

func readIgnoreLines(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		slog.Warn("open ignore file", "path", path, "error", err)
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("read ignore file", "path", path, "error", err)
	} else {
		slog.Debug("loaded ignore file", "path", path, "rules", len(lines))
	}
	return lines
}

// ShouldIgnore takes a path relative to the base directory.
func (s *IgnoreList) ShouldIgnore(relPath string) bool {
	return s.ignore.MatchesPath(filepath.ToSlash(relPath))
}
