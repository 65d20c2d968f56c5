package hasher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/openmined/niraclient/internal/utils"
)

// EnvMeowfile overrides the hash binary location.
const EnvMeowfile = "NIRA_MEOWFILE"

// MeowfileHasher runs the platform meowfile binary once per file and uses
// its stdout verbatim as the fingerprint.
type MeowfileHasher struct {
	resolve func() (string, error)
}

// NewMeowfile uses bin, or resolves the binary on the first Hash call when
// bin is empty.
func NewMeowfile(bin string) *MeowfileHasher {
	if bin == "" {
		return &MeowfileHasher{resolve: sync.OnceValues(ResolveMeowfile)}
	}
	return &MeowfileHasher{resolve: func() (string, error) { return bin, nil }}
}

// meowfileName is meowfile_<os>_<arch>, with .exe on windows.
func meowfileName() string {
	name := fmt.Sprintf("meowfile_%s_%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

// ResolveMeowfile finds the binary: $NIRA_MEOWFILE, then meowhash/ next to
// the executable, then PATH.
func ResolveMeowfile() (string, error) {
	if p := os.Getenv(EnvMeowfile); p != "" {
		if !utils.FileExists(p) {
			return "", fmt.Errorf("%w: %s=%s", ErrBinaryNotFound, EnvMeowfile, p)
		}
		return p, nil
	}

	name := meowfileName()

	if dir, err := utils.ExecutableDir(); err == nil {
		p := filepath.Join(dir, "meowhash", name)
		if utils.FileExists(p) {
			return p, nil
		}
	}

	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}
	return p, nil
}

func (m *MeowfileHasher) Hash(ctx context.Context, path string) (string, error) {
	bin, err := m.resolve()
	if err != nil {
		return "", &HashError{Path: path, Err: err}
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", &HashError{Path: path, Err: fmt.Errorf("%w: %s", ErrBinaryNotFound, bin)}
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", &HashError{Path: path, Err: fmt.Errorf("%w: %s", err, msg)}
		}
		return "", &HashError{Path: path, Err: err}
	}

	if stdout.Len() != FingerprintLen {
		return "", &HashError{Path: path, Err: fmt.Errorf("%w: %d bytes %q", ErrUnexpectedOutput, stdout.Len(), stdout.String())}
	}

	return stdout.String(), nil
}
