package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/build"
)

// DefaultPrefix is the name prefix of workspace directories.
const DefaultPrefix = "pkpass-build-"

// Workspace is a scoped temporary directory owned by a single build.
type Workspace struct {
	// dir is the absolute path of the directory.
	dir string
	// once guards Release.
	once sync.Once
	// releaseErr is the result of the first Release.
	releaseErr error
}

// NewWorkspace creates an empty workspace under the system temporary directory.
func NewWorkspace(prefix string) (*Workspace, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, build.Fail(build.ErrResourceCreation, os.TempDir(), err)
	}

	return &Workspace{dir: dir}, nil
}

// Path returns the workspace directory.
func (w *Workspace) Path() string {
	return w.dir
}

// Join returns the path of name inside the workspace.
func (w *Workspace) Join(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteFile stores data under name.
func (w *Workspace) WriteFile(name string, data []byte) error {
	if err := os.WriteFile(w.Join(name), data, config.DefaultFilePermissions); err != nil {
		return build.Fail(build.ErrWrite, name, err)
	}

	return nil
}

// Release removes the workspace and everything in it. It is safe to call more than once.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.releaseErr = fmt.Errorf("remove workspace %s: %w", w.dir, err)
		}
	})

	return w.releaseErr
}
