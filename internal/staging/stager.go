package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/logger"
)

var errNotDirectory = errors.New("not a directory")

// Stager copies the assets of a source directory into a workspace.
type Stager struct {
	// reserved lists names that are never staged as assets.
	reserved []string
}

// NewStager returns a stager that skips the reserved names.
func NewStager(reserved ...string) *Stager {
	return &Stager{reserved: slices.Clone(reserved)}
}

// Stage copies every eligible file of source into ws and returns the staged names in lexical order.
// The source is read once; later changes to it do not affect the build.
func (s *Stager) Stage(ctx context.Context, source string, ws *Workspace) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, build.Fail(build.ErrResourceNotFound, source, err)
	}

	if !info.IsDir() {
		return nil, build.Fail(build.ErrResourceNotFound, source, errNotDirectory)
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, build.Fail(build.ErrResourceNotFound, source, err)
	}

	staged := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()

		if skip, reason := s.skip(source, entry); skip {
			logger.DebugKV(ctx, "Skipping source entry", "name", name, "reason", reason)

			continue
		}

		if err = copyFile(filepath.Join(source, name), ws.Join(name)); err != nil {
			return nil, build.Fail(build.ErrCopy, name, err)
		}

		staged = append(staged, name)
	}

	logger.DebugKV(ctx, "Assets staged", "source", source, "count", len(staged))

	return staged, nil
}

func (s *Stager) skip(source string, entry os.DirEntry) (bool, string) {
	name := entry.Name()

	switch {
	case strings.HasPrefix(name, "."):
		return true, "hidden"
	case entry.IsDir():
		return true, "directory"
	case slices.Contains(s.reserved, name):
		return true, "reserved"
	}

	if entry.Type().IsRegular() {
		return false, ""
	}

	// Symbolic links are followed; anything else that is not a regular file is skipped.
	info, err := os.Stat(filepath.Join(source, name))
	if err == nil && info.Mode().IsRegular() {
		return false, ""
	}

	return true, "not a regular file"
}

func copyFile(from, to string) (err error) {
	src, err := os.Open(filepath.Clean(from))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(filepath.Clean(to), os.O_WRONLY|os.O_CREATE|os.O_EXCL, config.DefaultFilePermissions)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", to, closeErr)
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return err
	}

	return nil
}
