package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/logger"
)

var (
	// ErrInvalidName is returned for entry names that are empty or not at the archive root.
	ErrInvalidName = errors.New("invalid entry name")
	// ErrDuplicateName is returned when two entries share a name.
	ErrDuplicateName = errors.New("duplicate entry name")

	errUnknownCompression = errors.New("unknown compression")
	errNotRegular         = errors.New("destination is not a regular file")
)

// Entry is one file of the archive.
type Entry struct {
	Name string
	Data []byte
}

// Result describes a published archive.
type Result struct {
	// Path is the destination the archive was published to.
	Path string
	// Digest is the SHA-256 digest of the archive bytes.
	Digest digest.Digest
	// Size is the archive length in bytes.
	Size int64
}

// Assembler writes archives with a fixed compression level.
type Assembler struct {
	level int
	mode  os.FileMode
	now   func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLevel sets the flate level; flate.NoCompression stores entries uncompressed.
func WithLevel(level int) Option {
	return func(a *Assembler) {
		a.level = level
	}
}

// NewAssembler returns an assembler using default compression.
func NewAssembler(options ...Option) *Assembler {
	a := &Assembler{
		level: flate.DefaultCompression,
		mode:  config.DefaultArchivePermissions,
		now:   time.Now,
	}

	for _, option := range options {
		option(a)
	}

	return a
}

// LevelFor maps a config compression name to a flate level.
func LevelFor(name string) (int, error) {
	switch name {
	case "", config.CompressionDefault:
		return flate.DefaultCompression, nil
	case config.CompressionFast:
		return flate.BestSpeed, nil
	case config.CompressionBest:
		return flate.BestCompression, nil
	case config.CompressionNone:
		return flate.NoCompression, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownCompression, name)
	}
}

// Assemble writes entries, in order, into a zip published at destination.
// On any failure the destination is left as it was.
func (a *Assembler) Assemble(ctx context.Context, destination string, entries []Entry) (*Result, error) {
	if err := CheckNames(entries); err != nil {
		return nil, build.Fail(build.ErrWrite, destination, err)
	}

	if err := a.checkWritable(destination); err != nil {
		return nil, build.Fail(build.ErrWrite, destination, err)
	}

	data, err := a.encode(entries)
	if err != nil {
		return nil, build.Fail(build.ErrWrite, destination, err)
	}

	if err = a.publish(destination, data); err != nil {
		return nil, build.Fail(build.ErrWrite, destination, err)
	}

	result := &Result{
		Path:   destination,
		Digest: digest.FromBytes(data),
		Size:   int64(len(data)),
	}

	logger.DebugKV(ctx, "Archive published",
		"path", result.Path,
		"digest", result.Digest.String(),
		"entries", len(entries))

	return result, nil
}

// CheckNames rejects empty, nested, relative and duplicate names.
func CheckNames(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		name := entry.Name
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}

		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}

		seen[name] = struct{}{}
	}

	return nil
}

func (a *Assembler) encode(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	level := a.level
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	method := zip.Deflate
	if level == flate.NoCompression {
		method = zip.Store
	}

	modified := a.now()

	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:     entry.Name,
			Method:   method,
			Modified: modified,
		}
		header.SetMode(config.DefaultArchivePermissions)

		fw, err := w.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", entry.Name, err)
		}

		if _, err = fw.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", entry.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	return buf.Bytes(), nil
}

// publish makes data visible at destination in one step. An existing archive
// is overwritten by the final rename, so readers see either the old or the new bytes.
func (a *Assembler) publish(destination string, data []byte) error {
	info, err := os.Stat(destination)

	switch {
	case err == nil && !info.Mode().IsRegular():
		return fmt.Errorf("%w: %s", errNotRegular, destination)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return err
	}

	return a.create(destination, data)
}

// checkWritable fails early when the destination directory does not accept new files.
func (a *Assembler) checkWritable(destination string) error {
	options := goupdate.Options{
		TargetPath: destination,
		TargetMode: a.mode,
	}

	if err := options.CheckPermissions(); err != nil {
		return fmt.Errorf("check destination: %w", err)
	}

	return nil
}

// create writes data to a temporary file next to destination and renames it into place.
func (a *Assembler) create(destination string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+"-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return err
	}

	if err = os.Chmod(tmpPath, a.mode); err != nil {
		_ = os.Remove(tmpPath)

		return err
	}

	if err = os.Rename(tmpPath, destination); err != nil {
		_ = os.Remove(tmpPath)

		return err
	}

	return nil
}
