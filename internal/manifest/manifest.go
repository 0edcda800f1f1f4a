package manifest

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/logger"

	// Ensure SHA1 available for file digests.
	_ "crypto/sha1"
)

const (
	// Filename is the archive entry holding the manifest.
	Filename = "manifest.json"

	// DefaultChecksumFunction is used to digest covered files.
	DefaultChecksumFunction crypto.Hash = crypto.SHA1
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errDuplicateName   = errors.New("duplicate file name")

	// ErrDigestMismatch is returned when a file does not match its recorded digest.
	ErrDigestMismatch = errors.New("digest mismatch")
	// ErrNotListed is returned when a file is absent from the manifest.
	ErrNotListed = errors.New("file not listed in manifest")
	// ErrMissingFile is returned when a manifest entry has no matching file.
	ErrMissingFile = errors.New("manifest entry has no file")
)

// File is a named byte sequence covered by the manifest.
type File struct {
	Name string
	Data []byte
}

// Manifest maps file names to hex digests.
type Manifest map[string]string

// Digest returns the lowercase hex digest of data using DefaultChecksumFunction.
func Digest(data []byte) (string, error) {
	if !DefaultChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Collect reads the named files from dir and digests them. It never returns a
// partial manifest: the first unreadable file fails the whole pass with a DigestFailure.
func Collect(ctx context.Context, dir string, names []string) ([]File, Manifest, error) {
	files := make([]File, 0, len(names))
	m := make(Manifest, len(names))

	for _, name := range names {
		if _, ok := m[name]; ok {
			return nil, nil, build.Fail(build.ErrDigest, name, errDuplicateName)
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, build.Fail(build.ErrDigest, name, err)
		}

		sum, err := Digest(data)
		if err != nil {
			return nil, nil, build.Fail(build.ErrDigest, name, err)
		}

		m[name] = sum
		files = append(files, File{Name: name, Data: data})
	}

	logger.DebugKV(ctx, "Manifest computed", "files", len(m))

	return files, m, nil
}

// FromFiles digests in-memory files.
func FromFiles(files []File) (Manifest, error) {
	m := make(Manifest, len(files))

	for _, f := range files {
		sum, err := Digest(f.Data)
		if err != nil {
			return nil, build.Fail(build.ErrDigest, f.Name, err)
		}

		m[f.Name] = sum
	}

	return m, nil
}

// Names returns the covered file names in lexical order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Encode returns the canonical manifest bytes. Keys are sorted.
func (m Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(map[string]string(m)); err != nil {
		return nil, build.Fail(build.ErrSerialization, Filename, err)
	}

	return buf.Bytes(), nil
}

// Decode parses manifest bytes.
func Decode(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Filename, err)
	}

	return m, nil
}

// Check verifies that files are exactly the covered set and each matches its digest.
func (m Manifest) Check(files []File) error {
	var errs []error

	seen := make(map[string]struct{}, len(files))

	for _, f := range files {
		seen[f.Name] = struct{}{}

		want, ok := m[f.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotListed, f.Name))

			continue
		}

		got, err := Digest(f.Data)
		if err != nil {
			return err
		}

		if !strings.EqualFold(want, got) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDigestMismatch, f.Name))
		}
	}

	for _, name := range m.Names() {
		if _, ok := seen[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFile, name))
		}
	}

	return errors.Join(errs...)
}
