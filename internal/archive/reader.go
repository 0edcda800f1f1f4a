package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
)

// Contents is a fully read archive.
type Contents struct {
	// Entries keeps the archive order.
	Entries []Entry
	// Digest is the SHA-256 digest of the archive file.
	Digest digest.Digest
	// Size is the archive length in bytes.
	Size int64
}

// Lookup returns the entry called name.
func (c *Contents) Lookup(name string) (Entry, bool) {
	for _, entry := range c.Entries {
		if entry.Name == name {
			return entry, true
		}
	}

	return Entry{}, false
}

// Names lists entry names in archive order.
func (c *Contents) Names() []string {
	names := make([]string, 0, len(c.Entries))
	for _, entry := range c.Entries {
		names = append(names, entry.Name)
	}

	return names
}

// Read loads every entry of the archive at path and checks the flat namespace.
func Read(path string) (*Contents, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	contents := &Contents{
		Entries: make([]Entry, 0, len(r.File)),
		Digest:  digest.FromBytes(data),
		Size:    int64(len(data)),
	}

	for _, f := range r.File {
		entry, err := readEntry(f)
		if err != nil {
			return nil, err
		}

		contents.Entries = append(contents.Entries, entry)
	}

	if err = CheckNames(contents.Entries); err != nil {
		return nil, err
	}

	return contents, nil
}

func readEntry(f *zip.File) (Entry, error) {
	if f.FileInfo().IsDir() {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidName, f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return Entry{}, fmt.Errorf("open entry %s: %w", f.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Entry{}, fmt.Errorf("read entry %s: %w", f.Name, err)
	}

	return Entry{Name: f.Name, Data: data}, nil
}
