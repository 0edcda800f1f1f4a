package definition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/pass"
)

const (
	// Filename is the name of the pass definition in a source directory and in an archive.
	Filename = "pass.json"
	// PersonalizationFilename is the name of the personalization dictionary.
	PersonalizationFilename = "personalization.json"
)

// Repository defines persistence operations for pass definitions.
// Load methods return ErrNotFound for absent files and ErrDecode for undecodable ones.
type Repository interface {
	Load(ctx context.Context) (*pass.Pass, error)
	LoadPersonalization(ctx context.Context) (*pass.Personalization, error)
	Save(ctx context.Context, p *pass.Pass) error
	SavePersonalization(ctx context.Context, p *pass.Personalization) error
}

// FileRepository reads and writes definitions inside one directory.
type FileRepository struct {
	// dir is the pass source directory.
	dir string
	// mu serializes access to the definition files.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = errors.New("definition not found")
	// ErrDecode is returned when a file exists but cannot be decoded.
	ErrDecode = errors.New("decode definition")
)

var _ Repository = (*FileRepository)(nil)

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
	}
}

// Load reads and decodes pass.json.
func (r *FileRepository) Load(_ context.Context) (*pass.Pass, error) {
	contents, err := r.read(Filename)
	if err != nil {
		return nil, err
	}

	p, err := pass.Decode(contents)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, Filename, err)
	}

	return p, nil
}

// LoadPersonalization reads and decodes personalization.json.
func (r *FileRepository) LoadPersonalization(_ context.Context) (*pass.Personalization, error) {
	contents, err := r.read(PersonalizationFilename)
	if err != nil {
		return nil, err
	}

	p, err := pass.DecodePersonalization(contents)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, PersonalizationFilename, err)
	}

	return p, nil
}

// Save writes the canonical encoding of p as pass.json.
func (r *FileRepository) Save(_ context.Context, p *pass.Pass) error {
	data, err := pass.Encode(p)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}

	return r.write(Filename, data)
}

// SavePersonalization writes the canonical encoding of p as personalization.json.
func (r *FileRepository) SavePersonalization(_ context.Context, p *pass.Personalization) error {
	data, err := pass.EncodePersonalization(p)
	if err != nil {
		return fmt.Errorf("encode personalization: %w", err)
	}

	return r.write(PersonalizationFilename, data)
}

func (r *FileRepository) read(name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return contents, nil
}

func (r *FileRepository) write(name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create directory %s: %w", r.dir, err)
	}

	if err := os.WriteFile(filepath.Join(r.dir, name), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
