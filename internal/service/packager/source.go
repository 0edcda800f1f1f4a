package packager

import (
	"context"
	"errors"

	"github.com/oshokin/passkit/internal/archive"
	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/domain/pass"
	"github.com/oshokin/passkit/internal/logger"
	"github.com/oshokin/passkit/internal/manifest"
	"github.com/oshokin/passkit/internal/repository/definition"
	"github.com/oshokin/passkit/internal/signing"
	"github.com/oshokin/passkit/internal/staging"
)

// Assembler publishes archive entries at a destination.
type Assembler interface {
	Assemble(ctx context.Context, destination string, entries []archive.Entry) (*archive.Result, error)
}

// Result describes a successful build.
type Result struct {
	*archive.Result

	// Manifest is the manifest written into the archive.
	Manifest manifest.Manifest
	// Entries lists the archive entry names in order.
	Entries []string
}

// Source is a pass source directory plus an optional supplied definition.
// Concurrent builds of one Source are safe as long as their destinations differ.
type Source struct {
	dir             string
	repository      definition.Repository
	definition      *pass.Pass
	personalization *pass.Personalization
	signer          signing.Signer
	assembler       Assembler
	workspacePrefix string
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSigner sets the manifest signer. A source without one fails at the signing stage.
func WithSigner(signer signing.Signer) SourceOption {
	return func(s *Source) {
		s.signer = signer
	}
}

// WithAssembler replaces the default archive assembler.
func WithAssembler(assembler Assembler) SourceOption {
	return func(s *Source) {
		s.assembler = assembler
	}
}

// WithRepository replaces the directory-backed definition repository.
// Assets are still staged from the source directory.
func WithRepository(repository definition.Repository) SourceOption {
	return func(s *Source) {
		s.repository = repository
	}
}

// WithWorkspacePrefix sets the name prefix of build workspaces.
func WithWorkspacePrefix(prefix string) SourceOption {
	return func(s *Source) {
		s.workspacePrefix = prefix
	}
}

var errNoSigner = errors.New("no signer configured")

// NewSource returns a source reading assets, and pass.json when no definition is supplied, from dir.
func NewSource(dir string, options ...SourceOption) *Source {
	s := &Source{
		dir:             dir,
		repository:      definition.NewFileRepository(dir),
		assembler:       archive.NewAssembler(),
		workspacePrefix: staging.DefaultPrefix,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// AddPass supplies the definition. It takes precedence over pass.json in the directory.
// The source keeps its own copy.
func (s *Source) AddPass(p *pass.Pass) *Source {
	s.definition = p.Clone()

	return s
}

// AddPersonalization supplies personalization.json, overriding the file in the directory.
func (s *Source) AddPersonalization(p *pass.Personalization) *Source {
	s.personalization = p.Clone()

	return s
}

// Build runs the pipeline and publishes the archive at destination.
// On failure the returned error is a *build.Error, nothing is published and no workspace remains.
func (s *Source) Build(ctx context.Context, destination string) (*Result, error) {
	ctx = logger.WithKV(ctx, "destination", destination)

	machine := newTracker()

	result, err := s.build(ctx, machine, destination)
	if err != nil {
		failedAt := machine.state
		machine.fail(ctx)

		logger.ErrorKV(ctx, "Build failed",
			"state", failedAt.String(),
			"kind", kindName(err),
			"error", err)

		return nil, err
	}

	logger.InfoKV(ctx, "Build finished",
		"state", machine.state.String(),
		"digest", result.Digest.String(),
		"size", result.Size)

	return result, nil
}

func (s *Source) build(ctx context.Context, machine *tracker, destination string) (*Result, error) {
	p, personalization, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	machine.advance(ctx, build.StateContentResolved)

	definitionBytes, err := pass.Encode(p)
	if err != nil {
		return nil, build.Fail(build.ErrSerialization, definition.Filename, err)
	}

	var personalizationBytes []byte

	if personalization != nil {
		personalizationBytes, err = pass.EncodePersonalization(personalization)
		if err != nil {
			return nil, build.Fail(build.ErrSerialization, definition.PersonalizationFilename, err)
		}
	}

	ws, err := staging.NewWorkspace(s.workspacePrefix)
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := ws.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Workspace cleanup failed", "error", releaseErr)
		}
	}()

	covered, err := s.stage(ctx, ws, definitionBytes, personalizationBytes)
	if err != nil {
		return nil, err
	}

	machine.advance(ctx, build.StateAssetsStaged)

	files, m, err := manifest.Collect(ctx, ws.Path(), covered)
	if err != nil {
		return nil, err
	}

	manifestBytes, err := m.Encode()
	if err != nil {
		return nil, err
	}

	machine.advance(ctx, build.StateManifestComputed)

	if s.signer == nil {
		return nil, build.Fail(build.ErrSigning, signing.Filename, errNoSigner)
	}

	signature, err := s.signer.Sign(ctx, manifestBytes)
	if err != nil {
		return nil, asBuildError(build.ErrSigning, signing.Filename, err)
	}

	machine.advance(ctx, build.StateSigned)

	entries := make([]archive.Entry, 0, len(files)+2)
	for _, f := range files {
		entries = append(entries, archive.Entry{Name: f.Name, Data: f.Data})
	}

	entries = append(entries,
		archive.Entry{Name: manifest.Filename, Data: manifestBytes},
		archive.Entry{Name: signing.Filename, Data: signature})

	published, err := s.assembler.Assemble(ctx, destination, entries)
	if err != nil {
		return nil, asBuildError(build.ErrWrite, destination, err)
	}

	machine.advance(ctx, build.StateArchived)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}

	return &Result{
		Result:   published,
		Manifest: m,
		Entries:  names,
	}, nil
}

// resolve picks the supplied definition or falls back to the files of the source directory.
func (s *Source) resolve(ctx context.Context) (*pass.Pass, *pass.Personalization, error) {
	p := s.definition
	if p == nil {
		loaded, err := s.repository.Load(ctx)

		switch {
		case errors.Is(err, definition.ErrNotFound):
			return nil, nil, build.Fail(build.ErrContentMissing, s.dir, err)
		case errors.Is(err, definition.ErrDecode):
			return nil, nil, build.Fail(build.ErrParse, definition.Filename, err)
		case err != nil:
			return nil, nil, build.Fail(build.ErrResourceNotFound, s.dir, err)
		}

		p = loaded

		logger.DebugKV(ctx, "Definition loaded", "path", s.dir, "serial", p.SerialNumber)
	}

	personalization := s.personalization
	if personalization == nil {
		loaded, err := s.repository.LoadPersonalization(ctx)

		switch {
		case errors.Is(err, definition.ErrNotFound):
		case errors.Is(err, definition.ErrDecode):
			return nil, nil, build.Fail(build.ErrParse, definition.PersonalizationFilename, err)
		case err != nil:
			return nil, nil, build.Fail(build.ErrResourceNotFound, s.dir, err)
		default:
			personalization = loaded
		}
	}

	return p, personalization, nil
}

// stage writes the canonical definition files and copies the assets. It returns
// every name the manifest must cover, definition files first.
func (s *Source) stage(ctx context.Context, ws *staging.Workspace, definitionBytes, personalizationBytes []byte) ([]string, error) {
	covered := []string{definition.Filename}

	if err := ws.WriteFile(definition.Filename, definitionBytes); err != nil {
		return nil, err
	}

	if personalizationBytes != nil {
		if err := ws.WriteFile(definition.PersonalizationFilename, personalizationBytes); err != nil {
			return nil, err
		}

		covered = append(covered, definition.PersonalizationFilename)
	}

	stager := staging.NewStager(ReservedNames()...)

	assets, err := stager.Stage(ctx, s.dir, ws)
	if err != nil {
		return nil, err
	}

	return append(covered, assets...), nil
}

// ReservedNames are the source entries never copied as assets.
func ReservedNames() []string {
	return []string{
		definition.Filename,
		definition.PersonalizationFilename,
		manifest.Filename,
		signing.Filename,
	}
}

// asBuildError keeps a *build.Error from a collaborator and wraps anything else in kind.
func asBuildError(kind error, subject string, err error) error {
	var buildErr *build.Error
	if errors.As(err, &buildErr) {
		return err
	}

	return build.Fail(kind, subject, err)
}

func kindName(err error) string {
	if kind := build.KindOf(err); kind != nil {
		return kind.Error()
	}

	return "unknown"
}
