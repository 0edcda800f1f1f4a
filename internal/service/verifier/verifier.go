package verifier

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/oshokin/passkit/internal/archive"
	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/pass"
	"github.com/oshokin/passkit/internal/logger"
	"github.com/oshokin/passkit/internal/manifest"
	"github.com/oshokin/passkit/internal/repository/definition"
	"github.com/oshokin/passkit/internal/signing"
)

// Options contains inputs for the verify entry point.
type Options struct {
	// ConfigPath is an optional settings file providing signing.roots.
	ConfigPath string
	// Archive is the archive to check.
	Archive string
	// Roots lists extra PEM files with trusted root certificates.
	Roots []string
}

// Report describes a verified archive.
type Report struct {
	Path    string
	Digest  digest.Digest
	Size    int64
	Entries []string
	// Manifest is the manifest found in the archive.
	Manifest manifest.Manifest
	// SerialNumber and PassTypeIdentifier come from the archived definition.
	SerialNumber       string
	PassTypeIdentifier string
	// Signer is the subject of the signing certificate.
	Signer string
	// ChainVerified is false when no trust roots were available.
	ChainVerified bool
}

var (
	// ErrInvalidArchive is returned for every structural or cryptographic failure.
	ErrInvalidArchive = errors.New("invalid pass archive")

	errMissingEntry = errors.New("missing entry")
	errArchivePath  = errors.New("archive path must be provided")
)

// Run loads trust roots from settings and flags, then verifies the archive.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "verify")

	if opts.Archive == "" {
		return nil, errArchivePath
	}

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	paths := append(append([]string(nil), cfg.Signing.Roots...), opts.Roots...)

	var roots *x509.CertPool

	if len(paths) > 0 {
		certs, err := signing.LoadCertificates(paths...)
		if err != nil {
			return nil, err
		}

		roots = signing.CertPool(certs...)
	} else {
		logger.Warn(ctx, "No trust roots configured, the certificate chain is not checked")
	}

	return Verify(ctx, opts.Archive, roots)
}

// Verify checks the archive at path. A nil roots pool skips chain validation.
func Verify(ctx context.Context, path string, roots *x509.CertPool) (*Report, error) {
	contents, err := archive.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	var (
		manifestEntry, signatureEntry, definitionEntry archive.Entry
		files                                          []manifest.File
	)

	found := make(map[string]bool, len(contents.Entries))

	for _, entry := range contents.Entries {
		switch entry.Name {
		case manifest.Filename:
			manifestEntry = entry
		case signing.Filename:
			signatureEntry = entry
		default:
			if entry.Name == definition.Filename {
				definitionEntry = entry
			}

			files = append(files, manifest.File{Name: entry.Name, Data: entry.Data})
		}

		found[entry.Name] = true
	}

	for _, name := range []string{definition.Filename, manifest.Filename, signing.Filename} {
		if !found[name] {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidArchive, errMissingEntry, name)
		}
	}

	p, err := pass.Decode(definitionEntry.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidArchive, definition.Filename, err)
	}

	m, err := manifest.Decode(manifestEntry.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	if err = m.Check(files); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	signer, err := signing.Verify(manifestEntry.Data, signatureEntry.Data, roots)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	report := &Report{
		Path:               path,
		Digest:             contents.Digest,
		Size:               contents.Size,
		Entries:            contents.Names(),
		Manifest:           m,
		SerialNumber:       p.SerialNumber,
		PassTypeIdentifier: p.PassTypeIdentifier,
		ChainVerified:      roots != nil,
	}

	if signer != nil {
		report.Signer = signer.Subject.CommonName
	}

	logger.InfoKV(ctx, "Archive verified",
		"path", path,
		"digest", report.Digest.String(),
		"serial", report.SerialNumber,
		"chain_verified", report.ChainVerified)

	return report, nil
}
