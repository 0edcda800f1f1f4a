package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/passkit/internal/archive"
	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/domain/pass"
	"github.com/oshokin/passkit/internal/logger"
	"github.com/oshokin/passkit/internal/signing"
)

// Overrides are command-line values taking precedence over the settings file.
type Overrides struct {
	// Certificate and PrivateKey select a PEM identity.
	Certificate string
	PrivateKey  string
	// PKCS12 selects a PKCS#12 identity.
	PKCS12 string
	// Chain lists extra PEM files with intermediate certificates.
	Chain []string
	// Digest is sha256 or sha1.
	Digest string
	// Compression is default, fast, best or none.
	Compression string
}

// Options contains inputs for the build entry point.
type Options struct {
	Overrides

	// ConfigPath is an optional settings file (defaults to pkpass.yaml when present).
	ConfigPath string
	// Source is the pass source directory.
	Source string
	// Destination is the archive path.
	Destination string
	// Definition is an optional pass.json used instead of the one in Source.
	Definition string
}

var (
	errSourceRequired      = errors.New("source directory must be provided")
	errDestinationRequired = errors.New("destination path must be provided")
	errNoIdentity          = errors.New("no signing identity configured: set signing.certificate and signing.private_key or signing.pkcs12")
)

// Run builds one archive.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "build")

	if opts.Source == "" {
		return nil, errSourceRequired
	}

	if opts.Destination == "" {
		return nil, errDestinationRequired
	}

	cfg, err := loadConfig(opts.ConfigPath, &opts.Overrides)
	if err != nil {
		return nil, err
	}

	sourceOptions, err := newSourceOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	source := NewSource(opts.Source, sourceOptions...)

	if opts.Definition != "" {
		p, defErr := readDefinition(opts.Definition)
		if defErr != nil {
			return nil, defErr
		}

		source.AddPass(p)
	}

	result, err := source.Build(ctx, opts.Destination)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", opts.Destination, err)
	}

	return result, nil
}

// loadConfig reads the settings file and applies overrides.
func loadConfig(path string, overrides *Overrides) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if overrides.Certificate != "" || overrides.PrivateKey != "" {
		cfg.Signing.Certificate = overrides.Certificate
		cfg.Signing.PrivateKey = overrides.PrivateKey
		cfg.Signing.PKCS12 = ""
	}

	if overrides.PKCS12 != "" {
		cfg.Signing.PKCS12 = overrides.PKCS12
		cfg.Signing.Certificate = ""
		cfg.Signing.PrivateKey = ""
	}

	cfg.Signing.Chain = append(cfg.Signing.Chain, overrides.Chain...)

	if overrides.Digest != "" {
		cfg.Signing.Digest = overrides.Digest
	}

	if overrides.Compression != "" {
		cfg.Archive.Compression = overrides.Compression
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newSourceOptions builds the signer and assembler described by cfg.
func newSourceOptions(ctx context.Context, cfg *config.Config) ([]SourceOption, error) {
	signer, err := NewSigner(ctx, &cfg.Signing)
	if err != nil {
		return nil, err
	}

	level, err := archive.LevelFor(cfg.Archive.Compression)
	if err != nil {
		return nil, err
	}

	return []SourceOption{
		WithSigner(signer),
		WithAssembler(archive.NewAssembler(archive.WithLevel(level))),
	}, nil
}

// NewSigner loads the identity described by cfg.
func NewSigner(ctx context.Context, cfg *config.Signing) (*signing.PKCS7Signer, error) {
	var (
		identity *signing.Identity
		err      error
	)

	switch {
	case cfg.PKCS12 != "":
		identity, err = signing.LoadPKCS12(cfg.PKCS12, os.Getenv(cfg.PKCS12PasswordEnv), cfg.Chain...)
	case cfg.Certificate != "":
		identity, err = signing.LoadPEM(cfg.Certificate, cfg.PrivateKey, cfg.Chain...)
	default:
		return nil, build.Fail(build.ErrSigning, "", errNoIdentity)
	}

	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Signing identity loaded",
		"subject", identity.Certificate.Subject.CommonName,
		"chain", len(identity.Chain),
		"digest", cfg.Digest)

	return signing.NewPKCS7Signer(identity, signing.WithDigest(cfg.Digest))
}

// readDefinition decodes a pass.json outside the source directory.
func readDefinition(path string) (*pass.Pass, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, build.Fail(build.ErrResourceNotFound, path, err)
	}

	p, err := pass.Decode(data)
	if err != nil {
		return nil, build.Fail(build.ErrParse, path, err)
	}

	return p, nil
}
