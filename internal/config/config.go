package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/passkit/internal/logger"
)

// Config holds the settings shared by the pkpass commands.
type Config struct {
	// Signing describes the identity used to sign manifests and the trust roots used to verify them.
	Signing Signing `yaml:"signing"`
	// Archive controls how archives are written.
	Archive Archive `yaml:"archive"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format"`
}

// Signing locates the signing identity. Either a PEM certificate and key pair
// or a PKCS#12 bundle may be set, never both.
type Signing struct {
	// Certificate is a PEM file with the pass type certificate.
	Certificate string `yaml:"certificate,omitempty"`
	// PrivateKey is a PEM file with the private key of Certificate.
	PrivateKey string `yaml:"private_key,omitempty"`
	// PKCS12 is a .p12 bundle holding certificate and key.
	PKCS12 string `yaml:"pkcs12,omitempty"`
	// PKCS12PasswordEnv names the environment variable holding the bundle password.
	PKCS12PasswordEnv string `yaml:"pkcs12_password_env,omitempty"`
	// Chain lists PEM files with intermediate certificates embedded into signatures.
	Chain []string `yaml:"chain,omitempty"`
	// Roots lists PEM files with certificates trusted when verifying.
	Roots []string `yaml:"roots,omitempty"`
	// Digest is the signature digest algorithm: sha256 or sha1.
	Digest string `yaml:"digest"`
}

// Archive holds archive writer settings.
type Archive struct {
	// Compression is one of default, fast, best, none.
	Compression string `yaml:"compression"`
	// Parallelism bounds concurrent builds in a batch.
	Parallelism int `yaml:"parallelism"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "pkpass.yaml"

	// DefaultFilePermissions is the permission of written settings and definitions.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the permission of created directories.
	DefaultDirPermissions = 0o750

	// DefaultArchivePermissions is the permission of published archives.
	DefaultArchivePermissions = 0o644

	// DefaultParallelism is the default number of concurrent batch builds.
	DefaultParallelism = 4

	// DefaultPKCS12PasswordEnv is read when no password variable is configured.
	DefaultPKCS12PasswordEnv = "PKPASS_PKCS12_PASSWORD"
)

// Signature digest names.
const (
	DigestSHA256 = "sha256"
	DigestSHA1   = "sha1"
)

// Compression names.
const (
	CompressionDefault = "default"
	CompressionFast    = "fast"
	CompressionBest    = "best"
	CompressionNone    = "none"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errIdentityConflict is returned when both identity sources are configured.
	errIdentityConflict = errors.New("signing.pkcs12 cannot be combined with signing.certificate or signing.private_key")
	// errIncompletePair is returned when only half of a PEM identity is configured.
	errIncompletePair = errors.New("signing.certificate and signing.private_key must be set together")
	// errUnknownDigest is returned for digests other than sha256 and sha1.
	errUnknownDigest = errors.New("unknown signing digest")
	// errUnknownCompression is returned for unsupported compression names.
	errUnknownCompression = errors.New("unknown archive compression")
	// errUnknownLogLevel is returned when the log level cannot be parsed.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownLogFormat is returned when the log format cannot be parsed.
	errUnknownLogFormat = errors.New("unknown log format")
)

// Default returns settings with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Cannot fail on an empty config.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.resolvePaths(filepath.Dir(path))

	return &cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file at the default
// location yields Default. A missing file named explicitly is an error.
func LoadOrDefault(path string) (*Config, error) {
	explicit := path != ""

	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate applies defaults and rejects inconsistent settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := cfg.Signing.validate(); err != nil {
		return err
	}

	cfg.Archive.Compression = strings.ToLower(strings.TrimSpace(cfg.Archive.Compression))
	if cfg.Archive.Compression == "" {
		cfg.Archive.Compression = CompressionDefault
	}

	if !slices.Contains([]string{CompressionDefault, CompressionFast, CompressionBest, CompressionNone},
		cfg.Archive.Compression) {
		return fmt.Errorf("%w: %q", errUnknownCompression, cfg.Archive.Compression)
	}

	if cfg.Archive.Parallelism <= 0 {
		cfg.Archive.Parallelism = DefaultParallelism
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = string(logger.FormatConsole)
	}

	if _, ok := logger.ParseFormat(cfg.LogFormat); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogFormat, cfg.LogFormat)
	}

	return nil
}

func (s *Signing) validate() error {
	hasPEM := s.Certificate != "" || s.PrivateKey != ""
	if hasPEM && s.PKCS12 != "" {
		return errIdentityConflict
	}

	if hasPEM && (s.Certificate == "" || s.PrivateKey == "") {
		return errIncompletePair
	}

	if s.PKCS12 != "" && s.PKCS12PasswordEnv == "" {
		s.PKCS12PasswordEnv = DefaultPKCS12PasswordEnv
	}

	s.Digest = strings.ToLower(strings.TrimSpace(s.Digest))
	if s.Digest == "" {
		s.Digest = DigestSHA256
	}

	if s.Digest != DigestSHA256 && s.Digest != DigestSHA1 {
		return fmt.Errorf("%w: %q", errUnknownDigest, s.Digest)
	}

	return nil
}

// HasIdentity reports whether a signing identity is configured.
func (s *Signing) HasIdentity() bool {
	return s.PKCS12 != "" || s.Certificate != ""
}

// resolvePaths makes relative file references relative to the settings file.
func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}

		return filepath.Join(base, p)
	}

	c.Signing.Certificate = resolve(c.Signing.Certificate)
	c.Signing.PrivateKey = resolve(c.Signing.PrivateKey)
	c.Signing.PKCS12 = resolve(c.Signing.PKCS12)

	for i := range c.Signing.Chain {
		c.Signing.Chain[i] = resolve(c.Signing.Chain[i])
	}

	for i := range c.Signing.Roots {
		c.Signing.Roots[i] = resolve(c.Signing.Roots[i])
	}
}
