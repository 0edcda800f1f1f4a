package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and rejection of inconsistent settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DigestSHA256, cfg.Signing.Digest)
	require.Equal(t, CompressionDefault, cfg.Archive.Compression)
	require.Equal(t, DefaultParallelism, cfg.Archive.Parallelism)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "console", cfg.LogFormat)
	require.False(t, cfg.Signing.HasIdentity())

	// Both identity sources.
	cfg = &Config{Signing: Signing{Certificate: "c.pem", PrivateKey: "k.pem", PKCS12: "id.p12"}}
	require.ErrorIs(t, Validate(cfg), errIdentityConflict)

	// Half a PEM pair.
	cfg = &Config{Signing: Signing{Certificate: "c.pem"}}
	require.ErrorIs(t, Validate(cfg), errIncompletePair)

	// Unknown names.
	require.ErrorIs(t, Validate(&Config{Signing: Signing{Digest: "md5"}}), errUnknownDigest)
	require.ErrorIs(t, Validate(&Config{Archive: Archive{Compression: "zstd"}}), errUnknownCompression)
	require.ErrorIs(t, Validate(&Config{LogLevel: "loud"}), errUnknownLogLevel)
	require.ErrorIs(t, Validate(&Config{LogFormat: "xml"}), errUnknownLogFormat)
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	// PKCS#12 gets the default password variable.
	cfg = &Config{Signing: Signing{PKCS12: "id.p12", Digest: "SHA1"}}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultPKCS12PasswordEnv, cfg.Signing.PKCS12PasswordEnv)
	require.Equal(t, DigestSHA1, cfg.Signing.Digest)
	require.True(t, cfg.Signing.HasIdentity())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back with paths resolved.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pkpass.yaml")

	cfg := &Config{
		Signing: Signing{
			Certificate: "certs/pass.pem",
			PrivateKey:  "/etc/pkpass/key.pem",
			Chain:       []string{"certs/wwdr.pem"},
		},
		Archive: Archive{Compression: CompressionBest, Parallelism: 2},
	}

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "certs/pass.pem"), loaded.Signing.Certificate)
	require.Equal(t, "/etc/pkpass/key.pem", loaded.Signing.PrivateKey)
	require.Equal(t, []string{filepath.Join(dir, "certs/wwdr.pem")}, loaded.Signing.Chain)
	require.Equal(t, CompressionBest, loaded.Archive.Compression)
	require.Equal(t, 2, loaded.Archive.Parallelism)
}

// TestLoadOrDefault distinguishes a missing default file from a missing explicit one.
func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	_, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.Equal(t, Default(), mustLoadDefault(t))
}

func mustLoadDefault(t *testing.T) *Config {
	t.Helper()

	if _, err := os.Stat(DefaultConfigFilename); err == nil {
		t.Skip("a settings file exists in the package directory")
	}

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)

	return cfg
}

// TestLoad_RejectsMalformedYAML verifies parse errors surface.
func TestLoad_RejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pkpass.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signing: [oops"), DefaultFilePermissions))

	_, err := Load(path)
	require.Error(t, err)
}
