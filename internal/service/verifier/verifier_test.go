package verifier

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/passkit/internal/archive"
	"github.com/oshokin/passkit/internal/domain/pass"
	"github.com/oshokin/passkit/internal/manifest"
	"github.com/oshokin/passkit/internal/signing"
	"github.com/oshokin/passkit/internal/signing/signingtest"
)

// archiveLayout describes the entries written into a test archive.
type archiveLayout struct {
	files map[string][]byte
	// listed overrides the files covered by the manifest.
	listed map[string][]byte
	// signer overrides the fixture used to sign the manifest.
	signer        *signingtest.Fixture
	skipSignature bool
}

func definitionBytes(t *testing.T) []byte {
	t.Helper()

	data, err := pass.Encode(pass.NewBuilder("0001", signingtest.PassTypeIdentifier, "ABCDE12345").FinishGeneric())
	require.NoError(t, err)

	return data
}

func writeArchive(t *testing.T, layout archiveLayout) string {
	t.Helper()

	listed := layout.listed
	if listed == nil {
		listed = layout.files
	}

	files := make([]manifest.File, 0, len(listed))
	for name, data := range listed {
		files = append(files, manifest.File{Name: name, Data: data})
	}

	m, err := manifest.FromFiles(files)
	require.NoError(t, err)

	manifestData, err := m.Encode()
	require.NoError(t, err)

	entries := make([]archive.Entry, 0, len(layout.files)+2)
	for name, data := range layout.files {
		entries = append(entries, archive.Entry{Name: name, Data: data})
	}

	entries = append(entries, archive.Entry{Name: manifest.Filename, Data: manifestData})

	if !layout.skipSignature {
		fixture := layout.signer
		if fixture == nil {
			fixture = signingtest.NewIdentity(t)
		}

		signer, err := signing.NewPKCS7Signer(fixture.Identity)
		require.NoError(t, err)

		signature, err := signer.Sign(context.Background(), manifestData)
		require.NoError(t, err)

		entries = append(entries, archive.Entry{Name: signing.Filename, Data: signature})
	}

	dest := filepath.Join(t.TempDir(), "test.pkpass")

	_, err = archive.NewAssembler().Assemble(context.Background(), dest, entries)
	require.NoError(t, err)

	return dest
}

// TestVerify_ValidArchive accepts a correctly signed archive and reports its contents.
func TestVerify_ValidArchive(t *testing.T) {
	t.Parallel()

	fixture := signingtest.NewIdentity(t)
	path := writeArchive(t, archiveLayout{files: map[string][]byte{
		"pass.json": definitionBytes(t),
		"icon.png":  {0x89, 'P', 'N', 'G'},
		"empty.png": {},
	}})

	report, err := Verify(context.Background(), path, fixture.Roots())
	require.NoError(t, err)
	require.True(t, report.ChainVerified)
	require.Equal(t, "0001", report.SerialNumber)
	require.Equal(t, signingtest.PassTypeIdentifier, report.PassTypeIdentifier)
	require.NotEmpty(t, report.Signer)
	require.Len(t, report.Manifest, 3)
	require.Contains(t, report.Entries, signing.Filename)
	require.NoError(t, report.Digest.Validate())
}

// TestVerify_WithoutRoots checks the signature but not the chain.
func TestVerify_WithoutRoots(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, archiveLayout{
		files:  map[string][]byte{"pass.json": definitionBytes(t)},
		signer: signingtest.NewUnrelated(t),
	})

	report, err := Verify(context.Background(), path, nil)
	require.NoError(t, err)
	require.False(t, report.ChainVerified)
}

// TestVerify_Rejects covers archives a wallet refuses to install.
func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	definition := definitionBytes(t)
	icon := []byte("icon")

	cases := []struct {
		name   string
		layout archiveLayout
	}{
		{
			name:   "missing definition",
			layout: archiveLayout{files: map[string][]byte{"icon.png": icon}},
		},
		{
			name:   "missing signature",
			layout: archiveLayout{files: map[string][]byte{"pass.json": definition}, skipSignature: true},
		},
		{
			name:   "modified file",
			layout: archiveLayout{
				files:  map[string][]byte{"pass.json": definition, "icon.png": []byte("tampered")},
				listed: map[string][]byte{"pass.json": definition, "icon.png": icon},
			},
		},
		{
			name:   "unlisted file",
			layout: archiveLayout{
				files:  map[string][]byte{"pass.json": definition, "icon.png": icon},
				listed: map[string][]byte{"pass.json": definition},
			},
		},
		{
			name:   "listed file missing",
			layout: archiveLayout{
				files:  map[string][]byte{"pass.json": definition},
				listed: map[string][]byte{"pass.json": definition, "icon.png": icon},
			},
		},
		{
			name:   "untrusted signer",
			layout: archiveLayout{
				files:  map[string][]byte{"pass.json": definition},
				signer: signingtest.NewUnrelated(t),
			},
		},
		{
			name:   "undecodable definition",
			layout: archiveLayout{files: map[string][]byte{"pass.json": []byte("{")}},
		},
	}

	roots := signingtest.NewIdentity(t).Roots()

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			path := writeArchive(t, c.layout)

			_, err := Verify(context.Background(), path, roots)
			require.ErrorIs(t, err, ErrInvalidArchive)
		})
	}
}

// TestVerify_NotAnArchive rejects files that are not zip archives.
func TestVerify_NotAnArchive(t *testing.T) {
	t.Parallel()

	_, err := Verify(context.Background(), filepath.Join(t.TempDir(), "missing.pkpass"), nil)
	require.ErrorIs(t, err, ErrInvalidArchive)
}

// TestRun_LoadsRootsFromFlags verifies the entry point trusts roots passed explicitly.
func TestRun_LoadsRootsFromFlags(t *testing.T) {
	t.Parallel()

	paths := signingtest.NewIdentity(t).WritePEM(t, t.TempDir())
	archivePath := writeArchive(t, archiveLayout{files: map[string][]byte{"pass.json": definitionBytes(t)}})

	report, err := Run(context.Background(), &Options{
		ConfigPath: "",
		Archive:    archivePath,
		Roots:      []string{paths.Root},
	})
	require.NoError(t, err)
	require.True(t, report.ChainVerified)

	_, err = Run(context.Background(), &Options{Archive: ""})
	require.ErrorIs(t, err, errArchivePath)
}
