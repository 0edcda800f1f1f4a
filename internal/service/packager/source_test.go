package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/passkit/internal/archive"
	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/domain/pass"
	"github.com/oshokin/passkit/internal/logger"
	"github.com/oshokin/passkit/internal/manifest"
	"github.com/oshokin/passkit/internal/repository/definition"
	"github.com/oshokin/passkit/internal/signing"
	"github.com/oshokin/passkit/internal/signing/signingtest"
)

const emptySHA1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

func examplePass() *pass.Pass {
	return pass.NewBuilder("0001", "pass.com.example", "ABCDE12345").
		HeaderField(pass.NewField("gate", "GATE", pass.Text("23"))).
		FinishBoardingPass(pass.TransitAir)
}

func newSigner(t *testing.T) (*signing.PKCS7Signer, *signingtest.Fixture) {
	t.Helper()

	fixture := signingtest.NewIdentity(t)

	signer, err := signing.NewPKCS7Signer(fixture.Identity)
	require.NoError(t, err)

	return signer, fixture
}

// workspacePrefix returns a prefix unique to the test and registers a check
// that no workspace with it survives.
func workspacePrefix(t *testing.T, name string) string {
	t.Helper()

	prefix := "pkpass-test-" + name + "-"

	t.Cleanup(func() {
		leftovers, err := filepath.Glob(filepath.Join(os.TempDir(), prefix+"*"))
		if err == nil && len(leftovers) > 0 {
			t.Errorf("workspaces left behind: %v", leftovers)
		}
	})

	return prefix
}

func requireNoWorkspace(t *testing.T, prefix string) {
	t.Helper()

	leftovers, err := filepath.Glob(filepath.Join(os.TempDir(), prefix+"*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

// TestBuild_EndToEnd builds the reference boarding pass from an empty asset directory.
func TestBuild_EndToEnd(t *testing.T) {
	t.Parallel()

	signer, fixture := newSigner(t)
	prefix := workspacePrefix(t, "e2e")
	destination := filepath.Join(t.TempDir(), "boarding.pkpass")

	result, err := NewSource(t.TempDir(), WithSigner(signer), WithWorkspacePrefix(prefix)).
		AddPass(examplePass()).
		Build(context.Background(), destination)
	require.NoError(t, err)
	require.Equal(t, destination, result.Path)
	require.Equal(t, []string{"pass.json", "manifest.json", "signature"}, result.Entries)
	requireNoWorkspace(t, prefix)

	contents, err := archive.Read(destination)
	require.NoError(t, err)
	require.Equal(t, []string{"pass.json", "manifest.json", "signature"}, contents.Names())
	require.Equal(t, result.Digest, contents.Digest)

	definitionEntry, _ := contents.Lookup("pass.json")
	manifestEntry, _ := contents.Lookup("manifest.json")
	signatureEntry, _ := contents.Lookup("signature")

	decoded, err := pass.Decode(definitionEntry.Data)
	require.NoError(t, err)
	require.Equal(t, examplePass(), decoded)

	m, err := manifest.Decode(manifestEntry.Data)
	require.NoError(t, err)
	require.Equal(t, []string{"pass.json"}, m.Names())
	require.Equal(t, result.Manifest, m)
	require.NoError(t, m.Check([]manifest.File{{Name: "pass.json", Data: definitionEntry.Data}}))

	_, err = signing.Verify(manifestEntry.Data, signatureEntry.Data, fixture.Roots())
	require.NoError(t, err)
}

// TestBuild_MissingContent verifies an empty source without a definition fails with ContentMissing.
func TestBuild_MissingContent(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	prefix := workspacePrefix(t, "missing")
	destination := filepath.Join(t.TempDir(), "out.pkpass")

	result, err := NewSource(t.TempDir(), WithSigner(signer), WithWorkspacePrefix(prefix)).
		Build(context.Background(), destination)
	require.ErrorIs(t, err, build.ErrContentMissing)
	require.Nil(t, result)

	_, err = os.Stat(destination)
	require.ErrorIs(t, err, os.ErrNotExist)
	requireNoWorkspace(t, prefix)
}

// TestBuild_ZeroByteAsset verifies an empty asset gets the digest of empty input.
func TestBuild_ZeroByteAsset(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	source := t.TempDir()
	writeFile(t, source, "icon.png", "")
	writeFile(t, source, "logo.png", "logo")

	result, err := NewSource(source, WithSigner(signer)).
		AddPass(examplePass()).
		Build(context.Background(), filepath.Join(t.TempDir(), "out.pkpass"))
	require.NoError(t, err)
	require.Equal(t, emptySHA1, result.Manifest["icon.png"])
	require.Equal(t, []string{"icon.png", "logo.png", "pass.json"}, result.Manifest.Names())
	require.Equal(t, []string{"pass.json", "icon.png", "logo.png", "manifest.json", "signature"}, result.Entries)
}

// TestBuild_TamperInvalidatesSignature checks a changed asset byte breaks the digest and the signature.
func TestBuild_TamperInvalidatesSignature(t *testing.T) {
	t.Parallel()

	signer, fixture := newSigner(t)
	source := t.TempDir()
	writeFile(t, source, "logo.png", "logo")

	destination := filepath.Join(t.TempDir(), "out.pkpass")

	_, err := NewSource(source, WithSigner(signer)).AddPass(examplePass()).Build(context.Background(), destination)
	require.NoError(t, err)

	contents, err := archive.Read(destination)
	require.NoError(t, err)

	manifestEntry, _ := contents.Lookup("manifest.json")
	signatureEntry, _ := contents.Lookup("signature")

	signed, err := manifest.Decode(manifestEntry.Data)
	require.NoError(t, err)

	var files []manifest.File

	for _, entry := range contents.Entries {
		if entry.Name == "manifest.json" || entry.Name == "signature" {
			continue
		}

		if entry.Name == "logo.png" {
			entry.Data = []byte("logO")
		}

		files = append(files, manifest.File{Name: entry.Name, Data: entry.Data})
	}

	require.ErrorIs(t, signed.Check(files), manifest.ErrDigestMismatch)

	recomputed, err := manifest.FromFiles(files)
	require.NoError(t, err)
	require.NotEqual(t, signed["logo.png"], recomputed["logo.png"])

	recomputedBytes, err := recomputed.Encode()
	require.NoError(t, err)

	_, err = signing.Verify(recomputedBytes, signatureEntry.Data, fixture.Roots())
	require.Error(t, err)
}

// TestBuild_SuppliedDefinitionTakesPrecedence checks the supplied definition wins and the file is not an asset.
func TestBuild_SuppliedDefinitionTakesPrecedence(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	source := t.TempDir()
	writeFile(t, source, "pass.json", `{"serialNumber": "from-file", "generic": {}}`)
	writeFile(t, source, "manifest.json", `{"stale": "0"}`)
	writeFile(t, source, "signature", "stale")

	destination := filepath.Join(t.TempDir(), "out.pkpass")

	result, err := NewSource(source, WithSigner(signer)).AddPass(examplePass()).Build(context.Background(), destination)
	require.NoError(t, err)
	require.Equal(t, []string{"pass.json"}, result.Manifest.Names())

	contents, err := archive.Read(destination)
	require.NoError(t, err)

	entry, _ := contents.Lookup("pass.json")
	decoded, err := pass.Decode(entry.Data)
	require.NoError(t, err)
	require.Equal(t, "0001", decoded.SerialNumber)
}

// TestBuild_DefinitionFromSource verifies pass.json is read from the source and re-encoded canonically.
func TestBuild_DefinitionFromSource(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	source := t.TempDir()
	writeFile(t, source, "pass.json", `{"serialNumber":"7","passTypeIdentifier":"pass.com.example","teamIdentifier":"T","voided":false,"coupon":{}}`)
	writeFile(t, source, "personalization.json", `{"requiredPersonalizationFields":["PKPassPersonalizationFieldName"],"description":"Join"}`)

	destination := filepath.Join(t.TempDir(), "out.pkpass")

	result, err := NewSource(source, WithSigner(signer)).Build(context.Background(), destination)
	require.NoError(t, err)
	require.Equal(t, []string{"pass.json", "personalization.json", "manifest.json", "signature"}, result.Entries)

	contents, err := archive.Read(destination)
	require.NoError(t, err)

	entry, _ := contents.Lookup("pass.json")
	require.NotContains(t, string(entry.Data), "voided")

	want, err := pass.Encode(&pass.Pass{
		FormatVersion:      1,
		SerialNumber:       "7",
		PassTypeIdentifier: "pass.com.example",
		TeamIdentifier:     "T",
		Style:              pass.Coupon{},
	})
	require.NoError(t, err)
	require.Equal(t, want, entry.Data)
}

// TestBuild_ParseError verifies a malformed pass.json fails without an archive.
func TestBuild_ParseError(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	prefix := workspacePrefix(t, "parse")
	source := t.TempDir()
	writeFile(t, source, "pass.json", `{"coupon": {}, "generic": {}}`)

	destination := filepath.Join(t.TempDir(), "out.pkpass")

	_, err := NewSource(source, WithSigner(signer), WithWorkspacePrefix(prefix)).Build(context.Background(), destination)
	require.ErrorIs(t, err, build.ErrParse)

	var multi *pass.MultipleStylesError
	require.ErrorAs(t, err, &multi)

	_, err = os.Stat(destination)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestBuild_MissingSourceDirectory verifies staging reports ResourceNotFound naming the directory.
func TestBuild_MissingSourceDirectory(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	prefix := workspacePrefix(t, "nosource")
	source := filepath.Join(t.TempDir(), "absent")

	_, err := NewSource(source, WithSigner(signer), WithWorkspacePrefix(prefix)).
		AddPass(examplePass()).
		Build(context.Background(), filepath.Join(t.TempDir(), "out.pkpass"))
	require.ErrorIs(t, err, build.ErrResourceNotFound)
	require.Contains(t, err.Error(), source)
	requireNoWorkspace(t, prefix)
}

// memoryRepository serves definitions without touching the source directory.
type memoryRepository struct {
	definition      *pass.Pass
	personalization *pass.Personalization
	err             error
}

func (r *memoryRepository) Load(context.Context) (*pass.Pass, error) {
	if r.err != nil {
		return nil, r.err
	}

	if r.definition == nil {
		return nil, definition.ErrNotFound
	}

	return r.definition, nil
}

func (r *memoryRepository) LoadPersonalization(context.Context) (*pass.Personalization, error) {
	if r.personalization == nil {
		return nil, definition.ErrNotFound
	}

	return r.personalization, nil
}

func (r *memoryRepository) Save(_ context.Context, p *pass.Pass) error {
	r.definition = p

	return nil
}

func (r *memoryRepository) SavePersonalization(_ context.Context, p *pass.Personalization) error {
	r.personalization = p

	return nil
}

// TestBuild_ResolvesThroughRepository verifies definitions come from the configured repository.
func TestBuild_ResolvesThroughRepository(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	source := t.TempDir()
	writeFile(t, source, "pass.json", `{"serialNumber":"ignored","generic":{}}`)
	writeFile(t, source, "icon.png", "icon")

	repository := new(memoryRepository)
	require.NoError(t, repository.Save(context.Background(), examplePass()))
	require.NoError(t, repository.SavePersonalization(context.Background(), &pass.Personalization{Description: "Join"}))

	destination := filepath.Join(t.TempDir(), "out.pkpass")

	result, err := NewSource(source, WithSigner(signer), WithRepository(repository)).
		Build(context.Background(), destination)
	require.NoError(t, err)
	require.Equal(t, []string{"icon.png", "pass.json", "personalization.json"}, result.Manifest.Names())

	contents, err := archive.Read(destination)
	require.NoError(t, err)

	entry, _ := contents.Lookup("pass.json")

	decoded, err := pass.Decode(entry.Data)
	require.NoError(t, err)
	require.Equal(t, examplePass(), decoded)
}

// TestBuild_RepositoryFailure maps an unexpected repository error to ResourceNotFound.
func TestBuild_RepositoryFailure(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	prefix := workspacePrefix(t, "repository")
	source := t.TempDir()
	repository := &memoryRepository{err: os.ErrPermission}

	_, err := NewSource(source, WithSigner(signer), WithRepository(repository), WithWorkspacePrefix(prefix)).
		Build(context.Background(), filepath.Join(t.TempDir(), "out.pkpass"))
	require.ErrorIs(t, err, build.ErrResourceNotFound)
	require.ErrorIs(t, err, os.ErrPermission)
	requireNoWorkspace(t, prefix)
}

type failingSigner struct{}

func (failingSigner) Sign(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("token unavailable")
}

// TestBuild_SigningFailure covers a missing signer and a rejecting backend.
func TestBuild_SigningFailure(t *testing.T) {
	t.Parallel()

	prefix := workspacePrefix(t, "signing")

	for _, options := range [][]SourceOption{
		{WithWorkspacePrefix(prefix)},
		{WithWorkspacePrefix(prefix), WithSigner(failingSigner{})},
	} {
		destination := filepath.Join(t.TempDir(), "out.pkpass")

		_, err := NewSource(t.TempDir(), options...).AddPass(examplePass()).Build(context.Background(), destination)
		require.ErrorIs(t, err, build.ErrSigning)

		_, err = os.Stat(destination)
		require.ErrorIs(t, err, os.ErrNotExist)
		requireNoWorkspace(t, prefix)
	}
}

// TestBuild_WriteFailure verifies an unwritable destination is a WriteFailure.
func TestBuild_WriteFailure(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	prefix := workspacePrefix(t, "write")

	_, err := NewSource(t.TempDir(), WithSigner(signer), WithWorkspacePrefix(prefix)).
		AddPass(examplePass()).
		Build(context.Background(), filepath.Join(t.TempDir(), "absent", "out.pkpass"))
	require.ErrorIs(t, err, build.ErrWrite)
	requireNoWorkspace(t, prefix)
}

// TestBuild_LogsStateTransitions checks every stage transition is logged in order.
func TestBuild_LogsStateTransitions(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	_, err := NewSource(t.TempDir(), WithSigner(signer)).
		AddPass(examplePass()).
		Build(ctx, filepath.Join(t.TempDir(), "out.pkpass"))
	require.NoError(t, err)

	var states []any
	for _, entry := range logs.FilterMessage("Build stage completed").All() {
		states = append(states, entry.ContextMap()["state"])
	}

	require.Equal(t, []any{"content_resolved", "assets_staged", "manifest_computed", "signed", "archived"}, states)
	require.Equal(t, 1, logs.FilterMessage("Build finished").Len())

	core, logs = observer.New(zapcore.DebugLevel)
	ctx = logger.ToContext(context.Background(), zap.New(core).Sugar())

	_, err = NewSource(t.TempDir(), WithSigner(signer)).Build(ctx, filepath.Join(t.TempDir(), "out.pkpass"))
	require.Error(t, err)

	failed := logs.FilterMessage("Build failed").All()
	require.Len(t, failed, 1)
	require.Equal(t, "created", failed[0].ContextMap()["state"])
	require.Equal(t, build.ErrContentMissing.Error(), failed[0].ContextMap()["kind"])
}

// TestBuild_ConcurrentBuildsShareNothing runs independent builds of one source in parallel.
func TestBuild_ConcurrentBuildsShareNothing(t *testing.T) {
	t.Parallel()

	signer, _ := newSigner(t)
	source := t.TempDir()
	writeFile(t, source, "logo.png", "logo")

	src := NewSource(source, WithSigner(signer)).AddPass(examplePass())
	out := t.TempDir()

	const builds = 6

	var (
		wg      sync.WaitGroup
		results = make([]*Result, builds)
		errs    = make([]error, builds)
	)

	for i := range builds {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i], errs[i] = src.Build(context.Background(), filepath.Join(out, fmt.Sprintf("%d.pkpass", i)))
		}()
	}

	wg.Wait()

	for i := range builds {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].Manifest, results[i].Manifest)
	}
}
