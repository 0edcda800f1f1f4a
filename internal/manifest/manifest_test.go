package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/passkit/internal/domain/build"
)

const emptySHA1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
	}

	return dir
}

// TestDigest_KnownValues checks digests against published SHA-1 vectors.
func TestDigest_KnownValues(t *testing.T) {
	t.Parallel()

	sum, err := Digest(nil)
	require.NoError(t, err)
	require.Equal(t, emptySHA1, sum)

	sum, err = Digest([]byte("abc"))
	require.NoError(t, err)
	require.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", sum)
}

// TestCollect_Deterministic verifies identical bytes give identical manifests regardless of metadata.
func TestCollect_Deterministic(t *testing.T) {
	t.Parallel()

	files := map[string]string{"pass.json": "{}", "logo.png": "logo", "empty.png": ""}
	first := writeFiles(t, files)
	second := writeFiles(t, files)

	require.NoError(t, os.Chmod(filepath.Join(second, "logo.png"), 0o400))

	names := []string{"empty.png", "logo.png", "pass.json"}

	collected, m1, err := Collect(context.Background(), first, names)
	require.NoError(t, err)

	_, m2, err := Collect(context.Background(), second, names)
	require.NoError(t, err)

	require.Equal(t, m1, m2)
	require.Equal(t, names, m1.Names())
	require.Equal(t, emptySHA1, m1["empty.png"])
	require.Len(t, collected, 3)
	require.Equal(t, []byte("logo"), collected[1].Data)

	b1, err := m1.Encode()
	require.NoError(t, err)

	b2, err := m2.Encode()
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

// TestCollect_TamperChangesDigest ensures one changed byte changes that file's digest only.
func TestCollect_TamperChangesDigest(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"a.png": "aaaa", "b.png": "bbbb"})
	names := []string{"a.png", "b.png"}

	_, before, err := Collect(context.Background(), dir, names)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("aaab"), 0o600))

	files, after, err := Collect(context.Background(), dir, names)
	require.NoError(t, err)
	require.NotEqual(t, before["a.png"], after["a.png"])
	require.Equal(t, before["b.png"], after["b.png"])
	require.ErrorIs(t, before.Check(files), ErrDigestMismatch)
	require.NoError(t, after.Check(files))
}

// TestCollect_UnreadableFile verifies a missing file fails without a partial manifest.
func TestCollect_UnreadableFile(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"a.png": "a"})

	files, m, err := Collect(context.Background(), dir, []string{"a.png", "gone.png"})
	require.ErrorIs(t, err, build.ErrDigest)
	require.Contains(t, err.Error(), "gone.png")
	require.Nil(t, files)
	require.Nil(t, m)

	_, _, err = Collect(context.Background(), dir, []string{"a.png", "a.png"})
	require.ErrorIs(t, err, build.ErrDigest)
}

// TestEncodeDecode verifies the encoded manifest is sorted and parses back.
func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	m := Manifest{"pass.json": "bf21a9e8fbc5a3846fb05b4fa0859e0917b2202f", "icon.png": emptySHA1}

	data, err := m.Encode()
	require.NoError(t, err)
	require.Equal(t, "{\n  \"icon.png\": \""+emptySHA1+"\",\n  \"pass.json\": \"bf21a9e8fbc5a3846fb05b4fa0859e0917b2202f\"\n}\n", string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	_, err = Decode([]byte("[]"))
	require.Error(t, err)
}

// TestCheck_CoverageMismatch reports unlisted files and entries without files.
func TestCheck_CoverageMismatch(t *testing.T) {
	t.Parallel()

	m, err := FromFiles([]File{{Name: "pass.json", Data: []byte("{}")}, {Name: "logo.png"}})
	require.NoError(t, err)

	err = m.Check([]File{{Name: "pass.json", Data: []byte("{}")}, {Name: "extra.png"}})
	require.ErrorIs(t, err, ErrNotListed)
	require.ErrorIs(t, err, ErrMissingFile)
	require.NotErrorIs(t, err, ErrDigestMismatch)
}
