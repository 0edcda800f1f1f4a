package integration

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/service/packager"
)

func writeJobs(t *testing.T, dir string, jobs *packager.Jobs) string {
	t.Helper()

	data, err := yaml.Marshal(jobs)
	require.NoError(t, err)

	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, data, config.DefaultFilePermissions))

	return path
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()

	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return data
}
