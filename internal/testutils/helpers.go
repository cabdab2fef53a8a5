// Package testutils holds fixtures shared by the roster tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// RosterDir writes the given character documents (file name to content) into a
// temporary directory and returns its absolute path.
func RosterDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// SetupTestRepo opens a read-only Loam repository over a roster directory
// seeded with files.
func SetupTestRepo(t *testing.T, files map[string]string) (string, core.Repository) {
	t.Helper()

	dir := RosterDir(t, files)
	repo, err := loam.Init(dir, loam.WithReadOnly(true))
	require.NoError(t, err, "Failed to init loam repo")
	return dir, repo
}
