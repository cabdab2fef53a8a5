package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/rekitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "characters.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"id": "luther", "name": "Martin Luther", "era": "1517", "description": "Reformer"},
  {"id": "tetzel", "name": "Johann Tetzel", "role": "interjection", "description": "Preacher"}
]`), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rekitter version "+rekitter.Version+"\n", out)
}

func TestRosterList(t *testing.T) {
	out, err := execute(t, "roster", "list", "--config", "", "--roster", writeRoster(t))
	require.NoError(t, err)
	assert.Contains(t, out, "luther")
	assert.Contains(t, out, "Johann Tetzel")
	assert.Contains(t, out, "interjection")
}

func TestRosterValidate(t *testing.T) {
	out, err := execute(t, "roster", "validate", "--config", "", "--roster", writeRoster(t))
	require.NoError(t, err)
	assert.Contains(t, out, "2 characters OK")

	_, err = execute(t, "roster", "validate", "--config", "", "--roster", filepath.Join(t.TempDir(), "none.json"))
	assert.True(t, rekitter.IsConfigError(err))
}

func TestThemes(t *testing.T) {
	out, err := execute(t, "themes", "--config", "")
	require.NoError(t, err)
	assert.Contains(t, out, "reformation")
	assert.Contains(t, out, "#95Posts")
}
