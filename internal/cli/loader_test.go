package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declJSON = `{
  "path": "shared/minwindef.json",
  "items": [
    {
      "kind": "type_alias",
      "loc": {"file": "shared/minwindef.json", "line": 1},
      "type_alias": {
        "name": "DWORD",
        "public": true,
        "type": {"kind": "path", "path": {"segments": ["u32"]}}
      }
    }
  ]
}`

const manifestYAML = `profile: zig
modules:
  - path: shared::minwindef
    link: kernel32
    files:
      - minwindef.json
`

// writeCorpusDir lays out a loadable manifest plus declaration file and
// returns the manifest path.
func writeCorpusDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minwindef.json"), []byte(declJSON), 0644))
	manifest := filepath.Join(dir, "corpus.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(manifestYAML), 0644))
	return manifest
}

func loadCode(t *testing.T, err error) string {
	t.Helper()
	var le *LoadError
	require.True(t, errors.As(err, &le), "want LoadError, got %T: %v", err, err)
	return le.Code
}

func TestLoadManifest_NotFound(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, loadCode(t, err))
}

// TestLoadManifest_UnknownField tests that typoed keys are rejected rather
// than silently ignored.
func TestLoadManifest_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profil: zig\nmodules:\n  - path: a\n    files: [f.json]\n"), 0644))

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifest, loadCode(t, err))
}

func TestLoadManifest_NoModules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profile: zig\n"), 0644))

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifest, loadCode(t, err))
}

func TestLoadManifest_ModuleWithoutFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules:\n  - path: um::winuser\n"), 0644))

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifest, loadCode(t, err))
}

func TestLoadCorpus(t *testing.T) {
	manifest := writeCorpusDir(t)

	m, corpus, err := LoadCorpus(manifest)
	require.NoError(t, err)
	assert.Equal(t, "zig", m.Profile)
	require.Len(t, corpus.Modules, 1)

	mod := corpus.Modules[0]
	assert.Equal(t, []string{"shared", "minwindef"}, mod.Path)
	assert.Equal(t, "kernel32", mod.LinkLib)
	require.Len(t, mod.Files, 1)
	require.Len(t, mod.Files[0].Items, 1)
	assert.Equal(t, "DWORD", mod.Files[0].Items[0].TypeAlias.Name)
}

func TestLoadCorpus_MissingDeclFile(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "corpus.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(manifestYAML), 0644))

	_, _, err := LoadCorpus(manifest)
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, loadCode(t, err))
}

func TestLoadCorpus_MalformedDeclFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minwindef.json"), []byte("{not json"), 0644))
	manifest := filepath.Join(dir, "corpus.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(manifestYAML), 0644))

	_, _, err := LoadCorpus(manifest)
	require.Error(t, err)
	assert.Equal(t, ErrCodeDeclParse, loadCode(t, err))
}
