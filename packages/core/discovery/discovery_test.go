package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("describe: x\n"), 0o644))
	}
}

func TestLookupFiles_Directory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "b.yaml", "a.yml", "notes.txt", ".hidden.yaml", "nested/c.yaml")

	files, err := LookupFiles(root, []string{"yaml", "yml"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.yml"), filepath.Join(root, "b.yaml")}, files)

	files, err = LookupFiles(root, []string{"yaml", "yml"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.yml"),
		filepath.Join(root, "b.yaml"),
		filepath.Join(root, "nested", "c.yaml"),
	}, files)
}

func TestLookupFiles_FileIsReturnedRegardlessOfExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "suite.hcl")

	files, err := LookupFiles(filepath.Join(root, "suite.hcl"), []string{"yaml"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "suite.hcl")}, files)
}

func TestLookupFiles_ExtensionFallbackAndGlob(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "smoke.yaml", "one.json", "two.json")

	files, err := LookupFiles(filepath.Join(root, "smoke"), []string{"yaml"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "smoke.yaml")}, files)

	files, err = LookupFiles(filepath.Join(root, "*.json"), []string{"yaml"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "one.json"), filepath.Join(root, "two.json")}, files)
}

func TestLookupFiles_GlobstarMatchesEveryDepth(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "top.yaml", "a/one.yaml", "a/b/two.yaml", "a/b/skip.json")

	files, err := LookupFiles(filepath.Join(root, "**", "*.yaml"), []string{"yaml"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b", "two.yaml"),
		filepath.Join(root, "a", "one.yaml"),
		filepath.Join(root, "top.yaml"),
	}, files)

	files, err = LookupFiles(filepath.Join(root, "a", "**"), []string{"yaml"}, false)
	require.NoError(t, err)
	assert.Len(t, files, 3, "directories are not returned")
}

func TestLookupFiles_CannotResolve(t *testing.T) {
	_, err := LookupFiles(filepath.Join(t.TempDir(), "missing"), []string{"yaml"}, false)
	require.ErrorIs(t, err, ErrCannotResolvePath)
	assert.Contains(t, err.Error(), "cannot resolve path")
}

func TestLookupFiles_EmptyDirectoryIsNotAnError(t *testing.T) {
	files, err := LookupFiles(t.TempDir(), []string{"yaml"}, true)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("a.YAML", []string{"yaml"}))
	assert.True(t, HasExtension("a.hcl", []string{".hcl"}))
	assert.False(t, HasExtension("Makefile", []string{"yaml"}))
}
