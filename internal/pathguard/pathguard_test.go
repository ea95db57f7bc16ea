package pathguard

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds <tmp>/root/{docs/readme.md, src/} and <tmp>/outside/secret.txt.
func fixture(t *testing.T) (root, outside string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "root")
	outside = filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "readme.md"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("nope"), 0o644))
	return root, outside
}

func canon(t *testing.T, p string) string {
	t.Helper()
	c, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return c
}

func TestResolveRejectsTraversal(t *testing.T) {
	root, _ := fixture(t)

	for _, sub := range []string{
		"..",
		"../outside/secret.txt",
		"../../etc/passwd",
		"docs/../../outside",
		"docs/../../../etc",
		"/etc/passwd",
		"docs/\x00",
	} {
		_, err := Resolve(root, sub)
		assert.ErrorIs(t, err, ErrForbidden, "sub=%q", sub)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	root, outside := fixture(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "docs", "leak.txt")))

	_, err := Resolve(root, "escape")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Resolve(root, "escape/secret.txt")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Resolve(root, "docs/leak.txt")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Resolve(root, "escape/does-not-exist")
	assert.ErrorIs(t, err, ErrForbidden, "missing leaf under an escaping link")
}

func TestResolveFollowsInternalSymlink(t *testing.T) {
	root, _ := fixture(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "manual")))

	got, err := Resolve(root, "manual/readme.md")
	require.NoError(t, err)
	assert.Equal(t, canon(t, filepath.Join(root, "docs", "readme.md")), got)
}

func TestResolveIsIdempotent(t *testing.T) {
	root, _ := fixture(t)
	want := canon(t, filepath.Join(root, "docs"))

	for _, sub := range []string{"docs", "docs/", "./docs", "docs//", "./docs/./", "src/../docs"} {
		got, err := Resolve(root, sub)
		require.NoError(t, err, "sub=%q", sub)
		assert.Equal(t, want, got, "sub=%q", sub)
	}

	for _, sub := range []string{"", ".", "./", "docs/.."} {
		got, err := Resolve(root, sub)
		require.NoError(t, err, "sub=%q", sub)
		assert.Equal(t, canon(t, root), got, "sub=%q", sub)
	}
}

func TestResolveMissingPathPassesGuard(t *testing.T) {
	root, _ := fixture(t)

	got, err := Resolve(root, "docs/missing/deeper.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(canon(t, root), "docs", "missing", "deeper.txt"), got)

	_, statErr := os.Stat(got)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))

	got, err = Resolve(root, "docs/readme.md/child")
	require.NoError(t, err, "a file used as a directory is not an escape")
	assert.Equal(t, filepath.Join(canon(t, root), "docs", "readme.md", "child"), got)
}

func TestResolveMissingRoot(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "gone"), "anything")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("./"))
	assert.Equal(t, "docs", Clean("docs/"))
	assert.Equal(t, "docs/api", Clean("./docs//api/."))
	assert.Equal(t, "etc", Clean("../../etc"))
}
