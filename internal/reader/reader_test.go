package reader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "notes.md", []byte("# héllo\n"))

	c, err := Read(p, "docs/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "notes.md", c.Name)
	assert.Equal(t, "docs/notes.md", c.Path)
	assert.Equal(t, "# héllo\n", c.Content)
	assert.Equal(t, int64(len("# héllo\n")), c.Size)
	assert.Equal(t, "text", c.Type)
}

func TestReadSizeBoundary(t *testing.T) {
	dir := t.TempDir()

	exact := write(t, dir, "exact.txt", bytes.Repeat([]byte("a"), int(MaxSize)))
	c, err := Read(exact, "exact.txt")
	require.NoError(t, err, "a file of exactly 1 MiB is served")
	assert.Len(t, c.Content, int(MaxSize))

	over := write(t, dir, "over.txt", bytes.Repeat([]byte("a"), int(MaxSize)+1))
	c, err = Read(over, "over.txt")
	assert.Nil(t, c, "no truncated content")
	var tooLarge *TooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, MaxSize+1, tooLarge.Size)
	assert.Equal(t, MaxSize, tooLarge.Limit)
	assert.Contains(t, tooLarge.Message(), "Maximum: ")
}

func TestReadBinary(t *testing.T) {
	dir := t.TempDir()

	for name, data := range map[string][]byte{
		"nul.bin":    {'a', 'b', 0, 'c'},
		"latin1.txt": {'c', 'a', 'f', 0xe9},
		"png.png":    {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	} {
		p := write(t, dir, name, data)
		_, err := Read(p, name)
		var notText *NotTextError
		assert.True(t, errors.As(err, &notText), name)
	}
}

func TestReadStripsBOM(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "bom.csv", append([]byte{0xef, 0xbb, 0xbf}, "a,b\n"...))

	c, err := Read(p, "bom.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", c.Content)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	file := write(t, dir, "f.txt", []byte("x"))

	_, err := Read(filepath.Join(dir, "missing.txt"), "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Read(filepath.Join(dir, "sub"), "sub")
	assert.ErrorIs(t, err, ErrNotFile)

	_, err = Read(filepath.Join(file, "child"), "f.txt/child")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText([]byte("")))
	assert.True(t, IsText([]byte("plain ascii\n")))
	assert.True(t, IsText([]byte("日本語")))
	assert.False(t, IsText([]byte{0}))
	assert.False(t, IsText([]byte{0xff, 0xfe}))
}
