package projects

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allNames = []string{
	"threat-intel-aggregator", "trading", "fishtracker", "sectop",
	"claude-git-control", "claude-backups", "project-dashboard",
}

func TestRegistryListIsFixed(t *testing.T) {
	r := NewRegistry("/home/dragon")

	list := r.List()
	require.Len(t, list, len(allNames))
	for i, p := range list {
		assert.Equal(t, allNames[i], p.Name)
		assert.Equal(t, filepath.Join("/home/dragon", p.Name), p.Root)
		assert.NotEmpty(t, p.Description)
	}
	assert.Equal(t, KindProject, list[0].Kind)
	assert.Equal(t, KindTooling, list[6].Kind)

	// Callers cannot mutate the registry through the returned slice
	list[0].Root = "/tmp"
	p, err := r.Get("threat-intel-aggregator")
	require.NoError(t, err)
	assert.Equal(t, "/home/dragon/threat-intel-aggregator", p.Root)
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry("/home/dragon")
	for _, name := range []string{"", "..", "etc", "Trading", "trading/"} {
		_, err := r.Get(name)
		assert.ErrorIs(t, err, ErrUnknownProject, name)
	}
}

func TestSummarize(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base)
	root := filepath.Join(base, "trading")

	for _, f := range []string{
		"strategy.py",
		"user_data/config.json",
		".gitignore",
		".git/HEAD",
		"node_modules/lib/index.js",
		"venv/bin/python",
		"__pycache__/x.pyc",
	} {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	newest := time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local)
	require.NoError(t, os.Chtimes(filepath.Join(root, "user_data/config.json"), newest, newest))
	old := newest.Add(-48 * time.Hour)
	for _, f := range []string{"strategy.py", ".gitignore"} {
		require.NoError(t, os.Chtimes(filepath.Join(root, f), old, old))
	}

	p, err := r.Get("trading")
	require.NoError(t, err)
	s := Summarize(p)

	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, 3, s.FilesCount, "strategy.py, user_data/config.json, .gitignore")
	assert.Equal(t, "2025-03-14 15:09", s.LastModified)
}

func TestSummarizeMissingRoot(t *testing.T) {
	r := NewRegistry(t.TempDir())

	summaries := r.SummarizeAll()
	require.Len(t, summaries, len(allNames))
	for _, s := range summaries {
		assert.Equal(t, StatusMissing, s.Status)
		assert.Equal(t, 0, s.FilesCount)
		assert.Equal(t, "Unknown", s.LastModified)
	}
}

func TestSummarizeFollowsSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "mnt", "trading")
	home := filepath.Join(base, "home")
	for _, f := range []string{"a.txt", "b.txt", "src/c.go"} {
		p := filepath.Join(target, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	newest := time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(filepath.Join(target, "src", "c.go"), newest, newest))
	for _, f := range []string{"a.txt", "b.txt"} {
		old := newest.Add(-time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(target, f), old, old))
	}
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(home, "trading")))

	p, err := NewRegistry(home).Get("trading")
	require.NoError(t, err)
	s := Summarize(p)

	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, 3, s.FilesCount)
	assert.Equal(t, "2025-06-01 09:30", s.LastModified)
}

func TestSummarizeSymlinksInsideProject(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "sectop")
	shared := filepath.Join(base, "shared")
	for _, p := range []string{
		filepath.Join(root, "main.go"),
		filepath.Join(shared, "one.txt"),
		filepath.Join(shared, "two.txt"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	// A linked directory is neither descended into nor counted; a linked file is counted
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "vendor")))
	require.NoError(t, os.Symlink(filepath.Join(shared, "one.txt"), filepath.Join(root, "one.txt")))

	p, err := NewRegistry(base).Get("sectop")
	require.NoError(t, err)
	s := Summarize(p)

	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, 2, s.FilesCount, "main.go and the one.txt link")
}
