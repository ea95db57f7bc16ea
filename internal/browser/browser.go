// Package browser lists the immediate children of a project directory.
package browser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	set "github.com/deckarep/golang-set/v2"

	"github.com/Drayday134/project-dashboard/internal/pathguard"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	ErrNotFound     = errors.New("path not found")
	ErrNotDirectory = errors.New("not a directory")
	ErrPermission   = errors.New("permission denied")
)

// skipNames are never listed or walked, in addition to dot-entries.
var skipNames = set.NewSet("node_modules", "__pycache__", "venv")

// Skip reports whether an entry name is hidden from listings and walks.
func Skip(name string) bool {
	return strings.HasPrefix(name, ".") || skipNames.Contains(name)
}

// Entry types.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Entry is one child of a listed directory.
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     *int64 `json:"size"`
	Modified string `json:"modified"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == TypeDirectory
}

// Listing is a single directory's visible contents. Directories come first,
// then files, each sorted by name.
type Listing struct {
	CurrentPath string  `json:"current_path"`
	ParentPath  *string `json:"parent_path"`
	Items       []Entry `json:"items"`
}

// List reads dir, the canonical path of rel inside the project rooted at
// root. dir must already have passed pathguard.Resolve. Symlinked children
// are only listed when they also resolve inside root.
func List(root, rel, dir string) (*Listing, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, classify(rel, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotDirectory)
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify(rel, err)
	}

	// ReadDir returns children sorted by name
	var dirs, files []Entry
	for _, child := range children {
		name := child.Name()
		if Skip(name) {
			continue
		}
		childRel := path.Join(rel, name)

		if child.Type()&fs.ModeSymlink != 0 {
			if _, err := pathguard.Resolve(root, childRel); err != nil {
				continue
			}
		}

		st, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			// Vanished or unreadable since ReadDir
			continue
		}

		e := Entry{
			Name:     name,
			Path:     childRel,
			Modified: st.ModTime().Format(timeLayout),
		}
		if st.IsDir() {
			e.Type = TypeDirectory
			dirs = append(dirs, e)
		} else {
			size := st.Size()
			e.Type = TypeFile
			e.Size = &size
			files = append(files, e)
		}
	}

	l := &Listing{
		CurrentPath: rel,
		Items:       append(dirs, files...),
	}
	if l.Items == nil {
		l.Items = []Entry{}
	}
	if rel != "" {
		parent := path.Dir(rel)
		if parent == "." {
			parent = ""
		}
		l.ParentPath = &parent
	}
	return l, nil
}

func classify(rel string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s: %w", rel, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", rel, ErrPermission)
	default:
		return fmt.Errorf("list %s: %w", rel, err)
	}
}
