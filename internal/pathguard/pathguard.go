// Package pathguard resolves user-supplied relative paths against a project
// root and rejects anything that would land outside it.
//
// Resolution is done on canonical paths (symlinks and ".." resolved), never by
// scrubbing traversal sequences out of the input string.
package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrForbidden is returned when a path resolves outside its root.
var ErrForbidden = errors.New("path escapes project root")

// Resolve joins sub onto root, canonicalises the result and verifies that it
// is root itself or a descendant of it. The returned path is absolute and
// canonical. Components of sub that do not exist are kept as-is after the
// deepest existing ancestor has been canonicalised, so callers can report
// "not found" once the guard has passed.
//
// A lexical escape is rejected before the filesystem is consulted at all.
func Resolve(root, sub string) (string, error) {
	if strings.ContainsRune(sub, 0) {
		return "", ErrForbidden
	}
	native := filepath.FromSlash(sub)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" || strings.HasPrefix(sub, "/") {
		return "", ErrForbidden
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	joined := filepath.Join(absRoot, native)
	if !within(absRoot, joined) {
		return "", ErrForbidden
	}

	canonRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}

	rel, err := filepath.Rel(absRoot, joined)
	if err != nil {
		return "", ErrForbidden
	}
	target, err := evalExisting(filepath.Join(canonRoot, rel))
	if err != nil {
		return "", err
	}
	if !within(canonRoot, target) {
		return "", ErrForbidden
	}
	return target, nil
}

// Clean normalises a request sub-path to slash form relative to the project
// root. The root itself is "". Clean does not make a path safe; use Resolve.
func Clean(sub string) string {
	c := path.Clean("/" + sub)
	return strings.TrimPrefix(c, "/")
}

// evalExisting canonicalises p. When p (or one of its parents) does not
// exist, the deepest existing ancestor is canonicalised and the missing
// components are appended unchanged.
func evalExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	parent := filepath.Dir(p)
	if parent == p {
		return "", err
	}
	canonParent, perr := evalExisting(parent)
	if perr != nil {
		return "", perr
	}
	return filepath.Join(canonParent, filepath.Base(p)), nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
