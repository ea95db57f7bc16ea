// Package reader loads small text files for display.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"syscall"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding/unicode"
)

// MaxSize is the largest file served, in bytes. A file of exactly MaxSize is allowed.
const MaxSize int64 = 1 << 20

var (
	ErrNotFound   = errors.New("file not found")
	ErrNotFile    = errors.New("not a file")
	ErrPermission = errors.New("permission denied")
)

// TooLargeError is returned for files over the size limit.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return "file too large: " + e.Message()
}

// Message is the human-readable explanation shown to users.
func (e *TooLargeError) Message() string {
	return fmt.Sprintf("File size: %s. Maximum: %s", humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)))
}

// NotTextError is returned when the content looks binary.
type NotTextError struct {
	Size int64
}

func (e *NotTextError) Error() string {
	return "binary file: cannot display binary files"
}

// Content is a fully read text file.
type Content struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Read returns the text at p, the canonical path of rel. p must already have
// passed pathguard.Resolve.
func Read(p, rel string) (*Content, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, classify(rel, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", rel, ErrNotFile)
	}
	if info.Size() > MaxSize {
		return nil, &TooLargeError{Size: info.Size(), Limit: MaxSize}
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, classify(rel, err)
	}
	defer f.Close()

	// The file may have grown since Stat
	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	if int64(len(data)) > MaxSize {
		return nil, &TooLargeError{Size: max(info.Size(), int64(len(data))), Limit: MaxSize}
	}

	if !IsText(data) {
		return nil, &NotTextError{Size: int64(len(data))}
	}
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return nil, &NotTextError{Size: int64(len(data))}
	}

	return &Content{
		Name:    path.Base(rel),
		Path:    rel,
		Size:    int64(len(data)),
		Content: string(text),
		Type:    "text",
	}, nil
}

// IsText reports whether data is displayable: valid UTF-8 with no NUL bytes.
func IsText(data []byte) bool {
	return bytes.IndexByte(data, 0) < 0 && utf8.Valid(data)
}

func classify(rel string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s: %w", rel, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", rel, ErrPermission)
	default:
		return fmt.Errorf("open %s: %w", rel, err)
	}
}
