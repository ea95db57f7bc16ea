// Package projects holds the fixed table of tracked projects.
package projects

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Drayday134/project-dashboard/internal/browser"
)

// ErrUnknownProject is returned for names outside the fixed table.
var ErrUnknownProject = errors.New("unknown project")

// Project kinds.
const (
	KindProject = "project"
	KindTooling = "tooling"
)

// Project statuses.
const (
	StatusActive  = "active"
	StatusMissing = "missing"
)

// Project is one tracked directory.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"type"`
	Root        string `json:"root"`
}

// Summary is a Project plus a snapshot of its contents.
type Summary struct {
	Project
	FilesCount   int    `json:"files_count"`
	LastModified string `json:"last_modified"`
	Status       string `json:"status"`
}

var table = []Project{
	{Name: "threat-intel-aggregator", Description: "Threat Intelligence Aggregator with Discord integration", Kind: KindProject},
	{Name: "trading", Description: "Freqtrade Trading Bot and Strategies", Kind: KindProject},
	{Name: "fishtracker", Description: "Fish Tracking Application", Kind: KindProject},
	{Name: "sectop", Description: "Security Operations Tools", Kind: KindProject},
	{Name: "claude-git-control", Description: "Claude Git Workflows and Templates", Kind: KindTooling},
	{Name: "claude-backups", Description: "Claude Session Backups", Kind: KindTooling},
	{Name: "project-dashboard", Description: "Project Dashboard (This App)", Kind: KindTooling},
}

// Registry is the immutable set of projects, rooted under one base directory.
type Registry struct {
	projects []Project
	byName   map[string]Project
}

// NewRegistry binds the project table to baseDir.
func NewRegistry(baseDir string) *Registry {
	r := &Registry{
		projects: make([]Project, 0, len(table)),
		byName:   make(map[string]Project, len(table)),
	}
	for _, p := range table {
		p.Root = filepath.Join(baseDir, p.Name)
		r.projects = append(r.projects, p)
		r.byName[p.Name] = p
	}
	return r
}

// List returns every project in table order.
func (r *Registry) List() []Project {
	out := make([]Project, len(r.projects))
	copy(out, r.projects)
	return out
}

// Get looks up a project by name.
func (r *Registry) Get(name string) (Project, error) {
	p, ok := r.byName[name]
	if !ok {
		return Project{}, ErrUnknownProject
	}
	return p, nil
}

// Summarize walks the project root, honouring browser.Skip, to count files
// and find the newest modification time. A symlinked root is followed; links
// below it are not descended into, and links to directories are not counted.
// Unreadable subtrees are skipped.
func Summarize(p Project) Summary {
	s := Summary{Project: p, LastModified: "Unknown", Status: StatusMissing}

	root, err := filepath.EvalSymlinks(p.Root)
	if err != nil {
		return s
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return s
	}
	s.Status = StatusActive

	var latest time.Time
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && browser.Skip(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		var fi fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			fi, err = os.Stat(path)
			if err == nil && fi.IsDir() {
				return nil
			}
		} else {
			fi, err = d.Info()
		}
		s.FilesCount++
		if err == nil && fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
		return nil
	})

	if !latest.IsZero() {
		s.LastModified = latest.Format("2006-01-02 15:04")
	}
	return s
}

// SummarizeAll summarizes every project in the registry.
func (r *Registry) SummarizeAll() []Summary {
	out := make([]Summary, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, Summarize(p))
	}
	return out
}
