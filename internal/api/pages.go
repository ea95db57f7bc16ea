package api

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Drayday134/project-dashboard/internal/browser"
	"github.com/Drayday134/project-dashboard/internal/logging"
	"github.com/Drayday134/project-dashboard/internal/projects"
	"github.com/Drayday134/project-dashboard/internal/reader"
)

// pageData is the single view model shared by every template.
type pageData struct {
	User     string
	Username string
	Error    string
	Message  string
	Status   int

	Projects []projects.Summary

	Project projects.Project
	Path    string
	Crumbs  []crumb
	Listing *browser.Listing
	File    *reader.Content
}

type crumb struct {
	Name string
	Path string
}

func crumbsFor(rel string) []crumb {
	if rel == "" {
		return nil
	}
	parts := strings.Split(rel, "/")
	out := make([]crumb, 0, len(parts))
	for i, part := range parts {
		out = append(out, crumb{Name: part, Path: strings.Join(parts[:i+1], "/")})
	}
	return out
}

// browseURL builds /browse/<project>/<path> with every segment escaped.
func browseURL(project, rel string) string {
	var b strings.Builder
	b.WriteString("/browse/")
	b.WriteString(url.PathEscape(project))
	b.WriteString("/")
	if rel != "" {
		segs := strings.Split(rel, "/")
		for i, seg := range segs {
			segs[i] = url.PathEscape(seg)
		}
		b.WriteString(strings.Join(segs, "/"))
	}
	return b.String()
}

var funcs = template.FuncMap{
	"browseURL": browseURL,
	"bytes": func(n int64) string {
		return humanize.IBytes(uint64(n))
	},
	"sizeOf": func(n *int64) string {
		if n == nil {
			return ""
		}
		return humanize.IBytes(uint64(*n))
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// pages holds one template set per page, each parsed with the shared layout.
type pages struct {
	sets map[string]*template.Template
}

func loadPages(assets fs.FS) (*pages, error) {
	p := &pages{sets: make(map[string]*template.Template)}
	for _, name := range []string{"login", "dashboard", "browse", "file", "error"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets,
			"templates/layout.html",
			"templates/crumbs.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// render executes a page into a buffer first so template errors never
// produce a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data *pageData) {
	t, ok := s.pages.sets[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.WithContext(r.Context()).Error("template render failed",
			zap.String("page", name),
			zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
