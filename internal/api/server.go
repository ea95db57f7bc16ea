// Package api provides the HTTP server and handlers.
package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Drayday134/project-dashboard/internal/auth"
	"github.com/Drayday134/project-dashboard/internal/browser"
	"github.com/Drayday134/project-dashboard/internal/logging"
	"github.com/Drayday134/project-dashboard/internal/metrics"
	"github.com/Drayday134/project-dashboard/internal/pathguard"
	"github.com/Drayday134/project-dashboard/internal/projects"
	"github.com/Drayday134/project-dashboard/internal/protocol"
	"github.com/Drayday134/project-dashboard/internal/reader"
	"github.com/Drayday134/project-dashboard/web"
)

const version = "1.0"

// Pool gzip writers to reduce allocations on JSON endpoints.
var gzipPool = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

// Server is the HTTP server.
type Server struct {
	auth     *auth.Auth
	registry *projects.Registry
	pages    *pages
}

// NewServer creates a new server.
func NewServer(authHandler *auth.Auth, registry *projects.Registry) (*Server, error) {
	p, err := loadPages(web.Assets)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return &Server{
		auth:     authHandler,
		registry: registry,
		pages:    p,
	}, nil
}

// Handler returns the HTTP handler with auth, logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)

	staticFS, _ := fs.Sub(web.Assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// HTML pages redirect to /login without a session
	page := func(h http.HandlerFunc) http.Handler { return s.auth.RequireHTML(h) }
	mux.Handle("GET /logout", page(s.handleLogout))
	mux.Handle("GET /{$}", page(s.handleDashboard))
	mux.Handle("GET /browse", page(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	mux.Handle("GET /browse/{project}", page(s.handleBrowse))
	mux.Handle("GET /browse/{project}/{path...}", page(s.handleBrowse))

	// JSON endpoints answer 401 without a session
	api := func(h http.HandlerFunc) http.Handler { return s.auth.RequireJSON(h) }
	mux.Handle("GET /api/projects", api(s.handleAPIProjects))
	mux.Handle("GET /api/browse/{project}", api(s.handleAPIBrowse))
	mux.Handle("GET /api/browse/{project}/{path...}", api(s.handleAPIBrowse))
	mux.Handle("GET /api/file/{project}/{path...}", api(s.handleAPIFile))
	mux.Handle("GET /api/", api(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusNotFound, "endpoint not found", "")
	}))

	// Metrics innermost so it sees the pattern set by the mux
	return logging.Middleware(metrics.Middleware(mux))
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, protocol.HealthResponse{Status: "ok", Version: version})
}

// ─── Path resolution ────────────────────────────────────────────────────────

// target is a request path that has passed the traversal guard.
type target struct {
	project projects.Project
	rel     string // slash-separated, relative to the project root
	abs     string // canonical absolute path
}

// resolve looks up the project named in the request and runs the traversal
// guard on the requested sub-path. Nothing under the project root is read
// before this returns successfully.
func (s *Server) resolve(r *http.Request) (target, error) {
	p, err := s.registry.Get(r.PathValue("project"))
	if err != nil {
		return target{}, err
	}
	raw := r.PathValue("path")
	abs, err := pathguard.Resolve(p.Root, raw)
	if err != nil {
		if errors.Is(err, pathguard.ErrForbidden) {
			metrics.RecordTraversalRejection()
			logging.WithContext(r.Context()).Warn("path traversal rejected",
				zap.String("project", p.Name),
				zap.String("path", raw))
		}
		return target{project: p}, err
	}
	return target{project: p, rel: pathguard.Clean(raw), abs: abs}, nil
}

// ─── Error mapping ──────────────────────────────────────────────────────────

// failure is an error translated for the client.
type failure struct {
	status  int
	title   string
	message string
}

func classify(err error) failure {
	var tooLarge *reader.TooLargeError
	var notText *reader.NotTextError

	switch {
	case errors.Is(err, projects.ErrUnknownProject):
		return failure{http.StatusNotFound, "Project not found", ""}
	case errors.Is(err, pathguard.ErrForbidden):
		return failure{http.StatusForbidden, "Access denied", "The requested path is outside the project."}
	case errors.As(err, &tooLarge):
		return failure{http.StatusRequestEntityTooLarge, "File too large", tooLarge.Message()}
	case errors.As(err, &notText):
		return failure{http.StatusUnsupportedMediaType, "Binary file", "Cannot display binary files"}
	case errors.Is(err, browser.ErrNotDirectory):
		return failure{http.StatusBadRequest, "Not a directory", ""}
	case errors.Is(err, reader.ErrNotFile):
		return failure{http.StatusBadRequest, "Not a file", ""}
	case errors.Is(err, browser.ErrNotFound), errors.Is(err, reader.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return failure{http.StatusNotFound, "Path not found", ""}
	case errors.Is(err, browser.ErrPermission), errors.Is(err, reader.ErrPermission), errors.Is(err, fs.ErrPermission):
		return failure{http.StatusForbidden, "Permission denied", ""}
	default:
		return failure{http.StatusInternalServerError, "Internal error", ""}
	}
}

func logFailure(r *http.Request, f failure, err error) {
	if f.status >= http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error("request failed", zap.Error(err))
		return
	}
	logging.WithContext(r.Context()).Debug("request refused",
		zap.Int("status", f.status),
		zap.Error(err))
}

// ─── JSON helpers ───────────────────────────────────────────────────────────

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Vary", "Accept-Encoding")

	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(code)
		gw := gzipPool.Get().(*gzip.Writer)
		gw.Reset(w)
		json.NewEncoder(gw).Encode(v)
		gw.Close()
		gzipPool.Put(gw)
		return
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error:   message,
		Code:    code,
		Message: details,
	})
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}
