package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Drayday134/project-dashboard/internal/auth"
	"github.com/Drayday134/project-dashboard/internal/browser"
	"github.com/Drayday134/project-dashboard/internal/logging"
	"github.com/Drayday134/project-dashboard/internal/metrics"
	"github.com/Drayday134/project-dashboard/internal/reader"
)

// ─── Login ──────────────────────────────────────────────────────────────────

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.FromRequest(r); err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, r, "login", http.StatusOK, &pageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "login", http.StatusBadRequest, &pageData{Error: "Invalid form submission"})
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if !s.auth.Authenticate(username, password) {
		logging.WithContext(r.Context()).Warn("login failed",
			zap.String("username", username),
			zap.String("remote_addr", r.RemoteAddr))
		s.render(w, r, "login", http.StatusUnauthorized, &pageData{
			Username: username,
			Error:    "Invalid credentials",
		})
		return
	}

	token, session, err := s.auth.Login(username)
	if err != nil {
		logging.WithContext(r.Context()).Error("session creation failed", zap.Error(err))
		s.render(w, r, "login", http.StatusInternalServerError, &pageData{Error: "Could not start a session"})
		return
	}
	s.auth.SetCookie(w, token, session)
	logging.SetUser(r.Context(), username)
	logging.WithContext(r.Context()).Info("login successful", zap.String("username", username))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session := auth.GetSession(r.Context()); session != nil {
		s.auth.Revoke(session.ID)
		logging.WithContext(r.Context()).Info("logout", zap.String("username", session.Username))
	}
	s.auth.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// ─── Dashboard ──────────────────────────────────────────────────────────────

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard", http.StatusOK, &pageData{
		User:     currentUser(r),
		Projects: s.registry.SummarizeAll(),
	})
}

// ─── Browse ─────────────────────────────────────────────────────────────────

// handleBrowse renders a directory listing, or the file view when the path
// names a file.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolve(r)
	if err != nil {
		s.renderError(w, r, t, err)
		return
	}

	data := &pageData{
		User:    currentUser(r),
		Project: t.project,
		Path:    t.rel,
		Crumbs:  crumbsFor(t.rel),
	}

	listing, err := browser.List(t.project.Root, t.rel, t.abs)
	if err == nil {
		metrics.RecordDirectoryListing()
		data.Listing = listing
		s.render(w, r, "browse", http.StatusOK, data)
		return
	}
	if !errors.Is(err, browser.ErrNotDirectory) {
		s.renderError(w, r, t, err)
		return
	}

	content, err := reader.Read(t.abs, t.rel)
	if err != nil {
		recordReadFailure(err)
		s.renderError(w, r, t, err)
		return
	}
	metrics.RecordFileRead("ok", content.Size)
	data.File = content
	s.render(w, r, "file", http.StatusOK, data)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, t target, err error) {
	f := classify(err)
	logFailure(r, f, err)
	s.render(w, r, "error", f.status, &pageData{
		User:    currentUser(r),
		Status:  f.status,
		Error:   f.title,
		Message: f.message,
		Project: t.project,
		Path:    t.rel,
		Crumbs:  crumbsFor(t.rel),
	})
}

func currentUser(r *http.Request) string {
	if session := auth.GetSession(r.Context()); session != nil {
		return session.Username
	}
	return ""
}

func recordReadFailure(err error) {
	var tooLarge *reader.TooLargeError
	var notText *reader.NotTextError
	switch {
	case errors.As(err, &tooLarge):
		metrics.RecordFileRead("too_large", 0)
	case errors.As(err, &notText):
		metrics.RecordFileRead("binary", 0)
	default:
		metrics.RecordFileRead("error", 0)
	}
}
