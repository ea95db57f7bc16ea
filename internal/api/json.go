package api

import (
	"errors"
	"net/http"
	"path"

	"github.com/Drayday134/project-dashboard/internal/browser"
	"github.com/Drayday134/project-dashboard/internal/metrics"
	"github.com/Drayday134/project-dashboard/internal/protocol"
	"github.com/Drayday134/project-dashboard/internal/reader"
)

func (s *Server) handleAPIProjects(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, protocol.ProjectsResponse(s.registry.SummarizeAll()))
}

func (s *Server) handleAPIBrowse(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolve(r)
	if err != nil {
		s.sendFailure(w, r, err)
		return
	}

	listing, err := browser.List(t.project.Root, t.rel, t.abs)
	if err != nil {
		s.sendFailure(w, r, err)
		return
	}
	metrics.RecordDirectoryListing()
	s.writeJSON(w, r, http.StatusOK, protocol.BrowseResponse{
		Project: t.project.Name,
		Listing: listing,
	})
}

func (s *Server) handleAPIFile(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolve(r)
	if err != nil {
		s.sendFailure(w, r, err)
		return
	}

	content, err := reader.Read(t.abs, t.rel)
	if err != nil {
		recordReadFailure(err)

		var notText *reader.NotTextError
		if errors.As(err, &notText) {
			f := classify(err)
			logFailure(r, f, err)
			s.writeJSON(w, r, f.status, protocol.BinaryFileResponse{
				ErrorResponse: protocol.ErrorResponse{Error: f.title, Code: f.status, Message: f.message},
				Name:          path.Base(t.rel),
				Path:          t.rel,
				Size:          notText.Size,
				Type:          "binary",
			})
			return
		}
		s.sendFailure(w, r, err)
		return
	}

	metrics.RecordFileRead("ok", content.Size)
	s.writeJSON(w, r, http.StatusOK, protocol.FileResponse{
		Project: t.project.Name,
		Content: content,
	})
}

func (s *Server) sendFailure(w http.ResponseWriter, r *http.Request, err error) {
	f := classify(err)
	logFailure(r, f, err)
	s.sendError(w, f.status, f.title, f.message)
}
