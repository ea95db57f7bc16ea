// Package protocol defines the JSON response types of the dashboard API.
package protocol

import (
	"github.com/Drayday134/project-dashboard/internal/browser"
	"github.com/Drayday134/project-dashboard/internal/projects"
	"github.com/Drayday134/project-dashboard/internal/reader"
)

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// BinaryFileResponse is returned with 415 when a file is not displayable text.
type BinaryFileResponse struct {
	ErrorResponse
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// ProjectsResponse is returned by GET /api/projects.
type ProjectsResponse []projects.Summary

// BrowseResponse is returned by GET /api/browse/{project}/{path...}.
type BrowseResponse struct {
	Project string `json:"project"`
	*browser.Listing
}

// FileResponse is returned by GET /api/file/{project}/{path...}.
type FileResponse struct {
	Project string `json:"project"`
	*reader.Content
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
