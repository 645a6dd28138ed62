package server

import "github.com/raysh454/harstyle/internal/model"

// PageIssues is the flat view of one page: violations ordered by rule and
// the rules it resolved.
type PageIssues struct {
	URL      string             `json:"url" example:"https://www.example.com/"`
	Issues   []model.Diagnostic `json:"issues"`
	Resolved []string           `json:"resolved" example:"[\"block-no-empty\"]"`
}

// GroupsResponse lists the known group keys.
type GroupsResponse struct {
	Groups []string `json:"groups" example:"[\"example.com\"]"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"group not found"`
}
