// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"bottega/internal/core/id"
	"bottega/internal/domain"
)

// --- List queries ---

// ListQuery contains common list parameters.
type ListQuery struct {
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts query parameters to a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult converts a domain list result.
func FromListResult[T any](res domain.ListResult[T], items any) ListResponse {
	return ListResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
