// Package dto holds the request shapes bound from HTTP payloads.
package dto

// PageCreateRequest creates a page. A missing title becomes "Untitled".
type PageCreateRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

// PageUpdateRequest patches a page. Absent fields keep their value;
// UpdatedAt, when given, is honored instead of the server clock so
// offline edits keep their original timestamps.
type PageUpdateRequest struct {
	Title     *string `json:"title" form:"title"`
	Content   *string `json:"content" form:"content"`
	UpdatedAt *string `json:"updated_at" form:"updated_at"`
}
