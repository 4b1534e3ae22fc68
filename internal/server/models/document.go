package models

import "encoding/json"

// Document is one JSON document in a user's tree, addressed by a
// slash-separated path relative to the user root, e.g. "customers/{id}" or
// "customers/{id}/orders/{id}". The body is stored as JSONB.
type Document struct {
	UserID    string
	Path      string
	Doc       json.RawMessage
	UpdatedAt int64
}

// Write pairs a path with a document body for atomic batch commits.
type Write struct {
	Path string          `json:"path"`
	Doc  json.RawMessage `json:"doc"`
}
