package server

import "encoding/json"

// CallRequest is the body of POST /api/mcp/call. Both fields stay loosely
// typed so a missing or malformed value can be reported precisely.
type CallRequest struct {
	Tool      any             `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Path    string `json:"path,omitempty"`
}
