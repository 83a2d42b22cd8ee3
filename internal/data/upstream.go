package data

import "encoding/json"

// UpstreamResponse is the envelope every upstream endpoint wraps its payload
// in
type UpstreamResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Status string          `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// UpstreamDelete is the name keyed body of the upstream delete endpoint
type UpstreamDelete struct {
	Name string `json:"name"`
}

// DeleteResult is the raw outcome of an upstream delete, Deleted is nil when
// the envelope carried no boolean data
type DeleteResult struct {
	StatusCode int
	Deleted    *bool
	Status     string
}
