package model

import "encoding/json"

// Message represents a board message as served by the message store
type Message struct {
	Content string `json:"Content"`
	UserIP  string `json:"UserIP"`
}

// PostRequest is the body of a message creation request
type PostRequest struct {
	Content string `json:"Content"`
	Address string `json:"Address"`
}

// StreamEvent is the frame pushed over the websocket transport
type StreamEvent struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// DisplayRecord is one rendered line of the message list
type DisplayRecord struct {
	Label   string
	Content string
}

func (r DisplayRecord) String() string {
	if r.Label == "" {
		return r.Content
	}
	return r.Label + ": " + r.Content
}
