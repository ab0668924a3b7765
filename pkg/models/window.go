package models

import "time"

// WindowStatus represents the liveness of a window registered with the hub
type WindowStatus string

const (
	StatusOpen   WindowStatus = "OPEN"
	StatusClosed WindowStatus = "CLOSED"
)

// WindowInfo is the hub's record of a window and its place in the window tree
type WindowInfo struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	ParentID  string       `json:"parentId,omitempty"`
	OpenerID  string       `json:"openerId,omitempty"`
	TopID     string       `json:"topId"`
	Status    WindowStatus `json:"status"`
	Width     int          `json:"width,omitempty"`
	Height    int          `json:"height,omitempty"`
	Focused   bool         `json:"focused,omitempty"`
	Connected bool         `json:"connected"`
	CreatedAt time.Time    `json:"createdAt"`
	ClosedAt  *time.Time   `json:"closedAt,omitempty"`
}

// RegisterWindowRequest is the payload for registering a window with the hub
type RegisterWindowRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	OpenerID string `json:"openerId,omitempty"`
}

// ResizeWindowRequest records a local resize of a popup
type ResizeWindowRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
