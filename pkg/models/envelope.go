package models

import "encoding/json"

// EnvelopeType distinguishes the three kinds of relayed messages
type EnvelopeType string

const (
	EnvelopeRequest  EnvelopeType = "request"
	EnvelopeResponse EnvelopeType = "response"
	EnvelopeNotify   EnvelopeType = "notify"
)

// Envelope is a message relayed between two windows through the hub
type Envelope struct {
	ID      string          `json:"id"`
	Type    EnvelopeType    `json:"type"`
	Name    string          `json:"name,omitempty"`
	Source  string          `json:"source,omitempty"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}
