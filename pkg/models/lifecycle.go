package models

import "slices"

// Phase is the lifecycle phase of an attached child component
type Phase string

const (
	PhaseConstructed  Phase = "CONSTRUCTED"
	PhaseInitializing Phase = "INITIALIZING"
	PhaseLive         Phase = "LIVE"
	PhaseClosing      Phase = "CLOSING"
	PhaseClosed       Phase = "CLOSED"
)

var phaseOrder = map[Phase]int{
	PhaseConstructed:  0,
	PhaseInitializing: 1,
	PhaseLive:         2,
	PhaseClosing:      3,
	PhaseClosed:       4,
}

// Before reports whether p comes strictly before other in the lifecycle
func (p Phase) Before(other Phase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

// ContextType is the rendering context negotiated with the parent
type ContextType string

const (
	ContextIframe   ContextType = "iframe"
	ContextPopup    ContextType = "popup"
	ContextLightbox ContextType = "lightbox"
)

// ContextTypes lists every known rendering context
var ContextTypes = []ContextType{ContextIframe, ContextLightbox, ContextPopup}

// Valid reports whether c is one of ContextTypes
func (c ContextType) Valid() bool {
	return slices.Contains(ContextTypes, c)
}

// CloseReason explains why a child closed
type CloseReason string

const (
	CloseReasonNone                CloseReason = ""
	CloseReasonParentCloseDetected CloseReason = "parent_close_detected"
	CloseReasonUserClosed          CloseReason = "user_closed"
	CloseReasonChildCall           CloseReason = "child_call"
)
