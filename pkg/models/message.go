package models

// Message names exchanged between a child and its parent
const (
	MessageInit       = "xcomponent_init"
	MessageResize     = "xcomponent_resize"
	MessageHide       = "xcomponent_hide"
	MessageClose      = "xcomponent_close"
	MessageError      = "xcomponent_error"
	MessageProps      = "xcomponent_props"
	MessageChildClose = "xcomponent_child_close"
)

// Operations a child exposes to its parent in the INIT handshake
const (
	ExportUpdateProps = "updateProps"
	ExportClose       = "close"
)

// ExportMessages maps each exported operation to the message name the parent uses to invoke it
var ExportMessages = map[string]string{
	ExportUpdateProps: MessageProps,
	ExportClose:       MessageChildClose,
}

// InitRequest is the payload of the INIT handshake
type InitRequest struct {
	Tag     string            `json:"tag"`
	Exports map[string]string `json:"exports"`
}

// InitResponse is the parent's answer to INIT
type InitResponse struct {
	Context ContextType    `json:"context"`
	Props   map[string]any `json:"props"`
}

// ResizeRequest asks the parent to resize the embedding frame
type ResizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CloseRequest tells the parent the child is closing
type CloseRequest struct {
	Reason CloseReason `json:"reason"`
}

// ErrorReport carries a child-side error up to the parent
type ErrorReport struct {
	Error string `json:"error"`
}
