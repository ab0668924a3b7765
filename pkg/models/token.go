package models

import (
	"bytes"
	"encoding/json"
)

// WindowToken is the record a parent embeds in a child window's name when it creates it
type WindowToken struct {
	ID      string `json:"id"`
	Tag     string `json:"tag"`
	Parent  string `json:"parent,omitempty"`
	Sibling bool   `json:"sibling,omitempty"`

	// Extra carries any other fields the parent chose to pass down. Decoded
	// values are JSON types; numbers arrive as json.Number so large ids keep
	// their precision.
	Extra map[string]any `json:"-"`
}

var tokenFields = []string{"id", "tag", "parent", "sibling"}

// MarshalJSON flattens Extra next to the named fields
func (t WindowToken) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+len(tokenFields))
	for k, v := range t.Extra {
		out[k] = v
	}

	out["id"] = t.ID
	out["tag"] = t.Tag
	delete(out, "parent")
	delete(out, "sibling")
	if t.Parent != "" {
		out["parent"] = t.Parent
	}
	if t.Sibling {
		out["sibling"] = true
	}

	return json.Marshal(out)
}

// UnmarshalJSON collects unknown keys into Extra
func (t *WindowToken) UnmarshalJSON(data []byte) error {
	type plain WindowToken

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	for _, k := range tokenFields {
		delete(raw, k)
	}

	*t = WindowToken(p)
	t.Extra = nil
	if len(raw) > 0 {
		t.Extra = raw
	}

	return nil
}
