package window

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shehryarbajwa/framebridge/pkg/models"
)

const (
	// Marker is the first segment of every window name built by BuildName
	Marker = "xcomponent"

	delimiter = "_"
)

// BuildName encodes token into a window name for a child of the given component tag.
// A fresh id is injected when the token has none.
//
// The payload is base64 without padding so that the delimiter never appears in it.
func BuildName(tag string, token models.WindowToken) (string, error) {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.Tag == "" {
		token.Tag = tag
	}

	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to encode window token: %w", err)
	}

	payload := base64.RawStdEncoding.EncodeToString(data)
	return strings.Join([]string{Marker, strings.ReplaceAll(tag, delimiter, ""), payload}, delimiter), nil
}

// ParseName is the inverse of BuildName. It only accepts names built by BuildName
// and reports ok=false for anything else, including malformed payloads.
func ParseName(name string) (token models.WindowToken, ok bool) {
	if name == "" {
		return models.WindowToken{}, false
	}

	segments := strings.Split(name, delimiter)
	if len(segments) < 3 || segments[0] != Marker {
		return models.WindowToken{}, false
	}

	// older encoders padded with '=' and swapped it for the delimiter
	payload := strings.Join(segments[2:], delimiter)
	payload = strings.TrimRight(payload, "_=")

	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return models.WindowToken{}, false
	}

	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return models.WindowToken{}, false
	}

	if err := json.Unmarshal(data, &token); err != nil {
		return models.WindowToken{}, false
	}

	return token, true
}
