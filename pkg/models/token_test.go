package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowTokenExtraNumbers(t *testing.T) {
	token := WindowToken{
		ID:  "abc",
		Tag: "login",
		Extra: map[string]any{
			"n":     1,
			"big":   int64(1) << 60,
			"ratio": 0.5,
		},
	}

	data, err := json.Marshal(token)
	require.NoError(t, err)

	var got WindowToken
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, json.Number("1"), got.Extra["n"])
	assert.Equal(t, json.Number("0.5"), got.Extra["ratio"])

	big, err := got.Extra["big"].(json.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<60, big)

	// a second trip is stable
	again, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestWindowTokenNamedFieldsWin(t *testing.T) {
	token := WindowToken{
		ID:    "abc",
		Tag:   "login",
		Extra: map[string]any{"tag": "spoofed", "parent": "spoofed", "env": "sandbox"},
	}

	data, err := json.Marshal(token)
	require.NoError(t, err)

	var got WindowToken
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "login", got.Tag)
	assert.Empty(t, got.Parent)
	assert.Equal(t, map[string]any{"env": "sandbox"}, got.Extra)
}
