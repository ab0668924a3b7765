package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shehryarbajwa/framebridge/internal/child"
	"github.com/shehryarbajwa/framebridge/internal/config"
	"github.com/shehryarbajwa/framebridge/internal/transport"
	"github.com/shehryarbajwa/framebridge/internal/watch"
	"github.com/shehryarbajwa/framebridge/internal/window"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", "does-not-exist.env", "--log-level", "error"}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"version flag", []string{"--version"}, false},
		{"help flag", []string{"--help"}, false},
		{"unknown command", []string{"bogus"}, true},
		{"child without window", []string{"child", "--tag", "x"}, true},
		{"child without tag", []string{"child", "--window", "w1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	name, err := execute(t, "token", "build", "--tag", "login-form", "--parent", "owner", "--sibling", "--extra", "domain=example.com")
	require.NoError(t, err)
	name = strings.TrimSpace(name)
	assert.True(t, strings.HasPrefix(name, "xcomponent_login-form_"))

	out, err := execute(t, "token", "inspect", name)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	assert.Equal(t, "login-form", fields["tag"])
	assert.Equal(t, "owner", fields["parent"])
	assert.Equal(t, true, fields["sibling"])
	assert.Equal(t, "example.com", fields["domain"])
	assert.NotEmpty(t, fields["id"])

	out, err = execute(t, "token", "inspect", "--format", "yaml", name)
	require.NoError(t, err)
	assert.Contains(t, out, "tag: login-form")
}

func TestTokenErrors(t *testing.T) {
	_, err := execute(t, "token", "inspect", "plain-window")
	assert.Error(t, err)

	_, err = execute(t, "token", "build", "--tag", "x", "--extra", "novalue")
	assert.Error(t, err)

	_, err = execute(t, "token", "build")
	assert.Error(t, err)
}

func TestRunHubStops(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Hub.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runHub(ctx, &app{cfg: cfg, logger: zap.NewNop()}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestReportAttachError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	reportAttachError(context.Background(), nil, errors.New("boom"), logger)
	assert.Zero(t, logs.Len())

	// never initialized, so there is no parent to tell
	self := window.NewTop("page")
	ch, err := child.New(child.Deps{
		Self:      self,
		Transport: transport.NewBus(time.Second).Endpoint(self),
		Watcher:   watch.NewManual(),
		Registry:  child.NewRegistry(),
	}, child.Options{Tag: "login"})
	require.NoError(t, err)

	reportAttachError(context.Background(), ch, errors.New("boom"), logger)
	entries := logs.FilterMessage("Failed to report error to parent").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], window.ErrNoParentContext.Error())
}
