package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/child"
	"github.com/shehryarbajwa/framebridge/internal/component"
	"github.com/shehryarbajwa/framebridge/internal/hubclient"
	"github.com/shehryarbajwa/framebridge/internal/transport"
	"github.com/shehryarbajwa/framebridge/internal/watch"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

type childOptions struct {
	hubURL     string
	windowID   string
	parentID   string
	tag        string
	components string
	standalone bool
}

func newChildCmd(a *app) *cobra.Command {
	opts := &childOptions{}

	cmd := &cobra.Command{
		Use:   "child",
		Short: "Attach a component as a hub window",
		Long: `Attach a component to a window registered with the hub and keep it alive
until it closes. Props are printed to stdout as JSON lines.

Either attach to an existing window with --window, or register a new frame
inside --parent named for the component tag.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.hubURL == "" {
				opts.hubURL = a.cfg.Child.HubURL
			}
			if opts.windowID == "" && opts.parentID == "" {
				return fmt.Errorf("one of --window or --parent is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runChild(ctx, a, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.hubURL, "hub", "", "Hub URL; defaults to HUB_URL")
	cmd.Flags().StringVar(&opts.windowID, "window", "", "Hub window to attach to")
	cmd.Flags().StringVar(&opts.parentID, "parent", "", "Register a new frame inside this hub window")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Component tag")
	cmd.Flags().StringVar(&opts.components, "components", "", "YAML file of component definitions")
	cmd.Flags().BoolVar(&opts.standalone, "standalone", false, "Run with default props when not hosted")
	cmd.MarkFlagRequired("tag")

	return cmd
}

func loadComponent(a *app, opts *childOptions) (*component.Component, error) {
	registry := component.NewRegistry(a.logger.Named("component"))

	if opts.components != "" {
		if _, err := registry.LoadFile(opts.components); err != nil {
			return nil, err
		}
		return registry.Get(opts.tag)
	}

	return registry.Register(component.Spec{Tag: opts.tag})
}

func runChild(ctx context.Context, a *app, opts *childOptions, out io.Writer) error {
	logger := a.logger

	comp, err := loadComponent(a, opts)
	if err != nil {
		return err
	}

	client := hubclient.New(opts.hubURL, hubclient.Options{
		RetryMax: a.cfg.Child.RetryMax,
		Logger:   logger.Named("hub"),
	})

	windowID := opts.windowID
	if windowID == "" {
		name, err := comp.BuildWindowName(models.WindowToken{})
		if err != nil {
			return err
		}
		info, err := client.Register(ctx, models.RegisterWindowRequest{Name: name, ParentID: opts.parentID})
		if err != nil {
			return fmt.Errorf("failed to register window: %w", err)
		}
		windowID = info.ID
		logger.Info("Registered window", zap.String("window", windowID))
	}

	self, err := client.Self(ctx, windowID)
	if err != nil {
		return err
	}

	conn, err := transport.Dial(ctx, opts.hubURL, windowID, transport.DialOptions{
		Timeout: a.cfg.Child.HandshakeTimeout,
		Logger:  logger.Named("transport"),
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan models.CloseReason, 1)
	encoder := json.NewEncoder(out)

	ch, err := comp.Attach(ctx, child.Deps{
		Self:      self,
		Transport: conn,
		Watcher:   watch.NewPoller(a.cfg.Child.PollInterval, logger.Named("watch")),
		Logger:    logger.Named("child"),
	}, child.Options{
		Standalone: opts.standalone,
		Handlers: child.Handlers{
			OnEnter: func(c *child.Child) error {
				logger.Info("Component live", zap.String("context", string(c.Context())))
				return nil
			},
			OnProps: func(props map[string]any) error {
				return encoder.Encode(props)
			},
			OnClose: func(reason models.CloseReason) error {
				done <- reason
				return nil
			},
			OnError: func(err error) error {
				logger.Error("Component error", zap.Error(err))
				return nil
			},
		},
	})
	if err != nil {
		reportAttachError(ctx, ch, err, logger)
		return err
	}

	// Losing the relay is this window going away
	go func() {
		<-conn.Done()
		self.Unload()
	}()

	select {
	case reason := <-done:
		logger.Info("Component closed", zap.String("reason", string(reason)))
	case <-ctx.Done():
		if err := ch.UserClose(); err != nil {
			logger.Warn("Close handler failed", zap.Error(err))
		}
	}

	return nil
}

// reportAttachError tells the parent why attaching failed, when a child exists
// to send it
func reportAttachError(ctx context.Context, ch *child.Child, err error, logger *zap.Logger) {
	if ch == nil {
		return
	}
	if rerr := ch.Error(ctx, err); rerr != nil {
		logger.Debug("Failed to report error to parent", zap.Error(rerr))
	}
}
