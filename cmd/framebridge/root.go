package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/config"
	"github.com/shehryarbajwa/framebridge/internal/logging"
)

var version = "dev"

// app carries what every subcommand needs once flags are parsed
type app struct {
	envFile  string
	logLevel string
	dev      bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "framebridge",
		Short: "Run embeddable components across window boundaries",
		Long: `framebridge hosts the child side of cross-window components.

A parent page embeds a component in a frame or popup; the child resolves who
contains it, performs the handshake and closes itself when its parent goes away.

  framebridge hub                         # run the window hub
  framebridge child --parent <id> --tag x # attach a component under a hub window
  framebridge token inspect <name>        # decode a component window name`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().BoolVar(&a.dev, "dev", false, "Human readable console logs")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newHubCmd(a), newChildCmd(a), newTokenCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if a.dev {
		cfg.Logging.Development = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
