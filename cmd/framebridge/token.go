package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Build and inspect component window names",
	}

	cmd.AddCommand(newTokenBuildCmd(), newTokenInspectCmd())
	return cmd
}

func newTokenBuildCmd() *cobra.Command {
	var (
		tag     string
		parent  string
		sibling bool
		extras  []string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the window name a parent would give a component",
		Example: `  framebridge token build --tag login-form --parent owner --sibling
  framebridge token build --tag wallet --extra domain=example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := models.WindowToken{Parent: parent, Sibling: sibling}

			for _, kv := range extras {
				key, value, ok := strings.Cut(kv, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid --extra %q, want key=value", kv)
				}
				if token.Extra == nil {
					token.Extra = make(map[string]any)
				}
				token.Extra[key] = value
			}

			name, err := window.BuildName(tag, token)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Component tag")
	cmd.Flags().StringVar(&parent, "parent", "", "Window name of the parent component")
	cmd.Flags().BoolVar(&sibling, "sibling", false, "The component is rendered next to its parent rather than inside it")
	cmd.Flags().StringArrayVar(&extras, "extra", nil, "Additional token field as key=value; repeatable")
	cmd.MarkFlagRequired("tag")

	return cmd
}

func newTokenInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <window-name>",
		Short: "Decode the token carried by a window name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, ok := window.ParseName(args[0])
			if !ok {
				return fmt.Errorf("%q is not a component window name", args[0])
			}

			// Extra fields are flattened the same way they travel on the wire
			data, err := json.Marshal(token)
			if err != nil {
				return err
			}
			var fields map[string]any
			if err := json.Unmarshal(data, &fields); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(fields)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(fields)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")

	return cmd
}
