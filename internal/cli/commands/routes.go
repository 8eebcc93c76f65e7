package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resumate-app/resumate/internal/api"
	"github.com/resumate-app/resumate/internal/cli/ui"
	"github.com/resumate-app/resumate/internal/config"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes",
		Long:  "Print every route the API registers with its name and whether it requires a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return printRoutes(cmd.OutOrStdout(), cfg.Server.APIPrefix, filter)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only show routes whose pattern or name contains this text")
	return cmd
}

func printRoutes(out io.Writer, prefix, filter string) error {
	routes := api.New(api.Services{}, api.Config{Prefix: prefix}, nil).Routes().Routes()

	t := ui.NewTable(out, noColor, "METHOD", "PATTERN", "NAME", "AUTH")
	shown := 0
	for _, r := range routes {
		if filter != "" && !strings.Contains(r.Pattern, filter) && !strings.Contains(r.Name, filter) {
			continue
		}
		auth := ""
		if r.Protected {
			auth = "token"
		}
		t.AddRow(r.Method, r.Pattern, r.Name, auth)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(out, "No routes match")
		return nil
	}
	t.Render()
	return nil
}
