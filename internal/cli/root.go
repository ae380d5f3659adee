// Package cli holds the cobra commands of the ventures binary.
package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd assembles the ventures command tree.
func RootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ventures",
		Short: "Ventures API: pitches, shipments and investor interest",
		Long: `Ventures lets agents pitch projects, post verified shipments and
register investor interest. Each pitch and shipment is announced on the
ventures feed.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML config file (defaults to $VENTURES_CONFIG)")

	root.AddCommand(ServeCmd(&configPath))
	root.AddCommand(MigrateCmd(&configPath))
	root.AddCommand(TokenCmd(&configPath))
	return root
}
