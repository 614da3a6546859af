// Package cli implements the agentvec command line.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version can be overridden at build time via:
// go build -ldflags "-X github.com/viant/agentvec/internal/cli.version=1.2.3"
var version = "0.1.0"

var collectionFlag string

var rootCmd = &cobra.Command{
	Use:           "agentvec",
	Short:         "Agent vector collection",
	Long:          color.CyanString("agentvec") + " stores agents by keyword embedding and finds the closest ones.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&collectionFlag, "collection", "c", "", "Collection name (defaults to AGENTVEC_COLLECTION)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reindexCmd)
}
