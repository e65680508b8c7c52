package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ownership <command>",
		Short:         "Compute effective ownership over snapshot files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringP("file", "f", "", "snapshot file (.json, .yaml or .yml)")
	root.PersistentFlags().Bool("json", false, "output as JSON")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newSolveCmd())
	root.AddCommand(newValidateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
