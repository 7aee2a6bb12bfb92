package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for spindle
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spindle",
		Short: "Bulk spindle-speed editor for G-code program trees",
		Long: `Spindle rewrites the commanded spindle speed (the S word) across every
G-code program file found under a directory tree.

It recursively discovers matching files, locates the initial spindle-speed
command near the start of each program, and rewrites it in place using an
atomic temp-file-and-rename commit, so an interrupted run never leaves a
half-written program behind.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
