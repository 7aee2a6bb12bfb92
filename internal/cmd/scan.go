package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/spindle/internal/gcode"
	"github.com/harrison/spindle/internal/rewriter"
	"github.com/harrison/spindle/internal/scanner"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <root-directory>",
		Short: "List candidate files and the speed each currently commands",
		Long: `Recursively list every matching G-code file under the given directory
tree along with the spindle speed its initial S command currently commands.
Nothing is written.

Examples:
  spindle scan /cnc/jobs
  spindle scan . --config custom.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: scanCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .spindle/config.yaml)")

	return cmd
}

func scanCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	root := args[0]
	out := cmd.OutOrStdout()

	result, err := scanner.Scan(root, scanner.Options{Extension: cfg.FileExtension})
	if err != nil {
		return err
	}

	rw := rewriter.New(gcode.Options{
		MaxLines:     cfg.SearchWindow,
		StopAtMotion: cfg.StopAtMotion,
	})

	for _, path := range result.Files {
		match, err := rw.Check(path)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s\tS%g (line %d)\n", path, match.Speed, match.Line+1)
		case errors.Is(err, rewriter.ErrNoMatch):
			fmt.Fprintf(out, "%s\tno spindle-speed command\n", path)
		default:
			fmt.Fprintf(out, "%s\terror: %v\n", path, err)
		}
	}

	for _, scanErr := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", scanErr)
	}

	fmt.Fprintf(out, "\n%d %s file(s) found under %s\n", len(result.Files), cfg.FileExtension, root)
	return nil
}
