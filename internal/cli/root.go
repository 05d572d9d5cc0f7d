package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the qrelief CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (generate,
// batch, run), configures logging based on the --verbose flag, and executes
// the command tree. The logger is attached to the context and accessible to
// all commands via loggerFromContext.
func Execute() error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "qrelief",
		Short:        "qrelief turns messages into 3D QR code relief solids",
		Long:         `qrelief encodes a message as a QR code and builds a watertight relief solid from it, one raised block per dark module, optionally on a base plate. Solids can be exported as STL meshes and DXF footprints.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("qrelief %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(newGenerateCmd(&configPath))
	root.AddCommand(newBatchCmd(&configPath))
	root.AddCommand(newRunCmd(&configPath))

	return root.ExecuteContext(context.Background())
}
