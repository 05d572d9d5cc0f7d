package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chiselcad/qrelief/pkg/config"
	"github.com/chiselcad/qrelief/pkg/pipeline"
)

// newBatchCmd creates the batch command for building one relief per key
// from a CSV or Excel key file. The file must carry a KEY column; keys are
// read in order and each becomes one relief with the shared sizing flags.
//
// Failing keys are logged and skipped; the command only fails when no key
// produces a solid.
func newBatchCmd(configPath *string) *cobra.Command {
	var opts reliefOpts

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Build one relief per key from a CSV or Excel key file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			opts.merge(cmd, cfg)
			return runBatch(cmd, args[0], &opts)
		},
	}
	opts.addReliefFlags(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, path string, opts *reliefOpts) error {
	logger := loggerFromContext(cmd.Context())
	proto, err := opts.request("")
	if err != nil {
		return err
	}
	runner, _ := opts.runner(logger)

	session := pipeline.NewBatchSession()
	if err := session.LoadFile(path); err != nil {
		return err
	}
	logger.Info("loaded key file", "path", path, "keys", len(session.Keys()))
	if err := session.Confirm(); err != nil {
		return err
	}

	p := newProgress(logger)
	results, err := session.Run(runner, proto)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Warn("key failed", "key", res.Key, "err", res.Err)
		}
	}
	if failed == len(results) {
		return fmt.Errorf("all %d keys failed", failed)
	}
	p.done(fmt.Sprintf("Built %d of %d reliefs", len(results)-failed, len(results)))
	return nil
}
