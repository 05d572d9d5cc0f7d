package cli

import (
	"github.com/spf13/cobra"

	"github.com/chiselcad/qrelief/pkg/config"
)

// newGenerateCmd creates the generate command for building a single relief
// solid from a message.
//
// Default settings:
//   - size: 24 mm, height: 0.4 mm, no base plate
//   - level: M (medium error correction)
//   - placement: world origin, world XY plane
//   - stl: true, dxf: false
func newGenerateCmd(configPath *string) *cobra.Command {
	var opts reliefOpts

	cmd := &cobra.Command{
		Use:   "generate [message]",
		Short: "Build one relief solid from a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			opts.merge(cmd, cfg)
			return runGenerate(cmd, args[0], &opts)
		},
	}
	opts.addReliefFlags(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, message string, opts *reliefOpts) error {
	logger := loggerFromContext(cmd.Context())
	req, err := opts.request(message)
	if err != nil {
		return err
	}
	runner, _ := opts.runner(logger)

	p := newProgress(logger)
	out, err := runner.GenerateOne(req)
	if err != nil {
		return err
	}
	if n := len(out.SkippedCells); n > 0 {
		logger.Warn("some cells could not be merged", "skipped", n)
	}
	if out.STLPath != "" {
		logger.Info("wrote mesh", "path", out.STLPath)
	}
	if out.DXFPath != "" {
		logger.Info("wrote footprint", "path", out.DXFPath)
	}
	p.done("Built " + out.Container.Name)
	return nil
}
