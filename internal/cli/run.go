package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chiselcad/qrelief/pkg/config"
	"github.com/chiselcad/qrelief/pkg/pipeline"
	"github.com/chiselcad/qrelief/pkg/script"
)

// newRunCmd creates the run command for evaluating a plan script and
// executing the jobs it declares. The script language is a small Lisp; the
// (relief ...) builtin queues one job per call:
//
//	(relief "HELLO"
//	        :params (params :size 30 :height 0.6 :base 1)
//	        :anchor (anchor :at (vec3 0 0 5))
//	        :stl true)
//
// Sizing flags are not available here; scripts carry their own parameters.
func newRunCmd(configPath *string) *cobra.Command {
	var (
		level     string
		exportDir string
		cells     int
	)

	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Evaluate a plan script and execute its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("level") {
				level = cfg.RecoveryLevel
			}
			if !cmd.Flags().Changed("out") {
				exportDir = cfg.ExportDir
			}
			if !cmd.Flags().Changed("cells") {
				cells = cfg.MeshCells
			}
			opts := reliefOpts{level: level, exportDir: exportDir, cells: cells}
			return runScript(cmd, args[0], &opts)
		},
	}

	def := config.Default()
	cmd.Flags().StringVar(&level, "level", def.RecoveryLevel, "QR error-correction level (L, M, Q, H)")
	cmd.Flags().StringVar(&exportDir, "out", def.ExportDir, "directory for exported files")
	cmd.Flags().IntVar(&cells, "cells", def.MeshCells, "marching cubes resolution for STL export")
	return cmd
}

func runScript(cmd *cobra.Command, path string, opts *reliefOpts) error {
	logger := loggerFromContext(cmd.Context())

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	plan, evalErrs, err := script.NewEngine().Evaluate(string(source))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			logger.Error("script error", "line", e.Line, "msg", e.Message)
		}
		return fmt.Errorf("%s: %d script errors", path, len(evalErrs))
	}
	if len(plan.Jobs) == 0 {
		logger.Warn("script declared no jobs", "path", path)
		return nil
	}

	runner, _ := opts.runner(logger)

	p := newProgress(logger)
	failed := 0
	for i, job := range plan.Jobs {
		out, err := runner.GenerateOne(pipeline.Request{
			Message:   job.Message,
			Anchor:    job.Anchor,
			Params:    job.Params,
			ExportSTL: job.ExportSTL,
			ExportDXF: job.ExportDXF,
		})
		if err != nil {
			failed++
			logger.Warn("job failed", "index", i, "message", job.Message, "err", err)
			continue
		}
		logger.Info("job done", "index", i, "container", out.Container.Name)
	}
	if failed == len(plan.Jobs) {
		return fmt.Errorf("all %d jobs failed", failed)
	}
	p.done(fmt.Sprintf("Ran %d of %d jobs", len(plan.Jobs)-failed, len(plan.Jobs)))
	return nil
}
