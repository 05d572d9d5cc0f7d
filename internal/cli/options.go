package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chiselcad/qrelief/pkg/config"
	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/kernel/sdfx"
	"github.com/chiselcad/qrelief/pkg/layout"
	"github.com/chiselcad/qrelief/pkg/pipeline"
	"github.com/chiselcad/qrelief/pkg/qr"
	"github.com/chiselcad/qrelief/pkg/scene"
)

// reliefOpts holds the command-line flags shared by the commands that build
// relief solids. Flag defaults come from the built-in config; values from a
// --config file apply unless the flag was set explicitly.
type reliefOpts struct {
	size      float64 // overall pattern footprint side length, mm
	height    float64 // raised block height, mm
	base      float64 // base plate height, mm; 0 disables the plate
	level     string  // QR error-correction level: L, M, Q, or H
	origin    string  // placement origin as "x,y,z"
	xAxis     string  // placement plane X direction as "x,y,z"
	yAxis     string  // placement plane Y direction as "x,y,z"
	exportDir string  // directory for exported files
	stl       bool    // write a binary STL mesh
	dxf       bool    // write a DXF footprint drawing
	cells     int     // marching cubes resolution for STL export
}

// addReliefFlags registers the shared flags on cmd with defaults from the
// built-in config.
func (o *reliefOpts) addReliefFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().Float64Var(&o.size, "size", def.QRSize, "overall pattern side length in mm")
	cmd.Flags().Float64Var(&o.height, "height", def.BlockHeight, "raised block height in mm")
	cmd.Flags().Float64Var(&o.base, "base", def.BaseHeight, "base plate height in mm (0 disables)")
	cmd.Flags().StringVar(&o.level, "level", def.RecoveryLevel, "QR error-correction level (L, M, Q, H)")
	cmd.Flags().StringVar(&o.origin, "origin", "0,0,0", "placement origin as x,y,z")
	cmd.Flags().StringVar(&o.xAxis, "x-axis", "1,0,0", "placement plane X direction as x,y,z")
	cmd.Flags().StringVar(&o.yAxis, "y-axis", "0,1,0", "placement plane Y direction as x,y,z")
	cmd.Flags().StringVar(&o.exportDir, "out", def.ExportDir, "directory for exported files")
	cmd.Flags().BoolVar(&o.stl, "stl", true, "export a binary STL mesh")
	cmd.Flags().BoolVar(&o.dxf, "dxf", false, "export a DXF footprint drawing")
	cmd.Flags().IntVar(&o.cells, "cells", def.MeshCells, "marching cubes resolution for STL export")
}

// merge overlays file config onto the options for every flag the user did
// not set explicitly.
func (o *reliefOpts) merge(cmd *cobra.Command, cfg config.Config) {
	if !cmd.Flags().Changed("size") {
		o.size = cfg.QRSize
	}
	if !cmd.Flags().Changed("height") {
		o.height = cfg.BlockHeight
	}
	if !cmd.Flags().Changed("base") {
		o.base = cfg.BaseHeight
	}
	if !cmd.Flags().Changed("level") {
		o.level = cfg.RecoveryLevel
	}
	if !cmd.Flags().Changed("out") {
		o.exportDir = cfg.ExportDir
	}
	if !cmd.Flags().Changed("cells") {
		o.cells = cfg.MeshCells
	}
}

// request assembles a generation request from the parsed options.
func (o *reliefOpts) request(message string) (pipeline.Request, error) {
	origin, err := parseVec3(o.origin)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("--origin: %w", err)
	}
	xDir, err := parseVec3(o.xAxis)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("--x-axis: %w", err)
	}
	yDir, err := parseVec3(o.yAxis)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("--y-axis: %w", err)
	}
	return pipeline.Request{
		Message: message,
		Anchor: geom.Anchor{
			Point: origin,
			Plane: &geom.PlanarContext{XDir: xDir, YDir: yDir},
		},
		Params: layout.Params{
			OverallSize: o.size,
			BlockHeight: o.height,
			BaseHeight:  o.base,
		},
		ExportSTL: o.stl,
		ExportDXF: o.dxf,
	}, nil
}

// runner wires the generation pipeline for the parsed options. The scene
// document is returned alongside so callers can inspect committed features.
func (o *reliefOpts) runner(logger *log.Logger) (*pipeline.Runner, *scene.Document) {
	k := sdfx.New()
	k.MeshCells = o.cells
	doc := scene.NewDocument()
	r := pipeline.NewRunner(
		qr.NewEncoder(qr.ParseRecoveryLevel(o.level)),
		layout.NewEngine(k, logger),
		k,
		doc,
		o.exportDir,
		logger,
	)
	return r, doc
}

// parseVec3 parses "x,y,z" into a vector.
func parseVec3(s string) (geom.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geom.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Vec3{}, fmt.Errorf("component %d of %q: %w", i+1, s, err)
		}
		out[i] = v
	}
	return geom.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
