// Package pipeline wires the stages of a relief generation together:
// encode the message, resolve the placement frame, build the solid, commit
// it into the scene, and export interchange files.
//
// Everything is synchronous and single-threaded: builds mutate nothing, and
// scene commits happen only after a build has fully succeeded, so a failure
// at any stage leaves the document untouched for that key.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/chiselcad/qrelief/pkg/export"
	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/kernel"
	"github.com/chiselcad/qrelief/pkg/layout"
	"github.com/chiselcad/qrelief/pkg/qr"
	"github.com/chiselcad/qrelief/pkg/scene"
)

// Request describes one relief generation.
type Request struct {
	// Message is the text to encode.
	Message string
	// Anchor places the pattern; its frame is resolved fresh per request.
	Anchor geom.Anchor
	// Params are the sizing inputs.
	Params layout.Params
	// Sibling, when set, is the container whose bodies are copied next to
	// the committed relief, mirroring how the pattern is built onto an
	// existing part.
	Sibling *scene.Container
	// ExportSTL / ExportDXF select which interchange files to write.
	ExportSTL bool
	ExportDXF bool
}

// Outcome reports what a successful generation produced.
type Outcome struct {
	Container    *scene.Container
	Feature      *scene.Feature
	STLPath      string
	DXFPath      string
	SkippedCells []layout.UnionError
}

// Runner executes generation requests against a fixed set of collaborators.
type Runner struct {
	encoder   qr.Encoder
	engine    *layout.Engine
	kernel    kernel.Kernel
	host      scene.Host
	logger    *log.Logger
	exportDir string
}

// NewRunner assembles a Runner. A nil logger falls back to the default.
func NewRunner(enc qr.Encoder, eng *layout.Engine, k kernel.Kernel, host scene.Host, exportDir string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		encoder:   enc,
		engine:    eng,
		kernel:    k,
		host:      host,
		logger:    logger,
		exportDir: exportDir,
	}
}

// Preview encodes and builds without touching the scene or the filesystem.
// The returned solid is ephemeral and may simply be discarded.
func (r *Runner) Preview(req Request) (*layout.Result, error) {
	m, frame, err := r.prepare(req)
	if err != nil {
		return nil, err
	}
	return r.engine.Build(m, frame, req.Params)
}

// GenerateOne runs the full encode→build→commit→export sequence for one
// request.
func (r *Runner) GenerateOne(req Request) (*Outcome, error) {
	m, frame, err := r.prepare(req)
	if err != nil {
		return nil, err
	}

	built, err := r.engine.Build(m, frame, req.Params)
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", req.Message, err)
	}

	name := export.SafeName(req.Message)
	container, err := r.host.CreateContainer(name)
	if err != nil {
		return nil, fmt.Errorf("create container for %q: %w", req.Message, err)
	}
	if req.Sibling != nil {
		if err := r.host.CopySiblingBodies(req.Sibling, container); err != nil {
			return nil, fmt.Errorf("copy sibling bodies for %q: %w", req.Message, err)
		}
	}
	feature, err := r.host.CommitSolidAsFeature(container, built.Solid, name+"_relief")
	if err != nil {
		return nil, fmt.Errorf("commit %q: %w", req.Message, err)
	}

	out := &Outcome{
		Container:    container,
		Feature:      feature,
		SkippedCells: built.SkippedCells,
	}

	if req.ExportSTL {
		path := filepath.Join(r.exportDir, name+".stl")
		if err := export.SolidToSTL(r.kernel, built.Solid, path); err != nil {
			return nil, fmt.Errorf("export %q: %w", req.Message, err)
		}
		out.STLPath = path
		r.logger.Info("wrote STL", "path", path)
	}
	if req.ExportDXF {
		path := filepath.Join(r.exportDir, name+".dxf")
		if err := export.WriteDXFFootprint(path, m, req.Params); err != nil {
			return nil, fmt.Errorf("export %q: %w", req.Message, err)
		}
		out.DXFPath = path
		r.logger.Info("wrote DXF footprint", "path", path)
	}

	return out, nil
}

// prepare encodes the message and resolves the placement frame.
func (r *Runner) prepare(req Request) (qr.Matrix, geom.Frame, error) {
	m, err := r.encoder.Encode(req.Message)
	if err != nil {
		return qr.Matrix{}, geom.Frame{}, err
	}
	frame, err := geom.Resolve(req.Anchor)
	if err != nil {
		return qr.Matrix{}, geom.Frame{}, fmt.Errorf("anchor for %q: %w", req.Message, err)
	}
	return m, frame, nil
}

// KeyResult is the per-key record of a batch run.
type KeyResult struct {
	Key     string
	Outcome *Outcome
	Err     error
}

// RunBatch generates one relief per key, in order. A failure on one key is
// recorded and the loop continues; the batch is at-least-effort, never
// atomic.
func (r *Runner) RunBatch(keys []string, proto Request) []KeyResult {
	results := make([]KeyResult, 0, len(keys))
	for _, key := range keys {
		req := proto
		req.Message = key
		out, err := r.GenerateOne(req)
		if err != nil {
			r.logger.Error("key failed", "key", key, "err", err)
		}
		results = append(results, KeyResult{Key: key, Outcome: out, Err: err})
	}
	return results
}
