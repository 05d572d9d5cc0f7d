// Package script provides a small Lisp surface for driving relief
// generation from source files. A script is evaluated in a sandboxed
// zygomys environment and produces a Plan: an ordered list of generation
// jobs the pipeline then executes. Scripts never touch the scene or the
// filesystem themselves.
package script

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/layout"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalTimeout is the hard limit for a single script evaluation.
const EvalTimeout = 5 * time.Second

// EvalError is a non-fatal error from script evaluation, such as a parse
// error or a bad builtin argument.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Job is one planned relief generation.
type Job struct {
	Message   string
	Params    layout.Params
	Anchor    geom.Anchor
	ExportSTL bool
	ExportDXF bool
}

// Plan is the ordered output of a script evaluation.
type Plan struct {
	Jobs []Job
}

// Engine evaluates scripts. Each call to Evaluate creates a fresh sandboxed
// environment for determinism; a generation counter discards stale results
// when a newer evaluation supersedes a slow one.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new script engine.
func NewEngine() *Engine {
	return &Engine{}
}

type evalResult struct {
	plan   *Plan
	errors []EvalError
	err    error
}

// Evaluate runs source and returns the resulting plan.
//
// Return semantics:
//   - On success: plan + nil errors + nil error
//   - On parse/eval failure: nil plan + eval errors + nil error
//   - On fatal failure (timeout, panic): nil + nil + error
func (e *Engine) Evaluate(source string) (*Plan, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		plan, evalErrs, err := e.evaluate(source)
		ch <- evalResult{plan: plan, errors: evalErrs, err: err}
	}()

	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.plan, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Plan, []EvalError, error) {
	// Empty source is a valid script that plans nothing.
	if strings.TrimSpace(source) == "" {
		return &Plan{}, nil, nil
	}

	// Sandbox mode prevents scripts from reaching the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	plan := &Plan{}
	registerBuiltins(env, plan)

	if err := env.LoadString(preprocess(source)); err != nil {
		return nil, parseEvalError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseEvalError(err), nil
	}

	return plan, nil, nil
}

// parseEvalError converts a zygomys error into an EvalError, extracting a
// line number when the message carries one ("Error on line N: ...").
func parseEvalError(err error) []EvalError {
	msg := strings.TrimSpace(err.Error())
	lower := strings.ToLower(msg)

	if idx := strings.Index(lower, "on line "); idx >= 0 {
		rest := msg[idx+len("on line "):]
		line := 0
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			line = line*10 + int(rest[i]-'0')
			i++
		}
		if line > 0 {
			detail := strings.TrimSpace(strings.TrimPrefix(rest[i:], ":"))
			return []EvalError{{Line: line, Message: detail}}
		}
	}
	return []EvalError{{Message: msg}}
}
