package script

import (
	"fmt"
	"strings"

	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/layout"
	zygo "github.com/glycerine/zygomys/zygo"
)

// kwPrefix marks keyword arguments after preprocessing.
const kwPrefix = "__kw_"

// preprocess rewrites script source before it reaches zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword", so builtins can
//     take keyword arguments without registering global symbols.
//  2. ; line comments become // comments, which is what zygomys expects.
//
// String literal boundaries are respected.
func preprocess(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			// Copy the string literal verbatim, honoring escapes.
			out.WriteByte(b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					out.WriteByte(b[i])
					i++
				}
				out.WriteByte(b[i])
				i++
			}
			if i < len(b) {
				out.WriteByte(b[i])
				i++
			}

		case b[i] == ';':
			out.WriteString("//")
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out.WriteByte(b[i])
				i++
			}

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out.WriteByte('"')
			out.WriteString(kwPrefix)
			out.Write(b[i+1 : j])
			out.WriteByte('"')
			i = j

		default:
			out.WriteByte(b[i])
			i++
		}
	}
	return out.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

// sexpVec3 wraps a geom.Vec3 so it can be passed between builtins.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpAnchor wraps a geom.Anchor.
type sexpAnchor struct {
	anchor geom.Anchor
}

func (a *sexpAnchor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(anchor :at %s)", a.anchor.Point)
}
func (a *sexpAnchor) Type() *zygo.RegisteredType { return nil }

// sexpParams wraps layout.Params.
type sexpParams struct {
	params layout.Params
}

func (p *sexpParams) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(params :size %g :height %g :base %g)",
		p.params.OverallSize, p.params.BlockHeight, p.params.BaseHeight)
}
func (p *sexpParams) Type() *zygo.RegisteredType { return nil }

// kwArgs holds a parsed mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// toFloat64 extracts a float64 from a SexpInt or SexpFloat.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// floatKW reads an optional numeric keyword argument into dst.
func floatKW(pa kwArgs, name string, dst *float64) error {
	v, ok := pa.kw[name]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

// boolKW reads an optional boolean keyword argument into dst.
func boolKW(pa kwArgs, name string, dst *bool) error {
	v, ok := pa.kw[name]
	if !ok {
		return nil
	}
	b, ok := v.(*zygo.SexpBool)
	if !ok {
		return fmt.Errorf("%s: expected bool, got %T", name, v)
	}
	*dst = b.Val
	return nil
}

// registerBuiltins installs the plan DSL into a zygomys environment. The
// builtins append jobs to the provided plan during evaluation.
func registerBuiltins(env *zygo.Zlisp, plan *Plan) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v geom.Vec3
		var err error
		if v.X, err = toFloat64(args[0]); err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		if v.Y, err = toFloat64(args[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		if v.Z, err = toFloat64(args[2]); err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (anchor :at (vec3 0 0 0) :x-axis (vec3 1 0 0) :y-axis (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("anchor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		a := geom.Anchor{
			Plane: &geom.PlanarContext{
				XDir: geom.Vec3{X: 1},
				YDir: geom.Vec3{Y: 1},
			},
		}
		if v, ok := pa.kw["at"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anchor: at: %w", err)
			}
			a.Point = p
		}
		if v, ok := pa.kw["x-axis"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anchor: x-axis: %w", err)
			}
			a.Plane.XDir = p
		}
		if v, ok := pa.kw["y-axis"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anchor: y-axis: %w", err)
			}
			a.Plane.YDir = p
		}
		return &sexpAnchor{anchor: a}, nil
	})

	// -----------------------------------------------------------------------
	// (params :size 24 :height 0.4 :base 1)
	// -----------------------------------------------------------------------
	env.AddFunction("params", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := layout.Params{OverallSize: 24, BlockHeight: 0.4}
		if err := floatKW(pa, "size", &p.OverallSize); err != nil {
			return zygo.SexpNull, fmt.Errorf("params: %w", err)
		}
		if err := floatKW(pa, "height", &p.BlockHeight); err != nil {
			return zygo.SexpNull, fmt.Errorf("params: %w", err)
		}
		if err := floatKW(pa, "base", &p.BaseHeight); err != nil {
			return zygo.SexpNull, fmt.Errorf("params: %w", err)
		}
		if err := p.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("params: %w", err)
		}
		return &sexpParams{params: p}, nil
	})

	// -----------------------------------------------------------------------
	// (relief "MESSAGE" :params p :anchor a :stl true :dxf false)
	// -----------------------------------------------------------------------
	env.AddFunction("relief", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("relief requires a message as first argument")
		}
		msg, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("relief: message: %w", err)
		}
		if msg == "" {
			return zygo.SexpNull, fmt.Errorf("relief: message must not be empty")
		}

		job := Job{
			Message:   msg,
			Params:    layout.Params{OverallSize: 24, BlockHeight: 0.4},
			Anchor:    geom.Anchor{Plane: &geom.PlanarContext{XDir: geom.Vec3{X: 1}, YDir: geom.Vec3{Y: 1}}},
			ExportSTL: true,
		}
		if v, ok := pa.kw["params"]; ok {
			sp, ok := v.(*sexpParams)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("relief: params: expected params value, got %T", v)
			}
			job.Params = sp.params
		}
		if v, ok := pa.kw["anchor"]; ok {
			sa, ok := v.(*sexpAnchor)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("relief: anchor: expected anchor value, got %T", v)
			}
			job.Anchor = sa.anchor
		}
		if err := boolKW(pa, "stl", &job.ExportSTL); err != nil {
			return zygo.SexpNull, fmt.Errorf("relief: %w", err)
		}
		if err := boolKW(pa, "dxf", &job.ExportDXF); err != nil {
			return zygo.SexpNull, fmt.Errorf("relief: %w", err)
		}

		plan.Jobs = append(plan.Jobs, job)
		return &zygo.SexpStr{S: msg}, nil
	})
}
