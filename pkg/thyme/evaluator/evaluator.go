// Package evaluator renders Thyme syntax trees to text.
//
// Rendering is a synchronous tree walk. Includes and shortcodes load other
// templates through a Loader and recurse directly; each one is reported to a
// Recorder so the caller can track which templates a page depends on.
package evaluator

import (
	"context"
	"path"
	"slices"
	"strings"

	"github.com/sambeau/thyme/pkg/thyme/ast"
	perrors "github.com/sambeau/thyme/pkg/thyme/errors"
)

// GlobalNode is the dependency target recorded whenever a template reads GLOBAL.
const GlobalNode = "<global>"

// Loader resolves and loads templates referenced by include and shortcodes.
type Loader interface {
	// Resolve maps a template reference to a path. It returns every path it
	// tried, in order, ending with the match when there is one. found is
	// false when none of the tried paths exist.
	Resolve(ref string) (resolved string, tried []string, found bool)
	// Load returns the parsed template at a resolved path.
	Load(ctx context.Context, path string) (*ast.Template, error)
}

// Recorder receives a dependency edge each time a template pulls in another.
type Recorder interface {
	RecordEdge(from, to string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEdge(string, string) {}

// Engine holds what every render in a batch shares. It is safe for
// concurrent use; each render gets its own Scope.
type Engine struct {
	Loader Loader
	// ShortcodeRoot is the include path prefix shortcode names resolve under.
	ShortcodeRoot string
	// Global is the site snapshot exposed as GLOBAL.
	Global Object
}

// state is the per-render evaluation state.
type state struct {
	ctx    context.Context
	engine *Engine
	scope  *Scope
	chain  []string
	rec    Recorder
}

// RenderFile resolves ref, loads it and renders it with this as the current
// object. from is the file that asked for it; edges are recorded from there.
func (e *Engine) RenderFile(ctx context.Context, from, ref string, this Object, rec Recorder) (string, error) {
	st := e.newState(ctx, rec)
	st.scope = NewScope(from, this, nil)
	var out strings.Builder
	if err := st.invoke(ref, this, nil, st.scope.Root(), nil, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Render renders an already parsed template. file names it for errors,
// dependency edges and cycle detection.
func (e *Engine) Render(ctx context.Context, tmpl *ast.Template, file string, this Object, rec Recorder) (string, error) {
	st := e.newState(ctx, rec)
	st.scope = NewScope(file, this, nil)
	if file != "" {
		st.chain = append(st.chain, file)
	}
	var out strings.Builder
	if err := st.renderTemplate(tmpl, st.scope.Root(), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Eval evaluates a single expression against this, for interactive use.
func (e *Engine) Eval(ctx context.Context, expr ast.Expression, this Object) (Object, error) {
	st := e.newState(ctx, nil)
	st.scope = NewScope("", this, nil)
	return st.eval(expr, st.scope.Root())
}

func (e *Engine) newState(ctx context.Context, rec Recorder) *state {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &state{ctx: ctx, engine: e, rec: rec}
}

// newError builds a runtime error located at node, in the file frame idx belongs to.
func (st *state) newError(code string, node ast.Node, idx int, data map[string]any) error {
	err := perrors.New(code, data)
	if node != nil {
		line, col := node.Position()
		err = err.WithPosition(line, col)
	}
	if file := st.scope.File(idx); file != "" {
		err = err.WithFile(file)
	}
	return err
}

func (st *state) renderTemplate(tmpl *ast.Template, idx int, out *strings.Builder) error {
	if tmpl == nil {
		return nil
	}
	for _, c := range tmpl.Controls {
		if err := st.render(c, idx, out); err != nil {
			return err
		}
	}
	return nil
}

// renderBlock renders body in a child frame of idx that keeps its current object.
func (st *state) renderBlock(body *ast.Template, idx int, out *strings.Builder) error {
	child := st.scope.child(idx)
	defer st.scope.pop(child)
	return st.renderTemplate(body, child, out)
}

func (st *state) render(node ast.Control, idx int, out *strings.Builder) error {
	switch node := node.(type) {
	case *ast.Text:
		out.WriteString(node.Value)
		return nil

	case *ast.Substitution:
		return st.renderSubstitution(node, idx, out)

	case *ast.SetCommand:
		val, err := st.eval(node.Value, idx)
		if err != nil {
			return err
		}
		st.scope.Set(idx, node.Name, val)
		return nil

	case *ast.ForCommand:
		return st.renderFor(node, idx, out)

	case *ast.WithCommand:
		return st.renderWith(node, idx, out)

	case *ast.IfCommand:
		return st.renderIf(node, idx, out)

	case *ast.IncludeCommand:
		return st.renderInclude(node, idx, out)

	case *ast.ShortCode:
		return st.renderShortCode(node, idx, out)
	}
	return st.newError("SYNTAX-0002", node, idx, map[string]any{"Got": node.String()})
}

func (st *state) renderSubstitution(node *ast.Substitution, idx int, out *strings.Builder) error {
	var val Object
	if node.Kind == ast.SubstParam {
		params := st.scope.Params(idx)
		if node.Param >= len(params) {
			return nil
		}
		val = params[node.Param]
	} else {
		v, err := st.eval(node.Expr, idx)
		if err != nil {
			return err
		}
		val = v
	}

	text, ok, err := st.text(val)
	if err != nil {
		return err
	}
	if !ok {
		return st.newError("TYPE-0001", node, idx, map[string]any{"Got": typeName(val)})
	}
	out.WriteString(text)
	return nil
}

// text converts a scalar to its substituted form. Inner bodies render here,
// with the include chain as it was at the shortcode's call site.
func (st *state) text(val Object) (string, bool, error) {
	if in, ok := val.(*Inner); ok {
		saved := st.chain
		if in.depth <= len(saved) {
			st.chain = slices.Clone(saved[:in.depth])
		}
		var out strings.Builder
		err := st.renderBlock(in.Body, in.frame, &out)
		st.chain = saved
		if err != nil {
			return "", false, err
		}
		return out.String(), true, nil
	}
	text, ok := Text(val)
	return text, ok, nil
}

func (st *state) renderFor(node *ast.ForCommand, idx int, out *strings.Builder) error {
	val, err := st.resolve(node.Iterable, idx)
	if err != nil {
		return err
	}
	arr, ok := val.(*Array)
	if !ok {
		return st.newError("TYPE-0004", node.Iterable, idx, map[string]any{"Got": typeName(val)})
	}

	for i, elem := range arr.Elements {
		child := st.scope.child(idx)
		st.scope.Set(child, node.Item, elem)
		if node.Index != "" {
			st.scope.Set(child, node.Index, &Integer{Value: int64(i)})
		}
		err := st.renderTemplate(node.Body, child, out)
		st.scope.pop(child)
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *state) renderWith(node *ast.WithCommand, idx int, out *strings.Builder) error {
	val, err := st.eval(node.Object, idx)
	if err != nil {
		if perrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if _, ok := val.(*Null); ok {
		return nil
	}

	p := st.scope.frames[idx]
	child := st.scope.push(idx, val, p.params, p.file)
	defer st.scope.pop(child)
	return st.renderTemplate(node.Body, child, out)
}

func (st *state) renderIf(node *ast.IfCommand, idx int, out *strings.Builder) error {
	for _, branch := range node.Branches {
		cond, err := st.eval(branch.Condition, idx)
		if err != nil {
			return err
		}
		if isTruthy(cond) {
			return st.renderBlock(branch.Body, idx, out)
		}
	}
	if node.Else != nil {
		return st.renderBlock(node.Else, idx, out)
	}
	return nil
}

func (st *state) renderInclude(node *ast.IncludeCommand, idx int, out *strings.Builder) error {
	pathVal, err := st.eval(node.Path, idx)
	if err != nil {
		return err
	}
	ref, ok := pathVal.(*String)
	if !ok {
		return st.newError("TYPE-0006", node.Path, idx, map[string]any{"Got": typeName(pathVal)})
	}

	this := st.scope.This(idx)
	if node.Scope != nil {
		if this, err = st.eval(node.Scope, idx); err != nil {
			return err
		}
	}

	args, err := st.evalAll(node.Args, idx)
	if err != nil {
		return err
	}
	return st.invoke(ref.Value, this, args, idx, node, out)
}

// renderShortCode desugars a shortcode into an include of the template of the
// same name under the shortcode root. A block body travels as `.inner`.
func (st *state) renderShortCode(node *ast.ShortCode, idx int, out *strings.Builder) error {
	this := st.scope.This(idx)
	if !node.Single {
		inner := &Inner{Body: node.Body, frame: idx, depth: len(st.chain)}
		if m, ok := this.(*Map); ok {
			this = m.With("inner", inner)
		} else {
			this = NewMap(map[string]Object{"inner": inner})
		}
	}

	args, err := st.evalAll(node.Args, idx)
	if err != nil {
		return err
	}
	return st.invoke(path.Join(st.engine.ShortcodeRoot, node.Name), this, args, idx, node, out)
}

// invoke renders the template ref in a fresh frame. It records the dependency
// on every path tried and rejects templates already on the active chain.
func (st *state) invoke(ref string, this Object, args []Object, idx int, node ast.Node, out *strings.Builder) error {
	if err := st.ctx.Err(); err != nil {
		return err
	}

	caller := st.scope.File(idx)
	resolved, tried, found := st.engine.Loader.Resolve(ref)
	if caller != "" {
		for _, p := range tried {
			st.rec.RecordEdge(caller, p)
		}
	}
	if !found {
		return st.newError("NOTFOUND-0003", node, idx, map[string]any{
			"Path":       ref,
			"Candidates": strings.Join(tried, ", "),
		})
	}

	for _, active := range st.chain {
		if active == resolved {
			err := perrors.NewCycle(resolved, st.chain)
			if node != nil {
				line, col := node.Position()
				err = err.WithPosition(line, col)
			}
			if caller != "" {
				err = err.WithFile(caller)
			}
			return err
		}
	}

	tmpl, err := st.engine.Loader.Load(st.ctx, resolved)
	if err != nil {
		return err
	}

	st.chain = append(st.chain, resolved)
	frame := st.scope.push(noParent, this, args, resolved)
	err = st.renderTemplate(tmpl, frame, out)
	st.scope.pop(frame)
	st.chain = st.chain[:len(st.chain)-1]
	return err
}

func (st *state) evalAll(exprs []ast.Expression, idx int) ([]Object, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	vals := make([]Object, len(exprs))
	for i, e := range exprs {
		v, err := st.eval(e, idx)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
