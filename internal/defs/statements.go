package defs

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gribdef/internal/action"
	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

// builder turns statement blocks of one file into actions.
type builder struct {
	src []byte
}

func newBuilder(src []byte) *builder { return &builder{src: src} }

func (b *builder) statements(blocks hclsyntax.Blocks) ([]grib.Action, error) {
	program := make([]grib.Action, 0, len(blocks))
	for _, block := range blocks {
		act, err := b.statement(block)
		if err != nil {
			return nil, err
		}
		program = append(program, act)
	}
	return program, nil
}

func (b *builder) statement(block *hclsyntax.Block) (grib.Action, error) {
	switch block.Type {
	case "key":
		return b.gen(block)
	case "section":
		return b.section(block)
	case "list":
		return b.list(block)
	case "switch":
		return b.switchStatement(block)
	case "remove":
		if len(block.Labels) == 0 {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "remove without key names at %s", block.DefRange())
		}
		return action.NewRemove(block.Labels...), nil
	case "concept":
		return b.concept(block)
	case "template":
		if err := labels(block, 1); err != nil {
			return nil, err
		}
		return action.NewTemplate(block.Labels[0]), nil
	}
	return nil, errors.Wrapf(codes.ErrInvalidArgument, "unknown statement %q at %s", block.Type, block.DefRange())
}

func labels(block *hclsyntax.Block, n int) error {
	if len(block.Labels) != n {
		return errors.Wrapf(codes.ErrInvalidArgument, "%s block at %s needs %d labels, has %d",
			block.Type, block.DefRange(), n, len(block.Labels))
	}
	return nil
}

// checkAttributes rejects attributes outside allowed.
func checkAttributes(block *hclsyntax.Block, allowed ...string) error {
	for name, attr := range block.Body.Attributes {
		ok := false
		for _, a := range allowed {
			if a == name {
				ok = true
				break
			}
		}
		if !ok {
			return errors.Wrapf(codes.ErrInvalidArgument, "unexpected attribute %q in %s block at %s",
				name, block.Type, attr.SrcRange)
		}
	}
	return nil
}

func (b *builder) gen(block *hclsyntax.Block) (*action.Gen, error) {
	if err := labels(block, 2); err != nil {
		return nil, err
	}
	if err := checkAttributes(block, "length", "args", "default", "flags", "namespace", "aliases"); err != nil {
		return nil, err
	}
	attrs := block.Body.Attributes
	name, class := block.Labels[0], block.Labels[1]

	var length int64
	if a, ok := attrs["length"]; ok {
		v, err := staticLong(a.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "length of %s", name)
		}
		length = v
	}
	var args grib.Arguments
	if a, ok := attrs["args"]; ok {
		v, err := b.arguments(a.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "args of %s", name)
		}
		args = v
	}
	opts, err := b.options(block)
	if err != nil {
		return nil, errors.Wrapf(err, "key %s", name)
	}

	g := action.NewGen(name, class, length, args, opts...)
	if a, ok := attrs["aliases"]; ok {
		names, err := stringList(a.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "aliases of %s", name)
		}
		for _, n := range names {
			g.AddAlias(action.ParseAlias(n))
		}
	}
	for _, child := range block.Body.Blocks {
		if child.Type != "attribute" {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "unexpected %s block in key %s at %s",
				child.Type, name, child.DefRange())
		}
		attr, err := b.gen(child)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute of %s", name)
		}
		g.AddAttribute(attr)
	}
	return g, nil
}

// options reads the namespace, flags and default attributes shared by
// several statements.
func (b *builder) options(block *hclsyntax.Block) ([]action.Option, error) {
	attrs := block.Body.Attributes
	var opts []action.Option
	if a, ok := attrs["namespace"]; ok {
		ns, err := staticString(a.Expr)
		if err != nil {
			return nil, errors.Wrap(err, "namespace")
		}
		opts = append(opts, action.WithNameSpace(ns))
	}
	if a, ok := attrs["flags"]; ok {
		names, err := stringList(a.Expr)
		if err != nil {
			return nil, errors.Wrap(err, "flags")
		}
		var flags grib.Flags
		for _, n := range names {
			f, ok := grib.ParseFlag(n)
			if !ok {
				return nil, errors.Wrapf(codes.ErrInvalidArgument, "unknown flag %q at %s", n, a.SrcRange)
			}
			flags |= f
		}
		opts = append(opts, action.WithFlags(flags))
	}
	if a, ok := attrs["default"]; ok {
		e, err := convertExpression(a.Expr, b.src)
		if err != nil {
			return nil, errors.Wrap(err, "default")
		}
		opts = append(opts, action.WithDefault(e))
	}
	return opts, nil
}

func (b *builder) section(block *hclsyntax.Block) (grib.Action, error) {
	if err := labels(block, 1); err != nil {
		return nil, err
	}
	if err := checkAttributes(block, "flags", "namespace"); err != nil {
		return nil, err
	}
	opts, err := b.options(block)
	if err != nil {
		return nil, err
	}
	body, err := b.statements(block.Body.Blocks)
	if err != nil {
		return nil, errors.Wrapf(err, "section %s", block.Labels[0])
	}
	return action.NewSection(block.Labels[0], body, opts...), nil
}

func (b *builder) list(block *hclsyntax.Block) (grib.Action, error) {
	if err := labels(block, 1); err != nil {
		return nil, err
	}
	if err := checkAttributes(block, "count", "flags", "namespace"); err != nil {
		return nil, err
	}
	name := block.Labels[0]
	a, ok := block.Body.Attributes["count"]
	if !ok {
		return nil, errors.Wrapf(codes.ErrInvalidArgument, "list %s without count at %s", name, block.DefRange())
	}
	count, err := convertExpression(a.Expr, b.src)
	if err != nil {
		return nil, errors.Wrapf(err, "count of list %s", name)
	}
	opts, err := b.options(block)
	if err != nil {
		return nil, err
	}
	body, err := b.statements(block.Body.Blocks)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", name)
	}
	return action.NewList(name, count, body, opts...), nil
}

func (b *builder) switchStatement(block *hclsyntax.Block) (grib.Action, error) {
	if err := labels(block, 0); err != nil {
		return nil, err
	}
	if err := checkAttributes(block, "on"); err != nil {
		return nil, err
	}
	on, ok := block.Body.Attributes["on"]
	if !ok {
		return nil, errors.Wrapf(codes.ErrInvalidArgument, "switch without selectors at %s", block.DefRange())
	}
	selectors, err := b.arguments(on.Expr)
	if err != nil {
		return nil, errors.Wrap(err, "switch selectors")
	}

	var cases []action.Case
	var fallback []grib.Action
	for _, child := range block.Body.Blocks {
		switch child.Type {
		case "case":
			if err := checkAttributes(child, "values"); err != nil {
				return nil, err
			}
			v, ok := child.Body.Attributes["values"]
			if !ok {
				return nil, errors.Wrapf(codes.ErrInvalidArgument, "case without values at %s", child.DefRange())
			}
			values, err := b.arguments(v.Expr)
			if err != nil {
				return nil, errors.Wrap(err, "case values")
			}
			body, err := b.statements(child.Body.Blocks)
			if err != nil {
				return nil, err
			}
			cases = append(cases, action.Case{Values: values, Body: body})
		case "default":
			if fallback != nil {
				return nil, errors.Wrapf(codes.ErrInvalidArgument, "second default at %s", child.DefRange())
			}
			if err := checkAttributes(child); err != nil {
				return nil, err
			}
			body, err := b.statements(child.Body.Blocks)
			if err != nil {
				return nil, err
			}
			fallback = body
		default:
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "unexpected %s block in switch at %s",
				child.Type, child.DefRange())
		}
	}
	return action.NewSwitch(selectors, cases, fallback), nil
}

func (b *builder) concept(block *hclsyntax.Block) (grib.Action, error) {
	if err := labels(block, 1); err != nil {
		return nil, err
	}
	if err := checkAttributes(block, "file", "master_dir", "local_dir", "default", "nofail", "namespace", "flags"); err != nil {
		return nil, err
	}
	name := block.Labels[0]
	attrs := block.Body.Attributes

	var files action.ConceptFiles
	for attr, dst := range map[string]*string{
		"file":       &files.File,
		"master_dir": &files.MasterDir,
		"local_dir":  &files.LocalDir,
	} {
		if a, ok := attrs[attr]; ok {
			v, err := keywordOrString(a.Expr)
			if err != nil {
				return nil, errors.Wrapf(err, "%s of concept %s", attr, name)
			}
			*dst = v
		}
	}

	var defaultKey string
	if a, ok := attrs["default"]; ok {
		v, err := staticString(a.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "default of concept %s", name)
		}
		defaultKey = v
	}
	var nofail bool
	if a, ok := attrs["nofail"]; ok {
		v, diags := a.Expr.Value(nil)
		if diags.HasErrors() || v.IsNull() || !v.Type().Equals(cty.Bool) {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "nofail of concept %s must be a bool", name)
		}
		nofail = v.True()
	}

	var opts []action.Option
	if a, ok := attrs["namespace"]; ok {
		ns, err := staticString(a.Expr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, action.WithNameSpace(ns))
	}
	if a, ok := attrs["flags"]; ok {
		names, err := stringList(a.Expr)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			f, ok := grib.ParseFlag(n)
			if !ok {
				return nil, errors.Wrapf(codes.ErrInvalidArgument, "unknown flag %q in concept %s", n, name)
			}
			opts = append(opts, action.WithFlags(f))
		}
	}

	var values []*grib.ConceptValue
	for _, child := range block.Body.Blocks {
		if child.Type != "value" {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "unexpected %s block in concept %s at %s",
				child.Type, name, child.DefRange())
		}
		v, err := b.conceptValue(child)
		if err != nil {
			return nil, errors.Wrapf(err, "concept %s", name)
		}
		values = append(values, v)
	}
	if values == nil && files.MasterDir == "" && files.File == "" {
		return nil, errors.Wrapf(codes.ErrInvalidArgument, "concept %s has neither values nor files", name)
	}
	return action.NewConcept(name, files, values, nofail, defaultKey, opts...), nil
}

func (b *builder) conceptValue(block *hclsyntax.Block) (*grib.ConceptValue, error) {
	if err := labels(block, 1); err != nil {
		return nil, err
	}
	v := &grib.ConceptValue{Name: block.Labels[0]}
	for _, attr := range sortedAttributes(block.Body) {
		e, err := convertExpression(attr.Expr, b.src)
		if err != nil {
			return nil, errors.Wrapf(err, "condition %s of %s", attr.Name, v.Name)
		}
		v.Conditions = append(v.Conditions, grib.ConceptCondition{Name: attr.Name, Value: e})
	}
	return v, nil
}

// arguments converts a tuple of expressions, or a single expression, into
// an argument list.
func (b *builder) arguments(expr hclsyntax.Expression) (grib.Arguments, error) {
	items := []hclsyntax.Expression{expr}
	if tuple, ok := expr.(*hclsyntax.TupleConsExpr); ok {
		items = tuple.Exprs
	}
	args := make(grib.Arguments, 0, len(items))
	for _, item := range items {
		e, err := convertExpression(item, b.src)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return args, nil
}

func staticLong(expr hclsyntax.Expression) (int64, error) {
	e, err := convertExpression(expr, nil)
	if err != nil {
		return 0, err
	}
	l, ok := e.(grib.Long)
	if !ok {
		return 0, errors.Wrapf(codes.ErrInvalidArgument, "constant integer expected at %s", expr.Range())
	}
	return int64(l), nil
}

func staticString(expr hclsyntax.Expression) (string, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() || v.IsNull() || !v.Type().Equals(cty.String) {
		return "", errors.Wrapf(codes.ErrInvalidArgument, "constant string expected at %s", expr.Range())
	}
	return v.AsString(), nil
}

// keywordOrString accepts a bare name or a quoted string.
func keywordOrString(expr hclsyntax.Expression) (string, error) {
	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		return kw, nil
	}
	return staticString(expr)
}

func stringList(expr hclsyntax.Expression) ([]string, error) {
	items, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, errors.Wrapf(codes.ErrInvalidArgument, "list expected at %s", expr.Range())
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		se, ok := item.(hclsyntax.Expression)
		if !ok {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "unsupported list item at %s", item.Range())
		}
		s, err := keywordOrString(se)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
