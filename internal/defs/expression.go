package defs

import (
	"math/big"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

// functions are the calls available inside argument expressions.
var functions = map[string]function.Function{
	"abs":    stdlib.AbsoluteFunc,
	"ceil":   stdlib.CeilFunc,
	"floor":  stdlib.FloorFunc,
	"format": stdlib.FormatFunc,
	"int":    stdlib.IntFunc,
	"lower":  stdlib.LowerFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
	"strlen": stdlib.StrlenFunc,
	"substr": stdlib.SubstrFunc,
	"upper":  stdlib.UpperFunc,
}

// traversalName renders a traversal such as mars.step as a key name.
func traversalName(t hcl.Traversal) (string, bool) {
	parts := make([]string, 0, len(t))
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			parts = append(parts, s.Name)
		case hcl.TraverseAttr:
			parts = append(parts, s.Name)
		default:
			return "", false
		}
	}
	return strings.Join(parts, "."), len(parts) > 0
}

// convertExpression turns a parsed HCL expression into an argument
// expression. Bare names become key references, constant expressions are
// folded into literals and everything else is evaluated with cty against
// the handle's keys.
func convertExpression(expr hclsyntax.Expression, src []byte) (grib.Expression, error) {
	if st, ok := expr.(*hclsyntax.ScopeTraversalExpr); ok {
		if name, ok := traversalName(st.Traversal); ok {
			return grib.KeyRef{Name: name}, nil
		}
	}

	if len(expr.Variables()) == 0 {
		v, diags := expr.Value(&hcl.EvalContext{Functions: functions})
		if diags.HasErrors() {
			return nil, errors.Wrapf(diags, "constant expression at %s", expr.Range())
		}
		return literal(v)
	}

	c := &ctyExpression{expr: expr, text: sourceText(expr, src)}
	for _, t := range expr.Variables() {
		name, ok := traversalName(t)
		if !ok {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "unsupported reference at %s", t.SourceRange())
		}
		c.refs = append(c.refs, reference{name: name, traversal: t})
	}
	return c, nil
}

// literal maps a constant value to the literal expression of its type.
func literal(v cty.Value) (grib.Expression, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, errors.Wrap(codes.ErrInvalidArgument, "null or unknown constant")
	}
	switch v.Type() {
	case cty.Bool:
		if v.True() {
			return grib.True{}, nil
		}
		return grib.Long(0), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return grib.Long(i), nil
			}
		}
		f, _ := bf.Float64()
		return grib.Double(f), nil
	case cty.String:
		return grib.String(v.AsString()), nil
	}
	return nil, errors.Wrapf(codes.ErrInvalidArgument, "constant of type %s", v.Type().FriendlyName())
}

func sourceText(expr hclsyntax.Expression, src []byte) string {
	r := expr.Range()
	if src == nil || r.End.Byte > len(src) || r.Start.Byte >= r.End.Byte {
		return ""
	}
	return strings.TrimSpace(string(hclwrite.Format(src[r.Start.Byte:r.End.Byte])))
}

type reference struct {
	name      string
	traversal hcl.Traversal
}

// ctyExpression is an HCL expression over other keys, for example
// "numberOfPoints * 2" or "format(\"%s_%d\", centre, subCentre)".
type ctyExpression struct {
	expr hclsyntax.Expression
	refs []reference
	text string
}

func (c *ctyExpression) ClassName() string { return "cty" }
func (c *ctyExpression) String() string { return c.text }

func (c *ctyExpression) References() []string {
	names := make([]string, len(c.refs))
	for i, r := range c.refs {
		names[i] = r.name
	}
	return names
}

// keyValue reads a key in its native type.
func keyValue(h *grib.Handle, name string) (cty.Value, error) {
	a := h.FindAccessor(name)
	if a == nil {
		return cty.NilVal, errors.Wrapf(codes.ErrNotFound, "key %s", name)
	}
	switch a.NativeType() {
	case grib.TypeLong:
		v, err := h.GetLong(name)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.NumberIntVal(v), nil
	case grib.TypeDouble:
		v, err := h.GetDouble(name)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.NumberFloatVal(v), nil
	default:
		v, err := h.GetString(name)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(v), nil
	}
}

// evalContext binds every referenced key. A dotted reference such as
// mars.step becomes an attribute of an object named after its first part.
func (c *ctyExpression) evalContext(h *grib.Handle) (*hcl.EvalContext, error) {
	vars := make(map[string]cty.Value)
	nested := make(map[string]map[string]cty.Value)
	for _, r := range c.refs {
		v, err := keyValue(h, r.name)
		if err != nil {
			return nil, err
		}
		root, rest, dotted := strings.Cut(r.name, ".")
		if !dotted {
			vars[root] = v
			continue
		}
		if nested[root] == nil {
			nested[root] = make(map[string]cty.Value)
		}
		nested[root][rest] = v
	}
	for root, attrs := range nested {
		if _, plain := vars[root]; !plain {
			vars[root] = cty.ObjectVal(attrs)
		}
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions}, nil
}

func (c *ctyExpression) value(h *grib.Handle) (cty.Value, error) {
	ectx, err := c.evalContext(h)
	if err != nil {
		return cty.NilVal, err
	}
	v, diags := c.expr.Value(ectx)
	if diags.HasErrors() {
		return cty.NilVal, errors.Wrapf(codes.ErrInvalidArgument, "evaluate %s: %s", c.text, diags.Error())
	}
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, errors.Wrapf(codes.ErrInvalidArgument, "evaluate %s: no value", c.text)
	}
	return v, nil
}

func (c *ctyExpression) NativeType(h *grib.Handle) grib.NativeType {
	v, err := c.value(h)
	if err != nil {
		return grib.TypeUndefined
	}
	switch v.Type() {
	case cty.Number:
		if v.AsBigFloat().IsInt() {
			return grib.TypeLong
		}
		return grib.TypeDouble
	case cty.Bool:
		return grib.TypeLong
	case cty.String:
		return grib.TypeString
	}
	return grib.TypeUndefined
}

func (c *ctyExpression) EvaluateLong(h *grib.Handle) (int64, error) {
	v, err := c.value(h)
	if err != nil {
		return 0, err
	}
	if v.Type() == cty.Bool {
		if v.True() {
			return 1, nil
		}
		return 0, nil
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, errors.Wrapf(codes.ErrWrongConversion, "%s as long", c.text)
	}
	var out int64
	if err := gocty.FromCtyValue(n, &out); err == nil {
		return out, nil
	}
	i, _ := n.AsBigFloat().Int64()
	return i, nil
}

func (c *ctyExpression) EvaluateDouble(h *grib.Handle) (float64, error) {
	v, err := c.value(h)
	if err != nil {
		return 0, err
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, errors.Wrapf(codes.ErrWrongConversion, "%s as double", c.text)
	}
	var out float64
	if err := gocty.FromCtyValue(n, &out); err != nil {
		return 0, errors.Wrapf(codes.ErrWrongConversion, "%s as double", c.text)
	}
	return out, nil
}

func (c *ctyExpression) EvaluateString(h *grib.Handle) (string, error) {
	v, err := c.value(h)
	if err != nil {
		return "", err
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", errors.Wrapf(codes.ErrWrongConversion, "%s as string", c.text)
	}
	return s.AsString(), nil
}
