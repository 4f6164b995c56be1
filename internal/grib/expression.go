package grib

import (
	"fmt"
	"strconv"

	"github.com/vk/gribdef/internal/codes"
)

// Expression is one parsed argument of a definition statement. It is
// evaluated against a handle, usually by looking up other keys.
type Expression interface {
	ClassName() string
	NativeType(h *Handle) NativeType
	EvaluateLong(h *Handle) (int64, error)
	EvaluateDouble(h *Handle) (float64, error)
	EvaluateString(h *Handle) (string, error)
	String() string
}

// Named is implemented by expressions that stand for a key name.
type Named interface {
	KeyName() string
}

// Referencer is implemented by expressions that read other keys. The names
// drive dependency observation for constraint accessors.
type Referencer interface {
	References() []string
}

// Long is an integer literal.
type Long int64

func (Long) ClassName() string { return "long" }
func (Long) NativeType(*Handle) NativeType { return TypeLong }
func (l Long) EvaluateLong(*Handle) (int64, error) { return int64(l), nil }
func (l Long) EvaluateDouble(*Handle) (float64, error) { return float64(l), nil }
func (l Long) EvaluateString(*Handle) (string, error) { return strconv.FormatInt(int64(l), 10), nil }
func (l Long) String() string { return strconv.FormatInt(int64(l), 10) }

// Double is a floating point literal.
type Double float64

func (Double) ClassName() string { return "double" }
func (Double) NativeType(*Handle) NativeType { return TypeDouble }
func (d Double) EvaluateLong(*Handle) (int64, error) { return int64(d), nil }
func (d Double) EvaluateDouble(*Handle) (float64, error) { return float64(d), nil }
func (d Double) EvaluateString(*Handle) (string, error) { return FormatDouble(float64(d)), nil }
func (d Double) String() string { return FormatDouble(float64(d)) }

// String is a string literal.
type String string

func (String) ClassName() string { return "string" }
func (String) NativeType(*Handle) NativeType { return TypeString }
func (s String) EvaluateString(*Handle) (string, error) { return string(s), nil }
func (s String) String() string { return strconv.Quote(string(s)) }

func (s String) EvaluateLong(*Handle) (int64, error) {
	v, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("string %q as long: %w", string(s), codes.ErrWrongConversion)
	}
	return v, nil
}

func (s String) EvaluateDouble(*Handle) (float64, error) {
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, fmt.Errorf("string %q as double: %w", string(s), codes.ErrWrongConversion)
	}
	return v, nil
}

// True always matches in a switch case.
type True struct{}

func (True) ClassName() string { return "true" }
func (True) NativeType(*Handle) NativeType { return TypeLong }
func (True) EvaluateLong(*Handle) (int64, error) { return 1, nil }
func (True) EvaluateDouble(*Handle) (float64, error) { return 1, nil }
func (True) EvaluateString(*Handle) (string, error) { return "1", nil }
func (True) String() string { return "true" }

// KeyRef evaluates to the current value of another key.
type KeyRef struct {
	Name string
}

func (KeyRef) ClassName() string { return "accessor" }
func (r KeyRef) KeyName() string { return r.Name }
func (r KeyRef) References() []string { return []string{r.Name} }
func (r KeyRef) String() string { return r.Name }

func (r KeyRef) NativeType(h *Handle) NativeType {
	a := h.FindAccessor(r.Name)
	if a == nil {
		return TypeUndefined
	}
	return a.NativeType()
}

func (r KeyRef) EvaluateLong(h *Handle) (int64, error) { return h.GetLong(r.Name) }
func (r KeyRef) EvaluateDouble(h *Handle) (float64, error) { return h.GetDouble(r.Name) }
func (r KeyRef) EvaluateString(h *Handle) (string, error) { return h.GetString(r.Name) }

// Arguments is the ordered argument list of a definition statement.
type Arguments []Expression

// Expression returns the i-th argument or nil.
func (args Arguments) Expression(i int) Expression {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// GetName returns the key name of the i-th argument. String literals are
// accepted as names.
func (args Arguments) GetName(i int) string {
	switch e := args.Expression(i).(type) {
	case Named:
		return e.KeyName()
	case String:
		return string(e)
	}
	return ""
}

// GetLong evaluates the i-th argument as a long. A missing argument yields
// ErrNotFound.
func (args Arguments) GetLong(h *Handle, i int) (int64, error) {
	e := args.Expression(i)
	if e == nil {
		return 0, fmt.Errorf("argument %d: %w", i, codes.ErrNotFound)
	}
	return e.EvaluateLong(h)
}

// GetDouble evaluates the i-th argument as a double.
func (args Arguments) GetDouble(h *Handle, i int) (float64, error) {
	e := args.Expression(i)
	if e == nil {
		return 0, fmt.Errorf("argument %d: %w", i, codes.ErrNotFound)
	}
	return e.EvaluateDouble(h)
}

// GetString evaluates the i-th argument as a string.
func (args Arguments) GetString(h *Handle, i int) (string, error) {
	e := args.Expression(i)
	if e == nil {
		return "", fmt.Errorf("argument %d: %w", i, codes.ErrNotFound)
	}
	return e.EvaluateString(h)
}

// References collects every key name read by the arguments.
func (args Arguments) References() []string {
	var names []string
	for _, e := range args {
		if r, ok := e.(Referencer); ok {
			names = append(names, r.References()...)
		}
	}
	return names
}

// FormatDouble renders a double the way %g does in C.
func FormatDouble(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
