package grib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gribdef/internal/codes"
)

// ConceptCondition requires key Name to equal Value.
type ConceptCondition struct {
	Name  string
	Value Expression
}

// ConceptValue is one named entry of a concept: the value holds when all
// of its conditions do.
type ConceptValue struct {
	Name       string
	Conditions []ConceptCondition
}

// Holds evaluates the condition against h. On success it also returns the
// expected value as text.
func (c ConceptCondition) Holds(h *Handle) (string, bool) {
	switch c.Value.NativeType(h) {
	case TypeLong:
		want, err := c.Value.EvaluateLong(h)
		if err != nil {
			return "", false
		}
		got, err := h.GetLong(c.Name)
		if err != nil || got != want {
			return "", false
		}
		return strconv.FormatInt(want, 10), true
	case TypeDouble:
		want, err := c.Value.EvaluateDouble(h)
		if err != nil {
			return "", false
		}
		got, err := h.GetDouble(c.Name)
		if err != nil || got != want {
			return "", false
		}
		return FormatDouble(want), true
	case TypeString:
		want, err := c.Value.EvaluateString(h)
		if err != nil {
			return "", false
		}
		got, err := h.GetString(c.Name)
		if err != nil || got != want {
			return "", false
		}
		return want, true
	}
	return "", false
}

// BestConcept returns the entry whose conditions all hold and that has the
// most conditions. Among equally specific entries the first one wins, so
// local entries, listed ahead of master ones, take precedence. Entries
// without conditions never match.
func BestConcept(h *Handle, values []*ConceptValue) (*ConceptValue, bool) {
	var best *ConceptValue
	count := 0
	for _, v := range values {
		if len(v.Conditions) == 0 {
			continue
		}
		matched := true
		for _, c := range v.Conditions {
			if _, ok := c.Holds(h); !ok {
				matched = false
				break
			}
		}
		if matched && (best == nil || len(v.Conditions) > count) {
			count = len(v.Conditions)
			best = v
		}
	}
	return best, best != nil
}

// FindConcept returns the first entry called name.
func FindConcept(values []*ConceptValue, name string) *ConceptValue {
	for _, v := range values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// ConceptConditionString explains a concept value in terms of raw keys:
// every condition of the entries named value that currently holds, as
// "key=value" pairs joined by commas. An empty value means the key's
// current value. Example: for typeOfLevel=mixedLayerDepth the result is
// "typeOfFirstFixedSurface=169,typeOfSecondFixedSurface=255".
func ConceptConditionString(h *Handle, key, value string) (string, error) {
	a := h.FindAccessor(key)
	if a == nil {
		return "", fmt.Errorf("key %s: %w", key, codes.ErrNotFound)
	}
	if value == "" {
		v, err := h.GetString(key)
		if err != nil {
			return "", fmt.Errorf("value of %s: %w", key, codes.ErrInternal)
		}
		value = v
	}
	src, ok := a.Core().Creator.(ConceptSource)
	if !ok {
		return "", fmt.Errorf("key %s is not a concept: %w", key, codes.ErrInvalidArgument)
	}
	values, err := src.Concept(h)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, v := range values {
		if v.Name != value {
			continue
		}
		for _, c := range v.Conditions {
			if c.Name == "one" {
				continue
			}
			if text, ok := c.Holds(h); ok {
				parts = append(parts, c.Name+"="+text)
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%s=%s: %w", key, value, codes.ErrConceptNoMatch)
	}
	return strings.Join(parts, ","), nil
}

// RecomposeName replaces every [key] in pattern with the key's string
// value. An unknown key is an error.
func RecomposeName(h *Handle, pattern string) (string, error) {
	var sb strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.IndexByte(rest[open:], ']')
		if end < 0 {
			return "", fmt.Errorf("unterminated key in %q: %w", pattern, codes.ErrInvalidArgument)
		}
		sb.WriteString(rest[:open])
		key := rest[open+1 : open+end]
		v, err := h.GetString(key)
		if err != nil {
			return "", fmt.Errorf("%s in %q: %w", key, pattern, err)
		}
		sb.WriteString(v)
		rest = rest[open+end+1:]
	}
}
