// Package defs reads definition files written in HCL: the statement
// programs that lay out a message, concept tables and BUFR element tables.
//
// A definition file is a sequence of statement blocks executed in source
// order:
//
//	key "totalLength" "unsigned" { length = 3 }
//	section "section1" {
//	  key "section1Length" "section_length" { length = 3 }
//	  key "centre" "unsigned" {
//	    length  = 2
//	    default = 98
//	  }
//	}
//	switch {
//	  on = [centre]
//	  case {
//	    values = [98]
//	    key "ecmwfLocal" "unsigned" { length = 1 }
//	  }
//	  default {}
//	}
//
// Bare names in argument expressions refer to other keys.
package defs

import (
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

// Parser implements grib.Parser for HCL definition files. It keeps no
// state between calls and is safe for concurrent use.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser logging to logger, or to slog.Default when
// logger is nil.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

var _ grib.Parser = (*Parser)(nil)

// parseFile reads and parses one HCL file. A fresh hclparse.Parser is used
// per file because it is not safe for concurrent use.
func parseFile(path string) (*hclsyntax.Body, []byte, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		if file == nil {
			return nil, nil, errors.Wrapf(codes.ErrFileNotFound, "%s: %s", path, diags.Error())
		}
		return nil, nil, errors.Wrapf(codes.ErrInvalidArgument, "%s: %s", path, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, nil, errors.Wrapf(codes.ErrInvalidArgument, "%s: not native HCL syntax", path)
	}
	return body, file.Bytes, nil
}

// ParseDefinitions reads the statements of a definition file.
func (p *Parser) ParseDefinitions(path string) ([]grib.Action, error) {
	body, src, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	if len(body.Attributes) > 0 {
		return nil, errors.Wrapf(codes.ErrInvalidArgument, "%s: attributes are not allowed at top level", path)
	}
	program, err := newBuilder(src).statements(body.Blocks)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	p.logger.Debug("Parsed definitions", "file", path, "statements", len(program))
	return program, nil
}

// ParseConcepts reads a concept file: a list of value blocks whose
// attributes are the conditions, in source order.
//
//	value "isobaricInhPa" { typeOfFirstFixedSurface = 100 }
func (p *Parser) ParseConcepts(path string) ([]*grib.ConceptValue, error) {
	body, src, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	b := newBuilder(src)
	var values []*grib.ConceptValue
	for _, block := range body.Blocks {
		if block.Type != "value" {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "%s: unexpected %s block at %s", path, block.Type, block.DefRange())
		}
		v, err := b.conceptValue(block)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		values = append(values, v)
	}
	p.logger.Debug("Parsed concepts", "file", path, "values", len(values))
	return values, nil
}

// sortedAttributes returns a body's attributes in source order.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}
