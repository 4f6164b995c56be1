package defs

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vk/gribdef/internal/codes"
	"github.com/vk/gribdef/internal/grib"
)

// elementFields is the column count of an element table row:
//
//	code|abbreviation|type|name|unit|scale|reference|width
const elementFields = 8

// ParseElementTable reads a pipe separated BUFR element table. Lines
// starting with # are comments.
func (p *Parser) ParseElementTable(path string) (*grib.ElementTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(codes.ErrFileNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "open element table %s", path)
	}
	defer f.Close()

	elements, err := readElements(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	p.logger.Debug("Parsed element table", "file", path, "elements", len(elements))
	return grib.NewElementTable(path, elements), nil
}

func readElements(r io.Reader) ([]*grib.Element, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.Comment = '#'
	cr.FieldsPerRecord = elementFields
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var elements []*grib.Element
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return elements, nil
		}
		if err != nil {
			return nil, errors.Wrap(codes.ErrInvalidArgument, err.Error())
		}
		e, err := parseElement(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, errors.Wrapf(err, "line %d", line)
		}
		elements = append(elements, e)
	}
}

func parseElement(rec []string) (*grib.Element, error) {
	ints := make([]int64, 0, 4)
	for _, i := range []int{0, 5, 6, 7} {
		v, err := strconv.ParseInt(strings.TrimSpace(rec[i]), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(codes.ErrInvalidArgument, "column %d: %q is not an integer", i+1, rec[i])
		}
		ints = append(ints, v)
	}
	return &grib.Element{
		Code:         ints[0],
		Abbreviation: strings.TrimSpace(rec[1]),
		Type:         strings.TrimSpace(rec[2]),
		Name:         strings.TrimSpace(rec[3]),
		Unit:         strings.TrimSpace(rec[4]),
		Scale:        ints[1],
		Reference:    ints[2],
		Width:        ints[3],
	}, nil
}
