package testutil

import (
	"sync"

	"github.com/vk/gribdef/internal/grib"
)

// CountingParser wraps a parser and counts how often each file is read.
// It is safe for concurrent use.
type CountingParser struct {
	next grib.Parser

	mu    sync.Mutex
	calls map[string]int
}

func NewCountingParser(next grib.Parser) *CountingParser {
	return &CountingParser{next: next, calls: make(map[string]int)}
}

var _ grib.Parser = (*CountingParser)(nil)

func (p *CountingParser) count(path string) {
	p.mu.Lock()
	p.calls[path]++
	p.mu.Unlock()
}

// Calls returns how often path was parsed.
func (p *CountingParser) Calls(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

// Total returns the number of parse calls for all files.
func (p *CountingParser) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *CountingParser) ParseDefinitions(path string) ([]grib.Action, error) {
	p.count(path)
	return p.next.ParseDefinitions(path)
}

func (p *CountingParser) ParseConcepts(path string) ([]*grib.ConceptValue, error) {
	p.count(path)
	return p.next.ParseConcepts(path)
}

func (p *CountingParser) ParseElementTable(path string) (*grib.ElementTable, error) {
	p.count(path)
	return p.next.ParseElementTable(path)
}
