// Package testutil holds helpers shared by the package tests: writing
// definition trees to temporary directories and decoding messages with them.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/gribdef/internal/ctxlog"
	"github.com/vk/gribdef/internal/defs"
	"github.com/vk/gribdef/internal/grib"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Definitions is a decoding fixture: a definition directory written from
// a map of relative file names to contents, and a context reading it.
type Definitions struct {
	Dir     string
	Context *grib.Context
	Parser  *CountingParser
	Logs    *SafeBuffer
	Logger  *slog.Logger
}

// WriteFiles writes files under dir, creating subdirectories as needed.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// NewDefinitions writes files to a temporary directory and returns a
// context searching it. The boot program is "boot.hcl" unless one of opts
// says otherwise.
func NewDefinitions(t *testing.T, files map[string]string, opts ...grib.ContextOption) *Definitions {
	t.Helper()

	dir := t.TempDir()
	WriteFiles(t, dir, files)

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	parser := NewCountingParser(defs.NewParser(logger))

	all := append([]grib.ContextOption{
		grib.WithSearchPath(dir),
		grib.WithContextLogger(logger),
	}, opts...)
	gctx := grib.NewContext(parser, all...)

	t.Cleanup(func() {
		gctx.Close()
		if os.Getenv("GRIBDEF_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return &Definitions{Dir: dir, Context: gctx, Parser: parser, Logs: logs, Logger: logger}
}

// Ctx returns a background context carrying the fixture's logger.
func (d *Definitions) Ctx() context.Context {
	return ctxlog.WithLogger(context.Background(), d.Logger)
}

// Decode builds a handle over data and closes it when the test ends.
func (d *Definitions) Decode(t *testing.T, data []byte, opts ...grib.HandleOption) *grib.Handle {
	t.Helper()
	h, err := grib.NewHandle(d.Ctx(), d.Context, data, opts...)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

// Empty builds a handle from default values and closes it when the test ends.
func (d *Definitions) Empty(t *testing.T) *grib.Handle {
	t.Helper()
	h, err := grib.NewEmptyHandle(d.Ctx(), d.Context)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

// Boot returns a definitions fixture whose boot file is boot.
func Boot(t *testing.T, boot string) *Definitions {
	t.Helper()
	return NewDefinitions(t, map[string]string{"boot.hcl": boot})
}
