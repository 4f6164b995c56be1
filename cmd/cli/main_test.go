package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_Decode(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	defsDir := t.TempDir()
	boot := `key "edition" "unsigned" { length = 1 }`
	require.NoError(t, os.WriteFile(filepath.Join(defsDir, "boot.hcl"), []byte(boot), 0o600))
	input := filepath.Join(t.TempDir(), "message.bin")
	require.NoError(t, os.WriteFile(input, []byte{2}, 0o600))

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}

	// --- Act ---
	err := run(out, logs, []string{"-defs", defsDir, "-get", "edition", input})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "edition=2\n", out.String())
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	// The run function should see `shouldExit=true` and return a nil error.
	err := run(out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	// The run function should propagate the error from cli.Parse.
	err := run(out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_DecodeError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The boot file is missing, so decoding fails after parsing succeeds.
	args := []string{"-defs", t.TempDir(), filepath.Join(t.TempDir(), "message.bin")}

	// --- Act ---
	err := run(&bytes.Buffer{}, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err)
}
