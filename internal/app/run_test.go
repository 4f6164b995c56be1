package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gribdef/internal/codes"
)

const appBoot = `
key "centre" "unsigned" {
  length    = 1
  namespace = "mars"
}
key "name" "ascii" { length = 2 }
key "secret" "unsigned" {
  length = 1
  flags  = ["hidden"]
}
`

// writeDefinitions writes files into a fresh definitions directory and a
// message next to it, returning both paths.
func writeDefinitions(t *testing.T, files map[string]string, message []byte) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	input := filepath.Join(t.TempDir(), "message.bin")
	require.NoError(t, os.WriteFile(input, message, 0o644))
	return dir, input
}

func TestRun_Dump(t *testing.T) {
	defsDir, input := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, []byte{98, 'e', 'c', 5})
	cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: input})
	require.NoError(t, err)

	a, out, logs := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, "mars.centre = 98;\nname = \"ec\";\n", out.String())
	assert.Contains(t, logs.String(), "App.Run method finished.")
}

func TestRun_DumpHidden(t *testing.T) {
	defsDir, input := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, []byte{98, 'e', 'c', 5})
	cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: input, DumpHidden: true})
	require.NoError(t, err)

	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "secret = 5;\n")
}

func TestRun_Keys(t *testing.T) {
	defsDir, input := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, []byte{98, 'e', 'c', 5})
	cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: input, Keys: []string{"name", "mars.centre"}})
	require.NoError(t, err)

	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "name=ec\nmars.centre=98\n", out.String())

	cfg.Keys = []string{"nope"}
	err = a.Run(context.Background())
	assert.ErrorIs(t, err, codes.ErrNotFound)
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		defsDir, _ := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, nil)
		cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: filepath.Join(defsDir, "none.bin")})
		require.NoError(t, err)

		a, _, _ := SetupAppTest(t, cfg)
		err = a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read message")
	})

	t.Run("short message", func(t *testing.T) {
		defsDir, input := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, []byte{98})
		cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: input})
		require.NoError(t, err)

		a, _, _ := SetupAppTest(t, cfg)
		err = a.Run(context.Background())
		require.ErrorIs(t, err, codes.ErrDecoding)
		assert.Contains(t, err.Error(), "failed to decode")
	})

	t.Run("partial decode of a short message", func(t *testing.T) {
		defsDir, input := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, []byte{98})
		cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: input, Partial: true, Keys: []string{"mars.centre"}})
		require.NoError(t, err)

		a, out, _ := SetupAppTest(t, cfg)
		require.NoError(t, a.Run(context.Background()))
		assert.Equal(t, "mars.centre=98\n", out.String())
	})
}

func TestRun_Check(t *testing.T) {
	files := map[string]string{
		"boot.hcl":            appBoot,
		"grib2/shortName.hcl": `value "t" { parameterNumber = 0 }`,
	}
	defsDir, _ := writeDefinitions(t, files, nil)
	cfg, err := NewConfig(Config{DefinitionPath: defsDir, CheckOnly: true})
	require.NoError(t, err)

	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "2 definition files OK\n", out.String())

	files["broken.hcl"] = `key "x" {`
	defsDir, _ = writeDefinitions(t, files, nil)
	cfg, err = NewConfig(Config{DefinitionPath: defsDir, CheckOnly: true})
	require.NoError(t, err)

	a, _, _ = SetupAppTest(t, cfg)
	err = a.Run(context.Background())
	require.ErrorIs(t, err, codes.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "broken.hcl")
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{InputPath: "m.bin"})
	assert.ErrorContains(t, err, "DefinitionPath")

	_, err = NewConfig(Config{DefinitionPath: "defs"})
	assert.ErrorContains(t, err, "InputPath")

	cfg, err := NewConfig(Config{DefinitionPath: "a:b:", CheckOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "boot.hcl", cfg.BootFile)
	assert.Equal(t, []string{"a", "b"}, cfg.SearchPath())
}
