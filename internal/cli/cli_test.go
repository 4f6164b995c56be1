package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestParse(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := parse([]string{
		"-defs", "/a:/b",
		"-boot", "grib.hcl",
		"-get", "centre, mars.step,,",
		"-partial", "-hidden",
		"-log-format", "JSON",
		"-log-level", "debug",
		"message.grib",
	}, &out, noEnv)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "/a:/b", cfg.DefinitionPath)
	assert.Equal(t, []string{"/a", "/b"}, cfg.SearchPath())
	assert.Equal(t, "grib.hcl", cfg.BootFile)
	assert.Equal(t, "message.grib", cfg.InputPath)
	assert.Equal(t, []string{"centre", "mars.step"}, cfg.Keys)
	assert.True(t, cfg.Partial)
	assert.True(t, cfg.DumpHidden)
	assert.False(t, cfg.CheckOnly)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, out.String())
}

func TestParse_Defaults(t *testing.T) {
	env := func(name string) string {
		if name == DefinitionPathEnv {
			return "/usr/share/gribdef"
		}
		return ""
	}
	cfg, exit, err := parse([]string{"-check"}, &bytes.Buffer{}, env)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "/usr/share/gribdef", cfg.DefinitionPath)
	assert.Equal(t, "boot.hcl", cfg.BootFile)
	assert.True(t, cfg.CheckOnly)
	assert.Empty(t, cfg.InputPath)
	assert.Nil(t, cfg.Keys)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestParse_Usage(t *testing.T) {
	for name, args := range map[string][]string{
		"help":     {"-h"},
		"no input": {"-defs", "/defs"},
	} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := parse(args, &out, noEnv)
			require.NoError(t, err)
			assert.True(t, exit)
			assert.Nil(t, cfg)
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"-nope"}, want: "flag provided but not defined: -nope"},
		{name: "two inputs", args: []string{"-defs", "/d", "a", "b"}, want: "only one input file"},
		{name: "log format", args: []string{"-defs", "/d", "-log-format", "xml", "a"}, want: "invalid log-format"},
		{name: "log level", args: []string{"-defs", "/d", "-log-level", "trace", "a"}, want: "invalid log-level"},
		{name: "no definitions", args: []string{"a"}, want: "DefinitionPath is a required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parse(tc.args, &bytes.Buffer{}, noEnv)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Error(), tc.want)
		})
	}
}
