package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestDecompress(t *testing.T) {
	message := []byte{98, 'e', 'c', 5}

	tests := map[string][]byte{
		"plain": message,
		"gzip":  gzipped(t, message),
		"zstd":  zstded(t, message),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := decompress(data)
			require.NoError(t, err)
			assert.Equal(t, message, got)
		})
	}

	_, err := decompress([]byte{0x1f, 0x8b, 0x00})
	assert.ErrorContains(t, err, "gzip")
}

func TestRun_CompressedInput(t *testing.T) {
	defsDir, input := writeDefinitions(t, map[string]string{"boot.hcl": appBoot}, zstded(t, []byte{98, 'e', 'c', 5}))
	cfg, err := NewConfig(Config{DefinitionPath: defsDir, InputPath: input, Keys: []string{"name"}})
	require.NoError(t, err)

	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "name=ec\n", out.String())
}
