package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ID 1 and ID 3 get 3 bytes each, ID 2 is empty.
var capture = []byte{
	0x03, 0xAA, 0xBC, 0xDD, 0x07, 0x11, 0x22, 0x33, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

func TestDemuxToFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "capture.bin")
	require.NoError(t, os.WriteFile(in, capture, 0o644))
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{in, "-d", outDir, "--dump"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "1 frames, 0 frame syncs, 3 trace sources, stopped on a null ID")
	assert.Contains(t, out.String(), "ID_DATA[0x03]; 11 22 33 \n")

	one, err := os.ReadFile(filepath.Join(outDir, "source_0x01.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBC, 0xDD}, one)

	three, err := os.ReadFile(filepath.Join(outDir, "source_0x03.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, three)

	_, err = os.Stat(filepath.Join(outDir, "source_0x02.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestDemuxErrors(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.bin")})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"capture.bin", "--log-level", "loud"})
	assert.Error(t, cmd.Execute())
}
