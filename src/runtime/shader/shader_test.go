package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceUint32(t *testing.T) {
	words := sliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	assert.Equal(t, []uint32{0x07230203, 1}, words)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.spv"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	odd := filepath.Join(dir, "odd.spv")
	require.NoError(t, os.WriteFile(odd, []byte{1, 2, 3}, 0o644))
	_, err = Load(odd, nil)
	assert.ErrorContains(t, err, "multiple of 4")
}
