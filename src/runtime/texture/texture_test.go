package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureConfigFromPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{B: 255, A: 255})

	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, src))

	cfg, err := TextureConfigFromPNG(&encoded)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 0, 255, 255}, cfg.Data)
}

func TestTextureConfigFromPNGInvalid(t *testing.T) {
	_, err := TextureConfigFromPNG(bytes.NewReader([]byte("not a png")))
	assert.Error(t, err)
}

func TestTextureConfigOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 7))
	src.Set(5, 5, color.RGBA{G: 200, A: 255})

	cfg := TextureConfigFromImage(src)
	assert.Equal(t, 2, cfg.Width)
	assert.Len(t, cfg.Data, 2*2*4)
	assert.Equal(t, []uint8{0, 200, 0, 255}, cfg.Data[:4])
}

func TestTextureConfigDownscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, MaxSize*2, 2))

	cfg := TextureConfigFromImage(src)
	assert.Equal(t, MaxSize, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
	assert.Len(t, cfg.Data, MaxSize*4)
}

func TestSolid(t *testing.T) {
	cfg := Solid(color.RGBA{R: 1, G: 2, B: 3, A: 4})
	assert.Equal(t, 1, cfg.Width)
	assert.Equal(t, []uint8{1, 2, 3, 4}, cfg.Data)
}
