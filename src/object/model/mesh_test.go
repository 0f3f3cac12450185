package model

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleDoc(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	norm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 2, 1})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "triangle",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos, gltf.NORMAL: norm},
		}},
	})
	return doc
}

func TestFromGLTF(t *testing.T) {
	m, err := FromGLTF(triangleDoc(t), t.TempDir())
	require.NoError(t, err)

	require.Len(t, m.Vertices, 3)
	assert.Equal(t, Position{1, 0, 0}, m.Vertices[1].Pos)
	assert.Equal(t, [3]float32{0, 0, 1}, m.Vertices[2].Normal)
	assert.Equal(t, [3]float32{1, 1, 1}, m.Vertices[0].RGB)
	assert.Equal(t, []uint32{0, 2, 1}, m.Indexes)
	assert.Empty(t, m.Textures)
}

func TestFromGLTFOffsetsLaterPrimitives(t *testing.T) {
	doc := triangleDoc(t)
	pos := modeler.WritePosition(doc, [][3]float32{{5, 0, 0}, {6, 0, 0}, {5, 1, 0}})
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, &gltf.Primitive{
		Attributes: map[string]int{gltf.POSITION: pos},
	})

	m, err := FromGLTF(doc, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 6)
	assert.Equal(t, []uint32{0, 2, 1, 3, 4, 5}, m.Indexes)
}

func TestFromGLTFEmbeddedTexture(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	doc := triangleDoc(t)
	doc.Images = append(doc.Images, &gltf.Image{
		MimeType: "image/png",
		URI:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(encoded.Bytes()),
	})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)}, &gltf.Texture{})

	m, err := FromGLTF(doc, t.TempDir())
	require.NoError(t, err)
	require.Len(t, m.Textures, 1)
	assert.Equal(t, []uint8{10, 20, 30, 255}, m.Textures[0].Data)
}

func TestFromGLTFEmpty(t *testing.T) {
	_, err := FromGLTF(gltf.NewDocument(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoGeometry)
}

func TestFromGLTFMissingPosition(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Primitives: []*gltf.Primitive{{Attributes: map[string]int{}}}})
	_, err := FromGLTF(doc, t.TempDir())
	assert.ErrorContains(t, err, "POSITION")
}

func TestBuiltinMeshes(t *testing.T) {
	for name, m := range map[string]*Mesh{"quad": Quad([3]float32{1, 0, 0}), "plane": Plane([3]float32{0, 1, 0})} {
		assert.Len(t, m.Vertices, 4, name)
		assert.Len(t, m.Indexes, 6, name)
		for _, i := range m.Indexes {
			assert.Less(t, i, uint32(len(m.Vertices)), name)
		}
	}
}
