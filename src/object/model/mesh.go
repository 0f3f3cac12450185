package model

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/texture"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var ErrNoGeometry = errors.New("model has no geometry")

// Mesh is CPU-side geometry ready for upload.
type Mesh struct {
	Vertices []Vertex
	Indexes  []uint32
	Textures []*texture.TextureConfig
}

// LoadGLTF reads a .gltf or .glb file. Every primitive of every mesh is
// merged into one indexed mesh.
func LoadGLTF(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return FromGLTF(doc, filepath.Dir(path))
}

// FromGLTF converts a parsed document. External image URIs resolve
// against dir.
func FromGLTF(doc *gltf.Document, dir string) (*Mesh, error) {
	m := &Mesh{}
	for mi, mesh := range doc.Meshes {
		for pi, primitive := range mesh.Primitives {
			if err := m.appendPrimitive(doc, primitive); err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
		}
	}
	if len(m.Vertices) == 0 {
		return nil, ErrNoGeometry
	}

	for i, tex := range doc.Textures {
		if tex.Source == nil || int(*tex.Source) >= len(doc.Images) {
			logging.Logger().Warn("texture has no valid source image", "texture", i)
			continue
		}

		img := doc.Images[*tex.Source]
		textureRaw, err := extractImageData(doc, img, dir)
		if err != nil {
			logging.Logger().Warn("failed to extract image data", "texture", i, "error", err)
			continue
		}

		cfg, err := texture.Decode(bytes.NewReader(textureRaw))
		if err != nil {
			logging.Logger().Warn("failed to decode texture", "texture", i, "mime", img.MimeType, "error", err)
			continue
		}
		m.Textures = append(m.Textures, cfg)
	}

	return m, nil
}

func (m *Mesh) appendPrimitive(doc *gltf.Document, primitive *gltf.Primitive) error {
	posIdx, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return errors.New("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := primitive.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("normals: %w", err)
		}
	}
	var uvs [][2]float32
	if idx, ok := primitive.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("texture coordinates: %w", err)
		}
	}

	base := uint32(len(m.Vertices))
	for i, p := range positions {
		v := Vertex{
			Pos: Position{X: p[0], Y: p[1], Z: p[2]},
			RGB: [3]float32{1, 1, 1},
		}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(uvs) {
			v.UV = uvs[i]
		}
		m.Vertices = append(m.Vertices, v)
	}

	if primitive.Indices == nil {
		for i := range uint32(len(positions)) {
			m.Indexes = append(m.Indexes, base+i)
		}
		return nil
	}
	indexes, err := modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil)
	if err != nil {
		return fmt.Errorf("indices: %w", err)
	}
	for _, idx := range indexes {
		if idx >= uint32(len(positions)) {
			return fmt.Errorf("index %d out of range of %d vertices", idx, len(positions))
		}
		m.Indexes = append(m.Indexes, base+idx)
	}
	return nil
}

func extractImageData(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	if img.BufferView != nil {
		if int(*img.BufferView) >= len(doc.BufferViews) {
			return nil, errors.New("no valid BufferView")
		}
		return modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
	}

	if strings.HasPrefix(img.URI, "data:") {
		parts := strings.SplitN(img.URI, ",", 2)
		if len(parts) != 2 {
			return nil, errors.New("invalid data URI")
		}
		return base64.StdEncoding.DecodeString(parts[1])
	}
	if img.URI == "" {
		return nil, errors.New("image has neither URI nor BufferView")
	}
	return os.ReadFile(filepath.Join(dir, img.URI))
}

// Quad is a unit square in the XY plane facing -Z, wound clockwise on
// screen when seen from that side.
func Quad(rgb [3]float32) *Mesh {
	normal := [3]float32{0, 0, -1}
	return &Mesh{
		Vertices: []Vertex{
			{Pos: Position{-0.5, -0.5, 0}, RGB: rgb, Normal: normal, UV: [2]float32{0, 1}},
			{Pos: Position{0.5, -0.5, 0}, RGB: rgb, Normal: normal, UV: [2]float32{1, 1}},
			{Pos: Position{0.5, 0.5, 0}, RGB: rgb, Normal: normal, UV: [2]float32{1, 0}},
			{Pos: Position{-0.5, 0.5, 0}, RGB: rgb, Normal: normal, UV: [2]float32{0, 0}},
		},
		Indexes: []uint32{0, 2, 1, 0, 3, 2},
	}
}

// Plane is a unit square in the XZ plane facing +Y, wound clockwise when
// seen from above.
func Plane(rgb [3]float32) *Mesh {
	normal := [3]float32{0, 1, 0}
	return &Mesh{
		Vertices: []Vertex{
			{Pos: Position{-0.5, 0, -0.5}, RGB: rgb, Normal: normal, UV: [2]float32{0, 0}},
			{Pos: Position{0.5, 0, -0.5}, RGB: rgb, Normal: normal, UV: [2]float32{1, 0}},
			{Pos: Position{0.5, 0, 0.5}, RGB: rgb, Normal: normal, UV: [2]float32{1, 1}},
			{Pos: Position{-0.5, 0, 0.5}, RGB: rgb, Normal: normal, UV: [2]float32{0, 1}},
		},
		Indexes: []uint32{0, 2, 1, 0, 3, 2},
	}
}
