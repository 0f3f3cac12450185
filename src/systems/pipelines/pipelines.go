package pipelines

import (
	"errors"
	"fmt"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
)

type Subpass uint32

const (
	SubpassDepth Subpass = iota
	SubpassGBuffer
	SubpassLighting

	SubpassCount = 3
)

func (s Subpass) String() string {
	switch s {
	case SubpassDepth:
		return "depth"
	case SubpassGBuffer:
		return "gbuffer"
	case SubpassLighting:
		return "lighting"
	}
	return fmt.Sprintf("subpass(%d)", uint32(s))
}

type StencilMode int

const (
	StencilDisabled StencilMode = iota
	// StencilWrite replaces the stencil value with the dynamic reference
	// wherever the fragment passes the depth test.
	StencilWrite
	// StencilTest only lets fragments through where the stencil value equals
	// the dynamic reference. The stencil buffer is not modified.
	StencilTest
)

type BlendMode int

const (
	BlendOpaque BlendMode = iota
	// BlendAlpha is src*a + dst*(1-a).
	BlendAlpha
	BlendAdditive
	// BlendNoColor disables every colour write.
	BlendNoColor
)

type Winding int

const (
	Clockwise Winding = iota
	CounterClockwise
)

func (w Winding) Reversed() Winding {
	if w == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

type VertexInput int

const (
	InputNone VertexInput = iota
	InputMesh
	// InputMeshInstanced adds a per-instance binding fed by the particle buffer.
	InputMeshInstanced
)

// Layout selects the resource-binding set layout a pipeline reads from.
type Layout int

const (
	LayoutNormal Layout = iota
	LayoutSnow
	LayoutLit
	LayoutLighting
)

// Key identifies a pipeline. Two objects asking for the same key share one
// descriptor.
type Key struct {
	Vertex     string
	Fragment   string
	Subpass    Subpass
	Stencil    StencilMode
	Blend      BlendMode
	DepthTest  bool
	DepthWrite bool
	FrontFace  Winding
	Input      VertexInput
	Layout     Layout
}

var ErrInvalidKey = errors.New("invalid pipeline key")

func (k Key) Validate() error {
	if k.Vertex == "" || k.Fragment == "" {
		return fmt.Errorf("%w: missing shader", ErrInvalidKey)
	}
	if k.Subpass >= SubpassCount {
		return fmt.Errorf("%w: unknown subpass %d", ErrInvalidKey, k.Subpass)
	}
	if k.Stencil != StencilDisabled && k.Subpass != SubpassLighting {
		return fmt.Errorf("%w: stencil mode outside the lighting subpass", ErrInvalidKey)
	}
	if k.Subpass == SubpassDepth && k.Blend != BlendNoColor {
		return fmt.Errorf("%w: depth subpass has no colour output", ErrInvalidKey)
	}
	if k.Layout == LayoutLighting && k.Subpass != SubpassLighting {
		return fmt.Errorf("%w: lighting layout outside the lighting subpass", ErrInvalidKey)
	}
	return nil
}

// Descriptor is an immutable pipeline plus the layout its binding sets and
// push constants go through.
type Descriptor struct {
	Key      Key
	Pipeline gpu.Handle
	Layout   gpu.Handle

	refs int
}

// Factory builds backend pipelines. Implemented by the Vulkan pipeline
// package and by fakes in tests.
type Factory interface {
	Create(key Key) (pipeline gpu.Handle, layout gpu.Handle, err error)
	Destroy(pipeline gpu.Handle, layout gpu.Handle)
}

// Cache deduplicates pipelines by key and reference counts them.
type Cache struct {
	factory Factory
	entries map[Key]*Descriptor
}

func NewCache(factory Factory) *Cache {
	return &Cache{
		factory: factory,
		entries: map[Key]*Descriptor{},
	}
}

func (c *Cache) Acquire(key Key) (*Descriptor, error) {
	if d, ok := c.entries[key]; ok {
		d.refs++
		return d, nil
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	pipeline, layout, err := c.factory.Create(key)
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline %s/%s: %w", key.Subpass, key.Vertex, key.Fragment, err)
	}
	d := &Descriptor{
		Key:      key,
		Pipeline: pipeline,
		Layout:   layout,
		refs:     1,
	}
	c.entries[key] = d
	logging.Logger().Debug("pipeline created",
		"subpass", key.Subpass.String(),
		"vertex", key.Vertex,
		"fragment", key.Fragment,
		"stencil", key.Stencil,
		"blend", key.Blend,
	)
	return d, nil
}

// MustAcquire is Acquire for setup code where a failure is fatal.
func (c *Cache) MustAcquire(key Key) *Descriptor {
	d, err := c.Acquire(key)
	if err != nil {
		panic("failed to acquire pipeline: " + err.Error())
	}
	return d
}

func (c *Cache) Release(d *Descriptor) {
	if d == nil {
		return
	}
	cur, ok := c.entries[d.Key]
	if !ok || cur != d {
		return
	}
	d.refs--
	if d.refs > 0 {
		return
	}
	delete(c.entries, d.Key)
	c.factory.Destroy(d.Pipeline, d.Layout)
	logging.Logger().Debug("pipeline destroyed", "subpass", d.Key.Subpass.String(), "vertex", d.Key.Vertex)
}

func (c *Cache) Refs(key Key) int {
	if d, ok := c.entries[key]; ok {
		return d.refs
	}
	return 0
}

func (c *Cache) Len() int {
	return len(c.entries)
}

func (c *Cache) Close() {
	for key, d := range c.entries {
		c.factory.Destroy(d.Pipeline, d.Layout)
		delete(c.entries, key)
	}
}
