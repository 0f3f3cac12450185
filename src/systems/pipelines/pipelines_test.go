package pipelines

import (
	"errors"
	"testing"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactory struct {
	created   []Key
	destroyed []gpu.Handle
	fail      error
}

type handle struct {
	key  Key
	kind string
}

func (f *fakeFactory) Create(key Key) (gpu.Handle, gpu.Handle, error) {
	if f.fail != nil {
		return nil, nil, f.fail
	}
	f.created = append(f.created, key)
	return &handle{key: key, kind: "pipeline"}, &handle{key: key, kind: "layout"}, nil
}

func (f *fakeFactory) Destroy(pipeline gpu.Handle, _ gpu.Handle) {
	f.destroyed = append(f.destroyed, pipeline)
}

func TestCacheSharesDescriptors(t *testing.T) {
	f := &fakeFactory{}
	c := NewCache(f)

	a, err := c.Acquire(Forward("ship.vert", "ship.frag", LayoutLit))
	require.NoError(t, err)
	b, err := c.Acquire(Forward("ship.vert", "ship.frag", LayoutLit))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Len(t, f.created, 1)
	assert.Equal(t, 2, c.Refs(a.Key))
	assert.Equal(t, 1, c.Len())

	other, err := c.Acquire(Forward("ship.vert", "ship.frag", LayoutNormal))
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, c.Len())
}

func TestCacheReleaseDestroysOnLastReference(t *testing.T) {
	f := &fakeFactory{}
	c := NewCache(f)

	key := MirrorBlend("mirror.vert", "mirror.frag")
	a := c.MustAcquire(key)
	c.MustAcquire(key)

	c.Release(a)
	assert.Empty(t, f.destroyed)
	assert.Equal(t, 1, c.Refs(key))

	c.Release(a)
	assert.Len(t, f.destroyed, 1)
	assert.Equal(t, 0, c.Len())

	// a second release of a dead descriptor is ignored
	c.Release(a)
	assert.Len(t, f.destroyed, 1)
}

func TestCacheFactoryFailure(t *testing.T) {
	boom := errors.New("out of device memory")
	c := NewCache(&fakeFactory{fail: boom})

	_, err := c.Acquire(Depth("d.vert", "d.frag"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
	assert.Panics(t, func() { c.MustAcquire(Depth("d.vert", "d.frag")) })
}

func TestCacheClose(t *testing.T) {
	f := &fakeFactory{}
	c := NewCache(f)
	c.MustAcquire(Depth("d.vert", "d.frag"))
	c.MustAcquire(GBuffer("g.vert", "g.frag"))

	c.Close()
	assert.Len(t, f.destroyed, 2)
	assert.Equal(t, 0, c.Len())
}

func TestKeyValidate(t *testing.T) {
	valid := []Key{
		Forward("a", "b", LayoutNormal),
		Instanced("a", "b", LayoutSnow),
		Depth("a", "b"),
		GBuffer("a", "b"),
		LightingQuad("a", "b"),
		MirrorMark("a", "b"),
		MirrorReflect(Forward("a", "b", LayoutLit)),
		MirrorBlend("a", "b"),
	}
	for _, k := range valid {
		assert.NoError(t, k.Validate(), "%+v", k)
	}

	invalid := map[string]Key{
		"no shaders":         {Subpass: SubpassLighting},
		"stencil in gbuffer": func() Key { k := GBuffer("a", "b"); k.Stencil = StencilTest; return k }(),
		"colour in depth":    func() Key { k := Depth("a", "b"); k.Blend = BlendOpaque; return k }(),
		"lighting in depth":  func() Key { k := Depth("a", "b"); k.Layout = LayoutLighting; return k }(),
		"unknown subpass":    func() Key { k := Forward("a", "b", LayoutNormal); k.Subpass = 7; return k }(),
	}
	for name, k := range invalid {
		assert.ErrorIs(t, k.Validate(), ErrInvalidKey, name)
	}
}

func TestMirrorPresets(t *testing.T) {
	mark := MirrorMark("m.vert", "m.frag")
	assert.Equal(t, StencilWrite, mark.Stencil)
	assert.Equal(t, BlendNoColor, mark.Blend)
	assert.True(t, mark.DepthTest)
	assert.False(t, mark.DepthWrite)

	orig := Forward("ship.vert", "ship.frag", LayoutLit)
	reflect := MirrorReflect(orig)
	assert.Equal(t, StencilTest, reflect.Stencil)
	assert.True(t, reflect.DepthTest)
	assert.True(t, reflect.DepthWrite)
	assert.Equal(t, CounterClockwise, reflect.FrontFace)
	assert.Equal(t, LayoutLit, reflect.Layout)
	assert.Equal(t, Clockwise, MirrorReflect(reflect).FrontFace)

	blend := MirrorBlend("m.vert", "m.frag")
	assert.Equal(t, BlendAlpha, blend.Blend)
	assert.Equal(t, StencilDisabled, blend.Stencil)
	assert.False(t, blend.DepthWrite)
}
