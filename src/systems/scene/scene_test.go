package scene

import (
	"testing"
	"time"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mesh struct {
	vertices uint32
}

func (m mesh) VertexBuffer() gpu.Handle { return &m }
func (m mesh) VertexCount() uint32 { return m.vertices }
func (m mesh) IndexBuffer() gpu.Handle { return nil }
func (m mesh) IndexCount() uint32 { return 0 }

func add(t *testing.T, s *Scene, name string, kind Kind) int {
	t.Helper()
	i, err := s.Add(&Object{Name: name, Kind: kind, Geometry: mesh{vertices: 6}})
	require.NoError(t, err)
	return i
}

func TestKindCategory(t *testing.T) {
	cases := map[Kind]Category{
		Standard:        CategoryNormal,
		Snow:            CategorySnow,
		Lit:             CategoryLit,
		MirrorMark:      CategoryNormal,
		MirrorBlend:     CategoryNormal,
		MirrorReflected: CategoryNone,
		Deferred:        CategoryNormal,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Category(), kind.String())
	}
}

func TestFinalizeAssignsCategorySlots(t *testing.T) {
	s := New(Limits{MaxLights: 2, MaxMirrors: 1})
	add(t, s, "ground", Deferred)
	add(t, s, "snow", Snow)
	add(t, s, "ship", Lit)
	add(t, s, "backdrop", Standard)
	add(t, s, "umbrella", Lit)

	_, err := s.Slot(0)
	assert.ErrorIs(t, err, ErrNotFinalized)

	s.Finalize()
	want := []Slot{
		{CategoryNormal, 0},
		{CategorySnow, 0},
		{CategoryLit, 0},
		{CategoryNormal, 1},
		{CategoryLit, 1},
	}
	for i, w := range want {
		got, err := s.Slot(i)
		require.NoError(t, err)
		assert.Equal(t, w, got, "object %d", i)
	}
	assert.Equal(t, 2, s.CategoryCount(CategoryNormal))
	assert.Equal(t, 1, s.CategoryCount(CategorySnow))
	assert.Equal(t, 2, s.CategoryCount(CategoryLit))

	_, err = s.Slot(5)
	assert.ErrorIs(t, err, ErrInvalidObject)
}

func TestUndrawableObjectKeepsSlot(t *testing.T) {
	s := New(Limits{})
	_, err := s.Add(&Object{Name: "empty", Kind: Lit, Geometry: mesh{}})
	require.NoError(t, err)
	add(t, s, "ship", Lit)
	s.Finalize()

	assert.False(t, s.Object(0).Drawable())
	slot, err := s.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, Slot{CategoryLit, 1}, slot)
}

func TestAddAfterFinalize(t *testing.T) {
	s := New(Limits{})
	add(t, s, "a", Standard)
	s.Finalize()

	_, err := s.Add(&Object{Name: "b", Kind: Standard})
	assert.ErrorIs(t, err, ErrFinalized)

	s.Invalidate()
	add(t, s, "b", Snow)
	s.Finalize()
	assert.Equal(t, 1, s.CategoryCount(CategorySnow))
}

func TestAddRejectsReflectedKind(t *testing.T) {
	s := New(Limits{})
	_, err := s.Add(&Object{Kind: MirrorReflected})
	assert.ErrorIs(t, err, ErrInvalidObject)
	_, err = s.Add(&Object{Kind: Kind(42)})
	assert.ErrorIs(t, err, ErrInvalidObject)
}

func TestCapacityLimits(t *testing.T) {
	s := New(Limits{MaxLights: 1, MaxMirrors: 1})
	require.NoError(t, s.AddLight(Light{Intensity: 1}))
	assert.ErrorIs(t, s.AddLight(Light{}), ErrCapacityExceeded)
	assert.Len(t, s.Lights(), 1)

	mark := add(t, s, "mark", MirrorMark)
	blend := add(t, s, "blend", MirrorBlend)
	m, err := s.AddMirrorPair(mark, blend)
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	_, err = s.AddMirrorPair(mark, blend)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAddMirrorPairChecksKinds(t *testing.T) {
	s := New(Limits{MaxMirrors: 2})
	mark := add(t, s, "mark", MirrorMark)
	ship := add(t, s, "ship", Lit)

	_, err := s.AddMirrorPair(ship, mark)
	assert.ErrorIs(t, err, ErrInvalidObject)
	_, err = s.AddMirrorPair(mark, ship)
	assert.ErrorIs(t, err, ErrInvalidObject)
	_, err = s.AddMirrorPair(mark, 99)
	assert.ErrorIs(t, err, ErrInvalidObject)
}

func TestAddReflectedBackReference(t *testing.T) {
	s := New(Limits{MaxMirrors: 1})
	ship := add(t, s, "ship", Lit)
	mark := add(t, s, "mark", MirrorMark)
	blend := add(t, s, "blend", MirrorBlend)
	_, err := s.AddMirrorPair(mark, blend)
	require.NoError(t, err)

	copyOf := Object{Name: "ship'", Kind: MirrorReflected}
	assert.ErrorIs(t, s.AddReflected(Reflected{Object: copyOf, Original: 7}), ErrInvalidObject)
	assert.ErrorIs(t, s.AddReflected(Reflected{Object: copyOf, Original: ship, Mirror: 1}), ErrInvalidObject)
	assert.ErrorIs(t, s.AddReflected(Reflected{Object: Object{Kind: Lit}, Original: ship}), ErrInvalidObject)

	require.NoError(t, s.AddReflected(Reflected{Object: copyOf, Original: ship}))
	assert.Len(t, s.ReflectedFor(0), 1)
	assert.Empty(t, s.ReflectedFor(1))

	s.ClearReflected()
	assert.Empty(t, s.Reflected())
}

func TestQueries(t *testing.T) {
	s := New(Limits{MaxMirrors: 1})
	ground := add(t, s, "ground", Deferred)
	snow := add(t, s, "snow", Snow)
	ship := add(t, s, "ship", Lit)
	mark := add(t, s, "mark", MirrorMark)
	blend := add(t, s, "blend", MirrorBlend)
	s.Object(ship).Reflectable = true
	s.Object(mark).Reflectable = true

	assert.True(t, s.IsDeferred(ground))
	assert.True(t, s.IsSnow(snow))
	assert.True(t, s.IsLit(ship))
	assert.True(t, s.IsMirrorMarker(mark))
	assert.True(t, s.IsMirrorMarker(blend))
	assert.False(t, s.IsLit(99))

	assert.Equal(t, []int{ground}, s.Deferred())
	assert.Equal(t, []int{snow, ship}, s.Forward())
	assert.Equal(t, []int{ship}, s.Reflectable())
}

func TestPipelineFor(t *testing.T) {
	depth := &pipelines.Descriptor{Key: pipelines.Depth("d.vert", "d.frag")}
	gbuf := &pipelines.Descriptor{Key: pipelines.GBuffer("g.vert", "g.frag")}
	o := &Object{Pipelines: []*pipelines.Descriptor{depth, gbuf}}

	assert.Same(t, depth, o.PipelineFor(pipelines.SubpassDepth))
	assert.Same(t, gbuf, o.PipelineFor(pipelines.SubpassGBuffer))
	assert.Nil(t, o.PipelineFor(pipelines.SubpassLighting))
}

type spinner struct {
	total time.Duration
}

func (s *spinner) Advance(since time.Duration) { s.total += since }

func (s *spinner) ModelMatrix() [16]float32 {
	return [16]float32{12: float32(s.total.Seconds())}
}

func TestAnimate(t *testing.T) {
	s := New(Limits{})
	sp := &spinner{}
	_, err := s.Add(&Object{Name: "ship", Kind: Lit, Placement: sp})
	require.NoError(t, err)
	add(t, s, "static", Standard)

	s.Animate(500 * time.Millisecond)
	s.Animate(500 * time.Millisecond)

	assert.InDelta(t, 1.0, s.Object(0).Model[12], 1e-6)
	assert.Equal(t, [16]float32{}, s.Object(1).Model)
}

func TestInstanceCount(t *testing.T) {
	o := &Object{}
	assert.Equal(t, uint32(1), o.InstanceCount())
	o.Instances = Instances{Buffer: "particles", Count: 256}
	assert.Equal(t, uint32(256), o.InstanceCount())
}
