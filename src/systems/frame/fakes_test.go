package frame

import (
	"errors"
	"fmt"
	"slices"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
)

type events struct {
	list []string
}

func (e *events) add(format string, args ...any) {
	e.list = append(e.list, fmt.Sprintf(format, args...))
}

func (e *events) reset() {
	e.list = nil
}

// mesh is a geometry covering a fixed set of pixels.
type mesh struct {
	name     string
	vertices uint32
	indices  uint32
	pixels   []int
}

func (m *mesh) VertexBuffer() gpu.Handle { return m }
func (m *mesh) VertexCount() uint32 { return m.vertices }

func (m *mesh) IndexBuffer() gpu.Handle {
	if m.indices == 0 {
		return nil
	}
	return "ib:" + m.name
}

func (m *mesh) IndexCount() uint32 { return m.indices }

type drawCall struct {
	subpass   int
	key       pipelines.Key
	sets      []gpu.Handle
	buffers   []gpu.Handle
	index     gpu.Handle
	ref       uint32
	count     uint32
	instances uint32
	indexed   bool
	model     [16]float32
	// shaded lists the pixels that received colour.
	shaded []int
	// marked lists the pixels whose stencil value was replaced.
	marked []int
}

// fakeRecorder keeps the bound state the way a command buffer does and
// rasterises draws against a simulated stencil buffer.
type fakeRecorder struct {
	name  string
	log   *events
	begun bool

	subpass  int
	inPass   bool
	image    int
	extent   gpu.Extent
	pipeline *pipelines.Key
	viewport bool
	scissor  bool
	ref      uint32
	sets     []gpu.Handle
	buffers  []gpu.Handle
	index    gpu.Handle
	model    *[16]float32

	stencil    map[int]uint32
	draws      []drawCall
	stencilOps int
	// violations collects binding-order mistakes.
	violations []string
}

func newRecorder(name string, log *events) *fakeRecorder {
	return &fakeRecorder{name: name, log: log}
}

func (r *fakeRecorder) violate(format string, args ...any) {
	r.violations = append(r.violations, fmt.Sprintf(format, args...))
}

func (r *fakeRecorder) Begin() error {
	r.log.add("record:%s", r.name)
	r.begun = true
	r.draws = nil
	r.stencilOps = 0
	r.violations = nil
	return nil
}

func (r *fakeRecorder) BeginRenderPass(image int, extent gpu.Extent) {
	if !r.begun {
		r.violate("render pass outside command buffer")
	}
	r.inPass = true
	r.subpass = 0
	r.image = image
	r.extent = extent
	r.stencil = map[int]uint32{}
}

func (r *fakeRecorder) NextSubpass() {
	r.subpass++
	r.pipeline = nil
}

func (r *fakeRecorder) EndRenderPass() {
	if r.subpass != int(pipelines.SubpassCount)-1 {
		r.violate("render pass ended in subpass %d", r.subpass)
	}
	r.inPass = false
}

func (r *fakeRecorder) End() error {
	if r.inPass {
		return errors.New("command buffer ended inside a render pass")
	}
	r.begun = false
	return nil
}

func (r *fakeRecorder) BindPipeline(p gpu.Handle) {
	r.pipeline = p.(*pipelines.Key)
	r.viewport, r.scissor = false, false
	r.sets, r.buffers, r.index, r.model = nil, nil, nil, nil
}

func (r *fakeRecorder) SetViewport(e gpu.Extent) {
	if r.pipeline == nil {
		r.violate("viewport before pipeline")
	}
	r.viewport = e == r.extent
}

func (r *fakeRecorder) SetScissor(e gpu.Extent) {
	r.scissor = e == r.extent
}

func (r *fakeRecorder) SetStencilReference(ref uint32) {
	r.stencilOps++
	r.ref = ref
}

func (r *fakeRecorder) BindDescriptorSets(_ gpu.Handle, sets ...gpu.Handle) {
	if !r.viewport || !r.scissor {
		r.violate("sets bound before viewport/scissor")
	}
	r.sets = sets
}

func (r *fakeRecorder) BindVertexBuffers(buffers ...gpu.Handle) {
	if r.sets == nil {
		r.violate("vertex buffers before sets")
	}
	r.buffers = buffers
}

func (r *fakeRecorder) BindIndexBuffer(b gpu.Handle) {
	if r.buffers == nil {
		r.violate("index buffer before vertex buffer")
	}
	r.index = b
}

func (r *fakeRecorder) PushConstants(_ gpu.Handle, model *[16]float32) {
	if r.buffers == nil {
		r.violate("push constants before vertex buffer")
	}
	r.model = model
}

func (r *fakeRecorder) Draw(count, instances uint32) {
	r.draw(count, instances, false)
}

func (r *fakeRecorder) DrawIndexed(count, instances uint32) {
	r.draw(count, instances, true)
}

func (r *fakeRecorder) draw(count, instances uint32, indexed bool) {
	if !r.inPass {
		r.violate("draw outside render pass")
		return
	}
	if r.pipeline == nil {
		r.violate("draw without pipeline")
		return
	}
	if int(r.pipeline.Subpass) != r.subpass {
		r.violate("%s pipeline drawn in subpass %d", r.pipeline.Subpass, r.subpass)
	}
	if !r.viewport || !r.scissor || r.sets == nil {
		r.violate("draw with incomplete state")
	}
	if r.pipeline.Input != pipelines.InputNone && r.model == nil {
		r.violate("mesh draw without model matrix")
	}
	d := drawCall{
		subpass:   r.subpass,
		key:       *r.pipeline,
		sets:      slices.Clone(r.sets),
		buffers:   slices.Clone(r.buffers),
		index:     r.index,
		ref:       r.ref,
		count:     count,
		instances: instances,
		indexed:   indexed,
	}
	if r.model != nil {
		d.model = *r.model
	}
	var pixels []int
	if len(r.buffers) > 0 {
		if m, ok := r.buffers[0].(*mesh); ok {
			pixels = m.pixels
		}
	}
	for _, px := range pixels {
		switch r.pipeline.Stencil {
		case pipelines.StencilWrite:
			r.stencil[px] = r.ref
			d.marked = append(d.marked, px)
			continue
		case pipelines.StencilTest:
			if r.stencil[px] != r.ref {
				continue
			}
		}
		if r.pipeline.Blend != pipelines.BlendNoColor {
			d.shaded = append(d.shaded, px)
		}
	}
	r.draws = append(r.draws, d)
}

func (r *fakeRecorder) inSubpass(s pipelines.Subpass) []drawCall {
	var out []drawCall
	for _, d := range r.draws {
		if d.subpass == int(s) {
			out = append(out, d)
		}
	}
	return out
}

type fakeFence struct {
	name     string
	log      *events
	signaled bool
}

func (f *fakeFence) Wait() error {
	f.log.add("wait:%s", f.name)
	if !f.signaled {
		return fmt.Errorf("%s would block forever", f.name)
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.log.add("reset:%s", f.name)
	f.signaled = false
	return nil
}

type fakeSurface struct {
	log          *events
	images       int
	next         int
	extent       gpu.Extent
	staleAcquire bool
	stalePresent bool
	presented    []int
}

func (s *fakeSurface) Acquire(signal gpu.Handle) (int, error) {
	if s.staleAcquire {
		s.log.add("acquire:stale")
		return -1, ErrStale
	}
	image := s.next
	s.next = (s.next + 1) % s.images
	s.log.add("acquire:%d:%v", image, signal)
	return image, nil
}

func (s *fakeSurface) Present(image int, wait gpu.Handle) error {
	s.log.add("present:%d:%v", image, wait)
	s.presented = append(s.presented, image)
	if s.stalePresent {
		return fmt.Errorf("queue present: %w", ErrStale)
	}
	return nil
}

func (s *fakeSurface) Extent() gpu.Extent {
	return s.extent
}

func (s *fakeSurface) InputSet(image int) gpu.Handle {
	return fmt.Sprintf("input@%d", image)
}

type fakeQueue struct {
	log *events
}

func (q *fakeQueue) Submit(rec gpu.Recorder, wait, signal gpu.Handle, fence gpu.Fence) error {
	q.log.add("submit:%s:%v:%v", rec.(*fakeRecorder).name, wait, signal)
	// the GPU finishes instantly
	fence.(*fakeFence).signaled = true
	return nil
}

type fakeFactory struct{}

func (fakeFactory) Create(key pipelines.Key) (gpu.Handle, gpu.Handle, error) {
	k := key
	return &k, &k, nil
}

func (fakeFactory) Destroy(gpu.Handle, gpu.Handle) {}

type fakeMapped[T any] struct {
	name   string
	log    *events
	writes []T
}

func (m *fakeMapped[T]) WriteBuffer(data []T) {
	m.log.add("write:%s", m.name)
	m.writes = append(m.writes, data...)
}

type fixedCamera struct{}

func (fixedCamera) Uniform() CameraUniform {
	return CameraUniform{Position: [4]float32{0, 1, -5, 1}}
}

type fakeDispatcher struct {
	log   *events
	fence *fakeFence
	ticks []float32
}

func (d *fakeDispatcher) Upload([]particles.Particle) (gpu.Handle, gpu.Handle, error) {
	return "particles:seed", "particles:current", nil
}

func (d *fakeDispatcher) Dispatch(dt float32, count uint32) error {
	d.log.add("dispatch:%d", count)
	d.ticks = append(d.ticks, dt)
	d.fence.signaled = true
	return nil
}

func (d *fakeDispatcher) Fence() gpu.Fence {
	return d.fence
}
