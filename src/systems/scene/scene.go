package scene

import (
	"errors"
	"fmt"
	"time"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
)

var (
	ErrCapacityExceeded = errors.New("scene capacity exceeded")
	ErrFinalized        = errors.New("scene is finalized")
	ErrNotFinalized     = errors.New("scene is not finalized")
	ErrInvalidObject    = errors.New("invalid scene object")
)

// Geometry is a loaded mesh. A nil vertex buffer or zero vertex count makes
// the object undrawable, it still keeps its binding-set slot.
type Geometry interface {
	VertexBuffer() gpu.Handle
	VertexCount() uint32
	IndexBuffer() gpu.Handle
	IndexCount() uint32
}

// Instances is an optional per-instance vertex stream.
type Instances struct {
	Buffer gpu.Handle
	Count  uint32
}

type Texture struct {
	View    gpu.Handle
	Sampler gpu.Handle
}

// Animator moves an object every frame.
type Animator interface {
	Advance(since time.Duration)
	ModelMatrix() [16]float32
}

type Object struct {
	Name      string
	Kind      Kind
	Geometry  Geometry
	Instances Instances
	Texture   Texture
	// Pipelines holds at most one descriptor per subpass.
	Pipelines   []*pipelines.Descriptor
	Model       [16]float32
	Reflectable bool
	Placement   Animator
}

func (o *Object) PipelineFor(subpass pipelines.Subpass) *pipelines.Descriptor {
	for _, p := range o.Pipelines {
		if p != nil && p.Key.Subpass == subpass {
			return p
		}
	}
	return nil
}

// Drawable reports whether the object has geometry to draw.
func (o *Object) Drawable() bool {
	return o.Geometry != nil && o.Geometry.VertexBuffer() != nil && o.Geometry.VertexCount() > 0
}

func (o *Object) InstanceCount() uint32 {
	if o.Instances.Buffer == nil || o.Instances.Count == 0 {
		return 1
	}
	return o.Instances.Count
}

type Light struct {
	Position  [3]float32
	Color     [3]float32
	Intensity float32
}

// MirrorPair points at the two scene objects drawing one mirror: the
// stencil marker and the translucent pane composited afterwards.
type MirrorPair struct {
	Mark  int
	Blend int
}

// Reflected is a mirrored copy of a scene object. Original indexes the
// scene object whose binding set the copy borrows.
type Reflected struct {
	Object   Object
	Original int
	Mirror   int
}

// Slot is an object's position within its category's binding sets.
type Slot struct {
	Category Category
	Index    int
}

type Limits struct {
	MaxLights  int
	MaxMirrors int
}

type Scene struct {
	limits    Limits
	objects   []*Object
	lights    []Light
	mirrors   []MirrorPair
	reflected []Reflected

	finalized bool
	slots     []Slot
	counts    [categoryCount]int
}

func New(limits Limits) *Scene {
	return &Scene{limits: limits}
}

func (s *Scene) Limits() Limits {
	return s.limits
}

// Add appends an object and returns its index.
func (s *Scene) Add(o *Object) (int, error) {
	if s.finalized {
		return -1, fmt.Errorf("add %q: %w", o.Name, ErrFinalized)
	}
	if !o.Kind.valid() {
		return -1, fmt.Errorf("%w: %q has unknown kind %d", ErrInvalidObject, o.Name, int(o.Kind))
	}
	if o.Kind == MirrorReflected {
		return -1, fmt.Errorf("%w: reflected copies are added with AddReflected", ErrInvalidObject)
	}
	s.objects = append(s.objects, o)
	return len(s.objects) - 1, nil
}

func (s *Scene) AddLight(l Light) error {
	if len(s.lights) >= s.limits.MaxLights {
		return fmt.Errorf("%w: at most %d lights", ErrCapacityExceeded, s.limits.MaxLights)
	}
	s.lights = append(s.lights, l)
	return nil
}

// AddMirrorPair registers the marker and pane objects of a mirror and
// returns the mirror index.
func (s *Scene) AddMirrorPair(mark, blend int) (int, error) {
	if len(s.mirrors) >= s.limits.MaxMirrors {
		return -1, fmt.Errorf("%w: at most %d mirrors", ErrCapacityExceeded, s.limits.MaxMirrors)
	}
	if !s.valid(mark) || s.objects[mark].Kind != MirrorMark {
		return -1, fmt.Errorf("%w: object %d is not a mirror marker", ErrInvalidObject, mark)
	}
	if !s.valid(blend) || s.objects[blend].Kind != MirrorBlend {
		return -1, fmt.Errorf("%w: object %d is not a mirror pane", ErrInvalidObject, blend)
	}
	s.mirrors = append(s.mirrors, MirrorPair{Mark: mark, Blend: blend})
	return len(s.mirrors) - 1, nil
}

func (s *Scene) AddReflected(r Reflected) error {
	if r.Object.Kind != MirrorReflected {
		return fmt.Errorf("%w: reflected copy has kind %s", ErrInvalidObject, r.Object.Kind)
	}
	if !s.valid(r.Original) {
		return fmt.Errorf("%w: original %d out of range [0, %d)", ErrInvalidObject, r.Original, len(s.objects))
	}
	if r.Mirror < 0 || r.Mirror >= len(s.mirrors) {
		return fmt.Errorf("%w: mirror %d out of range [0, %d)", ErrInvalidObject, r.Mirror, len(s.mirrors))
	}
	s.reflected = append(s.reflected, r)
	return nil
}

// ClearReflected drops every reflected copy so they can be rebuilt.
func (s *Scene) ClearReflected() {
	s.reflected = s.reflected[:0]
}

// Finalize freezes the object list and assigns every object its
// category-local slot, counting in scene order.
func (s *Scene) Finalize() {
	if s.finalized {
		return
	}
	s.counts = [categoryCount]int{}
	s.slots = make([]Slot, len(s.objects))
	for i, o := range s.objects {
		c := o.Kind.Category()
		s.slots[i] = Slot{Category: c, Index: s.counts[c]}
		s.counts[c]++
	}
	s.finalized = true
}

// Invalidate drops the slot mapping and reopens the scene for Add.
func (s *Scene) Invalidate() {
	s.finalized = false
	s.slots = nil
	s.counts = [categoryCount]int{}
}

func (s *Scene) Finalized() bool {
	return s.finalized
}

func (s *Scene) Slot(i int) (Slot, error) {
	if !s.finalized {
		return Slot{}, ErrNotFinalized
	}
	if i < 0 || i >= len(s.slots) {
		return Slot{}, fmt.Errorf("%w: object %d out of range [0, %d)", ErrInvalidObject, i, len(s.slots))
	}
	return s.slots[i], nil
}

// CategoryCount is the number of binding sets the category needs per frame.
func (s *Scene) CategoryCount(c Category) int {
	if c < 0 || c >= categoryCount {
		return 0
	}
	return s.counts[c]
}

func (s *Scene) Len() int {
	return len(s.objects)
}

func (s *Scene) Object(i int) *Object {
	if !s.valid(i) {
		return nil
	}
	return s.objects[i]
}

func (s *Scene) valid(i int) bool {
	return i >= 0 && i < len(s.objects)
}

func (s *Scene) is(i int, k Kind) bool {
	return s.valid(i) && s.objects[i].Kind == k
}

func (s *Scene) IsSnow(i int) bool { return s.is(i, Snow) }

func (s *Scene) IsLit(i int) bool { return s.is(i, Lit) }

func (s *Scene) IsDeferred(i int) bool { return s.is(i, Deferred) }

func (s *Scene) IsMirrorMarker(i int) bool {
	return s.is(i, MirrorMark) || s.is(i, MirrorBlend)
}

// Deferred lists deferred objects in scene order.
func (s *Scene) Deferred() []int {
	var out []int
	for i := range s.objects {
		if s.IsDeferred(i) {
			out = append(out, i)
		}
	}
	return out
}

// Forward lists objects drawn with forward shading, excluding deferred
// objects and mirror markers, in scene order.
func (s *Scene) Forward() []int {
	var out []int
	for i := range s.objects {
		if s.IsDeferred(i) || s.IsMirrorMarker(i) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (s *Scene) Lights() []Light {
	return s.lights
}

func (s *Scene) Mirrors() []MirrorPair {
	return s.mirrors
}

func (s *Scene) Reflected() []Reflected {
	return s.reflected
}

// ReflectedFor returns the reflected copies belonging to one mirror, in
// insertion order.
func (s *Scene) ReflectedFor(mirror int) []*Reflected {
	var out []*Reflected
	for i := range s.reflected {
		if s.reflected[i].Mirror == mirror {
			out = append(out, &s.reflected[i])
		}
	}
	return out
}

// Reflectable lists objects eligible for mirrored copies.
func (s *Scene) Reflectable() []int {
	var out []int
	for i, o := range s.objects {
		if o.Reflectable && !s.IsMirrorMarker(i) {
			out = append(out, i)
		}
	}
	return out
}

// Animate advances every animated object and refreshes its model matrix.
func (s *Scene) Animate(since time.Duration) {
	for _, o := range s.objects {
		if o.Placement == nil {
			continue
		}
		o.Placement.Advance(since)
		o.Model = o.Placement.ModelMatrix()
	}
}
