package frame

import (
	"fmt"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/mirror"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/scene"
)

// quadVertices is the vertex count of the full-screen lighting quad, whose
// corners are generated in the vertex shader.
const quadVertices = 6

type Stats struct {
	Draws   int
	Skipped int
}

type recording struct {
	rec     gpu.Recorder
	sets    *Sets
	scene   *scene.Scene
	extent  gpu.Extent
	subpass pipelines.Subpass
	stats   Stats
}

// draw is one draw call: obj drawn with model, reading the binding set of
// the scene object at owner.
type draw struct {
	obj     *scene.Object
	owner   int
	model   *[16]float32
	stencil pipelines.StencilMode
	ref     uint32
}

func (o *Orchestrator) record(slot *Slot, image int) (Stats, error) {
	r := slot.Recorder
	if err := r.Begin(); err != nil {
		return Stats{}, fmt.Errorf("begin command buffer: %w", err)
	}

	rc := &recording{
		rec:     r,
		sets:    &slot.Sets,
		scene:   o.scene,
		extent:  o.surface.Extent(),
		subpass: pipelines.SubpassDepth,
	}
	r.BeginRenderPass(image, rc.extent)

	deferred := o.scene.Deferred()
	for _, i := range deferred {
		rc.object(i)
	}

	r.NextSubpass()
	rc.subpass = pipelines.SubpassGBuffer
	for _, i := range deferred {
		rc.object(i)
	}

	r.NextSubpass()
	rc.subpass = pipelines.SubpassLighting
	if o.lighting != nil {
		rc.lightingQuad(o.lighting, slot.Sets.Lighting, o.surface.InputSet(image))
	}
	for _, i := range o.scene.Forward() {
		rc.object(i)
	}
	for m, pair := range o.scene.Mirrors() {
		rc.mirror(m, pair)
	}

	r.EndRenderPass()
	if err := r.End(); err != nil {
		return rc.stats, fmt.Errorf("end command buffer: %w", err)
	}
	return rc.stats, nil
}

func (rc *recording) object(i int) {
	obj := rc.scene.Object(i)
	rc.draw(draw{obj: obj, owner: i, model: &obj.Model})
}

// mirror records the mark, reflect and blend passes of one mirror.
func (rc *recording) mirror(m int, pair scene.MirrorPair) {
	ref := mirror.StencilReference(m)

	mark := rc.scene.Object(pair.Mark)
	if mark == nil {
		rc.skip(fmt.Sprintf("mirror %d mark", m), pair.Mark, "mark object out of range")
		return
	}
	if !rc.draw(draw{obj: mark, owner: pair.Mark, model: &mark.Model, stencil: pipelines.StencilWrite, ref: ref}) {
		// without a mark nothing confines the reflections
		return
	}

	for _, r := range rc.scene.ReflectedFor(m) {
		if rc.scene.Object(r.Original) == nil {
			rc.skip(r.Object.Name, r.Original, "reflected back-reference out of range")
			continue
		}
		rc.draw(draw{obj: &r.Object, owner: r.Original, model: &r.Object.Model, stencil: pipelines.StencilTest, ref: ref})
	}

	blend := rc.scene.Object(pair.Blend)
	if blend == nil {
		rc.skip(fmt.Sprintf("mirror %d pane", m), pair.Blend, "blend object out of range")
		return
	}
	rc.draw(draw{obj: blend, owner: pair.Blend, model: &blend.Model, stencil: pipelines.StencilDisabled})
}

func (rc *recording) lightingQuad(p *pipelines.Descriptor, lighting, input gpu.Handle) {
	if lighting == nil || input == nil {
		rc.skip("lighting quad", -1, "missing lighting or input attachment set")
		return
	}
	rc.rec.BindPipeline(p.Pipeline)
	rc.rec.SetViewport(rc.extent)
	rc.rec.SetScissor(rc.extent)
	rc.rec.BindDescriptorSets(p.Layout, lighting, input)
	rc.rec.Draw(quadVertices, 1)
	rc.stats.Draws++
}

// draw binds and draws one object. It returns false when the draw was
// skipped.
func (rc *recording) draw(d draw) bool {
	obj := d.obj
	p := obj.PipelineFor(rc.subpass)
	if p == nil {
		rc.skip(obj.Name, d.owner, fmt.Sprintf("no pipeline for %s subpass", rc.subpass))
		return false
	}
	if p.Key.Stencil != d.stencil {
		rc.skip(obj.Name, d.owner, fmt.Sprintf("stencil mode %d, want %d", p.Key.Stencil, d.stencil))
		return false
	}
	if !obj.Drawable() {
		logging.Logger().Debug("draw without geometry", "object", obj.Name, "index", d.owner)
		return false
	}

	slot, err := rc.scene.Slot(d.owner)
	if err != nil {
		rc.skip(obj.Name, d.owner, err.Error())
		return false
	}
	sets := rc.sets.For(slot.Category)
	if slot.Index < 0 || slot.Index >= len(sets) || sets[slot.Index] == nil {
		logging.Logger().Warn("draw skipped",
			"object", obj.Name,
			"index", d.owner,
			"category", slot.Category.String(),
			"slot", slot.Index,
			"sets", len(sets),
		)
		rc.stats.Skipped++
		return false
	}

	instances := uint32(1)
	var instanceBuffer gpu.Handle
	if p.Key.Input == pipelines.InputMeshInstanced {
		if obj.Instances.Buffer == nil {
			rc.skip(obj.Name, d.owner, "instanced pipeline without instance buffer")
			return false
		}
		instanceBuffer = obj.Instances.Buffer
		instances = obj.InstanceCount()
	}

	rc.rec.BindPipeline(p.Pipeline)
	rc.rec.SetViewport(rc.extent)
	rc.rec.SetScissor(rc.extent)
	if p.Key.Stencil != pipelines.StencilDisabled {
		rc.rec.SetStencilReference(d.ref)
	}
	rc.rec.BindDescriptorSets(p.Layout, sets[slot.Index])

	geometry := obj.Geometry
	if instanceBuffer != nil {
		rc.rec.BindVertexBuffers(geometry.VertexBuffer(), instanceBuffer)
	} else {
		rc.rec.BindVertexBuffers(geometry.VertexBuffer())
	}
	indexed := geometry.IndexBuffer() != nil && geometry.IndexCount() > 0
	if indexed {
		rc.rec.BindIndexBuffer(geometry.IndexBuffer())
	}
	rc.rec.PushConstants(p.Layout, d.model)
	if indexed {
		rc.rec.DrawIndexed(geometry.IndexCount(), instances)
	} else {
		rc.rec.Draw(geometry.VertexCount(), instances)
	}
	rc.stats.Draws++
	return true
}

func (rc *recording) skip(name string, index int, reason string) {
	logging.Logger().Warn("draw skipped", "object", name, "index", index, "subpass", rc.subpass.String(), "reason", reason)
	rc.stats.Skipped++
}
