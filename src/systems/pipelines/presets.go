package pipelines

// Forward is an opaque forward-shaded pipeline in the lighting subpass.
func Forward(vert, frag string, layout Layout) Key {
	return Key{
		Vertex:     vert,
		Fragment:   frag,
		Subpass:    SubpassLighting,
		Blend:      BlendOpaque,
		DepthTest:  true,
		DepthWrite: true,
		FrontFace:  Clockwise,
		Input:      InputMesh,
		Layout:     layout,
	}
}

// Instanced is a forward pipeline reading per-instance data, used by the
// particle emitter.
func Instanced(vert, frag string, layout Layout) Key {
	k := Forward(vert, frag, layout)
	k.Input = InputMeshInstanced
	k.Blend = BlendAlpha
	k.DepthWrite = false
	return k
}

// Depth writes depth only, no colour.
func Depth(vert, frag string) Key {
	return Key{
		Vertex:     vert,
		Fragment:   frag,
		Subpass:    SubpassDepth,
		Blend:      BlendNoColor,
		DepthTest:  true,
		DepthWrite: true,
		FrontFace:  Clockwise,
		Input:      InputMesh,
		Layout:     LayoutNormal,
	}
}

// GBuffer tests against the depth written by the depth subpass without
// writing it again.
func GBuffer(vert, frag string) Key {
	return Key{
		Vertex:     vert,
		Fragment:   frag,
		Subpass:    SubpassGBuffer,
		Blend:      BlendOpaque,
		DepthTest:  true,
		DepthWrite: false,
		FrontFace:  Clockwise,
		Input:      InputMesh,
		Layout:     LayoutNormal,
	}
}

// LightingQuad resolves the G-buffer into the swapchain image. It has no
// vertex input, the full-screen quad is generated in the vertex shader.
func LightingQuad(vert, frag string) Key {
	return Key{
		Vertex:    vert,
		Fragment:  frag,
		Subpass:   SubpassLighting,
		Blend:     BlendOpaque,
		FrontFace: Clockwise,
		Input:     InputNone,
		Layout:    LayoutLighting,
	}
}

func MirrorMark(vert, frag string) Key {
	return Key{
		Vertex:     vert,
		Fragment:   frag,
		Subpass:    SubpassLighting,
		Stencil:    StencilWrite,
		Blend:      BlendNoColor,
		DepthTest:  true,
		DepthWrite: false,
		FrontFace:  Clockwise,
		Input:      InputMesh,
		Layout:     LayoutNormal,
	}
}

// MirrorReflect derives the reflected variant of an object's forward key:
// stencil equality test, depth test and write, reversed winding.
func MirrorReflect(original Key) Key {
	k := original
	k.Subpass = SubpassLighting
	k.Stencil = StencilTest
	k.DepthTest = true
	k.DepthWrite = true
	k.FrontFace = original.FrontFace.Reversed()
	return k
}

func MirrorBlend(vert, frag string) Key {
	return Key{
		Vertex:     vert,
		Fragment:   frag,
		Subpass:    SubpassLighting,
		Stencil:    StencilDisabled,
		Blend:      BlendAlpha,
		DepthTest:  true,
		DepthWrite: false,
		FrontFace:  Clockwise,
		Input:      InputMesh,
		Layout:     LayoutNormal,
	}
}
