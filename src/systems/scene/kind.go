package scene

import "fmt"

// Kind classifies an object. Each kind decides the pass it is drawn in and
// the binding-set category it reads from.
type Kind int

const (
	Standard Kind = iota
	Snow
	Lit
	MirrorMark
	MirrorBlend
	MirrorReflected
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Standard:
		return "standard"
	case Snow:
		return "snow"
	case Lit:
		return "lit"
	case MirrorMark:
		return "mirror-mark"
	case MirrorBlend:
		return "mirror-blend"
	case MirrorReflected:
		return "mirror-reflected"
	case Deferred:
		return "deferred"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Category selects which per-frame slice of binding sets an object uses.
type Category int

const (
	CategoryNone Category = iota
	CategoryNormal
	CategorySnow
	CategoryLit

	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryNormal:
		return "normal"
	case CategorySnow:
		return "snow"
	case CategoryLit:
		return "lit"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Category reports the binding-set category of the kind. Reflected copies
// have none of their own, they borrow the original's set.
func (k Kind) Category() Category {
	switch k {
	case Snow:
		return CategorySnow
	case Lit:
		return CategoryLit
	case MirrorReflected:
		return CategoryNone
	case Standard, MirrorMark, MirrorBlend, Deferred:
		return CategoryNormal
	}
	return CategoryNone
}

func (k Kind) valid() bool {
	return k >= Standard && k <= Deferred
}
