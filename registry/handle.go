package registry

import "github.com/terramodulus/ferricia"

// Handle is an opaque, generation-checked reference to a native
// resource. It packs kind, generation and slot index into one uint64 so
// it crosses the host boundary as a plain integer:
//
//	bits 56..63  subsystem kind
//	bits 32..55  generation (24 bits)
//	bits  0..31  slot index
//
// Handle 0 is reserved and always invalid; generations start at 1 so a
// live handle can never be zero.
type Handle uint64

const (
	genBits = 24
	genMask = 1<<genBits - 1
)

// Pack combines kind, generation and index into a Handle.
func Pack(kind ferricia.Subsystem, gen uint32, index uint32) Handle {
	return Handle(uint64(kind)<<56 | uint64(gen&genMask)<<32 | uint64(index))
}

// Kind returns the subsystem tag encoded in h.
func (h Handle) Kind() ferricia.Subsystem {
	return ferricia.Subsystem(h >> 56)
}

// Generation returns the generation encoded in h.
func (h Handle) Generation() uint32 {
	return uint32(h>>32) & genMask
}

// Index returns the slot index encoded in h.
func (h Handle) Index() uint32 {
	return uint32(h)
}

// Valid reports whether h is structurally valid: a known kind and a
// non-zero generation. It says nothing about whether the resource is
// still alive; only Resolve can.
func (h Handle) Valid() bool {
	return h.Kind().Valid() && h.Generation() != 0
}
