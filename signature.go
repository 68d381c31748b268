package ecr

import (
	"sort"
	"sync"

	"github.com/TheBitDrifter/mask"
	"github.com/cespare/xxhash/v2"
)

// signatureBits assigns every TypeKey/TagKey a stable bit slot the first time
// it's seen, the way the teacher's schema.RowIndexFor assigns a table row
// index to a Component on first registration (storage.go's
// NewOrExistingArchetype: "sto.schema.Register(component); bit :=
// sto.schema.RowIndexFor(component)") — scoped one-per-instance, exactly as
// the teacher scopes a table.Schema to its owning storage rather than to the
// package. Signature itself only ever deals in bits, never in raw keys, so
// archetypes stay comparable as mask.Mask256 values.
//
// Each Registry owns exactly one signatureBits (see Registry.bits /
// Registry.newSignature), so two independent registries never share bit
// slots: spec.md's "no process-wide global state" note and its 256-slot
// Mask256 ceiling both apply per Registry, not per process.
type signatureBits struct {
	mu       sync.RWMutex
	bitOf    map[uint64]uint32
	keyOfBit []uint64
}

func newSignatureBits() *signatureBits {
	return &signatureBits{bitOf: make(map[uint64]uint32)}
}

func (b *signatureBits) slot(key uint64) uint32 {
	b.mu.RLock()
	if bit, ok := b.bitOf[key]; ok {
		b.mu.RUnlock()
		return bit
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if bit, ok := b.bitOf[key]; ok {
		return bit
	}
	bit := uint32(len(b.keyOfBit))
	b.bitOf[key] = bit
	b.keyOfBit = append(b.keyOfBit, key)
	return bit
}

func (b *signatureBits) keyForBit(bit uint32) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.keyOfBit[bit]
}

// Signature is an insertion-order-independent description of the component
// types and tags an archetype carries, per spec.md §3. Equality and hashing
// never depend on the order types were added in.
//
// reg points back at the owning Registry's signatureBits, the table that
// resolves bit positions to raw keys. It travels with the value through
// every derived Signature (withType, Union, ...), so a Signature is only
// ever meaningful relative to the Registry that produced it — comparing or
// unioning Signatures from two different registries is a programmer error,
// not something this type tries to guard against at runtime.
type Signature struct {
	bits mask.Mask256
	reg  *signatureBits
}

func newSignature(reg *signatureBits) Signature {
	return Signature{reg: reg}
}

func (s Signature) withType(key TypeKey) Signature {
	s.bits.Mark(s.reg.slot(uint64(key) | typeTagDiscriminant))
	return s
}

func (s Signature) withTag(key TagKey) Signature {
	s.bits.Mark(s.reg.slot(uint64(key)))
	return s
}

func (s Signature) withoutType(key TypeKey) Signature {
	s.bits.Unmark(s.reg.slot(uint64(key) | typeTagDiscriminant))
	return s
}

func (s Signature) withoutTag(key TagKey) Signature {
	s.bits.Unmark(s.reg.slot(uint64(key)))
	return s
}

// typeTagDiscriminant keeps a TypeKey and a numerically equal TagKey from
// colliding on the same bit slot; it has no meaning beyond that.
const typeTagDiscriminant = uint64(1) << 63

func (s Signature) hasType(key TypeKey) bool {
	return s.bits.Contains(s.reg.slot(uint64(key) | typeTagDiscriminant))
}

func (s Signature) hasTag(key TagKey) bool {
	return s.bits.Contains(s.reg.slot(uint64(key)))
}

// Union returns a signature carrying every bit set in either s or other.
// Both must belong to the same Registry.
func (s Signature) Union(other Signature) Signature {
	out := s
	other.ForEachTypeKey(func(k TypeKey) { out = out.withType(k) })
	other.ForEachTagKey(func(k TagKey) { out = out.withTag(k) })
	return out
}

// ContainsAll reports whether s carries every bit set in other.
func (s Signature) ContainsAll(other Signature) bool {
	return s.bits.ContainsAll(other.bits)
}

// ContainsAny reports whether s carries at least one bit set in other.
func (s Signature) ContainsAny(other Signature) bool {
	return s.bits.ContainsAny(other.bits)
}

// ContainsNone reports whether s shares no bit with other.
func (s Signature) ContainsNone(other Signature) bool {
	return s.bits.ContainsNone(other.bits)
}

// Equal reports exact signature equality, used as the tie-breaker when two
// distinct signatures collide on Hash.
func (s Signature) Equal(other Signature) bool {
	return s.bits == other.bits
}

func (s Signature) IsEmpty() bool {
	return s.bits.IsEmpty()
}

// Hash returns a reproducible 64-bit digest of the signature's member keys,
// independent of insertion order. Two archetypes with the same component/tag
// set always hash equal; Registry falls back to Signature.Equal on collision
// (spec.md §3: "a reproducible hash of this set... with exact-set comparison
// as a fallback").
func (s Signature) Hash() uint64 {
	keys := s.sortedKeys()
	h := xxhash.New()
	buf := make([]byte, 8)
	for _, k := range keys {
		for i := 0; i < 8; i++ {
			buf[i] = byte(k >> (8 * i))
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func (s Signature) sortedKeys() []uint64 {
	var keys []uint64
	for bit := uint32(0); bit < 256; bit++ {
		if !s.bits.Contains(bit) {
			continue
		}
		keys = append(keys, s.reg.keyForBit(bit))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ForEachTypeKey calls fn for every component type key present in s.
func (s Signature) ForEachTypeKey(fn func(TypeKey)) {
	for bit := uint32(0); bit < 256; bit++ {
		if !s.bits.Contains(bit) {
			continue
		}
		key := s.reg.keyForBit(bit)
		if key&typeTagDiscriminant != 0 {
			fn(TypeKey(key &^ typeTagDiscriminant))
		}
	}
}

// ForEachTagKey calls fn for every tag key present in s.
func (s Signature) ForEachTagKey(fn func(TagKey)) {
	for bit := uint32(0); bit < 256; bit++ {
		if !s.bits.Contains(bit) {
			continue
		}
		key := s.reg.keyForBit(bit)
		if key&typeTagDiscriminant == 0 {
			fn(TagKey(key))
		}
	}
}
