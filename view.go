package ecr

import "iter"

// ViewSpec describes which archetypes a View should match: every required
// type/tag must be present, every excluded type/tag must be absent. Built
// with Required/Excluded, mirroring the teacher's query.go And/Not builder
// but collapsed to the single AND-of-required, AND-NOT-of-excluded shape
// spec.md §5 actually needs (no arbitrary OR trees).
//
// ViewSpec stores raw keys rather than a bound Signature on purpose: keys
// are handed to Required/Excluded/And before any Registry is in scope, and
// Signature values are only ever meaningful relative to the Registry whose
// signatureBits assigned their bit slots (see signature.go). Registry.View
// resolves these raw keys into Signatures bound to its own bits at the
// point it actually has a Registry to bind them to.
type ViewSpec struct {
	requiredTypes []TypeKey
	requiredTags  []TagKey
	excludedTypes []TypeKey
	excludedTags  []TagKey
}

// Required builds a ViewSpec matching archetypes carrying every given type
// and tag key.
func Required(keys ...any) ViewSpec {
	var spec ViewSpec
	spec.addKeys(keys, false)
	return spec
}

// Excluded returns a copy of spec additionally requiring that every given
// type/tag key be absent.
func (v ViewSpec) Excluded(keys ...any) ViewSpec {
	v.addKeys(keys, true)
	return v
}

// And returns a copy of spec additionally requiring every given type/tag key.
func (v ViewSpec) And(keys ...any) ViewSpec {
	v.addKeys(keys, false)
	return v
}

func (v *ViewSpec) addKeys(keys []any, excluded bool) {
	for _, k := range keys {
		switch key := k.(type) {
		case TypeKey:
			if excluded {
				v.excludedTypes = append(v.excludedTypes, key)
			} else {
				v.requiredTypes = append(v.requiredTypes, key)
			}
		case TagKey:
			if excluded {
				v.excludedTags = append(v.excludedTags, key)
			} else {
				v.requiredTags = append(v.requiredTags, key)
			}
		}
	}
}

// bind resolves spec's raw keys into required/excluded Signatures scoped to
// r's own signatureBits.
func (v ViewSpec) bind(r *Registry) (required, excluded Signature) {
	required, excluded = r.newSignature(), r.newSignature()
	for _, k := range v.requiredTypes {
		required = required.withType(k)
	}
	for _, k := range v.requiredTags {
		required = required.withTag(k)
	}
	for _, k := range v.excludedTypes {
		excluded = excluded.withType(k)
	}
	for _, k := range v.excludedTags {
		excluded = excluded.withTag(k)
	}
	return required, excluded
}

// View is a snapshot of the archetypes matching a ViewSpec at the moment it
// was built. Archetype membership is fixed for the View's lifetime (new
// archetypes created after the View was built never appear in it), matching
// spec.md §5's "archetype-list + size snapshot at begin".
type View struct {
	registry   *Registry
	archetypes []*Archetype
	sizes      []int // each archetype's size when the View was built
}

// View builds a View over every archetype currently matching spec.
func (r *Registry) View(spec ViewSpec) *View {
	required, excluded := spec.bind(r)

	r.dirMu.RLock()
	defer r.dirMu.RUnlock()
	v := &View{registry: r}
	for _, arch := range r.archetypeList {
		if arch.signature.ContainsAll(required) && arch.signature.ContainsNone(excluded) {
			v.archetypes = append(v.archetypes, arch)
			v.sizes = append(v.sizes, arch.Size())
		}
	}
	return v
}

// Size returns the total number of entities across every archetype the View
// matched, as of the moment it was built.
func (v *View) Size() int {
	total := 0
	for _, n := range v.sizes {
		total += n
	}
	return total
}

// Handles iterates every live handle in the View, coordinating with each
// archetype's deferred-erasure gap-filling protocol: the archetype is marked
// as under active iteration for the duration of the walk, so any erase made
// from within the loop body is deferred rather than physically compacting
// rows out from under the cursor.
func (v *View) Handles() iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		for _, arch := range v.archetypes {
			walkArchetype(v.registry, arch, func(row int) bool {
				arch.mu.RLock()
				h := arch.handles[row]
				arch.mu.RUnlock()
				if h == InvalidHandle {
					return true
				}
				return yield(h)
			})
		}
	}
}

// walkArchetype runs fn(row) for row in [0, size) as it stood when the walk
// began, under the archetype's iteration guard.
func walkArchetype(r *Registry, arch *Archetype, fn func(row int) bool) {
	arch.beginIteration()
	defer arch.endIteration(func(moved Handle, row int) {
		r.shardFor(moved).Reindex(moved, arch, row)
	})

	arch.mu.RLock()
	size := arch.size()
	arch.mu.RUnlock()

	for row := 0; row < size; row++ {
		if !fn(row) {
			return
		}
	}
}

// Iterate1 yields (handle, *T) for every entity in the View that actually
// carries T, silently skipping any matched archetype that doesn't (a
// ViewSpec built without requiring T) rather than panicking.
func Iterate1[T any](v *View) iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for _, arch := range v.archetypes {
			if !arch.has(TypeKeyOf[T]()) {
				continue
			}
			cont := true
			walkArchetype(v.registry, arch, func(row int) bool {
				arch.mu.RLock()
				h := arch.handles[row]
				arch.mu.RUnlock()
				if h == InvalidHandle {
					return true
				}
				cont = yield(h, getMut[T](arch, row))
				return cont
			})
			if !cont {
				return
			}
		}
	}
}

// Iterate2 calls fn for every entity carrying both component types in the
// View, stopping early if fn returns false. Range-over-func in Go only
// threads one or two yielded values (iter.Seq/iter.Seq2), so once a query
// needs two or three component pointers alongside the handle it switches
// from an iter.Seq to a plain early-exit callback, the same shape lazyecs's
// Query2/Query3/Query4 use with their Next/Get pairs.
func Iterate2[A, B any](v *View, fn func(Handle, *A, *B) bool) {
	keyA, keyB := TypeKeyOf[A](), TypeKeyOf[B]()
	for _, arch := range v.archetypes {
		if !arch.has(keyA) || !arch.has(keyB) {
			continue
		}
		cont := true
		walkArchetype(v.registry, arch, func(row int) bool {
			arch.mu.RLock()
			h := arch.handles[row]
			arch.mu.RUnlock()
			if h == InvalidHandle {
				return true
			}
			cont = fn(h, getMut[A](arch, row), getMut[B](arch, row))
			return cont
		})
		if !cont {
			return
		}
	}
}

// Iterate3 calls fn for every entity carrying all three component types in
// the View, stopping early if fn returns false.
func Iterate3[A, B, C any](v *View, fn func(Handle, *A, *B, *C) bool) {
	keyA, keyB, keyC := TypeKeyOf[A](), TypeKeyOf[B](), TypeKeyOf[C]()
	for _, arch := range v.archetypes {
		if !arch.has(keyA) || !arch.has(keyB) || !arch.has(keyC) {
			continue
		}
		cont := true
		walkArchetype(v.registry, arch, func(row int) bool {
			arch.mu.RLock()
			h := arch.handles[row]
			arch.mu.RUnlock()
			if h == InvalidHandle {
				return true
			}
			cont = fn(h, getMut[A](arch, row), getMut[B](arch, row), getMut[C](arch, row))
			return cont
		})
		if !cont {
			return
		}
	}
}
