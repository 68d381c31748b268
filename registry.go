package ecr

import (
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registry is the root object of an entity-component store: it owns every
// archetype, every slot map shard, and the construction-time Config that
// shaped them. Nothing about a Registry is package-level state — a process
// may construct as many as it likes, each fully independent, matching
// spec.md's "no process-wide global state" design note.
//
// Locks: the directory lock (dirMu) is taken before any archetype lock.
// Slot map shard locks are leaf locks: each SlotMap method takes only its
// own shard's lock and releases it before returning, and they are taken
// both outside and inside archetype locks (an erase reindexes the moved
// handle's slot while holding the archetype lock). A migration touching two
// archetypes always locks them in ascending pointer order to avoid
// deadlocking against a concurrent migration going the other way.
type Registry struct {
	cfg   Config
	codec handleCodec

	dirMu         sync.RWMutex
	byHash        map[uint64][]*Archetype
	archetypeList []*Archetype
	nextArchID    atomic.Uint32

	shards       []*SlotMap
	shardCounter atomic.Uint64

	creation singleflight.Group
	opQueue  operationQueue

	bits  *signatureBits
	names *NameRegistry
	log   *zap.Logger
}

// NewRegistry constructs a Registry from the given options, defaulting to a
// single-shard, sequential configuration.
func NewRegistry(opts ...Option) *Registry {
	cfg := resolveConfig(opts...)
	codec := newHandleCodec(cfg.indexBits(), cfg.VersionBits, cfg.storageBits())

	r := &Registry{
		cfg:    cfg,
		codec:  codec,
		byHash: make(map[uint64][]*Archetype),
		bits:   newSignatureBits(),
		names:  newNameRegistry(),
		log:    zap.NewNop(),
	}
	r.shards = make([]*SlotMap, cfg.SlotMapShards)
	for i := range r.shards {
		r.shards[i] = newSlotMap(uint8(i), codec)
	}
	return r
}

// WithLogger attaches a structured logger for diagnostic events. The only
// event logged is archetype creation, at Debug level. A Registry built without this
// option logs nothing, matching the teacher's "optional observability, never
// required" posture.
func (r *Registry) WithLogger(log *zap.Logger) *Registry {
	if log != nil {
		r.log = log
	}
	return r
}

func (r *Registry) pickShard() *SlotMap {
	n := uint64(len(r.shards))
	idx := r.shardCounter.Add(1) % n
	return r.shards[idx]
}

func (r *Registry) shardFor(h Handle) *SlotMap {
	idx := int(r.codec.storage(h))
	if idx >= len(r.shards) {
		// No shard owns this storage index; an empty slot map reports h dead.
		return newSlotMap(uint8(idx), r.codec)
	}
	return r.shards[idx]
}

// newSignature returns an empty Signature bound to this Registry's own
// bit-slot table. Signatures from different Registry instances are never
// compared or combined with each other — each Registry owns its bit space
// independently, matching spec.md's "no process-wide global state" note.
func (r *Registry) newSignature() Signature {
	return newSignature(r.bits)
}

// archetypeKey renders a Signature into a singleflight/exact-match lookup
// key. Collisions on Hash fall back to the exact Equal scan inside
// getOrCreateArchetype, per spec.md §3.
func archetypeKey(sig Signature) uint64 {
	return sig.Hash()
}

func (r *Registry) findArchetype(sig Signature) *Archetype {
	r.dirMu.RLock()
	defer r.dirMu.RUnlock()
	for _, arch := range r.byHash[archetypeKey(sig)] {
		if arch.signature.Equal(sig) {
			return arch
		}
	}
	return nil
}

// getOrCreateArchetype returns the archetype for sig, creating it if this is
// the first time the Registry has seen this exact signature. Concurrent
// callers racing to create the same new signature are deduplicated through
// singleflight so only one archetype is ever built for it.
func (r *Registry) getOrCreateArchetype(sig Signature) *Archetype {
	if arch := r.findArchetype(sig); arch != nil {
		return arch
	}

	key := strconv.FormatUint(archetypeKey(sig), 36)
	v, _, _ := r.creation.Do(key, func() (any, error) {
		if arch := r.findArchetype(sig); arch != nil {
			return arch, nil
		}
		r.dirMu.Lock()
		defer r.dirMu.Unlock()
		for _, arch := range r.byHash[archetypeKey(sig)] {
			if arch.signature.Equal(sig) {
				return arch, nil
			}
		}
		id := archetypeID(r.nextArchID.Add(1))
		arch := newArchetype(id, sig, int(r.cfg.SegmentBits))
		r.byHash[archetypeKey(sig)] = append(r.byHash[archetypeKey(sig)], arch)
		r.archetypeList = append(r.archetypeList, arch)
		r.log.Debug("archetype created", zap.Uint32("id", uint32(id)))
		return arch, nil
	})
	return v.(*Archetype)
}

// Insert creates a new entity carrying the given component values (via
// reflection, matching the teacher's entity.go reflect.TypeOf(value) idiom)
// and returns its handle.
func (r *Registry) Insert(values ...any) (Handle, error) {
	return r.InsertWithTags(nil, values...)
}

// InsertWithTags creates a new entity carrying both the given tags and
// component values.
func (r *Registry) InsertWithTags(tags []TagKey, values ...any) (Handle, error) {
	sig := r.newSignature()
	keys := make([]TypeKey, len(values))
	for i, v := range values {
		key := registerComponentValue(v)
		keys[i] = key
		sig = sig.withType(key)
	}
	for _, t := range tags {
		sig = sig.withTag(t)
	}

	arch := r.getOrCreateArchetype(sig)
	row := arch.insert(InvalidHandle)

	shard := r.pickShard()
	h, err := shard.Insert(arch, row)
	if err != nil {
		arch.erase(row, nil)
		return InvalidHandle, err
	}
	arch.mu.Lock()
	arch.handles[row] = h
	arch.mu.Unlock()

	for i, v := range values {
		setColumnValue(arch, keys[i], row, v)
	}
	return h, nil
}

// setColumnValue writes v (an any holding a concrete component value) into
// arch's column for key at row, going through the reflection-backed
// dynamicColumn path.
func setColumnValue(arch *Archetype, key TypeKey, row int, v any) {
	arch.mu.Lock()
	defer arch.mu.Unlock()
	col := arch.ensureColumn(key)
	dyn, ok := col.(*dynamicColumn)
	if !ok {
		fatal(SignatureConflictError{Type: key})
	}
	// A column created fresh by ensureColumn starts at length 0. insert()
	// only pads columns that already existed when the row was appended, so
	// a column touched for the first time here may still be short of row;
	// pad it up to row before writing the real value.
	for dyn.Len() <= row {
		dyn.PushBackDefault()
	}
	dyn.ValueAt(row).Set(reflectValueOf(v))
}

// Exists reports whether h currently refers to a live entity.
func (r *Registry) Exists(h Handle) bool {
	if !h.IsValid() {
		return false
	}
	return r.shardFor(h).Exists(h)
}

// EraseEntity removes an entity outright, releasing its handle back to the
// free list of its owning slot map shard.
func (r *Registry) EraseEntity(h Handle) error {
	shard := r.shardFor(h)
	arch, row, ok := shard.Lookup(h)
	if !ok {
		return DeadHandleError{Handle: h}
	}
	if err := shard.Erase(h); err != nil {
		return err
	}
	arch.erase(row, func(moved Handle, newRow int) {
		r.shardFor(moved).Reindex(moved, arch, newRow)
	})
	return nil
}

// Size returns the total number of live entities across every shard.
func (r *Registry) Size() int {
	total := 0
	for _, s := range r.shards {
		total += s.Size()
	}
	return total
}

// ArchetypeCount returns the number of distinct archetypes the Registry has
// ever created (archetypes are never removed once created, even when they
// become empty, matching the teacher's append-only archetypes slice).
func (r *Registry) ArchetypeCount() int {
	r.dirMu.RLock()
	defer r.dirMu.RUnlock()
	return len(r.archetypeList)
}

// migrate moves the entity behind h from its current archetype to one
// matching targetSig, preserving every component value it shares with the
// destination and leaving any component not in targetSig behind. Used by
// both Put (grow) and Erase (shrink) of a single component type.
func (r *Registry) migrate(h Handle, targetSig Signature) error {
	shard := r.shardFor(h)
	src, srcRow, ok := shard.Lookup(h)
	if !ok {
		return DeadHandleError{Handle: h}
	}
	if src.signature.Equal(targetSig) {
		return nil
	}
	dst := r.getOrCreateArchetype(targetSig)
	newRow := dst.moveRow(src, srcRow, h)
	shard.Reindex(h, dst, newRow)
	src.erase(srcRow, func(moved Handle, movedRow int) {
		r.shardFor(moved).Reindex(moved, src, movedRow)
	})
	return nil
}

// AddTags adds the given tags to an entity's signature, migrating it to the
// matching archetype if necessary.
func (r *Registry) AddTags(h Handle, tags ...TagKey) error {
	shard := r.shardFor(h)
	arch, _, ok := shard.Lookup(h)
	if !ok {
		return DeadHandleError{Handle: h}
	}
	target := arch.signature
	for _, t := range tags {
		target = target.withTag(t)
	}
	return r.migrate(h, target)
}

// EraseTags removes the given tags from an entity's signature. Per spec.md's
// resolution of the "erase_tags on a tag the entity doesn't carry" open
// question, removing an absent tag is a no-op, not an error.
func (r *Registry) EraseTags(h Handle, tags ...TagKey) error {
	shard := r.shardFor(h)
	arch, _, ok := shard.Lookup(h)
	if !ok {
		return DeadHandleError{Handle: h}
	}
	target := arch.signature
	for _, t := range tags {
		target = target.withoutTag(t)
	}
	return r.migrate(h, target)
}

// Clear removes every entity from every archetype and every slot map shard.
// Archetypes themselves are kept (empty, ready for reuse) rather than
// discarded, matching the teacher's append-only archetype list.
func (r *Registry) Clear() {
	r.dirMu.Lock()
	archetypes := append([]*Archetype(nil), r.archetypeList...)
	r.dirMu.Unlock()

	for _, arch := range archetypes {
		arch.mu.Lock()
		arch.handles = nil
		arch.columns.ForEach(func(_ uint64, col column) bool {
			col.Clear()
			return true
		})
		arch.change++
		arch.mu.Unlock()
	}
	for _, s := range r.shards {
		s.Clear()
	}
}

// Swap exchanges the component data of two entities in place, keeping each
// handle pointing at its own original archetype row identity but with the
// other's values — grounded on original_source's VECSRegistry.h Swap, which
// exchanges two entities' archetype slots without reallocating either.
func (r *Registry) Swap(h1, h2 Handle) error {
	shard1, shard2 := r.shardFor(h1), r.shardFor(h2)
	arch1, row1, ok1 := shard1.Lookup(h1)
	if !ok1 {
		return DeadHandleError{Handle: h1}
	}
	arch2, row2, ok2 := shard2.Lookup(h2)
	if !ok2 {
		return DeadHandleError{Handle: h2}
	}
	if arch1 != arch2 {
		return SignatureConflictError{}
	}
	arch1.mu.Lock()
	defer arch1.mu.Unlock()
	arch1.columns.ForEach(func(_ uint64, col column) bool {
		col.Swap(row1, row2)
		return true
	})
	arch1.change++
	return nil
}
