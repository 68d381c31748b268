package ecr

import "sync"

// SlotMap maps handle indices to (archetype, row) pairs behind a version
// counter and an intrusive free list, per original_source's VECSSlotMap.h.
// It never shrinks: an erased slot returns to the free list instead of being
// removed from the backing slice, so indices stay stable for the lifetime of
// the Registry.
//
// A Registry owns one SlotMap per shard (spec.md §5's sharding: "shard
// selection via a round-robin counter embedded in the handle's storage
// field"); each shard has its own mutex, so unrelated shards never block
// each other.
type SlotMap struct {
	mu    sync.RWMutex
	shard uint8
	codec handleCodec

	slots     []slot
	firstFree int64 // -1 means no free slot
	size      int
}

func newSlotMap(shard uint8, codec handleCodec) *SlotMap {
	return &SlotMap{shard: shard, codec: codec, firstFree: -1}
}

// Insert claims a slot for (arch, row) and returns its handle. Returns
// OutOfCapacityError if every index in this shard's index space is already
// live and the free list is empty.
func (m *SlotMap) Insert(arch *Archetype, row int) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var index int64
	var s *slot
	if m.firstFree > -1 {
		index = m.firstFree
		s = &m.slots[index]
		m.firstFree = s.nextFree
	} else {
		if uint64(len(m.slots)) > m.codec.maxIndex() {
			return InvalidHandle, OutOfCapacityError{Shard: int(m.shard)}
		}
		m.slots = append(m.slots, slot{nextFree: -1})
		index = int64(len(m.slots) - 1)
		s = &m.slots[index]
	}
	s.nextFree = -1
	s.archetype = arch
	s.row = row
	m.size++

	return m.codec.pack(uint32(index), s.version, m.shard), nil
}

// Erase invalidates h's slot by bumping its version and returns it to the
// free list. Returns DeadHandleError if h is already dead.
func (m *SlotMap) Erase(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.codec.index(h)
	if uint64(idx) >= uint64(len(m.slots)) {
		return DeadHandleError{Handle: h}
	}
	s := &m.slots[idx]
	if !s.occupied() || s.version != m.codec.version(h) {
		return DeadHandleError{Handle: h}
	}
	s.version++
	s.archetype = nil
	s.row = 0
	s.nextFree = m.firstFree
	m.firstFree = int64(idx)
	m.size--
	return nil
}

// Lookup returns the archetype and row currently backing h, or false if h is
// dead.
func (m *SlotMap) Lookup(h Handle) (*Archetype, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.codec.index(h)
	if uint64(idx) >= uint64(len(m.slots)) {
		return nil, 0, false
	}
	s := &m.slots[idx]
	if !s.occupied() || s.version != m.codec.version(h) {
		return nil, 0, false
	}
	return s.archetype, s.row, true
}

// Exists reports whether h currently refers to a live slot.
func (m *SlotMap) Exists(h Handle) bool {
	_, _, ok := m.Lookup(h)
	return ok
}

// Reindex updates the (archetype, row) pair stored for h without touching
// its version — used after a migration or a swap-with-last compaction moved
// the entity to a new row, possibly in a new archetype.
func (m *SlotMap) Reindex(h Handle, arch *Archetype, row int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.codec.index(h)
	if uint64(idx) >= uint64(len(m.slots)) {
		return
	}
	s := &m.slots[idx]
	if !s.occupied() || s.version != m.codec.version(h) {
		return
	}
	s.archetype = arch
	s.row = row
}

// Size returns the number of live slots in this shard.
func (m *SlotMap) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Clear returns every slot to the free list, bumping each version so any
// outstanding handle into this shard becomes dead.
func (m *SlotMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.slots)
	for i := 0; i < n; i++ {
		m.slots[i].archetype = nil
		m.slots[i].row = 0
		m.slots[i].version++
		if i == n-1 {
			m.slots[i].nextFree = -1
		} else {
			m.slots[i].nextFree = int64(i + 1)
		}
	}
	if n > 0 {
		m.firstFree = 0
	} else {
		m.firstFree = -1
	}
	m.size = 0
}
