package ecr

// slot is one entry of a SlotMap. Grounded on original_source's
// VECSSlotMap.h Slot: a free-list link, a version counter, and the payload
// (here, which archetype currently owns the entity and at which row).
type slot struct {
	nextFree  int64 // index of the next free slot, or -1 if this is the tail
	version   uint32
	archetype *Archetype
	row       int
}

func (s *slot) occupied() bool {
	return s.archetype != nil
}
