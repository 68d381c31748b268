package ecr

// Handle is an opaque, comparable reference to an entity. It packs three
// fields into a single 64-bit value: an index into a slot map shard, a
// version counter that invalidates stale copies, and the shard index of the
// slot map that owns the slot. Handles are never dereferenced directly; they
// are only ever looked up through a Registry's slot maps.
type Handle uint64

// InvalidHandle is the all-ones sentinel denoting "no entity".
const InvalidHandle Handle = ^Handle(0)

// handleCodec packs and unpacks Handle values according to a Registry's
// configured bit widths. It holds no state beyond the three widths, so it
// can be copied freely and carries no process-wide global state: every
// Registry owns its own codec, derived once from its Config at construction.
type handleCodec struct {
	indexBits   uint
	versionBits uint
	storageBits uint

	indexMask   uint64
	versionMask uint64
	storageMask uint64
}

func newHandleCodec(indexBits, versionBits, storageBits uint) handleCodec {
	if indexBits+versionBits+storageBits != 64 {
		panic("ecr: handle bit widths must sum to 64")
	}
	return handleCodec{
		indexBits:   indexBits,
		versionBits: versionBits,
		storageBits: storageBits,
		indexMask:   (uint64(1) << indexBits) - 1,
		versionMask: (uint64(1) << versionBits) - 1,
		storageMask: (uint64(1) << storageBits) - 1,
	}
}

func (c handleCodec) pack(index uint32, version uint32, storage uint8) Handle {
	v := uint64(index) & c.indexMask
	v |= (uint64(version) & c.versionMask) << c.indexBits
	v |= (uint64(storage) & c.storageMask) << (c.indexBits + c.versionBits)
	return Handle(v)
}

func (c handleCodec) index(h Handle) uint32 {
	return uint32(uint64(h) & c.indexMask)
}

func (c handleCodec) version(h Handle) uint32 {
	return uint32((uint64(h) >> c.indexBits) & c.versionMask)
}

func (c handleCodec) storage(h Handle) uint8 {
	return uint8((uint64(h) >> (c.indexBits + c.versionBits)) & c.storageMask)
}

func (c handleCodec) maxIndex() uint64 {
	return c.indexMask
}

// IsValid reports whether h is not the invalid sentinel. It does not check
// liveness against any Registry — use Registry.Exists for that.
func (h Handle) IsValid() bool {
	return h != InvalidHandle
}
