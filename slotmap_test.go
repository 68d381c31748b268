package ecr

import "testing"

func TestSlotMapInsertLookupErase(t *testing.T) {
	codec := newHandleCodec(32, 24, 8)
	m := newSlotMap(0, codec)

	arch := newArchetype(1, newSignature(newSignatureBits()), 6)
	h1, err := m.Insert(arch, 0)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	h2, err := m.Insert(arch, 1)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if !m.Exists(h1) || !m.Exists(h2) {
		t.Fatalf("expected both handles to exist")
	}

	if err := m.Erase(h1); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if m.Exists(h1) {
		t.Errorf("h1 still exists after Erase")
	}
	if !m.Exists(h2) {
		t.Errorf("h2 should still exist")
	}
}

func TestSlotMapEraseBumpsVersion(t *testing.T) {
	codec := newHandleCodec(32, 24, 8)
	m := newSlotMap(0, codec)
	arch := newArchetype(1, newSignature(newSignatureBits()), 6)

	h1, _ := m.Insert(arch, 0)
	if err := m.Erase(h1); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	// Reinsert should reuse the freed slot index but bump the version, so
	// the old handle must stay dead.
	h2, err := m.Insert(arch, 0)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if codec.index(h1) != codec.index(h2) {
		t.Fatalf("expected the freed slot index to be reused")
	}
	if codec.version(h1) == codec.version(h2) {
		t.Errorf("expected reinsertion to bump the version")
	}
	if m.Exists(h1) {
		t.Errorf("old handle h1 should remain dead after reuse")
	}
	if !m.Exists(h2) {
		t.Errorf("new handle h2 should be alive")
	}
}

func TestSlotMapDoubleEraseFails(t *testing.T) {
	codec := newHandleCodec(32, 24, 8)
	m := newSlotMap(0, codec)
	arch := newArchetype(1, newSignature(newSignatureBits()), 6)

	h, _ := m.Insert(arch, 0)
	if err := m.Erase(h); err != nil {
		t.Fatalf("first Erase: %v", err)
	}
	if err := m.Erase(h); err == nil {
		t.Errorf("second Erase on dead handle should fail")
	}
}

func TestSlotMapOutOfCapacity(t *testing.T) {
	codec := newHandleCodec(2, 54, 8) // index space of only 4 slots
	m := newSlotMap(0, codec)
	arch := newArchetype(1, newSignature(newSignatureBits()), 6)

	for i := 0; i < 4; i++ {
		if _, err := m.Insert(arch, i); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if _, err := m.Insert(arch, 4); err == nil {
		t.Errorf("expected OutOfCapacityError once the index space is exhausted")
	} else if _, ok := err.(OutOfCapacityError); !ok {
		t.Errorf("expected OutOfCapacityError, got %T", err)
	}
}

func TestSlotMapClear(t *testing.T) {
	codec := newHandleCodec(32, 24, 8)
	m := newSlotMap(0, codec)
	arch := newArchetype(1, newSignature(newSignatureBits()), 6)

	var handles []Handle
	for i := 0; i < 5; i++ {
		h, _ := m.Insert(arch, i)
		handles = append(handles, h)
	}
	m.Clear()
	for _, h := range handles {
		if m.Exists(h) {
			t.Errorf("handle %v should be dead after Clear", h)
		}
	}
	if m.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", m.Size())
	}
}
