package ecr

import "testing"

type testPosition struct{ X, Y float64 }
type testVelocity struct{ X, Y float64 }

func TestArchetypeInsertAndTypedAccess(t *testing.T) {
	registerComponentType[testPosition]()
	sig := newSignature(newSignatureBits()).withType(TypeKeyOf[testPosition]())
	arch := newArchetype(1, sig, 6)

	row := arch.insert(Handle(42))
	put(arch, row, testPosition{X: 1, Y: 2})

	got := get[testPosition](arch, row)
	if got.X != 1 || got.Y != 2 {
		t.Errorf("get[testPosition] = %+v, want {1 2}", got)
	}
	if arch.size() != 1 {
		t.Errorf("size() = %d, want 1", arch.size())
	}
}

func TestArchetypeEraseSwapsTailAndReindexes(t *testing.T) {
	registerComponentType[testPosition]()
	sig := newSignature(newSignatureBits()).withType(TypeKeyOf[testPosition]())
	arch := newArchetype(1, sig, 6)

	rowA := arch.insert(Handle(1))
	put(arch, rowA, testPosition{X: 1})
	rowB := arch.insert(Handle(2))
	put(arch, rowB, testPosition{X: 2})
	rowC := arch.insert(Handle(3))
	put(arch, rowC, testPosition{X: 3})

	var reindexedTo int = -1
	moved := arch.erase(rowA, func(h Handle, row int) {
		if h != Handle(3) {
			t.Errorf("expected handle 3 to move, got %v", h)
		}
		reindexedTo = row
	})
	if moved != Handle(3) {
		t.Errorf("erase returned moved handle %v, want 3", moved)
	}
	if reindexedTo != 0 {
		t.Errorf("onReindex row = %d, want 0", reindexedTo)
	}
	if arch.size() != 2 {
		t.Fatalf("size() after erase = %d, want 2", arch.size())
	}
	if got := get[testPosition](arch, 0); got.X != 3 {
		t.Errorf("row 0 after erase = %+v, want X=3 (former tail)", got)
	}
}

func TestArchetypeDeferredErasureDuringIteration(t *testing.T) {
	registerComponentType[testPosition]()
	sig := newSignature(newSignatureBits()).withType(TypeKeyOf[testPosition]())
	arch := newArchetype(1, sig, 6)

	for i := 0; i < 3; i++ {
		row := arch.insert(Handle(i + 1))
		put(arch, row, testPosition{X: float64(i)})
	}

	arch.beginIteration()
	moved := arch.erase(0, func(h Handle, row int) { t.Errorf("reindex should not fire while iterating") })
	if moved != InvalidHandle {
		t.Errorf("erase during iteration should defer, returning InvalidHandle, got %v", moved)
	}
	if arch.size() != 3 {
		t.Errorf("size() should stay 3 while the gap is only deferred, got %d", arch.size())
	}
	arch.mu.RLock()
	stamped := arch.handles[0]
	arch.mu.RUnlock()
	if stamped != InvalidHandle {
		t.Errorf("row 0's handle should be stamped InvalidHandle while the erase is deferred")
	}

	replayed := false
	arch.endIteration(func(h Handle, row int) { replayed = true })
	if arch.size() != 2 {
		t.Errorf("size() after endIteration replay = %d, want 2", arch.size())
	}
	if !replayed {
		t.Errorf("expected endIteration to replay the deferred gap and call onReindex")
	}
}

func TestArchetypeMoveRowCopiesSharedColumnsAndDefaultsNew(t *testing.T) {
	registerComponentType[testPosition]()
	registerComponentType[testVelocity]()
	srcSig := newSignature(newSignatureBits()).withType(TypeKeyOf[testPosition]())
	dstSig := srcSig.withType(TypeKeyOf[testVelocity]())

	src := newArchetype(1, srcSig, 6)
	dst := newArchetype(2, dstSig, 6)

	row := src.insert(Handle(7))
	put(src, row, testPosition{X: 9, Y: 9})

	newRow := dst.moveRow(src, row, Handle(7))
	pos := get[testPosition](dst, newRow)
	if pos.X != 9 || pos.Y != 9 {
		t.Errorf("moved Position = %+v, want {9 9}", pos)
	}
	vel := get[testVelocity](dst, newRow)
	if vel != (testVelocity{}) {
		t.Errorf("Velocity column should default to zero value, got %+v", vel)
	}
}
