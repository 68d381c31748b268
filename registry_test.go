package ecr

import (
	"sync"
	"testing"
)

type rPosition struct{ X, Y float64 }
type rVelocity struct{ X, Y float64 }
type rName struct{ Value string }

func TestRegistryInsertAndGet(t *testing.T) {
	reg := NewRegistry()
	h, err := reg.Insert(rPosition{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !reg.Exists(h) {
		t.Fatalf("expected inserted handle to exist")
	}
	if reg.Size() != 1 {
		t.Errorf("Size() = %d, want 1", reg.Size())
	}
}

func TestRegistryPutAddsComponentAndMigrates(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Insert(rPosition{X: 1})

	if Has[rVelocity](reg, h) {
		t.Fatalf("entity should not carry rVelocity yet")
	}
	if err := Put[rVelocity](reg, h, rVelocity{X: 5, Y: 6}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !Has[rVelocity](reg, h) {
		t.Fatalf("entity should carry rVelocity after Put")
	}
	pos, err := Get[rPosition](reg, h)
	if err != nil {
		t.Fatalf("Get[rPosition]: %v", err)
	}
	if pos.X != 1 {
		t.Errorf("rPosition survived migration with wrong value: %+v", pos)
	}
	vel, err := Get[rVelocity](reg, h)
	if err != nil {
		t.Fatalf("Get[rVelocity]: %v", err)
	}
	if vel.X != 5 || vel.Y != 6 {
		t.Errorf("rVelocity = %+v, want {5 6}", vel)
	}
}

func TestRegistryEraseComponentMigratesDown(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Insert(rPosition{X: 1}, rVelocity{X: 2})

	if err := Erase[rVelocity](reg, h); err != nil {
		t.Fatalf("Erase[rVelocity]: %v", err)
	}
	if Has[rVelocity](reg, h) {
		t.Errorf("rVelocity should be gone after Erase")
	}
	if !Has[rPosition](reg, h) {
		t.Errorf("rPosition should survive Erase[rVelocity]")
	}
}

func TestRegistryEraseEntityFreesHandle(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Insert(rPosition{})
	if err := reg.EraseEntity(h); err != nil {
		t.Fatalf("EraseEntity: %v", err)
	}
	if reg.Exists(h) {
		t.Errorf("handle should be dead after EraseEntity")
	}
	if _, err := Get[rPosition](reg, h); err == nil {
		t.Errorf("Get on dead handle should fail")
	}
}

func TestRegistryDeadHandleErrors(t *testing.T) {
	reg := NewRegistry()
	h, _ := reg.Insert(rPosition{})
	reg.EraseEntity(h)

	err := reg.EraseEntity(h)
	if err == nil {
		t.Fatalf("double EraseEntity should fail")
	}
	if _, ok := err.(DeadHandleError); !ok {
		t.Errorf("expected DeadHandleError, got %T", err)
	}
}

func TestRegistryViewMatchesRequiredAndExcludesForbidden(t *testing.T) {
	reg := NewRegistry()
	reg.Insert(rPosition{})
	reg.Insert(rPosition{}, rVelocity{})
	reg.Insert(rPosition{}, rVelocity{}, rName{Value: "x"})

	view := reg.View(Required(TypeKeyOf[rPosition](), TypeKeyOf[rVelocity]()))
	if view.Size() != 2 {
		t.Errorf("view.Size() = %d, want 2", view.Size())
	}

	count := 0
	Iterate2(view, func(h Handle, pos *rPosition, vel *rVelocity) bool {
		count++
		return true
	})
	if count != 2 {
		t.Errorf("Iterate2 visited %d entities, want 2", count)
	}

	excl := reg.View(Required(TypeKeyOf[rPosition](), TypeKeyOf[rVelocity]()).Excluded(TypeKeyOf[rName]()))
	if excl.Size() != 1 {
		t.Errorf("view.Size() with rName excluded = %d, want 1", excl.Size())
	}
}

func TestRegistryViewSnapshotIgnoresLaterInserts(t *testing.T) {
	reg := NewRegistry()
	reg.Insert(rPosition{})

	view := reg.View(Required(TypeKeyOf[rPosition]()))
	reg.Insert(rPosition{}) // inserted after the view snapshot was taken

	if view.Size() != 1 {
		t.Errorf("view.Size() = %d, want 1 (snapshot should not see the later insert)", view.Size())
	}
}

func TestRegistrySwapExchangesComponentData(t *testing.T) {
	reg := NewRegistry()
	h1, _ := reg.Insert(rPosition{X: 1})
	h2, _ := reg.Insert(rPosition{X: 2})

	if err := reg.Swap(h1, h2); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	p1, _ := Get[rPosition](reg, h1)
	p2, _ := Get[rPosition](reg, h2)
	if p1.X != 2 || p2.X != 1 {
		t.Errorf("after Swap, p1=%+v p2=%+v, want X swapped", p1, p2)
	}
}

func TestRegistryClearResetsEverything(t *testing.T) {
	reg := NewRegistry()
	h1, _ := reg.Insert(rPosition{})
	h2, _ := reg.Insert(rPosition{}, rVelocity{})

	reg.Clear()
	if reg.Exists(h1) || reg.Exists(h2) {
		t.Errorf("handles should be dead after Clear")
	}
	if reg.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", reg.Size())
	}
}

func TestRegistryTagsRoundTrip(t *testing.T) {
	const tag TagKey = 99
	reg := NewRegistry()
	h, _ := reg.Insert(rPosition{})

	if err := reg.AddTags(h, tag); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	view := reg.View(Required(tag))
	if view.Size() != 1 {
		t.Errorf("expected the tagged entity to match a tag-required view")
	}

	if err := reg.EraseTags(h, tag); err != nil {
		t.Fatalf("EraseTags: %v", err)
	}
	view = reg.View(Required(tag))
	if view.Size() != 0 {
		t.Errorf("expected no entities to match after the tag was erased")
	}
}

func TestRegistryEraseTagsOnAbsentTagIsNoop(t *testing.T) {
	const tag TagKey = 123
	reg := NewRegistry()
	h, _ := reg.Insert(rPosition{})
	if err := reg.EraseTags(h, tag); err != nil {
		t.Errorf("EraseTags on an absent tag should be a no-op, got %v", err)
	}
}

func TestRegistryParallelConcurrentInsert(t *testing.T) {
	reg := NewRegistry(WithConcurrency(Parallel))

	var wg sync.WaitGroup
	handles := make(chan Handle, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := reg.Insert(rPosition{})
			if err != nil {
				t.Errorf("concurrent Insert: %v", err)
				return
			}
			handles <- h
		}()
	}
	wg.Wait()
	close(handles)

	seen := make(map[Handle]bool)
	for h := range handles {
		if seen[h] {
			t.Errorf("duplicate handle %v issued under concurrent insert", h)
		}
		seen[h] = true
	}
	if reg.Size() != 200 {
		t.Errorf("Size() = %d, want 200", reg.Size())
	}
}
