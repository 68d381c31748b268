package ecr

import (
	"sync"
	"unsafe"

	"github.com/kamstrup/intmap"
)

type archetypeID uint32

// Archetype is a dense, columnar store for every live entity sharing one
// Signature (spec.md §2). It owns one column per component type plus an
// implicit handle column; rows across all columns of the same archetype
// always stay aligned by index.
//
// Iteration and mutation coordinate through a per-archetype RWMutex and a
// separate gapsMu guarding the deferred-erasure state: an archetype being
// iterated defers physical erasure until the last iterator releases it
// (spec.md §4's gap-filling protocol), so the two locks are kept apart to
// avoid serializing readers behind a writer that's only adjusting gap
// bookkeeping.
type Archetype struct {
	id        archetypeID
	signature Signature

	mu      sync.RWMutex
	handles []Handle // implicit handle column, aligned with every column's rows
	columns *intmap.Map[uint64, column]

	segmentBits int
	change      uint64 // bumped on every structural mutation

	gapsMu          sync.Mutex
	activeIterators int
	gaps            []int // rows whose handle was invalidated while iteration was active
}

func newArchetype(id archetypeID, sig Signature, segmentBits int) *Archetype {
	return &Archetype{
		id:          id,
		signature:   sig,
		columns:     intmap.New[uint64, column](8),
		segmentBits: segmentBits,
	}
}

func (a *Archetype) segmentSize() int {
	return 1 << a.segmentBits
}

// size returns the number of live rows. Callers must hold at least a.mu.RLock.
func (a *Archetype) size() int {
	return len(a.handles)
}

// Size is the public, lock-acquiring form of size.
func (a *Archetype) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size()
}

func (a *Archetype) has(key TypeKey) bool {
	return a.signature.hasType(key)
}

// ensureColumn returns the column for key, creating it from the registered
// componentInfo if this is the archetype's first row of that type.
func (a *Archetype) ensureColumn(key TypeKey) column {
	if col, ok := a.columns.Get(uint64(key)); ok {
		return col
	}
	info, ok := lookupComponentInfo(key)
	if !ok {
		fatal(MissingComponentError{Type: key})
	}
	col := info.newColumn(a.segmentSize())
	a.columns.Put(uint64(key), col)
	return col
}

// insert appends a new row for handle with no component values set beyond
// zero values for every column the archetype already carries, and returns
// the row index. Callers populate components via put afterward.
func (a *Archetype) insert(h Handle) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	row := len(a.handles)
	a.handles = append(a.handles, h)
	a.columns.ForEach(func(_ uint64, col column) bool {
		col.PushBackDefault()
		return true
	})
	a.change++
	return row
}

// beginIteration marks the archetype as being actively walked by one more
// iterator; erase calls made while activeIterators > 0 are deferred into
// gaps instead of physically compacting the columns.
func (a *Archetype) beginIteration() {
	a.gapsMu.Lock()
	a.activeIterators++
	a.gapsMu.Unlock()
}

// endIteration releases one iterator's hold and, if it was the last one,
// replays every deferred gap: sorted descending so each swap-with-last only
// ever touches rows not yet compacted.
func (a *Archetype) endIteration(onReindex func(h Handle, row int)) {
	a.gapsMu.Lock()
	a.activeIterators--
	if a.activeIterators > 0 {
		a.gapsMu.Unlock()
		return
	}
	gaps := a.gaps
	a.gaps = nil
	a.gapsMu.Unlock()

	if len(gaps) == 0 {
		return
	}
	sortDescending(gaps)
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, row := range gaps {
		a.physicalErase(row, onReindex)
	}
}

func sortDescending(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] > xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// erase removes the row for handle h at position row. If the archetype is
// currently being iterated, the removal is deferred: the handle column slot
// is stamped with InvalidHandle so iterators skip it, and the row is queued
// into gaps for replay once iteration ends. Otherwise it erases immediately.
// Returns the handle that now occupies row after compaction, or
// InvalidHandle if row was the tail or the removal was deferred.
func (a *Archetype) erase(row int, onReindex func(h Handle, row int)) Handle {
	a.gapsMu.Lock()
	iterating := a.activeIterators > 0
	if iterating {
		a.gaps = append(a.gaps, row)
	}
	a.gapsMu.Unlock()

	if iterating {
		a.mu.Lock()
		a.handles[row] = InvalidHandle
		a.mu.Unlock()
		return InvalidHandle
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.physicalErase(row, onReindex)
}

// physicalErase performs the actual swap-with-last compaction. Caller must
// hold a.mu for writing.
func (a *Archetype) physicalErase(row int, onReindex func(h Handle, row int)) Handle {
	last := len(a.handles) - 1
	if row < 0 || row > last {
		fatal(InvalidIndexError{Index: row, Len: len(a.handles)})
	}
	moved := InvalidHandle
	if row != last {
		a.handles[row], a.handles[last] = a.handles[last], a.handles[row]
		moved = a.handles[row]
	}
	a.handles = a.handles[:last]

	a.columns.ForEach(func(_ uint64, col column) bool {
		col.Erase(row)
		return true
	})
	a.change++

	if moved != InvalidHandle && onReindex != nil {
		onReindex(moved, row)
	}
	return moved
}

// cloneShape returns a fresh, empty Archetype carrying the union of a's
// signature with extra, sharing no storage with a. Nothing in the package
// calls it: migrations build their destination archetype through
// Registry.getOrCreateArchetype.
func (a *Archetype) cloneShape(id archetypeID, extra Signature) *Archetype {
	merged := a.signature.Union(extra)
	return newArchetype(id, merged, a.segmentBits)
}

// moveRow copies every column value at srcRow from src into a new row of a,
// for every component type a and src have in common, defaulting every other
// column a carries, and returns the new row's index. Does not touch src; the
// caller erases the source row separately once every destination has a copy.
func (a *Archetype) moveRow(src *Archetype, srcRow int, h Handle) int {
	if uintptr(unsafe.Pointer(a)) < uintptr(unsafe.Pointer(src)) {
		a.mu.Lock()
		defer a.mu.Unlock()
		src.mu.RLock()
		defer src.mu.RUnlock()
	} else {
		src.mu.RLock()
		defer src.mu.RUnlock()
		a.mu.Lock()
		defer a.mu.Unlock()
	}

	row := len(a.handles)
	a.handles = append(a.handles, h)
	a.signature.ForEachTypeKey(func(key TypeKey) {
		dst := a.ensureColumn(key)
		for dst.Len() < row {
			dst.PushBackDefault()
		}
		if srcCol, ok := src.columns.Get(uint64(key)); ok {
			dst.CopyFrom(srcCol, srcRow)
		} else {
			dst.PushBackDefault()
		}
	})
	a.change++
	return row
}

func get[T any](a *Archetype, row int) T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	col, ok := a.columns.Get(uint64(TypeKeyOf[T]()))
	if !ok {
		fatal(MissingComponentError{Type: TypeKeyOf[T]()})
	}
	if dyn, ok := col.(*dynamicColumn); ok {
		return dyn.ValueAt(row).Interface().(T)
	}
	typed, ok := col.(*segmentedColumn[T])
	if !ok {
		fatal(SignatureConflictError{Type: TypeKeyOf[T]()})
	}
	return typed.Get(row)
}

func getMut[T any](a *Archetype, row int) *T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	col, ok := a.columns.Get(uint64(TypeKeyOf[T]()))
	if !ok {
		fatal(MissingComponentError{Type: TypeKeyOf[T]()})
	}
	if dyn, ok := col.(*dynamicColumn); ok {
		return dyn.ValueAt(row).Addr().Interface().(*T)
	}
	typed, ok := col.(*segmentedColumn[T])
	if !ok {
		fatal(SignatureConflictError{Type: TypeKeyOf[T]()})
	}
	return typed.At(row)
}

func put[T any](a *Archetype, row int, value T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := TypeKeyOf[T]()
	col, ok := a.columns.Get(uint64(key))
	if !ok {
		col = a.ensureColumn(key)
	}
	// A column just created by ensureColumn is still empty; pad it up to row.
	for col.Len() <= row {
		col.PushBackDefault()
	}
	if dyn, ok := col.(*dynamicColumn); ok {
		dyn.ValueAt(row).Set(reflectValueOf(value))
		return
	}
	typed, ok := col.(*segmentedColumn[T])
	if !ok {
		fatal(SignatureConflictError{Type: key})
	}
	typed.Set(row, value)
}
