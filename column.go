package ecr

import (
	"reflect"
	"unsafe"
)

// column is the type-erased interface every segmented column implements, so
// an Archetype can hold a heterogeneous map[TypeKey]column without knowing
// each column's element type. The typed accessors (Get[T]/Put[T]) live on
// Archetype and type-assert back to *segmentedColumn[T], or reach a
// *dynamicColumn's element through reflection.
//
// Erase always swaps the tail element into the freed row and returns the
// new length; it never shifts. Callers reconcile "did the tail move into
// row" themselves by checking row < newLen, per spec.md §4.1.
type column interface {
	Len() int
	PushBackDefault() int
	Erase(row int) (newLen int)
	Swap(a, b int)
	Clear()
	CopyFrom(src column, row int)
}

// segmentedColumn is a gap-free, growable store for a single component type,
// organized into fixed-size segments so a push never reallocates more than
// one segment's worth of memory. Random access is segment = i>>bits,
// offset = i&(size-1), per spec.md §3.
type segmentedColumn[T any] struct {
	segments    [][]T
	segmentSize int
	length      int
}

func newSegmentedColumn[T any](segmentSize int) *segmentedColumn[T] {
	if segmentSize < 1 {
		segmentSize = 64
	}
	return &segmentedColumn[T]{segmentSize: segmentSize}
}

func (c *segmentedColumn[T]) Len() int { return c.length }

func (c *segmentedColumn[T]) segmentIndex(row int) (segment, offset int) {
	return row / c.segmentSize, row % c.segmentSize
}

func (c *segmentedColumn[T]) ensureSegment(segment int) {
	for len(c.segments) <= segment {
		c.segments = append(c.segments, make([]T, c.segmentSize))
	}
}

// PushBack appends value at the logical tail and returns its row.
func (c *segmentedColumn[T]) PushBack(value T) int {
	row := c.length
	seg, off := c.segmentIndex(row)
	c.ensureSegment(seg)
	c.segments[seg][off] = value
	c.length++
	return row
}

// PushBackDefault appends a zero-valued element, used when migrating a row
// into an archetype that has extra components the source row never set.
func (c *segmentedColumn[T]) PushBackDefault() int {
	row := c.length
	seg, off := c.segmentIndex(row)
	c.ensureSegment(seg)
	var zero T
	c.segments[seg][off] = zero
	c.length++
	return row
}

func (c *segmentedColumn[T]) checkRow(row int) {
	if row < 0 || row >= c.length {
		fatal(InvalidIndexError{Index: row, Len: c.length})
	}
}

// At returns a pointer into the column's backing segment for row. The
// pointer is only valid until the next structural mutation of this column
// (push, erase, clear) — callers that need a long-lived handle must go
// through a SafeReference instead (spec.md's Design Notes: "pointer-stable
// references are forbidden").
func (c *segmentedColumn[T]) At(row int) *T {
	c.checkRow(row)
	seg, off := c.segmentIndex(row)
	return &c.segments[seg][off]
}

func (c *segmentedColumn[T]) Get(row int) T {
	return *c.At(row)
}

func (c *segmentedColumn[T]) Set(row int, value T) {
	*c.At(row) = value
}

// Erase swaps the element at row with the tail element, shrinks the
// logical length by one, and returns the new length. It never shifts.
func (c *segmentedColumn[T]) Erase(row int) int {
	c.checkRow(row)
	last := c.length - 1
	if row != last {
		c.Swap(row, last)
	}
	c.length--
	return c.length
}

func (c *segmentedColumn[T]) Swap(a, b int) {
	if a == b {
		return
	}
	pa := c.At(a)
	pb := c.At(b)
	*pa, *pb = *pb, *pa
}

func (c *segmentedColumn[T]) Clear() {
	c.segments = nil
	c.length = 0
}

// CopyFrom appends a copy of src's element at row to self. src must be a
// *segmentedColumn[T]; used during archetype migration when the
// destination archetype already carries the same component type as the
// source.
func (c *segmentedColumn[T]) CopyFrom(src column, row int) {
	typed, ok := src.(*segmentedColumn[T])
	if !ok {
		fatal(SignatureConflictError{})
	}
	c.PushBack(typed.Get(row))
}

func (c *segmentedColumn[T]) elementSize() uintptr {
	var zero T
	return reflect.TypeOf(zero).Size()
}

// --- reflection-backed column, for the untyped bulk-insert path ---

// dynamicColumn is a segmented column built from a reflect.Type discovered
// at runtime (the Insert(values ...any) path, mirroring the
// teacher's entity.go reflect.TypeOf(value) idiom). It is grounded on
// delaneyj/arche's reflect+unsafe Storage: a reflect.ArrayOf-backed buffer
// addressed through an unsafe.Pointer, which is the only place in the
// retrieved pack that builds a growable store for a type known only at
// runtime.
type dynamicColumn struct {
	typ         reflect.Type
	segments    []reflect.Value // each a reflect.ArrayOf(segmentSize, typ), addressable
	segmentSize int
	length      int
}

func newSegmentedColumnOfType(t reflect.Type, segmentSize int) *dynamicColumn {
	if segmentSize < 1 {
		segmentSize = 64
	}
	return &dynamicColumn{typ: t, segmentSize: segmentSize}
}

func (c *dynamicColumn) Len() int { return c.length }

func (c *dynamicColumn) segmentIndex(row int) (segment, offset int) {
	return row / c.segmentSize, row % c.segmentSize
}

func (c *dynamicColumn) ensureSegment(segment int) {
	for len(c.segments) <= segment {
		buf := reflect.New(reflect.ArrayOf(c.segmentSize, c.typ)).Elem()
		c.segments = append(c.segments, buf)
	}
}

func (c *dynamicColumn) elemAddr(row int) unsafe.Pointer {
	seg, off := c.segmentIndex(row)
	c.ensureSegment(seg)
	arr := c.segments[seg]
	return unsafe.Pointer(arr.Index(off).Addr().Pointer())
}

func (c *dynamicColumn) PushBackDefault() int {
	row := c.length
	addr := c.elemAddr(row)
	zero := reflect.New(c.typ).Elem()
	reflect.NewAt(c.typ, addr).Elem().Set(zero)
	c.length++
	return row
}

func (c *dynamicColumn) PushBackValue(v reflect.Value) int {
	row := c.length
	addr := c.elemAddr(row)
	reflect.NewAt(c.typ, addr).Elem().Set(v)
	c.length++
	return row
}

func (c *dynamicColumn) ValueAt(row int) reflect.Value {
	if row < 0 || row >= c.length {
		fatal(InvalidIndexError{Index: row, Len: c.length})
	}
	seg, off := c.segmentIndex(row)
	return c.segments[seg].Index(off)
}

func (c *dynamicColumn) Erase(row int) int {
	last := c.length - 1
	if row != last {
		c.Swap(row, last)
	}
	c.length--
	return c.length
}

func (c *dynamicColumn) Swap(a, b int) {
	if a == b {
		return
	}
	va, vb := c.ValueAt(a), c.ValueAt(b)
	tmp := reflect.New(c.typ).Elem()
	tmp.Set(va)
	va.Set(vb)
	vb.Set(tmp)
}

func (c *dynamicColumn) Clear() {
	c.segments = nil
	c.length = 0
}

func (c *dynamicColumn) CopyFrom(src column, row int) {
	typed, ok := src.(*dynamicColumn)
	if !ok {
		fatal(SignatureConflictError{})
	}
	c.PushBackValue(typed.ValueAt(row))
}
