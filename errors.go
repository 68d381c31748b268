package ecr

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// DeadHandleError is returned by every handle-consuming operation when the
// handle's version no longer matches its slot, or its storage index is out
// of range for the Registry.
type DeadHandleError struct {
	Handle Handle
}

func (e DeadHandleError) Error() string {
	return fmt.Sprintf("ecr: handle %v is dead", e.Handle)
}

// MissingComponentError is returned by Get/Erase when the entity does not
// carry the requested component type. Distinguished from DeadHandleError so
// callers can decide whether to Put instead.
type MissingComponentError struct {
	Handle Handle
	Type   TypeKey
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("ecr: entity %v has no component %v", e.Handle, e.Type)
}

// StaleReferenceError is returned when a SafeReference is dereferenced after
// its target entity migrated to an archetype that no longer carries the
// referenced component, or was erased outright.
type StaleReferenceError struct {
	Handle Handle
	Type   TypeKey
}

func (e StaleReferenceError) Error() string {
	return fmt.Sprintf("ecr: reference to %v on %v is stale", e.Type, e.Handle)
}

// InvalidIndexError signals an internal precondition violation (a row index
// out of range for a column or archetype). It is a programmer error: it
// should never be reachable through the public API on well-formed input.
type InvalidIndexError struct {
	Index int
	Len   int
}

func (e InvalidIndexError) Error() string {
	return fmt.Sprintf("ecr: index %d out of range (len %d)", e.Index, e.Len)
}

// SignatureConflictError signals an operation that does not fit an
// archetype's shape: Registry.Swap returns it for two entities in different
// archetypes, and the column accessors panic with it when a column's storage
// type is not the one they expect.
type SignatureConflictError struct {
	Type TypeKey
}

func (e SignatureConflictError) Error() string {
	return fmt.Sprintf("ecr: signature conflict on type key %v", e.Type)
}

// OutOfCapacityError signals that a slot map shard's index space
// (1<<index_bits slots) is exhausted. It is fatal for the affected Registry
// instance; the caller decides how to respond (a library must not exit the
// process on its own).
type OutOfCapacityError struct {
	Shard int
}

func (e OutOfCapacityError) Error() string {
	return fmt.Sprintf("ecr: slot map shard %d is out of capacity", e.Shard)
}

// fatal wraps a programmer or capacity error with a stack trace and panics,
// matching the teacher's panic(bark.AddTrace(err)) idiom for unrecoverable
// conditions.
func fatal(err error) {
	panic(bark.AddTrace(err))
}
