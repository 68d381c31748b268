package ecr

import "sync"

// operation is one deferred mutation queued while a Registry is in deferred
// mode. Adapted from the teacher's operation_queue.go EntityOperation: each
// operation knows how to re-check its own precondition (the handle is still
// the same entity it was queued against) before applying, since anything may
// have happened to the entity between Enqueue and drain.
type operation interface {
	apply(r *Registry)
}

// operationQueue buffers operations while a Registry is inside a
// BeginDefer/EndDefer span, and replays them once the outermost span ends —
// the same role the
// teacher's entityOperationsQueue plays against a single Locked() bool, but
// keyed here off an explicit defer-depth counter instead of storage-wide
// lock bits, since Registry's own lock hierarchy (dirMu, shard locks,
// archetype locks) already serializes structural access.
type operationQueue struct {
	mu    sync.Mutex
	depth int
	ops   []operation
}

// BeginDefer enters deferred mode: structural mutations made through the
// Defer* methods are queued instead of applied immediately. Calls nest; the
// queue only drains once the matching number of EndDefer calls has been
// made.
func (r *Registry) BeginDefer() {
	r.opQueue.mu.Lock()
	r.opQueue.depth++
	r.opQueue.mu.Unlock()
}

// EndDefer leaves one level of deferred mode, draining and applying every
// queued operation in FIFO order once depth returns to zero.
func (r *Registry) EndDefer() {
	r.opQueue.mu.Lock()
	r.opQueue.depth--
	if r.opQueue.depth > 0 {
		r.opQueue.mu.Unlock()
		return
	}
	ops := r.opQueue.ops
	r.opQueue.ops = nil
	r.opQueue.mu.Unlock()

	for _, op := range ops {
		op.apply(r)
	}
}

// Deferred reports whether the Registry is currently inside a
// BeginDefer/EndDefer span.
func (r *Registry) Deferred() bool {
	r.opQueue.mu.Lock()
	defer r.opQueue.mu.Unlock()
	return r.opQueue.depth > 0
}

func (r *Registry) enqueue(op operation) bool {
	r.opQueue.mu.Lock()
	defer r.opQueue.mu.Unlock()
	if r.opQueue.depth == 0 {
		return false
	}
	r.opQueue.ops = append(r.opQueue.ops, op)
	return true
}

type insertOp struct {
	tags   []TagKey
	values []any
}

func (op insertOp) apply(r *Registry) {
	_, _ = r.InsertWithTags(op.tags, op.values...)
}

// DeferInsert behaves like InsertWithTags, except while the Registry is
// inside a BeginDefer/EndDefer span: then the insert is queued and applied
// when the span ends, and no handle is available to the caller immediately
// (matching the teacher's NewEntityOperation, which defers exactly the same
// way).
func (r *Registry) DeferInsert(tags []TagKey, values ...any) {
	if r.enqueue(insertOp{tags: tags, values: values}) {
		return
	}
	_, _ = r.InsertWithTags(tags, values...)
}

type eraseEntityOp struct {
	handle Handle
}

func (op eraseEntityOp) apply(r *Registry) {
	_ = r.EraseEntity(op.handle)
}

// DeferErase behaves like EraseEntity, except while deferred: the erase is
// queued and the entity is only actually removed once the defer span ends.
// If the handle has already died by then, applying the queued op is simply
// a no-op (EraseEntity returns DeadHandleError, which is discarded here the
// same way the teacher's DestroyEntityOperation.Apply discards a stale
// entity rather than erroring the whole drain).
func (r *Registry) DeferErase(h Handle) {
	if r.enqueue(eraseEntityOp{handle: h}) {
		return
	}
	_ = r.EraseEntity(h)
}

type addTagsOp struct {
	handle Handle
	tags   []TagKey
}

func (op addTagsOp) apply(r *Registry) {
	_ = r.AddTags(op.handle, op.tags...)
}

// DeferAddTags behaves like AddTags, except while deferred.
func (r *Registry) DeferAddTags(h Handle, tags ...TagKey) {
	if r.enqueue(addTagsOp{handle: h, tags: tags}) {
		return
	}
	_ = r.AddTags(h, tags...)
}

type eraseTagsOp struct {
	handle Handle
	tags   []TagKey
}

func (op eraseTagsOp) apply(r *Registry) {
	_ = r.EraseTags(op.handle, op.tags...)
}

// DeferEraseTags behaves like EraseTags, except while deferred.
func (r *Registry) DeferEraseTags(h Handle, tags ...TagKey) {
	if r.enqueue(eraseTagsOp{handle: h, tags: tags}) {
		return
	}
	_ = r.EraseTags(h, tags...)
}
