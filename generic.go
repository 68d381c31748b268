package ecr

// Go forbids generic methods, so the typed, per-component operations spec.md
// describes as Registry methods are free functions parameterized by [T any]
// instead — the same shape the teacher's Component/table.Accessor pair would
// take if warehouse's table package exposed generics.

// Has reports whether the entity behind h currently carries a component of
// type T.
func Has[T any](r *Registry, h Handle) bool {
	shard := r.shardFor(h)
	arch, _, ok := shard.Lookup(h)
	if !ok {
		return false
	}
	return arch.has(TypeKeyOf[T]())
}

// Get returns a copy of the entity's T component. Returns DeadHandleError if
// h is dead, or MissingComponentError if the entity doesn't carry T.
func Get[T any](r *Registry, h Handle) (T, error) {
	var zero T
	shard := r.shardFor(h)
	arch, row, ok := shard.Lookup(h)
	if !ok {
		return zero, DeadHandleError{Handle: h}
	}
	if !arch.has(TypeKeyOf[T]()) {
		return zero, MissingComponentError{Handle: h, Type: TypeKeyOf[T]()}
	}
	return get[T](arch, row), nil
}

// Put sets the entity's T component to value, adding T to its signature (and
// migrating it to the matching archetype) if it didn't already carry one.
func Put[T any](r *Registry, h Handle, value T) error {
	registerComponentType[T]()
	shard := r.shardFor(h)
	arch, row, ok := shard.Lookup(h)
	if !ok {
		return DeadHandleError{Handle: h}
	}
	key := TypeKeyOf[T]()
	if !arch.has(key) {
		target := arch.signature.withType(key)
		if err := r.migrate(h, target); err != nil {
			return err
		}
		arch, row, ok = shard.Lookup(h)
		if !ok {
			return DeadHandleError{Handle: h}
		}
	}
	put[T](arch, row, value)
	return nil
}

// Erase removes the entity's T component, migrating it to the matching
// smaller archetype. Returns DeadHandleError if h is dead, or
// MissingComponentError if the entity doesn't carry T.
func Erase[T any](r *Registry, h Handle) error {
	shard := r.shardFor(h)
	arch, _, ok := shard.Lookup(h)
	if !ok {
		return DeadHandleError{Handle: h}
	}
	key := TypeKeyOf[T]()
	if !arch.has(key) {
		return MissingComponentError{Handle: h, Type: key}
	}
	target := arch.signature.withoutType(key)
	return r.migrate(h, target)
}
