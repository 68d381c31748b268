/*
Package ecr provides an in-process Entity-Component Registry: a runtime data
store that associates versioned entity handles with heterogeneous bundles of
typed components and untyped tags, and lets consumers query entities by
component signature.

ECR groups entities with identical component signatures into archetypes, so
that iterating a query walks dense, contiguous columns instead of chasing
pointers. Structural edits (adding or removing a component or tag) migrate
the affected row from its source archetype to a destination archetype,
recomputing the signature along the way.

Core Concepts:

  - Entity handle: a versioned, comparable 64-bit value that never aliases a
    pointer. A handle remains safely comparable after its entity is erased;
    it just stops being "alive".
  - Component: a typed value attached to an entity, identified by a stable
    type key and stored in a segmented column inside its archetype.
  - Tag: a caller-supplied key with no associated storage, used only to
    partition entities for queries.
  - Archetype: the set of entities sharing an identical signature
    (component types + tags), plus their columnar storage.
  - View: a snapshotted query over archetypes matching a component/tag
    predicate.

Basic Usage:

	reg := ecr.NewRegistry()

	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	h, _ := reg.Insert(Position{X: 10, Y: 20}, Velocity{X: 1, Y: 2})

	view := reg.View(ecr.Required(ecr.TypeKeyOf[Position](), ecr.TypeKeyOf[Velocity]()))
	ecr.Iterate2(view, func(h ecr.Handle, pos *Position, vel *Velocity) bool {
		pos.X += vel.X
		pos.Y += vel.Y
		return true
	})

ECR is the storage core of a larger simulation engine; the GUI inspector,
the JSON/TCP snapshot transport, and the task scheduler that drives worker
threads against a Registry are external collaborators, not part of this
package.
*/
package ecr
