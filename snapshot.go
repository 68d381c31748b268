package ecr

import (
	"io"

	json "github.com/goccy/go-json"
)

// LiveStats summarizes a Registry's current occupancy, the figures the
// external inspector's plots are built from (spec.md §6: "live_stats()
// returns current entity count, average component count per entity, and
// estimated memory usage derived from per-column byte sums").
type LiveStats struct {
	Entities          int     `json:"entities"`
	Archetypes        int     `json:"archetypes"`
	AvgComponentCount float64 `json:"avg_component_count"`
	EstimatedBytes    uint64  `json:"estimated_bytes"`
}

// LiveStats computes a fresh snapshot of occupancy statistics. It walks
// every archetype under a read lock each, so it reflects a point-in-time
// view rather than a single atomic instant across the whole Registry.
func (r *Registry) LiveStats() LiveStats {
	r.dirMu.RLock()
	archetypes := append([]*Archetype(nil), r.archetypeList...)
	r.dirMu.RUnlock()

	stats := LiveStats{Archetypes: len(archetypes)}
	componentSum := 0
	for _, arch := range archetypes {
		arch.mu.RLock()
		size := arch.size()
		stats.Entities += size
		typeCount := 0
		arch.columns.ForEach(func(key uint64, col column) bool {
			typeCount++
			if info, ok := lookupComponentInfo(TypeKey(key)); ok {
				stats.EstimatedBytes += uint64(col.Len()) * uint64(info.size)
			}
			return true
		})
		componentSum += typeCount * size
		arch.mu.RUnlock()
	}
	stats.EstimatedBytes += uint64(stats.Entities) * 8 // the implicit handle column
	if stats.Entities > 0 {
		stats.AvgComponentCount = float64(componentSum) / float64(stats.Entities)
	}
	return stats
}

// nameMapping pairs a raw type_key with its host-registered display name,
// the snapshot's "maps" array — the only place a name ever appears in the
// wire format itself. A consumer with no registered names still gets the
// raw keys and can resolve them itself via type_name/tag_name.
type nameMapping struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// snapshotEntity is the per-entity record in the text snapshot's schema.
// Value is the entity's raw packed Handle; Values holds its component data
// in the archetype's column order (the same order Maps lists), not keyed
// by name, matching spec.md §6's "component values are emitted in the
// archetype's column order".
type snapshotEntity struct {
	Index   uint32 `json:"index"`
	Version uint32 `json:"version"`
	Storage uint8  `json:"storage"`
	Value   uint64 `json:"value"`
	Values  []any  `json:"values"`
}

// snapshotArchetype is the per-archetype record. Types and Tags carry raw
// type_key/tag_key values, not resolved names — a consumer resolves them
// itself via Maps (for types) or a separate type_name/tag_name call,
// per spec.md §6's snapshot/type_name/tag_name split.
type snapshotArchetype struct {
	Hash     uint64           `json:"hash"`
	Types    []uint64         `json:"types"`
	Tags     []uint64         `json:"tags"`
	Maps     []nameMapping    `json:"maps"`
	Entities []snapshotEntity `json:"entities"`
}

// snapshotDocument is the top-level schema spec.md §6 describes:
// {entities, archetypes: [{hash, types, tags, maps, entities: [{index,
// version, storage, value, values}]}]}.
type snapshotDocument struct {
	Entities   int                 `json:"entities"`
	Archetypes []snapshotArchetype `json:"archetypes"`
}

// SnapshotToText serializes the Registry's full current state to writer as
// JSON, using goccy/go-json rather than encoding/json as the teacher's
// satellite packages do for their own wire/IO formats. It never copies
// component bytes directly; it extracts each value through reflection so
// the resulting document is a human-readable record, not a binary dump.
func (r *Registry) SnapshotToText(writer io.Writer) error {
	r.dirMu.RLock()
	archetypes := append([]*Archetype(nil), r.archetypeList...)
	r.dirMu.RUnlock()

	doc := snapshotDocument{}
	for _, arch := range archetypes {
		arch.mu.RLock()
		rec := snapshotArchetype{Hash: arch.signature.Hash()}

		// typeOrder fixes the column order maps/values both walk, so a
		// consumer can match values[i] against maps[i]["id"] positionally.
		var typeOrder []TypeKey
		arch.signature.ForEachTypeKey(func(k TypeKey) {
			rec.Types = append(rec.Types, uint64(k))
			rec.Maps = append(rec.Maps, nameMapping{ID: uint64(k), Name: r.names.TypeName(k)})
			typeOrder = append(typeOrder, k)
		})
		arch.signature.ForEachTagKey(func(k TagKey) {
			rec.Tags = append(rec.Tags, uint64(k))
		})

		for row, h := range arch.handles {
			if h == InvalidHandle {
				continue
			}
			ent := snapshotEntity{
				Index:   r.codec.index(h),
				Version: r.codec.version(h),
				Storage: r.codec.storage(h),
				Value:   uint64(h),
			}
			for _, k := range typeOrder {
				if col, ok := arch.columns.Get(uint64(k)); ok {
					ent.Values = append(ent.Values, columnValueAt(col, row))
				}
			}
			rec.Entities = append(rec.Entities, ent)
		}
		doc.Entities += len(rec.Entities)
		doc.Archetypes = append(doc.Archetypes, rec)
		arch.mu.RUnlock()
	}

	enc := json.NewEncoder(writer)
	return enc.Encode(doc)
}

// columnValueAt extracts row's value from col as an any, regardless of
// whether col is a typed segmentedColumn[T] or a reflection-backed
// dynamicColumn.
func columnValueAt(col column, row int) any {
	if dyn, ok := col.(*dynamicColumn); ok {
		return dyn.ValueAt(row).Interface()
	}
	return col.(valueAtAny).valueAtAny(row)
}

// valueAtAny lets snapshot code read a segmentedColumn[T]'s row without
// knowing T, via the type-specific accessor segmentedColumn[T] implements
// below.
type valueAtAny interface {
	valueAtAny(row int) any
}

func (c *segmentedColumn[T]) valueAtAny(row int) any {
	return c.Get(row)
}
