package ecr

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
)

func TestLiveStatsCountsEntitiesAndAverages(t *testing.T) {
	reg := NewRegistry()
	reg.Insert(rPosition{})
	reg.Insert(rPosition{}, rVelocity{})

	stats := reg.LiveStats()
	if stats.Entities != 2 {
		t.Errorf("Entities = %d, want 2", stats.Entities)
	}
	if stats.Archetypes != 2 {
		t.Errorf("Archetypes = %d, want 2", stats.Archetypes)
	}
	if stats.AvgComponentCount != 1.5 {
		t.Errorf("AvgComponentCount = %v, want 1.5", stats.AvgComponentCount)
	}
}

func TestSnapshotToTextProducesValidJSON(t *testing.T) {
	reg := NewRegistry()
	posKey := TypeKeyOf[rPosition]()
	reg.Names().NameType(posKey, "Position")
	h, _ := reg.Insert(rPosition{X: 3, Y: 4})

	var buf bytes.Buffer
	if err := reg.SnapshotToText(&buf); err != nil {
		t.Fatalf("SnapshotToText: %v", err)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("snapshot output is not valid JSON: %v", err)
	}
	if doc.Entities != 1 {
		t.Errorf("doc.Entities = %d, want 1", doc.Entities)
	}
	if len(doc.Archetypes) != 1 {
		t.Fatalf("len(doc.Archetypes) = %d, want 1", len(doc.Archetypes))
	}
	arch := doc.Archetypes[0]
	if len(arch.Types) != 1 || arch.Types[0] != uint64(posKey) {
		t.Errorf("archetype types = %v, want [%d] (raw type_key)", arch.Types, uint64(posKey))
	}
	if len(arch.Maps) != 1 || arch.Maps[0].ID != uint64(posKey) || arch.Maps[0].Name != "Position" {
		t.Errorf("archetype maps = %+v, want [{%d Position}]", arch.Maps, uint64(posKey))
	}
	if len(arch.Entities) != 1 {
		t.Fatalf("len(arch.Entities) = %d, want 1", len(arch.Entities))
	}
	ent := arch.Entities[0]
	if ent.Value != uint64(h) {
		t.Errorf("entity value = %d, want raw handle %d", ent.Value, uint64(h))
	}
	if len(ent.Values) != 1 {
		t.Fatalf("len(ent.Values) = %d, want 1 (positional, matching maps order)", len(ent.Values))
	}
}
