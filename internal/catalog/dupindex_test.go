package catalog

import (
	"testing"

	"github.com/google/uuid"
)

func buildTestIndex(t *testing.T, entries []EmbeddingEntry) *DuplicateIndex {
	t.Helper()
	idx := NewDuplicateIndex()
	if err := idx.Build(entries); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return idx
}

func TestDuplicateIndexSearch(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	idx := buildTestIndex(t, []EmbeddingEntry{
		{AssetID: a, Embedding: []float32{1, 0, 0}},
		{AssetID: b, Embedding: []float32{0.99, 0.1, 0}},
		{AssetID: c, Embedding: []float32{0, 1, 0}},
	})

	ids, distances, err := idx.Search([]float32{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d results, want 2 (orthogonal vector excluded)", len(ids))
	}
	if ids[0] != a {
		t.Errorf("nearest should be the identical vector, got %s", ids[0])
	}
	if ids[1] != b {
		t.Errorf("second should be the near vector, got %s", ids[1])
	}
	if distances[0] > distances[1] {
		t.Errorf("distances not ordered: %v", distances)
	}
}

func TestDuplicateIndexMaxDistance(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	idx := buildTestIndex(t, []EmbeddingEntry{
		{AssetID: a, Embedding: []float32{1, 0}},
		{AssetID: b, Embedding: []float32{-1, 0}},
	})

	ids, _, err := idx.Search([]float32{1, 0}, 10, 0.01)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != a {
		t.Errorf("expected only the identical vector, got %v", ids)
	}
}

func TestDuplicateIndexCapsResults(t *testing.T) {
	entries := make([]EmbeddingEntry, 10)
	for i := range entries {
		entries[i] = EmbeddingEntry{
			AssetID:   uuid.New(),
			Embedding: []float32{1, float32(i) * 0.001},
		}
	}
	idx := buildTestIndex(t, entries)

	ids, _, err := idx.Search([]float32{1, 0}, 3, 2.0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("got %d results, want 3", len(ids))
	}
}

func TestDuplicateIndexNotLoaded(t *testing.T) {
	idx := NewDuplicateIndex()
	if idx.Loaded() {
		t.Error("empty index reports loaded")
	}
	if _, _, err := idx.Search([]float32{1, 0}, 5, 1.0); err == nil {
		t.Error("expected error searching an unloaded index")
	}
}

func TestDuplicateIndexBuildAndCount(t *testing.T) {
	idx := buildTestIndex(t, []EmbeddingEntry{
		{AssetID: uuid.New(), Embedding: []float32{1, 0}},
		{AssetID: uuid.New(), Embedding: []float32{0, 1}},
		{AssetID: uuid.New(), Embedding: nil}, // skipped
	})
	if got := idx.Count(); got != 2 {
		t.Errorf("Count = %d; want 2", got)
	}
	if !idx.Loaded() {
		t.Error("built index should report loaded")
	}

	// Rebuild with nothing clears the graph.
	if err := idx.Build(nil); err != nil {
		t.Fatalf("Build(nil) failed: %v", err)
	}
	if idx.Loaded() {
		t.Error("cleared index should not report loaded")
	}
}
