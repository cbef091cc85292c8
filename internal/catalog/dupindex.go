package catalog

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

// DuplicateIndex is an optional in-memory ANN index over smart-search
// embeddings, used to answer duplicate candidate queries without a database
// round trip. It is rebuilt from the smart_search table and always falls
// behind writes until the next rebuild; callers fall back to the storage
// engine when the index is not loaded.
type DuplicateIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
}

// NewDuplicateIndex creates an empty index.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		vectors: make(map[string][]float32),
	}
}

// Build replaces the index contents with the given embeddings.
func (d *DuplicateIndex) Build(entries []EmbeddingEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(entries) == 0 {
		d.graph = nil
		d.vectors = make(map[string][]float32)
		return nil
	}

	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	vectors := make(map[string][]float32, len(entries))
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		key := e.AssetID.String()
		g.Add(hnsw.MakeNode(key, e.Embedding))
		vectors[key] = e.Embedding
	}

	d.graph = g
	d.vectors = vectors
	return nil
}

// Add inserts or replaces a single embedding.
func (d *DuplicateIndex) Add(entry EmbeddingEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.graph == nil || len(entry.Embedding) == 0 {
		return
	}
	key := entry.AssetID.String()
	d.graph.Add(hnsw.MakeNode(key, entry.Embedding))
	d.vectors[key] = entry.Embedding
}

// Count returns the number of indexed embeddings.
func (d *DuplicateIndex) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.vectors)
}

// Loaded reports whether the index holds a usable graph.
func (d *DuplicateIndex) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.graph != nil
}

// Search returns up to k asset ids within maxDistance of the query vector,
// ordered by non-decreasing cosine distance. Distances are recomputed
// exactly from the stored vectors; the graph only proposes candidates.
func (d *DuplicateIndex) Search(query []float32, k int, maxDistance float64) ([]uuid.UUID, []float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.graph == nil {
		return nil, nil, errors.New("duplicate index not loaded")
	}

	searchK := k * HNSWSearchMultiplier
	if searchK < 100 {
		searchK = 100
	}

	neighbors := d.graph.Search(query, searchK)

	ids := make([]uuid.UUID, 0, k)
	distances := make([]float64, 0, k)
	for _, n := range neighbors {
		vec, ok := d.vectors[n.Key]
		if !ok || len(vec) == 0 {
			continue
		}
		dist := CosineDistance(query, vec)
		if dist > maxDistance {
			continue
		}
		id, err := uuid.Parse(n.Key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		distances = append(distances, dist)
		if len(ids) >= k {
			break
		}
	}

	return ids, distances, nil
}
