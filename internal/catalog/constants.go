package catalog

// Query and pagination bounds.
const (
	// MaxPageSize caps offset-paginated listings.
	MaxPageSize = 10000

	// MaxVectorResults caps smart search page size and face search result
	// counts, matching the ANN index's useful working set.
	MaxVectorResults = 1000

	// DuplicateCandidateLimit bounds the ANN candidate window consulted by
	// duplicate search before distance filtering. Candidates beyond the
	// window are never considered, trading recall for bounded query cost.
	DuplicateCandidateLimit = 64

	// PlaceResultLimit is the number of gazetteer rows returned by place
	// search.
	PlaceResultLimit = 20

	// ChunkSize bounds id lists per statement so batch updates stay below
	// the driver's parameter limit. Each chunk is idempotent on its own.
	ChunkSize = 500
)

// Vector dimension bounds. The embedding column width is process-wide state
// changed only via a destructive migration.
const (
	MinDimension = 1
	MaxDimension = 1 << 16
)

// HNSW parameters for the in-memory duplicate index.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWSearchMultiplier requests extra candidates from the graph so
	// enough survive distance filtering.
	HNSWSearchMultiplier = 3

	// HNSWEfSearch is the pgvector hnsw.ef_search value set per similarity
	// query for better recall than the server default.
	HNSWEfSearch = 100
)
