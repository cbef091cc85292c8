package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssetReader provides read access to assets and their derived views.
// Single-entity lookups return nil (not an error) when no row matches.
type AssetReader interface {
	// GetByID fetches one asset with the requested relation expansions.
	GetByID(ctx context.Context, id uuid.UUID, relations AssetRelations) (*Asset, error)
	// GetByIDs fetches assets by id, chunked, with relation expansions.
	GetByIDs(ctx context.Context, ids []uuid.UUID, relations AssetRelations) ([]Asset, error)
	// GetByChecksum resolves an asset by owner, library and content hash.
	// A nil libraryID matches only assets with no library.
	GetByChecksum(ctx context.Context, ownerID uuid.UUID, libraryID *uuid.UUID, checksum HexBytes) (*Asset, error)
	// GetByDeviceIDs returns which of the given device asset ids already
	// exist for the device, for upload deduplication.
	GetByDeviceIDs(ctx context.Context, ownerID uuid.UUID, deviceID string, deviceAssetIDs []string) ([]string, error)
	// AllByDeviceID lists every visible, non-deleted device asset id
	// uploaded from the device.
	AllByDeviceID(ctx context.Context, ownerID uuid.UUID, deviceID string) ([]string, error)

	// Search returns one page of assets matching the filter set, ordered
	// by creation time.
	Search(ctx context.Context, pagination PaginationOptions, options AssetSearchOptions) (Page[Asset], error)
	// WithoutDerived pages through visible assets missing the given
	// derived artifact, for the processing pipelines.
	WithoutDerived(ctx context.Context, pagination PaginationOptions, kind DerivedKind) (Page[Asset], error)

	// TimeBuckets aggregates matching assets into truncated-date buckets,
	// newest first.
	TimeBuckets(ctx context.Context, options TimeBucketOptions) ([]TimeBucketItem, error)
	// TimeBucket returns the full asset rows of exactly one bucket.
	TimeBucket(ctx context.Context, bucket string, options TimeBucketOptions) ([]Asset, error)

	MapMarkers(ctx context.Context, ownerIDs []uuid.UUID, options MapMarkerOptions) ([]MapMarker, error)
	Statistics(ctx context.Context, ownerID uuid.UUID, options AssetStatsOptions) (AssetStats, error)
	// ExploreByField returns one representative asset per distinct value of
	// a categorical EXIF field (city, state, country, make or model).
	ExploreByField(ctx context.Context, ownerID uuid.UUID, field string, options ExploreFieldOptions) (ExploreResult, error)
	// ByDayOfYear returns assets taken on the given month/day across past
	// years, grouped per date, newest date first.
	ByDayOfYear(ctx context.Context, ownerIDs []uuid.UUID, month, day int) ([]DayOfYearGroup, error)
	Random(ctx context.Context, ownerIDs []uuid.UUID, take int) ([]Asset, error)
	// Duplicates lists the caller's duplicate groups.
	Duplicates(ctx context.Context, ownerID uuid.UUID) ([]DuplicateGroup, error)

	// FullSync is the keyset-paginated bulk listing for device sync; ids
	// are strictly increasing across pages.
	FullSync(ctx context.Context, options FullSyncOptions) ([]Asset, error)
	// DeltaSync lists visible assets updated strictly after a timestamp,
	// with each asset's current stack sibling count.
	DeltaSync(ctx context.Context, options DeltaSyncOptions) ([]Asset, error)
}

// AssetWriter provides write access to assets and their derived data. All
// upserts are idempotent and update only the columns present in the input.
type AssetWriter interface {
	AssetReader

	Create(ctx context.Context, asset *Asset) error
	Remove(ctx context.Context, id uuid.UUID) error
	// UpdateAll applies the partial update to every listed asset, chunked.
	UpdateAll(ctx context.Context, ids []uuid.UUID, update AssetUpdate) error
	// UpdateDuplicates merges duplicate groups into the target group.
	UpdateDuplicates(ctx context.Context, merge DuplicateMerge) error
	SoftDeleteAll(ctx context.Context, ids []uuid.UUID, deletedAt time.Time) error
	RestoreAll(ctx context.Context, ids []uuid.UUID) error

	UpsertExif(ctx context.Context, exif *Exif) error
	UpsertJobStatus(ctx context.Context, status *JobStatus) error
	UpsertFile(ctx context.Context, assetID uuid.UUID, fileType AssetFileType, path string) error
}

// SearchReader provides the similarity and aggregation search surface.
type SearchReader interface {
	// SearchMetadata is filter search ordered by capture time.
	SearchMetadata(ctx context.Context, pagination PaginationOptions, options AssetSearchOptions) (Page[Asset], error)
	// SearchSmart is filter search ordered by embedding distance to the
	// query vector, nearest first.
	SearchSmart(ctx context.Context, pagination PaginationOptions, options SmartSearchOptions) (Page[Asset], error)
	// SearchDuplicates returns same-type, same-owner candidates within
	// MaxDistance of the query embedding, nearest first, bounded by
	// DuplicateCandidateLimit before distance filtering.
	SearchDuplicates(ctx context.Context, options DuplicateSearchOptions) ([]DuplicateResult, error)
	SearchFaces(ctx context.Context, options FaceSearchOptions) ([]FaceSearchResult, error)
	// SearchPlaces is fuzzy trigram search over the gazetteer.
	SearchPlaces(ctx context.Context, name string) ([]GeodataPlace, error)
	// AssetsByCity returns one asset per distinct city, city-ordered.
	AssetsByCity(ctx context.Context, ownerIDs []uuid.UUID) ([]Asset, error)
}

// SearchWriter adds embedding persistence and vector dimension management.
type SearchWriter interface {
	SearchReader

	UpsertEmbedding(ctx context.Context, assetID uuid.UUID, embedding []float32) error
	UpsertFaceEmbedding(ctx context.Context, faceID uuid.UUID, embedding []float32) error
	DeleteAllEmbeddings(ctx context.Context) error

	// DimensionSize reports the current width of the smart-search vector
	// column.
	DimensionSize(ctx context.Context) (int, error)
	// SetDimensionSize resizes the vector column. Destructive: discards
	// all embeddings and rebuilds the index, atomically.
	SetDimensionSize(ctx context.Context, dim int) error
}
