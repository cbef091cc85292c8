package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/photark/photark/internal/catalog"
)

// AssetRepository is the PostgreSQL implementation of catalog.AssetWriter.
type AssetRepository struct {
	pool   *Pool
	logger *zap.Logger
}

var _ catalog.AssetWriter = (*AssetRepository)(nil)

// NewAssetRepository creates a new PostgreSQL asset repository.
func NewAssetRepository(pool *Pool, logger *zap.Logger) *AssetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetRepository{pool: pool, logger: logger}
}

// GetByID fetches one asset by id with the requested relation expansions.
// Returns nil when no row matches.
func (r *AssetRepository) GetByID(ctx context.Context, id uuid.UUID, relations catalog.AssetRelations) (*catalog.Asset, error) {
	q := newAssetQuery()
	applyRelations(q, relations, false)
	q.where("assets.id = ?", id)

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

// GetByIDs fetches assets by id, chunked to stay below the driver's
// parameter limits.
func (r *AssetRepository) GetByIDs(ctx context.Context, ids []uuid.UUID, relations catalog.AssetRelations) ([]catalog.Asset, error) {
	var out []catalog.Asset
	for _, chunk := range chunkUUIDs(ids) {
		q := newAssetQuery()
		applyRelations(q, relations, false)
		q.where("assets.id = ANY(?)", pq.Array(uuidStrings(chunk)))

		assets, err := r.pool.queryAssets(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("get assets by ids: %w", err)
		}
		out = append(out, assets...)
	}
	return out, nil
}

// GetByChecksum resolves an asset by owner, library and content hash. A nil
// libraryID matches only direct uploads, mirroring the partial unique
// indexes on (owner_id, library_id, checksum).
func (r *AssetRepository) GetByChecksum(ctx context.Context, ownerID uuid.UUID, libraryID *uuid.UUID, checksum catalog.HexBytes) (*catalog.Asset, error) {
	q := newAssetQuery()
	q.where("assets.owner_id = ?", ownerID)
	q.where("assets.checksum = ?", []byte(checksum))
	if libraryID != nil {
		q.where("assets.library_id = ?", *libraryID)
	} else {
		q.where("assets.library_id IS NULL")
	}

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get asset by checksum: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

// GetByDeviceIDs returns which of the given device asset ids already exist
// for the device, for upload deduplication.
func (r *AssetRepository) GetByDeviceIDs(ctx context.Context, ownerID uuid.UUID, deviceID string, deviceAssetIDs []string) ([]string, error) {
	if len(deviceAssetIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT device_asset_id FROM assets
		WHERE owner_id = $1 AND device_id = $2 AND device_asset_id = ANY($3)`,
		ownerID, deviceID, pq.Array(deviceAssetIDs))
	if err != nil {
		return nil, fmt.Errorf("get assets by device ids: %w", err)
	}
	return scanStrings(rows)
}

// AllByDeviceID lists every visible, non-deleted device asset id uploaded
// from the device.
func (r *AssetRepository) AllByDeviceID(ctx context.Context, ownerID uuid.UUID, deviceID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT device_asset_id FROM assets
		WHERE owner_id = $1 AND device_id = $2
		  AND is_visible = true AND deleted_at IS NULL`,
		ownerID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list device asset ids: %w", err)
	}
	return scanStrings(rows)
}

// Search returns one page of assets matching the filter set, ordered by
// creation time. Ascending unless the options say otherwise.
func (r *AssetRepository) Search(ctx context.Context, pagination catalog.PaginationOptions, options catalog.AssetSearchOptions) (catalog.Page[catalog.Asset], error) {
	return searchPage(ctx, r.pool, pagination, options, "assets.created_at", catalog.SortAsc)
}

// searchPage is the one filtered, ordered, offset-paginated search path,
// shared by Search and SearchMetadata.
func searchPage(ctx context.Context, pool *Pool, pagination catalog.PaginationOptions, options catalog.AssetSearchOptions, orderColumn string, defaultOrder catalog.SortOrder) (catalog.Page[catalog.Asset], error) {
	var page catalog.Page[catalog.Asset]
	if err := catalog.ValidateRange("take", pagination.Take, 1, catalog.MaxPageSize); err != nil {
		return page, err
	}
	if pagination.Skip < 0 {
		return page, &catalog.ValidationError{Field: "skip", Value: pagination.Skip, Reason: "must not be negative"}
	}

	q := newAssetQuery()
	applySearchFilters(q, options)
	applyRelations(q, relationsFromOptions(options), options.WithDeleted)

	direction := options.OrderDirection
	if direction == "" {
		direction = defaultOrder
	}
	if direction == catalog.SortDesc {
		q.orderBy(orderColumn + " DESC")
	} else {
		q.orderBy(orderColumn + " ASC")
	}
	q.page(pagination.Take+1, pagination.Skip)

	assets, err := pool.queryAssets(ctx, q)
	if err != nil {
		return page, fmt.Errorf("search assets: %w", err)
	}
	return catalog.Paginate(assets, pagination.Take), nil
}

// relationsFromOptions maps the search option flags to relation expansions.
func relationsFromOptions(o catalog.AssetSearchOptions) catalog.AssetRelations {
	return catalog.AssetRelations{
		Exif:        o.WithExif,
		Faces:       o.WithFaces,
		People:      o.WithPeople,
		Files:       o.WithFiles,
		Stack:       o.WithStacked,
		StackAssets: o.WithStacked,
	}
}

// WithoutDerived pages through visible assets missing the given derived
// artifact, feeding the processing pipelines.
func (r *AssetRepository) WithoutDerived(ctx context.Context, pagination catalog.PaginationOptions, kind catalog.DerivedKind) (catalog.Page[catalog.Asset], error) {
	var page catalog.Page[catalog.Asset]
	if err := catalog.ValidateRange("take", pagination.Take, 1, catalog.MaxPageSize); err != nil {
		return page, err
	}

	q := newAssetQuery()
	q.where("assets.is_visible = true")
	q.where("assets.deleted_at IS NULL")

	joinJobStatus := func() {
		q.join("job_status", "LEFT JOIN asset_job_status js ON js.asset_id = assets.id")
	}

	switch kind {
	case catalog.DerivedMetadata:
		joinJobStatus()
		q.where("js.metadata_extracted_at IS NULL")
	case catalog.DerivedPreview:
		joinJobStatus()
		q.where("js.preview_at IS NULL")
	case catalog.DerivedThumbnail:
		joinJobStatus()
		q.where("js.thumbnail_at IS NULL")
	case catalog.DerivedFaces:
		joinJobStatus()
		q.where("js.faces_recognized_at IS NULL")
	case catalog.DerivedDuplicates:
		// Duplicate detection needs an embedding to compare.
		joinJobStatus()
		q.where("js.duplicates_detected_at IS NULL")
		q.where("EXISTS (SELECT 1 FROM smart_search ss WHERE ss.asset_id = assets.id)")
	case catalog.DerivedSmartSearch:
		q.where("NOT EXISTS (SELECT 1 FROM smart_search ss WHERE ss.asset_id = assets.id)")
	case catalog.DerivedEncodedVideo:
		q.where("assets.type = ?", string(catalog.AssetTypeVideo))
		q.where("assets.encoded_video_path IS NULL")
	default:
		return page, &catalog.ValidationError{Field: "kind", Value: string(kind), Reason: "unknown derived artifact"}
	}

	q.orderBy("assets.created_at ASC")
	q.page(pagination.Take+1, pagination.Skip)

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return page, fmt.Errorf("list assets without %s: %w", kind, err)
	}
	return catalog.Paginate(assets, pagination.Take), nil
}

// bucketExpr is the truncated local capture date used by the timeline.
const bucketExpr = "date_trunc(?, (assets.local_date_time AT TIME ZONE 'UTC'))::date::text"

// TimeBuckets aggregates matching assets into truncated-date buckets,
// newest first.
func (r *AssetRepository) TimeBuckets(ctx context.Context, options catalog.TimeBucketOptions) ([]catalog.TimeBucketItem, error) {
	size, err := bucketSize(options.Size)
	if err != nil {
		return nil, err
	}

	q := newQuery("assets")
	q.selectExpr(bucketExpr+" AS time_bucket", "time_bucket", size)
	q.selectExpr("count(*) AS count", "count")
	applyTimeBucketFilters(q, options)
	q.groupBy("1")
	q.orderBy("1 DESC")

	query, args := q.SQL()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate time buckets: %w", err)
	}
	defer rows.Close()

	var items []catalog.TimeBucketItem
	for rows.Next() {
		var item catalog.TimeBucketItem
		if err := rows.Scan(&item.TimeBucket, &item.Count); err != nil {
			return nil, fmt.Errorf("scan time bucket: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time buckets: %w", err)
	}
	return items, nil
}

// TimeBucket returns the full asset rows of exactly one bucket, with EXIF
// attached, newest first.
func (r *AssetRepository) TimeBucket(ctx context.Context, bucket string, options catalog.TimeBucketOptions) ([]catalog.Asset, error) {
	size, err := bucketSize(options.Size)
	if err != nil {
		return nil, err
	}

	q := newAssetQuery()
	withExifRelation(q)
	applyTimeBucketFilters(q, options)
	q.where(bucketExpr+" = ?", size, bucket)
	q.orderBy("assets.local_date_time DESC")

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load time bucket: %w", err)
	}
	return assets, nil
}

func bucketSize(size catalog.TimeBucketSize) (string, error) {
	switch size {
	case catalog.TimeBucketDay, catalog.TimeBucketMonth, catalog.TimeBucketYear:
		return string(size), nil
	}
	return "", &catalog.ValidationError{Field: "size", Value: string(size), Reason: "must be day, month or year"}
}

func applyTimeBucketFilters(q *assetQuery, o catalog.TimeBucketOptions) {
	if o.IsTrashed {
		q.where("assets.deleted_at IS NOT NULL")
	} else {
		q.where("assets.deleted_at IS NULL")
	}
	q.where("assets.is_visible = true")

	if len(o.OwnerIDs) > 0 {
		q.where("assets.owner_id = ANY(?)", pq.Array(uuidStrings(o.OwnerIDs)))
	}
	if o.AlbumID != nil {
		q.join("album_members", "INNER JOIN albums_assets_assets aa ON aa.assets_id = assets.id")
		q.where("aa.albums_id = ?", *o.AlbumID)
	}
	if o.PersonID != nil {
		q.join("person_faces", "INNER JOIN asset_faces bf ON bf.asset_id = assets.id")
		q.where("bf.person_id = ?", *o.PersonID)
	}
	if o.AssetType != nil {
		q.where("assets.type = ?", string(*o.AssetType))
	}
	if o.IsArchived != nil {
		q.where("assets.is_archived = ?", *o.IsArchived)
	}
	if o.IsFavorite != nil {
		q.where("assets.is_favorite = ?", *o.IsFavorite)
	}
	if o.IsDuplicate != nil {
		if *o.IsDuplicate {
			q.where("assets.duplicate_id IS NOT NULL")
		} else {
			q.where("assets.duplicate_id IS NULL")
		}
	}
	if o.WithStacked {
		// A stacked asset is counted only through its stack's primary.
		q.where(`(assets.stack_id IS NULL OR EXISTS (
			SELECT 1 FROM asset_stack s
			WHERE s.id = assets.stack_id AND s.primary_asset_id = assets.id))`)
	}
}

// MapMarkers lists geotagged assets reduced to map pin data, newest first.
func (r *AssetRepository) MapMarkers(ctx context.Context, ownerIDs []uuid.UUID, options catalog.MapMarkerOptions) ([]catalog.MapMarker, error) {
	q := newQuery("assets",
		"assets.id", "exif.latitude", "exif.longitude",
		"exif.city", "exif.state", "exif.country")
	joinExif(q)
	q.where("exif.latitude IS NOT NULL")
	q.where("exif.longitude IS NOT NULL")
	q.where("assets.is_visible = true")
	q.where("assets.deleted_at IS NULL")
	if len(ownerIDs) > 0 {
		q.where("assets.owner_id = ANY(?)", pq.Array(uuidStrings(ownerIDs)))
	}
	if options.IsArchived != nil {
		q.where("assets.is_archived = ?", *options.IsArchived)
	}
	if options.IsFavorite != nil {
		q.where("assets.is_favorite = ?", *options.IsFavorite)
	}
	if options.FileCreatedAfter != nil {
		q.where("assets.file_created_at >= ?", *options.FileCreatedAfter)
	}
	if options.FileCreatedBefore != nil {
		q.where("assets.file_created_at <= ?", *options.FileCreatedBefore)
	}
	q.orderBy("assets.file_created_at DESC")

	query, args := q.SQL()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list map markers: %w", err)
	}
	defer rows.Close()

	var markers []catalog.MapMarker
	for rows.Next() {
		var m catalog.MapMarker
		if err := rows.Scan(&m.ID, &m.Lat, &m.Lon, &m.City, &m.State, &m.Country); err != nil {
			return nil, fmt.Errorf("scan map marker: %w", err)
		}
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate map markers: %w", err)
	}
	return markers, nil
}

// Statistics counts a user's assets per type.
func (r *AssetRepository) Statistics(ctx context.Context, ownerID uuid.UUID, options catalog.AssetStatsOptions) (catalog.AssetStats, error) {
	var stats catalog.AssetStats

	q := newQuery("assets", "assets.type", "count(*)")
	q.where("assets.owner_id = ?", ownerID)
	q.where("assets.is_visible = true")
	if options.IsTrashed {
		q.where("assets.deleted_at IS NOT NULL")
	} else {
		q.where("assets.deleted_at IS NULL")
	}
	if options.IsArchived != nil {
		q.where("assets.is_archived = ?", *options.IsArchived)
	}
	if options.IsFavorite != nil {
		q.where("assets.is_favorite = ?", *options.IsFavorite)
	}
	q.groupBy("assets.type")

	query, args := q.SQL()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("count assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assetType string
		var count int64
		if err := rows.Scan(&assetType, &count); err != nil {
			return stats, fmt.Errorf("scan asset count: %w", err)
		}
		switch catalog.AssetType(assetType) {
		case catalog.AssetTypeAudio:
			stats.Audio = count
		case catalog.AssetTypeImage:
			stats.Images = count
		case catalog.AssetTypeVideo:
			stats.Videos = count
		default:
			stats.Other = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate asset counts: %w", err)
	}
	return stats, nil
}

// exploreColumns maps explorable field names to their exif columns. Field
// names arrive from callers, so only allowlisted columns reach the query.
var exploreColumns = map[string]string{
	"city":    "exif.city",
	"state":   "exif.state",
	"country": "exif.country",
	"make":    "exif.make",
	"model":   "exif.model",
}

// ExploreByField returns one representative asset per distinct value of the
// given EXIF field with at least MinAssetsPerField assets, capped at
// MaxFields values.
func (r *AssetRepository) ExploreByField(ctx context.Context, ownerID uuid.UUID, field string, options catalog.ExploreFieldOptions) (catalog.ExploreResult, error) {
	result := catalog.ExploreResult{FieldName: field}

	column, ok := exploreColumns[field]
	if !ok {
		return result, &catalog.ValidationError{Field: "field", Value: field, Reason: "must be city, state, country, make or model"}
	}

	minAssets := options.MinAssetsPerField
	if minAssets < 1 {
		minAssets = 1
	}
	maxFields := options.MaxFields
	if maxFields < 1 {
		maxFields = catalog.PlaceResultLimit
	}

	q := newQuery("assets", column, "assets.id")
	q.withCTE("field_values", `
		SELECT `+column+` AS value
		FROM exif
		JOIN assets ON assets.id = exif.asset_id
		WHERE `+column+` IS NOT NULL
		  AND assets.owner_id = ?
		  AND assets.is_visible = true
		  AND assets.deleted_at IS NULL
		GROUP BY `+column+`
		HAVING count(*) >= ?`, ownerID, minAssets)
	q.distinctOn(column)
	joinExif(q)
	q.join("field_values", "INNER JOIN field_values ON field_values.value = "+column)
	q.where("assets.owner_id = ?", ownerID)
	q.where("assets.is_visible = true")
	q.where("assets.deleted_at IS NULL")
	q.orderBy(column)
	q.page(maxFields, -1)

	query, args := q.SQL()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return result, fmt.Errorf("explore by %s: %w", field, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item catalog.ExploreItem
		if err := rows.Scan(&item.Value, &item.Data); err != nil {
			return result, fmt.Errorf("scan explore item: %w", err)
		}
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate explore items: %w", err)
	}
	return result, nil
}

// maxMemoryDates bounds how many past dates a memories query returns.
const maxMemoryDates = 10

// ByDayOfYear returns assets taken on the given month/day across past
// years, grouped per date, newest date first.
func (r *AssetRepository) ByDayOfYear(ctx context.Context, ownerIDs []uuid.UUID, month, day int) ([]catalog.DayOfYearGroup, error) {
	if err := catalog.ValidateRange("month", month, 1, 12); err != nil {
		return nil, err
	}
	if err := catalog.ValidateRange("day", day, 1, 31); err != nil {
		return nil, err
	}

	q := newAssetQuery()
	withExifRelation(q)
	q.where("EXTRACT(MONTH FROM assets.local_date_time AT TIME ZONE 'UTC') = ?", month)
	q.where("EXTRACT(DAY FROM assets.local_date_time AT TIME ZONE 'UTC') = ?", day)
	q.where("EXTRACT(YEAR FROM assets.local_date_time AT TIME ZONE 'UTC') < ?", time.Now().UTC().Year())
	if len(ownerIDs) > 0 {
		q.where("assets.owner_id = ANY(?)", pq.Array(uuidStrings(ownerIDs)))
	}
	q.where("assets.is_visible = true")
	q.where("assets.is_archived = false")
	q.where("assets.deleted_at IS NULL")
	// Only assets with a rendered preview make usable memories.
	q.where("EXISTS (SELECT 1 FROM asset_files af WHERE af.asset_id = assets.id AND af.type = ?)",
		string(catalog.AssetFilePreview))
	q.orderBy("assets.local_date_time DESC")

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("memories query: %w", err)
	}

	currentYear := time.Now().UTC().Year()
	byYear := make(map[int][]catalog.Asset)
	for _, a := range assets {
		byYear[a.LocalDateTime.UTC().Year()] = append(byYear[a.LocalDateTime.UTC().Year()], a)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > maxMemoryDates {
		years = years[:maxMemoryDates]
	}

	groups := make([]catalog.DayOfYearGroup, 0, len(years))
	for _, y := range years {
		groups = append(groups, catalog.DayOfYearGroup{
			YearsAgo: currentYear - y,
			Assets:   byYear[y],
		})
	}
	return groups, nil
}

// Random returns up to take random visible assets.
func (r *AssetRepository) Random(ctx context.Context, ownerIDs []uuid.UUID, take int) ([]catalog.Asset, error) {
	if err := catalog.ValidateRange("take", take, 1, catalog.MaxPageSize); err != nil {
		return nil, err
	}

	q := newAssetQuery()
	if len(ownerIDs) > 0 {
		q.where("assets.owner_id = ANY(?)", pq.Array(uuidStrings(ownerIDs)))
	}
	q.where("assets.is_visible = true")
	q.where("assets.is_archived = false")
	q.where("assets.deleted_at IS NULL")
	q.orderBy("random()")
	q.page(take, -1)

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("random assets: %w", err)
	}
	return assets, nil
}

// Duplicates lists the caller's duplicate groups with full asset rows.
func (r *AssetRepository) Duplicates(ctx context.Context, ownerID uuid.UUID) ([]catalog.DuplicateGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT assets.duplicate_id, jsonb_agg(to_jsonb(assets))
		FROM assets
		WHERE assets.owner_id = $1
		  AND assets.duplicate_id IS NOT NULL
		  AND assets.is_visible = true
		  AND assets.deleted_at IS NULL
		GROUP BY assets.duplicate_id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []catalog.DuplicateGroup
	for rows.Next() {
		var g catalog.DuplicateGroup
		var raw []byte
		if err := rows.Scan(&g.DuplicateID, &raw); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		if err := unmarshalAssets(raw, &g.Assets); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate groups: %w", err)
	}
	return groups, nil
}

// FullSync is the keyset-paginated bulk listing for device sync; ids are
// strictly increasing across pages, so concurrent inserts never skip or
// repeat rows present at snapshot time.
func (r *AssetRepository) FullSync(ctx context.Context, options catalog.FullSyncOptions) ([]catalog.Asset, error) {
	if err := catalog.ValidateRange("limit", options.Limit, 1, catalog.MaxPageSize); err != nil {
		return nil, err
	}

	q := newAssetQuery()
	withExifRelation(q)
	withStackRelation(q, false, false)
	q.where("assets.owner_id = ?", options.OwnerID)
	q.where("assets.is_visible = true")
	q.where("assets.updated_at <= ?", options.UpdatedUntil)
	if options.LastID != nil {
		q.where("assets.id > ?", *options.LastID)
	}
	q.orderBy("assets.id ASC")
	q.page(options.Limit, -1)

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("full sync: %w", err)
	}
	return assets, nil
}

// DeltaSync lists visible assets updated strictly after a timestamp, each
// carrying its current stack sibling count.
func (r *AssetRepository) DeltaSync(ctx context.Context, options catalog.DeltaSyncOptions) ([]catalog.Asset, error) {
	if err := catalog.ValidateRange("limit", options.Limit, 1, catalog.MaxPageSize); err != nil {
		return nil, err
	}

	q := newAssetQuery()
	withExifRelation(q)
	withStackRelation(q, false, false)
	q.selectExpr(`CASE WHEN assets.stack_id IS NULL THEN NULL ELSE (
		SELECT count(*) FROM assets sa WHERE sa.stack_id = assets.stack_id
	) END AS stacked_count`, "stacked_count")
	if len(options.OwnerIDs) > 0 {
		q.where("assets.owner_id = ANY(?)", pq.Array(uuidStrings(options.OwnerIDs)))
	}
	q.where("assets.is_visible = true")
	q.where("assets.updated_at > ?", options.UpdatedAfter)
	q.orderBy("assets.updated_at ASC")
	q.page(options.Limit, -1)

	assets, err := r.pool.queryAssets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("delta sync: %w", err)
	}
	return assets, nil
}

// Create inserts a new asset. A zero id is assigned server-side.
func (r *AssetRepository) Create(ctx context.Context, asset *catalog.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assets (
			id, owner_id, library_id, device_asset_id, device_id, type,
			checksum, original_path, original_file_name, encoded_video_path,
			thumbhash, is_visible, is_archived, is_favorite, is_offline,
			is_external, duration, stack_id, duplicate_id,
			live_photo_video_id, file_created_at, file_modified_at,
			local_date_time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23
		)`,
		asset.ID, asset.OwnerID, asset.LibraryID, asset.DeviceAssetID,
		asset.DeviceID, string(asset.Type), []byte(asset.Checksum),
		asset.OriginalPath, asset.OriginalFileName, asset.EncodedVideoPath,
		asset.Thumbhash, asset.IsVisible, asset.IsArchived, asset.IsFavorite,
		asset.IsOffline, asset.IsExternal, asset.Duration, asset.StackID,
		asset.DuplicateID, asset.LivePhotoVideoID, asset.FileCreatedAt,
		asset.FileModifiedAt, asset.LocalDateTime)
	if err != nil {
		return fmt.Errorf("create asset: %w", mapWriteError("assets", err))
	}
	return nil
}

// Remove hard-deletes an asset; derived rows cascade.
func (r *AssetRepository) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM assets WHERE id = $1", id); err != nil {
		return fmt.Errorf("remove asset: %w", mapWriteError("assets", err))
	}
	return nil
}

// UpdateAll applies the partial update to every listed asset, chunked. Each
// chunk is idempotent on its own.
func (r *AssetRepository) UpdateAll(ctx context.Context, ids []uuid.UUID, update catalog.AssetUpdate) error {
	sets, args := updateClauses(update)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	for _, chunk := range chunkUUIDs(ids) {
		chunkArgs := append(append([]any{}, args...), pq.Array(uuidStrings(chunk)))
		query := rebind("UPDATE assets SET " + strings.Join(sets, ", ") + " WHERE id = ANY(?)")
		if _, err := r.pool.Exec(ctx, query, chunkArgs...); err != nil {
			return fmt.Errorf("update assets: %w", mapWriteError("assets", err))
		}
	}
	return nil
}

func updateClauses(u catalog.AssetUpdate) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if u.IsFavorite != nil {
		add("is_favorite", *u.IsFavorite)
	}
	if u.IsArchived != nil {
		add("is_archived", *u.IsArchived)
	}
	if u.IsOffline != nil {
		add("is_offline", *u.IsOffline)
	}
	if u.IsVisible != nil {
		add("is_visible", *u.IsVisible)
	}
	if u.StackID != nil {
		add("stack_id", *u.StackID)
	}
	if u.DuplicateID != nil {
		add("duplicate_id", *u.DuplicateID)
	}
	if u.LivePhotoVideoID != nil {
		add("live_photo_video_id", *u.LivePhotoVideoID)
	}
	if u.Thumbhash != nil {
		add("thumbhash", []byte(u.Thumbhash))
	}
	if u.EncodedVideoPath != nil {
		add("encoded_video_path", *u.EncodedVideoPath)
	}
	return sets, args
}

// UpdateDuplicates merges duplicate groups: every asset in the listed groups
// plus the listed loose assets joins the target group.
func (r *AssetRepository) UpdateDuplicates(ctx context.Context, merge catalog.DuplicateMerge) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE assets SET duplicate_id = $1, updated_at = NOW()
		WHERE duplicate_id = ANY($2) OR id = ANY($3)`,
		merge.TargetDuplicateID,
		pq.Array(uuidStrings(merge.DuplicateIDs)),
		pq.Array(uuidStrings(merge.AssetIDs)))
	if err != nil {
		return fmt.Errorf("merge duplicate groups: %w", mapWriteError("assets", err))
	}
	return nil
}

// SoftDeleteAll marks the listed assets trashed, chunked.
func (r *AssetRepository) SoftDeleteAll(ctx context.Context, ids []uuid.UUID, deletedAt time.Time) error {
	for _, chunk := range chunkUUIDs(ids) {
		_, err := r.pool.Exec(ctx, `
			UPDATE assets SET deleted_at = $1, updated_at = NOW()
			WHERE id = ANY($2)`,
			deletedAt, pq.Array(uuidStrings(chunk)))
		if err != nil {
			return fmt.Errorf("soft delete assets: %w", mapWriteError("assets", err))
		}
	}
	return nil
}

// RestoreAll clears the trashed state of the listed assets, chunked.
func (r *AssetRepository) RestoreAll(ctx context.Context, ids []uuid.UUID) error {
	for _, chunk := range chunkUUIDs(ids) {
		_, err := r.pool.Exec(ctx, `
			UPDATE assets SET deleted_at = NULL, updated_at = NOW()
			WHERE id = ANY($1)`,
			pq.Array(uuidStrings(chunk)))
		if err != nil {
			return fmt.Errorf("restore assets: %w", mapWriteError("assets", err))
		}
	}
	return nil
}

// UpsertExif inserts or updates EXIF metadata, touching only the columns
// present in the payload.
func (r *AssetRepository) UpsertExif(ctx context.Context, exif *catalog.Exif) error {
	cols, args := exifValues(exif)
	query, err := upsertSQL(exifManifest, cols)
	if err != nil {
		return err
	}
	allArgs := append([]any{exif.AssetID}, args...)
	if _, err := r.pool.Exec(ctx, query, allArgs...); err != nil {
		return fmt.Errorf("upsert exif: %w", mapWriteError("exif", err))
	}
	return nil
}

// UpsertJobStatus inserts or updates pipeline stage timestamps, touching
// only the stages present in the payload.
func (r *AssetRepository) UpsertJobStatus(ctx context.Context, status *catalog.JobStatus) error {
	cols, args := jobStatusValues(status)
	query, err := upsertSQL(jobStatusManifest, cols)
	if err != nil {
		return err
	}
	allArgs := append([]any{status.AssetID}, args...)
	if _, err := r.pool.Exec(ctx, query, allArgs...); err != nil {
		return fmt.Errorf("upsert job status: %w", mapWriteError("asset_job_status", err))
	}
	return nil
}

// UpsertFile records a derived file path; one file per type per asset.
func (r *AssetRepository) UpsertFile(ctx context.Context, assetID uuid.UUID, fileType catalog.AssetFileType, path string) error {
	query, err := upsertSQL(assetFileManifest, []string{"path"})
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query, assetID, string(fileType), path); err != nil {
		return fmt.Errorf("upsert asset file: %w", mapWriteError("asset_files", err))
	}
	return nil
}

// scanStrings drains a single-column text result set.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// unmarshalAssets decodes a jsonb_agg of asset rows.
func unmarshalAssets(raw []byte, out *[]catalog.Asset) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode asset rows: %w", err)
	}
	return nil
}
