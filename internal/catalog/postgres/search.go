package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/photark/photark/internal/catalog"
)

// SearchRepository is the PostgreSQL implementation of catalog.SearchWriter,
// with an optional in-memory HNSW accelerator for duplicate search.
type SearchRepository struct {
	pool   *Pool
	logger *zap.Logger

	dupMu    sync.RWMutex
	dupIndex *catalog.DuplicateIndex
}

var _ catalog.SearchWriter = (*SearchRepository)(nil)

// NewSearchRepository creates a new PostgreSQL search repository.
func NewSearchRepository(pool *Pool, logger *zap.Logger) *SearchRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchRepository{pool: pool, logger: logger}
}

// SetDuplicateIndex installs (or clears) the in-memory duplicate
// accelerator. Duplicate search falls back to pgvector while unset.
func (r *SearchRepository) SetDuplicateIndex(idx *catalog.DuplicateIndex) {
	r.dupMu.Lock()
	defer r.dupMu.Unlock()
	r.dupIndex = idx
}

func (r *SearchRepository) duplicateIndex() *catalog.DuplicateIndex {
	r.dupMu.RLock()
	defer r.dupMu.RUnlock()
	if r.dupIndex != nil && r.dupIndex.Loaded() {
		return r.dupIndex
	}
	return nil
}

// SearchMetadata is filter search ordered by capture time, newest first
// unless the options say otherwise.
func (r *SearchRepository) SearchMetadata(ctx context.Context, pagination catalog.PaginationOptions, options catalog.AssetSearchOptions) (catalog.Page[catalog.Asset], error) {
	return searchPage(ctx, r.pool, pagination, options, "assets.file_created_at", catalog.SortDesc)
}

// SearchSmart is filter search ordered by embedding distance to the query
// vector, nearest first.
func (r *SearchRepository) SearchSmart(ctx context.Context, pagination catalog.PaginationOptions, options catalog.SmartSearchOptions) (catalog.Page[catalog.Asset], error) {
	var page catalog.Page[catalog.Asset]
	if err := catalog.ValidateRange("take", pagination.Take, 1, catalog.MaxVectorResults); err != nil {
		return page, err
	}
	if pagination.Skip < 0 {
		return page, &catalog.ValidationError{Field: "skip", Value: pagination.Skip, Reason: "must not be negative"}
	}
	if len(options.Embedding) == 0 {
		return page, &catalog.ValidationError{Field: "embedding", Value: 0, Reason: "query embedding is required"}
	}

	q := newAssetQuery()
	applySearchFilters(q, options.AssetSearchOptions)
	applyRelations(q, relationsFromOptions(options.AssetSearchOptions), options.WithDeleted)
	q.join("smart_search", "INNER JOIN smart_search ON smart_search.asset_id = assets.id")
	q.orderBy("smart_search.embedding <=> ?", pgvector.NewVector(options.Embedding))
	q.page(pagination.Take+1, pagination.Skip)

	query, args := q.SQL()
	assets, err := r.queryAssetsEf(ctx, query, args, q.extras)
	if err != nil {
		return page, fmt.Errorf("smart search: %w", err)
	}
	return catalog.Paginate(assets, pagination.Take), nil
}

// queryAssetsEf runs an asset query inside a read-only transaction with
// hnsw.ef_search raised, the pgvector recall knob for ANN ordering.
func (r *SearchRepository) queryAssetsEf(ctx context.Context, query string, args []any, extras []string) ([]catalog.Asset, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", catalog.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return scanAssets(rows, extras)
}

// SearchDuplicates returns same-type, same-owner candidates within
// MaxDistance of the query embedding, nearest first. The candidate pool is
// capped at DuplicateCandidateLimit before distance filtering, a deliberate
// recall-for-cost trade. Served from the in-memory index when loaded.
func (r *SearchRepository) SearchDuplicates(ctx context.Context, options catalog.DuplicateSearchOptions) ([]catalog.DuplicateResult, error) {
	if len(options.Embedding) == 0 {
		return nil, &catalog.ValidationError{Field: "embedding", Value: 0, Reason: "query embedding is required"}
	}

	if idx := r.duplicateIndex(); idx != nil {
		return r.searchDuplicatesIndexed(ctx, idx, options)
	}
	return r.searchDuplicatesPostgres(ctx, options)
}

func (r *SearchRepository) searchDuplicatesPostgres(ctx context.Context, options catalog.DuplicateSearchOptions) ([]catalog.DuplicateResult, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", catalog.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		WITH cte AS (
			SELECT assets.id AS asset_id,
			       assets.duplicate_id,
			       smart_search.embedding <=> $1 AS distance
			FROM assets
			JOIN smart_search ON smart_search.asset_id = assets.id
			WHERE assets.owner_id = ANY($2)
			  AND assets.deleted_at IS NULL
			  AND assets.is_visible = true
			  AND assets.type = $3
			  AND assets.id <> $4
			ORDER BY distance
			LIMIT $5
		)
		SELECT asset_id, duplicate_id, distance
		FROM cte
		WHERE distance <= $6`,
		pgvector.NewVector(options.Embedding),
		pq.Array(uuidStrings(options.OwnerIDs)),
		string(options.Type),
		options.AssetID,
		catalog.DuplicateCandidateLimit,
		options.MaxDistance)
	if err != nil {
		return nil, fmt.Errorf("duplicate search: %w", err)
	}
	defer rows.Close()

	var results []catalog.DuplicateResult
	for rows.Next() {
		var res catalog.DuplicateResult
		var dupID uuid.NullUUID
		if err := rows.Scan(&res.AssetID, &dupID, &res.Distance); err != nil {
			return nil, fmt.Errorf("scan duplicate candidate: %w", err)
		}
		if dupID.Valid {
			res.DuplicateID = &dupID.UUID
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate candidates: %w", err)
	}
	return results, nil
}

// searchDuplicatesIndexed asks the HNSW graph for candidates, then filters
// owner, type and trash state through one metadata query. Distance order
// from the graph is preserved.
func (r *SearchRepository) searchDuplicatesIndexed(ctx context.Context, idx *catalog.DuplicateIndex, options catalog.DuplicateSearchOptions) ([]catalog.DuplicateResult, error) {
	ids, distances, err := idx.Search(options.Embedding, catalog.DuplicateCandidateLimit, options.MaxDistance)
	if err != nil {
		return nil, fmt.Errorf("duplicate index search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, duplicate_id FROM assets
		WHERE id = ANY($1)
		  AND owner_id = ANY($2)
		  AND type = $3
		  AND id <> $4
		  AND deleted_at IS NULL
		  AND is_visible = true`,
		pq.Array(uuidStrings(ids)),
		pq.Array(uuidStrings(options.OwnerIDs)),
		string(options.Type),
		options.AssetID)
	if err != nil {
		return nil, fmt.Errorf("duplicate candidate filter: %w", err)
	}
	defer rows.Close()

	type meta struct {
		dupID *uuid.UUID
	}
	eligible := make(map[uuid.UUID]meta, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var dupID uuid.NullUUID
		if err := rows.Scan(&id, &dupID); err != nil {
			return nil, fmt.Errorf("scan duplicate candidate: %w", err)
		}
		m := meta{}
		if dupID.Valid {
			m.dupID = &dupID.UUID
		}
		eligible[id] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate candidates: %w", err)
	}

	var results []catalog.DuplicateResult
	for i, id := range ids {
		m, ok := eligible[id]
		if !ok {
			continue
		}
		results = append(results, catalog.DuplicateResult{
			AssetID:     id,
			DuplicateID: m.dupID,
			Distance:    distances[i],
		})
	}
	return results, nil
}

// SearchFaces returns faces within MaxDistance of the query embedding,
// nearest first, capped at NumResults.
func (r *SearchRepository) SearchFaces(ctx context.Context, options catalog.FaceSearchOptions) ([]catalog.FaceSearchResult, error) {
	if err := catalog.ValidateRange("numResults", options.NumResults, 1, catalog.MaxVectorResults); err != nil {
		return nil, err
	}
	if len(options.Embedding) == 0 {
		return nil, &catalog.ValidationError{Field: "embedding", Value: 0, Reason: "query embedding is required"}
	}

	personFilter := ""
	if options.HasPerson {
		personFilter = "AND asset_faces.person_id IS NOT NULL"
	}

	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", catalog.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		WITH cte AS (
			SELECT asset_faces.id,
			       asset_faces.asset_id,
			       asset_faces.person_id,
			       asset_faces.image_width,
			       asset_faces.image_height,
			       asset_faces.bounding_box_x1,
			       asset_faces.bounding_box_y1,
			       asset_faces.bounding_box_x2,
			       asset_faces.bounding_box_y2,
			       face_search.embedding <=> $1 AS distance
			FROM asset_faces
			JOIN face_search ON face_search.face_id = asset_faces.id
			JOIN assets ON assets.id = asset_faces.asset_id
			WHERE assets.owner_id = ANY($2)
			  AND assets.deleted_at IS NULL
			  %s
			ORDER BY distance
			LIMIT $3
		)
		SELECT * FROM cte WHERE distance <= $4`, personFilter),
		pgvector.NewVector(options.Embedding),
		pq.Array(uuidStrings(options.OwnerIDs)),
		options.NumResults,
		options.MaxDistance)
	if err != nil {
		return nil, fmt.Errorf("face search: %w", err)
	}
	defer rows.Close()

	var results []catalog.FaceSearchResult
	for rows.Next() {
		var res catalog.FaceSearchResult
		var personID uuid.NullUUID
		err := rows.Scan(
			&res.Face.ID, &res.Face.AssetID, &personID,
			&res.Face.ImageWidth, &res.Face.ImageHeight,
			&res.Face.BoundingBoxX1, &res.Face.BoundingBoxY1,
			&res.Face.BoundingBoxX2, &res.Face.BoundingBoxY2,
			&res.Distance)
		if err != nil {
			return nil, fmt.Errorf("scan face result: %w", err)
		}
		if personID.Valid {
			res.Face.PersonID = &personID.UUID
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face results: %w", err)
	}
	return results, nil
}

// SearchPlaces is fuzzy trigram search over the gazetteer: four name fields
// matched word-similarly, ranked by summed distance with a neutral 0.1
// contribution for fields that do not match at all.
func (r *SearchRepository) SearchPlaces(ctx context.Context, name string) ([]catalog.GeodataPlace, error) {
	name = catalog.NormalizeSearchTerm(name)
	if name == "" {
		return nil, &catalog.ValidationError{Field: "name", Value: name, Reason: "must not be empty"}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, longitude, latitude, country_code,
		       admin1_code, admin2_code, admin1_name, admin2_name,
		       alternate_names
		FROM geodata_places
		WHERE f_unaccent(name) %>> f_unaccent($1)
		   OR f_unaccent(admin2_name) %>> f_unaccent($1)
		   OR f_unaccent(admin1_name) %>> f_unaccent($1)
		   OR f_unaccent(alternate_names) %>> f_unaccent($1)
		ORDER BY
			COALESCE(f_unaccent(name) <->>> f_unaccent($1), 0.1)
			+ COALESCE(f_unaccent(admin2_name) <->>> f_unaccent($1), 0.1)
			+ COALESCE(f_unaccent(admin1_name) <->>> f_unaccent($1), 0.1)
			+ COALESCE(f_unaccent(alternate_names) <->>> f_unaccent($1), 0.1)
		LIMIT $2`,
		name, catalog.PlaceResultLimit)
	if err != nil {
		return nil, fmt.Errorf("place search: %w", err)
	}
	defer rows.Close()

	var places []catalog.GeodataPlace
	for rows.Next() {
		var p catalog.GeodataPlace
		err := rows.Scan(
			&p.ID, &p.Name, &p.Longitude, &p.Latitude, &p.CountryCode,
			&p.Admin1Code, &p.Admin2Code, &p.Admin1Name, &p.Admin2Name,
			&p.AlternateNames)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return places, nil
}

// AssetsByCity returns one asset per distinct city, city-ordered. The
// recursive CTE walks cities through the exif city index instead of sorting
// the whole join.
func (r *SearchRepository) AssetsByCity(ctx context.Context, ownerIDs []uuid.UUID) ([]catalog.Asset, error) {
	owners := pq.Array(uuidStrings(ownerIDs))
	step := `
		SELECT e.city, e.asset_id
		FROM exif e
		JOIN assets a ON a.id = e.asset_id
		WHERE a.owner_id = ANY($1)
		  AND a.is_visible = true
		  AND a.is_archived = false
		  AND a.deleted_at IS NULL
		  AND e.city IS NOT NULL`

	query := `
		WITH RECURSIVE cte AS (
			(` + step + `
			ORDER BY e.city
			LIMIT 1)
			UNION ALL
			SELECT l.city, l.asset_id
			FROM cte
			CROSS JOIN LATERAL (` + step + `
				AND e.city > cte.city
				ORDER BY e.city
				LIMIT 1
			) l
		)
		SELECT ` + strings.Join(assetColumns, ", ") + `,
		       jsonb_strip_nulls(to_jsonb(exif)) AS exif
		FROM assets
		JOIN cte ON cte.asset_id = assets.id
		LEFT JOIN exif ON exif.asset_id = assets.id
		ORDER BY cte.city`

	rows, err := r.pool.Query(ctx, query, owners)
	if err != nil {
		return nil, fmt.Errorf("assets by city: %w", err)
	}
	return scanAssets(rows, []string{"exif"})
}

// UpsertEmbedding stores an asset's smart-search vector.
func (r *SearchRepository) UpsertEmbedding(ctx context.Context, assetID uuid.UUID, embedding []float32) error {
	if len(embedding) == 0 {
		return &catalog.ValidationError{Field: "embedding", Value: 0, Reason: "must not be empty"}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO smart_search (asset_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (asset_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		assetID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", mapWriteError("smart_search", err))
	}
	return nil
}

// UpsertFaceEmbedding stores a face's embedding vector.
func (r *SearchRepository) UpsertFaceEmbedding(ctx context.Context, faceID uuid.UUID, embedding []float32) error {
	if len(embedding) == 0 {
		return &catalog.ValidationError{Field: "embedding", Value: 0, Reason: "must not be empty"}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO face_search (face_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (face_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		faceID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("upsert face embedding: %w", mapWriteError("face_search", err))
	}
	return nil
}

// DeleteAllEmbeddings clears the smart-search table, the first step of a
// model change.
func (r *SearchRepository) DeleteAllEmbeddings(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "TRUNCATE smart_search"); err != nil {
		return fmt.Errorf("truncate smart_search: %w", err)
	}
	return nil
}

// AllEmbeddings streams every smart-search vector, used to rebuild the
// in-memory duplicate index.
func (r *SearchRepository) AllEmbeddings(ctx context.Context) ([]catalog.EmbeddingEntry, error) {
	rows, err := r.pool.Query(ctx, "SELECT asset_id, embedding FROM smart_search")
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	var entries []catalog.EmbeddingEntry
	for rows.Next() {
		var e catalog.EmbeddingEntry
		var vec pgvector.Vector
		if err := rows.Scan(&e.AssetID, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.Embedding = vec.Slice()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return entries, nil
}

// DimensionSize reports the current width of the smart-search vector
// column, read from the catalog.
func (r *SearchRepository) DimensionSize(ctx context.Context) (int, error) {
	var dim int
	err := r.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		WHERE c.relname = 'smart_search' AND a.attname = 'embedding'`).Scan(&dim)
	if err != nil {
		return 0, &catalog.ConfigurationError{
			Key:    "smart_search.embedding",
			Reason: fmt.Sprintf("cannot read dimension: %v", err),
		}
	}
	if dim < catalog.MinDimension || dim > catalog.MaxDimension {
		return 0, &catalog.ConfigurationError{
			Key:    "smart_search.embedding",
			Reason: fmt.Sprintf("stored dimension %d out of bounds", dim),
		}
	}
	return dim, nil
}

// SetDimensionSize resizes the embedding columns. Destructive: discards all
// embeddings, retypes the columns and rebuilds both ANN indexes in one
// transaction, so readers never observe a torn schema.
func (r *SearchRepository) SetDimensionSize(ctx context.Context, dim int) error {
	if err := catalog.ValidateRange("dimension", dim, catalog.MinDimension, catalog.MaxDimension); err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		"TRUNCATE smart_search",
		"TRUNCATE face_search",
		fmt.Sprintf("ALTER TABLE smart_search ALTER COLUMN embedding SET DATA TYPE vector(%d)", dim),
		fmt.Sprintf("ALTER TABLE face_search ALTER COLUMN embedding SET DATA TYPE vector(%d)", dim),
		"REINDEX INDEX clip_index",
		"REINDEX INDEX face_index",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("resize embedding dimension: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dimension resize: %w", err)
	}

	r.logger.Info("resized embedding dimension", zap.Int("dimension", dim))
	return nil
}
