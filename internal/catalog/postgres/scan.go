package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/photark/photark/internal/catalog"
)

// assetColumns is the full asset select list, in struct scan order.
var assetColumns = []string{
	"assets.id",
	"assets.owner_id",
	"assets.library_id",
	"assets.device_asset_id",
	"assets.device_id",
	"assets.type",
	"assets.checksum",
	"assets.original_path",
	"assets.original_file_name",
	"assets.encoded_video_path",
	"assets.thumbhash",
	"assets.is_visible",
	"assets.is_archived",
	"assets.is_favorite",
	"assets.is_offline",
	"assets.is_external",
	"assets.duration",
	"assets.stack_id",
	"assets.duplicate_id",
	"assets.live_photo_video_id",
	"assets.file_created_at",
	"assets.file_modified_at",
	"assets.local_date_time",
	"assets.created_at",
	"assets.updated_at",
	"assets.deleted_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAsset reads one asset row plus any extra select expressions planned by
// the relation expansions. Extras arrive as jsonb and are unmarshaled into
// the matching relation field; the stacked_count extra is a plain bigint.
func scanAsset(row rowScanner, extras []string) (catalog.Asset, error) {
	var a catalog.Asset
	var libraryID, stackID, duplicateID, livePhotoVideoID uuid.NullUUID
	var encodedVideoPath, duration sql.NullString
	var deletedAt sql.NullTime

	dest := []any{
		&a.ID,
		&a.OwnerID,
		&libraryID,
		&a.DeviceAssetID,
		&a.DeviceID,
		&a.Type,
		&a.Checksum,
		&a.OriginalPath,
		&a.OriginalFileName,
		&encodedVideoPath,
		&a.Thumbhash,
		&a.IsVisible,
		&a.IsArchived,
		&a.IsFavorite,
		&a.IsOffline,
		&a.IsExternal,
		&duration,
		&stackID,
		&duplicateID,
		&livePhotoVideoID,
		&a.FileCreatedAt,
		&a.FileModifiedAt,
		&a.LocalDateTime,
		&a.CreatedAt,
		&a.UpdatedAt,
		&deletedAt,
	}

	raws := make([][]byte, len(extras))
	var stackedCount sql.NullInt64
	for i, key := range extras {
		if key == "stacked_count" {
			dest = append(dest, &stackedCount)
			continue
		}
		dest = append(dest, &raws[i])
	}

	if err := row.Scan(dest...); err != nil {
		return a, err
	}

	if libraryID.Valid {
		a.LibraryID = &libraryID.UUID
	}
	if stackID.Valid {
		a.StackID = &stackID.UUID
	}
	if duplicateID.Valid {
		a.DuplicateID = &duplicateID.UUID
	}
	if livePhotoVideoID.Valid {
		a.LivePhotoVideoID = &livePhotoVideoID.UUID
	}
	if encodedVideoPath.Valid {
		a.EncodedVideoPath = &encodedVideoPath.String
	}
	if duration.Valid {
		a.Duration = &duration.String
	}
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Time
	}

	for i, key := range extras {
		if key == "stacked_count" {
			if stackedCount.Valid {
				v := stackedCount.Int64
				a.StackedAssetsCount = &v
			}
			continue
		}
		raw := raws[i]
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var err error
		switch key {
		case "exif":
			a.Exif = &catalog.Exif{}
			err = json.Unmarshal(raw, a.Exif)
		case "faces":
			err = json.Unmarshal(raw, &a.Faces)
		case "files":
			err = json.Unmarshal(raw, &a.Files)
		case "albums":
			err = json.Unmarshal(raw, &a.Albums)
		case "owner":
			a.Owner = &catalog.User{}
			err = json.Unmarshal(raw, a.Owner)
		case "library":
			a.Library = &catalog.Library{}
			err = json.Unmarshal(raw, a.Library)
		case "stack":
			a.Stack = &catalog.Stack{}
			err = json.Unmarshal(raw, a.Stack)
		default:
			err = fmt.Errorf("unknown select key %q", key)
		}
		if err != nil {
			return a, fmt.Errorf("decode %s relation: %w", key, err)
		}
	}

	return a, nil
}

// scanAssets drains a result set of asset rows.
func scanAssets(rows *sql.Rows, extras []string) ([]catalog.Asset, error) {
	defer rows.Close()

	var assets []catalog.Asset
	for rows.Next() {
		a, err := scanAsset(rows, extras)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// queryAssets finalizes a plan, runs it and scans the result.
func (p *Pool) queryAssets(ctx context.Context, q *assetQuery) ([]catalog.Asset, error) {
	query, args := q.SQL()
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAssets(rows, q.extras)
}

// uuidStrings converts ids for pq.Array, which has no uuid.UUID case.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// chunkUUIDs splits an id list into ChunkSize batches.
func chunkUUIDs(ids []uuid.UUID) [][]uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]uuid.UUID
	for len(ids) > catalog.ChunkSize {
		chunks = append(chunks, ids[:catalog.ChunkSize])
		ids = ids[catalog.ChunkSize:]
	}
	return append(chunks, ids)
}

// mapWriteError lifts uniqueness and foreign-key violations into typed
// constraint errors; everything else passes through.
func mapWriteError(table string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "23503":
			return &catalog.ConstraintError{Table: table, Constraint: pqErr.Constraint, Err: err}
		}
	}
	return err
}
