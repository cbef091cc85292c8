package postgres

import (
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/photark/photark/internal/catalog"
)

// applySearchFilters translates the filter option set into predicate
// fragments. Every option is independently optional: unset fields add no
// predicate, tri-state text filters distinguish "no filter" from "must be
// NULL" from equality.
func applySearchFilters(q *assetQuery, o catalog.AssetSearchOptions) {
	if o.CreatedBefore != nil {
		q.where("assets.created_at <= ?", *o.CreatedBefore)
	}
	if o.CreatedAfter != nil {
		q.where("assets.created_at >= ?", *o.CreatedAfter)
	}
	if o.UpdatedBefore != nil {
		q.where("assets.updated_at <= ?", *o.UpdatedBefore)
	}
	if o.UpdatedAfter != nil {
		q.where("assets.updated_at >= ?", *o.UpdatedAfter)
	}
	if o.TakenBefore != nil {
		q.where("assets.file_created_at <= ?", *o.TakenBefore)
	}
	if o.TakenAfter != nil {
		q.where("assets.file_created_at >= ?", *o.TakenAfter)
	}

	// A trashed range means the caller wants soft-deleted rows, filtered by
	// when they were trashed.
	trashed := o.TrashedBefore != nil || o.TrashedAfter != nil
	if o.TrashedBefore != nil {
		q.where("assets.deleted_at <= ?", *o.TrashedBefore)
	}
	if o.TrashedAfter != nil {
		q.where("assets.deleted_at >= ?", *o.TrashedAfter)
	}
	if !o.WithDeleted && !trashed {
		q.where("assets.deleted_at IS NULL")
	}

	if o.ID != nil {
		q.where("assets.id = ?", *o.ID)
	}
	if len(o.OwnerIDs) > 0 {
		q.where("assets.owner_id = ANY(?)", pq.Array(uuidStrings(o.OwnerIDs)))
	}
	if o.LibraryID != nil {
		q.where("assets.library_id = ?", *o.LibraryID)
	}
	if o.DeviceAssetID != nil {
		q.where("assets.device_asset_id = ?", *o.DeviceAssetID)
	}
	if o.DeviceID != nil {
		q.where("assets.device_id = ?", *o.DeviceID)
	}
	if o.Checksum != nil {
		q.where("assets.checksum = ?", []byte(o.Checksum))
	}

	if o.OriginalPath != nil {
		q.where("assets.original_path = ?", *o.OriginalPath)
	}
	if o.EncodedVideoPath != nil {
		q.where("assets.encoded_video_path = ?", *o.EncodedVideoPath)
	}
	if o.OriginalFileName != nil {
		q.where("f_unaccent(assets.original_file_name) ILIKE f_unaccent(?)",
			"%"+*o.OriginalFileName+"%")
	}

	applyTextFilter(q, "exif.city", o.City)
	applyTextFilter(q, "exif.state", o.State)
	applyTextFilter(q, "exif.country", o.Country)
	applyTextFilter(q, "exif.make", o.Make)
	applyTextFilter(q, "exif.model", o.Model)
	applyTextFilter(q, "exif.lens_model", o.LensModel)

	if o.Type != nil {
		q.where("assets.type = ?", string(*o.Type))
	}

	if o.IsFavorite != nil {
		q.where("assets.is_favorite = ?", *o.IsFavorite)
	}
	switch {
	case o.IsArchived != nil:
		q.where("assets.is_archived = ?", *o.IsArchived)
	case !o.WithArchived:
		q.where("assets.is_archived = false")
	}
	if o.IsVisible != nil {
		q.where("assets.is_visible = ?", *o.IsVisible)
	} else {
		// Companion assets (live-photo videos) stay out of normal listings.
		q.where("assets.is_visible = true")
	}
	if o.IsOffline != nil {
		q.where("assets.is_offline = ?", *o.IsOffline)
	}
	if o.IsEncoded != nil {
		if *o.IsEncoded {
			q.where("assets.encoded_video_path IS NOT NULL")
		} else {
			q.where("assets.encoded_video_path IS NULL")
		}
	}
	if o.IsMotion != nil {
		if *o.IsMotion {
			q.where("assets.live_photo_video_id IS NOT NULL")
		} else {
			q.where("assets.live_photo_video_id IS NULL")
		}
	}
	if o.IsNotInAlbum {
		q.where("NOT EXISTS (SELECT 1 FROM albums_assets_assets aa WHERE aa.assets_id = assets.id)")
	}

	if len(o.PersonIDs) > 0 {
		applyPersonFilter(q, o.PersonIDs)
	}
}

// applyTextFilter adds a tri-state predicate over an EXIF column. Any EXIF
// predicate makes the exif row a hard requirement, so the relation
// inner-joins even when an expansion already planned a left join.
func applyTextFilter(q *assetQuery, column string, f catalog.TextFilter) {
	if !f.Set() {
		return
	}
	joinExifRequired(q)
	if f.Null() {
		q.where(column + " IS NULL")
		return
	}
	q.where(column+" = ?", f.Value())
}

// applyPersonFilter restricts results to assets with faces assigned to
// every listed person. Distinct-count grouping implements the ALL
// semantics.
func applyPersonFilter(q *assetQuery, personIDs []uuid.UUID) {
	q.withCTE("has_people", `
		SELECT asset_id
		FROM asset_faces
		WHERE person_id = ANY(?)
		GROUP BY asset_id
		HAVING count(DISTINCT person_id) = ?`,
		pq.Array(uuidStrings(personIDs)), len(personIDs))
	q.join("has_people", "INNER JOIN has_people ON has_people.asset_id = assets.id")
}
