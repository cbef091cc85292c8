package catalog

import (
	"time"

	"github.com/google/uuid"
)

// TextFilter is a tri-state filter over a nullable text column. The zero
// value applies no filter, TextIsNull requires the column to be NULL, and
// TextEquals requires equality.
type TextFilter struct {
	set   bool
	null  bool
	value string
}

// TextEquals builds a filter requiring the column to equal v.
func TextEquals(v string) TextFilter {
	return TextFilter{set: true, value: v}
}

// TextIsNull builds a filter requiring the column to be NULL.
func TextIsNull() TextFilter {
	return TextFilter{set: true, null: true}
}

// Set reports whether the filter constrains the column at all.
func (f TextFilter) Set() bool { return f.set }

// Null reports whether the filter requires NULL.
func (f TextFilter) Null() bool { return f.set && f.null }

// Value returns the equality operand. Only meaningful when Set and not Null.
func (f TextFilter) Value() string { return f.value }

// AssetSearchOptions is the full filter set for asset search queries.
// Every field is independently optional: a nil pointer (or zero TextFilter)
// applies no constraint.
type AssetSearchOptions struct {
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
	UpdatedBefore *time.Time
	UpdatedAfter  *time.Time
	TakenBefore   *time.Time
	TakenAfter    *time.Time
	// A trashed range filters on deleted_at and forces soft-deleted rows
	// into the result set.
	TrashedBefore *time.Time
	TrashedAfter  *time.Time

	ID            *uuid.UUID
	LibraryID     *uuid.UUID
	OwnerIDs      []uuid.UUID
	DeviceAssetID *string
	DeviceID      *string
	Checksum      HexBytes

	OriginalPath     *string
	EncodedVideoPath *string
	// OriginalFileName matches accent- and case-insensitively; SQL LIKE
	// wildcards in the value are honored.
	OriginalFileName *string

	City      TextFilter
	State     TextFilter
	Country   TextFilter
	Make      TextFilter
	Model     TextFilter
	LensModel TextFilter

	Type *AssetType

	IsFavorite *bool
	IsArchived *bool
	IsVisible  *bool
	IsOffline  *bool
	// IsEncoded and IsMotion are derived from the nullability of
	// encoded_video_path resp. live_photo_video_id.
	IsEncoded    *bool
	IsMotion     *bool
	IsNotInAlbum bool

	// WithArchived lifts the default is_archived = false constraint.
	WithArchived bool
	// WithDeleted includes soft-deleted assets.
	WithDeleted bool

	WithExif   bool
	WithFaces  bool
	WithPeople bool
	WithFiles  bool
	WithStacked bool

	// PersonIDs requires the asset to have faces assigned to every listed
	// person.
	PersonIDs []uuid.UUID

	OrderDirection SortOrder
}

// SmartSearchOptions adds the query embedding to the regular filter set.
type SmartSearchOptions struct {
	AssetSearchOptions
	Embedding []float32
}

// DuplicateSearchOptions parameterizes embedding-based duplicate search.
type DuplicateSearchOptions struct {
	AssetID     uuid.UUID
	Embedding   []float32
	MaxDistance float64
	Type        AssetType
	OwnerIDs    []uuid.UUID
}

// FaceSearchOptions parameterizes face embedding search.
type FaceSearchOptions struct {
	OwnerIDs    []uuid.UUID
	Embedding   []float32
	NumResults  int
	MaxDistance float64
	// HasPerson restricts results to faces already assigned to a person.
	HasPerson bool
}

// TimeBucketOptions filters the timeline aggregation. The same options are
// accepted by TimeBuckets and TimeBucket so the bucket listing and the
// bucket contents always agree.
type TimeBucketOptions struct {
	Size        TimeBucketSize
	OwnerIDs    []uuid.UUID
	AlbumID     *uuid.UUID
	PersonID    *uuid.UUID
	AssetType   *AssetType
	IsArchived  *bool
	IsFavorite  *bool
	IsDuplicate *bool
	IsTrashed   bool
	// WithStacked counts a stacked asset only when it is its stack's
	// primary; unstacked assets always count.
	WithStacked bool
}

// AssetStatsOptions filters the per-type statistics query.
type AssetStatsOptions struct {
	IsArchived *bool
	IsFavorite *bool
	IsTrashed  bool
}

// MapMarkerOptions filters the map marker listing.
type MapMarkerOptions struct {
	IsArchived        *bool
	IsFavorite        *bool
	FileCreatedAfter  *time.Time
	FileCreatedBefore *time.Time
}

// ExploreFieldOptions bounds an explore-by-field query.
type ExploreFieldOptions struct {
	MinAssetsPerField int
	MaxFields         int
}

// FullSyncOptions drives keyset-paginated bulk sync for one user. LastID is
// an exclusive lower bound; nil starts from the beginning.
type FullSyncOptions struct {
	OwnerID      uuid.UUID
	LastID       *uuid.UUID
	UpdatedUntil time.Time
	Limit        int
}

// DeltaSyncOptions drives incremental sync: all visible assets updated
// strictly after UpdatedAfter.
type DeltaSyncOptions struct {
	OwnerIDs     []uuid.UUID
	UpdatedAfter time.Time
	Limit        int
}

// AssetRelations selects which relation expansions to attach to fetched
// assets. People implies Faces; StackAssets implies Stack.
type AssetRelations struct {
	Exif        bool
	Faces       bool
	People      bool
	Files       bool
	Albums      bool
	Owner       bool
	Library     bool
	Stack       bool
	StackAssets bool
}

// DerivedKind names a processing stage for "assets without X" queries.
type DerivedKind string

const (
	DerivedMetadata     DerivedKind = "metadata"
	DerivedPreview      DerivedKind = "preview"
	DerivedThumbnail    DerivedKind = "thumbnail"
	DerivedFaces        DerivedKind = "faces"
	DerivedDuplicates   DerivedKind = "duplicates"
	DerivedSmartSearch  DerivedKind = "smart-search"
	DerivedEncodedVideo DerivedKind = "encoded-video"
)

// AssetUpdate is a partial update of mutable asset fields; nil fields are
// left untouched.
type AssetUpdate struct {
	IsFavorite       *bool
	IsArchived       *bool
	IsOffline        *bool
	IsVisible        *bool
	StackID          *uuid.UUID
	DuplicateID      *uuid.UUID
	LivePhotoVideoID *uuid.UUID
	Thumbhash        HexBytes
	EncodedVideoPath *string
}

// DuplicateMerge reassigns the duplicate group of the listed groups and
// assets to the target id.
type DuplicateMerge struct {
	TargetDuplicateID uuid.UUID
	DuplicateIDs      []uuid.UUID
	AssetIDs          []uuid.UUID
}
