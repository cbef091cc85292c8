package catalog

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetType classifies an asset by its media kind.
type AssetType string

const (
	AssetTypeImage AssetType = "IMAGE"
	AssetTypeVideo AssetType = "VIDEO"
	AssetTypeAudio AssetType = "AUDIO"
	AssetTypeOther AssetType = "OTHER"
)

// AssetFileType identifies a derived file attached to an asset.
// At most one file of each type exists per asset.
type AssetFileType string

const (
	AssetFilePreview   AssetFileType = "preview"
	AssetFileThumbnail AssetFileType = "thumbnail"
)

// TimeBucketSize is the truncation granularity for timeline buckets.
type TimeBucketSize string

const (
	TimeBucketDay   TimeBucketSize = "day"
	TimeBucketMonth TimeBucketSize = "month"
	TimeBucketYear  TimeBucketSize = "year"
)

// SortOrder is a query ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// HexBytes is a byte slice that round-trips through Postgres bytea JSON
// output ("\x...."). Nested asset rows arrive as jsonb, which renders bytea
// as hex strings instead of base64.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(`\x` + hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, `\x`)
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode hex bytes: %w", err)
	}
	*h = b
	return nil
}

func (h HexBytes) Value() (driver.Value, error) {
	return []byte(h), nil
}

func (h *HexBytes) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = nil
	case []byte:
		*h = append((*h)[:0], v...)
	case string:
		*h = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into HexBytes", src)
	}
	return nil
}

// Asset is a user's media item. Relation fields (Exif, Faces, Files, Albums,
// Stack, Owner, Library) are nil unless the query requested the expansion.
type Asset struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	LibraryID        *uuid.UUID `json:"library_id"`
	DeviceAssetID    string     `json:"device_asset_id"`
	DeviceID         string     `json:"device_id"`
	Type             AssetType  `json:"type"`
	Checksum         HexBytes   `json:"checksum"`
	OriginalPath     string     `json:"original_path"`
	OriginalFileName string     `json:"original_file_name"`
	EncodedVideoPath *string    `json:"encoded_video_path"`
	Thumbhash        HexBytes   `json:"thumbhash"`
	IsVisible        bool       `json:"is_visible"`
	IsArchived       bool       `json:"is_archived"`
	IsFavorite       bool       `json:"is_favorite"`
	IsOffline        bool       `json:"is_offline"`
	IsExternal       bool       `json:"is_external"`
	Duration         *string    `json:"duration"`
	StackID          *uuid.UUID `json:"stack_id"`
	DuplicateID      *uuid.UUID `json:"duplicate_id"`
	LivePhotoVideoID *uuid.UUID `json:"live_photo_video_id"`
	FileCreatedAt    time.Time  `json:"file_created_at"`
	FileModifiedAt   time.Time  `json:"file_modified_at"`
	LocalDateTime    time.Time  `json:"local_date_time"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at"`

	Exif    *Exif       `json:"exif,omitempty"`
	Faces   []Face      `json:"faces,omitempty"`
	Files   []AssetFile `json:"files,omitempty"`
	Albums  []Album     `json:"albums,omitempty"`
	Stack   *Stack      `json:"stack,omitempty"`
	Owner   *User       `json:"owner,omitempty"`
	Library *Library    `json:"library,omitempty"`

	// StackedAssetsCount is populated by delta sync only.
	StackedAssetsCount *int64 `json:"stacked_assets_count,omitempty"`
}

// Exif holds extracted camera and location metadata, one row per asset.
// Absence means metadata extraction has not run yet. All metadata fields are
// nullable; nil means the source file did not carry the value.
type Exif struct {
	AssetID          uuid.UUID  `json:"asset_id"`
	Make             *string    `json:"make"`
	Model            *string    `json:"model"`
	LensModel        *string    `json:"lens_model"`
	FNumber          *float64   `json:"f_number"`
	FocalLength      *float64   `json:"focal_length"`
	ISO              *int       `json:"iso"`
	ExposureTime     *string    `json:"exposure_time"`
	ExifImageWidth   *int       `json:"exif_image_width"`
	ExifImageHeight  *int       `json:"exif_image_height"`
	FileSizeInBytes  *int64     `json:"file_size_in_bytes"`
	Orientation      *string    `json:"orientation"`
	DateTimeOriginal *time.Time `json:"date_time_original"`
	ModifyDate       *time.Time `json:"modify_date"`
	TimeZone         *string    `json:"time_zone"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	City             *string    `json:"city"`
	State            *string    `json:"state"`
	Country          *string    `json:"country"`
	Description      *string    `json:"description"`
	Fps              *float64   `json:"fps"`
	LivePhotoCID     *string    `json:"live_photo_cid"`
	ProjectionType   *string    `json:"projection_type"`
}

// AssetFile is a derived file (preview, thumbnail) attached to an asset.
type AssetFile struct {
	ID      int64         `json:"id"`
	AssetID uuid.UUID     `json:"asset_id"`
	Type    AssetFileType `json:"type"`
	Path    string        `json:"path"`
}

// JobStatus tracks per-asset completion of the processing pipelines.
// A nil timestamp means the stage has not run for this asset.
type JobStatus struct {
	AssetID              uuid.UUID  `json:"asset_id"`
	MetadataExtractedAt  *time.Time `json:"metadata_extracted_at"`
	PreviewAt            *time.Time `json:"preview_at"`
	ThumbnailAt          *time.Time `json:"thumbnail_at"`
	FacesRecognizedAt    *time.Time `json:"faces_recognized_at"`
	DuplicatesDetectedAt *time.Time `json:"duplicates_detected_at"`
}

// Face is a detected face region on an asset. PersonID is nil while the face
// is unassigned; Person is populated only by the faces-with-people expansion.
type Face struct {
	ID            uuid.UUID  `json:"id"`
	AssetID       uuid.UUID  `json:"asset_id"`
	PersonID      *uuid.UUID `json:"person_id"`
	ImageWidth    int        `json:"image_width"`
	ImageHeight   int        `json:"image_height"`
	BoundingBoxX1 int        `json:"bounding_box_x1"`
	BoundingBoxY1 int        `json:"bounding_box_y1"`
	BoundingBoxX2 int        `json:"bounding_box_x2"`
	BoundingBoxY2 int        `json:"bounding_box_y2"`
	Person        *Person    `json:"person,omitempty"`
}

// Person is a named (or not yet named) identity faces can be assigned to.
type Person struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Name          string     `json:"name"`
	ThumbnailPath string     `json:"thumbnail_path"`
	IsHidden      bool       `json:"is_hidden"`
	BirthDate     *time.Time `json:"birth_date"`
	FaceAssetID   *uuid.UUID `json:"face_asset_id"`
}

// Stack groups related assets under a designated primary asset. Assets holds
// the non-primary members when sibling expansion was requested.
type Stack struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	PrimaryAssetID uuid.UUID `json:"primary_asset_id"`
	Assets         []Asset   `json:"assets,omitempty"`
}

// Album is a user-curated collection of assets.
type Album struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is the minimal owner shape needed by the owner expansion.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Library identifies an external import library. Assets with a nil library
// were uploaded directly.
type Library struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	ImportPath string    `json:"import_path"`
}

// GeodataPlace is a row of the geographic gazetteer used by place search.
type GeodataPlace struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Longitude      float64  `json:"longitude"`
	Latitude       float64  `json:"latitude"`
	CountryCode    string   `json:"country_code"`
	Admin1Code     *string  `json:"admin1_code"`
	Admin2Code     *string  `json:"admin2_code"`
	Admin1Name     *string  `json:"admin1_name"`
	Admin2Name     *string  `json:"admin2_name"`
	AlternateNames *string  `json:"alternate_names"`
}

// TimeBucketItem is one timeline bucket: the truncated date and how many
// assets fall into it.
type TimeBucketItem struct {
	TimeBucket string
	Count      int64
}

// MapMarker is a geotagged asset reduced to what the map needs.
type MapMarker struct {
	ID      uuid.UUID
	Lat     float64
	Lon     float64
	City    *string
	State   *string
	Country *string
}

// AssetStats holds per-type asset counts for a user.
type AssetStats struct {
	Audio  int64
	Images int64
	Videos int64
	Other  int64
}

// Total returns the sum across all asset types.
func (s AssetStats) Total() int64 {
	return s.Audio + s.Images + s.Videos + s.Other
}

// DuplicateResult is a duplicate-search candidate within the distance bound.
type DuplicateResult struct {
	AssetID     uuid.UUID
	DuplicateID *uuid.UUID
	Distance    float64
}

// DuplicateGroup is a set of assets sharing a duplicate id.
type DuplicateGroup struct {
	DuplicateID uuid.UUID
	Assets      []Asset
}

// FaceSearchResult is a face-search hit with its embedding distance.
type FaceSearchResult struct {
	Face     Face
	Distance float64
}

// ExploreItem maps one distinct field value to a representative asset.
type ExploreItem struct {
	Value string
	Data  uuid.UUID
}

// ExploreResult is the answer to an explore-by-field query.
type ExploreResult struct {
	FieldName string
	Items     []ExploreItem
}

// DayOfYearGroup collects the assets taken on one past date matching a
// month/day ("memories").
type DayOfYearGroup struct {
	YearsAgo int
	Assets   []Asset
}

// EmbeddingEntry pairs an asset with its smart-search vector, used to feed
// the in-memory duplicate index.
type EmbeddingEntry struct {
	AssetID   uuid.UUID
	Embedding []float32
}
