package postgres

import (
	"fmt"
	"strings"

	"github.com/photark/photark/internal/catalog"
)

// Column manifests are declared statically against the migrations in this
// package and guarded by the schemaVersion assertion at pool start. Upserts
// touch exactly the columns present in the input; the manifest rejects any
// column the migration set does not define, so a drifted caller fails fast
// instead of writing garbage.

type columnManifest struct {
	table   string
	keys    []string
	columns []string
}

func (m columnManifest) contains(col string) bool {
	for _, c := range m.columns {
		if c == col {
			return true
		}
	}
	return false
}

var exifManifest = columnManifest{
	table: "exif",
	keys:  []string{"asset_id"},
	columns: []string{
		"make", "model", "lens_model", "f_number", "focal_length", "iso",
		"exposure_time", "exif_image_width", "exif_image_height",
		"file_size_in_bytes", "orientation", "date_time_original",
		"modify_date", "time_zone", "latitude", "longitude", "city",
		"state", "country", "description", "fps", "live_photo_cid",
		"projection_type",
	},
}

var jobStatusManifest = columnManifest{
	table: "asset_job_status",
	keys:  []string{"asset_id"},
	columns: []string{
		"metadata_extracted_at", "preview_at", "thumbnail_at",
		"faces_recognized_at", "duplicates_detected_at",
	},
}

var assetFileManifest = columnManifest{
	table:   "asset_files",
	keys:    []string{"asset_id", "type"},
	columns: []string{"path"},
}

// upsertSQL builds an INSERT ... ON CONFLICT (keys) DO UPDATE statement for
// the given present columns. With no value columns the statement degrades to
// DO NOTHING, which keeps a bare-key upsert idempotent.
func upsertSQL(m columnManifest, present []string) (string, error) {
	for _, col := range present {
		if !m.contains(col) {
			return "", fmt.Errorf("column %q not in %s manifest", col, m.table)
		}
	}

	all := append(append([]string{}, m.keys...), present...)
	placeholders := make([]string, len(all))
	for i := range all {
		placeholders[i] = "?"
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO " + m.table + " (" + strings.Join(all, ", ") + ")")
	sb.WriteString(" VALUES (" + strings.Join(placeholders, ", ") + ")")
	sb.WriteString(" ON CONFLICT (" + strings.Join(m.keys, ", ") + ")")

	if len(present) == 0 {
		sb.WriteString(" DO NOTHING")
		return rebind(sb.String()), nil
	}

	sets := make([]string, len(present))
	for i, col := range present {
		sets[i] = col + " = EXCLUDED." + col
	}
	sb.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	return rebind(sb.String()), nil
}

// exifValues lists the columns present in a partial EXIF payload, in
// manifest order. Nil pointer fields are absent and stay untouched on
// conflict.
func exifValues(e *catalog.Exif) ([]string, []any) {
	var cols []string
	var args []any
	add := func(col string, present bool, v any) {
		if present {
			cols = append(cols, col)
			args = append(args, v)
		}
	}

	add("make", e.Make != nil, e.Make)
	add("model", e.Model != nil, e.Model)
	add("lens_model", e.LensModel != nil, e.LensModel)
	add("f_number", e.FNumber != nil, e.FNumber)
	add("focal_length", e.FocalLength != nil, e.FocalLength)
	add("iso", e.ISO != nil, e.ISO)
	add("exposure_time", e.ExposureTime != nil, e.ExposureTime)
	add("exif_image_width", e.ExifImageWidth != nil, e.ExifImageWidth)
	add("exif_image_height", e.ExifImageHeight != nil, e.ExifImageHeight)
	add("file_size_in_bytes", e.FileSizeInBytes != nil, e.FileSizeInBytes)
	add("orientation", e.Orientation != nil, e.Orientation)
	add("date_time_original", e.DateTimeOriginal != nil, e.DateTimeOriginal)
	add("modify_date", e.ModifyDate != nil, e.ModifyDate)
	add("time_zone", e.TimeZone != nil, e.TimeZone)
	add("latitude", e.Latitude != nil, e.Latitude)
	add("longitude", e.Longitude != nil, e.Longitude)
	add("city", e.City != nil, e.City)
	add("state", e.State != nil, e.State)
	add("country", e.Country != nil, e.Country)
	add("description", e.Description != nil, e.Description)
	add("fps", e.Fps != nil, e.Fps)
	add("live_photo_cid", e.LivePhotoCID != nil, e.LivePhotoCID)
	add("projection_type", e.ProjectionType != nil, e.ProjectionType)

	return cols, args
}

// jobStatusValues lists the stage timestamps present in a partial job status
// payload.
func jobStatusValues(s *catalog.JobStatus) ([]string, []any) {
	var cols []string
	var args []any
	add := func(col string, present bool, v any) {
		if present {
			cols = append(cols, col)
			args = append(args, v)
		}
	}

	add("metadata_extracted_at", s.MetadataExtractedAt != nil, s.MetadataExtractedAt)
	add("preview_at", s.PreviewAt != nil, s.PreviewAt)
	add("thumbnail_at", s.ThumbnailAt != nil, s.ThumbnailAt)
	add("faces_recognized_at", s.FacesRecognizedAt != nil, s.FacesRecognizedAt)
	add("duplicates_detected_at", s.DuplicatesDetectedAt != nil, s.DuplicatesDetectedAt)

	return cols, args
}
