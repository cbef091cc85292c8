package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/photark/photark/internal/catalog"
)

func TestUpsertSQLPartialUpdate(t *testing.T) {
	query, err := upsertSQL(exifManifest, []string{"make", "city"})
	if err != nil {
		t.Fatalf("upsertSQL failed: %v", err)
	}

	want := "INSERT INTO exif (asset_id, make, city) VALUES ($1, $2, $3)" +
		" ON CONFLICT (asset_id) DO UPDATE SET make = EXCLUDED.make, city = EXCLUDED.city"
	if query != want {
		t.Errorf("got:\n%s\nwant:\n%s", query, want)
	}
}

func TestUpsertSQLNoValueColumns(t *testing.T) {
	query, err := upsertSQL(jobStatusManifest, nil)
	if err != nil {
		t.Fatalf("upsertSQL failed: %v", err)
	}
	if !strings.HasSuffix(query, "DO NOTHING") {
		t.Errorf("bare-key upsert should be DO NOTHING:\n%s", query)
	}
}

func TestUpsertSQLCompositeKey(t *testing.T) {
	query, err := upsertSQL(assetFileManifest, []string{"path"})
	if err != nil {
		t.Fatalf("upsertSQL failed: %v", err)
	}
	if !strings.Contains(query, "ON CONFLICT (asset_id, type)") {
		t.Errorf("composite conflict target missing:\n%s", query)
	}
	if !strings.Contains(query, "path = EXCLUDED.path") {
		t.Errorf("path update missing:\n%s", query)
	}
}

func TestUpsertSQLRejectsUnknownColumn(t *testing.T) {
	if _, err := upsertSQL(exifManifest, []string{"no_such_column"}); err == nil {
		t.Error("expected error for a column outside the manifest")
	}
	// Key columns are not updatable value columns either.
	if _, err := upsertSQL(exifManifest, []string{"asset_id"}); err == nil {
		t.Error("expected error for the key column")
	}
}

func TestExifValuesTracksPresentFields(t *testing.T) {
	make_ := "Canon"
	iso := 400
	e := &catalog.Exif{Make: &make_, ISO: &iso}

	cols, args := exifValues(e)
	if len(cols) != 2 || len(args) != 2 {
		t.Fatalf("got cols %v args %v; want exactly the two present fields", cols, args)
	}
	if cols[0] != "make" || cols[1] != "iso" {
		t.Errorf("cols = %v; want [make iso] in manifest order", cols)
	}
	for _, col := range cols {
		if !exifManifest.contains(col) {
			t.Errorf("column %q not in manifest", col)
		}
	}
}

func TestExifValuesEmptyPayload(t *testing.T) {
	cols, args := exifValues(&catalog.Exif{})
	if len(cols) != 0 || len(args) != 0 {
		t.Errorf("empty payload produced cols %v args %v", cols, args)
	}
}

func TestJobStatusValues(t *testing.T) {
	now := time.Now()
	s := &catalog.JobStatus{PreviewAt: &now, DuplicatesDetectedAt: &now}

	cols, _ := jobStatusValues(s)
	if len(cols) != 2 {
		t.Fatalf("got cols %v; want 2", cols)
	}
	if cols[0] != "preview_at" || cols[1] != "duplicates_detected_at" {
		t.Errorf("cols = %v", cols)
	}
}

func TestManifestColumnsCoverValueStructs(t *testing.T) {
	// Every column the value collectors can emit must be in its manifest,
	// otherwise a present field would be rejected at runtime.
	now := time.Now()
	s := ""
	f := 1.0
	i := 1
	i64 := int64(1)
	full := &catalog.Exif{
		Make: &s, Model: &s, LensModel: &s, FNumber: &f, FocalLength: &f,
		ISO: &i, ExposureTime: &s, ExifImageWidth: &i, ExifImageHeight: &i,
		FileSizeInBytes: &i64, Orientation: &s, DateTimeOriginal: &now,
		ModifyDate: &now, TimeZone: &s, Latitude: &f, Longitude: &f,
		City: &s, State: &s, Country: &s, Description: &s, Fps: &f,
		LivePhotoCID: &s, ProjectionType: &s,
	}
	cols, _ := exifValues(full)
	if len(cols) != len(exifManifest.columns) {
		t.Fatalf("full payload emits %d columns, manifest has %d", len(cols), len(exifManifest.columns))
	}
	if _, err := upsertSQL(exifManifest, cols); err != nil {
		t.Errorf("full payload rejected: %v", err)
	}

	status := &catalog.JobStatus{
		MetadataExtractedAt: &now, PreviewAt: &now, ThumbnailAt: &now,
		FacesRecognizedAt: &now, DuplicatesDetectedAt: &now,
	}
	cols, _ = jobStatusValues(status)
	if len(cols) != len(jobStatusManifest.columns) {
		t.Fatalf("full status emits %d columns, manifest has %d", len(cols), len(jobStatusManifest.columns))
	}
	if _, err := upsertSQL(jobStatusManifest, cols); err != nil {
		t.Errorf("full status rejected: %v", err)
	}
}
