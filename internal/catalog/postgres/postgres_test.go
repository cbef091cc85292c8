//go:build integration

package postgres

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/photark/photark/internal/catalog"
	"github.com/photark/photark/internal/config"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Initialize(cfg, nil)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to initialize pool: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func createTestUser(t *testing.T, pool *Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO users (id, name, email) VALUES ($1, $2, $3)",
		id, "Test User", id.String()+"@example.com")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return id
}

func randomChecksum(t *testing.T) catalog.HexBytes {
	t.Helper()
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("Failed to generate checksum: %v", err)
	}
	return b
}

func createTestAsset(t *testing.T, repo *AssetRepository, owner uuid.UUID, mutate func(*catalog.Asset)) *catalog.Asset {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	asset := &catalog.Asset{
		OwnerID:          owner,
		DeviceAssetID:    uuid.NewString(),
		DeviceID:         "device-1",
		Type:             catalog.AssetTypeImage,
		Checksum:         randomChecksum(t),
		OriginalPath:     "/photos/" + uuid.NewString() + ".jpg",
		OriginalFileName: "photo.jpg",
		IsVisible:        true,
		FileCreatedAt:    now,
		FileModifiedAt:   now,
		LocalDateTime:    now,
	}
	if mutate != nil {
		mutate(asset)
	}
	if err := repo.Create(context.Background(), asset); err != nil {
		t.Fatalf("Failed to create asset: %v", err)
	}
	return asset
}

func TestAssetRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAssetRepository(pool, nil)
	owner := createTestUser(t, pool)

	t.Run("GetByIDAbsent", func(t *testing.T) {
		got, err := repo.GetByID(ctx, uuid.New(), catalog.AssetRelations{})
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for absent asset, got %+v", got)
		}
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		asset := createTestAsset(t, repo, owner, nil)

		got, err := repo.GetByID(ctx, asset.ID, catalog.AssetRelations{})
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected asset, got nil")
		}
		if got.OwnerID != owner {
			t.Errorf("owner = %s; want %s", got.OwnerID, owner)
		}
		if string(got.Checksum) != string(asset.Checksum) {
			t.Errorf("checksum mismatch")
		}
	})

	t.Run("ChecksumConstraint", func(t *testing.T) {
		asset := createTestAsset(t, repo, owner, nil)
		dup := *asset
		dup.ID = uuid.Nil
		dup.DeviceAssetID = uuid.NewString()
		err := repo.Create(ctx, &dup)
		if err == nil {
			t.Fatal("expected constraint violation for duplicate checksum")
		}
		if !catalog.IsConstraint(err) {
			t.Errorf("expected ConstraintError, got %v", err)
		}
	})

	t.Run("GetByChecksumNullLibrary", func(t *testing.T) {
		asset := createTestAsset(t, repo, owner, nil)

		got, err := repo.GetByChecksum(ctx, owner, nil, asset.Checksum)
		if err != nil {
			t.Fatalf("GetByChecksum failed: %v", err)
		}
		if got == nil || got.ID != asset.ID {
			t.Errorf("expected asset %s, got %+v", asset.ID, got)
		}

		other := uuid.New()
		got, err = repo.GetByChecksum(ctx, owner, &other, asset.Checksum)
		if err != nil {
			t.Fatalf("GetByChecksum failed: %v", err)
		}
		if got != nil {
			t.Errorf("library-scoped lookup should miss a direct upload")
		}
	})

	t.Run("SearchArchivedPolicy", func(t *testing.T) {
		u := createTestUser(t, pool)
		plain := createTestAsset(t, repo, u, nil)
		createTestAsset(t, repo, u, func(a *catalog.Asset) { a.IsArchived = true })

		page, err := repo.Search(ctx, catalog.PaginationOptions{Take: 10},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].ID != plain.ID {
			t.Errorf("default search should return only the unarchived asset, got %d items", len(page.Items))
		}

		page, err = repo.Search(ctx, catalog.PaginationOptions{Take: 10},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}, WithArchived: true})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 2 {
			t.Errorf("withArchived search should return both assets, got %d", len(page.Items))
		}
	})

	t.Run("SearchPagination", func(t *testing.T) {
		u := createTestUser(t, pool)
		for i := 0; i < 3; i++ {
			createTestAsset(t, repo, u, nil)
		}

		page, err := repo.Search(ctx, catalog.PaginationOptions{Take: 2},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 2 || !page.HasNextPage {
			t.Errorf("page 1: %d items hasNext=%v; want 2 items with next page", len(page.Items), page.HasNextPage)
		}

		page, err = repo.Search(ctx, catalog.PaginationOptions{Take: 2, Skip: 2},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 1 || page.HasNextPage {
			t.Errorf("page 2: %d items hasNext=%v; want 1 item, no next page", len(page.Items), page.HasNextPage)
		}
	})

	t.Run("ExploreByField", func(t *testing.T) {
		u := createTestUser(t, pool)
		strPtr := func(s string) *string { return &s }

		for _, city := range []string{"Prague", "Prague", "Brno"} {
			asset := createTestAsset(t, repo, u, nil)
			if err := repo.UpsertExif(ctx, &catalog.Exif{AssetID: asset.ID, City: strPtr(city)}); err != nil {
				t.Fatalf("UpsertExif failed: %v", err)
			}
		}
		// An asset with no exif row must not surface a value.
		createTestAsset(t, repo, u, nil)

		result, err := repo.ExploreByField(ctx, u, "city", catalog.ExploreFieldOptions{})
		if err != nil {
			t.Fatalf("ExploreByField failed: %v", err)
		}
		if result.FieldName != "city" {
			t.Errorf("field name = %q; want city", result.FieldName)
		}
		if len(result.Items) != 2 {
			t.Fatalf("got %d distinct cities; want 2", len(result.Items))
		}
		if result.Items[0].Value != "Brno" || result.Items[1].Value != "Prague" {
			t.Errorf("cities = %q, %q; want Brno, Prague", result.Items[0].Value, result.Items[1].Value)
		}

		result, err = repo.ExploreByField(ctx, u, "city", catalog.ExploreFieldOptions{MinAssetsPerField: 2})
		if err != nil {
			t.Fatalf("ExploreByField failed: %v", err)
		}
		if len(result.Items) != 1 || result.Items[0].Value != "Prague" {
			t.Errorf("minAssets=2 should keep only Prague, got %+v", result.Items)
		}

		if _, err := repo.ExploreByField(ctx, u, "latitude", catalog.ExploreFieldOptions{}); !catalog.IsValidation(err) {
			t.Errorf("non-categorical field should be rejected, got %v", err)
		}
	})

	t.Run("SearchRejectsBadPageSize", func(t *testing.T) {
		_, err := repo.Search(ctx, catalog.PaginationOptions{Take: 0}, catalog.AssetSearchOptions{})
		if !catalog.IsValidation(err) {
			t.Errorf("take=0 should be a validation error, got %v", err)
		}
		_, err = repo.Search(ctx, catalog.PaginationOptions{Take: catalog.MaxPageSize + 1}, catalog.AssetSearchOptions{})
		if !catalog.IsValidation(err) {
			t.Errorf("oversized take should be a validation error, got %v", err)
		}
	})

	t.Run("SoftDeleteAndTrashedSearch", func(t *testing.T) {
		u := createTestUser(t, pool)
		asset := createTestAsset(t, repo, u, nil)
		deletedAt := time.Now().UTC()

		if err := repo.SoftDeleteAll(ctx, []uuid.UUID{asset.ID}, deletedAt); err != nil {
			t.Fatalf("SoftDeleteAll failed: %v", err)
		}

		page, err := repo.Search(ctx, catalog.PaginationOptions{Take: 10},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 0 {
			t.Errorf("soft-deleted asset leaked into default search")
		}

		after := deletedAt.Add(-time.Minute)
		page, err = repo.Search(ctx, catalog.PaginationOptions{Take: 10},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}, TrashedAfter: &after})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 1 {
			t.Errorf("trashed range should surface the soft-deleted asset, got %d", len(page.Items))
		}

		if err := repo.RestoreAll(ctx, []uuid.UUID{asset.ID}); err != nil {
			t.Fatalf("RestoreAll failed: %v", err)
		}
		page, err = repo.Search(ctx, catalog.PaginationOptions{Take: 10},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(page.Items) != 1 {
			t.Errorf("restored asset missing from default search")
		}
	})

	t.Run("UpsertExifIdempotentPartial", func(t *testing.T) {
		asset := createTestAsset(t, repo, owner, nil)
		make_ := "Canon"
		city := "Prague"

		exif := &catalog.Exif{AssetID: asset.ID, Make: &make_, City: &city}
		if err := repo.UpsertExif(ctx, exif); err != nil {
			t.Fatalf("UpsertExif failed: %v", err)
		}
		if err := repo.UpsertExif(ctx, exif); err != nil {
			t.Fatalf("repeated UpsertExif failed: %v", err)
		}

		// A later partial update must leave the untouched column alone.
		model := "EOS R5"
		if err := repo.UpsertExif(ctx, &catalog.Exif{AssetID: asset.ID, Model: &model}); err != nil {
			t.Fatalf("partial UpsertExif failed: %v", err)
		}

		got, err := repo.GetByID(ctx, asset.ID, catalog.AssetRelations{Exif: true})
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Exif == nil {
			t.Fatal("exif expansion missing")
		}
		if got.Exif.Make == nil || *got.Exif.Make != "Canon" {
			t.Errorf("make was clobbered by the partial update: %+v", got.Exif)
		}
		if got.Exif.Model == nil || *got.Exif.Model != "EOS R5" {
			t.Errorf("model not updated: %+v", got.Exif)
		}
		if got.Exif.City == nil || *got.Exif.City != "Prague" {
			t.Errorf("city was clobbered: %+v", got.Exif)
		}
	})

	t.Run("TimeBucketsCrossCheck", func(t *testing.T) {
		u := createTestUser(t, pool)
		for i := 0; i < 5; i++ {
			day := time.Date(2023, time.March, 1+i%2, 12, 0, 0, 0, time.UTC)
			createTestAsset(t, repo, u, func(a *catalog.Asset) { a.LocalDateTime = day })
		}

		buckets, err := repo.TimeBuckets(ctx, catalog.TimeBucketOptions{
			Size:     catalog.TimeBucketDay,
			OwnerIDs: []uuid.UUID{u},
		})
		if err != nil {
			t.Fatalf("TimeBuckets failed: %v", err)
		}

		var total int64
		for _, b := range buckets {
			total += b.Count
		}

		page, err := repo.Search(ctx, catalog.PaginationOptions{Take: 100},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if total != int64(len(page.Items)) {
			t.Errorf("bucket counts sum to %d, search returned %d", total, len(page.Items))
		}

		if len(buckets) > 0 {
			assets, err := repo.TimeBucket(ctx, buckets[0].TimeBucket, catalog.TimeBucketOptions{
				Size:     catalog.TimeBucketDay,
				OwnerIDs: []uuid.UUID{u},
			})
			if err != nil {
				t.Fatalf("TimeBucket failed: %v", err)
			}
			if int64(len(assets)) != buckets[0].Count {
				t.Errorf("bucket %s has %d assets, listing returned %d",
					buckets[0].TimeBucket, buckets[0].Count, len(assets))
			}
		}
	})

	t.Run("FullSyncKeyset", func(t *testing.T) {
		u := createTestUser(t, pool)
		for i := 0; i < 5; i++ {
			createTestAsset(t, repo, u, nil)
		}

		var lastID *uuid.UUID
		var seen []uuid.UUID
		for {
			assets, err := repo.FullSync(ctx, catalog.FullSyncOptions{
				OwnerID:      u,
				LastID:       lastID,
				UpdatedUntil: time.Now().UTC().Add(time.Hour),
				Limit:        2,
			})
			if err != nil {
				t.Fatalf("FullSync failed: %v", err)
			}
			if len(assets) == 0 {
				break
			}
			for _, a := range assets {
				if lastID != nil && a.ID.String() <= lastID.String() {
					t.Errorf("ids not strictly increasing: %s after %s", a.ID, lastID)
				}
				id := a.ID
				lastID = &id
				seen = append(seen, a.ID)
			}
		}
		if len(seen) != 5 {
			t.Errorf("keyset sync saw %d assets; want 5", len(seen))
		}
	})

	t.Run("Statistics", func(t *testing.T) {
		u := createTestUser(t, pool)
		createTestAsset(t, repo, u, nil)
		createTestAsset(t, repo, u, func(a *catalog.Asset) { a.Type = catalog.AssetTypeVideo })

		stats, err := repo.Statistics(ctx, u, catalog.AssetStatsOptions{})
		if err != nil {
			t.Fatalf("Statistics failed: %v", err)
		}
		if stats.Images != 1 || stats.Videos != 1 || stats.Total() != 2 {
			t.Errorf("stats = %+v; want 1 image, 1 video", stats)
		}
	})
}

func TestSearchRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	assets := NewAssetRepository(pool, nil)
	search := NewSearchRepository(pool, nil)
	owner := createTestUser(t, pool)

	// The migrations create 512-wide columns; shrink for cheap test vectors.
	if err := search.SetDimensionSize(ctx, 3); err != nil {
		t.Fatalf("SetDimensionSize failed: %v", err)
	}

	embed := func(x, y, z float32) []float32 { return []float32{x, y, z} }

	t.Run("DimensionManagement", func(t *testing.T) {
		dim, err := search.DimensionSize(ctx)
		if err != nil {
			t.Fatalf("DimensionSize failed: %v", err)
		}
		if dim != 3 {
			t.Errorf("dimension = %d; want 3", dim)
		}

		if err := search.SetDimensionSize(ctx, 0); !catalog.IsValidation(err) {
			t.Errorf("dimension 0 should be a validation error, got %v", err)
		}
		if err := search.SetDimensionSize(ctx, catalog.MaxDimension+1); !catalog.IsValidation(err) {
			t.Errorf("oversized dimension should be a validation error, got %v", err)
		}
	})

	t.Run("SmartSearchOrdering", func(t *testing.T) {
		near := createTestAsset(t, assets, owner, nil)
		far := createTestAsset(t, assets, owner, nil)

		if err := search.UpsertEmbedding(ctx, near.ID, embed(1, 0, 0)); err != nil {
			t.Fatalf("UpsertEmbedding failed: %v", err)
		}
		if err := search.UpsertEmbedding(ctx, far.ID, embed(0, 1, 0)); err != nil {
			t.Fatalf("UpsertEmbedding failed: %v", err)
		}

		page, err := search.SearchSmart(ctx, catalog.PaginationOptions{Take: 10},
			catalog.SmartSearchOptions{
				AssetSearchOptions: catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{owner}},
				Embedding:          embed(1, 0, 0),
			})
		if err != nil {
			t.Fatalf("SearchSmart failed: %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("got %d results; want 2", len(page.Items))
		}
		if page.Items[0].ID != near.ID {
			t.Errorf("nearest asset should come first")
		}
	})

	t.Run("MetadataSearchNewestFirst", func(t *testing.T) {
		u := createTestUser(t, pool)
		old := createTestAsset(t, assets, u, func(a *catalog.Asset) {
			a.FileCreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		})
		recent := createTestAsset(t, assets, u, func(a *catalog.Asset) {
			a.FileCreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		})

		page, err := search.SearchMetadata(ctx, catalog.PaginationOptions{Take: 10},
			catalog.AssetSearchOptions{OwnerIDs: []uuid.UUID{u}})
		if err != nil {
			t.Fatalf("SearchMetadata failed: %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("got %d results; want 2", len(page.Items))
		}
		if page.Items[0].ID != recent.ID || page.Items[1].ID != old.ID {
			t.Error("metadata search should order by capture time, newest first")
		}

		if _, err := search.SearchMetadata(ctx, catalog.PaginationOptions{Take: 0},
			catalog.AssetSearchOptions{}); !catalog.IsValidation(err) {
			t.Errorf("take=0 should fail validation, got %v", err)
		}
	})

	t.Run("SmartSearchValidation", func(t *testing.T) {
		opts := catalog.SmartSearchOptions{Embedding: embed(1, 0, 0)}
		_, err := search.SearchSmart(ctx, catalog.PaginationOptions{Take: 0}, opts)
		if !catalog.IsValidation(err) {
			t.Errorf("take=0 should fail validation, got %v", err)
		}
		_, err = search.SearchSmart(ctx, catalog.PaginationOptions{Take: catalog.MaxVectorResults + 1}, opts)
		if !catalog.IsValidation(err) {
			t.Errorf("take above the vector bound should fail validation, got %v", err)
		}
	})

	t.Run("DuplicateSearchMaxDistance", func(t *testing.T) {
		query := createTestAsset(t, assets, owner, nil)
		twin := createTestAsset(t, assets, owner, nil)
		other := createTestAsset(t, assets, owner, nil)

		if err := search.UpsertEmbedding(ctx, query.ID, embed(1, 0, 0)); err != nil {
			t.Fatalf("UpsertEmbedding failed: %v", err)
		}
		if err := search.UpsertEmbedding(ctx, twin.ID, embed(0.99, 0.1, 0)); err != nil {
			t.Fatalf("UpsertEmbedding failed: %v", err)
		}
		if err := search.UpsertEmbedding(ctx, other.ID, embed(0, 0, 1)); err != nil {
			t.Fatalf("UpsertEmbedding failed: %v", err)
		}

		results, err := search.SearchDuplicates(ctx, catalog.DuplicateSearchOptions{
			AssetID:     query.ID,
			Embedding:   embed(1, 0, 0),
			MaxDistance: 0.6,
			Type:        catalog.AssetTypeImage,
			OwnerIDs:    []uuid.UUID{owner},
		})
		if err != nil {
			t.Fatalf("SearchDuplicates failed: %v", err)
		}
		for i, res := range results {
			if res.AssetID == query.ID {
				t.Error("query asset must be excluded from its own candidates")
			}
			if res.Distance > 0.6 {
				t.Errorf("candidate %s exceeds maxDistance: %f", res.AssetID, res.Distance)
			}
			if i > 0 && results[i-1].Distance > res.Distance {
				t.Error("candidates not ordered by distance")
			}
		}
		found := false
		for _, res := range results {
			if res.AssetID == twin.ID {
				found = true
			}
		}
		if !found {
			t.Error("near twin missing from duplicate candidates")
		}
	})

	t.Run("DuplicateSearchIndexed", func(t *testing.T) {
		entries, err := search.AllEmbeddings(ctx)
		if err != nil {
			t.Fatalf("AllEmbeddings failed: %v", err)
		}
		idx := catalog.NewDuplicateIndex()
		if err := idx.Build(entries); err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		search.SetDuplicateIndex(idx)
		defer search.SetDuplicateIndex(nil)

		query := entries[0]
		results, err := search.SearchDuplicates(ctx, catalog.DuplicateSearchOptions{
			AssetID:     query.AssetID,
			Embedding:   query.Embedding,
			MaxDistance: 0.6,
			Type:        catalog.AssetTypeImage,
			OwnerIDs:    []uuid.UUID{owner},
		})
		if err != nil {
			t.Fatalf("indexed SearchDuplicates failed: %v", err)
		}
		for _, res := range results {
			if res.AssetID == query.AssetID {
				t.Error("query asset leaked into indexed candidates")
			}
			if res.Distance > 0.6 {
				t.Errorf("indexed candidate exceeds maxDistance: %f", res.Distance)
			}
		}
	})

	t.Run("DeleteAllEmbeddings", func(t *testing.T) {
		if err := search.DeleteAllEmbeddings(ctx); err != nil {
			t.Fatalf("DeleteAllEmbeddings failed: %v", err)
		}
		entries, err := search.AllEmbeddings(ctx)
		if err != nil {
			t.Fatalf("AllEmbeddings failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty table, got %d embeddings", len(entries))
		}
	})
}
