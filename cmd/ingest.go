package cmd

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/photark/photark/internal/catalog"
	"github.com/photark/photark/internal/catalog/postgres"
	"github.com/photark/photark/internal/fingerprint"
)

// embedMaxSize bounds the longer image edge before upload to the embedding
// server.
const embedMaxSize = 1920

var ingestCmd = &cobra.Command{
	Use:   "ingest <owner-id> <directory>",
	Short: "Import images from a directory",
	Long: `Walks a directory and imports every image it finds. Files whose
checksum is already stored are skipped. Perceptual hashes prefilter the
batch: an image that looks like one imported earlier in the same run is
skipped before it reaches the database. Unless --no-embed is given, each
imported image is also sent to the embedding server and its vector stored
for smart search.

Examples:
  # Import a folder, computing embeddings
  photark ingest 6e48e89e-... ~/Pictures/2024

  # Import without the embedding server, stricter near-duplicate filter
  photark ingest 6e48e89e-... ~/Pictures/2024 --no-embed --hash-threshold 5`,
	Args: cobra.ExactArgs(2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("hash-threshold", 10, "Hamming distance below which images count as near-duplicates")
	ingestCmd.Flags().Bool("no-embed", false, "Skip the embedding server")
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ownerID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	dir := args[1]

	threshold := mustGetInt(cmd, "hash-threshold")
	noEmbed := mustGetBool(cmd, "no-embed")

	cfg, pool, logger, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	defer logger.Sync()

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		fmt.Printf("No images found under %s\n", dir)
		return nil
	}

	ctx := context.Background()
	assets := postgres.NewAssetRepository(pool, logger)
	search := postgres.NewSearchRepository(pool, logger)

	var embedder *fingerprint.EmbeddingClient
	if !noEmbed {
		embedder = fingerprint.NewEmbeddingClient(cfg.Embedding)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
	)

	// Hashes of images accepted so far in this run.
	var seen []*fingerprint.HashResult
	imported, skippedKnown, skippedAlike := 0, 0, 0
	start := time.Now()

	for _, path := range files {
		_ = bar.Add(1)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		sum := sha1.Sum(data)
		checksum := catalog.HexBytes(sum[:])
		existing, err := assets.GetByChecksum(ctx, ownerID, nil, checksum)
		if err != nil {
			return fmt.Errorf("checksum lookup for %s: %w", path, err)
		}
		if existing != nil {
			skippedKnown++
			continue
		}

		hashes, err := fingerprint.ComputeHashes(data)
		if err != nil {
			logger.Warn("undecodable image skipped", zap.String("path", path), zap.Error(err))
			continue
		}
		alike := false
		for _, h := range seen {
			if fingerprint.NearDuplicate(hashes, h, threshold) {
				alike = true
				break
			}
		}
		if alike {
			logger.Info("near-duplicate skipped", zap.String("path", path))
			skippedAlike++
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		modTime := info.ModTime().UTC()
		asset := &catalog.Asset{
			OwnerID:          ownerID,
			DeviceAssetID:    fmt.Sprintf("%s-%d", filepath.Base(path), info.Size()),
			DeviceID:         "cli-import",
			Type:             catalog.AssetTypeImage,
			Checksum:         checksum,
			OriginalPath:     path,
			OriginalFileName: filepath.Base(path),
			IsVisible:        true,
			FileCreatedAt:    modTime,
			FileModifiedAt:   modTime,
			LocalDateTime:    modTime,
		}
		if err := assets.Create(ctx, asset); err != nil {
			return fmt.Errorf("failed to create asset for %s: %w", path, err)
		}

		if embedder != nil {
			payload, err := fingerprint.FitJPEG(data, embedMaxSize)
			if err != nil {
				return fmt.Errorf("failed to resize %s: %w", path, err)
			}
			result, err := embedder.EmbedImage(ctx, payload)
			if err != nil {
				return fmt.Errorf("failed to embed %s: %w", path, err)
			}
			if err := search.UpsertEmbedding(ctx, asset.ID, result.Embedding); err != nil {
				return fmt.Errorf("failed to store embedding for %s: %w", path, err)
			}
		}

		seen = append(seen, hashes)
		imported++
	}
	fmt.Println()

	fmt.Printf("%d imported, %d already known, %d near-duplicates skipped in %s\n",
		imported, skippedKnown, skippedAlike, time.Since(start).Round(time.Millisecond))
	return nil
}
