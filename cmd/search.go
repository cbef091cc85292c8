package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/photark/photark/internal/catalog"
	"github.com/photark/photark/internal/catalog/postgres"
	"github.com/photark/photark/internal/fingerprint"
)

var searchCmd = &cobra.Command{
	Use:   "search <owner-id>",
	Short: "Search assets by metadata or natural language",
	Long: `Searches the asset catalog for an owner. Without --text this is a
metadata search ordered by capture time. With --text the query is embedded
via the embedding server and results are ordered by vector distance.

Examples:
  # Metadata search
  photark search 6e48e89e-... --city Prague --favorite

  # Smart search
  photark search 6e48e89e-... --text "sunset over mountains" --take 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("text", "", "Natural language query (smart search)")
	searchCmd.Flags().String("city", "", "Filter by EXIF city")
	searchCmd.Flags().String("make", "", "Filter by camera make")
	searchCmd.Flags().String("model", "", "Filter by camera model")
	searchCmd.Flags().String("filename", "", "Filter by original file name (substring)")
	searchCmd.Flags().Bool("favorite", false, "Only favorites")
	searchCmd.Flags().Bool("archived", false, "Include archived assets")
	searchCmd.Flags().Int("take", 25, "Page size")
	searchCmd.Flags().Int("skip", 0, "Page offset")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ownerID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}

	text := mustGetString(cmd, "text")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, pool, logger, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	defer logger.Sync()

	options := catalog.AssetSearchOptions{
		OwnerIDs:     []uuid.UUID{ownerID},
		WithArchived: mustGetBool(cmd, "archived"),
	}
	if mustGetBool(cmd, "favorite") {
		fav := true
		options.IsFavorite = &fav
	}
	if v := mustGetString(cmd, "city"); v != "" {
		options.City = catalog.TextEquals(v)
	}
	if v := mustGetString(cmd, "make"); v != "" {
		options.Make = catalog.TextEquals(v)
	}
	if v := mustGetString(cmd, "model"); v != "" {
		options.Model = catalog.TextEquals(v)
	}
	if v := mustGetString(cmd, "filename"); v != "" {
		options.OriginalFileName = &v
	}

	pagination := catalog.PaginationOptions{
		Take: mustGetInt(cmd, "take"),
		Skip: mustGetInt(cmd, "skip"),
	}

	ctx := context.Background()
	search := postgres.NewSearchRepository(pool, logger)

	var page catalog.Page[catalog.Asset]
	if text != "" {
		embedder := fingerprint.NewEmbeddingClient(cfg.Embedding)
		result, err := embedder.EmbedText(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}
		page, err = search.SearchSmart(ctx, pagination, catalog.SmartSearchOptions{
			AssetSearchOptions: options,
			Embedding:          result.Embedding,
		})
		if err != nil {
			return fmt.Errorf("smart search failed: %w", err)
		}
	} else {
		page, err = search.SearchMetadata(ctx, pagination, options)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	for _, asset := range page.Items {
		fmt.Printf("%s  %s  %s\n", asset.ID, asset.FileCreatedAt.Format("2006-01-02 15:04"), asset.OriginalFileName)
	}
	fmt.Printf("\n%d assets", len(page.Items))
	if page.HasNextPage {
		fmt.Printf(" (more available, use --skip %d)", pagination.Skip+pagination.Take)
	}
	fmt.Println()
	return nil
}
