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
)

var statsCmd = &cobra.Command{
	Use:   "stats <owner-id>",
	Short: "Show asset counts for an owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("favorites", false, "Count only favorites")
	statsCmd.Flags().Bool("trashed", false, "Count only trashed assets")
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ownerID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}

	_, pool, logger, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	defer logger.Sync()

	options := catalog.AssetStatsOptions{}
	if mustGetBool(cmd, "favorites") {
		fav := true
		options.IsFavorite = &fav
	}
	options.IsTrashed = mustGetBool(cmd, "trashed")

	repo := postgres.NewAssetRepository(pool, logger)
	stats, err := repo.Statistics(context.Background(), ownerID, options)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Images: %d\n", stats.Images)
	fmt.Printf("Videos: %d\n", stats.Videos)
	fmt.Printf("Audio:  %d\n", stats.Audio)
	fmt.Printf("Other:  %d\n", stats.Other)
	fmt.Printf("Total:  %d\n", stats.Total())
	return nil
}
