package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/photark/photark/internal/catalog"
	"github.com/photark/photark/internal/catalog/postgres"
)

var syncCmd = &cobra.Command{
	Use:   "sync <owner-id>",
	Short: "Dump assets for device sync",
	Long: `Streams the owner's assets as JSON lines, the way a device client
would consume them. Without --updated-after this is a full sync (keyset
paginated by id); with it, a delta sync of assets updated since the
timestamp, each carrying its current stack sibling count.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("updated-after", "", "RFC3339 timestamp for delta sync")
	syncCmd.Flags().Int("batch", 1000, "Page size per request")
}

func runSync(cmd *cobra.Command, args []string) error {
	ownerID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}

	batch := mustGetInt(cmd, "batch")
	updatedAfter := mustGetString(cmd, "updated-after")

	_, pool, logger, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	defer logger.Sync()

	ctx := context.Background()
	repo := postgres.NewAssetRepository(pool, logger)
	enc := json.NewEncoder(os.Stdout)

	if updatedAfter != "" {
		since, err := time.Parse(time.RFC3339, updatedAfter)
		if err != nil {
			return fmt.Errorf("invalid --updated-after timestamp: %w", err)
		}
		assets, err := repo.DeltaSync(ctx, catalog.DeltaSyncOptions{
			OwnerIDs:     []uuid.UUID{ownerID},
			UpdatedAfter: since,
			Limit:        batch,
		})
		if err != nil {
			return fmt.Errorf("delta sync failed: %w", err)
		}
		for i := range assets {
			if err := enc.Encode(&assets[i]); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "%d assets updated since %s\n", len(assets), since.Format(time.RFC3339))
		return nil
	}

	var lastID *uuid.UUID
	total := 0
	for {
		assets, err := repo.FullSync(ctx, catalog.FullSyncOptions{
			OwnerID:      ownerID,
			LastID:       lastID,
			UpdatedUntil: time.Now().UTC(),
			Limit:        batch,
		})
		if err != nil {
			return fmt.Errorf("full sync failed: %w", err)
		}
		if len(assets) == 0 {
			break
		}
		for i := range assets {
			if err := enc.Encode(&assets[i]); err != nil {
				return err
			}
		}
		total += len(assets)
		id := assets[len(assets)-1].ID
		lastID = &id
		if len(assets) < batch {
			break
		}
	}

	fmt.Fprintf(os.Stderr, "%d assets synced\n", total)
	return nil
}
