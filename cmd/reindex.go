package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/photark/photark/internal/catalog"
	"github.com/photark/photark/internal/catalog/postgres"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the duplicate index and regroup duplicates",
	Long: `Loads all smart search embeddings into the in-memory duplicate
index, then scans every asset for near-duplicate candidates and assigns
duplicate group ids. Assets already grouped together stay together;
newly discovered matches join the existing group.

Examples:
  # Preview what would be grouped
  photark reindex --dry-run

  # Regroup with a stricter distance
  photark reindex --max-distance 0.01`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().Float64("max-distance", 0, "Cosine distance ceiling (default from config)")
	reindexCmd.Flags().Bool("dry-run", false, "Report groups without writing")
}

func runReindex(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")

	cfg, pool, logger, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	defer logger.Sync()

	maxDistance := mustGetFloat64(cmd, "max-distance")
	if maxDistance == 0 {
		maxDistance = cfg.Search.MaxDistance
	}

	ctx := context.Background()
	assets := postgres.NewAssetRepository(pool, logger)
	search := postgres.NewSearchRepository(pool, logger)
	start := time.Now()

	entries, err := search.AllEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No embeddings stored, nothing to index")
		return nil
	}

	index := catalog.NewDuplicateIndex()
	if err := index.Build(entries); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	search.SetDuplicateIndex(index)
	logger.Info("duplicate index built",
		zap.Int("embeddings", index.Count()),
		zap.Duration("took", time.Since(start)))

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Scanning for duplicates"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
	)

	// groupOf maps an asset to its assigned duplicate group.
	groupOf := make(map[uuid.UUID]uuid.UUID)
	groups := 0

	for _, entry := range entries {
		_ = bar.Add(1)

		if _, done := groupOf[entry.AssetID]; done {
			continue
		}

		ids, _, err := index.Search(entry.Embedding, catalog.DuplicateCandidateLimit, maxDistance)
		if err != nil {
			return fmt.Errorf("index search failed: %w", err)
		}

		// The query asset always matches itself; a group needs at least
		// one other member.
		members := make([]uuid.UUID, 0, len(ids))
		groupID := uuid.Nil
		for _, id := range ids {
			if existing, ok := groupOf[id]; ok {
				groupID = existing
				continue
			}
			members = append(members, id)
		}
		if len(members) < 2 && groupID == uuid.Nil {
			continue
		}
		if groupID == uuid.Nil {
			groupID = uuid.New()
			groups++
		}
		for _, id := range members {
			groupOf[id] = groupID
		}

		if !dryRun && len(members) > 0 {
			dup := groupID
			if err := assets.UpdateAll(ctx, members, catalog.AssetUpdate{DuplicateID: &dup}); err != nil {
				return fmt.Errorf("failed to assign duplicate group: %w", err)
			}
		}
	}
	fmt.Println()

	verb := "assigned"
	if dryRun {
		verb = "would assign"
	}
	fmt.Printf("%d embeddings indexed, %s %d assets across %d new groups in %s\n",
		index.Count(), verb, len(groupOf), groups, time.Since(start).Round(time.Millisecond))
	return nil
}
