package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/photark/photark/internal/catalog"
	"github.com/photark/photark/internal/catalog/postgres"
)

var dimsizeCmd = &cobra.Command{
	Use:   "dimsize",
	Short: "Show or change the embedding vector dimension",
	Long: `Without flags, prints the current width of the smart search vector
column. With --set, resizes both vector columns to the new width.

Resizing is DESTRUCTIVE: all stored embeddings are discarded and the
vector indexes are rebuilt. Run a full re-embedding afterwards.

The dimension must match the embedding model in use; check the model
catalog with --model.`,
	RunE: runDimsize,
}

func init() {
	rootCmd.AddCommand(dimsizeCmd)

	dimsizeCmd.Flags().Int("set", 0, "New vector dimension (destructive)")
	dimsizeCmd.Flags().String("model", "", "Look up the dimension of a known model")
	dimsizeCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func runDimsize(cmd *cobra.Command, args []string) error {
	newDim := mustGetInt(cmd, "set")
	model := mustGetString(cmd, "model")

	cfg, pool, logger, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	defer logger.Sync()

	if model != "" {
		dim := cfg.ModelDimension(model)
		if dim == 0 {
			return fmt.Errorf("unknown model %q", model)
		}
		fmt.Printf("%s: %d dimensions\n", model, dim)
		if newDim == 0 {
			return nil
		}
	}

	ctx := context.Background()
	search := postgres.NewSearchRepository(pool, logger)

	current, err := search.DimensionSize(ctx)
	if err != nil {
		return fmt.Errorf("failed to read vector dimension: %w", err)
	}

	if newDim == 0 {
		fmt.Printf("Current vector dimension: %d\n", current)
		return nil
	}

	if newDim == current {
		fmt.Printf("Vector dimension already %d, nothing to do\n", current)
		return nil
	}

	if !mustGetBool(cmd, "yes") {
		fmt.Printf("Resizing %d -> %d discards ALL stored embeddings. Continue? [y/N] ", current, newDim)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := search.SetDimensionSize(ctx, newDim); err != nil {
		if catalog.IsValidation(err) {
			return fmt.Errorf("invalid dimension %d: %w", newDim, err)
		}
		return fmt.Errorf("failed to resize vector columns: %w", err)
	}

	fmt.Printf("Vector dimension changed to %d. Re-run embedding for all assets.\n", newDim)
	return nil
}
