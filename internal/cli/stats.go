package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentforge/internal/agent"
	"agentforge/internal/config"
	"agentforge/internal/history"
	"agentforge/internal/registry"
)

// NewStatsCmd creates the 'stats' command for registry and usage totals.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show handler registry statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reg, err := registry.Open(cfg.StorageFile, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open handler registry: %w", err)
	}

	stats := reg.Stats()
	fmt.Println("Registry statistics:")
	fmt.Printf("  Total handlers: %d\n", stats.Total)
	if stats.Total > 0 {
		fmt.Println("  By category:")
		for _, c := range agent.Categories {
			if count := stats.ByCategory[c]; count > 0 {
				fmt.Printf("    %-10s %d\n", c, count)
			}
		}
	}
	fmt.Printf("  Storage file: %s\n", stats.Path)

	histStore := history.Open(cfg.HistoryFile, zap.NewNop())
	defer histStore.Close()
	if histStore.Enabled() {
		selections, err := histStore.Selections()
		if err != nil {
			return fmt.Errorf("failed to read usage history: %w", err)
		}
		fmt.Println("Usage history:")
		fmt.Printf("  Selections: %d (%d reused, %d created)\n",
			selections.Total, selections.Reused, selections.Created)
	}
	return nil
}
