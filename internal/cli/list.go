package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentforge/internal/config"
	"agentforge/internal/registry"
)

// NewListCmd creates the 'list' command for showing stored handlers.
func NewListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all stored handlers",
		Example: `  agentforge list
  agentforge list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runList(jsonOutput bool) error {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reg, err := registry.Open(cfg.StorageFile, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open handler registry: %w", err)
	}

	records := reg.All()
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No handlers stored yet.")
		fmt.Println("Run 'agentforge chat' and make a request to create one.")
		return nil
	}

	fmt.Printf("Stored handlers (%d):\n\n", len(records))
	for _, rec := range records {
		fmt.Printf("  %s  [%s]\n", rec.Name, rec.Category)
		fmt.Printf("    %s\n", rec.Description)
		fmt.Printf("    used %d time(s), last used %s\n\n",
			rec.UseCount, rec.LastUsedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
