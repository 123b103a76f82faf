/*
Package cli implements the agentforge commands: the interactive chat loop,
registry listing, stats, and version.
*/
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agentforge/internal/config"
	"agentforge/internal/coordinator"
	"agentforge/internal/history"
	"agentforge/internal/llm"
	"agentforge/internal/registry"
	"agentforge/internal/similarity"
)

// exitWords terminate the read loop with exit code 0.
var exitWords = map[string]bool{"quit": true, "exit": true, "q": true}

// NewChatCmd creates the 'chat' command: the interactive request loop.
func NewChatCmd() *cobra.Command {
	var verbose bool
	var threshold float64

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive request loop",
		Long: `Read requests from stdin, route each one to a specialized handler
(reusing an existing one when similar enough, creating one otherwise), and
print the delegated response.

Type 'quit', 'exit', or 'q' to leave.`,
		Example: `  agentforge chat
  agentforge chat --threshold 0.4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunChat(verbose, threshold)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Override the similarity reuse threshold")

	return cmd
}

// RunChat wires the components together and runs the read loop. It is also
// the root command's default behavior.
func RunChat(verbose bool, threshold float64) error {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Missing credential is fatal before the loop starts.
	if err := cfg.RequireCredential(); err != nil {
		return err
	}
	if threshold > 0 {
		cfg.SimilarityThreshold = threshold
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	reg, err := registry.Open(cfg.StorageFile, logger)
	if err != nil {
		return fmt.Errorf("failed to open handler registry: %w", err)
	}

	ctx := context.Background()
	completer, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	histStore := history.Open(cfg.HistoryFile, logger)
	defer histStore.Close()
	tracker := history.NewTracker(histStore, logger)
	defer tracker.Stop()

	engine := similarity.NewEngine(cfg.SimilarityThreshold)
	master := coordinator.New(reg, engine, completer, tracker, logger)

	printBanner(reg)
	return readLoop(ctx, master, cfg, os.Stdin)
}

// readLoop accepts one line per request and processes requests end-to-end,
// one at a time. Per-request errors never terminate the loop; only SIGINT
// or an exit word does.
func readLoop(ctx context.Context, master *coordinator.Master, cfg *config.Config, in *os.File) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Print("\nYou: ")
		select {
		case <-sigChan:
			fmt.Println("\nGoodbye!")
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			input := strings.TrimSpace(line)
			if input == "" {
				fmt.Println("Please enter a request.")
				continue
			}
			if exitWords[strings.ToLower(input)] {
				fmt.Println("Goodbye!")
				return nil
			}

			reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
			response := master.Handle(reqCtx, input)
			cancel()

			fmt.Printf("\n%s\n", response)
		}
	}
}

func printBanner(reg *registry.Registry) {
	stats := reg.Stats()
	fmt.Println("agentforge - dynamic task delegation")
	fmt.Printf("Handlers on file: %d\n", stats.Total)
	fmt.Println("Type 'quit', 'exit', or 'q' to exit.")
}

// newLogger builds the process logger shared by all components.
func newLogger(verbose bool) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return logCfg.Build()
}
