// Package main implements solace-index, the CLI that loads therapy documents
// into the chunk store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/bootstrap"
	"github.com/kailas-cloud/solace/internal/config"
	logpkg "github.com/kailas-cloud/solace/internal/logger"
	"github.com/kailas-cloud/solace/internal/metrics"
	"github.com/kailas-cloud/solace/internal/usecase/ingest"
	"github.com/kailas-cloud/solace/internal/version"
)

var (
	// env selects config/<env>.yaml
	env string
	// configPath overrides env-based lookup
	configPath string
	// docsDir is the directory indexed by the index command
	docsDir string
	// assumeYes skips the clear confirmation
	assumeYes bool
)

var errNotConfirmed = errors.New("refusing to clear the index without --yes")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "solace-index",
	Short: "Load therapy documents into the solace chunk store",
	Long: `solace-index chunks, embeds and stores therapy documents so the solace API
can retrieve them. It reads the same config/<env>.yaml as the server.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (local, docker, prod)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "explicit config file, overrides --env")

	indexCmd.Flags().StringVar(&docsDir, "dir", "data/documents", "directory with .txt and .md documents")
	clearCmd.Flags().BoolVar(&assumeYes, "yes", false, "confirm deleting every indexed chunk")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(countCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed and store every document in a directory",
	Long: `Index every .txt, .md and .markdown file under --dir.

Examples:
  # Index the bundled documents
  solace-index index

  # Index another directory against the docker config
  solace-index index --env docker --dir /srv/documents`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every indexed chunk",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed chunks",
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

// indexer holds the wiring shared by the subcommands.
type indexer struct {
	svc     *ingest.Service
	backend *bootstrap.Backend
	logger  *zap.Logger
}

func (r *indexer) close() {
	r.backend.Close()
	_ = r.logger.Sync()
}

func setup(ctx context.Context) (*indexer, error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logEnv := env
	if logEnv == "" {
		logEnv = "local"
	}
	logger, err := logpkg.NewLogger(logEnv, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	backend, err := bootstrap.OpenBackend(ctx, &cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}

	docEmbedder, _ := bootstrap.NewEmbedder(&cfg, backend.KV, cfg.Embedding.DocInstruction, logger)
	svc := ingest.New(
		backend.Chunks,
		docEmbedder,
		ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap()),
		cfg.Ingest.BatchSize,
		logger,
	)
	return &indexer{svc: svc, backend: backend, logger: logger}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	info, err := os.Stat(docsDir)
	if err != nil {
		return fmt.Errorf("documents directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", docsDir)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	report, err := rt.svc.IndexFS(ctx, os.DirFS(docsDir), ".")
	if err != nil {
		return fmt.Errorf("index %s: %w", docsDir, err)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !assumeYes {
		return errNotConfirmed
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	n, err := rt.svc.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chunks\n", n)
	return nil
}

func runCount(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	n, err := rt.backend.Chunks.Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d chunks indexed\n", n)
	return nil
}

func printReport(w io.Writer, r ingest.Report) {
	_, _ = fmt.Fprintf(w, "Indexed %d files into %d chunks (~%d tokens)\n", r.Files, r.Chunks, r.Tokens)
}
