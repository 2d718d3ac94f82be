package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"semsearch/internal/adapter/cache"
	"semsearch/internal/metrics"
	"semsearch/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving CSV uploads and semantic search.

Routes:
  POST /api/upload   multipart field "file" with a .csv catalog
  POST /api/search   {"query": "...", "limit": 10}
  GET  /healthz      vector store reachability
  GET  /metrics      Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	orch, err := newOrchestrator(cfg, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The collection is created lazily on first upload if Qdrant is not up yet.
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := orch.EnsureCollection(ensureCtx); err != nil {
		log.Error(err, "collection not ready at startup", "collection", orch.Collection())
	}
	cancel()

	searcher := cache.NewCachedSearcher(orch,
		cache.NewQueryCache(cfg.Search.CacheSize, time.Duration(cfg.Search.CacheTTLS)*time.Second))

	srv := &server.Server{
		Indexer:     orch,
		Searcher:    searcher,
		Health:      orch,
		Invalidator: searcher,
		Gatherer:    reg,
		Metrics:     m,
		Log:         log.WithName("server"),
		Config: server.Config{
			DefaultLimit:   cfg.Search.DefaultLimit,
			BatchSize:      cfg.Indexing.BatchSize,
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		},
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	if err := srv.ListenAndServe(ctx, addr, time.Duration(cfg.Server.ShutdownWaitS)*time.Second); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
