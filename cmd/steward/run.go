package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/steward/pkg/cluster"
	"github.com/cuemby/steward/pkg/config"
	"github.com/cuemby/steward/pkg/coordinator"
	"github.com/cuemby/steward/pkg/events"
	"github.com/cuemby/steward/pkg/leader"
	"github.com/cuemby/steward/pkg/lifecycle"
	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/metrics"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/cuemby/steward/pkg/syncup"
	"github.com/cuemby/steward/pkg/threadpool"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Steward node",
	Long: `Run a Steward node.

Every node of the cluster runs the same command with the same peer list.
Raft elects one of them; that node becomes the coordinator and runs the
sync up job every sync_up_job_interval_seconds. Editing the config file
changes the interval without a restart.

Examples:
  # Single node, no raft
  steward run --standalone --data-dir ./data

  # Cluster member
  steward run --config steward.yaml`,
	RunE: runNode,
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Config file (watched for sync up interval changes)")
	runCmd.Flags().String("node-id", "", "Unique node ID")
	runCmd.Flags().String("bind-addr", "", "Address for Raft communication")
	runCmd.Flags().String("data-dir", "", "Data directory for cluster state")
	runCmd.Flags().String("metrics-addr", "", "Address for metrics and health endpoints")
	runCmd.Flags().Bool("standalone", false, "Run without raft; this node is always the coordinator")
	runCmd.Flags().Int("sync-interval", 0, "Sync up job interval in seconds (overrides the config file at start-up)")
}

func loadRunConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	} else {
		cfg.SyncUpJobIntervalSeconds = 10
	}

	flags := cmd.Flags()
	if flags.Changed("node-id") {
		cfg.NodeID, _ = flags.GetString("node-id")
	}
	if flags.Changed("bind-addr") {
		cfg.BindAddr, _ = flags.GetString("bind-addr")
	}
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("standalone") {
		cfg.Standalone, _ = flags.GetBool("standalone")
	}
	if flags.Changed("sync-interval") {
		cfg.SyncUpJobIntervalSeconds, _ = flags.GetInt("sync-interval")
	}
	if !cmd.Root().PersistentFlags().Changed("log-level") {
		log.Init(log.Config{Level: log.ParseLevel(cfg.Log.Level), JSONOutput: cfg.Log.JSON, Output: os.Stderr})
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger := log.WithNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.SetVersion(Version)
	hooks := lifecycle.NewRegistry()

	broker := events.NewBroker()
	broker.Start()
	sub := broker.Subscribe()
	go logEvents(sub)
	_ = hooks.OnBeforeShutdown("events", func(context.Context) error {
		broker.Unsubscribe(sub)
		broker.Stop()
		return nil
	})

	// Cluster membership, leadership and the metadata store
	var (
		members syncup.Cluster
		source  leader.Source
		manual  *leader.Manual
	)
	if cfg.Standalone {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := storage.NewBoltStore(cfg.DataDir, nil)
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		_ = hooks.OnBeforeShutdown("store", func(context.Context) error { return store.Close() })

		members = cluster.NewLocal(cfg.NodeID, store)
		manual = leader.NewManual()
		source = manual
		metrics.SetCriticalComponents("store", "coordinator")
		metrics.RegisterComponent("store", true, "standalone")
	} else {
		peers := make([]cluster.Peer, 0, len(cfg.Peers))
		for _, p := range cfg.Peers {
			peers = append(peers, cluster.Peer{ID: p.ID, Address: p.Address})
		}
		node, err := cluster.NewNode(cluster.Config{
			NodeID:   cfg.NodeID,
			BindAddr: cfg.BindAddr,
			DataDir:  cfg.DataDir,
			Peers:    peers,
		})
		if err != nil {
			return err
		}
		if err := node.Start(); err != nil {
			_ = node.Shutdown()
			return err
		}
		_ = hooks.OnBeforeShutdown("cluster", func(context.Context) error { return node.Shutdown() })

		collector := cluster.NewMetricsCollector(node, coordinator.JobsIndex, syncup.RoutingIndex, syncup.ArrangementIndex)
		collector.Start()
		_ = hooks.OnBeforeShutdown("metrics-collector", func(context.Context) error {
			collector.Stop()
			return nil
		})

		raftSource := leader.NewRaftSource(node.LeaderCh())
		go raftSource.Run(ctx)
		members = node
		source = raftSource
	}

	pool := threadpool.New(threadpool.WithMaxConcurrent(cfg.ThreadPool.MaxConcurrent))
	_ = hooks.OnBeforeShutdown("threadpool", pool.Shutdown)

	syncer := syncup.NewRoutingSyncer(members)
	redeployer := syncup.NewRedeployer(members)
	_ = hooks.OnBeforeShutdown("redeployer", func(context.Context) error {
		redeployer.Close()
		return nil
	})

	seconds, coerced := cfg.SyncUpInterval()
	if coerced {
		logger.Warn().Int("configured", cfg.SyncUpJobIntervalSeconds).Msg("Sync up interval out of range, disabling sync up job")
	}
	interval := config.NewIntSetting("sync_up_job_interval_seconds", seconds)

	handler := coordinator.NewHandler(
		coordinator.NewController(pool, "sync-up"),
		pool,
		syncer.Sync,
		seconds,
		coordinator.WithRegistrar(coordinator.NewRegistrar(members, broker)),
		coordinator.WithBootstrap(redeployer.Bootstrap),
		coordinator.WithEvents(broker),
		coordinator.WithNodeID(cfg.NodeID),
		coordinator.WithStatsCollector(cfg.StatsCollector.IntervalMinutes, cfg.StatsCollector.LockDurationSeconds),
	)
	redeployer.SetStartupListener(handler.StartupListener)

	if err := handler.Attach(source, interval, hooks); err != nil {
		return err
	}
	source.Subscribe(redeployer)
	metrics.RegisterComponent("coordinator", true, handler.State().String())

	if path != "" {
		watcher := config.NewWatcher(path, cfg)
		watcher.BindInterval(interval)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Config watcher stopped")
			}
		}()
	}

	server := metricsServer(cfg.MetricsAddr)
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	if manual != nil {
		manual.Acquire()
	}

	fmt.Printf("✓ Steward node %s running (metrics on %s). Press Ctrl+C to stop.\n", cfg.NodeID, cfg.MetricsAddr)

	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := handler.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Coordinator did not close cleanly")
	}
	if err := hooks.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Shutdown hooks failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for ev := range sub {
		entry := logger.Debug().Str("type", string(ev.Type)).Str("id", ev.ID)
		for k, v := range ev.Metadata {
			entry = entry.Str(k, v)
		}
		entry.Msg(ev.Message)
	}
}
