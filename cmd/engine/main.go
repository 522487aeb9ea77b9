package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/httpapi"
	"jobfeed-engine/internal/identity"
	"jobfeed-engine/internal/ingest"
	"jobfeed-engine/internal/lifecycle"
	"jobfeed-engine/internal/poll"
	"jobfeed-engine/internal/scheduler"
	"jobfeed-engine/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("engine exited", zap.Error(err))
	}
}

// resolveDataDir picks the engine data dir. The environment variable wins,
// then the configured app.data_dir, then the working directory.
func resolveDataDir(env, configured string) string {
	if env != "" {
		return env
	}
	if configured != "" {
		return configured
	}
	return "."
}

func run(log *zap.Logger) error {
	// The config file is bootstrapped next to the env dir (or cwd) so it can
	// be found before it is read; app.data_dir then decides where the
	// database and the instance lock live.
	envDataDir := os.Getenv("JOBFEED_DATA_DIR")
	bootDir := resolveDataDir(envDataDir, "")
	if err := os.MkdirAll(bootDir, 0o755); err != nil {
		return err
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(bootDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	cfgVal.Store(cfg)

	dataDir := resolveDataDir(envDataDir, cfg.App.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// Refuse to start twice against the same data dir.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("another engine instance holds %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	dbPath := filepath.Join(dataDir, "jobfeed.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		return err
	}

	clk := clock.System()
	repo := store.NewJobs(db)
	calc := identity.NewCalculator()
	rec := ingest.NewReconciler(repo, calc, clk, log)
	consumer := lifecycle.NewService(repo, clk, log)
	sweeper := lifecycle.NewSweeper(repo, clk, log)
	hub := events.NewHub()
	runner := poll.NewRunner(rec, hub, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(ctx, time.Duration(cfg.Polling.ScrapeSeconds)*time.Second, "poll", log,
		func(ctx context.Context) error {
			cur := cfgVal.Load().(config.Config)
			_, err := runner.RunOnce(ctx, cur)
			return err
		})

	go scheduler.Every(ctx, time.Duration(cfg.Polling.SweepSeconds)*time.Second, "sweep", log,
		func(ctx context.Context) error {
			swept, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			if swept > 0 {
				hub.Publish(events.MakeEvent("", events.TypeJobsSwept, map[string]any{"swept": swept}))
			}
			return nil
		})

	mux := httpapi.NewMux(httpapi.Deps{
		Reconciler:  rec,
		Consumer:    consumer,
		Sweeper:     sweeper,
		Runner:      runner,
		Hub:         hub,
		Log:         log,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.Cors,
			httpapi.RequestID,
			httpapi.Recover(log),
			httpapi.AccessLog(log),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	attachShutdown(mux, srv, log)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info("engine listening",
		zap.String("addr", "http://"+addr),
		zap.String("db", dbPath),
		zap.String("config", userCfgPath))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
