package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoSimBot/config"
	"cryptoSimBot/internal/adapters/binanceclient"
	"cryptoSimBot/internal/adapters/logger"
	"cryptoSimBot/internal/adapters/marketmock"
	"cryptoSimBot/internal/adapters/sqlite"
	"cryptoSimBot/internal/app"
	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ledger"
	"cryptoSimBot/internal/metrics"
	"cryptoSimBot/internal/ports"
	"cryptoSimBot/internal/scam"
	"cryptoSimBot/internal/scheduler"
	"cryptoSimBot/internal/web"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Trade Journal (SQLite)
	journal, err := sqlite.NewJournal(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade journal")
		log.Fatalf("FATAL: Failed to initialize trade journal: %v", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade journal")
		}
	}()

	// 4. Initialize Scam Detector and Decision Source
	var detector *scam.Detector
	if cfg.ScamFilterOn {
		detector = scam.NewDetector(scam.Config{
			FlagChance: cfg.ScamFlagChance,
			Logger:     appLogger,
		})
	}
	source := marketmock.New(marketmock.Config{
		MinConfidence: cfg.MinConfidence,
		Logger:        appLogger,
	}, detector)

	// 5. Initialize Ledger and Outcome Scheduler
	led, err := ledger.New(ledger.Config{
		ConfidenceStep: cfg.ConfidenceStep,
		ConfidenceCap:  cfg.ConfidenceCap,
		InitConfidence: cfg.InitConfidence,
		Logger:         appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ledger")
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}

	sched, err := scheduler.New(scheduler.Config{
		DelayMin:  cfg.CloseDelayMin,
		DelayMax:  cfg.CloseDelayMax,
		ExitDrift: cfg.ExitDrift,
		Logger:    appLogger,
	}, led)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize scheduler")
		log.Fatalf("FATAL: Failed to initialize scheduler: %v", err)
	}
	led.AttachScheduler(sched)

	// 6. Initialize Live Executor (optional, only when API keys are provided)
	var executor ports.LiveExecutor
	if cfg.APIKey != "" && cfg.SecretKey != "" {
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		executor = client
	} else {
		appLogger.Warn(ctx, "No exchange API keys configured; live mode will log orders without routing them")
	}

	// 7. Initialize Mode Controller and Engine
	modeCtrl := app.NewModeController(appLogger)
	var blocked app.BlockedCounter
	if detector != nil {
		blocked = detector
	}
	engine, err := app.NewEngine(cfg, appLogger, source, led, modeCtrl, executor, blocked)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize engine")
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}

	// 8. WebSocket Hub and event wiring
	hub := web.NewHub(appLogger)
	go hub.Run()

	led.OnOpened(func(pos domain.Position) {
		metrics.PositionsOpened.WithLabelValues(pos.Symbol, string(pos.Side)).Inc()
		metrics.OpenPositions.Inc()
		hub.Broadcast(web.PositionOpenedEvent(pos))
	})
	led.OnClosed(func(pos domain.Position) {
		result := "loss"
		if pos.PnL > 0 {
			result = "win"
		}
		metrics.PositionsClosed.WithLabelValues(pos.Symbol, result).Inc()
		metrics.OpenPositions.Dec()
		metrics.RealizedPnL.Add(pos.PnL)

		perf, _ := led.Snapshot()
		metrics.ConfidenceLevel.Set(perf.ConfidenceLevel)
		metrics.LearningProgress.Set(perf.LearningProgress)

		hub.Broadcast(web.PositionClosedEvent(pos))
		if err := journal.Record(context.Background(), &pos); err != nil {
			appLogger.Error(context.Background(), err, "Failed to journal closed trade", map[string]interface{}{"positionID": pos.ID})
		}
	})
	modeCtrl.OnChange(func(mode domain.RunMode) {
		hub.Broadcast(web.ModeChangedEvent(mode))
	})
	engine.OnReadyForLive(func() {
		hub.Broadcast(web.ReadyForLiveEvent())
	})

	// 9. HTTP Server
	handlers := web.NewHandlers(engine, journal, led.RecentClosed, appLogger)
	srv := web.NewServer(":"+cfg.HTTPPort, web.NewRouter(handlers, hub))

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"port": cfg.HTTPPort})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(ctx, err, "HTTP server error")
			os.Exit(1)
		}
	}()

	// 10. Run the engine until interrupted. Trading stays stopped until a
	// caller hits /api/start-trading.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = engine.Run(runCtx)
	}()
	appLogger.Info(ctx, "Bot ready in simulation mode; POST /api/start-trading to begin scanning")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, err, "HTTP server shutdown error")
	}
	appLogger.Info(ctx, "Bot stopped")
}
