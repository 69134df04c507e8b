package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quanterra/bandbot/internal/config"
	"github.com/quanterra/bandbot/internal/exchange/bybit"
	"github.com/quanterra/bandbot/internal/executor"
	"github.com/quanterra/bandbot/internal/monitoring"
	"github.com/quanterra/bandbot/internal/notifications"
	"github.com/quanterra/bandbot/internal/risk"
	"github.com/quanterra/bandbot/internal/sizing"
	"github.com/quanterra/bandbot/internal/validation"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (e.g., btcusdt_live.json)")
		envFile    = flag.String("env", ".env", "Environment file path (default: .env)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *configFile == "" {
		log.Fatal("Please specify a config file with -config flag")
	}

	// Load environment variables from .env file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	fmt.Println("🚀 Signal Execution Bot Starting...")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	gateway := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Demo:      cfg.Exchange.Demo,
	}, logger)

	printStartupInfo(cfg, gateway.Environment())

	health := monitoring.NewHealthChecker()

	hub := notifications.NewHub(logger)
	hub.Register(notifications.NewLogNotifier(logger))
	hub.Register(monitoring.NewMetricsNotifier(health))
	if cfg.Notifications.Enabled {
		hub.Register(notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChat))
		fmt.Println("📱 Telegram notifications enabled")
	}
	go hub.Run()

	calc := sizing.NewCalculator(sizing.Config{
		PositionSizePercent: cfg.Trading.PositionSizePercent,
		Leverage:            cfg.Trading.Leverage,
		MaxPositionSizeUsdt: cfg.Trading.MaxPositionSizeUsdt,
		MinPositionSizeUsdt: cfg.Trading.MinPositionSizeUsdt,
		TakeProfitPercent:   cfg.Trading.TakeProfitPercent,
		StopLossPercent:     cfg.Trading.StopLossPercent,
	})

	monitor := risk.NewMonitor(gateway, hub, risk.Config{
		Asset:              cfg.Trading.Asset,
		Symbol:             cfg.Trading.Symbol,
		DailyLossLimitUsdt: cfg.Risk.DailyLossLimitUsdt,
		MaxDrawdownPercent: cfg.Risk.MaxDrawdownPercent,
		AutoCloseOnBreach:  cfg.Risk.AutoCloseOnBreach,
		CheckInterval:      time.Duration(cfg.Risk.CheckIntervalMs) * time.Millisecond,
	}, logger)

	exec := executor.New(gateway, calc, validation.NewValidator(), monitor, hub, executor.Config{
		Enabled:       cfg.Trading.Enabled,
		Symbol:        cfg.Trading.Symbol,
		Asset:         cfg.Trading.Asset,
		Leverage:      cfg.Trading.Leverage,
		RetryAttempts: cfg.Trading.RetryAttempts,
		RetryDelay:    time.Duration(cfg.Trading.RetryDelayMs) * time.Millisecond,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := exec.Initialize(initCtx); err != nil {
		initCancel()
		log.Fatalf("Failed to initialize executor: %v", err)
	}
	initCancel()
	health.SetConnected(true)

	monitor.Start(ctx)

	server := newServer(cfg.Monitoring.ListenAddr, exec, health, logger)
	go func() {
		logger.Info("monitoring server listening", zap.String("addr", cfg.Monitoring.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("monitoring server failed", zap.Error(err))
		}
	}()

	if !cfg.Trading.Enabled {
		fmt.Println("⏸️  Trading is DISABLED: signals will be received but not executed")
	}
	fmt.Println("✅ Bot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\n🛑 Shutdown signal received...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	cancel()
	monitor.Stop()
	hub.Stop()
	logger.Info("shutdown complete")
	fmt.Println("👋 Bot stopped.")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// printStartupInfo prints initial startup information
func printStartupInfo(cfg *config.Config, environment string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BOT INITIALIZATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", cfg.Trading.Symbol},
		{"💰 Asset", cfg.Trading.Asset},
		{"📈 Leverage", fmt.Sprintf("%.0fx", cfg.Trading.Leverage)},
		{"📐 Position Size", fmt.Sprintf("%.1f%% of balance", cfg.Trading.PositionSizePercent*100)},
		{"🎯 Take Profit", fmt.Sprintf("%.2f%%", cfg.Trading.TakeProfitPercent*100)},
		{"🛡 Stop Loss", fmt.Sprintf("%.2f%%", cfg.Trading.StopLossPercent*100)},
		{"📉 Daily Loss Limit", fmt.Sprintf("%.2f USDT", cfg.Risk.DailyLossLimitUsdt)},
		{"📉 Max Drawdown", fmt.Sprintf("%.1f%%", cfg.Risk.MaxDrawdownPercent*100)},
		{"🔧 Environment", environment},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}
