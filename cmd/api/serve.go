package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/WorstGen/land-marketplace/internal/adapter/cache"
	"github.com/WorstGen/land-marketplace/internal/adapter/chain/solana"
	"github.com/WorstGen/land-marketplace/internal/adapter/handler"
	"github.com/WorstGen/land-marketplace/internal/adapter/oracle"
	"github.com/WorstGen/land-marketplace/internal/core/services"
	"github.com/WorstGen/land-marketplace/internal/platform/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and payment monitor",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, closeRepo, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.Payments.RequireConfirmation && cfg.Monitor.Treasury == "" {
		log.Println("No treasury configured (LAND_TREASURY), purchases cannot be verified and will be refused")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	svc.SetMetrics(m)
	m.SetCurrentArea(svc.Ledger().CurrentArea())

	if cfg.Redis.Enabled {
		log.Printf("Connecting to Redis at %s...", cfg.Redis.Addr())

		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr(),
			DB:   cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		log.Println("Redis connected successfully!")

		svc.SetCache(cache.NewRedisViewCache(redisClient, cfg.Redis.Key, cfg.Redis.TTL))
	}

	var chain *solana.Client
	if cfg.Chain.RPCURL != "" {
		chain, err = solana.NewClient(solana.Config{
			Endpoint:          cfg.Chain.RPCURL,
			Commitment:        cfg.Chain.Commitment,
			Timeout:           cfg.Chain.Timeout,
			RequestsPerSecond: cfg.Chain.RequestsPerSecond,
		})
		if err != nil {
			return err
		}
		svc.SetChainClient(chain)
	}

	if cfg.Oracle.Enabled {
		svc.SetPriceOracle(oracle.NewCoinGecko(cfg.Oracle.BaseURL, cfg.Oracle.CacheTTL))
	}

	hub := handler.NewHub(cfg.Server.AllowedOrigin)
	svc.SetEventPublisher(hub)

	var monitor *services.PaymentMonitor
	if cfg.Monitor.Enabled {
		mc := services.DefaultMonitorConfig()
		mc.Treasury = cfg.Monitor.Treasury
		mc.TokenMint = cfg.Monitor.TokenMint
		mc.Interval = cfg.Monitor.Interval
		mc.BatchSize = cfg.Monitor.BatchSize

		monitor = services.NewPaymentMonitor(chain, svc, mc)
		monitor.SetMetrics(m)
		monitor.OnConfirmedPayment(svc.HandleConfirmedPayment)

		go monitor.Run(ctx)
	}

	landHandler := handler.NewLandHandler(svc, monitor)

	server := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: handler.NewRouter(landHandler, handler.RouterConfig{
			AllowedOrigin:  cfg.Server.AllowedOrigin,
			RequestTimeout: cfg.Server.RequestTimeout,
			Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Feed:           hub,
		}),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Println("Server exiting")
	return nil
}
