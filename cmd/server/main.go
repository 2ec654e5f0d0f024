package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/swaptoon/swap-engine/internal/app"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/config"
	"github.com/swaptoon/swap-engine/internal/events"
	"github.com/swaptoon/swap-engine/internal/logging"
	"github.com/swaptoon/swap-engine/internal/metrics"
	"github.com/swaptoon/swap-engine/internal/swap"
	"github.com/swaptoon/swap-engine/internal/trade"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Setup("swap-engine", cfg.Env, cfg.LogLevel)
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"api_key", logging.Mask(cfg.APIKey),
		"fail_rate", cfg.FailRate,
	)

	ctx := context.Background()

	cat, err := app.Catalog(cfg)
	if err != nil {
		slog.Error("catalog load failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	st, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	sched := clock.NewReal()

	// --- Real-time fan-out ---
	wsHub := events.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()

	var publisher events.TradePublisher
	if cfg.AMQPURL != "" {
		pub, err := events.DialAMQP(cfg.AMQPURL, 5, 2*time.Second)
		if err != nil {
			slog.Error("RabbitMQ connection failed", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub
		slog.Info("publishing trades to RabbitMQ", "exchange", events.ExchangeName)
	}

	// --- Trade service ---
	tradeSvc := trade.NewService(trade.Options{
		Catalog:        cat,
		Store:          st,
		Insight:        app.Insight(cfg, sched),
		Scheduler:      sched,
		Failures:       swap.RandomFailures(cfg.FailRate, rand.New(rand.NewSource(time.Now().UnixNano()))),
		Listener:       events.NewBridge(wsHub, publisher),
		ConfirmDelay:   cfg.ConfirmDelay,
		ExecuteDelay:   cfg.ExecuteDelay,
		InsightSink:    wsHub,
		DebounceDelay:  cfg.DebounceDelay,
		SessionIdleTTL: cfg.SessionIdleTTL,
	})

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"swap-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for session transitions and insights.
		r.Get("/ws", wsHub.HandleWS)

		// Request timeouts apply to plain HTTP only; the socket is long-lived.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			tradeSvc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("swap-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("shutting down swap-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	tradeSvc.Close()
	fmt.Println("swap-engine stopped")
}
