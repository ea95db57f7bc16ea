// Project Dashboard Server
//
// Features:
// - Password login with JWT session cookies
// - Read-only directory browser and text file viewer for a fixed project table
// - HTML pages and a JSON API
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Drayday134/project-dashboard/internal/api"
	"github.com/Drayday134/project-dashboard/internal/auth"
	"github.com/Drayday134/project-dashboard/internal/config"
	"github.com/Drayday134/project-dashboard/internal/logging"
	"github.com/Drayday134/project-dashboard/internal/metrics"
	"github.com/Drayday134/project-dashboard/internal/projects"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Can't use structured logging yet
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	// Initialize structured logging
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "logging init error:", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Info("Project Dashboard starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("project_root", cfg.ProjectRoot))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize auth
	authHandler, err := auth.New(auth.Config{
		Username:       cfg.Username,
		Password:       cfg.Password,
		PasswordBcrypt: cfg.PasswordBcrypt,
		SecretKey:      cfg.SecretKey,
		TTL:            cfg.SessionTTL,
		Secure:         cfg.UseTLS(),
	})
	if err != nil {
		logging.Fatal("auth init failed", zap.Error(err))
	}
	if authHandler.EphemeralKey() {
		logging.Warn("DASHBOARD_SECRET_KEY not set, using a random key; sessions end on restart")
	}

	registry := projects.NewRegistry(cfg.ProjectRoot)
	for _, p := range registry.List() {
		if _, err := os.Stat(p.Root); err != nil {
			logging.Warn("project root unavailable",
				zap.String("project", p.Name),
				zap.String("root", p.Root),
				zap.Error(err))
		}
	}

	srv, err := api.NewServer(authHandler, registry)
	if err != nil {
		logging.Fatal("server init failed", zap.Error(err))
	}

	// Start metrics server
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	// Start HTTP(S) server
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.UseTLS() {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("shutdown error", zap.Error(err))
		}
		if metricsServer != nil {
			metricsServer.Shutdown(shutdownCtx)
		}
	}()

	// Start periodic session cleanup
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := authHandler.Cleanup(); n > 0 {
					logging.Debug("expired sessions removed", zap.Int("count", n))
				}
			}
		}
	}()

	if cfg.UseTLS() {
		logging.Info("server listening (TLS 1.3)",
			zap.String("addr", cfg.ListenAddr),
			zap.String("cert", cfg.TLSCertFile))
		if err := httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	} else {
		logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	}
	<-stopped
	logging.Info("server stopped")
}
