package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"tennis-sim/internal/auth"
	"tennis-sim/internal/config"
	"tennis-sim/internal/handlers"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/middleware"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	flags.String("port", "", "port to listen on (PORT)")
	flags.String("store-backend", "", "memory, file, sql or firestore (STORE_BACKEND)")
	flags.String("data-dir", "", "directory of the file store (DATA_DIR)")
	flags.String("database-url", "", "sqlite path or postgres URL (DATABASE_URL)")
	flags.Bool("dev-mode", false, "disable authentication (DEV_MODE)")
	flags.String("log-level", "", "log level (LOG_LEVEL)")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.Development(), cfg.LogFormat)

	ctx := context.Background()
	s, closeStore, err := cfg.OpenStore(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize store")
	}
	defer closeStore()
	log.WithField("backend", cfg.StoreBackend).Info("Store ready")

	if cfg.DevMode {
		log.Warn("DEV_MODE enabled - authentication disabled")
	} else if cfg.AdminKeyHash == "" {
		log.Warn("ADMIN_KEY_HASH not set - admin endpoints are unreachable")
	}

	h := handlers.New(s, log, cfg.Workers)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// CORS runs first so preflight requests never reach authentication.
	var handler http.Handler = auth.Middleware(cfg.DevMode, cfg.AdminKeyHash)(mux)
	handler = middleware.CORS(cfg.CorsOrigin)(handler)
	handler = middleware.RequestLogger(log)(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"cors_origin": cfg.CorsOrigin,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
