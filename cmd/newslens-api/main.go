// Command newslens-api serves the newslens reader over HTTP/JSON.
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

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/newslens/internal/app"
	"github.com/abelbrown/newslens/internal/config"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/abelbrown/newslens/internal/server"
	"github.com/abelbrown/newslens/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "newslens-api: %v\n", err)
		os.Exit(1)
	}

	opts := logging.Options{Level: cfg.Log.Level}
	if cfg.Log.ToFile {
		opts.Dir = cfg.LogDir()
	}
	if err := logging.Init(opts); err != nil {
		fmt.Fprintf(os.Stderr, "newslens-api: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal("startup failed", "error", err)
	}
	defer services.Close()

	first := ""
	if names := services.CategoryNames(); len(names) > 0 {
		first = names[0]
	}
	sessions := session.NewManager(cfg.Server.SessionIdle, cfg.LanguageCode(), first)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := server.NewHandler(services.Pipeline, sessions, services.Brain)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(h, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("shutdown", "error", err)
		}
	}()

	logging.Info("listening", "addr", cfg.Server.Addr, "provider", services.Brain.Backend())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("server stopped", "error", err)
	}
}
