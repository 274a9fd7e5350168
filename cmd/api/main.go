// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/internal/config"
	"github.com/lazyboycode/rawg-game-hub/internal/http/routes"
	"github.com/lazyboycode/rawg-game-hub/internal/platform/otel"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

func main() {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	lvl, _ := cfg.Level()
	logger = logger.Level(lvl)
	logger.Info().Str("port", cfg.Port).Msg("starting app")

	// Tracing
	endpoint := ""
	if cfg.TracingEnabled() {
		endpoint = cfg.OTel.Endpoint
	}
	shutdownTracing, err := otel.Setup(context.Background(), endpoint, cfg.OTel.ServiceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing setup error")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown")
		}
	}()
	if endpoint != "" {
		logger.Info().Str("endpoint", endpoint).Msg("exporting traces")
	}

	// RAWG client
	client, err := rawg.New(cfg.RAWG.APIKey,
		rawg.WithBaseURL(cfg.RAWG.BaseURL),
		rawg.WithHTTPClient(&http.Client{Timeout: cfg.RAWG.Timeout}),
		rawg.WithLogger(logger.With().Str("component", "rawg").Logger()),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("rawg client error")
	}

	// Query cache, shared by every request
	engine := cache.New(
		cache.WithLogger(logger.With().Str("component", "cache").Logger()),
		cache.WithFetchTimeout(cfg.Cache.FetchTimeout),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithRetryFailedAfter(cfg.Cache.RetryFailedAfter),
	)
	defer engine.Close()

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.SessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:    sess,
		Engine:  engine,
		Src:     client,
		Log:     logger,
		Timeout: cfg.Cache.FetchTimeout + 5*time.Second,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}
