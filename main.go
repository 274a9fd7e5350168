package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/internal/config"
	"github.com/lazyboycode/rawg-game-hub/pages"
	"github.com/lazyboycode/rawg-game-hub/rawg"
)

const version = "v0.1.0"

func main() {
	if err := runCLI(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCLI(args []string, w io.Writer) error {
	if len(args) == 0 {
		printUsage(w)
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage(w)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintln(w, "rawg-game-hub "+version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry, engine, err := setupPageRegistry(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	page, exists := registry.GetPage(args[0])
	if !exists {
		return fmt.Errorf("unknown command: %s. Available commands: %v", args[0], registry.List())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Cache.FetchTimeout+cfg.RAWG.Timeout)
	defer cancel()

	return page.Run(ctx, w, args[1:])
}

// setupPageRegistry wires the RAWG client and the query cache into every page
func setupPageRegistry(cfg *config.Config) (*pages.Registry, *cache.Engine, error) {
	lvl, _ := cfg.Level()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	client, err := rawg.New(cfg.RAWG.APIKey,
		rawg.WithBaseURL(cfg.RAWG.BaseURL),
		rawg.WithHTTPClient(&http.Client{Timeout: cfg.RAWG.Timeout}),
		rawg.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	engine := cache.New(
		cache.WithLogger(logger),
		cache.WithFetchTimeout(cfg.Cache.FetchTimeout),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithRetryFailedAfter(cfg.Cache.RetryFailedAfter),
	)

	registry := pages.NewRegistry()
	registry.Register(pages.NewGamesPage(engine, client, logger))
	registry.Register(pages.NewDeveloperPage(engine, client, logger))
	registry.Register(pages.NewGenresPage(engine, client))
	registry.Register(pages.NewPlatformsPage(engine, client))
	return registry, engine, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rawg-game-hub <command> [options]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  games [-genre ID] [-platform ID] [-watch]   List games, optionally filtered")
	fmt.Fprintln(w, "  developer <id|slug>                         Show a developer and their games")
	fmt.Fprintln(w, "  genres                                      List genre ids")
	fmt.Fprintln(w, "  platforms                                   List parent platform ids")
	fmt.Fprintln(w, "  help, version")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  RAWG_API_KEY         Your RAWG API key (required)")
	fmt.Fprintln(w, "  RAWG_BASE_URL        API root (default https://api.rawg.io/api)")
	fmt.Fprintln(w, "  CACHE_FETCH_TIMEOUT  Upper bound for one fetch (default 20s)")
	fmt.Fprintln(w, "  LOG_LEVEL            debug, info, warn, error (default info)")
}
