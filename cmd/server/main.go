// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	apiconnect "github.com/osa030/jfplayer/internal/api/connect"
	"github.com/osa030/jfplayer/internal/api/rest"
	"github.com/osa030/jfplayer/internal/app/catalog"
	"github.com/osa030/jfplayer/internal/app/notification"
	"github.com/osa030/jfplayer/internal/app/playback"
	"github.com/osa030/jfplayer/internal/infra/config"
	"github.com/osa030/jfplayer/internal/infra/device"
	"github.com/osa030/jfplayer/internal/infra/jellyfin"
	"github.com/osa030/jfplayer/internal/infra/logger"
)

var (
	app        = kingpin.New("jfplayer-server", "Jellyfin web music player")
	configPath = app.Flag("config", "Path to config file (optional, environment variables are enough)").Envar("JFPLAYER_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if *configPath != "" {
		zlog.Info().Msgf("Loading config from %s", *configPath)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	log := logger.Component("server")

	if !cfg.Jellyfin.Configured() {
		log.Warn().Msg("Jellyfin URL or API key not set; proxy endpoints will report not configured")
	}
	if !cfg.Jellyfin.HasUser() {
		log.Warn().Msg("Jellyfin user id not set; playlist endpoints will report not configured")
	}

	// Upstream client and catalog
	client := jellyfin.New(jellyfin.Config{
		BaseURL:    cfg.Jellyfin.URL,
		APIKey:     cfg.Jellyfin.APIKey,
		Timeout:    time.Duration(cfg.Jellyfin.RequestTimeoutSec) * time.Second,
		MaxRetries: cfg.Jellyfin.MaxRetries,
	})
	catalogSvc := catalog.NewService(client, catalog.Config{
		UserID:          cfg.Jellyfin.UserID,
		LibraryOverride: cfg.Jellyfin.PlaylistsLibraryID,
		DefaultLimit:    cfg.Catalog.DefaultLimit,
		MaxLimit:        cfg.Catalog.MaxLimit,
		CacheSize:       *cfg.Catalog.CacheSize,
		PlaylistTTL:     time.Duration(*cfg.Catalog.PlaylistMaxAgeSec) * time.Second,
		PlaylistsTTL:    time.Duration(*cfg.Catalog.PlaylistsMaxAgeSec) * time.Second,
	})

	// Player
	notifier := notification.NewManager()
	bridge := device.NewBridge()
	engine := playback.New(bridge.Factory(), playback.Config{Observer: notifier})

	// HTTP routes
	restServer := rest.NewServer(client, catalogSvc, bridge, notifier, rest.Config{
		PlaylistMaxAge:  *cfg.Catalog.PlaylistMaxAgeSec,
		PlaylistsMaxAge: *cfg.Catalog.PlaylistsMaxAgeSec,
		ControlToken:    cfg.Control.Token,
	})
	mux := restServer.Mux()

	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(engine, catalogSvc),
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Control.Token)),
	)
	mux.Handle(playerPath, playerHandler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(rest.WithAccessLog(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.Server.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msgf("Starting server: addr=%s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal...")

		// Stop the browser before connections go away
		engine.Pause()
		notifier.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to shutdown server")
		}
		return nil
	})

	// Execute startup hook if configured (after server is listening)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	err = g.Wait()
	log.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return err
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
