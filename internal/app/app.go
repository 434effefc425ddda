// Package app provides the main application setup and dependency injection.
package app

import (
	"io"
	"os"

	"github.com/ngodn/soluna/pkg/appctx"
	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/fetch"
	"github.com/ngodn/soluna/pkg/flaresolverr"
	"github.com/ngodn/soluna/pkg/handlers/api"
	"github.com/ngodn/soluna/pkg/hls"
	"github.com/ngodn/soluna/pkg/httpclient"
	"github.com/ngodn/soluna/pkg/interfaces"
	"github.com/ngodn/soluna/pkg/logging"
	"github.com/ngodn/soluna/pkg/server"
	"github.com/ngodn/soluna/pkg/source"
	"github.com/ngodn/soluna/pkg/stremio"
)

// App is the main application container.
type App struct {
	Ctx        *appctx.Context
	Server     *server.Server
	HTTPClient *httpclient.Client
	Source     *source.Source
	logFile    io.Closer
}

// New creates and initializes the application.
func New() (*App, error) {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logOut io.Writer = os.Stderr
	var logFile io.WriteCloser
	if cfg.LogFile != "" {
		logFile = logging.NewRotatingFile(cfg.LogFile, cfg.LogFileMaxSizeMB, cfg.LogFileMaxBackups)
		logOut = io.MultiWriter(os.Stderr, logFile)
	}
	log := logging.New(cfg.LogLevel, cfg.LogJSON, logOut)
	log.Info("initializing Soluna", "port", cfg.Port, "site", cfg.SiteBaseURL, "log_level", cfg.LogLevel)

	// Create application context
	ctx := appctx.New(cfg, log)

	httpClient := httpclient.New(cfg, log)
	ctx.WithHTTPClient(httpClient)

	src := NewSource(cfg, httpClient, log)
	ctx.WithSource(src)

	// Create HTTP server
	srv := server.New(cfg, log)

	// Create API handlers
	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	// Register Stremio addon routes
	if cfg.StremioEnabled {
		stremioHandlers := stremio.NewHandlers(ctx)
		stremioHandlers.RegisterRoutes(srv.Router())
		log.Info("stremio addon enabled", "path", "/stremio")
	}

	return &App{
		Ctx:        ctx,
		Server:     srv,
		HTTPClient: httpClient,
		Source:     src,
		logFile:    logFile,
	}, nil
}

// NewSource assembles the content source: direct fetches through client,
// FlareSolverr as fallback when configured, and the HLS prober when
// quality probing is enabled.
func NewSource(cfg *config.Config, client *httpclient.Client, log *logging.Logger) *source.Source {
	var solver interfaces.PageSolver
	if cfg.FlareSolverrURL != "" {
		solver = flaresolverr.NewClient(cfg.FlareSolverrURL, cfg.FlareSolverrTimeout, log)
		log.Info("FlareSolverr fallback enabled", "url", cfg.FlareSolverrURL)
	}

	var prober interfaces.QualityProber
	if cfg.ProbeStreamQuality {
		prober = hls.NewProber(cfg, client, log)
		log.Info("stream quality probing enabled")
	}

	fetcher := fetch.New(cfg, client, solver, log)
	return source.New(cfg, fetcher, prober, log)
}

// Run starts the application.
func (a *App) Run() error {
	a.Ctx.Log.Info("starting Soluna server", "port", a.Ctx.Config.Port)
	return a.Server.Start()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() {
	a.Ctx.Log.Info("shutting down application")
	a.HTTPClient.CloseIdleConnections()
	if a.logFile != nil {
		a.logFile.Close()
	}
}
