// Command server starts the PhishScan API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/snbhakti11/PhishScan/internal/feed"
	"github.com/snbhakti11/PhishScan/internal/htmlscan"
	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/logging"
	"github.com/snbhakti11/PhishScan/internal/mlmodel"
	"github.com/snbhakti11/PhishScan/internal/scanner"
	"github.com/snbhakti11/PhishScan/internal/scoring"
	"github.com/snbhakti11/PhishScan/internal/server"
	"github.com/snbhakti11/PhishScan/internal/sslcheck"
	"github.com/snbhakti11/PhishScan/internal/webclient"
)

type rawCfg struct {
	// Server configuration
	ListenAddr  string `long:"listen-addr" env:"LISTEN_ADDR" default:":8080" description:"HTTP listen address"`
	StorageRoot string `long:"storage-root" env:"STORAGE_ROOT" default:"~/.config/phishscan" description:"Base path for the scan history database and feed snapshot"`
	APIKey      string `long:"api-key" env:"API_KEY" description:"API key required in the X-API-Key header (optional)"`

	// Feed configuration
	PrimaryFeedURL   string `long:"primary-feed-url" env:"PRIMARY_FEED_URL" description:"Primary blocklist feed URL (JSON array of entries)"`
	SecondaryFeedURL string `long:"secondary-feed-url" env:"SECONDARY_FEED_URL" description:"Secondary blocklist feed URL (one URL per line)"`
	FeedTTLHours     int    `long:"feed-ttl-hours" env:"FEED_TTL_HOURS" default:"24" description:"Feed snapshot time-to-live in hours"`

	// Scoring configuration
	Threshold float64 `long:"threshold" env:"THRESHOLD" default:"0.45" description:"Phishing decision threshold in [0,1]"`
	ModelPath string  `long:"model-path" env:"MODEL_PATH" description:"Path to a JSON model coefficients file (built-in model when empty)"`
}

func main() {
	var raw rawCfg
	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "failed to parse configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStdoutLogger("phishscan")

	scoringCfg := scoring.NewConfig()
	if err := scoringCfg.SetThreshold(raw.Threshold); err != nil {
		fmt.Fprintf(os.Stderr, "invalid threshold: %v\n", err)
		os.Exit(1)
	}

	var model interfaces.ProbabilityModel
	if raw.ModelPath != "" {
		m, err := mlmodel.LoadModel(raw.ModelPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load model: %v\n", err)
			os.Exit(1)
		}
		model = m
		logger.Info("loaded model", logging.Field{Key: "path", Value: raw.ModelPath})
	} else {
		model = mlmodel.NewDefaultModel()
	}

	client := webclient.NewNetHTTPClient(webclient.DefaultConfig(), logger, nil)

	var feedCache *feed.Cache
	if raw.PrimaryFeedURL != "" || raw.SecondaryFeedURL != "" {
		var primary feed.PrimarySource
		var secondary feed.SecondarySource
		if raw.PrimaryFeedURL != "" {
			primary = feed.NewHTTPPrimarySource(raw.PrimaryFeedURL, client, logger)
		}
		if raw.SecondaryFeedURL != "" {
			secondary = feed.NewHTTPSecondarySource(raw.SecondaryFeedURL, client, logger)
		}
		cacheCfg := feed.DefaultCacheConfig()
		cacheCfg.TTL = time.Duration(raw.FeedTTLHours) * time.Hour
		cacheCfg.SnapshotPath = snapshotPath(raw.StorageRoot)
		feedCache = feed.NewCache(cacheCfg, primary, secondary, logger)
	} else {
		logger.Warn("no feed URLs configured, blocklist lookups disabled")
	}

	sc := scanner.NewScanner(
		feedCache,
		sslcheck.NewChecker(sslcheck.DefaultConfig(), logger),
		htmlscan.NewScanner(client, logger),
		model,
		scoringCfg,
		logger,
	)

	srv, err := server.NewServer(server.Config{
		ListenAddr:  raw.ListenAddr,
		StorageRoot: raw.StorageRoot,
		APIKey:      raw.APIKey,
		Logger:      logger,
	}, sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()
	defer client.Close()

	httpServer := srv.HTTPServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: raw.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Field{Key: "error", Value: err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", logging.Field{Key: "error", Value: err.Error()})
	}
}

func snapshotPath(storageRoot string) string {
	if storageRoot == "" {
		return ""
	}
	if storageRoot[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		storageRoot = filepath.Join(home, storageRoot[1:])
	}
	return filepath.Join(storageRoot, "index.json")
}
