// Command server runs the Paylens merchant readiness API.
// Usage: go run ./cmd/server [-config config.yaml] [-addr :8080]
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paylens/paylens/internal/analyzer"
	"github.com/paylens/paylens/internal/app"
	"github.com/paylens/paylens/internal/config"
	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/probe"
	"github.com/paylens/paylens/internal/server"
	"github.com/paylens/paylens/internal/store"
	"github.com/paylens/paylens/internal/webclient"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address, overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}

	logger, err := logging.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer logger.Sync()

	scanCfg := cfg.ScanConfig()

	st, err := store.NewSQLiteStore(cfg.Storage.Path, logger)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{
		Timeout:   scanCfg.RequestTimeout,
		UserAgent: scanCfg.UserAgent,
	}, logger, nil)
	if err != nil {
		log.Fatalf("creating web client: %v", err)
	}
	defer wc.Close()

	structured := analyzer.NewStructuredDataAnalyzer(wc, logger)
	accessibility := analyzer.NewAccessibilityAnalyzer(wc, logger)
	domainInfo := analyzer.NewDomainInfoAnalyzer(logger)

	appCfg := app.DefaultConfig()
	appCfg.Scan = scanCfg

	orch := app.NewOrchestrator(appCfg, st, probe.NewStrategySet(wc, scanCfg, logger),
		structured.Analyze, accessibility.Analyze, domainInfo.Analyze, logger)

	srv, err := server.NewServer(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Logger:     logger,
	}, orch)
	if err != nil {
		log.Fatalf("creating server: %v", err)
	}
	defer srv.Close()

	httpServer := srv.HTTPServer()

	go func() {
		logger.Info("server listening", logging.Field{Key: "addr", Value: cfg.Server.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Field{Key: "error", Value: err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", logging.Field{Key: "error", Value: err.Error()})
	}
}
