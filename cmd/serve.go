package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/netprobe/internal/config"
	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/hub"
	"firestige.xyz/netprobe/internal/log"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/netaddr"
	"firestige.xyz/netprobe/internal/report"
	"firestige.xyz/netprobe/internal/session"
	"firestige.xyz/netprobe/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the netprobe daemon in the foreground",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return err
	}

	own, err := netaddr.Discover()
	if err != nil {
		return err
	}
	slog.Info("discovered own addresses", "ipv4", len(own.V4), "ipv6", len(own.V6))

	var generator report.Generator
	if apiKey := os.Getenv(cfg.Report.GeminiAPIKeyEnv); apiKey != "" {
		generator = report.NewGeminiGenerator(apiKey, cfg.Report.RequestTimeout)
	} else {
		slog.Warn("report generator disabled, GEMINI_API_KEY not set")
	}

	broadcaster := &lazyBroadcaster{}
	coordinator := session.New(cfg.Capture, cfg.Report, own, broadcaster, generator)
	dashboardHub := hub.New(coordinator)
	broadcaster.hub = dashboardHub

	if cfg.Geo.Enabled {
		client := geo.NewClient(cfg.Geo.APIBaseURL, cfg.Geo.MinCallSpacing)
		worker := geo.NewWorker(client)
		coordinator.AttachGeoWorker(worker)
		go worker.Run(cmd.Context(),
			func() bool { return coordinator.State() == session.StateRunning },
			coordinator.RemoteAddrs,
			own,
			coordinator.Detector(),
			func(r geo.Record) {
				telemetry.EnrichmentRecordsTotal.Inc()
				coordinator.QueueGeoRecord(r)
			},
		)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, dashboardHub)
	server := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

	telemetryServer := telemetry.NewServer(cfg.Server.MetricsAddr, "/metrics")
	telemetryServer.Start()

	go func() {
		slog.Info("dashboard channel listening", "addr", cfg.Server.ListenAddr, "path", cfg.Server.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("dashboard server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = telemetryServer.Stop(shutdownCtx)
	return nil
}

// lazyBroadcaster breaks the Coordinator↔Hub construction cycle: the
// Coordinator needs a Broadcaster at construction time, but the Hub needs
// the constructed Coordinator.
type lazyBroadcaster struct {
	hub *hub.Hub
}

func (b *lazyBroadcaster) BroadcastUpdate(snap *metrics.Snapshot, newGeo []geo.Record) {
	if b.hub != nil {
		b.hub.BroadcastUpdate(snap, newGeo)
	}
}

func (b *lazyBroadcaster) BroadcastStopAck() {
	if b.hub != nil {
		b.hub.BroadcastStopAck()
	}
}

func (b *lazyBroadcaster) BroadcastStopResult(doc report.Document) {
	if b.hub != nil {
		b.hub.BroadcastStopResult(doc)
	}
}
