// Command orderbook-server runs the real-time order-book replication and
// broadcast service: it watches node-data event batches, reconciles them
// into an in-memory L4 book, and serves L4/L2 snapshots and incremental
// L2 updates to WebSocket subscribers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/broadcast"
	"github.com/hlreplicator/orderbook-server/internal/config"
	"github.com/hlreplicator/orderbook-server/internal/engine"
	"github.com/hlreplicator/orderbook-server/internal/ingest"
	"github.com/hlreplicator/orderbook-server/internal/metrics"
	"github.com/hlreplicator/orderbook-server/internal/reconcile"
	"github.com/hlreplicator/orderbook-server/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	app := &cli.App{
		Name:  "orderbook-server",
		Usage: "real-time L4 order-book replication and WebSocket broadcast",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Required: true, Usage: "server address, e.g. 0.0.0.0"},
			&cli.UintFlag{Name: "port", Required: true, Usage: "server port, e.g. 8000"},
			&cli.BoolFlag{Name: "include-spot-unsafe", Value: false,
				Usage: "include spot-market orders; unsafe because special-address spot orders lack status records"},
			&cli.UintFlag{Name: "websocket-compression-level", Value: 1,
				Usage: "per-message-deflate level in 0..=9; 0 disables compression"},
			&cli.StringFlag{Name: "config", Usage: "optional YAML config file (data root, l2 depth, metrics address)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("orderbook-server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	compressionLevel := int(c.Uint("websocket-compression-level"))
	if compressionLevel > 9 {
		return fmt.Errorf("websocket-compression-level must be in 0..=9, got %d", compressionLevel)
	}
	ignoreSpot := !c.Bool("include-spot-unsafe")

	reg := prometheus.NewRegistry()
	metricSet := metrics.New(reg)

	eng := engine.FromSnapshot(book.Snapshots{}, 0, 0, false, ignoreSpot,
		engine.WithLogger(logger),
		engine.WithL2Depth(cfg.L2Depth),
	)

	hub := transport.NewHub(eng, broadcast.SnapshotL2, compressionLevel, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher := ingest.NewWatcher(cfg.DataRoot, ingest.JSONDecoder{}, logger)
	ingestDone := make(chan error, 1)
	go func() {
		ingestDone <- watcher.Run(ctx, func(pair ingest.BlockPair) error {
			prevHeight := eng.Height()
			start := time.Now()
			err := eng.ApplyUpdates(pair.Statuses, pair.Diffs)
			metricSet.ApplyLatency.Observe(time.Since(start).Seconds())
			if err != nil {
				metricSet.ApplyErrors.WithLabelValues(reconcile.KindOf(err)).Inc()
				return err
			}
			metricSet.Height.Set(float64(eng.Height()))
			hub.BroadcastL2()
			if eng.Height() != prevHeight {
				// A replayed block leaves the height and the dedup flag as
				// they were, so BroadcastL2 emits no frame for it.
				metricSet.L2FramesEmitted.Inc()
			}
			metricSet.Subscribers.Set(float64(hub.Count()))
			return nil
		})
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	wsAddr := net.JoinHostPort(c.String("address"), fmt.Sprintf("%d", c.Uint("port")))
	wsServer := &http.Server{Addr: wsAddr, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler(reg))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	go func() {
		logger.Info("websocket server listening", "address", wsAddr)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("websocket server failed", "error", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", "address", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	select {
	case err := <-ingestDone:
		return err
	case <-shutdownCtx.Done():
		return nil
	}
}
