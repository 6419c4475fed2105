package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/linewatch/linewatch/server/internal/alerts"
	"github.com/linewatch/linewatch/server/internal/api"
	"github.com/linewatch/linewatch/server/internal/compute"
	"github.com/linewatch/linewatch/server/internal/config"
	"github.com/linewatch/linewatch/server/internal/scheduler"
	"github.com/linewatch/linewatch/server/internal/sink"
	"github.com/linewatch/linewatch/server/internal/store"
	"github.com/linewatch/linewatch/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; empty runs the built-in three-line plant")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "linewatch-server: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(slog.New(newHandler(os.Stdout, cfg.Log.Format, level)))

	slog.Info("linewatch-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"lines", len(cfg.Lines),
		"tick_interval", cfg.Simulation.TickInterval,
		"stale_after", cfg.Simulation.StaleAfter,
		"notification_mode", cfg.Notifications.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Line store with background staleness watchdog.
	st := store.New(cfg.Simulation.StaleAfter)

	engine := compute.NewEngine(compute.NewSource(cfg.Simulation.Seed), cfg.Notifications.Mode)
	sched := scheduler.New(cfg, engine, st)
	sched.Init()

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	// Every consumer gets its own subscription so a slow one never holds
	// back the others.
	hub := ws.New(st)
	hubFeed, _ := sched.Subscribe()
	spawn(func() { hub.Run(ctx, hubFeed) })

	alertEngine := alerts.New(cfg.Alerts)
	alertFeed, _ := sched.Subscribe()
	spawn(func() { alertEngine.Run(ctx, alertFeed) })

	for _, sh := range buildSinks(cfg.Sinks) {
		sh := sh
		feed, _ := sched.Subscribe()
		spawn(func() { sh.Run(ctx, feed) })
	}

	spawn(func() { st.Run(ctx) })
	spawn(func() { sched.Run(ctx) })

	if *configPath != "" {
		spawn(func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				level.Set(next.Log.SlogLevel())
				alertEngine.Reload(next.Alerts)
				slog.Info("config reloaded",
					"log_level", next.Log.SlogLevel(),
					"webhooks", len(next.Alerts.Webhooks),
				)
			})
			if err != nil {
				slog.Warn("config watch disabled", "err", err)
			}
		})
	}

	// REST API, Prometheus exposition and the WebSocket hub share one listener.
	handler := api.New(st)
	handler.Mount("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("linewatch-server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	wg.Wait()
}

// newHandler returns a JSON handler, or a colored console handler for
// format "text".
func newHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	if format == "text" {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// buildSinks starts a Shipper for every enabled publisher. A sink that cannot
// be constructed is logged and skipped; the simulation runs without it.
func buildSinks(cfg config.SinksConfig) []*sink.Shipper {
	var out []*sink.Shipper
	if cfg.Kafka.Enabled() {
		out = append(out, sink.New("kafka", sink.NewKafka(cfg.Kafka), sink.DefaultBufferSize))
		slog.Info("kafka sink enabled",
			"brokers", cfg.Kafka.Brokers,
			"metrics_topic", cfg.Kafka.MetricsTopic,
			"notifications_topic", cfg.Kafka.NotificationsTopic,
		)
	}
	if cfg.MQTT.Enabled() {
		pub, err := sink.NewMQTT(cfg.MQTT)
		if err != nil {
			slog.Error("mqtt sink disabled", "err", err)
		} else {
			out = append(out, sink.New("mqtt", pub, sink.DefaultBufferSize))
			slog.Info("mqtt sink enabled", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
		}
	}
	return out
}
