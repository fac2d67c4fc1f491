// Command notifyd is the notification dev host. It runs one notification
// store per player against a simulated session and exposes them over REST and
// WebSocket so a UI can be built and tested without the game.
//
// Usage:
//
//	notifyd [--config path/to/config.yaml] [--tick 250ms]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sneh-joshi/notifyring/internal/config"
	"github.com/sneh-joshi/notifyring/internal/hub"
	"github.com/sneh-joshi/notifyring/internal/metrics"
	"github.com/sneh-joshi/notifyring/internal/session"
	"github.com/sneh-joshi/notifyring/internal/storage/local"
	"github.com/sneh-joshi/notifyring/internal/types"
	transphttp "github.com/sneh-joshi/notifyring/internal/transport/http"
	"github.com/sneh-joshi/notifyring/internal/transport/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notifyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	tick := flag.Duration("tick", 250*time.Millisecond, "store update interval")
	flag.Parse()

	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ── 2. Set up structured logger ──────────────────────────────────────────
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// ── 3. Open snapshot storage ─────────────────────────────────────────────
	engine, err := local.Open(cfg.Node.DataDir, local.Config{
		KeepSnapshots:    cfg.Storage.KeepSnapshots,
		CompressionLevel: cfg.Storage.CompressionLevel,
		NoSync:           cfg.Storage.NoSync,
		HostID:           cfg.Node.ID,
	}, local.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Warn("storage close error", "err", err)
		}
	}()

	slog.Info("notifyd starting",
		"host_id", engine.HostID(),
		"host", cfg.Node.Host,
		"port", cfg.Node.Port,
		"data_dir", cfg.Node.DataDir,
		"players", cfg.Game.Players,
		"local_player", cfg.Game.LocalPlayer,
		"hotseat", cfg.Game.Hotseat,
	)

	// ── 4. Initialise session and metrics ────────────────────────────────────
	sess := session.New(sessionOptions(cfg.Game))
	sess.SetTurn(cfg.Game.StartTurn)
	metricsReg := &metrics.Registry{}

	// ── 5. Initialise WebSocket sink and hub ─────────────────────────────────
	ws := websocket.NewServer(
		websocket.WithLogger(logger),
		websocket.WithMetrics(metricsReg),
		websocket.WithSendBuffer(cfg.Transport.WSSendBuffer),
		websocket.WithFrameRate(cfg.Transport.WSMaxFramesPerSec),
	)
	h, err := hub.New(hub.Config{
		Players: cfg.Game.Players,
		Local:   types.PlayerID(cfg.Game.LocalPlayer),
		Hotseat: cfg.Game.Hotseat,
	}, sess, ws,
		hub.WithLogger(logger),
		hub.WithMetrics(metricsReg),
		hub.WithStorage(engine),
	)
	if err != nil {
		return fmt.Errorf("init hub: %w", err)
	}
	ws.Attach(h)

	// ── 6. Restore the last snapshots ────────────────────────────────────────
	restored, err := h.Load()
	if err != nil {
		slog.Warn("snapshot restore incomplete", "restored", restored, "err", err)
	} else {
		slog.Info("snapshots restored", "players", restored, "turn", h.Turn())
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── 7. Start the store tick loop ─────────────────────────────────────────
	go func() {
		t := time.NewTicker(*tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.Tick()
			}
		}
	}()

	// ── 8. Hot-reload the session switches ───────────────────────────────────
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			sess.SetOptions(sessionOptions(next.Game))
			if next.Game.Players != cfg.Game.Players ||
				next.Game.LocalPlayer != cfg.Game.LocalPlayer ||
				next.Game.Hotseat != cfg.Game.Hotseat {
				slog.Warn("seating changes need a restart",
					"players", next.Game.Players, "local_player", next.Game.LocalPlayer)
			}
			slog.Info("session options reloaded", "path", *configPath)
		}, config.WithWatchLogger(logger))
		if err != nil {
			slog.Warn("config watch stopped", "err", err)
		}
	}()

	// ── 9. Start HTTP / WebSocket transport ──────────────────────────────────
	srv := transphttp.New(h, transphttp.Options{
		HostID:  engine.HostID(),
		APIKey:  cfg.Transport.APIKey,
		MaxRate: float64(cfg.Transport.MaxRate),
		Burst:   cfg.Transport.Burst,
		WS:      ws,
		Metrics: metricsReg,
		Logger:  logger,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Node.Host, cfg.Node.Port)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("notifyd ready", "addr", addr)
		if err := srv.ListenAndServe(addr); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		} else {
			serveErr <- nil
		}
	}()

	// ── 10. Start dedicated Prometheus metrics listener ──────────────────────
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Node.Port {
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			slog.Info("metrics server listening", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, metricsReg.Handler()); err != nil {
				slog.Warn("metrics server error", "err", err)
			}
		}()
	}

	// ── 11. Graceful shutdown on SIGINT / SIGTERM ────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
	stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	if err := h.Save(); err != nil {
		slog.Warn("final save error", "err", err)
	}

	slog.Info("notifyd stopped", "turn", h.Turn())
	return nil
}

func sessionOptions(g config.GameConfig) session.Options {
	return session.Options{
		Multiplayer:     g.Multiplayer,
		SharedTurn:      g.SharedTurn,
		Network:         g.Network,
		PolicySaving:    g.PolicySaving,
		CityExpansionUI: g.CityExpansionUI,
		AutoEndTurn:     g.AutoEndTurn,
	}
}

func newLogger(c config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
