package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sketchguess/internal/game"
	"sketchguess/internal/httpapi"
	"sketchguess/internal/words"
)

func main() {
	cfg := &config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(context.Background()))
}

func serve(ctx context.Context, cfg *config) error {
	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	stats := words.Stats()
	log.Info().Int("total", stats.Total).Int("easy", stats.Easy).
		Int("medium", stats.Medium).Int("hard", stats.Hard).Msg("word bank loaded")

	hub := httpapi.NewHub(log)
	mgr := game.NewManager(log, game.WithNotifier(hub))
	srv := httpapi.NewServer(mgr, hub, log, cfg.joinURL, cfg.roomTTL)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepLoop(sweepCtx, mgr, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.bind, cfg.port)
	log.Info().Str("addr", addr).Msg("server listening")

	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweepLoop periodically evicts rooms whose last activity is older than the
// configured TTL.
func sweepLoop(ctx context.Context, mgr *game.Manager, cfg *config, log zerolog.Logger) {
	ticker := time.NewTicker(cfg.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mgr.SweepInactive(cfg.roomTTL); n > 0 {
				log.Info().Int("rooms", n).Msg("inactive rooms swept")
			}
		}
	}
}
