package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type config struct {
	bind          string
	port          int
	joinURL       string
	roomTTL       time.Duration
	sweepInterval time.Duration
	verbose       bool
}

func (c *config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.roomTTL <= 0 {
		return fmt.Errorf("invalid room TTL: %s", c.roomTTL)
	}
	if c.sweepInterval <= 0 {
		return fmt.Errorf("invalid sweep interval: %s", c.sweepInterval)
	}
	return nil
}

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchguess",
		Short:         "Multiplayer drawing-and-guessing game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SKETCHGUESS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SKETCHGUESS_PORT)")
	fs.StringVar(&cfg.joinURL, "join-url", "http://localhost:8080", "base URL encoded into join QR codes (env: SKETCHGUESS_JOIN_URL)")
	fs.DurationVar(&cfg.roomTTL, "room-ttl", 30*time.Minute, "time before inactive rooms are evicted (env: SKETCHGUESS_ROOM_TTL)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", 5*time.Minute, "how often the inactive room sweep runs (env: SKETCHGUESS_SWEEP_INTERVAL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging (env: SKETCHGUESS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
