package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"

	"climbsplit/config"
	"climbsplit/metrics"
	"climbsplit/profile"
	"climbsplit/splitter"
	"climbsplit/timer"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Wait for the game and split until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.Int("tick-rate", config.DefaultTickRate, "polls per second")
	flags.String("reset-policy", "", "override the profile's reset policy (position, input, both)")
	flags.String("timer", config.DefaultTimerBackend, "timer backend (livesplit, log)")
	flags.String("timer-address", config.DefaultTimerAddress, "LiveSplit Server address")
	flags.String("metrics-address", "", "serve prometheus metrics on this address")
	a.bind("tick_rate", flags.Lookup("tick-rate"))
	a.bind("reset_policy", flags.Lookup("reset-policy"))
	a.bind("timer.backend", flags.Lookup("timer"))
	a.bind("timer.address", flags.Lookup("timer-address"))
	a.bind("metrics.address", flags.Lookup("metrics-address"))

	return cmd
}

func (a *app) run(ctx context.Context) error {
	cfg, p, err := a.load()
	if err != nil {
		return err
	}

	t := buildTimer(cfg.Timer, p, a.log)
	defer t.Close()

	m := metrics.New()
	if cfg.Metrics.Address != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Address); err != nil {
				a.log.Warn("metrics server stopped: ", err)
			}
		}()
	}

	a.log.Infoln("polling at", cfg.TickRate, "Hz, timer", describeTimer(cfg.Timer))
	s := splitter.New(p, newOpener(), t,
		splitter.WithTickRate(cfg.TickRate),
		splitter.WithAttachInterval(cfg.AttachInterval),
		splitter.WithMapRefreshInterval(cfg.MapRefreshInterval),
		splitter.WithMetrics(m),
	)

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.log.Infoln("stopped")
		return nil
	}
	return err
}

// buildTimer picks the timer backend. The log backend keeps its own run state so the
// splitter can be tried without LiveSplit.
func buildTimer(cfg config.TimerConfig, p *profile.Profile, log *logger.Logger) timer.Timer {
	switch cfg.Backend {
	case config.BackendLog:
		return timer.NewMemory(len(p.Zones)).Logged(log)
	default:
		return timer.NewLiveSplit(cfg.Address, timer.WithDialTimeout(cfg.DialTimeout))
	}
}

func describeTimer(cfg config.TimerConfig) string {
	if cfg.Backend == config.BackendLog {
		return "log"
	}
	return fmt.Sprintf("livesplit at %s", cfg.Address)
}
