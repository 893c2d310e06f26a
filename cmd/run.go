package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/containerd/cgroups"
	"github.com/rjeczalik/notify"
	"github.com/spf13/cobra"

	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/types"
)

func init() {
	runCmd.Flags().BoolVar(&watchFlag, "watch", false, "reload the log level when the configuration changes")
}

var (
	watchFlag bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Watch the host until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			slog.Info("loaded settings", "settings", s)

			if cgroups.Mode() != cgroups.Unified {
				slog.Warn("not running with a unified cgroup hierarchy: cgroup paths will be empty", "mode", cgroups.Mode())
			}

			m, err := monitor.New(conf.MonitorConfig(), s)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					slog.Error("error closing the monitor", "err", err)
				}
			}()

			sinks, err := createSinks(conf)
			if err != nil {
				return err
			}
			defer cleanupSinks(sinks)

			for _, sk := range sinks {
				slog.Info("starting sink", "sink", sk)
				sk.Start()
				m.AddSink(sk)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watchFlag {
				if confPathFlag == "" {
					slog.Warn("--watch needs --conf, ignoring it")
				} else {
					go watchConf(ctx, confPathFlag)
				}
			}

			slog.Info("running", "interval", conf.MonitorConfig().Interval)
			if err := m.Run(ctx); err != nil {
				return err
			}
			slog.Info("cleanly exiting")

			return nil
		},
	}
)

// watchConf applies the log level of every new version of the file at path.
func watchConf(ctx context.Context, path string) {
	c := make(chan notify.EventInfo, 1)
	if err := notify.Watch(path, c, notify.Write|notify.Create); err != nil {
		slog.Error("error watching the configuration", "path", path, "err", err)
		return
	}
	defer notify.Stop(c)

	for {
		select {
		case e := <-c:
			slog.Debug("configuration changed", "event", e.Event())
			reloadLogLevel(path)
		case <-ctx.Done():
			return
		}
	}
}

func reloadLogLevel(path string) {
	c, err := ReadConf(path)
	if err != nil {
		slog.Error("ignoring the new configuration", "err", err)
		return
	}

	level, err := types.ParseLevel(c.LogLevel)
	if err != nil {
		slog.Error("ignoring the new log level", "err", err)
		return
	}

	if level != logLevel.Level() {
		slog.Info("changing the log level", "from", logLevel.Level(), "to", level)
		logLevel.Set(level)
	}
}
