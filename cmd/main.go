package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/scitags/hostwatch/settings"
	"github.com/scitags/hostwatch/types"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confPathFlag, "conf", "", "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "one of trace, debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "include timestamps in log lines")
	rootCmd.PersistentFlags().StringVar(&procRootFlag, "proc-root", "", "process filesystem root, overriding $"+settings.ProcRootEnv)
}

var (
	rootCmd = &cobra.Command{
		Use:   "hostwatch",
		Short: "Watch the host's interfaces, TCP sockets and the processes behind them.",
		Long: "hostwatch periodically discovers routable interfaces, enumerates IPv4 TCP sockets\n" +
			"and resolves them to their owning processes, exposing the result over HTTP.",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	confPathFlag string
	logLevelFlag string
	logTimeFlag  bool
	procRootFlag string

	conf        *Config
	builtCommit = "dev"
)

func init() {
	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add the different sub-commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(socketsCmd)
	rootCmd.AddCommand(processesCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(decodeCmd)
}

// setup loads the configuration and brings logging up before any
// sub-command runs. Flags win over the configuration file.
func setup(cmd *cobra.Command, args []string) error {
	c := DefaultConfig
	conf = &c
	if confPathFlag != "" {
		var err error
		if conf, err = ReadConf(confPathFlag); err != nil {
			return err
		}
	}

	levelName := conf.LogLevel
	if cmd.Flags().Changed("log-level") {
		levelName = logLevelFlag
	}

	level, err := types.ParseLevel(levelName)
	if err != nil {
		return err
	}

	setupLogging(os.Stderr, level)

	slog.Debug("loaded configuration", "path", confPathFlag, "conf", conf)

	return nil
}

// loadSettings resolves the proc root: the flag first, then the
// environment and finally the configuration file.
func loadSettings() (*settings.Settings, error) {
	root := procRootFlag
	if root == "" {
		root = os.Getenv(settings.ProcRootEnv)
	}
	if root == "" {
		root = conf.ProcRoot
	}
	return settings.LoadRoot(root)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
