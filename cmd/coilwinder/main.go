package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/controller"
	"github.com/calvinmclean/coilwinder/log"
)

var (
	cfg     = controller.DefaultConfig()
	cfgPath string
	logger  log.Logger = log.NewNoopLogger()
)

var rootCmd = &cobra.Command{
	Use:   "coilwinder",
	Short: "Drive a coil winder over its serial line protocol",
	Long: `coilwinder talks to the coil winder firmware, or runs the same firmware core on this machine
with simulated motors.

Settings come from ~/.coilwinder/config.toml, COILWINDER_* environment variables and flags,
with flags taking precedence.`,
	Version:       fmt.Sprintf("%s (firmware core v%s) %s/%s", getVersion(), coilwinder.Version, runtime.GOOS, runtime.GOARCH),
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = controller.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if err := controller.LoadConfig(&cfg, path, changed); err != nil {
			return err
		}

		zl := log.NewConsoleLogger(os.Stderr, cfg.LogLevel)
		logger = log.NewZerologAdapterWithLogger(zl)
		logger.Debug("configuration",
			log.String("config", path),
			log.String("port", cfg.SerialPort),
			log.Int("baud_rate", cfg.BaudRate),
			log.Duration("keepalive", cfg.Keepalive),
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.coilwinder/config.toml)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
}

// addPortFlags registers the serial connection flags on commands that open a port
func addPortFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cfg.SerialPort, "port", "p", cfg.SerialPort, `serial port, discovered when empty, "none" to disable`)
	cmd.Flags().IntVar(&cfg.BaudRate, "baud-rate", cfg.BaudRate, "serial baud rate")
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
