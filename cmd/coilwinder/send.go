package main

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/coilwinder/controller"
	"github.com/calvinmclean/coilwinder/log"
)

var sendCmd = &cobra.Command{
	Use:   "send [command...]",
	Short: "Send commands to the winder and print its responses",
	Long: `send forwards the given command, or every line read from stdin, to the winder and prints
each line it answers with. A keepalive keeps the safety timeout from stopping long jobs, and a
pattern file is pushed with WIND PATTERN every time it changes.`,
	Example: strings.TrimSpace(`
  coilwinder send SYS STATUS
  coilwinder send --keepalive 30s --pattern-file pattern.toml`),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := controller.Open(cfg, controller.WithLogger(logger))
		if err != nil {
			return err
		}
		defer c.Close()

		if cfg.PatternFile != "" {
			watcher := controller.NewPatternWatcher(cfg.PatternFile, c.Send, logger)
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("pattern watcher stopped", log.Err(err))
				}
			}()
		}

		var in io.Reader = os.Stdin
		if len(args) > 0 {
			in = strings.NewReader(strings.Join(args, " ") + "\n")
		}
		return c.Run(ctx, in, cmd.OutOrStdout())
	},
}

func init() {
	addPortFlags(sendCmd)
	sendCmd.Flags().DurationVar(&cfg.Keepalive, "keepalive", cfg.Keepalive, "interval between keepalive commands, 0 to disable")
	sendCmd.Flags().StringVar(&cfg.PatternFile, "pattern-file", cfg.PatternFile, "TOML pattern overlay to push whenever it changes")
	rootCmd.AddCommand(sendCmd)
}
