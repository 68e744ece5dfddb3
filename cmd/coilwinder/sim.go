package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/controller"
	"github.com/calvinmclean/coilwinder/firmware/commands"
	"github.com/calvinmclean/coilwinder/log"
	"github.com/calvinmclean/coilwinder/sim"
)

// storeCapacity leaves room for the record to grow without invalidating existing files
const storeCapacity = 256

var listenPort string

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the firmware core with simulated motors",
	Long: `sim runs the same dispatcher and control loop as the board, with simulated motors and the
parameter record kept in a file. Commands are read from stdin, or from a serial port (for example
one end of a virtual port pair) when --listen is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			in  io.Reader = cmd.InOrStdin()
			out io.Writer = cmd.OutOrStdout()
		)
		if listenPort != "" && listenPort != controller.SerialPortNone {
			port, err := serial.Open(listenPort, &serial.Mode{BaudRate: cfg.BaudRate})
			if err != nil {
				return fmt.Errorf("error opening %s: %w", listenPort, err)
			}
			defer port.Close()
			in, out = port, port
		}

		stepper := sim.NewStepper(cfg.Realtime)
		hw := sim.Hardware(stepper, sim.NewGuide(config.DefaultGuideMin), config.NewFileStore(cfg.StorePath, storeCapacity))

		w := commands.New(hw, out, commands.WithLogger(logger))
		src := sim.NewSource(in)

		err := commands.NewLoop(w, src).Run(ctx)
		logger.Info("simulation stopped",
			log.Int("pulses", int(stepper.Pulses())),
			log.Duration("motion_time", stepper.Elapsed()),
		)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		return src.Err()
	},
}

func init() {
	simCmd.Flags().StringVar(&listenPort, "listen", "", "serial port to serve instead of stdin")
	simCmd.Flags().IntVar(&cfg.BaudRate, "baud-rate", cfg.BaudRate, "serial baud rate")
	simCmd.Flags().StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "file holding the persisted parameter record")
	simCmd.Flags().BoolVar(&cfg.Realtime, "realtime", cfg.Realtime, "sleep for the pulse delays instead of running as fast as possible")
	rootCmd.AddCommand(simCmd)
}
