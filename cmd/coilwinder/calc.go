package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/resistance"
)

var coil = resistance.Coil{
	Length:       config.DefaultBobbinLength,
	Width:        config.DefaultBobbinWidth,
	Height:       config.DefaultBobbinHeight,
	WireDiameter: config.DefaultWireDiameter,
}

var calcCmd = &cobra.Command{
	Use:     "calc <resistance>",
	Short:   "Compute the turns needed for a target DC resistance",
	Example: "  coilwinder calc 6.5K --wire 0.056",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resistance.ParseTarget(args[0])
		if err != nil {
			return err
		}
		result, err := resistance.Solve(target, coil)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Required Turns:\t%d\n", result.Turns)
		fmt.Fprintf(tw, "Est. DC Resistance:\t%.2f Ohms\n", result.Resistance)
		fmt.Fprintf(tw, "Avg Turn Length:\t%.2f mm\n", result.AvgTurnLength)
		fmt.Fprintf(tw, "Wire Length:\t%.2f m\n", result.WireLength)
		fmt.Fprintf(tw, "Turns/Layer:\t%d\n", coil.TurnsPerLayer())
		fmt.Fprintf(tw, "Layers:\t%.1f\n", float64(result.Turns)/float64(coil.TurnsPerLayer()))
		return tw.Flush()
	},
}

func init() {
	calcCmd.Flags().Float64Var(&coil.Length, "length", coil.Length, "bobbin length in mm")
	calcCmd.Flags().Float64Var(&coil.Width, "width", coil.Width, "bobbin width in mm")
	calcCmd.Flags().Float64Var(&coil.Height, "height", coil.Height, "bobbin height (winding window) in mm")
	calcCmd.Flags().Float64Var(&coil.WireDiameter, "wire", coil.WireDiameter, "wire diameter in mm")
	rootCmd.AddCommand(calcCmd)
}
