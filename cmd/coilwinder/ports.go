package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/coilwinder/controller"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List USB serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := controller.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			marker := " "
			if p.IsPico() {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
