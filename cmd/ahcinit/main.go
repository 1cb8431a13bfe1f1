package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ahcinit",
	Short: "AHCI port initialization and device enumeration",
	Long: `ahcinit brings the ports of an AHCI SATA controller into a usable state
and enumerates attached devices.

For every implemented port it stops the command engine, lays out the
command list, received-FIS buffer and command tables inside a supplied
memory window, restarts the engine and reports what is attached.

Targets are either a live controller (--abar, needs /dev/mem access) or a
simulated controller described by a YAML profile (--profile).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
