package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hbatools/ahcinit/internal/ahci"
	"github.com/hbatools/ahcinit/internal/color"
	"github.com/spf13/cobra"
)

var (
	initABAR     string
	initProfile  string
	initBase     string
	initAttempts int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize port memory and enumerate devices",
	Long: `Performs the full bring-up on the controller: stops every implemented
port's command engine, lays out its command list, received-FIS buffer and
command tables inside the DMA window at --base, restarts the engine and
scans for attached devices.

The window at --base must span the full layout (see "ahcinit layout") and
must not alias memory in use elsewhere; picking it is the caller's job.

Example:
  ahcinit init --abar 0xfebf1000 --base 0x400000
  ahcinit init --profile sim.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := parseAddr(initBase)
		if err != nil {
			return fmt.Errorf("invalid --base: %w", err)
		}

		t, err := openTarget(initABAR, initProfile, base, true,
			ahci.WithLogger(cliLogger{}), ahci.WithPollAttempts(initAttempts))
		if err != nil {
			return err
		}
		defer t.Close()

		found, err := t.Ctrl.Init(t.Mem, base)
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}

		fmt.Printf("\n%s\n", color.Header("Attached devices"))
		if len(found) == 0 {
			fmt.Println(color.Warn("no devices attached"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PORT\tDEVICE")
		fmt.Fprintln(w, "----\t------")
		for _, d := range found {
			fmt.Fprintf(w, "%d\t%s\n", d.Port, d.Type)
		}
		w.Flush()

		fmt.Printf("\n%s\n", color.Okf("%d port(s) ready", len(found)))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initABAR, "abar", "", "controller register base address (ABAR)")
	initCmd.Flags().StringVar(&initProfile, "profile", "", "simulated controller profile (YAML)")
	initCmd.Flags().StringVar(&initBase, "base", "0x400000", "DMA window base address")
	initCmd.Flags().IntVar(&initAttempts, "poll-attempts", ahci.DefaultPollAttempts,
		"busy-wait budget for engine stop/start")
	rootCmd.AddCommand(initCmd)
}
