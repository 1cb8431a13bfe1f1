package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hbatools/ahcinit/internal/color"
	"github.com/spf13/cobra"
)

var (
	probeABAR    string
	probeProfile string
	probeJSON    bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Scan an AHCI controller for attached devices",
	Long: `Classifies every implemented port of the controller and lists the
attached devices. Probing only reads status registers; port state is not
altered, so it is safe on an already initialized controller.

Example:
  ahcinit probe --abar 0xfebf1000
  ahcinit probe --profile sim.yaml --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTarget(probeABAR, probeProfile, 0, false)
		if err != nil {
			return err
		}
		defer t.Close()

		found := t.Ctrl.Probe()

		if probeJSON {
			data, err := json.MarshalIndent(found, "", "  ")
			if err != nil {
				return fmt.Errorf("encode discoveries: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("AHCI %s, %d port slots, %d command slots, PI=%#08x\n\n",
			color.Bold(t.Ctrl.Version()), t.Ctrl.PortCount(),
			t.Ctrl.CommandSlots(), t.Ctrl.PortsImplemented())

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

		fmt.Printf("\nTotal: %d device(s)\n", len(found))
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeABAR, "abar", "", "controller register base address (ABAR)")
	probeCmd.Flags().StringVar(&probeProfile, "profile", "", "simulated controller profile (YAML)")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print discoveries as JSON")
	rootCmd.AddCommand(probeCmd)
}
