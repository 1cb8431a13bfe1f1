package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hbatools/ahcinit/internal/ahci"
	"github.com/spf13/cobra"
)

var (
	layoutBase string
	layoutPort int
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show the DMA memory layout for a base address",
	Long: `Prints the command list, received-FIS buffer and command table extents
each port would receive for the given base address. The layout is a pure
function of the base and the port index; nothing is touched.

Example:
  ahcinit layout --base 0x400000
  ahcinit layout --base 0x400000 --port 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := parseAddr(layoutBase)
		if err != nil {
			return fmt.Errorf("invalid --base: %w", err)
		}
		if layoutPort < -1 || layoutPort >= ahci.MaxPorts {
			return fmt.Errorf("port %d out of range [0,%d)", layoutPort, ahci.MaxPorts)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PORT\tCOMMAND LIST\tRECEIVED FIS\tCOMMAND TABLES")
		fmt.Fprintln(w, "----\t------------\t------------\t--------------")
		for port := 0; port < ahci.MaxPorts; port++ {
			if layoutPort != -1 && port != layoutPort {
				continue
			}
			cl := base + ahci.CommandListOffset(port)
			fis := base + ahci.ReceivedFISOffset(port)
			ct := base + ahci.CommandTableOffset(port, 0)
			ctEnd := base + ahci.CommandTableOffset(port, ahci.CommandHeaders-1) + ahci.CommandTableSize
			fmt.Fprintf(w, "%d\t%#x-%#x\t%#x-%#x\t%#x-%#x\n",
				port,
				cl, cl+ahci.CommandListSize-1,
				fis, fis+ahci.ReceivedFISSize-1,
				ct, ctEnd-1)
		}
		w.Flush()

		fmt.Printf("\nTotal span: %#x-%#x (%d KiB)\n",
			base, base+ahci.LayoutSize-1, ahci.LayoutSize>>10)
		return nil
	},
}

func init() {
	layoutCmd.Flags().StringVar(&layoutBase, "base", "0x400000", "DMA window base address")
	layoutCmd.Flags().IntVar(&layoutPort, "port", -1, "show a single port (default: all)")
	rootCmd.AddCommand(layoutCmd)
}
