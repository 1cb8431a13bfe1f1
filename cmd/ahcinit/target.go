package main

import (
	"fmt"
	"strconv"

	"github.com/hbatools/ahcinit/internal/ahci"
	"github.com/hbatools/ahcinit/internal/color"
	"github.com/hbatools/ahcinit/internal/mmio"
	"github.com/hbatools/ahcinit/internal/sim"
)

// cliLogger prints controller progress with the standard info marker.
type cliLogger struct{}

func (cliLogger) Infof(format string, args ...any) {
	fmt.Println(color.Infof(format, args...))
}

// target is an opened controller plus the DMA window its ports get rebased
// into. Mem is nil unless the target was opened with a memory window.
type target struct {
	Ctrl *ahci.Controller
	Mem  mmio.Memory

	closers []func() error
}

// Close releases any /dev/mem mappings the target holds.
func (t *target) Close() error {
	var err error
	for _, c := range t.closers {
		if cerr := c(); err == nil {
			err = cerr
		}
	}
	return err
}

// openTarget opens the controller selected by --profile or --abar. For
// live targets withMem additionally maps the DMA window at base; simulated
// targets always carry their own window.
func openTarget(abar, profile string, base uint64, withMem bool, opts ...ahci.Option) (*target, error) {
	switch {
	case profile != "" && abar != "":
		return nil, fmt.Errorf("--abar and --profile are mutually exclusive")

	case profile != "":
		p, err := sim.LoadProfile(profile)
		if err != nil {
			return nil, err
		}
		hba, err := p.Build()
		if err != nil {
			return nil, err
		}
		return &target{
			Ctrl: ahci.Open(hba, opts...),
			Mem:  hba.Mem,
		}, nil

	case abar != "":
		addr, err := parseAddr(abar)
		if err != nil {
			return nil, fmt.Errorf("invalid --abar: %w", err)
		}
		regs, err := mmio.MapDevMem(addr, ahci.RegBlockSize)
		if err != nil {
			return nil, fmt.Errorf("map controller registers: %w", err)
		}
		t := &target{
			Ctrl:    ahci.Open(regs, opts...),
			closers: []func() error{regs.Close},
		}
		if withMem {
			mem, err := mmio.MapDevMem(base, ahci.LayoutSize)
			if err != nil {
				t.Close()
				return nil, fmt.Errorf("map DMA window: %w", err)
			}
			t.Mem = mem
			t.closers = append(t.closers, mem.Close)
		}
		return t, nil

	default:
		return nil, fmt.Errorf("either --abar or --profile is required")
	}
}

// parseAddr parses a decimal or 0x-prefixed address.
func parseAddr(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}
