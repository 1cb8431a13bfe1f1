// Package sim provides a byte-backed AHCI controller model for tests and
// offline CLI runs. The model covers exactly what port initialization
// exercises: the PI bitmap, per-port status and signature registers, and
// the command-engine busy bits, which track ST/FRE after a configurable
// number of register reads.
package sim

import (
	"github.com/hbatools/ahcinit/internal/ahci"
	"github.com/hbatools/ahcinit/internal/mmio"
)

// PortConfig describes one implemented port of a simulated controller.
type PortConfig struct {
	Index     int
	Det       uint8
	Ipm       uint8
	Signature uint32

	// Stuck keeps the port's busy bits frozen so engine stop/start waits
	// exhaust their poll budget. Used to exercise timeout handling.
	Stuck bool
}

// Config describes a simulated controller.
type Config struct {
	// Latency is how many PxCMD reads pass before the busy bits catch up
	// with ST/FRE. Zero means they track on the first read.
	Latency int

	Ports []PortConfig
}

// RegWrite is one recorded register write, in program order.
type RegWrite struct {
	Off uint64
	Val uint32
}

type portState struct {
	countdown int
	stuck     bool
}

// HBA simulates the register block of an AHCI controller plus the DMA
// window its ports get rebased into. It implements mmio.Region for the
// register side; Mem is the DMA window.
type HBA struct {
	regs    *mmio.Slab
	latency int
	state   [ahci.MaxPorts]portState
	writes  []RegWrite
	reads   []uint64

	// Mem is the DMA window sized for the full port layout.
	Mem *mmio.Slab
}

// New builds a simulated HBA implementing the configured ports. Ports with
// an established link come up with their command engine running, the state
// real firmware leaves them in.
func New(cfg Config) *HBA {
	h := &HBA{
		regs:    mmio.NewSlab(ahci.RegBlockSize),
		latency: cfg.Latency,
		Mem:     mmio.NewSlab(ahci.LayoutSize),
	}

	// 32 ports, 32 command slots, AHCI 1.3.1.
	h.regs.WriteU32(ahci.RegCAP, 31|31<<8)
	h.regs.WriteU32(ahci.RegVS, 0x00010301)

	var pi uint32
	for _, pc := range cfg.Ports {
		if pc.Index < 0 || pc.Index >= ahci.MaxPorts {
			continue
		}
		pi |= 1 << uint(pc.Index)
		base := ahci.PortBlockOffset(pc.Index)
		h.regs.WriteU32(base+ahci.PortRegSSTS, uint32(pc.Det)|uint32(pc.Ipm)<<8)
		h.regs.WriteU32(base+ahci.PortRegSIG, pc.Signature)
		if pc.Det == ahci.DetPresent || pc.Stuck {
			h.regs.WriteU32(base+ahci.PortRegCMD,
				ahci.CmdST|ahci.CmdFRE|ahci.CmdCR|ahci.CmdFR)
		}
		h.state[pc.Index].stuck = pc.Stuck
	}
	h.regs.WriteU32(ahci.RegPI, pi)

	return h
}

// ReadU32 implements mmio.Region. Reads of a port's PxCMD register advance
// the busy-bit model.
func (h *HBA) ReadU32(off uint64) uint32 {
	h.reads = append(h.reads, off)
	if port, ok := cmdRegPort(off); ok {
		h.settleBusy(port, off)
	}
	return h.regs.ReadU32(off)
}

// WriteU32 implements mmio.Region and records the write. Writes to PxCMD
// preserve the hardware-owned busy bits and re-arm the settle latency.
func (h *HBA) WriteU32(off uint64, v uint32) {
	h.writes = append(h.writes, RegWrite{Off: off, Val: v})

	if port, ok := cmdRegPort(off); ok {
		cur := h.regs.ReadU32(off)
		v = v&^uint32(ahci.CmdCR|ahci.CmdFR) | cur&(ahci.CmdCR|ahci.CmdFR)
		h.state[port].countdown = h.latency
	}
	h.regs.WriteU32(off, v)
}

// settleBusy brings CR and FR in line with ST and FRE once the configured
// latency has elapsed. Stuck ports never settle.
func (h *HBA) settleBusy(port int, off uint64) {
	st := &h.state[port]
	if st.stuck {
		return
	}
	if st.countdown > 0 {
		st.countdown--
		return
	}

	cmd := h.regs.ReadU32(off)
	var busy uint32
	if cmd&ahci.CmdST != 0 {
		busy |= ahci.CmdCR
	}
	if cmd&ahci.CmdFRE != 0 {
		busy |= ahci.CmdFR
	}
	h.regs.WriteU32(off, cmd&^uint32(ahci.CmdCR|ahci.CmdFR)|busy)
}

// cmdRegPort reports whether off addresses some port's PxCMD register and
// which port that is.
func cmdRegPort(off uint64) (int, bool) {
	for i := 0; i < ahci.MaxPorts; i++ {
		if off == ahci.PortBlockOffset(i)+ahci.PortRegCMD {
			return i, true
		}
	}
	return 0, false
}

// Reads returns the offset of every recorded register read in program
// order.
func (h *HBA) Reads() []uint64 {
	return h.reads
}

// Writes returns every recorded register write in program order.
func (h *HBA) Writes() []RegWrite {
	return h.writes
}

// PortWrites returns the writes that landed in port i's register block,
// with offsets made relative to the block.
func (h *HBA) PortWrites(i int) []RegWrite {
	base := ahci.PortBlockOffset(i)
	end := ahci.PortBlockOffset(i + 1)
	var out []RegWrite
	for _, w := range h.writes {
		if w.Off >= base && w.Off < end {
			out = append(out, RegWrite{Off: w.Off - base, Val: w.Val})
		}
	}
	return out
}
