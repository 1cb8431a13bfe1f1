package ahci

import (
	"fmt"

	"github.com/hbatools/ahcinit/internal/mmio"
)

// Per-port DMA structure geometry. All extents are deterministic functions
// of the port index, the slot index and a single base address, and are
// pairwise disjoint across all 32 ports and 32 slots.
const (
	// CommandHeaders is the number of command header slots per port.
	CommandHeaders = 32

	// CommandListSize is the span of one port's command list: 32 headers
	// of 32 bytes each.
	CommandListSize = CommandHeaders * commandHeaderSize

	// ReceivedFISSize is the span of one port's received-FIS buffer.
	ReceivedFISSize = 256

	// CommandTableSize is the span of one command table, sized for
	// PRDTEntries physical region descriptors.
	CommandTableSize = 256

	// PRDTEntries is the PRDT length programmed into every command header.
	PRDTEntries = 8

	commandHeaderSize = 32

	fisAreaOffset   = 32 << 10
	tableAreaOffset = 40 << 10
	tablePortStride = CommandHeaders * CommandTableSize

	// LayoutSize is the total span of the DMA window needed for all 32
	// ports.
	LayoutSize = tableAreaOffset + MaxPorts*tablePortStride
)

// Command header field offsets within one 32-byte header.
const (
	hdrOffPRDTL = 0x02 // PRDT length, uint16
	hdrOffCTBA  = 0x08 // command table base address
	hdrOffCTBAU = 0x0C // command table base address upper 32 bits
)

// CommandListOffset returns the offset of a port's command list within the
// DMA window: 1 KiB per port from the window start.
func CommandListOffset(port int) uint64 {
	return uint64(port) << 10
}

// ReceivedFISOffset returns the offset of a port's received-FIS buffer:
// 256 bytes per port, after the command list area.
func ReceivedFISOffset(port int) uint64 {
	return fisAreaOffset + uint64(port)<<8
}

// CommandTableOffset returns the offset of one command slot's table:
// 8 KiB per port and 256 bytes per slot, after the FIS area.
func CommandTableOffset(port, slot int) uint64 {
	return tableAreaOffset + uint64(port)<<13 + uint64(slot)<<8
}

// rebasePort points one port's DMA structures into the window at base and
// clears them, then restarts the command engine. The stop must complete
// before the first region write: overwriting a running engine's command
// list is undefined behavior on real hardware.
func rebasePort(p *Port, mem mmio.Memory, base uint64) error {
	if err := p.StopEngine(); err != nil {
		return fmt.Errorf("stop command engine: %w", err)
	}

	clb := CommandListOffset(p.Index())
	p.SetCommandListBase(base + clb)
	mem.Zero(clb, CommandListSize)

	fb := ReceivedFISOffset(p.Index())
	p.SetFISBase(base + fb)
	mem.Zero(fb, ReceivedFISSize)

	for slot := 0; slot < CommandHeaders; slot++ {
		hdr := clb + uint64(slot)*commandHeaderSize
		table := CommandTableOffset(p.Index(), slot)

		mem.WriteU16(hdr+hdrOffPRDTL, PRDTEntries)
		mem.WriteU32(hdr+hdrOffCTBA, uint32(base+table))
		mem.WriteU32(hdr+hdrOffCTBAU, uint32((base+table)>>32))
		mem.Zero(table, CommandTableSize)
	}

	if err := p.StartEngine(); err != nil {
		return fmt.Errorf("start command engine: %w", err)
	}
	return nil
}
