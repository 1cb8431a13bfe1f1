// Package ahci implements port detection and command-engine bring-up for
// AHCI SATA host controllers. It classifies attached devices, quiesces and
// restarts each port's DMA engine, and lays out the per-port command list,
// received-FIS buffer and command tables inside a caller-supplied memory
// window.
//
// Field offsets and bit positions follow the AHCI specification exactly;
// they are the binary contract with the hardware.
package ahci

// Generic host control registers, offsets from the ABAR.
const (
	RegCAP = 0x00 // host capabilities
	RegGHC = 0x04 // global host control
	RegIS  = 0x08 // interrupt status
	RegPI  = 0x0C // ports implemented
	RegVS  = 0x10 // version
)

// Port register offsets, relative to each port's register block.
const (
	PortRegCLB  = 0x00 // command list base address
	PortRegCLBU = 0x04 // command list base address upper 32 bits
	PortRegFB   = 0x08 // FIS base address
	PortRegFBU  = 0x0C // FIS base address upper 32 bits
	PortRegCMD  = 0x18 // command and status
	PortRegSIG  = 0x24 // device signature
	PortRegSSTS = 0x28 // SATA status (DET, IPM)
)

// MaxPorts is the number of ports an HBA can implement; the PI register
// carries one bit per port.
const MaxPorts = 32

const (
	portBlockBase   = 0x100
	portBlockStride = 0x80
)

// RegBlockSize is the span of the HBA register window covering the generic
// host control registers and all 32 port blocks.
const RegBlockSize = portBlockBase + MaxPorts*portBlockStride

// PortBlockOffset returns the offset of port i's register block within the
// HBA window.
func PortBlockOffset(i int) uint64 {
	return portBlockBase + uint64(i)*portBlockStride
}

// PxCMD bits.
const (
	CmdST  = 1 << 0  // start command list processing
	CmdFRE = 1 << 4  // FIS receive enable
	CmdFR  = 1 << 14 // FIS receive running (read-only)
	CmdCR  = 1 << 15 // command list running (read-only)
)

// PxSSTS field values.
const (
	DetPresent = 0x3 // device present, phy communication established
	IpmActive  = 0x1 // interface in active power state
)

// Device signatures reported in PxSIG after link establishment.
const (
	SigATA   = 0x00000101 // SATA drive
	SigATAPI = 0xEB140101 // SATAPI drive
	SigSEMB  = 0xC33C0101 // enclosure management bridge
	SigPM    = 0x96690101 // port multiplier
)

// DetField extracts the device detection field, PxSSTS bits 0-3.
func DetField(ssts uint32) uint8 {
	return uint8(ssts & 0xF)
}

// IpmField extracts the interface power management field, PxSSTS bits 8-11.
func IpmField(ssts uint32) uint8 {
	return uint8((ssts >> 8) & 0xF)
}
