package ahci

import (
	"errors"
	"fmt"

	"github.com/hbatools/ahcinit/internal/mmio"
)

// ErrEngineTimeout is returned when a port's command engine busy bits do
// not settle within the poll budget. It indicates misbehaving hardware;
// the AHCI specification gives no upper bound for the transition, so the
// budget is a driver policy.
var ErrEngineTimeout = errors.New("command engine busy-wait timed out")

// Port is a handle over one port's register block. It is the only path the
// driver uses to touch port registers, so all accesses stay well-typed and
// whole-register.
type Port struct {
	regs  mmio.Region
	base  uint64
	index int
	poll  int
}

// Index returns the port number, 0-31.
func (p *Port) Index() int { return p.index }

func (p *Port) reg(off uint64) uint32 {
	return p.regs.ReadU32(p.base + off)
}

func (p *Port) setReg(off uint64, v uint32) {
	p.regs.WriteU32(p.base+off, v)
}

// Cmd reads the command and status register.
func (p *Port) Cmd() uint32 { return p.reg(PortRegCMD) }

// SetCmd writes the command and status register.
func (p *Port) SetCmd(v uint32) { p.setReg(PortRegCMD, v) }

// Ssts reads the SATA status register.
func (p *Port) Ssts() uint32 { return p.reg(PortRegSSTS) }

// Sig reads the device signature register.
func (p *Port) Sig() uint32 { return p.reg(PortRegSIG) }

// SetCommandListBase programs the 64-bit command list base address.
func (p *Port) SetCommandListBase(addr uint64) {
	p.setReg(PortRegCLB, uint32(addr))
	p.setReg(PortRegCLBU, uint32(addr>>32))
}

// SetFISBase programs the 64-bit received-FIS buffer base address.
func (p *Port) SetFISBase(addr uint64) {
	p.setReg(PortRegFB, uint32(addr))
	p.setReg(PortRegFBU, uint32(addr>>32))
}

// Classify reports what is attached to the port. It only reads status
// registers and never alters port state.
func (p *Port) Classify() DeviceType {
	return ClassifyDevice(p.Ssts(), p.Sig())
}

// StopEngine halts command list processing and FIS receive DMA, then waits
// for the hardware to acknowledge by clearing both busy bits. Once it
// returns nil no DMA activity remains on the port.
//
// Safe to call on an already stopped port: the busy bits read as clear and
// the wait returns immediately.
func (p *Port) StopEngine() error {
	p.SetCmd(p.Cmd() &^ CmdST)
	p.SetCmd(p.Cmd() &^ CmdFRE)
	return p.waitCmdClear(CmdCR | CmdFR)
}

// StartEngine waits for any prior command list run to drain, then enables
// FIS receive and command list processing, in that order. The port's
// command list and FIS buffer must already be programmed and zeroed;
// starting the engine over unprogrammed memory is undefined on real
// hardware.
func (p *Port) StartEngine() error {
	if err := p.waitCmdClear(CmdCR); err != nil {
		return err
	}
	p.SetCmd(p.Cmd() | CmdFRE)
	p.SetCmd(p.Cmd() | CmdST)
	return nil
}

// waitCmdClear polls PxCMD until the given bits read as clear, bounded by
// the port's poll budget.
func (p *Port) waitCmdClear(mask uint32) error {
	var cmd uint32
	for i := 0; i < p.poll; i++ {
		cmd = p.Cmd()
		if cmd&mask == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: PxCMD=%#x after %d reads waiting for %#x to clear",
		ErrEngineTimeout, cmd, p.poll, mask)
}
