package sim

import (
	"reflect"
	"testing"

	"github.com/hbatools/ahcinit/internal/ahci"
)

func TestNewRegisterState(t *testing.T) {
	h := New(Config{
		Ports: []PortConfig{
			{Index: 0, Det: ahci.DetPresent, Ipm: ahci.IpmActive, Signature: ahci.SigATA},
			{Index: 2},
		},
	})

	if pi := h.ReadU32(ahci.RegPI); pi != 0b101 {
		t.Errorf("PI = %#b, want 0b101", pi)
	}
	if vs := h.ReadU32(ahci.RegVS); vs != 0x00010301 {
		t.Errorf("VS = %#x, want 0x00010301", vs)
	}

	base := ahci.PortBlockOffset(0)
	if ssts := h.ReadU32(base + ahci.PortRegSSTS); ssts != 0x103 {
		t.Errorf("port 0 SSTS = %#x, want 0x103", ssts)
	}
	if sig := h.ReadU32(base + ahci.PortRegSIG); sig != ahci.SigATA {
		t.Errorf("port 0 SIG = %#x, want SigATA", sig)
	}

	// A port with a link comes up with its engine running; an empty one
	// comes up idle.
	if cmd := h.ReadU32(base + ahci.PortRegCMD); cmd&ahci.CmdCR == 0 {
		t.Errorf("port 0 CMD = %#x, want CR set", cmd)
	}
	empty := ahci.PortBlockOffset(2)
	if cmd := h.ReadU32(empty + ahci.PortRegCMD); cmd != 0 {
		t.Errorf("port 2 CMD = %#x, want 0", cmd)
	}
}

func TestBusyBitsTrackImmediately(t *testing.T) {
	h := New(Config{
		Ports: []PortConfig{{Index: 0, Det: ahci.DetPresent, Ipm: ahci.IpmActive}},
	})
	cmdOff := ahci.PortBlockOffset(0) + ahci.PortRegCMD

	cmd := h.ReadU32(cmdOff)
	h.WriteU32(cmdOff, cmd&^uint32(ahci.CmdST))

	if got := h.ReadU32(cmdOff); got&ahci.CmdCR != 0 {
		t.Errorf("CR still set with zero latency: %#x", got)
	}
	if got := h.ReadU32(cmdOff); got&ahci.CmdFR == 0 {
		t.Errorf("FR cleared although FRE stays set: %#x", got)
	}
}

func TestBusyBitsLatency(t *testing.T) {
	h := New(Config{
		Latency: 2,
		Ports:   []PortConfig{{Index: 0, Det: ahci.DetPresent, Ipm: ahci.IpmActive}},
	})
	cmdOff := ahci.PortBlockOffset(0) + ahci.PortRegCMD

	h.ReadU32(cmdOff) // settle the initial state
	h.WriteU32(cmdOff, 0)

	// Two stale reads, then the busy bits catch up.
	if got := h.ReadU32(cmdOff); got&ahci.CmdCR == 0 {
		t.Errorf("read 1: CR already clear: %#x", got)
	}
	if got := h.ReadU32(cmdOff); got&ahci.CmdCR == 0 {
		t.Errorf("read 2: CR already clear: %#x", got)
	}
	if got := h.ReadU32(cmdOff); got&(ahci.CmdCR|ahci.CmdFR) != 0 {
		t.Errorf("read 3: busy bits still set: %#x", got)
	}
}

func TestBusyBitsWriteProtected(t *testing.T) {
	h := New(Config{
		Ports: []PortConfig{{Index: 0, Det: ahci.DetPresent, Ipm: ahci.IpmActive}},
	})
	cmdOff := ahci.PortBlockOffset(0) + ahci.PortRegCMD

	// A guest write cannot force the hardware-owned busy bits clear.
	h.WriteU32(cmdOff, ahci.CmdST|ahci.CmdFRE)
	if got := h.regs.ReadU32(cmdOff); got&(ahci.CmdCR|ahci.CmdFR) == 0 {
		t.Errorf("write cleared the busy bits: %#x", got)
	}
}

func TestStuckPortNeverSettles(t *testing.T) {
	h := New(Config{
		Ports: []PortConfig{{Index: 0, Det: ahci.DetPresent, Ipm: ahci.IpmActive, Stuck: true}},
	})
	cmdOff := ahci.PortBlockOffset(0) + ahci.PortRegCMD

	h.WriteU32(cmdOff, 0)
	for i := 0; i < 100; i++ {
		if got := h.ReadU32(cmdOff); got&ahci.CmdCR == 0 {
			t.Fatalf("stuck port settled on read %d: %#x", i, got)
		}
	}
}

func TestWriteTrace(t *testing.T) {
	h := New(Config{Ports: []PortConfig{{Index: 1}}})

	base := ahci.PortBlockOffset(1)
	h.WriteU32(base+ahci.PortRegCLB, 0x1000)
	h.WriteU32(ahci.RegGHC, 2)
	h.WriteU32(base+ahci.PortRegFB, 0x2000)

	want := []RegWrite{
		{Off: ahci.PortRegCLB, Val: 0x1000},
		{Off: ahci.PortRegFB, Val: 0x2000},
	}
	if got := h.PortWrites(1); !reflect.DeepEqual(got, want) {
		t.Errorf("PortWrites(1) = %+v, want %+v", got, want)
	}
	if got := len(h.Writes()); got != 3 {
		t.Errorf("total writes = %d, want 3", got)
	}
}
