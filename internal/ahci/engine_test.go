package ahci_test

import (
	"errors"
	"testing"

	"github.com/hbatools/ahcinit/internal/ahci"
	"github.com/hbatools/ahcinit/internal/sim"
)

// sataPort builds a simulated controller with one SATA drive on port 0.
func sataPort(latency int, stuck bool) *sim.HBA {
	return sim.New(sim.Config{
		Latency: latency,
		Ports: []sim.PortConfig{{
			Index:     0,
			Det:       ahci.DetPresent,
			Ipm:       ahci.IpmActive,
			Signature: ahci.SigATA,
			Stuck:     stuck,
		}},
	})
}

func TestStopEngineClearsBits(t *testing.T) {
	hba := sataPort(0, false)
	p := ahci.Open(hba).Port(0)

	if err := p.StopEngine(); err != nil {
		t.Fatalf("StopEngine: %v", err)
	}

	cmd := p.Cmd()
	busy := uint32(ahci.CmdST | ahci.CmdFRE | ahci.CmdCR | ahci.CmdFR)
	if cmd&busy != 0 {
		t.Errorf("PxCMD = %#x after stop, want ST/FRE/CR/FR clear", cmd)
	}
}

func TestStopEngineIdempotent(t *testing.T) {
	hba := sataPort(0, false)
	p := ahci.Open(hba).Port(0)

	if err := p.StopEngine(); err != nil {
		t.Fatalf("first StopEngine: %v", err)
	}

	before := p.Cmd()
	nWrites := len(hba.Writes())

	if err := p.StopEngine(); err != nil {
		t.Fatalf("second StopEngine: %v", err)
	}
	if got := p.Cmd(); got != before {
		t.Errorf("PxCMD changed across idempotent stop: %#x -> %#x", before, got)
	}
	for _, w := range hba.Writes()[nWrites:] {
		if w.Val != before {
			t.Errorf("second stop wrote %#x, want %#x (no value change)", w.Val, before)
		}
	}
}

func TestStopEngineWithLatency(t *testing.T) {
	hba := sataPort(5, false)
	p := ahci.Open(hba, ahci.WithPollAttempts(64)).Port(0)

	if err := p.StopEngine(); err != nil {
		t.Fatalf("StopEngine with settle latency: %v", err)
	}
	if cmd := p.Cmd(); cmd&(ahci.CmdCR|ahci.CmdFR) != 0 {
		t.Errorf("busy bits still set after stop: PxCMD = %#x", cmd)
	}
}

func TestStopEngineTimeout(t *testing.T) {
	hba := sataPort(0, true)
	p := ahci.Open(hba, ahci.WithPollAttempts(16)).Port(0)

	err := p.StopEngine()
	if !errors.Is(err, ahci.ErrEngineTimeout) {
		t.Fatalf("StopEngine on wedged port = %v, want ErrEngineTimeout", err)
	}
}

func TestStartEngineSetsBits(t *testing.T) {
	hba := sataPort(0, false)
	p := ahci.Open(hba).Port(0)

	if err := p.StopEngine(); err != nil {
		t.Fatalf("StopEngine: %v", err)
	}
	if err := p.StartEngine(); err != nil {
		t.Fatalf("StartEngine: %v", err)
	}

	cmd := p.Cmd()
	if cmd&ahci.CmdST == 0 || cmd&ahci.CmdFRE == 0 {
		t.Errorf("PxCMD = %#x after start, want ST and FRE set", cmd)
	}
}

func TestStartEngineEnablesFISReceiveFirst(t *testing.T) {
	hba := sataPort(0, false)
	p := ahci.Open(hba).Port(0)

	if err := p.StopEngine(); err != nil {
		t.Fatalf("StopEngine: %v", err)
	}
	if err := p.StartEngine(); err != nil {
		t.Fatalf("StartEngine: %v", err)
	}

	var cmdWrites []uint32
	for _, w := range hba.PortWrites(0) {
		if w.Off == ahci.PortRegCMD {
			cmdWrites = append(cmdWrites, w.Val)
		}
	}
	if len(cmdWrites) < 2 {
		t.Fatalf("expected at least 2 PxCMD writes, got %d", len(cmdWrites))
	}

	fre := cmdWrites[len(cmdWrites)-2]
	st := cmdWrites[len(cmdWrites)-1]
	if fre&ahci.CmdFRE == 0 || fre&ahci.CmdST != 0 {
		t.Errorf("second-to-last PxCMD write = %#x, want FRE set before ST", fre)
	}
	if st&ahci.CmdST == 0 || st&ahci.CmdFRE == 0 {
		t.Errorf("last PxCMD write = %#x, want ST set with FRE kept", st)
	}
}

func TestStartEngineTimeout(t *testing.T) {
	hba := sataPort(0, true)
	p := ahci.Open(hba, ahci.WithPollAttempts(16)).Port(0)

	err := p.StartEngine()
	if !errors.Is(err, ahci.ErrEngineTimeout) {
		t.Fatalf("StartEngine on wedged port = %v, want ErrEngineTimeout", err)
	}
}
