package sim

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hbatools/ahcinit/internal/ahci"
)

// Profile is the YAML description of a simulated controller, used for
// offline CLI runs without controller hardware.
//
// Example:
//
//	latency: 2
//	ports:
//	  - index: 0
//	    device: sata
//	  - index: 2
//	    device: none
type Profile struct {
	Latency int           `yaml:"latency"`
	Ports   []PortProfile `yaml:"ports"`
}

// PortProfile describes one implemented port. The device name picks sane
// DET/IPM/signature values; the raw fields override them when set.
type PortProfile struct {
	Index     int     `yaml:"index"`
	Device    string  `yaml:"device"`    // none, sata, satapi, semb, pm
	Signature *uint32 `yaml:"signature"` // raw PxSIG override
	Det       *uint8  `yaml:"det"`       // raw DET override
	Ipm       *uint8  `yaml:"ipm"`       // raw IPM override
	Stuck     bool    `yaml:"stuck"`
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile parses and validates profile YAML.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	seen := make(map[int]bool)
	for _, pp := range p.Ports {
		if pp.Index < 0 || pp.Index >= ahci.MaxPorts {
			return nil, fmt.Errorf("port index %d out of range [0,%d)", pp.Index, ahci.MaxPorts)
		}
		if seen[pp.Index] {
			return nil, fmt.Errorf("duplicate port index %d", pp.Index)
		}
		seen[pp.Index] = true
		if _, err := deviceDefaults(pp.Device); err != nil {
			return nil, fmt.Errorf("port %d: %w", pp.Index, err)
		}
	}
	return &p, nil
}

// Build constructs the simulated HBA the profile describes.
func (p *Profile) Build() (*HBA, error) {
	cfg := Config{Latency: p.Latency}
	for _, pp := range p.Ports {
		pc, err := deviceDefaults(pp.Device)
		if err != nil {
			return nil, fmt.Errorf("port %d: %w", pp.Index, err)
		}
		pc.Index = pp.Index
		pc.Stuck = pp.Stuck
		if pp.Signature != nil {
			pc.Signature = *pp.Signature
		}
		if pp.Det != nil {
			pc.Det = *pp.Det
		}
		if pp.Ipm != nil {
			pc.Ipm = *pp.Ipm
		}
		cfg.Ports = append(cfg.Ports, pc)
	}
	return New(cfg), nil
}

// deviceDefaults maps a device name to port register defaults.
func deviceDefaults(device string) (PortConfig, error) {
	pc := PortConfig{}
	switch strings.ToLower(device) {
	case "", "none", "empty":
		// DET stays 0: nothing attached.
	case "sata":
		pc.Det, pc.Ipm, pc.Signature = ahci.DetPresent, ahci.IpmActive, ahci.SigATA
	case "satapi":
		pc.Det, pc.Ipm, pc.Signature = ahci.DetPresent, ahci.IpmActive, ahci.SigATAPI
	case "semb":
		pc.Det, pc.Ipm, pc.Signature = ahci.DetPresent, ahci.IpmActive, ahci.SigSEMB
	case "pm":
		pc.Det, pc.Ipm, pc.Signature = ahci.DetPresent, ahci.IpmActive, ahci.SigPM
	default:
		return pc, fmt.Errorf("unknown device %q (want none, sata, satapi, semb or pm)", device)
	}
	return pc, nil
}
