package ahci

import (
	"fmt"

	"github.com/hbatools/ahcinit/internal/mmio"
)

// Logger receives progress and discovery reports during initialization.
// Logging is informational only: a no-op logger must not change behavior.
type Logger interface {
	Infof(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}

// NopLogger discards all output.
var NopLogger Logger = nopLogger{}

// DefaultPollAttempts bounds each command-engine busy-wait. Well-behaved
// hardware settles within a handful of register reads; the budget exists so
// a wedged controller surfaces ErrEngineTimeout instead of hanging boot.
const DefaultPollAttempts = 1 << 20

// Controller drives port initialization for one AHCI HBA. It owns the
// register window for the duration of initialization; no other execution
// context may touch the controller concurrently.
type Controller struct {
	regs mmio.Region
	log  Logger
	poll int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the progress logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithPollAttempts sets the busy-wait budget for engine stop/start.
func WithPollAttempts(n int) Option {
	return func(c *Controller) { c.poll = n }
}

// Open wraps an already mapped HBA register window. The window must span
// RegBlockSize bytes starting at the ABAR.
func Open(regs mmio.Region, opts ...Option) *Controller {
	c := &Controller{
		regs: regs,
		log:  NopLogger,
		poll: DefaultPollAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PortsImplemented reads the PI register: bit i set means port i exists.
func (c *Controller) PortsImplemented() uint32 {
	return c.regs.ReadU32(RegPI)
}

// PortCount returns the number of ports the silicon supports, from CAP
// bits 0-4. This is a capacity, not the count of implemented ports.
func (c *Controller) PortCount() int {
	return int(c.regs.ReadU32(RegCAP)&0x1F) + 1
}

// CommandSlots returns the command slots per port, from CAP bits 8-12.
func (c *Controller) CommandSlots() int {
	return int(c.regs.ReadU32(RegCAP)>>8&0x1F) + 1
}

// Version returns the AHCI version register formatted like "1.3.1".
func (c *Controller) Version() string {
	vs := c.regs.ReadU32(RegVS)
	return fmt.Sprintf("%x.%x.%x", vs>>16, (vs>>8)&0xFF, vs&0xFF)
}

// Port returns a handle for port i. Operating on a port whose PI bit is
// clear is undefined; callers iterate via PortsImplemented.
func (c *Controller) Port(i int) *Port {
	return &Port{
		regs:  c.regs,
		base:  PortBlockOffset(i),
		index: i,
		poll:  c.poll,
	}
}

// Discovery reports a device found during a port scan.
type Discovery struct {
	Port int        `json:"port"`
	Type DeviceType `json:"type"`
}

// Probe classifies every implemented port in ascending index order and
// returns a discovery for each attached device. Ports without a device are
// skipped silently; that is a normal outcome, not a failure.
func (c *Controller) Probe() []Discovery {
	var found []Discovery
	pi := c.PortsImplemented()
	for i := 0; i < MaxPorts; i++ {
		if pi&(1<<uint(i)) == 0 {
			continue
		}
		dt := c.Port(i).Classify()
		if dt == DeviceNone {
			continue
		}
		c.log.Infof("%s drive found, port = %d", dt, i)
		found = append(found, Discovery{Port: i, Type: dt})
	}
	return found
}

// Rebase lays out the command list, received-FIS buffer and command tables
// for every implemented port inside the DMA window at base, stopping each
// port's command engine before touching its regions and restarting it
// after. mem must span LayoutSize bytes whose offset 0 sits at base, and
// base must not alias memory in use elsewhere; that is the caller's
// contract.
func (c *Controller) Rebase(mem mmio.Memory, base uint64) error {
	pi := c.PortsImplemented()
	for i := 0; i < MaxPorts; i++ {
		if pi&(1<<uint(i)) == 0 {
			continue
		}
		if err := rebasePort(c.Port(i), mem, base); err != nil {
			return fmt.Errorf("port %d: %w", i, err)
		}
	}
	return nil
}

// Init performs the full bring-up: DMA layout for every implemented port,
// then a device scan. It is meant to run once, before anything else can
// touch the controller.
func (c *Controller) Init(mem mmio.Memory, base uint64) ([]Discovery, error) {
	c.log.Infof("rebasing port memory at %#x", base)
	if err := c.Rebase(mem, base); err != nil {
		return nil, err
	}

	c.log.Infof("port memory configured, enumerating devices")
	found := c.Probe()
	c.log.Infof("drive enumeration completed, %d device(s)", len(found))
	return found, nil
}
