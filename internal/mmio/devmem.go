package mmio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const devMemPath = "/dev/mem"

// DevMem is a live physical-memory window mapped through /dev/mem. It is
// used both for the HBA register block at the ABAR and for the DMA window
// the ports are rebased into. Register accesses go through 32-bit atomic
// loads and stores so every call reaches the mapped page exactly once.
//
// The requested base must be 4-byte aligned; BAR addresses always are.
type DevMem struct {
	f      *os.File
	mapped []byte
	off    uint64 // offset of the requested base within the page mapping
	size   uint64
}

// MapDevMem maps size bytes of physical memory starting at base. The
// mapping is widened to page boundaries as mmap requires; accessors still
// address the window relative to base.
func MapDevMem(base, size uint64) (*DevMem, error) {
	f, err := os.OpenFile(devMemPath, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devMemPath, err)
	}

	page := uint64(unix.Getpagesize())
	aligned := base &^ (page - 1)
	span := size + (base - aligned)
	if rem := span % page; rem != 0 {
		span += page - rem
	}

	mapped, err := unix.Mmap(int(f.Fd()), int64(aligned), int(span),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %#x (%d bytes): %w", aligned, span, err)
	}

	return &DevMem{
		f:      f,
		mapped: mapped,
		off:    base - aligned,
		size:   size,
	}, nil
}

// Close unmaps the window and closes /dev/mem.
func (m *DevMem) Close() error {
	err := unix.Munmap(m.mapped)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	m.mapped = nil
	return err
}

// ReadU32 reads the 32-bit value at the given offset from base.
func (m *DevMem) ReadU32(off uint64) uint32 {
	if off+4 > m.size {
		return 0
	}
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.mapped[m.off+off])))
}

// WriteU32 writes the 32-bit value at the given offset from base.
func (m *DevMem) WriteU32(off uint64, v uint32) {
	if off+4 > m.size {
		return
	}
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.mapped[m.off+off])), v)
}

// ReadU16 reads a 16-bit value. Only DMA structures in plain RAM are
// accessed at this width, never device registers.
func (m *DevMem) ReadU16(off uint64) uint16 {
	if off+2 > m.size {
		return 0
	}
	p := m.mapped[m.off+off:]
	return uint16(p[0]) | uint16(p[1])<<8
}

// WriteU16 writes a 16-bit value. See ReadU16 for the width caveat.
func (m *DevMem) WriteU16(off uint64, v uint16) {
	if off+2 > m.size {
		return
	}
	p := m.mapped[m.off+off:]
	p[0] = byte(v)
	p[1] = byte(v >> 8)
}

// Zero clears n bytes starting at the given offset from base.
func (m *DevMem) Zero(off, n uint64) {
	end := off + n
	if off > m.size {
		return
	}
	if end > m.size {
		end = m.size
	}
	clear(m.mapped[m.off+off : m.off+end])
}
