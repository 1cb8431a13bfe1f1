// Package mmio provides the 32-bit register and DMA-memory access
// primitives shared by the live /dev/mem path and the simulated controller.
package mmio

import "encoding/binary"

// Region is a window of memory-mapped device registers. Every read must
// reach the device and observe its current value; implementations must not
// cache or coalesce accesses.
type Region interface {
	ReadU32(off uint64) uint32
	WriteU32(off uint64, v uint32)
}

// Memory is a window of system memory holding per-port DMA structures:
// command lists, received-FIS buffers and command tables. Offsets are
// relative to the window start, which the caller places at the layout base.
type Memory interface {
	ReadU32(off uint64) uint32
	WriteU32(off uint64, v uint32)
	ReadU16(off uint64) uint16
	WriteU16(off uint64, v uint16)
	Zero(off, n uint64)
}

// Slab is a byte-backed window implementing both Region and Memory. It is
// the backing store for the simulated controller and for tests. All
// accesses are little-endian; out-of-range reads return zero and
// out-of-range writes are dropped, matching how an unclaimed bus access
// behaves.
type Slab struct {
	data []byte
}

// NewSlab creates a zeroed Slab of the given size.
func NewSlab(size int) *Slab {
	return &Slab{data: make([]byte, size)}
}

// Len returns the window size in bytes.
func (s *Slab) Len() int { return len(s.data) }

// Bytes returns the underlying storage.
func (s *Slab) Bytes() []byte { return s.data }

// ReadU32 reads a little-endian uint32 at the given offset.
func (s *Slab) ReadU32(off uint64) uint32 {
	if off+4 > uint64(len(s.data)) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.data[off : off+4])
}

// WriteU32 writes a little-endian uint32 at the given offset.
func (s *Slab) WriteU32(off uint64, v uint32) {
	if off+4 > uint64(len(s.data)) {
		return
	}
	binary.LittleEndian.PutUint32(s.data[off:off+4], v)
}

// ReadU16 reads a little-endian uint16 at the given offset.
func (s *Slab) ReadU16(off uint64) uint16 {
	if off+2 > uint64(len(s.data)) {
		return 0
	}
	return binary.LittleEndian.Uint16(s.data[off : off+2])
}

// WriteU16 writes a little-endian uint16 at the given offset.
func (s *Slab) WriteU16(off uint64, v uint16) {
	if off+2 > uint64(len(s.data)) {
		return
	}
	binary.LittleEndian.PutUint16(s.data[off:off+2], v)
}

// Zero clears n bytes starting at the given offset.
func (s *Slab) Zero(off, n uint64) {
	end := off + n
	if off > uint64(len(s.data)) {
		return
	}
	if end > uint64(len(s.data)) {
		end = uint64(len(s.data))
	}
	clear(s.data[off:end])
}
