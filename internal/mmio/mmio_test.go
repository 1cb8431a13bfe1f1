package mmio

import "testing"

var (
	_ Region = (*Slab)(nil)
	_ Memory = (*Slab)(nil)
	_ Region = (*DevMem)(nil)
	_ Memory = (*DevMem)(nil)
)

func TestSlabLittleEndian(t *testing.T) {
	s := NewSlab(16)

	s.WriteU32(0, 0x11223344)
	b := s.Bytes()
	if b[0] != 0x44 || b[1] != 0x33 || b[2] != 0x22 || b[3] != 0x11 {
		t.Errorf("WriteU32 bytes = % x, want 44 33 22 11", b[:4])
	}
	if got := s.ReadU32(0); got != 0x11223344 {
		t.Errorf("ReadU32 = %#x, want 0x11223344", got)
	}

	s.WriteU16(8, 0xBEEF)
	if b[8] != 0xEF || b[9] != 0xBE {
		t.Errorf("WriteU16 bytes = % x, want ef be", b[8:10])
	}
	if got := s.ReadU16(8); got != 0xBEEF {
		t.Errorf("ReadU16 = %#x, want 0xBEEF", got)
	}
}

func TestSlabZero(t *testing.T) {
	s := NewSlab(32)
	for i := uint64(0); i < 32; i += 4 {
		s.WriteU32(i, 0xFFFFFFFF)
	}

	s.Zero(8, 8)

	if got := s.ReadU32(4); got != 0xFFFFFFFF {
		t.Errorf("byte before zeroed range changed: %#x", got)
	}
	if got := s.ReadU32(8); got != 0 {
		t.Errorf("zeroed range reads %#x", got)
	}
	if got := s.ReadU32(12); got != 0 {
		t.Errorf("zeroed range reads %#x", got)
	}
	if got := s.ReadU32(16); got != 0xFFFFFFFF {
		t.Errorf("byte after zeroed range changed: %#x", got)
	}
}

func TestSlabOutOfRange(t *testing.T) {
	s := NewSlab(8)

	// Writes past the window are dropped, reads return zero, like an
	// unclaimed bus access.
	s.WriteU32(6, 0x12345678)
	s.WriteU32(100, 0x12345678)
	if got := s.ReadU32(6); got != 0 {
		t.Errorf("straddling write took effect: %#x", got)
	}
	if got := s.ReadU32(100); got != 0 {
		t.Errorf("out-of-range read = %#x, want 0", got)
	}

	// Zero clamps to the window end instead of panicking.
	s.WriteU32(4, 0xFFFFFFFF)
	s.Zero(4, 100)
	if got := s.ReadU32(4); got != 0 {
		t.Errorf("clamped zero missed tail: %#x", got)
	}
}
