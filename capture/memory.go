package capture

import "github.com/pkg/errors"

// MemoryView is a read-only window onto GPU-addressable memory as it
// existed at capture time. submitIndex is accepted on every call because
// a real capture may remap the same virtual address differently across
// submits (address-space reuse between queues); BufferMemory below
// ignores it since it backs exactly one flat range.
type MemoryView interface {
	// Copy reads size bytes starting at va into buf, which must be at
	// least size bytes long. It reports false if any byte of the range
	// was not captured.
	Copy(buf []byte, submitIndex int, va uint64, size uint32) bool
	// MaxContiguousSize returns how many bytes starting at va are
	// available without a gap, or 0 if va itself is not valid.
	MaxContiguousSize(submitIndex int, va uint64) uint32
	// IsValid reports whether the entire [va, va+size) range was
	// captured.
	IsValid(submitIndex int, va uint64, size uint32) bool
}

// BufferMemory is a MemoryView backed by a single flat byte slice
// addressed starting at base. It is the reference implementation used by
// CreateTreesFromBuffer and by every test fixture in this module: most
// test captures are small enough to fit in one contiguous, linearly
// addressed buffer.
type BufferMemory struct {
	buf  []byte
	base uint64
}

// NewBufferMemory wraps buf as a MemoryView whose lowest addressable byte
// is base.
func NewBufferMemory(buf []byte, base uint64) *BufferMemory {
	return &BufferMemory{buf: buf, base: base}
}

func (m *BufferMemory) bounds(va uint64, size uint32) (start int, ok bool) {
	if va < m.base {
		return 0, false
	}
	off := va - m.base
	if off > uint64(len(m.buf)) {
		return 0, false
	}
	end := off + uint64(size)
	if end > uint64(len(m.buf)) {
		return 0, false
	}
	return int(off), true
}

func (m *BufferMemory) Copy(buf []byte, _ int, va uint64, size uint32) bool {
	off, ok := m.bounds(va, size)
	if !ok {
		return false
	}
	copy(buf, m.buf[off:off+int(size)])
	return true
}

func (m *BufferMemory) MaxContiguousSize(_ int, va uint64) uint32 {
	if va < m.base {
		return 0
	}
	off := va - m.base
	if off >= uint64(len(m.buf)) {
		return 0
	}
	return uint32(uint64(len(m.buf)) - off)
}

func (m *BufferMemory) IsValid(_ int, va uint64, size uint32) bool {
	_, ok := m.bounds(va, size)
	return ok
}

// ReadDwords reads count little-endian 32-bit words starting at va. It
// wraps the same fail-closed behavior as Copy with call-site context, the
// way id3v2.Decode wraps a short read with errors.Wrap rather than
// letting a bare io.ErrUnexpectedEOF escape.
func ReadDwords(mem MemoryView, submitIndex int, va uint64, count uint32) ([]uint32, error) {
	buf := make([]byte, count*4)
	if !mem.Copy(buf, submitIndex, va, count*4) {
		return nil, errors.Errorf("read %d dwords at %#x: out of captured range", count, va)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
	}
	return out, nil
}

// ReadDwordsAsBytes reads count dwords starting at va and returns their
// raw bytes, for callers (Packet/Reg node metadata) that want the
// original wire representation rather than decoded words.
func ReadDwordsAsBytes(mem MemoryView, submitIndex int, va uint64, count uint32) ([]byte, error) {
	buf := make([]byte, count*4)
	if !mem.Copy(buf, submitIndex, va, count*4) {
		return nil, errors.Errorf("read %d dwords at %#x: out of captured range", count, va)
	}
	return buf, nil
}
