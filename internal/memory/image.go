package memory

import (
	"fmt"
	"os"
)

// Image is a flat, writable snapshot of a target address range starting
// at a fixed base address. It backs offline analysis of raw dumps and the
// synthetic targets used in tests.
type Image struct {
	base uint64
	data []byte
}

// NewImage allocates a zero-filled image of size bytes at base.
func NewImage(base uint64, size int) *Image {
	return &Image{base: base, data: make([]byte, size)}
}

// NewImageFrom wraps data as an image at base. data is not copied.
func NewImageFrom(base uint64, data []byte) *Image {
	return &Image{base: base, data: data}
}

// LoadImage reads a raw memory dump from path and maps it at base.
func LoadImage(path string, base uint64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: load image: %w", err)
	}
	return &Image{base: base, data: data}, nil
}

// Base returns the address of the first byte.
func (m *Image) Base() uint64 { return m.base }

// Size returns the mapped length in bytes.
func (m *Image) Size() int { return len(m.data) }

// Bytes exposes the backing slice.
func (m *Image) Bytes() []byte { return m.data }

func (m *Image) offset(addr uint64, n int) (int, bool) {
	if addr < m.base || n < 0 {
		return 0, false
	}
	off := addr - m.base
	if off > uint64(len(m.data)) || uint64(n) > uint64(len(m.data))-off {
		return 0, false
	}
	return int(off), true
}

// ReadBytes returns a copy of n bytes at addr.
func (m *Image) ReadBytes(addr uint64, n int) ([]byte, error) {
	off, ok := m.offset(addr, n)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x+%d outside [0x%x, 0x%x)", ErrOutOfRange, addr, n, m.base, m.base+uint64(len(m.data)))
	}
	out := make([]byte, n)
	copy(out, m.data[off:off+n])
	return out, nil
}

// WriteBytes copies data into the image at addr.
func (m *Image) WriteBytes(addr uint64, data []byte) error {
	off, ok := m.offset(addr, len(data))
	if !ok {
		return fmt.Errorf("%w: 0x%x+%d outside [0x%x, 0x%x)", ErrOutOfRange, addr, len(data), m.base, m.base+uint64(len(m.data)))
	}
	copy(m.data[off:], data)
	return nil
}
