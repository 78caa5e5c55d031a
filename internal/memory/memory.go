// Package memory provides byte-range access to a target address space and
// typed little-endian helpers built on top of it.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrOutOfRange          = errors.New("memory: address out of range")
	ErrShortRead           = errors.New("memory: short read")
	ErrShortWrite          = errors.New("memory: short write")
	ErrUnterminated        = errors.New("memory: unterminated string")
	ErrProcessNotOpen      = errors.New("memory: process not open")
	ErrUnsupportedPlatform = errors.New("memory: live process access not supported on this platform")
	ErrModuleNotFound      = errors.New("memory: module not mapped")
	ErrReadOnly            = errors.New("memory: target is read-only")
	ErrNotCore             = errors.New("memory: not an ELF file with loadable segments")
	ErrNotStopped          = errors.New("memory: process did not stop")
)

// Accessor reads and writes raw byte ranges of a target address space.
// Implementations fail when a range is unreadable, unwritable or only
// partially transferred.
type Accessor interface {
	ReadBytes(addr uint64, n int) ([]byte, error)
	WriteBytes(addr uint64, data []byte) error
}

// Reader decodes scalars, pointers and strings from an Accessor.
// All multi-byte values are little-endian.
type Reader struct {
	mem     Accessor
	ptrSize int
}

// NewReader wraps mem. ptrSize must be 4 or 8; anything else selects 8.
func NewReader(mem Accessor, ptrSize int) *Reader {
	if ptrSize != 4 {
		ptrSize = 8
	}
	return &Reader{mem: mem, ptrSize: ptrSize}
}

// PointerSize returns the width of a target pointer in bytes.
func (r *Reader) PointerSize() int { return r.ptrSize }

// Accessor returns the underlying byte-range accessor.
func (r *Reader) Accessor() Accessor { return r.mem }

// ReadBytes reads exactly n bytes at addr.
func (r *Reader) ReadBytes(addr uint64, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("memory: read 0x%x: negative length %d", addr, n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	b, err := r.mem.ReadBytes(addr, n)
	if err != nil {
		return nil, fmt.Errorf("memory: read 0x%x+%d: %w", addr, n, err)
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: 0x%x wanted %d bytes, got %d", ErrShortRead, addr, n, len(b))
	}
	return b, nil
}

// WriteBytes writes data at addr.
func (r *Reader) WriteBytes(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := r.mem.WriteBytes(addr, data); err != nil {
		return fmt.Errorf("memory: write 0x%x+%d: %w", addr, len(data), err)
	}
	return nil
}

// Pointer decodes a target pointer from the start of b.
func (r *Reader) Pointer(b []byte) uint64 {
	if r.ptrSize == 4 {
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) putPointer(b []byte, v uint64) {
	if r.ptrSize == 4 {
		binary.LittleEndian.PutUint32(b, uint32(v))
		return
	}
	binary.LittleEndian.PutUint64(b, v)
}

// ReadPointer reads one target pointer.
func (r *Reader) ReadPointer(addr uint64) (uint64, error) {
	b, err := r.ReadBytes(addr, r.ptrSize)
	if err != nil {
		return 0, err
	}
	return r.Pointer(b), nil
}

// ReadPointers reads count consecutive pointers with a single transfer.
func (r *Reader) ReadPointers(addr uint64, count int) ([]uint64, error) {
	b, err := r.ReadBytes(addr, count*r.ptrSize)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, count)
	for i := range out {
		out[i] = r.Pointer(b[i*r.ptrSize:])
	}
	return out, nil
}

// WritePointer writes one target pointer.
func (r *Reader) WritePointer(addr, v uint64) error {
	b := make([]byte, r.ptrSize)
	r.putPointer(b, v)
	return r.WriteBytes(addr, b)
}

// WritePointers writes consecutive pointers with a single transfer.
func (r *Reader) WritePointers(addr uint64, vs []uint64) error {
	b := make([]byte, len(vs)*r.ptrSize)
	for i, v := range vs {
		r.putPointer(b[i*r.ptrSize:], v)
	}
	return r.WriteBytes(addr, b)
}

func (r *Reader) ReadU8(addr uint64) (uint8, error) {
	b, err := r.ReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadS8(addr uint64) (int8, error) {
	v, err := r.ReadU8(addr)
	return int8(v), err
}

func (r *Reader) ReadU16(addr uint64) (uint16, error) {
	b, err := r.ReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadS16(addr uint64) (int16, error) {
	v, err := r.ReadU16(addr)
	return int16(v), err
}

func (r *Reader) ReadU32(addr uint64) (uint32, error) {
	b, err := r.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadS32(addr uint64) (int32, error) {
	v, err := r.ReadU32(addr)
	return int32(v), err
}

func (r *Reader) ReadU64(addr uint64) (uint64, error) {
	b, err := r.ReadBytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadS64(addr uint64) (int64, error) {
	v, err := r.ReadU64(addr)
	return int64(v), err
}

func (r *Reader) ReadF32(addr uint64) (float32, error) {
	v, err := r.ReadU32(addr)
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64(addr uint64) (float64, error) {
	v, err := r.ReadU64(addr)
	return math.Float64frombits(v), err
}

func (r *Reader) WriteU8(addr uint64, v uint8) error {
	return r.WriteBytes(addr, []byte{v})
}

func (r *Reader) WriteU16(addr uint64, v uint16) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return r.WriteBytes(addr, b)
}

func (r *Reader) WriteU32(addr uint64, v uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return r.WriteBytes(addr, b)
}

func (r *Reader) WriteU64(addr uint64, v uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return r.WriteBytes(addr, b)
}

func (r *Reader) WriteF32(addr uint64, v float32) error {
	return r.WriteU32(addr, math.Float32bits(v))
}

func (r *Reader) WriteF64(addr uint64, v float64) error {
	return r.WriteU64(addr, math.Float64bits(v))
}
