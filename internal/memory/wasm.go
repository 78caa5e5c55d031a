package memory

import (
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// WasmMemory adapts a WebAssembly guest's linear memory so the engine can
// introspect objects living inside a wazero module instance. Addresses are
// offsets into linear memory.
type WasmMemory struct {
	Mem api.Memory
}

// WrapWasm returns nil when mem is nil.
func WrapWasm(mem api.Memory) *WasmMemory {
	if mem == nil {
		return nil
	}
	return &WasmMemory{Mem: mem}
}

func wasmRange(addr uint64, n int) (uint32, uint32, bool) {
	if n < 0 || addr > math.MaxUint32 || uint64(n) > math.MaxUint32-addr {
		return 0, 0, false
	}
	return uint32(addr), uint32(n), true
}

// ReadBytes copies n bytes out of linear memory.
func (m *WasmMemory) ReadBytes(addr uint64, n int) ([]byte, error) {
	off, size, ok := wasmRange(addr, n)
	if !ok {
		return nil, fmt.Errorf("%w: wasm offset 0x%x+%d", ErrOutOfRange, addr, n)
	}
	view, ok := m.Mem.Read(off, size)
	if !ok {
		return nil, fmt.Errorf("%w: wasm offset 0x%x+%d beyond %d bytes", ErrOutOfRange, addr, n, m.Mem.Size())
	}
	out := make([]byte, n)
	copy(out, view)
	return out, nil
}

// WriteBytes copies data into linear memory.
func (m *WasmMemory) WriteBytes(addr uint64, data []byte) error {
	off, _, ok := wasmRange(addr, len(data))
	if !ok || !m.Mem.Write(off, data) {
		return fmt.Errorf("%w: wasm offset 0x%x+%d", ErrOutOfRange, addr, len(data))
	}
	return nil
}
