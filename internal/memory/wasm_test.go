package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/tetratelabs/wazero"
)

// memoryModule is a minimal module that defines and exports one page of
// linear memory:
//
//	(module (memory (export "memory") 1))
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 memory, min 1 page
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // export "memory"
}

func TestWasmMemory(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, memoryModule)
	if err != nil {
		t.Fatal(err)
	}
	wm := WrapWasm(mod.ExportedMemory("memory"))
	if wm == nil {
		t.Fatal("exported memory missing")
	}

	r := NewReader(wm, 4)
	if err := r.WritePointer(0x100, 0x200); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteU32(0x200, 42); err != nil {
		t.Fatal(err)
	}
	p, err := r.ReadPointer(0x100)
	if err != nil {
		t.Fatal(err)
	}
	v, err := r.ReadU32(p)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("value through pointer = %d, want 42", v)
	}

	// One page is 64 KiB.
	if _, err := r.ReadBytes(0xfffe, 4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read past page err = %v, want ErrOutOfRange", err)
	}
	if _, err := r.ReadBytes(1<<33, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read above 4GiB err = %v, want ErrOutOfRange", err)
	}
	if WrapWasm(nil) != nil {
		t.Error("WrapWasm(nil) should be nil")
	}
}
