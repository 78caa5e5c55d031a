package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testSeg struct {
	vaddr uint64
	data  []byte
	memsz uint64
}

// writeCore builds a minimal little-endian ELF64 core with one PT_LOAD
// per segment.
func writeCore(t *testing.T, segs ...testSeg) string {
	t.Helper()
	const ehsize, phentsize = 64, 56
	le := binary.LittleEndian

	hdr := make([]byte, ehsize)
	copy(hdr, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	le.PutUint16(hdr[16:], 4)  // ET_CORE
	le.PutUint16(hdr[18:], 62) // EM_X86_64
	le.PutUint32(hdr[20:], 1)
	le.PutUint64(hdr[32:], ehsize)
	le.PutUint16(hdr[52:], ehsize)
	le.PutUint16(hdr[54:], phentsize)
	le.PutUint16(hdr[56:], uint16(len(segs)))
	le.PutUint16(hdr[58:], 64)

	var buf bytes.Buffer
	buf.Write(hdr)
	off := uint64(ehsize + phentsize*len(segs))
	for _, s := range segs {
		ph := make([]byte, phentsize)
		le.PutUint32(ph[0:], 1) // PT_LOAD
		le.PutUint32(ph[4:], 4) // PF_R
		le.PutUint64(ph[8:], off)
		le.PutUint64(ph[16:], s.vaddr)
		le.PutUint64(ph[32:], uint64(len(s.data)))
		le.PutUint64(ph[40:], s.memsz)
		buf.Write(ph)
		off += uint64(len(s.data))
	}
	for _, s := range segs {
		buf.Write(s.data)
	}

	path := filepath.Join(t.TempDir(), "core")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCoreRead(t *testing.T) {
	path := writeCore(t,
		testSeg{vaddr: 0x400020, data: []byte{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7}, memsz: 8},
		testSeg{vaddr: 0x400000, data: bytes.Repeat([]byte{0x11}, 16), memsz: 32},
	)
	c, err := OpenCore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if got := len(c.Segments()); got != 2 || c.Segments()[0].Vaddr != 0x400000 {
		t.Fatalf("segments = %+v", c.Segments())
	}

	// Spans file bytes, the zero tail of the first segment, and the second.
	got, err := c.ReadBytes(0x40000c, 24)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append(bytes.Repeat([]byte{0x11}, 4), make([]byte, 16)...), 0xa0, 0xa1, 0xa2, 0xa3)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("read (-want +got):\n%s", diff)
	}

	r := NewReader(c, 8)
	if v, err := r.ReadU64(0x400020); err != nil || v != 0xa7a6a5a4a3a2a1a0 {
		t.Errorf("ReadU64 = 0x%x, %v", v, err)
	}
	if _, err := c.ReadBytes(0x400028, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("past end: got %v, want ErrOutOfRange", err)
	}
	if _, err := c.ReadBytes(0x3fffff, 2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("before start: got %v, want ErrOutOfRange", err)
	}
	if err := r.WriteU8(0x400000, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("write: got %v, want ErrReadOnly", err)
	}
}

func TestCoreRejectsNonELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw")
	if err := os.WriteFile(path, []byte("not an elf file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenCore(path); !errors.Is(err, ErrNotCore) {
		t.Errorf("got %v, want ErrNotCore", err)
	}
}
