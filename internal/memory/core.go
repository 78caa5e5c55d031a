package memory

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Segment is one PT_LOAD mapping of a core file.
type Segment struct {
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
	Offset uint64
	Flags  elf.ProgFlag
}

// Core reads a target address space out of an ELF core dump (or any ELF
// file) through its PT_LOAD segments. The part of a segment past Filesz
// reads as zeros. Cores are read-only.
type Core struct {
	f    *os.File
	ef   *elf.File
	size int64
	segs []Segment
}

// OpenCore opens an ELF file and indexes its loadable segments.
func OpenCore(path string) (*Core, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory: open core: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("memory: stat core: %w", err)
	}
	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotCore, err)
	}
	if ef.Data != elf.ELFDATA2LSB {
		ef.Close()
		f.Close()
		return nil, fmt.Errorf("%w: big-endian", ErrNotCore)
	}

	c := &Core{f: f, ef: ef, size: info.Size()}
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		c.segs = append(c.segs, Segment{
			Vaddr:  p.Vaddr,
			Memsz:  p.Memsz,
			Filesz: p.Filesz,
			Offset: p.Off,
			Flags:  p.Flags,
		})
	}
	if len(c.segs) == 0 {
		c.Close()
		return nil, fmt.Errorf("%w: no PT_LOAD segments", ErrNotCore)
	}
	sort.Slice(c.segs, func(i, j int) bool { return c.segs[i].Vaddr < c.segs[j].Vaddr })
	return c, nil
}

// Segments returns the loadable segments in address order.
func (c *Core) Segments() []Segment { return c.segs }

// Machine reports the ELF machine, e.g. EM_X86_64.
func (c *Core) Machine() elf.Machine { return c.ef.Machine }

func (c *Core) segment(addr uint64) (Segment, bool) {
	i := sort.Search(len(c.segs), func(i int) bool {
		s := c.segs[i]
		return s.Vaddr+s.Memsz > addr
	})
	if i < len(c.segs) && c.segs[i].Vaddr <= addr {
		return c.segs[i], true
	}
	return Segment{}, false
}

// ReadBytes reads n bytes at addr. The range may span adjacent segments
// but not a gap between them.
func (c *Core) ReadBytes(addr uint64, n int) ([]byte, error) {
	out := make([]byte, n)
	for done := 0; done < n; {
		va := addr + uint64(done)
		s, ok := c.segment(va)
		if !ok {
			return nil, fmt.Errorf("%w: 0x%x not in any segment", ErrOutOfRange, va)
		}
		rel := va - s.Vaddr
		chunk := min(uint64(n-done), s.Memsz-rel)
		if rel < s.Filesz {
			fileChunk := min(chunk, s.Filesz-rel)
			off := int64(s.Offset + rel)
			if off+int64(fileChunk) > c.size {
				return nil, fmt.Errorf("%w: segment at 0x%x truncated in file", ErrShortRead, s.Vaddr)
			}
			if _, err := c.f.ReadAt(out[done:done+int(fileChunk)], off); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("memory: read core at 0x%x: %w", off, err)
			}
		}
		done += int(chunk)
	}
	return out, nil
}

func (c *Core) WriteBytes(addr uint64, data []byte) error {
	return fmt.Errorf("%w: core 0x%x+%d", ErrReadOnly, addr, len(data))
}

// Close releases the file.
func (c *Core) Close() error {
	err := c.ef.Close()
	if cerr := c.f.Close(); err == nil {
		err = cerr
	}
	return err
}
