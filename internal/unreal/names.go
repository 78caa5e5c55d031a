package unreal

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"unreflect/internal/memory"
)

// Name is an interned string reference as stored in the target: an index
// into the name table plus an instance number. Number 0 means no suffix;
// Number n appends "_<n-1>".
type Name struct {
	ID     int32
	Number uint32
}

// nameSize is the in-memory width of a Name.
const nameSize = 8

func parseName(b []byte) Name {
	return Name{
		ID:     int32(binary.LittleEndian.Uint32(b)),
		Number: binary.LittleEndian.Uint32(b[4:]),
	}
}

func (n Name) bytes() []byte {
	b := make([]byte, nameSize)
	binary.LittleEndian.PutUint32(b, uint32(n.ID))
	binary.LittleEndian.PutUint32(b[4:], n.Number)
	return b
}

// nameTable resolves Names. Entry addresses are indexed once at
// construction; base strings are decoded on first use and kept.
type nameTable struct {
	r         *memory.Reader
	indexOff  uint64
	stringOff uint64
	perChunk  int
	chunks    [][]uint64
	cache     map[int32]string
}

// loadNameTable reads the name table header found through tablePtr and
// every chunk of entry addresses it lists.
//
// Header: chunk pointers [maxChunks], item count int32, chunk count int32.
func loadNameTable(r *memory.Reader, tablePtr uint64, indexOff, stringOff, perChunk, maxChunks int, log *zap.Logger) (*nameTable, error) {
	nt := &nameTable{
		r:         r,
		indexOff:  uint64(indexOff),
		stringOff: uint64(stringOff),
		perChunk:  perChunk,
		cache:     make(map[int32]string),
	}

	table, err := r.ReadPointer(tablePtr)
	if err != nil {
		return nil, fmt.Errorf("unreal: name table pointer: %w", err)
	}
	if table == 0 {
		return nil, fmt.Errorf("%w: name table pointer at 0x%x is null", ErrInvalidLayout, tablePtr)
	}
	chunkPtrs, err := r.ReadPointers(table, maxChunks)
	if err != nil {
		return nil, fmt.Errorf("unreal: name table chunks: %w", err)
	}
	counts := table + uint64(maxChunks*r.PointerSize())
	itemCount, err := r.ReadS32(counts)
	if err != nil {
		return nil, fmt.Errorf("unreal: name table item count: %w", err)
	}
	chunkCount, err := r.ReadS32(counts + 4)
	if err != nil {
		return nil, fmt.Errorf("unreal: name table chunk count: %w", err)
	}
	n := int(chunkCount)
	if n < 0 || n > maxChunks {
		log.Debug("name table chunk count clamped",
			zap.Int32("chunks", chunkCount), zap.Int("max", maxChunks))
		n = max(0, min(n, maxChunks))
	}

	nt.chunks = make([][]uint64, n)
	for i := 0; i < n; i++ {
		if chunkPtrs[i] == 0 {
			continue
		}
		entries, err := r.ReadPointers(chunkPtrs[i], perChunk)
		if err != nil {
			return nil, fmt.Errorf("unreal: name chunk %d: %w", i, err)
		}
		nt.chunks[i] = entries
	}
	log.Debug("name table indexed",
		zap.String("table", fmt.Sprintf("0x%x", table)),
		zap.Int32("items", itemCount),
		zap.Int("chunks", n))
	return nt, nil
}

// base returns the string for an interned id without suffix.
func (nt *nameTable) base(id int32) (string, error) {
	if s, ok := nt.cache[id]; ok {
		return s, nil
	}
	if id < 0 {
		return "", fmt.Errorf("%w: name id %d", ErrInvalidLayout, id)
	}
	chunk, slot := int(id)/nt.perChunk, int(id)%nt.perChunk
	if chunk >= len(nt.chunks) || nt.chunks[chunk] == nil {
		return "", fmt.Errorf("%w: name id %d outside table", ErrInvalidLayout, id)
	}
	entry := nt.chunks[chunk][slot]
	if entry == 0 {
		return "", fmt.Errorf("%w: name id %d has no entry", ErrInvalidLayout, id)
	}

	// The low bit of the entry's index word selects UTF-16.
	index, err := nt.r.ReadS32(entry + nt.indexOff)
	if err != nil {
		return "", fmt.Errorf("unreal: name %d: %w", id, err)
	}
	s, err := nt.r.ReadCString(entry+nt.stringOff, index&1 != 0)
	if err != nil {
		return "", fmt.Errorf("unreal: name %d: %w", id, err)
	}
	nt.cache[id] = s
	return s, nil
}

// resolve returns the display string for n.
func (nt *nameTable) resolve(n Name) (string, error) {
	s, err := nt.base(n.ID)
	if err != nil {
		return "", err
	}
	if n.Number != 0 {
		s += "_" + strconv.FormatUint(uint64(n.Number-1), 10)
	}
	return s, nil
}

// read decodes the Name stored at addr.
func (nt *nameTable) read(addr uint64) (string, error) {
	b, err := nt.r.ReadBytes(addr, nameSize)
	if err != nil {
		return "", err
	}
	return nt.resolve(parseName(b))
}

// lookup finds the Name whose resolved string is s among the names decoded
// so far. It does not scan the target's table. When several ids decode to
// the same string the lowest wins, and an exact match beats a numbered one.
func (nt *nameTable) lookup(s string) (Name, bool) {
	ids := slices.Sorted(maps.Keys(nt.cache))
	for _, id := range ids {
		if nt.cache[id] == s {
			return Name{ID: id}, true
		}
	}
	for _, id := range ids {
		rest, ok := strings.CutPrefix(s, nt.cache[id]+"_")
		if !ok {
			continue
		}
		if n, err := strconv.ParseUint(rest, 10, 32); err == nil && n < 1<<32-1 {
			return Name{ID: id, Number: uint32(n) + 1}, true
		}
	}
	return Name{}, false
}
