package unreal

import (
	"fmt"

	"go.uber.org/zap"
)

// Object table header, at the configured object table address:
//
//	chunks      pointer to an array of chunk pointers
//	unknown     pointer
//	maxItems    int32
//	items       int32
//	maxChunks   int32
//	chunkCount  int32
//
// Each chunk holds ObjectItemsPerChunk items of {object pointer, 4×int32}.
const objectItemTail = 16

// discover enumerates live object addresses, then appends the default
// object of each one's class. Nulls are dropped and duplicates collapse to
// their first occurrence.
func (e *Engine) discover() ([]uint64, error) {
	ptr := e.r.PointerSize()
	table := uint64(e.cfg.GlobalObjectArrayAddress)
	hdr, err := e.r.ReadBytes(table, 2*ptr+16)
	if err != nil {
		return nil, fmt.Errorf("unreal: object table: %w", err)
	}
	chunkArray := e.r.Pointer(hdr)
	counts := hdr[2*ptr:]
	itemCount := int32(le.Uint32(counts[4:]))
	maxChunks := int32(le.Uint32(counts[8:]))
	chunkCount := int32(le.Uint32(counts[12:]))
	if chunkCount < 0 {
		return nil, fmt.Errorf("%w: object table chunk count %d", ErrInvalidLayout, chunkCount)
	}
	if maxChunks > 0 && chunkCount > maxChunks {
		chunkCount = maxChunks
	}
	e.log.Debug("object table",
		zap.Int32("items", itemCount),
		zap.Int32("chunks", chunkCount))

	var chunks []uint64
	if chunkCount > 0 {
		if chunkArray == 0 {
			return nil, fmt.Errorf("%w: object table has %d chunks but no chunk array", ErrInvalidLayout, chunkCount)
		}
		if chunks, err = e.r.ReadPointers(chunkArray, int(chunkCount)); err != nil {
			return nil, fmt.Errorf("unreal: object chunks: %w", err)
		}
	}

	perChunk := e.cfg.ObjectItemsPerChunk
	itemSize := ptr + objectItemTail
	var live []uint64
	for i, chunk := range chunks {
		if chunk == 0 {
			continue
		}
		b, err := e.r.ReadBytes(chunk, perChunk*itemSize)
		if err != nil {
			return nil, fmt.Errorf("unreal: object chunk %d: %w", i, err)
		}
		for j := 0; j < perChunk; j++ {
			if p := e.r.Pointer(b[j*itemSize:]); p != 0 {
				live = append(live, p)
			}
		}
	}

	var defaults []uint64
	for _, addr := range live {
		class, err := e.ptrAt(addr, e.off.ObjectClass)
		if err != nil {
			return nil, fmt.Errorf("unreal: object 0x%x class: %w", addr, err)
		}
		if class == 0 {
			return nil, fmt.Errorf("%w: object 0x%x has no class", ErrInvalidLayout, addr)
		}
		cdo, err := e.ptrAt(class, e.off.ClassDefaultObject)
		if err != nil {
			return nil, fmt.Errorf("unreal: class 0x%x default object: %w", class, err)
		}
		if cdo != 0 {
			defaults = append(defaults, cdo)
		}
	}

	addrs := dedup(append(live, defaults...))
	e.log.Debug("objects discovered",
		zap.Int("live", len(live)),
		zap.Int("defaults", len(defaults)),
		zap.Int("unique", len(addrs)))
	return addrs, nil
}

// dedup keeps the first occurrence of each address.
func dedup(addrs []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(addrs))
	out := addrs[:0]
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// addObject builds the instance wrapper for addr, resolving its class
// graph on the way.
func (e *Engine) addObject(addr uint64) (*Object, error) {
	if o, ok := e.objects[addr]; ok {
		return o, nil
	}
	name, err := e.nameAt(addr)
	if err != nil {
		return nil, fmt.Errorf("unreal: object 0x%x name: %w", addr, err)
	}
	path, err := e.path(addr)
	if err != nil {
		return nil, fmt.Errorf("unreal: object 0x%x path: %w", addr, err)
	}
	classPtr, err := e.ptrAt(addr, e.off.ObjectClass)
	if err != nil {
		return nil, fmt.Errorf("unreal: object %s class: %w", path, err)
	}
	if classPtr == 0 {
		return nil, fmt.Errorf("%w: object %s has no class", ErrInvalidLayout, path)
	}
	class, err := e.resolveClass(classPtr)
	if err != nil {
		return nil, fmt.Errorf("unreal: object %s: %w", path, err)
	}
	o := &Object{
		Address: addr,
		Class:   class,
		Name:    name,
		Path:    path,
		e:       e,
		values:  make(map[string]any),
	}
	e.objects[addr] = o
	e.objectOrder = append(e.objectOrder, o)
	return o, nil
}
