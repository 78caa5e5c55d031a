package unreal

import (
	"fmt"
	"testing"

	"unreflect/internal/layout"
	"unreflect/internal/memory"
)

// The fixture lays out a synthetic target inside a memory.Image: a name
// table, an object table, and whatever classes, fields and instances a
// test declares. Offsets follow a 64-bit build.
const (
	fixtureBase = 0x10000
	fixtureSize = 1 << 20

	namesPerChunk   = 16
	nameChunks      = 8
	objectsPerChunk = 4

	objectSize = 0x50 // room for every descriptor member below
)

var fixtureOffsets = layout.Offsets{
	ObjectClass:                 0x10,
	ObjectName:                  0x18,
	ObjectOuter:                 0x20,
	FieldNext:                   0x28,
	StructSuperStruct:           0x30,
	StructChildren:              0x38,
	ClassDefaultObject:          0x40,
	PropertyArrayCount:          0x30,
	PropertySize:                0x34,
	PropertyOffset:              0x38,
	EnumTypeName:                0x30,
	EnumValueNames:              0x40,
	ArrayPropertyInner:          0x40,
	ObjectPropertyPropertyClass: 0x40,
	StructPropertyStruct:        0x40,
	EnumPropertyUnderlying:      0x40,
	EnumPropertyEnum:            0x48,
	BoolPropertyFieldSize:       0x40,
	BoolPropertyByteOffset:      0x41,
	BoolPropertyByteMask:        0x42,
	BoolPropertyFieldMask:       0x43,
}

type fixture struct {
	t   *testing.T
	img *memory.Image
	r   *memory.Reader
	cfg layout.Config

	next      uint64
	nameTable uint64
	nameIDs   map[string]int32
	vtables   uint64

	// table is the object table contents, in order. Zero entries are
	// written as empty slots.
	table []uint64

	pkg        uint64 // /Script/CoreUObject
	classClass uint64 // /Script/CoreUObject.Class
	kinds      map[string]uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	img := memory.NewImage(fixtureBase, fixtureSize)
	f := &fixture{
		t:       t,
		img:     img,
		r:       memory.NewReader(img, 8),
		next:    fixtureBase + 0x100,
		nameIDs: make(map[string]int32),
		kinds:   make(map[string]uint64),
	}
	f.cfg = layout.Config{
		BaseAddress:              fixtureBase,
		GlobalNameArrayAddress:   fixtureBase,
		GlobalObjectArrayAddress: fixtureBase + 0x40,
		NameEntryIndexOffset:     0,
		NameEntryStringOffset:    8,
		PointerSize:              8,
		NameItemsPerChunk:        namesPerChunk,
		NameMaxChunks:            nameChunks,
		ObjectItemsPerChunk:      objectsPerChunk,
		Offsets:                  fixtureOffsets,
	}
	f.nameTable = f.alloc(nameChunks*8 + 8)
	f.ptr(fixtureBase, f.nameTable)

	// The kind package and the root Class, whose class is itself.
	f.pkg = f.newObject(objectSize, 0, "/Script/CoreUObject", 0)
	f.classClass = f.newObject(objectSize, 0, "Class", f.pkg)
	f.ptr(f.classClass+0x10, f.classClass)
	return f
}

func (f *fixture) alloc(n int) uint64 {
	f.t.Helper()
	addr := f.next
	f.next += (uint64(n) + 15) &^ 15
	if f.next > fixtureBase+fixtureSize {
		f.t.Fatalf("fixture image exhausted")
	}
	return addr
}

func (f *fixture) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) ptr(addr, v uint64)          { f.must(f.r.WritePointer(addr, v)) }
func (f *fixture) u8(addr uint64, v uint8)     { f.must(f.r.WriteU8(addr, v)) }
func (f *fixture) u32(addr uint64, v uint32)   { f.must(f.r.WriteU32(addr, v)) }
func (f *fixture) u64(addr uint64, v uint64)   { f.must(f.r.WriteU64(addr, v)) }
func (f *fixture) s32(addr uint64, v int32)    { f.u32(addr, uint32(v)) }
func (f *fixture) f32(addr uint64, v float32)  { f.must(f.r.WriteF32(addr, v)) }
func (f *fixture) bytes(addr uint64, b []byte) { f.must(f.r.WriteBytes(addr, b)) }

func (f *fixture) readU8(addr uint64) uint8 {
	f.t.Helper()
	v, err := f.r.ReadU8(addr)
	f.must(err)
	return v
}

func (f *fixture) readS32(addr uint64) int32 {
	f.t.Helper()
	v, err := f.r.ReadS32(addr)
	f.must(err)
	return v
}

func (f *fixture) readPtr(addr uint64) uint64 {
	f.t.Helper()
	v, err := f.r.ReadPointer(addr)
	f.must(err)
	return v
}

// intern registers s in the name table and returns its id.
func (f *fixture) intern(s string, wide bool) int32 {
	f.t.Helper()
	if id, ok := f.nameIDs[s]; ok {
		return id
	}
	id := int32(len(f.nameIDs))
	chunk := uint64(id) / namesPerChunk
	if chunk >= nameChunks {
		f.t.Fatalf("fixture name table full")
	}
	slot := f.nameTable + chunk*8
	entries := f.readPtr(slot)
	if entries == 0 {
		entries = f.alloc(namesPerChunk * 8)
		f.ptr(slot, entries)
		f.s32(f.nameTable+nameChunks*8+4, int32(chunk)+1)
	}
	text, err := memory.EncodeText(s, wide)
	f.must(err)
	entry := f.alloc(8 + len(text) + 2)
	index := id << 1
	if wide {
		index |= 1
	}
	f.s32(entry, index)
	f.bytes(entry+8, text)
	f.ptr(entries+uint64(id%namesPerChunk)*8, entry)
	f.s32(f.nameTable+nameChunks*8, id+1)
	f.nameIDs[s] = id
	return id
}

func (f *fixture) name(addr uint64, s string, number uint32) {
	f.t.Helper()
	f.bytes(addr, Name{ID: f.intern(s, false), Number: number}.bytes())
}

// newObject writes the common object header.
func (f *fixture) newObject(size int, class uint64, name string, outer uint64) uint64 {
	f.t.Helper()
	addr := f.alloc(size)
	f.vtables += 0x10
	f.ptr(addr, 0x7f0000000000+f.vtables)
	f.ptr(addr+0x10, class)
	f.name(addr+0x18, name, 0)
	f.ptr(addr+0x20, outer)
	return addr
}

func (f *fixture) newPackage(name string) uint64 {
	return f.newObject(objectSize, f.class("Package", f.pkg, 0), name, 0)
}

// class returns the class named name under outer, creating it on first
// use.
func (f *fixture) class(name string, outer, super uint64) uint64 {
	f.t.Helper()
	key := fmt.Sprintf("%x/%s", outer, name)
	if addr, ok := f.kinds[key]; ok {
		return addr
	}
	addr := f.newObject(objectSize, f.classClass, name, outer)
	f.ptr(addr+0x30, super)
	f.kinds[key] = addr
	return addr
}

// kind returns the kind class /Script/CoreUObject.<name>.
func (f *fixture) kind(name string) uint64 {
	return f.class(name, f.pkg, 0)
}

// field creates an unlinked property of the given kind.
func (f *fixture) field(kind, name string, offset, size, count int32) uint64 {
	f.t.Helper()
	addr := f.newObject(objectSize, f.kind(kind), name, 0)
	f.s32(addr+0x30, count)
	f.s32(addr+0x34, size)
	f.s32(addr+0x38, offset)
	return addr
}

// link appends field to owner's field list.
func (f *fixture) link(owner, field uint64) uint64 {
	f.t.Helper()
	f.ptr(field+0x20, owner)
	at := owner + 0x38
	for p := f.readPtr(at); p != 0; p = f.readPtr(at) {
		at = p + 0x28
	}
	f.ptr(at, field)
	return field
}

func (f *fixture) prop(owner uint64, kind, name string, offset, size int32) uint64 {
	return f.link(owner, f.field(kind, name, offset, size, 1))
}

// array writes a dynamic array header at addr.
func (f *fixture) array(addr, data uint64, count int32) {
	f.ptr(addr, data)
	f.s32(addr+8, count)
	f.s32(addr+12, count)
}

// str writes a string header at addr pointing at fresh UTF-16 data.
func (f *fixture) str(addr uint64, s string) {
	f.t.Helper()
	if s == "" {
		f.array(addr, 0, 0)
		return
	}
	text, err := memory.EncodeText(s, true)
	f.must(err)
	data := f.alloc(len(text) + 2)
	f.bytes(data, text)
	f.array(addr, data, int32(len(text)/2+1))
}

// instance allocates an object of class under outer.
func (f *fixture) instance(class uint64, name string, outer uint64, size int) uint64 {
	return f.newObject(size, class, name, outer)
}

// live appends addresses to the object table.
func (f *fixture) live(addrs ...uint64) {
	f.table = append(f.table, addrs...)
}

// writeTable lays the object table out in chunks.
func (f *fixture) writeTable() {
	f.t.Helper()
	const itemSize = 8 + objectItemTail
	n := (len(f.table) + objectsPerChunk - 1) / objectsPerChunk
	chunks := f.alloc(max(n, 1) * 8)
	for i := 0; i < n; i++ {
		chunk := f.alloc(objectsPerChunk * itemSize)
		for j := 0; j < objectsPerChunk && i*objectsPerChunk+j < len(f.table); j++ {
			f.ptr(chunk+uint64(j*itemSize), f.table[i*objectsPerChunk+j])
		}
		f.ptr(chunks+uint64(i*8), chunk)
	}
	hdr := uint64(f.cfg.GlobalObjectArrayAddress)
	f.ptr(hdr, chunks)
	f.ptr(hdr+8, 0)
	f.s32(hdr+16, int32(n*objectsPerChunk))
	f.s32(hdr+20, int32(len(f.table)))
	f.s32(hdr+24, int32(n))
	f.s32(hdr+28, int32(n))
}

func (f *fixture) build() (*Engine, error) {
	f.t.Helper()
	f.writeTable()
	return New(f.cfg, f.img, Options{})
}

func (f *fixture) engine() *Engine {
	f.t.Helper()
	e, err := f.build()
	if err != nil {
		f.t.Fatal(err)
	}
	return e
}
