package unreal

import "testing"

// world is a small game-like target: an Actor class with one property of
// most kinds, a Pawn subclass that shadows one of them, and a few
// instances under Maps.Level.
type world struct {
	*fixture

	enginePkg, mapsPkg, corePkg                        uint64
	object, actor, pawn, level, vector, pointer, eMode uint64

	levelObj, hero, villain, stranger, actorCDO uint64

	bHidden uint64 // BoolProperty descriptor
}

const instanceSize = 0x120

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{fixture: newFixture(t)}
	f := w.fixture

	w.enginePkg = f.newPackage("/Script/Engine")
	w.mapsPkg = f.newPackage("Maps")
	w.corePkg = f.newPackage("Core")

	w.object = f.class("Object", f.pkg, 0)
	w.actor = f.class("Actor", w.enginePkg, w.object)
	w.pawn = f.class("Pawn", w.enginePkg, w.actor)
	w.level = f.class("Level", w.enginePkg, w.object)

	w.vector = f.class("Vector", f.pkg, 0)
	f.prop(w.vector, "FloatProperty", "X", 0, 4)
	f.prop(w.vector, "FloatProperty", "Y", 4, 4)
	f.prop(w.vector, "FloatProperty", "Z", 8, 4)
	w.pointer = f.class("Pointer", f.class("Object", w.corePkg, 0), 0)

	w.eMode = f.newObject(objectSize, f.kind("Enum"), "EMode", w.enginePkg)
	f.str(w.eMode+0x30, "EMode")
	values := f.alloc(3 * 16)
	for i, e := range []EnumEntry{{"EMode::Idle", 0}, {"EMode::Run", 1}, {"EMode::Fly", 5}} {
		f.name(values+uint64(i*16), e.Name, 0)
		f.u64(values+uint64(i*16)+8, uint64(e.Value))
	}
	f.array(w.eMode+0x40, values, 3)

	a := w.actor
	f.prop(a, "IntProperty", "Health", 0x30, 4)
	f.prop(a, "FloatProperty", "Speed", 0x34, 4)
	w.bHidden = f.prop(a, "BoolProperty", "bHidden", 0x38, 1)
	f.u8(w.bHidden+0x40, 1)
	f.u8(w.bHidden+0x41, 0)
	f.u8(w.bHidden+0x42, 0x04)
	f.u8(w.bHidden+0x43, 0x04)
	f.prop(a, "StrProperty", "Label", 0x40, 16)
	f.prop(a, "NameProperty", "Tag", 0x50, 8)
	owner := f.prop(a, "ObjectProperty", "Owner", 0x58, 8)
	f.ptr(owner+0x40, w.actor)
	w.arrayProp(a, "Children", 0x60, "ObjectProperty", 8, func(inner uint64) { f.ptr(inner+0x40, w.actor) })
	loc := f.prop(a, "StructProperty", "Location", 0x70, 12)
	f.ptr(loc+0x40, w.vector)
	w.arrayProp(a, "Scores", 0x80, "IntProperty", 4, nil)
	mode := f.prop(a, "EnumProperty", "Mode", 0x90, 1)
	f.ptr(mode+0x40, f.field("ByteProperty", "UnderlyingType", 0, 1, 1))
	f.ptr(mode+0x48, w.eMode)
	f.prop(a, "DelegateProperty", "OnDeath", 0x98, 16)
	f.link(a, f.field("UInt16Property", "Ids", 0xa8, 2, 3))
	f.prop(a, "ClassProperty", "Spawns", 0xb0, 8)
	w.arrayProp(a, "Names", 0xb8, "NameProperty", 8, nil)
	w.arrayProp(a, "Labels", 0xc8, "StrProperty", 16, nil)
	handle := f.prop(a, "StructProperty", "Handle", 0xd8, 8)
	f.ptr(handle+0x40, w.pointer)
	w.arrayProp(a, "Blob", 0xe0, "ByteProperty", 1, nil)
	w.arrayProp(a, "Things", 0xf0, "MapProperty", 80, nil)
	f.link(a, f.newObject(objectSize, f.kind("Function"), "Jump", 0))

	f.prop(w.pawn, "IntProperty", "Health", 0x100, 4)
	f.prop(w.pawn, "Int64Property", "Score", 0x108, 8)
	f.prop(w.pawn, "DoubleProperty", "Coins", 0x110, 8)

	w.levelObj = f.instance(w.level, "Level", w.mapsPkg, instanceSize)
	w.hero = f.instance(w.pawn, "Hero", w.levelObj, instanceSize)
	w.villain = f.instance(w.actor, "Villain", w.levelObj, instanceSize)
	w.stranger = f.instance(w.actor, "Stranger", w.levelObj, instanceSize)
	w.actorCDO = f.instance(w.actor, "Default__Actor", w.enginePkg, instanceSize)
	f.ptr(w.actor+0x40, w.actorCDO)

	h := w.hero
	f.s32(h+0x30, 50)
	f.f32(h+0x34, 1.5)
	f.str(h+0x40, "Hero Name")
	f.name(h+0x50, "Player", 2)
	f.ptr(h+0x58, w.villain)
	w.pointers(h+0x60, 0, w.villain)
	f.f32(h+0x70, 1)
	f.f32(h+0x74, 2)
	f.f32(h+0x78, 3)
	scores := f.alloc(12)
	f.s32(scores, 10)
	f.s32(scores+4, 20)
	f.s32(scores+8, 30)
	f.array(h+0x80, scores, 3)
	f.u8(h+0x90, 1)
	f.bytes(h+0xa8, []byte{7, 0, 8, 0, 9, 0})
	f.ptr(h+0xb0, w.actor)
	names := f.alloc(16)
	f.name(names, "Alpha", 0)
	f.name(names+8, "Beta", 1)
	f.array(h+0xb8, names, 2)
	labels := f.alloc(32)
	f.str(labels, "one")
	f.str(labels+16, "two")
	f.array(h+0xc8, labels, 2)
	f.u64(h+0xd8, 0xdeadbeef)
	blob := f.alloc(4)
	f.bytes(blob, []byte{1, 2, 3, 4})
	f.array(h+0xe0, blob, 4)
	f.array(h+0xf0, f.alloc(80), 1)
	f.s32(h+0x100, 75)
	f.u64(h+0x108, uint64(0xfffffffffffffffb)) // -5
	f.must(f.r.WriteF64(h+0x110, 2.5))

	v := w.villain
	f.s32(v+0x30, 100)
	f.ptr(v+0x58, w.stranger)
	w.pointers(v+0x60, w.stranger)

	f.live(w.mapsPkg, w.levelObj, w.hero, w.villain)
	return w
}

// arrayProp links an ArrayProperty to owner with an inner field of the
// given kind. setup, if set, fills in the inner field.
func (w *world) arrayProp(owner uint64, name string, offset int32, inner string, innerSize int32, setup func(uint64)) uint64 {
	arr := w.prop(owner, "ArrayProperty", name, offset, 16)
	in := w.field(inner, name, 0, innerSize, 1)
	if setup != nil {
		setup(in)
	}
	w.ptr(arr+0x40, in)
	return arr
}

// pointers writes a dynamic array of pointers at addr.
func (w *world) pointers(addr uint64, ptrs ...uint64) {
	data := w.alloc(len(ptrs) * 8)
	w.must(w.r.WritePointers(data, ptrs))
	w.array(addr, data, int32(len(ptrs)))
}
