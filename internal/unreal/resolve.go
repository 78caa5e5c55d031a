package unreal

import (
	"fmt"

	"go.uber.org/zap"
)

func (e *Engine) ptrAt(addr uint64, off int) (uint64, error) {
	return e.r.ReadPointer(addr + uint64(off))
}

func (e *Engine) nameAt(addr uint64) (string, error) {
	return e.names.read(addr + uint64(e.off.ObjectName))
}

// path joins the names of addr and its outers, outermost first, with ".".
// The walk stops at a null outer or one that points back at addr.
func (e *Engine) path(addr uint64) (string, error) {
	if p, ok := e.paths[addr]; ok {
		return p, nil
	}
	p, err := e.nameAt(addr)
	if err != nil {
		return "", err
	}
	outer, err := e.ptrAt(addr, e.off.ObjectOuter)
	if err != nil {
		return "", err
	}
	for outer != 0 && outer != addr {
		name, err := e.nameAt(outer)
		if err != nil {
			return "", fmt.Errorf("unreal: outer 0x%x of 0x%x: %w", outer, addr, err)
		}
		p = name + "." + p
		if outer, err = e.ptrAt(outer, e.off.ObjectOuter); err != nil {
			return "", err
		}
	}
	e.paths[addr] = p
	return p, nil
}

// resolution tracks the outermost resolveClass or resolveField call.
// Descriptors are registered before they are complete, so when that call
// fails everything it registered is withdrawn again.
type resolution struct {
	depth  int
	mark   int      // len(classOrder) when the outermost call began
	fields []uint64 // fields registered since then
}

// enter opens a resolution step. The returned func must be deferred with
// the step's named error.
func (e *Engine) enter() func(*error) {
	rs := &e.resolving
	if rs.depth == 0 {
		rs.mark = len(e.classOrder)
		rs.fields = rs.fields[:0]
	}
	rs.depth++
	return func(errp *error) {
		rs.depth--
		if rs.depth > 0 || *errp == nil {
			return
		}
		for _, c := range e.classOrder[rs.mark:] {
			delete(e.classes, c.Address)
		}
		clear(e.classOrder[rs.mark:])
		e.classOrder = e.classOrder[:rs.mark]
		for _, a := range rs.fields {
			delete(e.fields, a)
		}
		e.log.Debug("resolution withdrawn", zap.Error(*errp))
	}
}

// resolveClass returns the descriptor at addr, building it on first use.
// The descriptor is registered before its metaclass, super and fields are
// resolved, since any of those may lead back to addr.
func (e *Engine) resolveClass(addr uint64) (_ *Class, err error) {
	if c, ok := e.classes[addr]; ok {
		return c, nil
	}
	defer e.enter()(&err)

	c := &Class{Address: addr}
	e.classes[addr] = c
	e.classOrder = append(e.classOrder, c)

	if c.VTable, err = e.r.ReadPointer(addr); err != nil {
		return nil, fmt.Errorf("unreal: class 0x%x: %w", addr, err)
	}
	if c.Name, err = e.nameAt(addr); err != nil {
		return nil, fmt.Errorf("unreal: class 0x%x name: %w", addr, err)
	}
	if c.Path, err = e.path(addr); err != nil {
		return nil, fmt.Errorf("unreal: class 0x%x path: %w", addr, err)
	}

	super, err := e.ptrAt(addr, e.off.StructSuperStruct)
	if err != nil {
		return nil, fmt.Errorf("unreal: class %s super: %w", c.Path, err)
	}
	if super != 0 && super != addr {
		if c.Super, err = e.resolveClass(super); err != nil {
			return nil, err
		}
	}

	meta, err := e.ptrAt(addr, e.off.ObjectClass)
	if err != nil {
		return nil, fmt.Errorf("unreal: class %s metaclass: %w", c.Path, err)
	}
	if meta != 0 && meta != addr {
		if c.Class, err = e.resolveClass(meta); err != nil {
			return nil, err
		}
	}

	child, err := e.ptrAt(addr, e.off.StructChildren)
	if err != nil {
		return nil, fmt.Errorf("unreal: class %s children: %w", c.Path, err)
	}
	for child != 0 {
		f, err := e.resolveField(child)
		if err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, f)
		if child, err = e.ptrAt(child, e.off.FieldNext); err != nil {
			return nil, fmt.Errorf("unreal: class %s field list: %w", c.Path, err)
		}
	}

	if c.DefaultObject, err = e.ptrAt(addr, e.off.ClassDefaultObject); err != nil {
		return nil, fmt.Errorf("unreal: class %s default object: %w", c.Path, err)
	}
	e.log.Debug("class resolved",
		zap.String("path", c.Path),
		zap.Int("fields", len(c.Fields)))
	return c, nil
}

// resolveField returns the field descriptor at addr. Its kind is taken
// from the path of the field's own class and selects both the extra state
// read here and the codec used for instance values.
func (e *Engine) resolveField(addr uint64) (_ *Field, err error) {
	if f, ok := e.fields[addr]; ok {
		return f, nil
	}
	defer e.enter()(&err)

	var kindClass *Class
	meta, err := e.ptrAt(addr, e.off.ObjectClass)
	if err != nil {
		return nil, fmt.Errorf("unreal: field 0x%x: %w", addr, err)
	}
	if meta != 0 && meta != addr {
		if kindClass, err = e.resolveClass(meta); err != nil {
			return nil, err
		}
	}
	// Resolving the kind class may have resolved this field too.
	if f, ok := e.fields[addr]; ok {
		return f, nil
	}

	name, err := e.nameAt(addr)
	if err != nil {
		return nil, fmt.Errorf("unreal: field 0x%x name: %w", addr, err)
	}
	if kindClass == nil {
		return nil, &KindError{Address: addr}
	}
	kind, ok := e.kinds[kindClass.Path]
	if !ok {
		return nil, &KindError{Address: addr, Path: kindClass.Path}
	}

	f := &Field{
		Address: addr,
		Name:    name,
		Class:   kindClass,
		Kind:    kind,
		codec:   codecFor(kind),
	}
	e.fields[addr] = f
	e.resolving.fields = append(e.resolving.fields, addr)

	if err := e.resolveFieldExtra(f); err != nil {
		return nil, fmt.Errorf("unreal: field %s (%s): %w", name, kindClass.Name, err)
	}

	if f.VTable, err = e.r.ReadPointer(addr); err != nil {
		return nil, err
	}
	if kind.IsProperty() {
		if f.ArrayCount, err = e.r.ReadS32(addr + uint64(e.off.PropertyArrayCount)); err != nil {
			return nil, err
		}
		if f.Size, err = e.r.ReadS32(addr + uint64(e.off.PropertySize)); err != nil {
			return nil, err
		}
		if f.Offset, err = e.r.ReadS32(addr + uint64(e.off.PropertyOffset)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// resolveFieldExtra reads the kind-specific state of f.
func (e *Engine) resolveFieldExtra(f *Field) error {
	addr := f.Address
	var err error
	switch f.Kind {
	case KindEnum:
		if f.TypeName, err = e.readString(addr + uint64(e.off.EnumTypeName)); err != nil {
			return err
		}
		f.Values, err = e.readEnumEntries(addr + uint64(e.off.EnumValueNames))
		return err

	case KindObject:
		f.PropertyClass, err = e.classAt(addr, e.off.ObjectPropertyPropertyClass)
		return err

	case KindStruct:
		f.Struct, err = e.classAt(addr, e.off.StructPropertyStruct)
		return err

	case KindArray:
		f.Inner, err = e.fieldAt(addr, e.off.ArrayPropertyInner)
		return err

	case KindEnumProperty:
		if f.Underlying, err = e.fieldAt(addr, e.off.EnumPropertyUnderlying); err != nil {
			return err
		}
		f.Enum, err = e.fieldAt(addr, e.off.EnumPropertyEnum)
		return err

	case KindBool:
		if f.Bool.FieldSize, err = e.r.ReadU8(addr + uint64(e.off.BoolPropertyFieldSize)); err != nil {
			return err
		}
		if f.Bool.ByteOffset, err = e.r.ReadU8(addr + uint64(e.off.BoolPropertyByteOffset)); err != nil {
			return err
		}
		if f.Bool.ByteMask, err = e.r.ReadU8(addr + uint64(e.off.BoolPropertyByteMask)); err != nil {
			return err
		}
		f.Bool.FieldMask, err = e.r.ReadU8(addr + uint64(e.off.BoolPropertyFieldMask))
		return err
	}
	return nil
}

// classAt resolves the class pointed to from addr+off; null yields nil.
func (e *Engine) classAt(addr uint64, off int) (*Class, error) {
	p, err := e.ptrAt(addr, off)
	if err != nil || p == 0 {
		return nil, err
	}
	return e.resolveClass(p)
}

// fieldAt resolves the field pointed to from addr+off; null yields nil.
func (e *Engine) fieldAt(addr uint64, off int) (*Field, error) {
	p, err := e.ptrAt(addr, off)
	if err != nil || p == 0 {
		return nil, err
	}
	return e.resolveField(p)
}

// readEnumEntries decodes a dynamic array of (Name, int64) pairs.
func (e *Engine) readEnumEntries(addr uint64) ([]EnumEntry, error) {
	const pairSize = nameSize + 8
	h, err := e.readArrayHeader(addr)
	if err != nil || h.Data == 0 || h.Count == 0 {
		return nil, err
	}
	b, err := e.r.ReadBytes(h.Data, int(h.Count)*pairSize)
	if err != nil {
		return nil, err
	}
	out := make([]EnumEntry, h.Count)
	for i := range out {
		item := b[i*pairSize:]
		name, err := e.names.resolve(parseName(item))
		if err != nil {
			return nil, err
		}
		out[i] = EnumEntry{Name: name, Value: int64(leU64(item[nameSize:]))}
	}
	return out, nil
}
