package unreal

import (
	"fmt"

	"go.uber.org/zap"
)

// decodeArray reads a dynamic array property. The element decoding follows
// the inner field's kind:
//
//	ByteProperty           []byte
//	numeric                []T
//	StructProperty         []any of nested objects or intrinsic scalars
//	ObjectProperty         []any of *Object, nil, or Unsupported
//	ClassProperty          []any of *Class or nil
//	StrProperty            []string
//	NameProperty           []string
//
// Any other inner kind yields an Unsupported value instead of an error.
func decodeArray(e *Engine, f *Field, base uint64) (any, error) {
	if f.ArrayCount != 1 {
		return nil, fmt.Errorf("%w: fixed array of dynamic arrays %s", ErrNotSupported, f.Name)
	}
	inner := f.Inner
	if inner == nil {
		return nil, fmt.Errorf("%w: array %s has no inner field", ErrInvalidLayout, f.Name)
	}
	h, err := e.readArrayHeader(fieldAddr(f, base))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	n := int(h.Count)

	switch {
	case inner.Kind == KindByte:
		if h.Data == 0 {
			return []byte{}, nil
		}
		return e.r.ReadBytes(h.Data, n)

	case inner.Kind.IsNumeric():
		nc := numerics[inner.Kind]
		stride, err := elementStride(inner, nc.width())
		if err != nil {
			return nil, err
		}
		if h.Data == 0 {
			return nc.many(nil, 0, stride), nil
		}
		b, err := e.r.ReadBytes(h.Data, n*stride)
		if err != nil {
			return nil, err
		}
		return nc.many(b, n, stride), nil

	case inner.Kind == KindStruct:
		if h.Data == 0 {
			return []any{}, nil
		}
		if inner.Struct == nil {
			return nil, fmt.Errorf("%w: struct %s has no layout", ErrInvalidLayout, inner.Name)
		}
		out := make([]any, n)
		for i := range out {
			v, err := e.structAt(inner.Struct, h.Data+uint64(i)*uint64(inner.Size))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case inner.Kind == KindObject:
		ptrs, err := e.pointerArray(h)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(ptrs))
		for i, p := range ptrs {
			if p == 0 {
				continue
			}
			o, err := e.objectRef(p)
			if err != nil {
				e.log.Debug("array element unresolved",
					zap.String("field", f.Name), zap.Int("index", i), zap.Error(err))
				out[i] = Unsupported{Reason: fmt.Sprintf("*** UNRESOLVED OBJECT 0x%x ***", p)}
				continue
			}
			out[i] = o
		}
		return out, nil

	case inner.Kind == KindComponent:
		return Unsupported{Reason: "*** COMPONENT NOT IMPLEMENTED ***"}, nil

	case inner.Kind == KindClass:
		ptrs, err := e.pointerArray(h)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(ptrs))
		for i, p := range ptrs {
			if p == 0 {
				continue
			}
			c, err := e.resolveClass(p)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", f.Name, i, err)
			}
			out[i] = c
		}
		return out, nil

	case inner.Kind == KindStr:
		if h.Data == 0 {
			return []string{}, nil
		}
		size := e.headerSize()
		b, err := e.r.ReadBytes(h.Data, n*size)
		if err != nil {
			return nil, err
		}
		out := make([]string, n)
		for i := range out {
			s, err := e.stringOf(e.parseArrayHeader(b[i*size:]))
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil

	case inner.Kind == KindName:
		if h.Data == 0 {
			return []string{}, nil
		}
		b, err := e.r.ReadBytes(h.Data, n*nameSize)
		if err != nil {
			return nil, err
		}
		return e.namesOf(b, n)
	}

	return Unsupported{Reason: "*** ARRAY OF " + inner.kindName() + " NOT SUPPORTED ***"}, nil
}

// elementStride validates the inner field's declared size against the
// kind's width and returns the stride between elements.
func elementStride(inner *Field, width int) (int, error) {
	if int(inner.Size) < width {
		return 0, fmt.Errorf("%w: element %s is %d bytes, %s needs %d",
			ErrInvalidLayout, inner.Name, inner.Size, inner.Kind, width)
	}
	return int(inner.Size), nil
}

func (e *Engine) pointerArray(h arrayHeader) ([]uint64, error) {
	if h.Data == 0 || h.Count == 0 {
		return nil, nil
	}
	return e.r.ReadPointers(h.Data, int(h.Count))
}

// encodeArray overwrites elements of an existing dynamic array in place.
// The target array is never grown; the value may not be longer than it.
// Supported inner kinds are bytes, numerics, objects and classes.
func encodeArray(e *Engine, f *Field, base uint64, v any) error {
	if err := singular(f); err != nil {
		return err
	}
	inner := f.Inner
	if inner == nil {
		return fmt.Errorf("%w: array %s has no inner field", ErrInvalidLayout, f.Name)
	}
	h, err := e.readArrayHeader(fieldAddr(f, base))
	if err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}

	fits := func(n int) error {
		if n > int(h.Count) || (n > 0 && h.Data == 0) {
			return fmt.Errorf("%w: %s holds %d elements, value has %d", ErrNotSupported, f.Name, h.Count, n)
		}
		return nil
	}

	switch {
	case inner.Kind == KindByte:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("%w: %s wants []byte, got %T", ErrValueType, f.Name, v)
		}
		if err := fits(len(b)); err != nil {
			return err
		}
		return e.r.WriteBytes(h.Data, b)

	case inner.Kind.IsNumeric():
		nc := numerics[inner.Kind]
		stride, err := elementStride(inner, nc.width())
		if err != nil {
			return err
		}
		items, err := anySlice(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := fits(len(items)); err != nil {
			return err
		}
		for i, item := range items {
			b, err := nc.bytes(item)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", f.Name, i, err)
			}
			if err := e.r.WriteBytes(h.Data+uint64(i*stride), b); err != nil {
				return err
			}
		}
		return nil

	case inner.Kind == KindObject, inner.Kind == KindClass:
		items, err := anySlice(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := fits(len(items)); err != nil {
			return err
		}
		ptrs := make([]uint64, len(items))
		for i, item := range items {
			var declared *Class
			if inner.Kind == KindObject {
				declared = inner.PropertyClass
			}
			if ptrs[i], err = refAddress(inner, item, declared); err != nil {
				return fmt.Errorf("%s[%d]: %w", f.Name, i, err)
			}
		}
		if len(ptrs) == 0 {
			return nil
		}
		return e.r.WritePointers(h.Data, ptrs)
	}
	return fmt.Errorf("%w: writing array of %s", ErrNotSupported, inner.kindName())
}

// anySlice flattens the slice shapes Set accepts for array values.
func anySlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []*Object:
		out := make([]any, len(x))
		for i, o := range x {
			out[i] = o
		}
		return out, nil
	case []*Class:
		out := make([]any, len(x))
		for i, c := range x {
			out[i] = c
		}
		return out, nil
	case []int8:
		return toAny(x), nil
	case []int16:
		return toAny(x), nil
	case []uint16:
		return toAny(x), nil
	case []int32:
		return toAny(x), nil
	case []uint32:
		return toAny(x), nil
	case []int64:
		return toAny(x), nil
	case []uint64:
		return toAny(x), nil
	case []int:
		return toAny(x), nil
	case []float32:
		return toAny(x), nil
	case []float64:
		return toAny(x), nil
	}
	return nil, fmt.Errorf("%w: %T is not a supported slice", ErrValueType, v)
}

func toAny[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
