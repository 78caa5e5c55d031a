package unreal

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Intrinsic struct paths decoded as plain scalars rather than as nested
// objects.
const (
	StructPointer = "Core.Object.Pointer"
	StructQWord   = "Core.Object.QWord"
	StructDouble  = "Core.Object.Double"
)

func leU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// codecFor picks the decode/encode pair for a kind. Kinds without an
// instance value get a zero codec.
func codecFor(k Kind) codec {
	if k.IsNumeric() {
		n := numerics[k]
		return codec{decode: n.decodeProperty, encode: n.encodeProperty}
	}
	switch k {
	case KindBool:
		return codec{decode: decodeBool, encode: encodeBool}
	case KindStr:
		return codec{decode: decodeStr}
	case KindName:
		return codec{decode: decodeName, encode: encodeName}
	case KindObject:
		return codec{decode: decodeObjectRef, encode: encodeObjectRef}
	case KindClass:
		return codec{decode: decodeClassRef, encode: encodeClassRef}
	case KindStruct:
		return codec{decode: decodeStruct, encode: encodeStruct}
	case KindArray:
		return codec{decode: decodeArray, encode: encodeArray}
	case KindEnumProperty:
		return codec{decode: decodeEnum, encode: encodeEnum}
	}
	return codec{}
}

// fieldAddr is where f's storage begins inside the instance at base.
func fieldAddr(f *Field, base uint64) uint64 {
	return base + uint64(int64(f.Offset))
}

// checkCount rejects zero-length fixed arrays.
func checkCount(f *Field) error {
	if f.ArrayCount <= 0 {
		return fmt.Errorf("%w: %s has array count %d", ErrInvalidLayout, f.Name, f.ArrayCount)
	}
	return nil
}

// singular rejects writes to fixed arrays.
func singular(f *Field) error {
	if err := checkCount(f); err != nil {
		return err
	}
	if f.ArrayCount != 1 {
		return fmt.Errorf("%w: writing %s with array count %d", ErrNotSupported, f.Name, f.ArrayCount)
	}
	return nil
}

// Numeric kinds.

type scalar interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// numericCodec is the kind-erased face of numeric[T].
type numericCodec interface {
	width() int
	// many decodes count values spaced stride bytes apart.
	many(b []byte, count, stride int) any
	decodeProperty(e *Engine, f *Field, base uint64) (any, error)
	encodeProperty(e *Engine, f *Field, base uint64, v any) error
	bytes(v any) ([]byte, error)
}

type numeric[T scalar] struct {
	size int
	get  func([]byte) T
	put  func([]byte, T)
}

func (n numeric[T]) width() int { return n.size }

func (n numeric[T]) many(b []byte, count, stride int) any {
	out := make([]T, count)
	for i := range out {
		out[i] = n.get(b[i*stride:])
	}
	return out
}

func (n numeric[T]) decodeProperty(e *Engine, f *Field, base uint64) (any, error) {
	if int(f.Size) != n.size {
		return nil, fmt.Errorf("%w: %s is %d bytes, %s needs %d", ErrInvalidLayout, f.Name, f.Size, f.Kind, n.size)
	}
	if err := checkCount(f); err != nil {
		return nil, err
	}
	b, err := e.r.ReadBytes(fieldAddr(f, base), n.size*int(f.ArrayCount))
	if err != nil {
		return nil, err
	}
	if f.ArrayCount == 1 {
		return n.get(b), nil
	}
	return n.many(b, int(f.ArrayCount), n.size), nil
}

func (n numeric[T]) encodeProperty(e *Engine, f *Field, base uint64, v any) error {
	if int(f.Size) != n.size {
		return fmt.Errorf("%w: %s is %d bytes, %s needs %d", ErrInvalidLayout, f.Name, f.Size, f.Kind, n.size)
	}
	if err := singular(f); err != nil {
		return err
	}
	b, err := n.bytes(v)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	return e.r.WriteBytes(fieldAddr(f, base), b)
}

func (n numeric[T]) bytes(v any) ([]byte, error) {
	x, err := toNumber[T](v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n.size)
	n.put(b, x)
	return b, nil
}

var le = binary.LittleEndian

var numerics = map[Kind]numericCodec{
	KindByte: numeric[uint8]{1,
		func(b []byte) uint8 { return b[0] },
		func(b []byte, v uint8) { b[0] = v }},
	KindInt8: numeric[int8]{1,
		func(b []byte) int8 { return int8(b[0]) },
		func(b []byte, v int8) { b[0] = uint8(v) }},
	KindInt16: numeric[int16]{2,
		func(b []byte) int16 { return int16(le.Uint16(b)) },
		func(b []byte, v int16) { le.PutUint16(b, uint16(v)) }},
	KindUInt16: numeric[uint16]{2, le.Uint16, le.PutUint16},
	KindInt: numeric[int32]{4,
		func(b []byte) int32 { return int32(le.Uint32(b)) },
		func(b []byte, v int32) { le.PutUint32(b, uint32(v)) }},
	KindUInt32: numeric[uint32]{4, le.Uint32, le.PutUint32},
	KindInt64: numeric[int64]{8,
		func(b []byte) int64 { return int64(le.Uint64(b)) },
		func(b []byte, v int64) { le.PutUint64(b, uint64(v)) }},
	KindUInt64: numeric[uint64]{8, le.Uint64, le.PutUint64},
	KindFloat: numeric[float32]{4,
		func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) },
		func(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }},
	KindDouble: numeric[float64]{8,
		func(b []byte) float64 { return math.Float64frombits(le.Uint64(b)) },
		func(b []byte, v float64) { le.PutUint64(b, math.Float64bits(v)) }},
}

// toNumber converts any Go numeric value to T, failing when the value does
// not fit.
func toNumber[T scalar](v any) (T, error) {
	switch x := v.(type) {
	case T:
		return x, nil
	case int:
		return fromInt[T](int64(x))
	case int8:
		return fromInt[T](int64(x))
	case int16:
		return fromInt[T](int64(x))
	case int32:
		return fromInt[T](int64(x))
	case int64:
		return fromInt[T](x)
	case uint:
		return fromUint[T](uint64(x))
	case uint8:
		return fromUint[T](uint64(x))
	case uint16:
		return fromUint[T](uint64(x))
	case uint32:
		return fromUint[T](uint64(x))
	case uint64:
		return fromUint[T](x)
	case float32:
		return fromFloat[T](float64(x))
	case float64:
		return fromFloat[T](x)
	case EnumValue:
		return fromInt[T](x.Value)
	}
	var zero T
	return zero, fmt.Errorf("%w: %T is not a number", ErrValueType, v)
}

func isFloat[T scalar]() bool {
	f := 0.5
	return T(f) != 0
}

func isUnsigned[T scalar]() bool {
	var z T
	z--
	return z > 0
}

func fromInt[T scalar](x int64) (T, error) {
	t := T(x)
	if isFloat[T]() {
		return t, nil
	}
	if int64(t) != x || (x < 0 && isUnsigned[T]()) {
		return 0, fmt.Errorf("%w: %d overflows %T", ErrValueType, x, t)
	}
	return t, nil
}

func fromUint[T scalar](x uint64) (T, error) {
	t := T(x)
	if isFloat[T]() {
		return t, nil
	}
	if uint64(t) != x || t < 0 {
		return 0, fmt.Errorf("%w: %d overflows %T", ErrValueType, x, t)
	}
	return t, nil
}

func fromFloat[T scalar](x float64) (T, error) {
	if isFloat[T]() {
		return T(x), nil
	}
	if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrValueType, x)
	}
	if x < 0 {
		if x < math.MinInt64 {
			return 0, fmt.Errorf("%w: %v out of range", ErrValueType, x)
		}
		return fromInt[T](int64(x))
	}
	if x >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrValueType, x)
	}
	return fromUint[T](uint64(x))
}

// Bool.

// decodeBool tests the storage byte against FieldMask.
func decodeBool(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	if f.ArrayCount != 1 {
		return nil, fmt.Errorf("%w: bool array %s", ErrNotSupported, f.Name)
	}
	v, err := e.r.ReadU8(fieldAddr(f, base) + uint64(f.Bool.ByteOffset))
	if err != nil {
		return nil, err
	}
	return v&f.Bool.FieldMask != 0, nil
}

// encodeBool sets ByteMask for true and clears FieldMask for false. The
// two masks are usually equal; when they are not, the asymmetry is kept.
func encodeBool(e *Engine, f *Field, base uint64, v any) error {
	on, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%w: %s wants bool, got %T", ErrValueType, f.Name, v)
	}
	if err := singular(f); err != nil {
		return err
	}
	addr := fieldAddr(f, base) + uint64(f.Bool.ByteOffset)
	b, err := e.r.ReadU8(addr)
	if err != nil {
		return err
	}
	if on {
		b |= f.Bool.ByteMask
	} else {
		b &^= f.Bool.FieldMask
	}
	return e.r.WriteU8(addr, b)
}

// Strings.

// arrayHeader is the target's dynamic array: data pointer, element count
// and capacity. Strings use the same header with UTF-16 elements.
type arrayHeader struct {
	Data  uint64
	Count int32
	Max   int32
}

func (e *Engine) headerSize() int { return e.r.PointerSize() + 8 }

func (e *Engine) parseArrayHeader(b []byte) arrayHeader {
	return arrayHeader{
		Data:  e.r.Pointer(b),
		Count: int32(le.Uint32(b[e.r.PointerSize():])),
		Max:   int32(le.Uint32(b[e.r.PointerSize()+4:])),
	}
}

func (e *Engine) readArrayHeader(addr uint64) (arrayHeader, error) {
	b, err := e.r.ReadBytes(addr, e.headerSize())
	if err != nil {
		return arrayHeader{}, err
	}
	h := e.parseArrayHeader(b)
	if h.Count < 0 {
		return arrayHeader{}, fmt.Errorf("%w: array at 0x%x has count %d", ErrInvalidLayout, addr, h.Count)
	}
	return h, nil
}

// stringOf decodes a string header. A null data pointer is "".
func (e *Engine) stringOf(h arrayHeader) (string, error) {
	if h.Data == 0 || h.Count <= 0 {
		return "", nil
	}
	return e.r.ReadText(h.Data, int(h.Count), true)
}

func (e *Engine) readString(addr uint64) (string, error) {
	h, err := e.readArrayHeader(addr)
	if err != nil {
		return "", err
	}
	return e.stringOf(h)
}

func decodeStr(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	addr := fieldAddr(f, base)
	if f.ArrayCount == 1 {
		return e.readString(addr)
	}
	out := make([]string, f.ArrayCount)
	for i := range out {
		s, err := e.readString(addr + uint64(i)*uint64(f.Size))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Names.

func decodeName(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	addr := fieldAddr(f, base)
	if f.ArrayCount == 1 {
		return e.names.read(addr)
	}
	b, err := e.r.ReadBytes(addr, nameSize*int(f.ArrayCount))
	if err != nil {
		return nil, err
	}
	return e.namesOf(b, int(f.ArrayCount))
}

func (e *Engine) namesOf(b []byte, count int) ([]string, error) {
	out := make([]string, count)
	for i := range out {
		s, err := e.names.resolve(parseName(b[i*nameSize:]))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// encodeName accepts a Name, or a string already present in the name
// cache.
func encodeName(e *Engine, f *Field, base uint64, v any) error {
	if err := singular(f); err != nil {
		return err
	}
	var n Name
	switch x := v.(type) {
	case Name:
		n = x
	case string:
		var ok bool
		if n, ok = e.names.lookup(x); !ok {
			return fmt.Errorf("%w: name %q not interned", ErrValueType, x)
		}
	default:
		return fmt.Errorf("%w: %s wants a name, got %T", ErrValueType, f.Name, v)
	}
	return e.r.WriteBytes(fieldAddr(f, base), n.bytes())
}

// Object and class references.

// objectRef maps a pointer to a discovered instance. Null is nil; any
// other pointer must be in the universe.
func (e *Engine) objectRef(p uint64) (*Object, error) {
	if p == 0 {
		return nil, nil
	}
	o, ok := e.objects[p]
	if !ok {
		return nil, fmt.Errorf("%w: object 0x%x", ErrUnresolved, p)
	}
	return o, nil
}

func decodeObjectRef(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	ptrs, err := e.r.ReadPointers(fieldAddr(f, base), int(f.ArrayCount))
	if err != nil {
		return nil, err
	}
	out := make([]any, len(ptrs))
	for i, p := range ptrs {
		o, err := e.objectRef(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if o != nil {
			out[i] = o
		}
	}
	if f.ArrayCount == 1 {
		return out[0], nil
	}
	return out, nil
}

func decodeClassRef(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	ptrs, err := e.r.ReadPointers(fieldAddr(f, base), int(f.ArrayCount))
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
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out[i] = c
	}
	if f.ArrayCount == 1 {
		return out[0], nil
	}
	return out, nil
}

// refAddress turns a Set value into a pointer for an object or class
// property. declared, when known, restricts instance values.
func refAddress(f *Field, v any, declared *Class) (uint64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case *Object:
		if x == nil {
			return 0, nil
		}
		if declared != nil && (x.Class == nil || !x.Class.IsSubtypeOf(declared)) {
			return 0, fmt.Errorf("%w: %s wants %s, got %s", ErrValueType, f.Name, declared.Path, x.Class)
		}
		return x.Address, nil
	case *Class:
		if x == nil {
			return 0, nil
		}
		return x.Address, nil
	}
	return 0, fmt.Errorf("%w: %s wants a reference, got %T", ErrValueType, f.Name, v)
}

func encodeObjectRef(e *Engine, f *Field, base uint64, v any) error {
	if err := singular(f); err != nil {
		return err
	}
	if _, ok := v.(*Class); ok {
		return fmt.Errorf("%w: %s wants an object, got a class", ErrValueType, f.Name)
	}
	p, err := refAddress(f, v, f.PropertyClass)
	if err != nil {
		return err
	}
	return e.r.WritePointer(fieldAddr(f, base), p)
}

func encodeClassRef(e *Engine, f *Field, base uint64, v any) error {
	if err := singular(f); err != nil {
		return err
	}
	if _, ok := v.(*Object); ok {
		return fmt.Errorf("%w: %s wants a class, got an object", ErrValueType, f.Name)
	}
	p, err := refAddress(f, v, nil)
	if err != nil {
		return err
	}
	return e.r.WritePointer(fieldAddr(f, base), p)
}

// Structs.

func decodeStruct(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	if f.Struct == nil {
		return nil, fmt.Errorf("%w: struct %s has no layout", ErrInvalidLayout, f.Name)
	}
	addr := fieldAddr(f, base)
	if f.ArrayCount == 1 {
		return e.structAt(f.Struct, addr)
	}
	out := make([]any, f.ArrayCount)
	for i := range out {
		v, err := e.structAt(f.Struct, addr+uint64(i)*uint64(f.Size))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// structAt decodes one embedded struct of layout s at addr.
func (e *Engine) structAt(s *Class, addr uint64) (any, error) {
	switch s.Path {
	case StructPointer:
		return e.r.ReadPointer(addr)
	case StructQWord:
		return e.r.ReadU64(addr)
	case StructDouble:
		return e.r.ReadF64(addr)
	}
	return e.nested(s, addr), nil
}

// encodeStruct writes the intrinsic scalar structs. Other structs are
// written field by field through the nested object.
func encodeStruct(e *Engine, f *Field, base uint64, v any) error {
	if err := singular(f); err != nil {
		return err
	}
	if f.Struct == nil {
		return fmt.Errorf("%w: struct %s has no layout", ErrInvalidLayout, f.Name)
	}
	addr := fieldAddr(f, base)
	switch f.Struct.Path {
	case StructPointer:
		p, err := toNumber[uint64](v)
		if err != nil {
			return err
		}
		return e.r.WritePointer(addr, p)
	case StructQWord:
		q, err := toNumber[uint64](v)
		if err != nil {
			return err
		}
		return e.r.WriteU64(addr, q)
	case StructDouble:
		d, err := toNumber[float64](v)
		if err != nil {
			return err
		}
		return e.r.WriteF64(addr, d)
	}
	return fmt.Errorf("%w: writing struct %s whole", ErrNotSupported, f.Struct.Path)
}

// Enum properties.

// enumWidth is the byte width of an enum property's storage.
func enumWidth(f *Field) int {
	if f.Underlying != nil && f.Underlying.Size > 0 {
		return int(f.Underlying.Size)
	}
	return int(f.Size)
}

func enumSigned(f *Field) bool {
	if f.Underlying == nil {
		return false
	}
	switch f.Underlying.Kind {
	case KindInt8, KindInt16, KindInt, KindInt64:
		return true
	}
	return false
}

func decodeEnum(e *Engine, f *Field, base uint64) (any, error) {
	if err := checkCount(f); err != nil {
		return nil, err
	}
	if f.ArrayCount != 1 {
		return nil, fmt.Errorf("%w: enum array %s", ErrNotSupported, f.Name)
	}
	w := enumWidth(f)
	if w != 1 && w != 2 && w != 4 && w != 8 {
		return nil, fmt.Errorf("%w: enum %s is %d bytes", ErrInvalidLayout, f.Name, w)
	}
	b, err := e.r.ReadBytes(fieldAddr(f, base), w)
	if err != nil {
		return nil, err
	}
	var raw uint64
	for i := w - 1; i >= 0; i-- {
		raw = raw<<8 | uint64(b[i])
	}
	val := int64(raw)
	if enumSigned(f) && w < 8 {
		shift := uint(64 - 8*w)
		val = int64(raw<<shift) >> shift
	}
	out := EnumValue{Value: val}
	if f.Enum != nil {
		for _, entry := range f.Enum.Values {
			if entry.Value == val {
				out.Name = entry.Name
				break
			}
		}
	}
	return out, nil
}

// encodeEnum accepts an EnumValue, an enumerator name, or an integer.
func encodeEnum(e *Engine, f *Field, base uint64, v any) error {
	if err := singular(f); err != nil {
		return err
	}
	w := enumWidth(f)
	if w != 1 && w != 2 && w != 4 && w != 8 {
		return fmt.Errorf("%w: enum %s is %d bytes", ErrInvalidLayout, f.Name, w)
	}
	var val int64
	switch x := v.(type) {
	case string:
		entry, ok := f.enumerator(x)
		if !ok {
			return fmt.Errorf("%w: %s has no enumerator %q", ErrValueType, f.Name, x)
		}
		val = entry.Value
	case EnumValue:
		val = x.Value
		if x.Name != "" {
			entry, ok := f.enumerator(x.Name)
			if !ok {
				return fmt.Errorf("%w: %s has no enumerator %q", ErrValueType, f.Name, x.Name)
			}
			val = entry.Value
		}
	default:
		n, err := toNumber[int64](v)
		if err != nil {
			return err
		}
		val = n
	}
	b := make([]byte, 8)
	le.PutUint64(b, uint64(val))
	return e.r.WriteBytes(fieldAddr(f, base), b[:w])
}

// enumerator finds an entry by full name or by the part after "::".
func (f *Field) enumerator(name string) (EnumEntry, bool) {
	if f.Enum == nil {
		return EnumEntry{}, false
	}
	for _, entry := range f.Enum.Values {
		if entry.Name == name {
			return entry, true
		}
	}
	for _, entry := range f.Enum.Values {
		if _, short, ok := strings.Cut(entry.Name, "::"); ok && short == name {
			return entry, true
		}
	}
	return EnumEntry{}, false
}
