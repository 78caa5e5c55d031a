package unreal

import (
	"fmt"
	"strings"
)

// Field is a resolved field descriptor. Which of the kind-specific members
// are set depends on Kind.
type Field struct {
	Address uint64
	VTable  uint64
	Name    string
	// Class is the field's kind class, e.g. /Script/CoreUObject.IntProperty.
	Class *Class
	Kind  Kind

	// Storage in the owning instance, for property kinds.
	ArrayCount int32
	Size       int32
	Offset     int32

	Inner         *Field // KindArray element
	PropertyClass *Class // KindObject declared class
	Struct        *Class // KindStruct layout
	Underlying    *Field // KindEnumProperty storage
	Enum          *Field // KindEnumProperty enumeration
	Bool          BoolMask

	// KindEnum only.
	TypeName string
	Values   []EnumEntry

	codec codec
}

// BoolMask locates a packed boolean inside its storage.
type BoolMask struct {
	FieldSize  uint8
	ByteOffset uint8
	ByteMask   uint8
	FieldMask  uint8
}

// EnumEntry is one enumerator of a KindEnum field.
type EnumEntry struct {
	Name  string
	Value int64
}

// EnumValue is the decoded value of an enum property. Name is empty when
// Value matches no enumerator.
type EnumValue struct {
	Name  string
	Value int64
}

func (v EnumValue) String() string {
	if v.Name == "" {
		return fmt.Sprintf("%d", v.Value)
	}
	return v.Name
}

// codec is the decode/encode pair picked for a field at resolution time.
// base is the address of the instance holding the field. A nil decode or
// encode means the kind has no such operation.
type codec struct {
	decode func(e *Engine, f *Field, base uint64) (any, error)
	encode func(e *Engine, f *Field, base uint64, v any) error
}

// decode reads the field's value from the instance at base.
func (f *Field) decode(e *Engine, base uint64) (any, error) {
	if f.codec.decode == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, f.kindName())
	}
	return f.codec.decode(e, f, base)
}

func (f *Field) encode(e *Engine, base uint64, v any) error {
	if f.codec.encode == nil {
		if f.codec.decode == nil {
			return fmt.Errorf("%w: %s", ErrNotImplemented, f.kindName())
		}
		return fmt.Errorf("%w: writing %s", ErrNotSupported, f.kindName())
	}
	return f.codec.encode(e, f, base, v)
}

// CanDecode reports whether the field has an instance-value decoder.
func (f *Field) CanDecode() bool { return f.codec.decode != nil }

// CanEncode reports whether the field accepts writes.
func (f *Field) CanEncode() bool { return f.codec.encode != nil }

func (f *Field) kindName() string {
	if f.Class != nil {
		return f.Class.Name
	}
	return f.Kind.String()
}

// Describe summarizes the field for listings, e.g.
// "IntProperty Health @0x3c size=4".
func (f *Field) Describe() string {
	var b strings.Builder
	b.WriteString(f.kindName())
	b.WriteByte(' ')
	b.WriteString(f.Name)
	if !f.Kind.IsProperty() {
		return b.String()
	}
	fmt.Fprintf(&b, " @0x%x size=%d", f.Offset, f.Size)
	if f.ArrayCount != 1 {
		fmt.Fprintf(&b, " count=%d", f.ArrayCount)
	}
	switch f.Kind {
	case KindArray:
		if f.Inner != nil {
			fmt.Fprintf(&b, " of %s", f.Inner.kindName())
		}
	case KindObject:
		if f.PropertyClass != nil {
			fmt.Fprintf(&b, " -> %s", f.PropertyClass.Path)
		}
	case KindStruct:
		if f.Struct != nil {
			fmt.Fprintf(&b, " %s", f.Struct.Path)
		}
	case KindEnumProperty:
		if f.Enum != nil {
			fmt.Fprintf(&b, " %s", f.Enum.Name)
		}
	case KindBool:
		fmt.Fprintf(&b, " byte=%d mask=0x%02x", f.Bool.ByteOffset, f.Bool.FieldMask)
	}
	return b.String()
}

func (f *Field) String() string { return f.Describe() }
