// Package layout describes where the target's reflection tables live and
// how its descriptors are laid out in memory. A Config is authored by hand
// against one build of the target; nothing here verifies that the offsets
// are right, only that every required key is present.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMissingField = errors.New("layout: missing required field")
	ErrFormat       = errors.New("layout: unsupported descriptor format")
)

// Defaults for the optional keys.
const (
	DefaultPointerSize         = 8
	DefaultNameItemsPerChunk   = 0x4000
	DefaultNameMaxChunks       = 0x80
	DefaultObjectItemsPerChunk = 0x10000
	DefaultKindPackage         = "/Script/CoreUObject"
	DefaultArch                = "amd64"
)

// Address is a target address. It decodes from an integer or from a
// "0x"-prefixed hex string.
type Address uint64

func (a *Address) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return a.UnmarshalText([]byte(s))
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("layout: address %s: %w", b, err)
	}
	*a = Address(v)
	return nil
}

func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a Address) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// ParseAddress accepts decimal or 0x-prefixed hexadecimal.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		v, err = strconv.ParseUint(rest, 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("layout: address %q: %w", s, err)
	}
	return Address(v), nil
}

// Config is the layout descriptor for one target build.
type Config struct {
	// BaseAddress is the module load address the other addresses were
	// authored against.
	BaseAddress Address `json:"base_address" toml:"base_address" yaml:"base_address"`
	// GlobalNameArrayAddress holds a pointer to the name table.
	GlobalNameArrayAddress Address `json:"global_name_array_address" toml:"global_name_array_address" yaml:"global_name_array_address"`
	// GlobalObjectArrayAddress is the object table itself.
	GlobalObjectArrayAddress Address `json:"global_object_array_address" toml:"global_object_array_address" yaml:"global_object_array_address"`

	NameEntryIndexOffset  int `json:"name_entry_index_offset" toml:"name_entry_index_offset" yaml:"name_entry_index_offset"`
	NameEntryStringOffset int `json:"name_entry_string_offset" toml:"name_entry_string_offset" yaml:"name_entry_string_offset"`

	PointerSize         int    `json:"pointer_size,omitempty" toml:"pointer_size" yaml:"pointer_size,omitempty"`
	NameItemsPerChunk   int    `json:"name_items_per_chunk,omitempty" toml:"name_items_per_chunk" yaml:"name_items_per_chunk,omitempty"`
	NameMaxChunks       int    `json:"name_max_chunks,omitempty" toml:"name_max_chunks" yaml:"name_max_chunks,omitempty"`
	ObjectItemsPerChunk int    `json:"object_items_per_chunk,omitempty" toml:"object_items_per_chunk" yaml:"object_items_per_chunk,omitempty"`
	KindPackage         string `json:"kind_package,omitempty" toml:"kind_package" yaml:"kind_package,omitempty"`
	Module              string `json:"module,omitempty" toml:"module" yaml:"module,omitempty"`
	Arch                string `json:"arch,omitempty" toml:"arch" yaml:"arch,omitempty"`

	Offsets Offsets `json:"offsets" toml:"offsets" yaml:"offsets"`
}

// Offsets are byte offsets of descriptor members, relative to the start of
// the descriptor that owns them.
type Offsets struct {
	ObjectOuter int `json:"Core.Object:Outer" toml:"Core.Object:Outer" yaml:"Core.Object:Outer"`
	ObjectName  int `json:"Core.Object:Name" toml:"Core.Object:Name" yaml:"Core.Object:Name"`
	ObjectClass int `json:"Core.Object:Class" toml:"Core.Object:Class" yaml:"Core.Object:Class"`

	FieldNext int `json:"Core.Field:Next" toml:"Core.Field:Next" yaml:"Core.Field:Next"`

	StructSuperStruct int `json:"Core.Struct:SuperStruct" toml:"Core.Struct:SuperStruct" yaml:"Core.Struct:SuperStruct"`
	StructChildren    int `json:"Core.Struct:Children" toml:"Core.Struct:Children" yaml:"Core.Struct:Children"`

	ClassDefaultObject int `json:"Core.Class:ClassDefaultObject" toml:"Core.Class:ClassDefaultObject" yaml:"Core.Class:ClassDefaultObject"`

	PropertyArrayCount int `json:"Core.Property:ArrayCount" toml:"Core.Property:ArrayCount" yaml:"Core.Property:ArrayCount"`
	PropertySize       int `json:"Core.Property:Size" toml:"Core.Property:Size" yaml:"Core.Property:Size"`
	PropertyOffset     int `json:"Core.Property:Offset" toml:"Core.Property:Offset" yaml:"Core.Property:Offset"`

	EnumTypeName   int `json:"Core.Enum:TypeName" toml:"Core.Enum:TypeName" yaml:"Core.Enum:TypeName"`
	EnumValueNames int `json:"Core.Enum:ValueNames" toml:"Core.Enum:ValueNames" yaml:"Core.Enum:ValueNames"`

	ArrayPropertyInner          int `json:"Core.ArrayProperty:Inner" toml:"Core.ArrayProperty:Inner" yaml:"Core.ArrayProperty:Inner"`
	ObjectPropertyPropertyClass int `json:"Core.ObjectProperty:PropertyClass" toml:"Core.ObjectProperty:PropertyClass" yaml:"Core.ObjectProperty:PropertyClass"`
	StructPropertyStruct        int `json:"Core.StructProperty:Struct" toml:"Core.StructProperty:Struct" yaml:"Core.StructProperty:Struct"`
	EnumPropertyUnderlying      int `json:"Core.EnumProperty:UnderlyingProperty" toml:"Core.EnumProperty:UnderlyingProperty" yaml:"Core.EnumProperty:UnderlyingProperty"`
	EnumPropertyEnum            int `json:"Core.EnumProperty:Enum" toml:"Core.EnumProperty:Enum" yaml:"Core.EnumProperty:Enum"`

	BoolPropertyFieldSize  int `json:"Core.BoolProperty:FieldSize" toml:"Core.BoolProperty:FieldSize" yaml:"Core.BoolProperty:FieldSize"`
	BoolPropertyByteOffset int `json:"Core.BoolProperty:ByteOffset" toml:"Core.BoolProperty:ByteOffset" yaml:"Core.BoolProperty:ByteOffset"`
	BoolPropertyByteMask   int `json:"Core.BoolProperty:ByteMask" toml:"Core.BoolProperty:ByteMask" yaml:"Core.BoolProperty:ByteMask"`
	BoolPropertyFieldMask  int `json:"Core.BoolProperty:FieldMask" toml:"Core.BoolProperty:FieldMask" yaml:"Core.BoolProperty:FieldMask"`
}

// WithDefaults fills unset optional keys.
func (c Config) WithDefaults() Config {
	if c.PointerSize != 4 && c.PointerSize != 8 {
		c.PointerSize = DefaultPointerSize
	}
	if c.NameItemsPerChunk <= 0 {
		c.NameItemsPerChunk = DefaultNameItemsPerChunk
	}
	if c.NameMaxChunks <= 0 {
		c.NameMaxChunks = DefaultNameMaxChunks
	}
	if c.ObjectItemsPerChunk <= 0 {
		c.ObjectItemsPerChunk = DefaultObjectItemsPerChunk
	}
	if c.KindPackage == "" {
		c.KindPackage = DefaultKindPackage
	}
	if c.Arch == "" {
		c.Arch = DefaultArch
	}
	return c
}

// Rebase returns a copy whose root addresses are moved from BaseAddress
// to actualBase. BaseAddress itself becomes actualBase, so rebasing twice
// to the same base is a no-op.
func (c Config) Rebase(actualBase uint64) Config {
	delta := actualBase - uint64(c.BaseAddress)
	c.GlobalNameArrayAddress = Address(uint64(c.GlobalNameArrayAddress) + delta)
	c.GlobalObjectArrayAddress = Address(uint64(c.GlobalObjectArrayAddress) + delta)
	c.BaseAddress = Address(actualBase)
	return c
}
