package unreal

// Kind classifies a field descriptor. It is decided once, when the field
// is resolved, from the path of the field's own class.
type Kind int

const (
	KindUnknown Kind = iota

	// Fields without instance storage.
	KindEnum
	KindFunction
	KindDelegateFunction

	// Numeric properties.
	KindByte
	KindInt8
	KindInt16
	KindUInt16
	KindInt
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat
	KindDouble

	KindBool
	KindStr
	KindName
	KindObject
	KindClass
	KindComponent
	KindStruct
	KindArray
	KindEnumProperty

	// Properties that are recognized but have no decoder.
	KindDelegate
	KindInterface
	KindLazyObject
	KindMap
	KindMulticastDelegate
	KindText
	KindSet
	KindSoftClass
	KindSoftObject
	KindWeakObject
)

// kindClassNames maps each kind to the name of its kind class inside the
// configured kind package.
var kindClassNames = map[Kind]string{
	KindEnum:              "Enum",
	KindFunction:          "Function",
	KindDelegateFunction:  "DelegateFunction",
	KindByte:              "ByteProperty",
	KindInt8:              "Int8Property",
	KindInt16:             "Int16Property",
	KindUInt16:            "UInt16Property",
	KindInt:               "IntProperty",
	KindUInt32:            "UInt32Property",
	KindInt64:             "Int64Property",
	KindUInt64:            "UInt64Property",
	KindFloat:             "FloatProperty",
	KindDouble:            "DoubleProperty",
	KindBool:              "BoolProperty",
	KindStr:               "StrProperty",
	KindName:              "NameProperty",
	KindObject:            "ObjectProperty",
	KindClass:             "ClassProperty",
	KindComponent:         "ComponentProperty",
	KindStruct:            "StructProperty",
	KindArray:             "ArrayProperty",
	KindEnumProperty:      "EnumProperty",
	KindDelegate:          "DelegateProperty",
	KindInterface:         "InterfaceProperty",
	KindLazyObject:        "LazyObjectProperty",
	KindMap:               "MapProperty",
	KindMulticastDelegate: "MulticastDelegateProperty",
	KindText:              "TextProperty",
	KindSet:               "SetProperty",
	KindSoftClass:         "SoftClassProperty",
	KindSoftObject:        "SoftObjectProperty",
	KindWeakObject:        "WeakObjectProperty",
}

func (k Kind) String() string {
	if s, ok := kindClassNames[k]; ok {
		return s
	}
	return "Unknown"
}

// IsProperty reports whether fields of this kind occupy storage in their
// owning instance and so carry ArrayCount, Size and Offset.
func (k Kind) IsProperty() bool {
	return k >= KindByte
}

// IsNumeric reports whether k is one of the fixed-width numeric kinds.
func (k Kind) IsNumeric() bool {
	return k >= KindByte && k <= KindDouble
}

// kindTable maps full kind paths to kinds for one kind package.
type kindTable map[string]Kind

func newKindTable(pkg string) kindTable {
	t := make(kindTable, len(kindClassNames))
	for k, name := range kindClassNames {
		t[pkg+"."+name] = k
	}
	return t
}
