// Package output writes reflected objects, classes and vtable listings as
// JSON, JSONL and text files.
package output

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"unreflect/internal/disasm"
	"unreflect/internal/unreal"
)

// Hex renders addresses as "0x..." strings in JSON.
type Hex uint64

func (h Hex) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", uint64(h))), nil
}

// ObjectRecord is one discovered instance.
type ObjectRecord struct {
	Address Hex               `json:"address"`
	Name    string            `json:"name"`
	Path    string            `json:"path"`
	Class   string            `json:"class"`
	Values  map[string]any    `json:"values,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ClassRecord is one resolved class with the fields it declares.
type ClassRecord struct {
	Address       Hex           `json:"address"`
	VTable        Hex           `json:"vtable"`
	Name          string        `json:"name"`
	Path          string        `json:"path"`
	Super         string        `json:"super,omitempty"`
	Metaclass     string        `json:"metaclass,omitempty"`
	DefaultObject Hex           `json:"default_object,omitempty"`
	Fields        []FieldRecord `json:"fields,omitempty"`
}

// FieldRecord is one declared field.
type FieldRecord struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Offset     int32  `json:"offset"`
	Size       int32  `json:"size"`
	ArrayCount int32  `json:"array_count,omitempty"`
	Detail     string `json:"detail"`
}

// NewClassRecord flattens c for output.
func NewClassRecord(c *unreal.Class) ClassRecord {
	r := ClassRecord{
		Address:       Hex(c.Address),
		VTable:        Hex(c.VTable),
		Name:          c.Name,
		Path:          c.Path,
		DefaultObject: Hex(c.DefaultObject),
	}
	if c.Super != nil {
		r.Super = c.Super.Path
	}
	if c.Class != nil {
		r.Metaclass = c.Class.Path
	}
	for _, f := range c.Fields {
		r.Fields = append(r.Fields, FieldRecord{
			Name:       f.Name,
			Kind:       f.Class.String(),
			Offset:     f.Offset,
			Size:       f.Size,
			ArrayCount: f.ArrayCount,
			Detail:     f.Describe(),
		})
	}
	return r
}

// NewObjectRecord flattens o. With withValues, every reachable field is
// decoded; failures are collected per field rather than aborting.
func NewObjectRecord(o *unreal.Object, withValues bool) ObjectRecord {
	r := ObjectRecord{
		Address: Hex(o.Address),
		Name:    o.Name,
		Path:    o.Path,
		Class:   o.Class.String(),
	}
	if !withValues {
		return r
	}
	r.Values = make(map[string]any)
	for _, name := range o.FieldNames() {
		if _, done := r.Values[name]; done {
			continue
		}
		v, _, err := o.Get(name)
		if err != nil {
			if r.Errors == nil {
				r.Errors = make(map[string]string)
			}
			r.Errors[name] = err.Error()
			continue
		}
		r.Values[name] = Value(v, 2)
	}
	return r
}

// Value converts a decoded field value to a JSON-friendly form. Objects
// become their path (or address when they have none), classes their path,
// and nested structs a map of their fields down to depth levels.
func Value(v any, depth int) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *unreal.Object:
		if x == nil {
			return nil
		}
		if x.Path != "" {
			return x.Path
		}
		if depth <= 0 {
			return fmt.Sprintf("%s@0x%x", x.Class, x.Address)
		}
		m := make(map[string]any)
		for _, name := range x.FieldNames() {
			fv, _, err := x.Get(name)
			if err != nil {
				m[name] = "error: " + err.Error()
				continue
			}
			m[name] = Value(fv, depth-1)
		}
		return m
	case *unreal.Class:
		if x == nil {
			return nil
		}
		return x.Path
	case unreal.EnumValue:
		return x.String()
	case unreal.Unsupported:
		return x.Reason
	case []byte:
		return hex.EncodeToString(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Value(item, depth)
		}
		return out
	}
	return v
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode: %w", err)
	}
	return nil
}

// JSONL writes one JSON document per line.
type JSONL struct {
	enc *json.Encoder
}

func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{enc: json.NewEncoder(w)}
}

func (j *JSONL) Write(v any) error {
	if err := j.enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode jsonl: %w", err)
	}
	return nil
}

// WriteClassesJSON writes class records to classes.json in dir.
func WriteClassesJSON(dir string, classes []ClassRecord) error {
	return writeJSON(filepath.Join(dir, "classes.json"), classes)
}

// WriteASM writes disassembled instructions to asm/<name>.txt.
// name may contain path separators (e.g. "Actor/vf12") for directory grouping.
func WriteASM(dir string, name string, insts []disasm.Inst, lookup disasm.SymbolLookup, annotators ...disasm.Annotator) error {
	path := filepath.Join(dir, "asm", name+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir asm: %w", err)
	}
	text := disasm.Format(insts, lookup, annotators...)
	return os.WriteFile(path, []byte(text), 0644)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteJSON(f, v); err != nil {
		return fmt.Errorf("output: %s: %w", path, err)
	}
	return nil
}
