package unreal

import "slices"

// Class is a resolved class or struct descriptor.
//
// Fields holds only the fields this class declares, in the order the
// target links them. Inherited fields are reached through Super.
type Class struct {
	Address uint64
	VTable  uint64
	Name    string
	Path    string

	// Class is the metaclass ("class of this class"). Super is the
	// structural base. Either is nil when the target pointer is null or
	// points back at this class.
	Class *Class
	Super *Class

	Fields        []*Field
	DefaultObject uint64
}

// IsInstanceOf walks the metaclass chain starting at c itself.
func (c *Class) IsInstanceOf(other *Class) bool {
	for k := c; k != nil; k = k.Class {
		if k == other {
			return true
		}
	}
	return false
}

// IsSubtypeOf walks the superclass chain starting at c itself, so a class
// is a subtype of itself.
func (c *Class) IsSubtypeOf(other *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == other {
			return true
		}
	}
	return false
}

// OwnField returns the field declared directly on c with the given name.
func (c *Class) OwnField(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field looks name up on c, then on each ancestor outward. The nearest
// declaration wins.
func (c *Class) Field(name string) *Field {
	for k := c; k != nil; k = k.Super {
		if f := k.OwnField(name); f != nil {
			return f
		}
	}
	return nil
}

// FieldNames lists the names of every field c declares or inherits.
// Each class's fields are collected in reverse link order, walking from c
// outward, and the whole list is then reversed. The result starts with
// the most distant ancestor and keeps link order within each class.
func (c *Class) FieldNames() []string {
	var names []string
	for k := c; k != nil; k = k.Super {
		for i := len(k.Fields) - 1; i >= 0; i-- {
			names = append(names, k.Fields[i].Name)
		}
	}
	slices.Reverse(names)
	return names
}

// Chain returns c followed by its ancestors.
func (c *Class) Chain() []*Class {
	var out []*Class
	for k := c; k != nil; k = k.Super {
		out = append(out, k)
	}
	return out
}

func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Path
}
