package unreal

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Object is an instance in the target: a discovered object, or a struct
// embedded in one (those have an empty Name and Path).
//
// Field values are decoded on first Get and cached until Set or
// Invalidate.
type Object struct {
	Address uint64
	Class   *Class
	Name    string
	Path    string

	e      *Engine
	values map[string]any
}

// nested wraps an embedded struct of layout s at addr.
func (e *Engine) nested(s *Class, addr uint64) *Object {
	return &Object{
		Address: addr,
		Class:   s,
		e:       e,
		values:  make(map[string]any),
	}
}

// Get returns the value of the named field, searching the class and then
// its ancestors. found is false when no such field exists. Fields whose
// kind has no decoder yield an Unsupported placeholder rather than an
// error; other decode failures are returned and not cached.
func (o *Object) Get(name string) (v any, found bool, err error) {
	if v, ok := o.values[name]; ok {
		return v, true, nil
	}
	f := o.Class.Field(name)
	if f == nil {
		return nil, false, nil
	}
	v, err = f.decode(o.e, o.Address)
	if errors.Is(err, ErrNotImplemented) {
		v, err = notImplemented(f.kindName()), nil
	}
	if err != nil {
		o.e.log.Debug("field read failed",
			zap.String("object", o.describe()),
			zap.String("field", name),
			zap.Stringer("kind", f.Kind),
			zap.Error(err))
		return nil, true, err
	}
	o.values[name] = v
	return v, true, nil
}

// Set writes the named field. Only fields declared by the object's own
// class are writable this way; found is false otherwise. A successful
// write drops the cached value.
func (o *Object) Set(name string, v any) (found bool, err error) {
	f := o.Class.OwnField(name)
	if f == nil {
		return false, nil
	}
	if err := f.encode(o.e, o.Address, v); err != nil {
		return true, fmt.Errorf("unreal: set %s.%s: %w", o.describe(), name, err)
	}
	delete(o.values, name)
	return true, nil
}

// References decodes every object-valued field declared along the class
// chain (single, fixed-array and dynamic-array object properties) and
// returns the distinct instances they point at, nearest class first.
// Shadowed fields are included. Fields that fail to decode are skipped.
func (o *Object) References() []*Object {
	var out []*Object
	seen := make(map[*Object]bool)
	add := func(v any) {
		if r, ok := v.(*Object); ok && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, k := range o.Class.Chain() {
		for _, f := range k.Fields {
			isRef := f.Kind == KindObject || (f.Kind == KindArray && f.Inner != nil && f.Inner.Kind == KindObject)
			if !isRef {
				continue
			}
			v, err := f.decode(o.e, o.Address)
			if err != nil {
				o.e.log.Debug("reference skipped",
					zap.String("object", o.describe()),
					zap.String("field", f.Name),
					zap.Error(err))
				continue
			}
			if items, ok := v.([]any); ok {
				for _, item := range items {
					add(item)
				}
				continue
			}
			add(v)
		}
	}
	return out
}

// FieldNames lists every field reachable through Get.
func (o *Object) FieldNames() []string { return o.Class.FieldNames() }

// Invalidate drops cached values so the next Get reads the target again.
// With no names, every cached value is dropped.
func (o *Object) Invalidate(names ...string) {
	if len(names) == 0 {
		clear(o.values)
		return
	}
	for _, n := range names {
		delete(o.values, n)
	}
}

// IsSubtypeOf reports whether the object's class is c or derives from it
// through the superclass chain. It does not consult metaclasses; see
// Class.IsInstanceOf for that walk.
func (o *Object) IsSubtypeOf(c *Class) bool {
	return o.Class != nil && o.Class.IsSubtypeOf(c)
}

func (o *Object) describe() string {
	if o.Path != "" {
		return o.Path
	}
	return fmt.Sprintf("%s@0x%x", o.Class, o.Address)
}

func (o *Object) String() string { return o.describe() }
