package unreal

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind means a field's kind descriptor has a path the engine
	// does not recognize. The layout does not match the target's type
	// system, so construction stops.
	ErrUnknownKind = errors.New("unreal: unknown field kind")

	ErrInvalidLayout  = errors.New("unreal: invalid layout state")
	ErrUnresolved     = errors.New("unreal: unresolved reference")
	ErrNotSupported   = errors.New("unreal: not supported")
	ErrNotImplemented = errors.New("unreal: kind not implemented")
	ErrValueType      = errors.New("unreal: value type mismatch")
)

// KindError reports the field and kind path behind ErrUnknownKind.
type KindError struct {
	Address uint64
	Path    string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("unreal: field 0x%x: unknown kind %q", e.Address, e.Path)
}

func (e *KindError) Unwrap() error { return ErrUnknownKind }

// Unsupported is returned in place of a value the engine can locate but
// not decode: fields of unimplemented kinds, and dynamic array elements it
// cannot represent. It is a value, not an error.
type Unsupported struct {
	Reason string
}

func (u Unsupported) String() string { return u.Reason }

func notImplemented(kind string) Unsupported {
	return Unsupported{Reason: "*** NOT IMPLEMENTED " + kind + " ***"}
}
