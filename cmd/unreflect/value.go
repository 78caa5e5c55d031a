package main

import (
	"fmt"
	"strconv"
	"strings"

	"unreflect/internal/unreal"
)

// refResolver finds objects and classes named on the command line.
type refResolver interface {
	object(ref string) (*unreal.Object, error)
	class(ref string) (*unreal.Class, error)
}

// parseValue converts command-line text to a value Object.Set accepts for
// f. References are object or class paths (or addresses); "null" clears
// them. Arrays are comma-separated.
func parseValue(f *unreal.Field, s string, r refResolver) (any, error) {
	s = strings.TrimSpace(s)
	switch k := f.Kind; {
	case k == unreal.KindBool:
		return strconv.ParseBool(s)

	case k == unreal.KindFloat, k == unreal.KindDouble:
		return strconv.ParseFloat(s, 64)

	case k == unreal.KindByte, k == unreal.KindUInt16, k == unreal.KindUInt32, k == unreal.KindUInt64:
		return strconv.ParseUint(s, 0, 64)

	case k.IsNumeric():
		return strconv.ParseInt(s, 0, 64)

	case k == unreal.KindName:
		return s, nil

	case k == unreal.KindEnumProperty:
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return n, nil
		}
		return s, nil

	case k == unreal.KindObject:
		if isNull(s) {
			return nil, nil
		}
		return r.object(s)

	case k == unreal.KindClass:
		if isNull(s) {
			return nil, nil
		}
		return r.class(s)

	case k == unreal.KindArray && f.Inner != nil:
		var parts []string
		if s != "" {
			parts = strings.Split(s, ",")
		}
		if f.Inner.Kind == unreal.KindByte {
			out := make([]byte, len(parts))
			for i, p := range parts {
				b, err := strconv.ParseUint(strings.TrimSpace(p), 0, 8)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = byte(b)
			}
			return out, nil
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			v, err := parseValue(f.Inner, p, r)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot parse a value for %s", f.Describe())
}

func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "nil", "none", "0":
		return true
	}
	return false
}
