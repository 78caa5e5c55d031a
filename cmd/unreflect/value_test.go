package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"unreflect/internal/unreal"
)

type fakeResolver map[string]any

func (r fakeResolver) object(ref string) (*unreal.Object, error) {
	if o, ok := r[ref].(*unreal.Object); ok {
		return o, nil
	}
	return nil, fmt.Errorf("no object %q", ref)
}

func (r fakeResolver) class(ref string) (*unreal.Class, error) {
	if c, ok := r[ref].(*unreal.Class); ok {
		return c, nil
	}
	return nil, fmt.Errorf("no class %q", ref)
}

func TestParseValue(t *testing.T) {
	actor := &unreal.Class{Name: "Actor", Path: "/Script/Engine.Actor"}
	hero := &unreal.Object{Path: "Maps.Level.Hero", Class: actor}
	r := fakeResolver{hero.Path: hero, actor.Path: actor}

	object := &unreal.Field{Name: "Owner", Kind: unreal.KindObject}
	tests := []struct {
		field *unreal.Field
		in    string
		want  any
	}{
		{&unreal.Field{Kind: unreal.KindBool}, "true", true},
		{&unreal.Field{Kind: unreal.KindFloat}, "1.5", 1.5},
		{&unreal.Field{Kind: unreal.KindUInt32}, "0x10", uint64(16)},
		{&unreal.Field{Kind: unreal.KindInt}, "-3", int64(-3)},
		{&unreal.Field{Kind: unreal.KindName}, " Player_7 ", "Player_7"},
		{&unreal.Field{Kind: unreal.KindEnumProperty}, "Fly", "Fly"},
		{&unreal.Field{Kind: unreal.KindEnumProperty}, "2", int64(2)},
		{object, "Maps.Level.Hero", hero},
		{&unreal.Field{Kind: unreal.KindClass}, "/Script/Engine.Actor", actor},
		{&unreal.Field{Kind: unreal.KindArray, Inner: &unreal.Field{Kind: unreal.KindInt}}, "1, 2", []any{int64(1), int64(2)}},
		{&unreal.Field{Kind: unreal.KindArray, Inner: &unreal.Field{Kind: unreal.KindByte}}, "1,0xff", []byte{1, 0xff}},
		{&unreal.Field{Kind: unreal.KindArray, Inner: object}, "", []any{}},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.field, tt.in, r)
		if err != nil {
			t.Errorf("parseValue(%s, %q): %v", tt.field.Kind, tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got, cmp.Comparer(func(a, b *unreal.Object) bool { return a == b }),
			cmp.Comparer(func(a, b *unreal.Class) bool { return a == b })); diff != "" {
			t.Errorf("parseValue(%s, %q) (-want +got):\n%s", tt.field.Kind, tt.in, diff)
		}
	}

	if v, err := parseValue(object, "null", r); err != nil || v != nil {
		t.Errorf("null reference = %v, %v", v, err)
	}
}

func TestParseValueErrors(t *testing.T) {
	r := fakeResolver{}
	for _, tt := range []struct {
		field *unreal.Field
		in    string
	}{
		{&unreal.Field{Kind: unreal.KindBool}, "maybe"},
		{&unreal.Field{Kind: unreal.KindInt}, "1.5"},
		{&unreal.Field{Kind: unreal.KindObject}, "Maps.Nowhere"},
		{&unreal.Field{Kind: unreal.KindArray, Inner: &unreal.Field{Kind: unreal.KindByte}}, "256"},
		{&unreal.Field{Name: "Location", Kind: unreal.KindStruct}, "1,2,3"},
	} {
		if _, err := parseValue(tt.field, tt.in, r); err == nil {
			t.Errorf("parseValue(%s, %q) succeeded", tt.field.Kind, tt.in)
		}
	}
}

func TestReadCodeShrinks(t *testing.T) {
	errUnmapped := errors.New("unmapped")
	read := func(addr uint64, n int) ([]byte, error) {
		if n > 64 {
			return nil, errUnmapped
		}
		return make([]byte, n), nil
	}
	b, err := readCode(read, 0x1000, 512)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 64 {
		t.Errorf("got %d bytes, want 64", len(b))
	}

	never := func(uint64, int) ([]byte, error) { return nil, errUnmapped }
	if _, err := readCode(never, 0x1000, 512); !errors.Is(err, errUnmapped) {
		t.Errorf("got %v, want %v", err, errUnmapped)
	}
}

func TestClassesOf(t *testing.T) {
	a := &unreal.Class{Path: "A"}
	b := &unreal.Class{Path: "B"}
	objs := []*unreal.Object{{Class: b}, {Class: a}, {Class: b}}
	got := classesOf(objs)
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("classesOf = %v", got)
	}
}

func TestBrowseFilter(t *testing.T) {
	actor := &unreal.Class{Name: "Actor", Path: "/Script/Engine.Actor"}
	level := &unreal.Class{Name: "Level", Path: "/Script/Engine.Level"}
	objs := []*unreal.Object{
		{Path: "Maps.Level", Class: level},
		{Path: "Maps.Level.Hero", Class: actor},
		{Path: "Maps.Level.Villain", Class: actor},
	}
	m := newBrowseModel(objs, fakeResolver{})
	if len(m.shown) != 3 {
		t.Fatalf("unfiltered = %d, want 3", len(m.shown))
	}
	m.filter.SetValue("engine.actor")
	m.applyFilter()
	if len(m.shown) != 2 {
		t.Errorf("class filter = %d, want 2", len(m.shown))
	}
	m.filter.SetValue("hero")
	m.applyFilter()
	if len(m.shown) != 1 || m.shown[0] != objs[1] {
		t.Errorf("path filter = %v", m.shown)
	}
}

func TestScroll(t *testing.T) {
	for _, tt := range []struct{ sel, offset, page, want int }{
		{0, 0, 10, 0},
		{12, 0, 10, 3},
		{2, 5, 10, 2},
		{7, 5, 10, 5},
	} {
		if got := scroll(tt.sel, tt.offset, tt.page); got != tt.want {
			t.Errorf("scroll(%d, %d, %d) = %d, want %d", tt.sel, tt.offset, tt.page, got, tt.want)
		}
	}
}
