package unreal

import (
	"errors"
	"testing"
)

func TestResolveName(t *testing.T) {
	f := newFixture(t)
	player := f.intern("Player", false)
	wide := f.intern("Größe", true)
	e := f.engine()

	tests := []struct {
		n    Name
		want string
	}{
		{Name{ID: player}, "Player"},
		{Name{ID: player, Number: 1}, "Player_0"},
		{Name{ID: player, Number: 12}, "Player_11"},
		{Name{ID: wide}, "Größe"},
	}
	for _, tt := range tests {
		got, err := e.ResolveName(tt.n)
		if err != nil {
			t.Errorf("ResolveName(%+v): %v", tt.n, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveName(%+v) = %q, want %q", tt.n, got, tt.want)
		}
		again, _ := e.ResolveName(tt.n)
		if again != got {
			t.Errorf("ResolveName(%+v) not stable: %q then %q", tt.n, got, again)
		}
	}
}

func TestResolveNameOutOfRange(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	for _, id := range []int32{-1, namesPerChunk * nameChunks, 1000} {
		if _, err := e.ResolveName(Name{ID: id}); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("ResolveName(%d) err = %v, want ErrInvalidLayout", id, err)
		}
	}
}

func TestNamesAcrossChunks(t *testing.T) {
	f := newFixture(t)
	var last int32
	for i := 0; i < namesPerChunk+3; i++ {
		last = f.intern(string(rune('a'+i%26))+string(rune('A'+i/26))+"x", false)
	}
	e := f.engine()
	got, err := e.ResolveName(Name{ID: last})
	if err != nil {
		t.Fatal(err)
	}
	if want := string(rune('a'+(namesPerChunk+2)%26)) + string(rune('A'+(namesPerChunk+2)/26)) + "x"; got != want {
		t.Errorf("last name = %q, want %q", got, want)
	}
}

func TestNullNameTable(t *testing.T) {
	f := newFixture(t)
	f.ptr(fixtureBase, 0)
	if _, err := f.build(); err == nil {
		t.Error("expected error for null name table")
	}
}

func TestNameLookup(t *testing.T) {
	w := newWorld(t)
	e := w.engine()
	// Decoding the tag interns "Player" in the cache.
	if _, _, err := e.Object(w.hero).Get("Tag"); err != nil {
		t.Fatal(err)
	}

	n, ok := e.names.lookup("Player")
	if !ok || n.Number != 0 {
		t.Fatalf("lookup(Player) = %+v, %v", n, ok)
	}
	n, ok = e.names.lookup("Player_4")
	if !ok || n.Number != 5 {
		t.Fatalf("lookup(Player_4) = %+v, %v", n, ok)
	}
	if s, _ := e.ResolveName(n); s != "Player_4" {
		t.Errorf("round trip = %q", s)
	}
	if _, ok := e.names.lookup("NeverSeen"); ok {
		t.Error("lookup found a name that was never decoded")
	}
}

func TestNameLookupDuplicates(t *testing.T) {
	nt := &nameTable{cache: map[int32]string{
		9: "Door", 4: "Door", 12: "Door", 7: "Door_2",
		8: "Gate", 3: "Gate",
	}}
	tests := []struct {
		s    string
		want Name
	}{
		{"Door", Name{ID: 4}},
		{"Door_2", Name{ID: 7}},
		{"Door_5", Name{ID: 4, Number: 6}},
		{"Gate_0", Name{ID: 3, Number: 1}},
	}
	for range 20 {
		for _, tt := range tests {
			if got, ok := nt.lookup(tt.s); !ok || got != tt.want {
				t.Fatalf("lookup(%s) = %+v, %v; want %+v", tt.s, got, ok, tt.want)
			}
		}
	}
}
