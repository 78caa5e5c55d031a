package memory

import (
	"errors"
	"strings"
	"testing"
)

const sampleMaps = `55d0c0a00000-55d0c0a02000 r--p 00000000 08:01 1311 /usr/bin/game
55d0c0a02000-55d0c0a08000 r-xp 00002000 08:01 1311 /usr/bin/game
7f1a2c000000-7f1a2c021000 rw-p 00000000 00:00 0
7f1a2d400000-7f1a2d428000 r--p 00000000 08:01 2222 /opt/game/Engine Core.so
7f1a2d428000-7f1a2d5bd000 r-xp 00028000 08:01 2222 /opt/game/Engine Core.so
7ffc8a9d0000-7ffc8a9f1000 rw-p 00000000 00:00 0 [stack]
`

func TestParseModuleBase(t *testing.T) {
	tests := []struct {
		name string
		want uint64
	}{
		{"game", 0x55d0c0a00000},
		{"/usr/bin/game", 0x55d0c0a00000},
		{"Engine Core.so", 0x7f1a2d400000},
		{"[stack]", 0x7ffc8a9d0000},
	}
	for _, tt := range tests {
		got, err := parseModuleBase(strings.NewReader(sampleMaps), tt.name)
		if err != nil {
			t.Errorf("parseModuleBase(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseModuleBase(%q) = 0x%x, want 0x%x", tt.name, got, tt.want)
		}
	}

	if _, err := parseModuleBase(strings.NewReader(sampleMaps), "missing.so"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
}
