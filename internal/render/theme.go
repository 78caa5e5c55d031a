package render

import (
	"fmt"
	"sort"
	"strings"
)

// Theme is the palette shared by class graphs and vtable CFGs.
type Theme struct {
	Canvas string
	Fill   string
	Stroke string
	Ink    string
	Muted  string // subtitles, package labels

	Super       string // class -> superclass edge
	Idle        string // fill for classes with no live instances
	Frame       string // package cluster border
	Entry       string // CFG entry block border
	Jump        string // CFG unconditional edge
	Taken       string // CFG condition true
	Fallthrough string // CFG condition false
	Exit        string // CFG targets outside the function
}

// NASA is light and mostly monochrome, with blue and red for branches.
var NASA = Theme{
	Canvas: "#F5F5F5",
	Fill:   "white",
	Stroke: "#1A1A1A",
	Ink:    "#1A1A1A",
	Muted:  "#9E9E9E",

	Super:       "#424242",
	Idle:        "#ECEFF1",
	Frame:       "#BDBDBD",
	Entry:       "#0B3D91",
	Jump:        "#424242",
	Taken:       "#0B3D91",
	Fallthrough: "#FC3D21",
	Exit:        "#757575",
}

// Console suits dark viewers.
var Console = Theme{
	Canvas: "#121212",
	Fill:   "#1E1E1E",
	Stroke: "#616161",
	Ink:    "#E0E0E0",
	Muted:  "#8D8D8D",

	Super:       "#9E9E9E",
	Idle:        "#2A2A2A",
	Frame:       "#424242",
	Entry:       "#64B5F6",
	Jump:        "#9E9E9E",
	Taken:       "#64B5F6",
	Fallthrough: "#FF8A65",
	Exit:        "#B0BEC5",
}

var themes = map[string]Theme{
	"nasa":    NASA,
	"console": Console,
}

// ThemeNamed looks up a theme by case-insensitive name.
func ThemeNamed(name string) (Theme, error) {
	if t, ok := themes[strings.ToLower(name)]; ok {
		return t, nil
	}
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return Theme{}, fmt.Errorf("render: unknown theme %q (have %s)", name, strings.Join(names, ", "))
}
