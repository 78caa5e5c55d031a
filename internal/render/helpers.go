// Package render draws the reflected class graph and vtable code as
// Graphviz DOT, directly or through lattice graphs.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// dotEscape makes s safe inside an HTML-like DOT label.
func dotEscape(s string) string { return htmlEscaper.Replace(s) }

// dotID maps an object path to a DOT identifier. Anything outside
// [A-Za-z0-9_] becomes _XXXX so distinct paths stay distinct.
func dotID(path string) string {
	id := []byte("n_")
	for _, r := range path {
		switch {
		case r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			id = append(id, byte(r))
		default:
			id = fmt.Appendf(id, "_%04x", r)
		}
	}
	return string(id)
}

// packageOf returns the package part of an object path:
// "/Script/Engine.Actor" gives "/Script/Engine", "Actor" gives "".
func packageOf(path string) string {
	pkg, _, found := strings.Cut(path, ".")
	if !found || pkg == "" {
		return ""
	}
	return pkg
}

// truncLabel caps s at max runes, marking the cut with "...".
func truncLabel(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

// blockID names a CFG block node.
func blockID(id int) string { return fmt.Sprintf("bb%d", id) }
