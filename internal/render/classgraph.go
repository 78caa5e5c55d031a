package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"unreflect/internal/unreal"
)

// ClassgraphDOT renders the class hierarchy with one node per class and an
// edge from each class to its superclass. Classes are grouped into one
// cluster per package. instances gives the number of discovered objects of
// each class; classes without any are drawn with the abstract fill.
// maxNodes limits rendered classes (0 = all), keeping those with the most
// instances and subclasses.
func ClassgraphDOT(classes []*unreal.Class, instances map[*unreal.Class]int, title string, t Theme, maxNodes int) string {
	// Close over ancestors so every edge has both ends available.
	var all []*unreal.Class
	seen := make(map[*unreal.Class]bool)
	for _, c := range classes {
		for k := c; k != nil && !seen[k]; k = k.Super {
			seen[k] = true
			all = append(all, k)
		}
	}

	subclasses := make(map[*unreal.Class]int)
	for _, c := range all {
		if c.Super != nil {
			subclasses[c.Super]++
		}
	}

	ranked := make([]*unreal.Class, len(all))
	copy(ranked, all)
	weight := func(c *unreal.Class) int { return instances[c] + subclasses[c] }
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := weight(ranked[i]), weight(ranked[j])
		if wi != wj {
			return wi > wj
		}
		return ranked[i].Path < ranked[j].Path
	})
	if maxNodes > 0 && len(ranked) > maxNodes {
		ranked = ranked[:maxNodes]
	}
	renderSet := make(map[*unreal.Class]bool, len(ranked))
	for _, c := range ranked {
		renderSet[c] = true
	}

	var b strings.Builder
	b.WriteString("digraph classgraph {\n")
	b.WriteString("  rankdir=BT;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Canvas)
	fmt.Fprintf(&b, "  node [shape=rect, style=\"filled,rounded\", fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=10, fontcolor=%q, height=0.4, margin=\"0.15,0.08\"];\n",
		t.Fill, t.Stroke, t.Ink)
	fmt.Fprintf(&b, "  edge [penwidth=0.7, arrowsize=0.5, arrowhead=empty, color=%q];\n", t.Super)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.Ink, dotEscape(title))
	}
	b.WriteByte('\n')

	maxFields := 1
	for _, c := range ranked {
		if n := len(c.Fields); n > maxFields {
			maxFields = n
		}
	}

	// Group nodes by package, packages in sorted order.
	byPkg := make(map[string][]*unreal.Class)
	var pkgs []string
	for _, c := range ranked {
		pkg := packageOf(c.Path)
		if _, ok := byPkg[pkg]; !ok {
			pkgs = append(pkgs, pkg)
		}
		byPkg[pkg] = append(byPkg[pkg], c)
	}
	sort.Strings(pkgs)

	for i, pkg := range pkgs {
		indent := "  "
		if pkg != "" {
			fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
			fmt.Fprintf(&b, "    style=rounded; color=%q; penwidth=0.5;\n", t.Frame)
			fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
				t.Muted, dotEscape(pkg))
			indent = "    "
		}
		members := byPkg[pkg]
		sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })
		for _, c := range members {
			fields := len(c.Fields)
			// Scale node height by declared field count (log scale).
			height := 0.4 + 0.3*math.Log2(float64(fields)+1)/math.Log2(float64(maxFields)+1)
			label := fmt.Sprintf("<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">%d fields · %d instances</font>>",
				dotEscape(truncLabel(c.Name, 48)), t.Muted, fields, instances[c])
			attrs := fmt.Sprintf("label=%s, height=%.2f", label, height)
			if instances[c] == 0 {
				attrs += fmt.Sprintf(", fillcolor=%q", t.Idle)
			}
			fmt.Fprintf(&b, "%s%s [%s];\n", indent, dotID(c.Path), attrs)
		}
		if pkg != "" {
			b.WriteString("  }\n")
		}
	}
	b.WriteByte('\n')

	for _, c := range ranked {
		if c.Super == nil || !renderSet[c.Super] {
			continue
		}
		fmt.Fprintf(&b, "  %s -> %s;\n", dotID(c.Path), dotID(c.Super.Path))
	}

	b.WriteString("}\n")
	return b.String()
}
