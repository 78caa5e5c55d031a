package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lrender "github.com/zboralski/lattice/render"

	"unreflect/internal/render"
	"unreflect/internal/unreal"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	tf := addTargetFlags(fs)
	refs := fs.Bool("refs", false, "object reference graph instead of the class hierarchy")
	plain := fs.Bool("plain", false, "plain lattice layout without package clusters")
	class := fs.String("class", "", "only instances of this class path")
	maxNodes := fs.Int("max-nodes", 0, "limit rendered classes (0 = all)")
	themeName := fs.String("theme", "nasa", "DOT palette: nasa or console")
	outFile := fs.String("out", "", "write DOT to this file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	theme, err := render.ThemeNamed(*themeName)
	if err != nil {
		return err
	}

	s, err := tf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	objs := s.eng.Objects()
	title := "classes"
	if *class != "" {
		c, err := s.class(*class)
		if err != nil {
			return err
		}
		objs = s.eng.ObjectsOf(c)
		title = c.Path
	}

	var dot string
	switch {
	case *refs:
		dot = lrender.DOT(render.References(objs), title+" references")
	case *plain:
		dot = lrender.DOT(render.Hierarchy(classesOf(objs)), title)
	default:
		counts := make(map[*unreal.Class]int)
		for _, o := range objs {
			counts[o.Class]++
		}
		dot = render.ClassgraphDOT(classesOf(objs), counts, title, theme, *maxNodes)
	}

	var w io.Writer = os.Stdout
	if *outFile != "" {
		if err := os.MkdirAll(filepath.Dir(*outFile), 0755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		f, err := os.Create(*outFile)
		if err != nil {
			return fmt.Errorf("create: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, dot); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if *outFile != "" {
		fmt.Fprintf(os.Stderr, "wrote %s (%d objects)\n", *outFile, len(objs))
	}
	return nil
}

// classesOf lists the distinct classes of objs in first-seen order.
func classesOf(objs []*unreal.Object) []*unreal.Class {
	var out []*unreal.Class
	seen := make(map[*unreal.Class]bool)
	for _, o := range objs {
		if o.Class != nil && !seen[o.Class] {
			seen[o.Class] = true
			out = append(out, o.Class)
		}
	}
	return out
}
