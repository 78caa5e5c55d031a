package main

import (
	"flag"
	"fmt"
	"os"

	"unreflect/internal/output"
	"unreflect/internal/unreal"
)

func cmdObjects(args []string) error {
	fs := flag.NewFlagSet("objects", flag.ExitOnError)
	tf := addTargetFlags(fs)
	class := fs.String("class", "", "only instances of this class path (subclasses included)")
	values := fs.Bool("values", false, "decode every field (JSON output only)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := tf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	objs := s.eng.Objects()
	if *class != "" {
		c, err := s.class(*class)
		if err != nil {
			return err
		}
		objs = s.eng.ObjectsOf(c)
	}

	if *tf.json {
		w := output.NewJSONL(os.Stdout)
		for _, o := range objs {
			if err := w.Write(output.NewObjectRecord(o, *values)); err != nil {
				return err
			}
		}
		return nil
	}

	for _, o := range objs {
		fmt.Printf("0x%012x  %-40s  %s\n", o.Address, o.Class, o.Path)
	}
	fmt.Fprintf(os.Stderr, "%d objects, %d classes\n", len(objs), countClasses(objs))
	return nil
}

func countClasses(objs []*unreal.Object) int {
	seen := make(map[*unreal.Class]bool)
	for _, o := range objs {
		seen[o.Class] = true
	}
	return len(seen)
}
