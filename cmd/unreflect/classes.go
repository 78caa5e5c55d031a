package main

import (
	"flag"
	"fmt"
	"os"

	"unreflect/internal/output"
)

func cmdClasses(args []string) error {
	fs := flag.NewFlagSet("classes", flag.ExitOnError)
	tf := addTargetFlags(fs)
	outDir := fs.String("out", "", "write classes.json to this directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := tf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	classes := s.eng.Classes()
	if *outDir != "" || *tf.json {
		recs := make([]output.ClassRecord, len(classes))
		for i, c := range classes {
			recs[i] = output.NewClassRecord(c)
		}
		if *outDir == "" {
			return output.WriteJSON(os.Stdout, recs)
		}
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		if err := output.WriteClassesJSON(*outDir, recs); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d classes to %s\n", len(recs), *outDir)
		return nil
	}

	for _, c := range classes {
		super := "-"
		if c.Super != nil {
			super = c.Super.Path
		}
		fmt.Printf("0x%012x  %-48s  super=%s  fields=%d\n", c.Address, c.Path, super, len(c.Fields))
	}
	return nil
}
