package main

import (
	"flag"
	"fmt"
	"os"

	"unreflect/internal/output"
)

func cmdFields(args []string) error {
	fs := flag.NewFlagSet("fields", flag.ExitOnError)
	tf := addTargetFlags(fs)
	class := fs.String("class", "", "class path or address")
	own := fs.Bool("own", false, "only fields the class itself declares")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *class == "" {
		return fmt.Errorf("--class is required")
	}

	s, err := tf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.class(*class)
	if err != nil {
		return err
	}

	if *tf.json {
		rec := output.NewClassRecord(c)
		if !*own {
			rec.Fields = nil
			for _, k := range c.Chain() {
				rec.Fields = append(rec.Fields, output.NewClassRecord(k).Fields...)
			}
		}
		return output.WriteJSON(os.Stdout, rec)
	}

	if *own {
		for _, f := range c.Fields {
			fmt.Println(f.Describe())
		}
		return nil
	}
	chain := c.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			fmt.Printf("%-24s %s\n", chain[i].Name, f.Describe())
		}
	}
	return nil
}
