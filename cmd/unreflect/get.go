package main

import (
	"flag"
	"fmt"
	"os"

	"unreflect/internal/output"
)

func cmdGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	tf := addTargetFlags(fs)
	object := fs.String("object", "", "object path or address")
	field := fs.String("field", "", "field name (default: every field)")
	depth := fs.Int("depth", 1, "levels of nested structs to expand")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *object == "" {
		return fmt.Errorf("--object is required")
	}

	s, err := tf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	o, err := s.object(*object)
	if err != nil {
		return err
	}

	if *field == "" {
		rec := output.NewObjectRecord(o, true)
		if *tf.json {
			return output.WriteJSON(os.Stdout, rec)
		}
		for _, name := range o.FieldNames() {
			if msg, failed := rec.Errors[name]; failed {
				fmt.Printf("%-32s ! %s\n", name, msg)
				continue
			}
			fmt.Printf("%-32s = %v\n", name, rec.Values[name])
		}
		return nil
	}

	v, found, err := o.Get(*field)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s has no field %q", o, *field)
	}
	if *tf.json {
		return output.WriteJSON(os.Stdout, output.Value(v, *depth))
	}
	fmt.Printf("%v\n", output.Value(v, *depth))
	return nil
}
