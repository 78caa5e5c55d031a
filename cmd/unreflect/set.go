package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"unreflect/internal/output"
)

func cmdSet(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	tf := addTargetFlags(fs)
	object := fs.String("object", "", "object path or address")
	field := fs.String("field", "", "field name, declared by the object's own class")
	value := fs.String("value", "", "new value")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *object == "" || *field == "" {
		return fmt.Errorf("--object and --field are required")
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
	f := o.Class.OwnField(*field)
	if f == nil {
		return fmt.Errorf("%s does not declare %q", o.Class, *field)
	}
	v, err := parseValue(f, *value, s)
	if err != nil {
		return fmt.Errorf("%s: %w", *field, err)
	}
	if _, err := o.Set(*field, v); err != nil {
		return err
	}
	s.log.Info("field written", zap.Stringer("object", o), zap.String("field", *field))

	got, _, err := o.Get(*field)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if *tf.json {
		return output.WriteJSON(os.Stdout, output.Value(got, 1))
	}
	fmt.Printf("%s.%s = %v\n", o, *field, output.Value(got, 1))
	return nil
}
