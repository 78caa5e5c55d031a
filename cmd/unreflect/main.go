package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "objects":
		err = cmdObjects(os.Args[2:])
	case "classes":
		err = cmdClasses(os.Args[2:])
	case "fields":
		err = cmdFields(os.Args[2:])
	case "get":
		err = cmdGet(os.Args[2:])
	case "set":
		err = cmdSet(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "vtable":
		err = cmdVTable(os.Args[2:])
	case "browse":
		err = cmdBrowse(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `unreflect: Unreal object model explorer for live processes and memory images

Usage:
  unreflect objects --config <file> <target> [--class <path>] [--values]   List discovered objects
  unreflect classes --config <file> <target> [--out <dir>]                 List resolved classes
  unreflect fields  --config <file> <target> --class <path>                List a class's fields
  unreflect get     --config <file> <target> --object <path> [--field <name>]
  unreflect set     --config <file> <target> --object <path> --field <name> --value <v>
  unreflect graph   --config <file> <target> [--refs] [--out <file>]       Class or reference graph (DOT)
  unreflect vtable  --config <file> <target> --class <path> [--out <dir>]  Disassemble virtual functions
  unreflect browse  --config <file> <target>                               Interactive object explorer

Target (one of):
  --pid <n>             Attach to a running process (Linux)
    --module <name>     Module whose load address rebases the config (default: config "module")
    --no-suspend        Leave the process running while reading
  --core <file>         Read an ELF core dump
    --module-base <addr> Actual module load address for rebasing
  --image <file>        Read a raw memory image
    --image-base <addr> Address of the image's first byte
    --module-base <addr> Actual module load address for rebasing

Flags:
  --json                Machine-readable output

Environment:
  UNREFLECT_DEBUG=1     Debug logging to stderr
`)
}
