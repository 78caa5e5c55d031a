package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zboralski/lattice"
	lrender "github.com/zboralski/lattice/render"
	"go.uber.org/zap"

	"unreflect/internal/disasm"
	"unreflect/internal/output"
	"unreflect/internal/render"
	"unreflect/internal/unreal"
)

type vtableSlot struct {
	Slot    int        `json:"slot"`
	Address output.Hex `json:"address"`
	Name    string     `json:"name"`
	Insts   int        `json:"insts"`
	Blocks  int        `json:"blocks"`
	Calls   []string   `json:"calls,omitempty"`
	Refs    []string   `json:"refs,omitempty"`
	Error   string     `json:"error,omitempty"`
}

func cmdVTable(args []string) error {
	fs := flag.NewFlagSet("vtable", flag.ExitOnError)
	tf := addTargetFlags(fs)
	class := fs.String("class", "", "class path or address")
	slots := fs.Int("slots", 32, "number of vtable slots to read")
	only := fs.Int("slot", -1, "disassemble only this slot")
	nbytes := fs.Int("bytes", 512, "bytes of code to read per function")
	maxSteps := fs.Int("max-steps", 0, "instruction cap per function (0 = default)")
	themeName := fs.String("theme", "nasa", "DOT palette: nasa or console")
	outDir := fs.String("out", "", "write asm/ listings and cfg/ DOT files to this directory")

	if err := fs.Parse(args); err != nil {
		return err
	}
	theme, err := render.ThemeNamed(*themeName)
	if err != nil {
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
	if c.VTable == 0 {
		return fmt.Errorf("%s has no vtable", c.Path)
	}
	arch, err := disasm.ParseArch(s.eng.Config().Arch)
	if err != nil {
		return err
	}

	r := s.eng.Reader()
	ptrs, err := r.ReadPointers(c.VTable, *slots)
	if err != nil {
		return fmt.Errorf("read vtable: %w", err)
	}

	symbols := symbolTable(s.eng)
	for i, p := range ptrs {
		if _, ok := symbols[p]; !ok && p != 0 {
			symbols[p] = fmt.Sprintf("%s::vf%d", c.Name, i)
		}
	}
	lookup := disasm.MapLookup(symbols)
	refs := disasm.RefAnnotator(lookup)
	name := func(addr uint64) string {
		if n, ok := lookup(addr); ok {
			return n
		}
		return fmt.Sprintf("0x%x", addr)
	}

	var report []vtableSlot
	combined := &lattice.CFGGraph{}
	for i, p := range ptrs {
		if (*only >= 0 && i != *only) || p == 0 {
			continue
		}
		rec := vtableSlot{Slot: i, Address: output.Hex(p), Name: name(p)}

		code, err := readCode(r.ReadBytes, p, *nbytes)
		if err != nil {
			s.log.Warn("slot unreadable", zap.Int("slot", i), zap.Uint64("addr", p), zap.Error(err))
			rec.Error = err.Error()
			report = append(report, rec)
			continue
		}
		insts, err := disasm.Disassemble(code, disasm.Options{
			Arch:      arch,
			BaseAddr:  p,
			MaxSteps:  *maxSteps,
			StopAtRet: true,
		})
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		cfg := disasm.BuildCFG(rec.Name, insts)
		rec.Insts = len(insts)
		rec.Blocks = len(cfg.Blocks)
		for _, t := range disasm.Calls(insts) {
			rec.Calls = append(rec.Calls, name(t))
		}
		for _, inst := range insts {
			if inst.Ref != 0 {
				if n, ok := lookup(inst.Ref); ok {
					rec.Refs = append(rec.Refs, n)
				}
			}
		}
		report = append(report, rec)
		combined.Funcs = append(combined.Funcs, render.LatticeCFG(cfg, lookup))

		if *outDir != "" {
			file := fmt.Sprintf("%s/vf%d", c.Name, i)
			if err := output.WriteASM(*outDir, file, insts, lookup, refs); err != nil {
				return err
			}
			if err := writeCFG(*outDir, file, render.CFGDOT(cfg, lookup, theme)); err != nil {
				return err
			}
			continue
		}
		if !*tf.json {
			fmt.Printf("; %s  slot %d  0x%x\n", rec.Name, i, p)
			fmt.Print(disasm.Format(insts, lookup, refs))
			fmt.Println()
		}
	}

	if *tf.json {
		return output.WriteJSON(os.Stdout, report)
	}
	if *outDir != "" {
		if err := writeCFG(*outDir, c.Name+"/vtable", lrender.DOTCFG(combined, c.Path)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d functions to %s\n", len(report), *outDir)
	}
	return nil
}

// symbolTable names every known object and class address, plus class
// vtables.
func symbolTable(e *unreal.Engine) map[uint64]string {
	m := make(map[uint64]string)
	for _, c := range e.Classes() {
		m[c.Address] = c.Path
		if c.VTable != 0 {
			m[c.VTable] = c.Path + "::vtable"
		}
	}
	for _, o := range e.Objects() {
		if _, ok := m[o.Address]; !ok {
			m[o.Address] = o.Path
		}
	}
	return m
}

// readCode reads up to n bytes at addr, halving the request when the read
// runs off mapped memory.
func readCode(read func(uint64, int) ([]byte, error), addr uint64, n int) ([]byte, error) {
	var err error
	for ; n >= 16; n /= 2 {
		var b []byte
		if b, err = read(addr, n); err == nil {
			return b, nil
		}
	}
	return nil, err
}

func writeCFG(dir, name, dot string) error {
	path := filepath.Join(dir, "cfg", name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir cfg: %w", err)
	}
	return os.WriteFile(path, []byte(dot), 0644)
}
