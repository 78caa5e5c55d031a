// Package disasm decodes native code found through vtable slots. It
// supports x86-64, x86 and ARM64 targets.
package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// ErrArch is returned for an architecture name the package does not know.
var ErrArch = errors.New("disasm: unsupported architecture")

// Arch names an instruction set.
type Arch string

const (
	ArchAMD64 Arch = "amd64"
	Arch386   Arch = "386"
	ArchARM64 Arch = "arm64"
)

// ParseArch accepts the Go name of an architecture or a common alias.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "amd64", "x86_64", "x86-64", "x64", "":
		return ArchAMD64, nil
	case "386", "x86", "i386", "i686":
		return Arch386, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	}
	return "", fmt.Errorf("%w: %q", ErrArch, s)
}

// Inst is a decoded instruction with its address and encoding.
type Inst struct {
	Addr     uint64
	Raw      []byte
	Size     int
	Mnemonic string
	Operands string
	Text     string // full disassembly line

	// Branch is set for instructions that transfer control.
	Branch *BranchInfo
	// Ref is the absolute address of a PC-relative memory operand, if any.
	Ref uint64
}

// SymbolLookup resolves an address to a symbolic name. Returns ("", false) if unknown.
type SymbolLookup func(addr uint64) (name string, ok bool)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst Inst) string

// Options controls disassembly behavior.
type Options struct {
	Arch      Arch   // defaults to ArchAMD64
	BaseAddr  uint64 // VA of the first byte in data
	MaxSteps  int    // maximum instructions to decode; 0 = 4096
	StopAtRet bool   // stop after the first return
}

const defaultMaxSteps = 4096

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Disassemble decodes instructions from a byte region until MaxSteps, the
// end of data, or (with StopAtRet) the first return. Undecodable bytes
// become data pseudo-instructions.
func Disassemble(data []byte, opts Options) ([]Inst, error) {
	arch := opts.Arch
	if arch == "" {
		arch = ArchAMD64
	}
	var step func([]byte, uint64) Inst
	switch arch {
	case ArchAMD64:
		step = func(b []byte, pc uint64) Inst { return decodeX86(b, pc, 64) }
	case Arch386:
		step = func(b []byte, pc uint64) Inst { return decodeX86(b, pc, 32) }
	case ArchARM64:
		step = decodeARM64
	default:
		return nil, fmt.Errorf("%w: %q", ErrArch, arch)
	}

	maxSteps := opts.effectiveMax()
	var result []Inst
	for off := 0; off < len(data) && len(result) < maxSteps; {
		inst := step(data[off:], opts.BaseAddr+uint64(off))
		if inst.Size == 0 {
			break
		}
		result = append(result, inst)
		off += inst.Size
		if opts.StopAtRet && inst.Branch != nil && inst.Branch.IsRet {
			break
		}
	}
	return result, nil
}

func decodeX86(b []byte, pc uint64, mode int) Inst {
	inst, err := x86asm.Decode(b, mode)
	if err != nil || inst.Len == 0 {
		return Inst{
			Addr:     pc,
			Raw:      b[:1:1],
			Size:     1,
			Mnemonic: ".byte",
			Operands: fmt.Sprintf("0x%02x", b[0]),
			Text:     fmt.Sprintf(".byte 0x%02x", b[0]),
		}
	}
	text := x86asm.IntelSyntax(inst, pc, nil)
	out := Inst{
		Addr:   pc,
		Raw:    b[:inst.Len:inst.Len],
		Size:   inst.Len,
		Text:   text,
		Branch: x86Branch(inst, pc),
	}
	out.Mnemonic, out.Operands = splitText(text)
	for _, a := range inst.Args {
		if m, ok := a.(x86asm.Mem); ok && m.Base == x86asm.RIP {
			out.Ref = uint64(int64(pc) + int64(inst.Len) + m.Disp)
		}
	}
	return out
}

func decodeARM64(b []byte, pc uint64) Inst {
	if len(b) < 4 {
		return Inst{}
	}
	raw := binary.LittleEndian.Uint32(b)
	out := Inst{
		Addr:   pc,
		Raw:    b[:4:4],
		Size:   4,
		Branch: DecodeBranch(raw, pc),
	}
	inst, err := arm64asm.Decode(b[:4])
	if err != nil {
		out.Mnemonic = ".word"
		out.Operands = fmt.Sprintf("0x%08x", raw)
		out.Text = fmt.Sprintf(".word 0x%08x", raw)
		return out
	}
	out.Text = inst.String()
	out.Mnemonic, out.Operands = splitText(out.Text)
	return out
}

func splitText(text string) (mnemonic, operands string) {
	mnemonic, operands, _ = strings.Cut(text, " ")
	return mnemonic, strings.TrimSpace(operands)
}

// Format renders a slice of instructions as stable text output.
// Each line: <addr>  <hex bytes>  <disasm>  ; <comments>
// A symbol at the instruction's own address wins; otherwise a named branch
// target, then the first non-empty annotator.
func Format(insts []Inst, lookup SymbolLookup, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%08x  ", inst.Addr)
		hex := make([]string, len(inst.Raw))
		for i, c := range inst.Raw {
			hex[i] = fmt.Sprintf("%02x", c)
		}
		fmt.Fprintf(&b, "%-24s  ", strings.Join(hex, " "))
		b.WriteString(inst.Text)

		if comment := comment(inst, lookup, annotators); comment != "" {
			b.WriteString("  ; ")
			b.WriteString(comment)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func comment(inst Inst, lookup SymbolLookup, annotators []Annotator) string {
	if lookup != nil {
		if name, ok := lookup(inst.Addr); ok {
			return "<" + name + ">"
		}
		if bi := inst.Branch; bi != nil && bi.Target != 0 {
			if name, ok := lookup(bi.Target); ok {
				return "-> " + name
			}
		}
	}
	for _, ann := range annotators {
		if s := ann(inst); s != "" {
			return s
		}
	}
	return ""
}

// MapLookup returns a SymbolLookup over a fixed address → name table.
func MapLookup(names map[uint64]string) SymbolLookup {
	return func(addr uint64) (string, bool) {
		name, ok := names[addr]
		return name, ok
	}
}

// RefAnnotator annotates instructions whose PC-relative operand points at
// a known address.
func RefAnnotator(lookup SymbolLookup) Annotator {
	return func(inst Inst) string {
		if inst.Ref == 0 {
			return ""
		}
		if name, ok := lookup(inst.Ref); ok {
			return "&" + name
		}
		return ""
	}
}

// Calls lists the direct call targets in insts, in order, without
// duplicates.
func Calls(insts []Inst) []uint64 {
	var out []uint64
	seen := make(map[uint64]bool)
	for _, inst := range insts {
		bi := inst.Branch
		if bi == nil || !bi.IsCall || bi.Target == 0 || seen[bi.Target] {
			continue
		}
		seen[bi.Target] = true
		out = append(out, bi.Target)
	}
	return out
}
