package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zboralski/lattice"

	"unreflect/internal/disasm"
)

// maxBlockLines caps instruction lines per CFG node; longer blocks keep
// their head and tail.
const maxBlockLines = 12

// CFGDOT draws one function's basic blocks. Branches leaving the function
// (tail calls, jumps into other code) end at a separate target node
// named through lookup when possible.
func CFGDOT(cfg disasm.FuncCFG, lookup disasm.SymbolLookup, t Theme) string {
	if len(cfg.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph cfg {\n  rankdir=TB;\n  nodesep=0.3;\n  ranksep=0.4;\n  bgcolor=%q;\n", t.Canvas)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.Fill, t.Stroke, t.Ink)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n\n",
		t.Ink, dotEscape(cfg.Name))

	var exits []uint64
	for _, blk := range cfg.Blocks {
		var attrs []string
		if blk.IsEntry {
			attrs = append(attrs, "penwidth=1.5", fmt.Sprintf("color=%q", t.Entry))
		}
		if blk.IsTerm {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", t.Idle))
		}
		fmt.Fprintf(&b, "  %s [label=<%s>", blockID(blk.ID), blockLabel(cfg, blk, lookup))
		for _, a := range attrs {
			b.WriteString(", " + a)
		}
		b.WriteString("];\n")
		exits = append(exits, blk.Exits...)
	}
	slices.Sort(exits)
	exits = slices.Compact(exits)
	for _, x := range exits {
		fmt.Fprintf(&b, "  x_%x [shape=plaintext, style=\"\", fontcolor=%q, label=%q];\n", x, t.Exit, symbolOr(lookup, x))
	}
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		from := blockID(blk.ID)
		for _, s := range blk.Succs {
			color, tag := t.Jump, ""
			switch s.Cond {
			case "T":
				color, tag = t.Taken, "T"
			case "F":
				color, tag = t.Fallthrough, "F"
			}
			fmt.Fprintf(&b, "  %s -> %s [color=%q", from, blockID(s.BlockID), color)
			if tag != "" {
				fmt.Fprintf(&b, ", label=<<font point-size=\"7\" color=\"%s\">%s</font>>", color, tag)
			}
			b.WriteString("];\n")
		}
		for _, x := range blk.Exits {
			fmt.Fprintf(&b, "  %s -> x_%x [color=%q, style=dashed];\n", from, x, t.Exit)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// blockLabel lists a block's instructions, one left-aligned line each,
// with known branch targets named in a trailing comment.
func blockLabel(cfg disasm.FuncCFG, blk disasm.BasicBlock, lookup disasm.SymbolLookup) string {
	end := min(blk.End, len(cfg.Insts))
	var lines []string
	for _, inst := range cfg.Insts[blk.Start:end] {
		line := fmt.Sprintf("0x%x: %s", inst.Addr, inst.Text)
		if bi := inst.Branch; bi != nil && bi.Target != 0 && lookup != nil {
			if name, ok := lookup(bi.Target); ok {
				line += "  ; " + name
			}
		}
		lines = append(lines, dotEscape(line))
	}
	if n := len(lines); n > maxBlockLines {
		keep := maxBlockLines / 2
		tail := slices.Clone(lines[n-keep+1:])
		lines = append(lines[:keep-1], fmt.Sprintf("... (%d more)", n-2*keep+2))
		lines = append(lines, tail...)
	}
	return strings.Join(lines, `<br align="left"/>`) + `<br align="left"/>`
}

func symbolOr(lookup disasm.SymbolLookup, addr uint64) string {
	if lookup != nil {
		if name, ok := lookup(addr); ok {
			return name
		}
	}
	return fmt.Sprintf("0x%x", addr)
}

// LatticeCFG converts dcfg for lattice rendering. Calls and tail calls
// become call sites at their instruction index; indirect calls are named
// "(indirect)".
func LatticeCFG(dcfg disasm.FuncCFG, lookup disasm.SymbolLookup) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{ID: db.ID, Start: db.Start, End: db.End, Term: db.IsTerm}
		for _, s := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: s.BlockID, Cond: s.Cond})
		}
		end := min(db.End, len(dcfg.Insts))
		for idx := db.Start; idx < end; idx++ {
			bi := dcfg.Insts[idx].Branch
			switch {
			case bi == nil:
				continue
			case bi.IsCall && bi.Indirect:
				lb.Calls = append(lb.Calls, lattice.CallSite{Offset: idx, Callee: "(indirect)"})
			case bi.IsCall, slices.Contains(db.Exits, bi.Target):
				lb.Calls = append(lb.Calls, lattice.CallSite{Offset: idx, Callee: symbolOr(lookup, bi.Target)})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
