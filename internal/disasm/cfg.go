package disasm

import "slices"

// BasicBlock is a run of instructions entered only at its first one.
// Start and End index FuncCFG.Insts, End exclusive.
type BasicBlock struct {
	ID      int
	Start   int
	End     int
	Succs   []Succ
	IsEntry bool
	IsTerm  bool // returns, or leaves the function for good

	Calls []uint64 // direct call targets, in order
	Exits []uint64 // branch targets outside the function (tail calls)
}

// Succ is an edge to another block of the same function.
// Cond is "" for unconditional edges, "T" for a taken conditional branch
// and "F" for its fallthrough.
type Succ struct {
	BlockID int
	Cond    string
}

// FuncCFG is the control flow graph of one decoded function.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG splits insts into basic blocks. A block starts at the entry,
// at every in-function branch target and after every terminator; calls
// do not end a block.
func BuildCFG(name string, insts []Inst) FuncCFG {
	cfg := FuncCFG{Name: name, Insts: insts}
	if len(insts) == 0 {
		return cfg
	}

	index := make(map[uint64]int, len(insts))
	for i, inst := range insts {
		index[inst.Addr] = i
	}
	// inside maps a branch target to its instruction index, or -1 when
	// the target is not an instruction boundary of this function.
	inside := func(target uint64) int {
		if i, ok := index[target]; ok && target != 0 {
			return i
		}
		return -1
	}

	starts := []int{0}
	for i, inst := range insts {
		if !inst.Branch.Terminates() {
			continue
		}
		if i+1 < len(insts) {
			starts = append(starts, i+1)
		}
		if t := inside(inst.Branch.Target); t >= 0 {
			starts = append(starts, t)
		}
	}
	slices.Sort(starts)
	starts = slices.Compact(starts)

	blockOf := make(map[int]int, len(starts))
	for id, start := range starts {
		end := len(insts)
		if id+1 < len(starts) {
			end = starts[id+1]
		}
		blockOf[start] = id
		cfg.Blocks = append(cfg.Blocks, BasicBlock{ID: id, Start: start, End: end, IsEntry: id == 0})
	}

	for id := range cfg.Blocks {
		blk := &cfg.Blocks[id]
		for _, inst := range insts[blk.Start:blk.End] {
			if bi := inst.Branch; bi != nil && bi.IsCall && bi.Target != 0 {
				blk.Calls = append(blk.Calls, bi.Target)
			}
		}

		next, hasNext := blockOf[blk.End]
		bi := insts[blk.End-1].Branch
		switch {
		case !bi.Terminates():
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next})
			}
		case bi.IsRet, bi.Indirect && !bi.Cond:
			blk.IsTerm = true
		default:
			t := inside(bi.Target)
			if t < 0 && bi.Target != 0 {
				blk.Exits = append(blk.Exits, bi.Target)
			}
			if bi.Cond {
				if t >= 0 {
					blk.Succs = append(blk.Succs, Succ{BlockID: blockOf[t], Cond: "T"})
				}
				if hasNext {
					blk.Succs = append(blk.Succs, Succ{BlockID: next, Cond: "F"})
				}
			} else if t >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: blockOf[t]})
			} else {
				blk.IsTerm = true
			}
		}
	}
	return cfg
}
