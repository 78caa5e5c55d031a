package disasm

import "golang.org/x/arch/x86/x86asm"

// BranchInfo describes a decoded control transfer.
type BranchInfo struct {
	Target   uint64 // absolute target address (0 if RET or indirect)
	Cond     bool   // true if conditional (has fallthrough)
	IsRet    bool   // true if RET
	IsCall   bool   // true for calls, which return to the next instruction
	Indirect bool   // target held in a register or memory
}

// Terminates reports whether the transfer ends a basic block. Calls do
// not.
func (b *BranchInfo) Terminates() bool {
	return b != nil && !b.IsCall
}

// arm64Direct lists the PC-relative arm64 branch encodings: the opcode
// mask and value, and where the word offset sits in the instruction.
var arm64Direct = []struct {
	mask, value  uint32
	shift, width int
	cond, call   bool
}{
	{0xFC000000, 0x94000000, 0, 26, false, true},  // BL
	{0xFC000000, 0x14000000, 0, 26, false, false}, // B
	{0xFF000010, 0x54000000, 5, 19, true, false},  // B.cond
	{0x7E000000, 0x34000000, 5, 19, true, false},  // CBZ, CBNZ
	{0x7E000000, 0x36000000, 5, 14, true, false},  // TBZ, TBNZ
}

// DecodeBranch classifies the arm64 instruction raw at pc. It returns nil
// for anything that is not a branch, call or return.
func DecodeBranch(raw uint32, pc uint64) *BranchInfo {
	switch raw & 0xFFFFFC1F {
	case 0xD65F0000: // RET Xn
		return &BranchInfo{IsRet: true}
	case 0xD61F0000: // BR Xn
		return &BranchInfo{Indirect: true}
	case 0xD63F0000: // BLR Xn
		return &BranchInfo{IsCall: true, Indirect: true}
	}
	for _, e := range arm64Direct {
		if raw&e.mask != e.value {
			continue
		}
		imm := (raw >> e.shift) & (1<<e.width - 1)
		off := int64(signExtend(imm, e.width)) * 4
		return &BranchInfo{Target: uint64(int64(pc) + off), Cond: e.cond, IsCall: e.call}
	}
	return nil
}

// signExtend widens the low bits of val, two's complement.
func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask) // negative
	}
	return int32(val & mask)
}

// IsBranchTerminator reports whether the arm64 instruction ends a basic
// block. BL and BLR do not.
func IsBranchTerminator(raw uint32) bool {
	return DecodeBranch(raw, 0).Terminates()
}

var x86CondJumps = map[x86asm.Op]bool{
	x86asm.JA: true, x86asm.JAE: true, x86asm.JB: true, x86asm.JBE: true,
	x86asm.JCXZ: true, x86asm.JE: true, x86asm.JECXZ: true, x86asm.JG: true,
	x86asm.JGE: true, x86asm.JL: true, x86asm.JLE: true, x86asm.JNE: true,
	x86asm.JNO: true, x86asm.JNP: true, x86asm.JNS: true, x86asm.JO: true,
	x86asm.JP: true, x86asm.JRCXZ: true, x86asm.JS: true,
	x86asm.LOOP: true, x86asm.LOOPE: true, x86asm.LOOPNE: true,
}

// x86Branch classifies a decoded x86 instruction at pc.
func x86Branch(inst x86asm.Inst, pc uint64) *BranchInfo {
	var bi BranchInfo
	switch {
	case inst.Op == x86asm.RET || inst.Op == x86asm.LRET:
		return &BranchInfo{IsRet: true}
	case inst.Op == x86asm.CALL:
		bi.IsCall = true
	case inst.Op == x86asm.JMP:
	case x86CondJumps[inst.Op]:
		bi.Cond = true
	default:
		return nil
	}
	if rel, ok := inst.Args[0].(x86asm.Rel); ok {
		bi.Target = uint64(int64(pc) + int64(inst.Len) + int64(rel))
	} else {
		bi.Indirect = true
	}
	return &bi
}
