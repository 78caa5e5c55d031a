package disasm

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func arm64NOPs(n int) []byte {
	data := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], 0xd503201f)
	}
	return data
}

func TestDisassembleARM64NOP(t *testing.T) {
	insts, err := Disassemble(arm64NOPs(2), Options{Arch: ArchARM64, BaseAddr: 0x1000})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
	if insts[0].Addr != 0x1000 {
		t.Errorf("addr[0] = 0x%x, want 0x1000", insts[0].Addr)
	}
	if insts[1].Addr != 0x1004 {
		t.Errorf("addr[1] = 0x%x, want 0x1004", insts[1].Addr)
	}
	if !strings.Contains(strings.ToLower(insts[0].Text), "nop") {
		t.Errorf("expected NOP, got: %s", insts[0].Text)
	}
}

func TestDisassembleX86(t *testing.T) {
	// push rbp; mov rbp, rsp; call 0x1010; pop rbp; ret
	code := []byte{0x55, 0x48, 0x89, 0xe5, 0xe8, 0x07, 0x00, 0x00, 0x00, 0x5d, 0xc3}
	insts, err := Disassemble(code, Options{BaseAddr: 0x1000})
	if err != nil {
		t.Fatal(err)
	}
	var mnemonics []string
	for _, in := range insts {
		mnemonics = append(mnemonics, strings.ToLower(in.Mnemonic))
	}
	if diff := cmp.Diff([]string{"push", "mov", "call", "pop", "ret"}, mnemonics); diff != "" {
		t.Errorf("mnemonics (-want +got):\n%s", diff)
	}
	if got := insts[2].Branch; got == nil || !got.IsCall || got.Target != 0x1010 {
		t.Errorf("call branch = %+v, want call to 0x1010", got)
	}
	if got := insts[4].Branch; got == nil || !got.IsRet {
		t.Errorf("ret branch = %+v", got)
	}
	if diff := cmp.Diff([]uint64{0x1010}, Calls(insts)); diff != "" {
		t.Errorf("Calls (-want +got):\n%s", diff)
	}
}

func TestDisassembleStopAtRet(t *testing.T) {
	code := []byte{0x90, 0xc3, 0x90, 0x90}
	insts, err := Disassemble(code, Options{StopAtRet: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
}

func TestDisassembleRIPRef(t *testing.T) {
	// mov rax, [rip+0x10] at 0x2000, 7 bytes long.
	code := []byte{0x48, 0x8b, 0x05, 0x10, 0x00, 0x00, 0x00}
	insts, err := Disassemble(code, Options{BaseAddr: 0x2000})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 1 || insts[0].Ref != 0x2017 {
		t.Fatalf("insts = %+v, want one with Ref 0x2017", insts)
	}
	ann := RefAnnotator(MapLookup(map[uint64]string{0x2017: "GWorld"}))
	if got := ann(insts[0]); got != "&GWorld" {
		t.Errorf("annotation = %q", got)
	}
}

func TestDisassemble386(t *testing.T) {
	// mov eax, [esp+4]; ret
	code := []byte{0x8b, 0x44, 0x24, 0x04, 0xc3}
	insts, err := Disassemble(code, Options{Arch: Arch386})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 2 || insts[0].Size != 4 {
		t.Fatalf("insts = %+v", insts)
	}
}

func TestDisassembleBadBytes(t *testing.T) {
	// 0x06 (push es) is invalid in 64-bit mode.
	insts, err := Disassemble([]byte{0x06, 0xc3}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 2 || insts[0].Mnemonic != ".byte" || insts[0].Size != 1 {
		t.Fatalf("insts = %+v", insts)
	}
}

func TestDisassembleMaxSteps(t *testing.T) {
	insts, err := Disassemble(arm64NOPs(100), Options{Arch: ArchARM64, MaxSteps: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 10 {
		t.Fatalf("got %d instructions, want 10", len(insts))
	}
}

func TestDisassembleEmpty(t *testing.T) {
	insts, err := Disassemble(nil, Options{})
	if err != nil || len(insts) != 0 {
		t.Fatalf("got %d instructions, %v for nil data", len(insts), err)
	}
}

func TestDisassembleShort(t *testing.T) {
	insts, _ := Disassemble([]byte{0x01, 0x02}, Options{Arch: ArchARM64})
	if len(insts) != 0 {
		t.Fatalf("got %d instructions for 2 bytes", len(insts))
	}
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in   string
		want Arch
	}{
		{"amd64", ArchAMD64},
		{"x86_64", ArchAMD64},
		{"", ArchAMD64},
		{"x86", Arch386},
		{"AArch64", ArchARM64},
	}
	for _, tt := range tests {
		got, err := ParseArch(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseArch(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseArch("mips"); !errors.Is(err, ErrArch) {
		t.Errorf("ParseArch(mips) err = %v, want ErrArch", err)
	}
	if _, err := Disassemble([]byte{0}, Options{Arch: "mips"}); !errors.Is(err, ErrArch) {
		t.Errorf("Disassemble(mips) err = %v, want ErrArch", err)
	}
}

func TestFormat(t *testing.T) {
	code := []byte{0xe8, 0x0b, 0x00, 0x00, 0x00, 0xc3} // call 0x1010; ret
	insts, _ := Disassemble(code, Options{BaseAddr: 0x1000})

	syms := map[uint64]string{0x1000: "Actor::vf0", 0x1010: "helper"}
	text := Format(insts, MapLookup(syms))
	if !strings.Contains(text, "0x00001000") {
		t.Errorf("missing address in output: %s", text)
	}
	if !strings.Contains(text, "<Actor::vf0>") {
		t.Errorf("missing symbol in output: %s", text)
	}
	if !strings.Contains(text, "e8 0b 00 00 00") {
		t.Errorf("missing bytes in output: %s", text)
	}

	// Without a symbol at the call site the target name is shown.
	text = Format(insts, MapLookup(map[uint64]string{0x1010: "helper"}))
	if !strings.Contains(text, "-> helper") {
		t.Errorf("missing target in output: %s", text)
	}
}

func TestFormatDeterministic(t *testing.T) {
	insts, _ := Disassemble(arm64NOPs(5), Options{Arch: ArchARM64, BaseAddr: 0x2000})
	out1 := Format(insts, nil)
	out2 := Format(insts, nil)
	if out1 != out2 {
		t.Error("Format output is not deterministic")
	}
	if n := strings.Count(out1, "\n"); n != 5 {
		t.Errorf("got %d lines, want 5", n)
	}
}
