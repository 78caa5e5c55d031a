package memory

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// maxCString caps zero-terminated reads, in characters.
	maxCString = 4096
	// cstringBlock is the transfer size used while scanning for the
	// terminator. Even, so wide characters never straddle two blocks.
	cstringBlock = 64
)

func textEncoding(wide bool) encoding.Encoding {
	if wide {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return charmap.ISO8859_1
}

// DecodeText converts raw target text to a Go string. wide selects
// UTF-16LE; otherwise each byte is one Latin-1 character.
func DecodeText(b []byte, wide bool) (string, error) {
	out, err := textEncoding(wide).NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("memory: decode text: %w", err)
	}
	return string(out), nil
}

// EncodeText is the inverse of DecodeText. The result carries no terminator.
func EncodeText(s string, wide bool) ([]byte, error) {
	out, err := textEncoding(wide).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("memory: encode text: %w", err)
	}
	return out, nil
}

// ReadCString reads a zero-terminated string at addr. wide selects
// two-byte characters terminated by a zero character.
func (r *Reader) ReadCString(addr uint64, wide bool) (string, error) {
	unit := 1
	if wide {
		unit = 2
	}
	var buf []byte
	for len(buf) < maxCString*unit {
		at := addr + uint64(len(buf))
		block, err := r.mem.ReadBytes(at, cstringBlock)
		if err != nil || len(block) != cstringBlock {
			// Near the end of a readable range; fall back to one character.
			block, err = r.ReadBytes(at, unit)
			if err != nil {
				return "", err
			}
		}
		for i := 0; i+unit <= len(block); i += unit {
			if isZero(block[i : i+unit]) {
				buf = append(buf, block[:i]...)
				return DecodeText(buf, wide)
			}
		}
		buf = append(buf, block...)
	}
	return "", fmt.Errorf("%w at 0x%x", ErrUnterminated, addr)
}

// ReadText reads exactly count characters at addr and trims trailing
// zero characters.
func (r *Reader) ReadText(addr uint64, count int, wide bool) (string, error) {
	unit := 1
	if wide {
		unit = 2
	}
	b, err := r.ReadBytes(addr, count*unit)
	if err != nil {
		return "", err
	}
	for len(b) >= unit && isZero(b[len(b)-unit:]) {
		b = b[:len(b)-unit]
	}
	return DecodeText(b, wide)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
