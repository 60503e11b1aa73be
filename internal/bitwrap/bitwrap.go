// Package bitwrap decodes just enough of the LLVM bitcode wrapper and
// bitstream format to recover a module's target-triple record. It is the
// optional-feature collaborator behind bitcode-wrapper inputs; nothing
// here validates or interprets the rest of the module.
package bitwrap

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wrapperMagic = 0x0b17c0de
	bitcodeMagic = 0xdec04342 // little-endian read of 'B' 'C' 0xC0 0xDE

	moduleBlockID    = 8
	tripleRecordCode = 2
)

// ErrTripleNotFound is returned when the top-level stream ends, or is cut
// short inside a top-level block header, before a target-triple record is
// found in any module block.
var ErrTripleNotFound = errors.New("bitwrap: target triple not found")

// TargetTriple extracts the target-triple string from a bitcode-wrapped
// LLVM module, per the wrapper+bitstream layout documented in LLVM's
// BitCodeFormat.rst: module block id 8, record id 2 (MODULE_CODE_TRIPLE),
// fields are 8-bit characters of an ASCII triple.
func TargetTriple(data []byte) (string, error) {
	payload, err := unwrap(data)
	if err != nil {
		return "", err
	}

	r := &bitReader{data: payload}
	magic, err := r.Read(32)
	if err != nil {
		return "", fmt.Errorf("bitwrap: truncated bitcode magic: %w", err)
	}
	if magic != bitcodeMagic {
		return "", fmt.Errorf("bitwrap: missing BC bitstream magic")
	}

	for {
		id, err := r.Read(2)
		if err != nil {
			return "", ErrTripleNotFound
		}
		if id != 1 {
			return "", fmt.Errorf("bitwrap: unexpected top-level abbreviation id %d", id)
		}
		subID, err1 := r.ReadVBR(8)
		newWidth, err2 := r.ReadVBR(4)
		if err1 != nil || err2 != nil {
			return "", ErrTripleNotFound
		}
		r.align32()
		if _, err := r.Read(32); err != nil { // block length in words, unused
			return "", ErrTripleNotFound
		}
		triple, err := scanBlock(r, uint(newWidth), int64(subID))
		if err != nil {
			return "", err
		}
		if triple != "" {
			return triple, nil
		}
	}
}

func unwrap(data []byte) ([]byte, error) {
	if len(data) < 20 {
		return nil, fmt.Errorf("bitwrap: wrapper header truncated")
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != wrapperMagic {
		return nil, fmt.Errorf("bitwrap: not a bitcode wrapper")
	}
	off := binary.LittleEndian.Uint32(data[8:12])
	size := binary.LittleEndian.Uint32(data[12:16])
	if uint64(off)+uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("bitwrap: wrapper offset/size out of bounds")
	}
	return data[off : off+size], nil
}

// scanBlock walks one already-entered block to either EOF of the block
// (returning "", nil) or a matching triple record.
func scanBlock(r *bitReader, abbrevWidth uint, blockID int64) (string, error) {
	var abbrevs []abbrevDef
	for {
		id, err := r.Read(abbrevWidth)
		if err != nil {
			return "", err
		}
		switch id {
		case 0: // END_BLOCK
			r.align32()
			return "", nil
		case 1: // ENTER_SUBBLOCK
			subID, err1 := r.ReadVBR(8)
			newWidth, err2 := r.ReadVBR(4)
			if err1 != nil || err2 != nil {
				return "", fmt.Errorf("bitwrap: truncated ENTER_SUBBLOCK")
			}
			r.align32()
			if _, err := r.Read(32); err != nil {
				return "", fmt.Errorf("bitwrap: truncated block length")
			}
			triple, err := scanBlock(r, uint(newWidth), int64(subID))
			if err != nil {
				return "", err
			}
			if triple != "" {
				return triple, nil
			}
		case 2: // DEFINE_ABBREV
			def, err := readAbbrevDef(r)
			if err != nil {
				return "", err
			}
			abbrevs = append(abbrevs, def)
		case 3: // UNABBREV_RECORD
			code, err1 := r.ReadVBR(6)
			numOps, err2 := r.ReadVBR(6)
			if err1 != nil || err2 != nil {
				return "", fmt.Errorf("bitwrap: truncated unabbreviated record")
			}
			ops := make([]uint64, numOps)
			for i := range ops {
				v, err := r.ReadVBR(6)
				if err != nil {
					return "", fmt.Errorf("bitwrap: truncated unabbreviated record operand")
				}
				ops[i] = v
			}
			if blockID == moduleBlockID && code == tripleRecordCode {
				return uint64sToASCII(ops), nil
			}
		default:
			idx := int(id) - 4
			if idx < 0 || idx >= len(abbrevs) {
				return "", fmt.Errorf("bitwrap: unknown abbreviation id %d", id)
			}
			code, str, hasStr, err := decodeAbbrevRecord(r, abbrevs[idx])
			if err != nil {
				return "", err
			}
			if blockID == moduleBlockID && code == tripleRecordCode && hasStr {
				return str, nil
			}
		}
	}
}

func uint64sToASCII(ops []uint64) string {
	b := make([]byte, len(ops))
	for i, v := range ops {
		b[i] = byte(v)
	}
	return string(b)
}

// --- abbreviation definitions ---

type abbrevOpKind uint8

const (
	opFixed abbrevOpKind = 1
	opVBR   abbrevOpKind = 2
	opArray abbrevOpKind = 3
	opChar6 abbrevOpKind = 4
	opBlob  abbrevOpKind = 5
)

type abbrevOp struct {
	literal  bool
	litValue uint64
	kind     abbrevOpKind
	width    uint64
}

type abbrevDef struct {
	ops []abbrevOp
}

func readAbbrevDef(r *bitReader) (abbrevDef, error) {
	numOps, err := r.ReadVBR(5)
	if err != nil {
		return abbrevDef{}, fmt.Errorf("bitwrap: truncated DEFINE_ABBREV")
	}
	def := abbrevDef{ops: make([]abbrevOp, 0, numOps)}
	for i := uint64(0); i < numOps; i++ {
		isLiteral, err := r.Read(1)
		if err != nil {
			return abbrevDef{}, fmt.Errorf("bitwrap: truncated abbrev operand")
		}
		if isLiteral == 1 {
			v, err := r.ReadVBR(8)
			if err != nil {
				return abbrevDef{}, fmt.Errorf("bitwrap: truncated abbrev literal")
			}
			def.ops = append(def.ops, abbrevOp{literal: true, litValue: v})
			continue
		}
		enc, err := r.Read(3)
		if err != nil {
			return abbrevDef{}, fmt.Errorf("bitwrap: truncated abbrev encoding")
		}
		op := abbrevOp{kind: abbrevOpKind(enc)}
		if op.kind == opFixed || op.kind == opVBR {
			w, err := r.ReadVBR(5)
			if err != nil {
				return abbrevDef{}, fmt.Errorf("bitwrap: truncated abbrev width")
			}
			op.width = w
		}
		def.ops = append(def.ops, op)
	}
	return def, nil
}

const char6Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._"

// decodeAbbrevRecord reads one record encoded with def, returning its
// record code and, if it has any fields after the code, the concatenation
// of those fields as a string: Char6 values as their characters, Blob
// bytes as-is, and every other value (scalar or Array element) truncated
// to its low byte.
func decodeAbbrevRecord(r *bitReader, def abbrevDef) (code uint64, str string, hasStr bool, err error) {
	var bytesOut []byte
	haveCode := false

	setValue := func(v uint64) {
		if !haveCode {
			code = v
			haveCode = true
			return
		}
		bytesOut = append(bytesOut, byte(v))
	}

	for i := 0; i < len(def.ops); i++ {
		op := def.ops[i]
		if op.literal {
			setValue(op.litValue)
			continue
		}
		switch op.kind {
		case opFixed:
			v, err := r.Read(uint(op.width))
			if err != nil {
				return 0, "", false, fmt.Errorf("bitwrap: truncated fixed field: %w", err)
			}
			setValue(v)
		case opVBR:
			v, err := r.ReadVBR(uint(op.width))
			if err != nil {
				return 0, "", false, fmt.Errorf("bitwrap: truncated vbr field: %w", err)
			}
			setValue(v)
		case opChar6:
			v, err := r.Read(6)
			if err != nil {
				return 0, "", false, fmt.Errorf("bitwrap: truncated char6 field: %w", err)
			}
			bytesOut = append(bytesOut, char6Alphabet[v])
		case opArray:
			n, err := r.ReadVBR(6)
			if err != nil {
				return 0, "", false, fmt.Errorf("bitwrap: truncated array length: %w", err)
			}
			i++
			if i >= len(def.ops) {
				return 0, "", false, fmt.Errorf("bitwrap: array abbrev missing element type")
			}
			elem := def.ops[i]
			for k := uint64(0); k < n; k++ {
				switch elem.kind {
				case opFixed:
					v, err := r.Read(uint(elem.width))
					if err != nil {
						return 0, "", false, fmt.Errorf("bitwrap: truncated array element: %w", err)
					}
					bytesOut = append(bytesOut, byte(v))
				case opVBR:
					v, err := r.ReadVBR(uint(elem.width))
					if err != nil {
						return 0, "", false, fmt.Errorf("bitwrap: truncated array element: %w", err)
					}
					bytesOut = append(bytesOut, byte(v))
				case opChar6:
					v, err := r.Read(6)
					if err != nil {
						return 0, "", false, fmt.Errorf("bitwrap: truncated array element: %w", err)
					}
					bytesOut = append(bytesOut, char6Alphabet[v])
				default:
					return 0, "", false, fmt.Errorf("bitwrap: unsupported array element encoding %d", elem.kind)
				}
			}
		case opBlob:
			n, err := r.ReadVBR(6)
			if err != nil {
				return 0, "", false, fmt.Errorf("bitwrap: truncated blob length: %w", err)
			}
			r.align32()
			blob := make([]byte, n)
			for k := range blob {
				v, err := r.Read(8)
				if err != nil {
					return 0, "", false, fmt.Errorf("bitwrap: truncated blob: %w", err)
				}
				blob[k] = byte(v)
			}
			r.align32()
			bytesOut = append(bytesOut, blob...)
		default:
			return 0, "", false, fmt.Errorf("bitwrap: unsupported abbrev operand encoding %d", op.kind)
		}
	}
	return code, string(bytesOut), len(bytesOut) > 0, nil
}
