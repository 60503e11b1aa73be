package machofat

import (
	"encoding/binary"
	"fmt"

	"github.com/xyproto/machofat/internal/arscan"
	"github.com/xyproto/machofat/internal/bitwrap"
)

// identityKind is the classification C1 (the Arch Identifier) assigns to a
// byte buffer handed to Writer.Add.
type identityKind int

const (
	identityThin identityKind = iota
	identityArchive
	identityBitcode
	identityFat
)

// identity is C1's output: either a single (cpu_type, cpu_subtype, align)
// triple, or, for a fat input, the raw sub-slices of its children so the
// caller can recursively classify and insert each one.
type identity struct {
	kind       identityKind
	cpuType    uint32
	cpuSubtype uint32
	align      uint32
	children   [][]byte
	fat64      bool
}

const arMagic = "!<arch>\n"

// classify implements the Arch Identifier (C1): it never mutates the
// buffer and never copies it (callers own that decision).
func classify(data []byte, bitcodeEnabled bool) (identity, error) {
	if len(data) < 4 {
		return identity{}, errInvalidMachO("too small")
	}

	leMagic := binary.LittleEndian.Uint32(data[:4])
	switch leMagic {
	case MachMagic32, MachMagic64:
		if len(data) < 12 {
			return identity{}, errInvalidMachO("too small")
		}
		cpuType := binary.LittleEndian.Uint32(data[4:8])
		cpuSubtype := binary.LittleEndian.Uint32(data[8:12])
		return identity{
			kind:       identityThin,
			cpuType:    cpuType,
			cpuSubtype: cpuSubtype,
			align:      alignmentFor(cpuType),
		}, nil
	}

	// The fat header is always big-endian on disk, regardless of the
	// embedded slices' own endianness (spec.md §3), so it is checked
	// against a big-endian read of the same four leading bytes.
	beMagic := binary.BigEndian.Uint32(data[:4])
	if beMagic == FatMagic || beMagic == FatMagic64 {
		records, is64, err := parseFatRecords(data)
		if err != nil {
			return identity{}, err
		}
		children := make([][]byte, 0, len(records))
		for _, rec := range records {
			children = append(children, data[rec.Offset:rec.Offset+rec.Size])
		}
		return identity{kind: identityFat, children: children, fat64: is64}, nil
	}

	if leMagic == BitcodeWrapperMagic {
		if !bitcodeEnabled {
			return identity{}, errInvalidMachO("bitcode unsupported")
		}
		triple, err := bitwrap.TargetTriple(data)
		if err != nil {
			return identity{}, errBitcode("parsing bitcode wrapper", err)
		}
		cpuType, cpuSubtype, ok := cpuForTriple(triple)
		if !ok {
			return identity{}, errInvalidMachO(fmt.Sprintf("unknown bitcode target triple %q", triple))
		}
		return identity{kind: identityBitcode, cpuType: cpuType, cpuSubtype: cpuSubtype, align: 1}, nil
	}

	if isArchive(data) {
		cpuType, cpuSubtype, err := arscan.FirstMachO(data, arscan.ThinMagics{
			Magic32: MachMagic32,
			Magic64: MachMagic64,
		})
		if err != nil {
			return identity{}, errUnderlyingObjectParse("scanning archive members", err)
		}
		align := uint32(4)
		if cpuType&cpuArchABI64 != 0 {
			align = 8
		}
		return identity{kind: identityArchive, cpuType: cpuType, cpuSubtype: cpuSubtype, align: align}, nil
	}

	return identity{}, errInvalidMachO("not a Mach-O")
}

func isArchive(data []byte) bool {
	return len(data) >= len(arMagic) && string(data[:len(arMagic)]) == arMagic
}

// alignmentFor returns the natural alignment for a thin Mach-O's cpu_type,
// per the family table in spec.md §4.6. An alignment of 0 means
// unconstrained; the layout planner treats it as 1.
func alignmentFor(cpuType uint32) uint32 {
	switch cpuType {
	case CPUTypeARM, CPUTypeARM64, CPUTypeARM64_32:
		return 0x4000
	case CPUTypeX86_64, CPUTypeI386, CPUTypePowerPC, CPUTypePowerPC64:
		return 0x1000
	case CPUTypeMC680x0, CPUTypeMC88000, CPUTypeSPARC, CPUTypeI860, CPUTypeHPPA:
		return 0x2000
	default:
		return 0
	}
}
