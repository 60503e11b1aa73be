// Package machofat reads and writes Apple Mach-O universal ("fat")
// binaries: container files that bundle multiple architecture-specific
// images (thin Mach-O executables, dylibs, static archives, or LLVM
// bitcode wrappers) behind a single big-endian header indexed by CPU
// type/subtype.
//
// A Writer accumulates thin inputs one at a time, rejecting duplicate
// architectures, and emits a fat32 or fat64 container depending on the
// size of what it was given. A Reader parses an existing fat container
// and extracts the sub-slice for a requested architecture.
//
// Ported from the layout rules of github.com/messense/fat-macho-rs,
// itself a port of randall77/makefat.
package machofat

import (
	"fmt"
	"os"

	env "github.com/xyproto/env/v2"
)

// Mach-O and fat-container magic numbers, little-endian for thin images,
// big-endian for the fat header and arch records.
const (
	MachMagic32         = 0xfeedface
	MachMagic64         = 0xfeedfacf
	FatMagic            = 0xcafebabe
	FatMagic64          = FatMagic + 1
	BitcodeWrapperMagic = 0x0b17c0de
)

// CPU type identifiers, per mach/machine.h. ABI64 and ABI64_32 are the
// high bits layered onto a base family to get its 64-bit variant.
const (
	cpuArchABI64   = 0x01000000
	cpuArchABI6432 = 0x02000000

	CPUTypeVAX       = 1
	CPUTypeMC680x0   = 6
	CPUTypeI386      = 7
	CPUTypeX86       = CPUTypeI386
	CPUTypeMIPS      = 8
	CPUTypeMC98000   = 10
	CPUTypeHPPA      = 11
	CPUTypeARM       = 12
	CPUTypeMC88000   = 13
	CPUTypeSPARC     = 14
	CPUTypeI860      = 15
	CPUTypePowerPC   = 18
	CPUTypeX86_64    = CPUTypeI386 | cpuArchABI64
	CPUTypeARM64     = CPUTypeARM | cpuArchABI64
	CPUTypeARM64_32  = CPUTypeARM | cpuArchABI6432
	CPUTypePowerPC64 = CPUTypePowerPC | cpuArchABI64
)

// CPU subtype identifiers for the families this package cares about.
const (
	CPUSubtypeI386All      = 3
	CPUSubtypeX86_64All    = 3
	CPUSubtypeX86_64H      = 8
	CPUSubtypePowerPCAll   = 0
	CPUSubtypeARM64All     = 0
	CPUSubtypeARM64E       = 2
	CPUSubtypeARM64_32All  = 0
	CPUSubtypeARMV4T       = 5
	CPUSubtypeARMV6        = 6
	CPUSubtypeARMV5TEJ     = 7
	CPUSubtypeARMV7        = 9
	CPUSubtypeARMV7F       = 10
	CPUSubtypeARMV7S       = 11
	CPUSubtypeARMV7K       = 12
	CPUSubtypeARMV6M       = 14
	CPUSubtypeARMV7M       = 15
	CPUSubtypeARMV7EM      = 16
)

// Debug reports whether the package emits progress traces to Stderr.
// Off by default; set FATMACHO_DEBUG to enable it ambiently, the same
// convention the teacher project uses for its own VerboseMode switch
// rather than wiring a logging library neither it nor this package needs.
var Debug = env.Bool("FATMACHO_DEBUG")

func debugf(format string, args ...any) {
	if !Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "machofat: "+format+"\n", args...)
}
