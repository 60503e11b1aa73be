package machofat

import "strings"

// cpuForTriple maps the architecture prefix of an LLVM target triple (the
// text before the first '-') to a (cpu_type, cpu_subtype) pair, per the
// bitcode path's triple table.
func cpuForTriple(triple string) (cpuType, cpuSubtype uint32, ok bool) {
	prefix := triple
	if i := strings.IndexByte(triple, '-'); i >= 0 {
		prefix = triple[:i]
	}

	switch prefix {
	case "i686", "i386":
		return CPUTypeI386, CPUSubtypeI386All, true
	case "x86_64":
		return CPUTypeX86_64, CPUSubtypeX86_64All, true
	case "x86_64h":
		return CPUTypeX86_64, CPUSubtypeX86_64H, true
	case "powerpc":
		return CPUTypePowerPC, CPUSubtypePowerPCAll, true
	case "powerpc64":
		return CPUTypePowerPC64, CPUSubtypePowerPCAll, true
	case "arm":
		return CPUTypeARM, CPUSubtypeARMV4T, true
	case "armv5", "armv5e", "thumbv5", "thumbv5e":
		return CPUTypeARM, CPUSubtypeARMV5TEJ, true
	case "armv6", "thumbv6":
		return CPUTypeARM, CPUSubtypeARMV6, true
	case "armv6m", "thumbv6m":
		return CPUTypeARM, CPUSubtypeARMV6M, true
	case "armv7", "thumbv7":
		return CPUTypeARM, CPUSubtypeARMV7, true
	case "armv7f", "thumbv7f":
		return CPUTypeARM, CPUSubtypeARMV7F, true
	case "armv7s", "thumbv7s":
		return CPUTypeARM, CPUSubtypeARMV7S, true
	case "armv7k", "thumbv7k":
		return CPUTypeARM, CPUSubtypeARMV7K, true
	case "armv7m", "thumbv7m":
		return CPUTypeARM, CPUSubtypeARMV7M, true
	case "armv7em", "thumbv7em":
		return CPUTypeARM, CPUSubtypeARMV7EM, true
	case "arm64":
		return CPUTypeARM64, CPUSubtypeARM64All, true
	case "arm64e":
		return CPUTypeARM64, CPUSubtypeARM64E, true
	case "arm64_32":
		return CPUTypeARM64_32, CPUSubtypeARM64_32All, true
	default:
		return 0, 0, false
	}
}
