package machofat

// ArchInfo pairs a human-readable architecture name with the
// (cpu_type, cpu_subtype) values Mach-O uses to encode it.
type ArchInfo struct {
	Name       string
	CPUType    uint32
	CPUSubtype uint32
}

// archRegistry is the process-wide name <-> (cpu_type, cpu_subtype) map
// (C6). It is read-only after init, so concurrent lookups need no locking.
var archRegistry = []ArchInfo{
	{"x86_64", CPUTypeX86_64, CPUSubtypeX86_64All},
	{"x86_64h", CPUTypeX86_64, CPUSubtypeX86_64H},
	{"i386", CPUTypeI386, CPUSubtypeI386All},
	{"arm64", CPUTypeARM64, CPUSubtypeARM64All},
	{"arm64e", CPUTypeARM64, CPUSubtypeARM64E},
	{"arm64_32", CPUTypeARM64_32, CPUSubtypeARM64_32All},
	{"armv6", CPUTypeARM, CPUSubtypeARMV6},
	{"armv7", CPUTypeARM, CPUSubtypeARMV7},
	{"armv7s", CPUTypeARM, CPUSubtypeARMV7S},
	{"armv7k", CPUTypeARM, CPUSubtypeARMV7K},
	{"ppc", CPUTypePowerPC, CPUSubtypePowerPCAll},
	{"ppc64", CPUTypePowerPC64, CPUSubtypePowerPCAll},
}

var archByName = func() map[string]ArchInfo {
	m := make(map[string]ArchInfo, len(archRegistry))
	for _, info := range archRegistry {
		m[info.Name] = info
	}
	return m
}()

// LookupArchName resolves a human arch name to its (cpu_type, cpu_subtype)
// pair.
func LookupArchName(name string) (ArchInfo, bool) {
	info, ok := archByName[name]
	return info, ok
}

// displayArchName performs the reverse lookup used for error messages and
// duplicate-arch reporting, falling back to "unknown" per spec.
func displayArchName(cpuType, cpuSubtype uint32) string {
	for _, info := range archRegistry {
		if info.CPUType == cpuType && info.CPUSubtype == cpuSubtype {
			return info.Name
		}
	}
	return "unknown"
}
