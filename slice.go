package machofat

import "sort"

// Slice is one architecture-specific image queued for emission.
type Slice struct {
	Name       string
	Data       []byte
	CPUType    uint32
	CPUSubtype uint32
	Align      uint32
}

// sliceTable implements the Slice Table (C2): an ordered, duplicate-free
// set of Slices plus the running state the Layout Planner (C3) needs.
type sliceTable struct {
	bitcodeEnabled bool
	slices         []Slice
	forceFat64     bool
	maxAlign       uint32
}

// add classifies data, recursing into a fat input's children, and inserts
// each resulting thin/archive/bitcode slice in sorted order. It rejects a
// slice whose (cpu_type, cpu_subtype) is already present.
func (t *sliceTable) add(data []byte) error {
	id, err := classify(data, t.bitcodeEnabled)
	if err != nil {
		return err
	}

	if id.kind == identityFat {
		if id.fat64 {
			t.forceFat64 = true
		}
		for _, child := range id.children {
			// Own a copy: the parent fat buffer may be discarded by the
			// caller once Add returns.
			owned := append([]byte(nil), child...)
			if err := t.add(owned); err != nil {
				return err
			}
		}
		return nil
	}

	name := displayArchName(id.cpuType, id.cpuSubtype)
	if t.existsCPU(id.cpuType, id.cpuSubtype) {
		return errDuplicatedArch(name)
	}

	t.slices = append(t.slices, Slice{
		Name:       name,
		Data:       data,
		CPUType:    id.cpuType,
		CPUSubtype: id.cpuSubtype,
		Align:      id.align,
	})
	if id.align > t.maxAlign {
		t.maxAlign = id.align
	}
	t.sort()
	debugf("added slice %s (cpu_type=0x%x cpu_subtype=0x%x align=0x%x)", name, id.cpuType, id.cpuSubtype, id.align)
	return nil
}

// remove deletes the named slice and returns its data, or nil if absent.
// archName is resolved through the arch name registry (C6) into a
// (cpu_type, cpu_subtype) pair first, matching how add's duplicate check
// identifies slices; an unregistered name never matches, even if a slice's
// own display name fell back to "unknown".
func (t *sliceTable) remove(archName string) []byte {
	info, ok := LookupArchName(archName)
	if !ok {
		return nil
	}
	for i, s := range t.slices {
		if s.CPUType == info.CPUType && s.CPUSubtype == info.CPUSubtype {
			data := s.Data
			t.slices = append(t.slices[:i], t.slices[i+1:]...)
			return data
		}
	}
	return nil
}

// exists reports whether a slice with the given arch name is queued.
func (t *sliceTable) exists(archName string) bool {
	info, ok := LookupArchName(archName)
	if !ok {
		return false
	}
	return t.existsCPU(info.CPUType, info.CPUSubtype)
}

func (t *sliceTable) existsCPU(cpuType, cpuSubtype uint32) bool {
	for _, s := range t.slices {
		if s.CPUType == cpuType && s.CPUSubtype == cpuSubtype {
			return true
		}
	}
	return false
}

// sort orders slices the way lipo does: arm64-family slices always sink to
// the end of the table, everything else is ordered by ascending cpu_type,
// then ascending cpu_subtype, then ascending alignment. The comparator is
// applied with sort.SliceStable so repeated Add calls never reorder
// equal-key slices already present.
func (t *sliceTable) sort() {
	isARM64Family := func(cpuType uint32) bool {
		return cpuType == CPUTypeARM64 || cpuType == CPUTypeARM64_32
	}
	sort.SliceStable(t.slices, func(i, j int) bool {
		a, b := t.slices[i], t.slices[j]
		aARM, bARM := isARM64Family(a.CPUType), isARM64Family(b.CPUType)
		if aARM != bARM {
			return !aARM // non-arm64 sorts before arm64
		}
		if a.CPUType != b.CPUType {
			return a.CPUType < b.CPUType
		}
		if a.CPUSubtype != b.CPUSubtype {
			return a.CPUSubtype < b.CPUSubtype
		}
		return a.Align < b.Align
	})
}
