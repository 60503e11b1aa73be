package machofat

import "encoding/binary"

const (
	fatHeaderSize  = 8
	fatArch32Size  = 20
	fatArch64Size  = 32
	fatArchNBitMax = 1 << 20 // sanity cap on nfat_arch, well above any real binary
)

// ArchRecord describes one slice located inside a parsed fat container.
type ArchRecord struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint64
	Size       uint64
	Align      uint32
}

// Reader holds the parsed arch table of a fat container, keeping the
// original buffer alive for Extract/ExtractExact to slice into.
type Reader struct {
	data    []byte
	records []ArchRecord
	is64    bool
}

// Parse reads the fat header and arch table of data, validating every
// record's offset and size against the buffer bounds before returning.
// It returns ErrNotFatBinary if data does not begin with a fat magic.
func Parse(data []byte) (*Reader, error) {
	records, is64, err := parseFatRecords(data)
	if err != nil {
		return nil, err
	}
	return &Reader{data: data, records: records, is64: is64}, nil
}

// ArchCount returns the number of slices in the container.
func (r *Reader) ArchCount() int { return len(r.records) }

// Archs returns the parsed arch table in on-disk order.
func (r *Reader) Archs() []ArchRecord {
	out := make([]ArchRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Is64 reports whether the container used the fat64 header+record layout.
func (r *Reader) Is64() bool { return r.is64 }

// Extract returns the slice for the first record whose cpu_type matches the
// named architecture, regardless of cpu_subtype. This mirrors the
// historical lipo/fat_arch lookup behavior: cpu_type alone identifies a
// slot. It returns nil if no record matches.
func (r *Reader) Extract(archName string) []byte {
	info, ok := LookupArchName(archName)
	if !ok {
		return nil
	}
	for _, rec := range r.records {
		if rec.CPUType == info.CPUType {
			return r.data[rec.Offset : rec.Offset+rec.Size]
		}
	}
	return nil
}

// ExtractExact is like Extract but also requires the cpu_subtype to match,
// distinguishing e.g. arm64 from arm64e where Extract would not.
func (r *Reader) ExtractExact(archName string) []byte {
	info, ok := LookupArchName(archName)
	if !ok {
		return nil
	}
	for _, rec := range r.records {
		if rec.CPUType == info.CPUType && rec.CPUSubtype == info.CPUSubtype {
			return r.data[rec.Offset : rec.Offset+rec.Size]
		}
	}
	return nil
}

// parseFatRecords validates and decodes the big-endian fat header and arch
// table shared by both Parse and classify's fat-explosion path, bounds
// checking every record against len(data) before it is ever sliced into.
func parseFatRecords(data []byte) (records []ArchRecord, is64 bool, err error) {
	if len(data) < fatHeaderSize {
		return nil, false, ErrNotFatBinary
	}
	magic := binary.BigEndian.Uint32(data[0:4])
	if magic != FatMagic && magic != FatMagic64 {
		return nil, false, ErrNotFatBinary
	}
	is64 = magic == FatMagic64
	nfat := binary.BigEndian.Uint32(data[4:8])
	if nfat > fatArchNBitMax {
		return nil, false, errInvalidMachO("implausible nfat_arch")
	}

	recSize := fatArch32Size
	if is64 {
		recSize = fatArch64Size
	}
	headerEnd := fatHeaderSize + int(nfat)*recSize
	if headerEnd > len(data) {
		return nil, false, errInvalidMachO("fat arch table truncated")
	}

	records = make([]ArchRecord, 0, nfat)
	for i := 0; i < int(nfat); i++ {
		base := fatHeaderSize + i*recSize
		rec := ArchRecord{
			CPUType:    binary.BigEndian.Uint32(data[base : base+4]),
			CPUSubtype: binary.BigEndian.Uint32(data[base+4 : base+8]),
		}
		if is64 {
			rec.Offset = binary.BigEndian.Uint64(data[base+8 : base+16])
			rec.Size = binary.BigEndian.Uint64(data[base+16 : base+24])
			rec.Align = binary.BigEndian.Uint32(data[base+24 : base+28])
		} else {
			rec.Offset = uint64(binary.BigEndian.Uint32(data[base+8 : base+12]))
			rec.Size = uint64(binary.BigEndian.Uint32(data[base+12 : base+16]))
			rec.Align = binary.BigEndian.Uint32(data[base+16 : base+20])
		}
		if rec.Offset < uint64(headerEnd) || rec.Offset > uint64(len(data)) || rec.Size > uint64(len(data))-rec.Offset {
			return nil, false, errInvalidMachO("fat arch record out of bounds")
		}
		records = append(records, rec)
	}
	return records, is64, nil
}
