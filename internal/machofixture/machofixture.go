// Package machofixture builds minimal, valid thin Mach-O 64-bit objects for
// use as test inputs. It produces just enough of a header and a single
// empty __TEXT segment load command for debug/macho to parse the result,
// adapted from the executable-writing header layout of the flapc compiler's
// own Mach-O backend.
package machofixture

import (
	"bytes"
	"encoding/binary"
)

const (
	machMagic64   = 0xfeedfacf
	fileTypeExec  = 0x2
	loadSegment64 = 0x19
)

type header64 struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

type segmentCommand64 struct {
	Cmd      uint32
	CmdSize  uint32
	SegName  [16]byte
	VMAddr   uint64
	VMSize   uint64
	FileOff  uint64
	FileSize uint64
	MaxProt  uint32
	InitProt uint32
	NSects   uint32
	Flags    uint32
}

// Thin64 returns a minimal thin Mach-O 64-bit object for the given
// cpu_type/cpu_subtype: a header followed by one zero-sized __TEXT segment
// command. It is sized to be a realistic, independently parseable slice,
// not a byte-for-byte accurate executable.
func Thin64(cpuType, cpuSubtype uint32) []byte {
	var seg bytes.Buffer
	var segName [16]byte
	copy(segName[:], "__TEXT")
	cmd := segmentCommand64{
		Cmd:      loadSegment64,
		CmdSize:  uint32(binarySize(segmentCommand64{})),
		SegName:  segName,
		MaxProt:  0x7,
		InitProt: 0x5,
	}
	binary.Write(&seg, binary.LittleEndian, &cmd)

	hdr := header64{
		Magic:      machMagic64,
		CPUType:    cpuType,
		CPUSubtype: cpuSubtype,
		FileType:   fileTypeExec,
		NCmds:      1,
		SizeOfCmds: uint32(seg.Len()),
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, &hdr)
	out.Write(seg.Bytes())
	return out.Bytes()
}

func binarySize(v any) int {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, v)
	return buf.Len()
}
