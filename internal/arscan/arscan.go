// Package arscan scans a `!<arch>\n` static archive for its first
// Mach-O member, the one read-only operation the fat-container layout
// engine needs from a static library input.
package arscan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blakesmith/ar"
)

// ThinMagics carries the little-endian thin Mach-O magic values the caller
// accepts, so this package stays free of machofat's own constants.
type ThinMagics struct {
	Magic32 uint32
	Magic64 uint32
}

// FirstMachO scans the archive member-by-member, in order, and returns the
// (cpu_type, cpu_subtype) of the first member whose leading bytes parse as
// a thin Mach-O object. Members that are not themselves Mach-O (symbol
// tables, string tables, nested archives) are skipped.
func FirstMachO(data []byte, magics ThinMagics) (cpuType, cpuSubtype uint32, err error) {
	r := ar.NewReader(bytes.NewReader(data))
	for {
		if _, err := r.Next(); err == io.EOF {
			return 0, 0, fmt.Errorf("no Mach-O members in archive")
		} else if err != nil {
			return 0, 0, err
		}

		head := make([]byte, 12)
		n, _ := io.ReadFull(r, head)
		if n < 12 {
			continue
		}
		magic := binary.LittleEndian.Uint32(head[0:4])
		if magic != magics.Magic32 && magic != magics.Magic64 {
			continue
		}
		return binary.LittleEndian.Uint32(head[4:8]), binary.LittleEndian.Uint32(head[8:12]), nil
	}
}
