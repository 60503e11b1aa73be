package arscan

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/blakesmith/ar"
)

const (
	magic32 = 0xfeedface
	magic64 = 0xfeedfacf
)

func buildArchive(t *testing.T, members map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	w := ar.NewWriter(&buf)
	for _, name := range order {
		data := members[name]
		hdr := &ar.Header{
			Name: name,
			Size: int64(len(data)),
			Mode: 0o644,
		}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	return buf.Bytes()
}

func thinObject(cpuType, cpuSubtype uint32) []byte {
	head := make([]byte, 12)
	binary.LittleEndian.PutUint32(head[0:4], magic64)
	binary.LittleEndian.PutUint32(head[4:8], cpuType)
	binary.LittleEndian.PutUint32(head[8:12], cpuSubtype)
	return head
}

func TestFirstMachOSkipsNonObjectMembers(t *testing.T) {
	data := buildArchive(t, map[string][]byte{
		"__.SYMDEF": []byte("not an object"),
		"a.o":       thinObject(7, 3),
	}, []string{"__.SYMDEF", "a.o"})

	cpuType, cpuSubtype, err := FirstMachO(data, ThinMagics{Magic32: magic32, Magic64: magic64})
	if err != nil {
		t.Fatalf("FirstMachO: %v", err)
	}
	if cpuType != 7 || cpuSubtype != 3 {
		t.Fatalf("got (%d, %d), want (7, 3)", cpuType, cpuSubtype)
	}
}

func TestFirstMachOErrorsWhenNoneFound(t *testing.T) {
	data := buildArchive(t, map[string][]byte{
		"only.txt": []byte("plain text, not Mach-O"),
	}, []string{"only.txt"})

	_, _, err := FirstMachO(data, ThinMagics{Magic32: magic32, Magic64: magic64})
	if err == nil {
		t.Fatal("expected error for archive with no Mach-O members")
	}
}
