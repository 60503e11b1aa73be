package machofat

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	env "github.com/xyproto/env/v2"
)

// Option configures a Writer at construction time.
type Option func(*Writer)

// WithBitcode enables classification of LLVM bitcode-wrapper inputs. It is
// off by default because parsing bitcode is the one classification path
// this package cannot fully validate, only best-effort decode.
func WithBitcode(enabled bool) Option {
	return func(w *Writer) { w.table.bitcodeEnabled = enabled }
}

// Writer assembles a fat container from thin Mach-O, static-archive, and
// (optionally) bitcode-wrapper inputs added one at a time.
type Writer struct {
	table sliceTable
}

// New returns a Writer ready to accept slices. Bitcode classification
// defaults to the FATMACHO_BITCODE environment toggle, the same
// ambient-config convention this package uses for FATMACHO_DEBUG.
func New(opts ...Option) *Writer {
	w := &Writer{table: sliceTable{bitcodeEnabled: env.Bool("FATMACHO_BITCODE")}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add classifies data and queues it for emission. Fat inputs are exploded
// into their constituent slices; everything else is queued as a single
// slice. It returns a *Error of Kind KindDuplicatedArch if data's
// architecture is already queued.
func (w *Writer) Add(data []byte) error {
	return w.table.add(data)
}

// Remove drops the named architecture from the queue and returns its raw
// bytes, or nil if it was never added.
func (w *Writer) Remove(archName string) []byte {
	return w.table.remove(archName)
}

// Exists reports whether the named architecture is currently queued.
func (w *Writer) Exists(archName string) bool {
	return w.table.exists(archName)
}

// ArchCount reports how many slices are currently queued.
func (w *Writer) ArchCount() int {
	return len(w.table.slices)
}

// fatHeader is the eight-byte leading header of every fat container,
// magic followed by the slice count, always big-endian on disk.
type fatHeader struct {
	Magic     uint32
	NFatArch  uint32
}

type fatArch32 struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint32
	Size       uint32
	Align      uint32
}

type fatArch64 struct {
	CPUType    uint32
	CPUSubtype uint32
	Offset     uint64
	Size       uint64
	Align      uint32
	Reserved   uint32
}

// Write plans the layout of every queued slice and emits the resulting fat
// container to out, choosing a 32-bit or 64-bit header automatically.
func (w *Writer) Write(out io.Writer) error {
	plan := planLayout(&w.table)
	return emitFat(out, plan)
}

// Bytes is a convenience wrapper around Write that returns the emitted
// container as an in-memory buffer.
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile emits the container to path with the executable-friendly mode
// the teacher project uses for its own binary outputs.
func (w *Writer) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return errIO(err)
	}
	if werr := w.Write(f); werr != nil {
		f.Close()
		return werr
	}
	if err := f.Close(); err != nil {
		return errIO(err)
	}
	return nil
}

func emitFat(out io.Writer, plan layoutPlan) error {
	magic := uint32(FatMagic)
	if plan.is64 {
		magic = FatMagic64
	}
	header := fatHeader{Magic: magic, NFatArch: uint32(len(plan.offsets))}
	if err := binary.Write(out, binary.BigEndian, &header); err != nil {
		return errIO(err)
	}

	for _, ao := range plan.offsets {
		if plan.is64 {
			rec := fatArch64{
				CPUType:    ao.CPUType,
				CPUSubtype: ao.CPUSubtype,
				Offset:     ao.Offset,
				Size:       uint64(len(ao.Data)),
				Align:      plan.alignBits,
			}
			if err := binary.Write(out, binary.BigEndian, &rec); err != nil {
				return errIO(err)
			}
		} else {
			rec := fatArch32{
				CPUType:    ao.CPUType,
				CPUSubtype: ao.CPUSubtype,
				Offset:     uint32(ao.Offset),
				Size:       uint32(len(ao.Data)),
				Align:      plan.alignBits,
			}
			if err := binary.Write(out, binary.BigEndian, &rec); err != nil {
				return errIO(err)
			}
		}
	}

	recSize := uint64(fatArch32Size)
	if plan.is64 {
		recSize = fatArch64Size
	}
	cursor := uint64(fatHeaderSize) + uint64(len(plan.offsets))*recSize
	for _, ao := range plan.offsets {
		if ao.Offset > cursor {
			if err := writeZeros(out, ao.Offset-cursor); err != nil {
				return err
			}
			cursor = ao.Offset
		}
		n, err := out.Write(ao.Data)
		if err != nil {
			return errIO(err)
		}
		cursor += uint64(n)
	}
	return nil
}

// writeZeros pads out with n zero bytes using a small reusable buffer
// instead of allocating the whole gap at once.
func writeZeros(out io.Writer, n uint64) error {
	var zeros [4096]byte
	for n > 0 {
		chunk := uint64(len(zeros))
		if n < chunk {
			chunk = n
		}
		if _, err := out.Write(zeros[:chunk]); err != nil {
			return errIO(err)
		}
		n -= chunk
	}
	return nil
}
