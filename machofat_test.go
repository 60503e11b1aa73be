package machofat

import (
	"bytes"
	"debug/macho"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xyproto/machofat/internal/machofixture"
)

func x8664() []byte { return machofixture.Thin64(CPUTypeX86_64, CPUSubtypeX86_64All) }
func arm64() []byte { return machofixture.Thin64(CPUTypeARM64, CPUSubtypeARM64All) }
func arm64e() []byte { return machofixture.Thin64(CPUTypeARM64, CPUSubtypeARM64E) }
func ppc64() []byte { return machofixture.Thin64(CPUTypePowerPC64, CPUSubtypePowerPCAll) }

func TestWriterRoundTrip(t *testing.T) {
	w := New()
	if err := w.Add(x8664()); err != nil {
		t.Fatalf("Add x86_64: %v", err)
	}
	if err := w.Add(arm64()); err != nil {
		t.Fatalf("Add arm64: %v", err)
	}

	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	fat, err := macho.NewFatFile(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("debug/macho rejected output: %v", err)
	}
	defer fat.Close()

	if len(fat.Arches) != 2 {
		t.Fatalf("got %d arches, want 2", len(fat.Arches))
	}

	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.ArchCount() != 2 {
		t.Fatalf("ArchCount = %d, want 2", r.ArchCount())
	}
	if got := r.Extract("x86_64"); !bytes.Equal(got, x8664()) {
		t.Errorf("Extract(x86_64) mismatch")
	}
	if got := r.Extract("arm64"); !bytes.Equal(got, arm64()) {
		t.Errorf("Extract(arm64) mismatch")
	}
}

func TestWriterRejectsDuplicateArch(t *testing.T) {
	w := New()
	if err := w.Add(x8664()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := w.Add(x8664())
	if err == nil {
		t.Fatal("expected duplicate arch error, got nil")
	}
	var me *Error
	if !errors.As(err, &me) || me.Kind != KindDuplicatedArch {
		t.Fatalf("got %v, want KindDuplicatedArch", err)
	}
}

func TestReParseProducesSameArchTable(t *testing.T) {
	w1 := New()
	w1.Add(x8664())
	w1.Add(arm64())
	out1, err := w1.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r1, err := Parse(out1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	w2 := New()
	if err := w2.Add(out1); err != nil {
		t.Fatalf("Add(fat): %v", err)
	}
	out2, err := w2.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r2, err := Parse(out2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff(r1.Archs(), r2.Archs(), cmpopts.EquateComparable()); diff != "" {
		t.Errorf("arch table changed across explode/re-emit (-original +reexploded):\n%s", diff)
	}
}

func TestExplodeFatIsIdempotent(t *testing.T) {
	w1 := New()
	w1.Add(x8664())
	w1.Add(arm64())
	fatBytes, err := w1.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	w2 := New()
	if err := w2.Add(fatBytes); err != nil {
		t.Fatalf("Add(fat): %v", err)
	}
	if w2.ArchCount() != 2 {
		t.Fatalf("ArchCount = %d, want 2", w2.ArchCount())
	}
	if !w2.Exists("x86_64") || !w2.Exists("arm64") {
		t.Fatal("exploded fat missing expected arches")
	}
}

func TestOffsetsMatchDeclaredAlignment(t *testing.T) {
	w := New()
	w.Add(x8664())
	w.Add(arm64())
	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, rec := range r.Archs() {
		if rec.Offset%uint64(1<<rec.Align) != 0 {
			t.Errorf("offset %d not aligned to 2^%d", rec.Offset, rec.Align)
		}
	}
}

func TestHeaderIsBigEndian(t *testing.T) {
	w := New()
	w.Add(x8664())
	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(out) < 8 {
		t.Fatal("output too short")
	}
	if out[0] != 0xca || out[1] != 0xfe || out[2] != 0xba || out[3] != 0xbe {
		t.Fatalf("header magic not big-endian FAT_MAGIC: % x", out[:4])
	}
}

func TestArm64FamilySortsLast(t *testing.T) {
	w := New()
	w.Add(arm64())
	w.Add(x8664())
	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	archs := r.Archs()
	if archs[len(archs)-1].CPUType != CPUTypeARM64 {
		t.Fatalf("expected arm64 last, got table %+v", archs)
	}
}

func TestRemove(t *testing.T) {
	w := New()
	w.Add(x8664())
	w.Add(arm64())
	data := w.Remove("x86_64")
	if data == nil {
		t.Fatal("Remove returned nil")
	}
	if w.Exists("x86_64") {
		t.Fatal("x86_64 still present after Remove")
	}
	if w.ArchCount() != 1 {
		t.Fatalf("ArchCount = %d, want 1", w.ArchCount())
	}
}

func TestParseRejectsThinInput(t *testing.T) {
	_, err := Parse(x8664())
	if !errors.Is(err, ErrNotFatBinary) {
		t.Fatalf("got %v, want ErrNotFatBinary", err)
	}
}

func TestExtractExactDistinguishesSubtype(t *testing.T) {
	w := New()
	w.Add(arm64e())
	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := r.Extract("arm64"); got == nil {
		t.Error("Extract(arm64) should match arm64e by cpu_type alone")
	}
	if got := r.ExtractExact("arm64"); got != nil {
		t.Error("ExtractExact(arm64) should not match an arm64e slice")
	}
	if got := r.ExtractExact("arm64e"); got == nil {
		t.Error("ExtractExact(arm64e) should match")
	}
}

func TestThreeWaySlice(t *testing.T) {
	w := New()
	for _, data := range [][]byte{x8664(), arm64(), ppc64()} {
		if err := w.Add(data); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	fat, err := macho.NewFatFile(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("debug/macho rejected output: %v", err)
	}
	defer fat.Close()
	if len(fat.Arches) != 3 {
		t.Fatalf("got %d arches, want 3", len(fat.Arches))
	}
}
