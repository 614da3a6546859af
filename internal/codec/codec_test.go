package codec

import (
	"errors"
	"testing"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.U32(7)
	w.String("agents")
	w.Vector([]float32{1.5, -2})
	w.F32(3.25)

	r := NewReader(w.Bytes())
	if got := r.U32(); got != 7 {
		t.Fatalf("U32 = %d, want 7", got)
	}
	if got := r.String(); got != "agents" {
		t.Fatalf("String = %q, want agents", got)
	}
	v := r.Vector(2)
	if len(v) != 2 || v[0] != 1.5 || v[1] != -2 {
		t.Fatalf("Vector = %v", v)
	}
	if got := r.F32(); got != 3.25 {
		t.Fatalf("F32 = %v, want 3.25", got)
	}
	if r.Err() != nil {
		t.Fatalf("Err = %v", r.Err())
	}
}

func TestReader_Truncated(t *testing.T) {
	w := NewWriter(0)
	w.String("abc")
	data := w.Bytes()[:5]
	r := NewReader(data)
	_ = r.String()
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Fatalf("Err = %v, want ErrTruncated", r.Err())
	}
	// errors stick
	_ = r.U32()
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Fatalf("Err after further reads = %v", r.Err())
	}
}
