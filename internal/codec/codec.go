// Package codec holds the little-endian primitives shared by the index
// serialization formats.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrTruncated is returned when a buffer ends before a value is complete.
var ErrTruncated = errors.New("codec: truncated data")

// Writer appends values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given capacity hint.
func NewWriter(size int) *Writer { return &Writer{buf: make([]byte, 0, size)} }

func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) Vector(v []float32) {
	for _, f := range v {
		w.F32(f)
	}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reader consumes values written by Writer. The first error sticks; callers
// check Err once after decoding.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader { return &Reader{data: data} }

func (r *Reader) U32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.err = ErrTruncated
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

func (r *Reader) String() string {
	n := int(r.U32())
	if r.err != nil {
		return ""
	}
	if r.off+n > len(r.data) {
		r.err = ErrTruncated
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

func (r *Reader) Vector(dim int) []float32 {
	if r.err != nil {
		return nil
	}
	if r.off+4*dim > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = r.F32()
	}
	return v
}

// Err returns the first decoding error.
func (r *Reader) Err() error { return r.err }
