package main

// Big-endian byte codecs shared by the PEF parser, the resource fork
// codec, MacBinary, and the CPU memory facade. PowerPC and every classic
// Mac OS on-disk format this emulator touches are big-endian, so there is
// exactly one byte order in this repository and it never needs a flag.

func beUint16(b []byte) uint16 {
	_ = b[1]
	return uint16(b[0])<<8 | uint16(b[1])
}

func beUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint64(b []byte) uint64 {
	_ = b[7]
	return uint64(beUint32(b[:4]))<<32 | uint64(beUint32(b[4:8]))
}

func putBeUint16(b []byte, v uint16) {
	_ = b[1]
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func putBeUint32(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putBeUint64(b []byte, v uint64) {
	_ = b[7]
	putBeUint32(b[:4], uint32(v>>32))
	putBeUint32(b[4:8], uint32(v))
}

// ByteReader sequentially decodes big-endian fields out of a byte slice,
// tracking its own offset. Used by the PEF header/section-header parser
// and the resource fork codec, both of which read a flat run of fixed-size
// fields before branching on counts they just read.
type ByteReader struct {
	buf []byte
	off int
}

// NewByteReader wraps buf for sequential big-endian decoding starting at
// offset 0.
func NewByteReader(buf []byte) *ByteReader {
	return &ByteReader{buf: buf}
}

// Offset returns the reader's current position into the wrapped buffer.
func (r *ByteReader) Offset() int { return r.off }

// Seek repositions the reader to an absolute offset.
func (r *ByteReader) Seek(off int) { r.off = off }

// Len reports the total size of the wrapped buffer.
func (r *ByteReader) Len() int { return len(r.buf) }

// Remaining reports how many bytes are left to read.
func (r *ByteReader) Remaining() int { return len(r.buf) - r.off }

func (r *ByteReader) U8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *ByteReader) U16() uint16 {
	v := beUint16(r.buf[r.off : r.off+2])
	r.off += 2
	return v
}

func (r *ByteReader) U32() uint32 {
	v := beUint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v
}

func (r *ByteReader) I8() int8   { return int8(r.U8()) }
func (r *ByteReader) I16() int16 { return int16(r.U16()) }
func (r *ByteReader) I32() int32 { return int32(r.U32()) }

// Bytes returns the next n raw bytes and advances past them.
func (r *ByteReader) Bytes(n int) []byte {
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

// FourCC reads the next four bytes as a FourCC.
func (r *ByteReader) FourCC() FourCC {
	return FourCC(r.U32())
}

// PString reads a classic Pascal string (length byte + bytes) at the
// reader's current position.
func (r *ByteReader) PString() string {
	n := int(r.U8())
	return string(r.Bytes(n))
}

// ByteWriter accumulates big-endian fields into a growing buffer: a small
// wrapper around append that the rest of the codebase uses instead of
// hand-rolling byte-order math at each call site.
type ByteWriter struct {
	buf []byte
}

// NewByteWriter returns an empty ByteWriter ready for appends.
func NewByteWriter() *ByteWriter {
	return &ByteWriter{}
}

// Bytes returns the accumulated buffer.
func (w *ByteWriter) Bytes() []byte { return w.buf }

// Len reports how many bytes have been written so far.
func (w *ByteWriter) Len() int { return len(w.buf) }

func (w *ByteWriter) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *ByteWriter) U16(v uint16) {
	var b [2]byte
	putBeUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *ByteWriter) U32(v uint32) {
	var b [4]byte
	putBeUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Raw appends b verbatim, unmodified.
func (w *ByteWriter) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// FourCC appends f as its four raw bytes.
func (w *ByteWriter) FourCC(f FourCC) {
	w.U32(uint32(f))
}

// PString appends s as a classic Pascal string, truncated to 255 bytes.
func (w *ByteWriter) PString(s string) {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	w.U8(uint8(len(b)))
	w.Raw(b)
}

// Pad appends n zero bytes, used to align section/resource data to the
// 4-byte boundaries both PEF and the resource fork format require.
func (w *ByteWriter) Pad(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// AlignTo pads the buffer up to the next multiple of n bytes.
func (w *ByteWriter) AlignTo(n int) {
	if m := len(w.buf) % n; m != 0 {
		w.Pad(n - m)
	}
}
