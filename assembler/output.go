package assembler

// minOutput is the first allocation of the output buffer.
const minOutput = 64

// output is the growable code buffer. Its length is tracked apart from the
// allocation, which grows geometrically ahead of need.
type output struct {
	buf []byte
	n   int
}

// reserve makes room for extra more bytes.
func (o *output) reserve(extra int) {
	need := o.n + extra
	if need <= len(o.buf) {
		return
	}
	size := len(o.buf) * 2
	if size < minOutput {
		size = minOutput
	}
	for size < need {
		size *= 2
	}
	buf := make([]byte, size)
	copy(buf, o.buf[:o.n])
	o.buf = buf
}

// extend appends w zero bytes and returns them for writing.
func (o *output) extend(w int) []byte {
	o.reserve(w)
	b := o.buf[o.n : o.n+w]
	o.n += w
	return b
}

// at returns the w bytes already emitted at offset off.
func (o *output) at(off, w int) []byte {
	return o.buf[off : off+w]
}

func (o *output) len() int {
	return o.n
}

// bytes returns a copy trimmed to the emitted length.
func (o *output) bytes() []byte {
	b := make([]byte, o.n)
	copy(b, o.buf[:o.n])
	return b
}
