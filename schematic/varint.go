package schematic

// varintReader decodes unsigned LEB128 values: 7 payload bits per byte, least significant group
// first, high bit set on every byte but the last.
type varintReader struct {
	data []int8
	pos  int
}

func (r *varintReader) next() (uint32, error) {
	var v uint32
	for shift := 0; shift < 35; shift += 7 {
		if r.pos >= len(r.data) {
			return 0, ErrTruncatedStream
		}
		b := byte(r.data[r.pos])
		r.pos++
		if shift == 28 && b&0x70 != 0 {
			return 0, ErrMalformedVarint
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrMalformedVarint
}

// readVarints decodes exactly n values. Bytes after the n-th value are ignored.
func readVarints(data []int8, n int) ([]uint32, error) {
	r := varintReader{data: data}
	out := make([]uint32, n)
	for i := range out {
		v, err := r.next()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
