package nbt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrTruncated      = errors.New("nbt: unexpected end of input")
	ErrUnknownTag     = errors.New("nbt: unknown tag type")
	ErrNegativeLength = errors.New("nbt: negative length")
	ErrInvalidUTF8    = errors.New("nbt: string is not valid UTF-8")
	ErrTooDeep        = errors.New("nbt: nesting too deep")
	ErrMixedList      = errors.New("nbt: mixed element types in list")
	ErrDuplicateName  = errors.New("nbt: duplicate name in compound")
)

// MaxDepth bounds list/compound nesting.
const MaxDepth = 512

// arrays are grown in steps of this many elements so that a corrupt length prefix
// cannot make us allocate more than the input actually holds
const allocStep = 1 << 16

// DecodeError reports where in the input a parse failed. Offset is relative to the
// uncompressed stream.
type DecodeError struct {
	Offset int64
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("nbt: decode failed at offset %d (%s): %v", e.Offset, path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder reads a single named root tag from an uncompressed stream.
type Decoder struct {
	r      *bufio.Reader
	offset int64
	path   []string
	buf    [8]byte
}

func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// Decode parses the root tag. On failure no partial tree is returned.
func (d *Decoder) Decode() (name string, root Tag, err error) {
	typ, err := d.readType()
	if err != nil {
		return "", nil, d.fail(err)
	}
	if typ == TagEnd {
		return "", nil, d.fail(fmt.Errorf("%w: root tag is TAG_End", ErrUnknownTag))
	}
	if name, err = d.readString(); err != nil {
		return "", nil, d.fail(err)
	}
	root, err = d.readPayload(typ, 0)
	if err != nil {
		return "", nil, d.fail(err)
	}
	return name, root, nil
}

// Decode decompresses (when gzip/zlib framed) and parses src.
func Decode(src io.Reader) (string, Tag, error) {
	r, closer, _, err := Decompress(src)
	if err != nil {
		return "", nil, err
	}
	defer closer.Close()
	return NewDecoder(r).Decode()
}

// DecodeCompound is Decode for the common case of a compound root.
func DecodeCompound(src io.Reader) (string, *Compound, error) {
	name, root, err := Decode(src)
	if err != nil {
		return "", nil, err
	}
	c, ok := root.(*Compound)
	if !ok {
		return "", nil, &DecodeError{Path: name, Err: fmt.Errorf("root is %s, want TAG_Compound", root.Type())}
	}
	return name, c, nil
}

func (d *Decoder) fail(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrTruncated
	}
	return &DecodeError{Offset: d.offset, Path: strings.Join(d.path, "."), Err: err}
}

func (d *Decoder) push(seg string) { d.path = append(d.path, seg) }
func (d *Decoder) pop()            { d.path = d.path[:len(d.path)-1] }

func (d *Decoder) readPayload(typ TagType, depth int) (Tag, error) {
	switch typ {
	case TagByte:
		b, err := d.readN(1)
		if err != nil {
			return nil, err
		}
		return Byte(int8(b[0])), nil
	case TagShort:
		b, err := d.readN(2)
		if err != nil {
			return nil, err
		}
		return Short(int16(binary.BigEndian.Uint16(b))), nil
	case TagInt:
		b, err := d.readN(4)
		if err != nil {
			return nil, err
		}
		return Int(int32(binary.BigEndian.Uint32(b))), nil
	case TagLong:
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		return Long(int64(binary.BigEndian.Uint64(b))), nil
	case TagFloat:
		b, err := d.readN(4)
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case TagDouble:
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
	case TagByteArray:
		return d.readByteArray()
	case TagString:
		s, err := d.readString()
		return String(s), err
	case TagList:
		return d.readList(depth + 1)
	case TagCompound:
		return d.readCompound(depth + 1)
	case TagIntArray:
		return d.readIntArray()
	case TagLongArray:
		return d.readLongArray()
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTag, typ)
}

func (d *Decoder) readCompound(depth int) (*Compound, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	c := NewCompound()
	for {
		typ, err := d.readType()
		if err != nil {
			return nil, err
		}
		if typ == TagEnd {
			return c, nil
		}
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		if _, dup := c.Get(name); dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		d.push(name)
		val, err := d.readPayload(typ, depth)
		if err != nil {
			return nil, err
		}
		d.pop()
		c.Set(name, val)
	}
}

func (d *Decoder) readList(depth int) (*List, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	typ, err := d.readType()
	if err != nil {
		return nil, err
	}
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	if typ == TagEnd && n > 0 {
		return nil, fmt.Errorf("%w: list of TAG_End with %d elements", ErrUnknownTag, n)
	}
	l := &List{elem: typ, items: make([]Tag, 0, min(n, allocStep))}
	for i := 0; i < n; i++ {
		d.push(strconv.Itoa(i))
		val, err := d.readPayload(typ, depth)
		if err != nil {
			return nil, err
		}
		d.pop()
		l.items = append(l.items, val)
	}
	return l, nil
}

func (d *Decoder) readByteArray() (ByteArray, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	out := make(ByteArray, 0, min(n, allocStep))
	for len(out) < n {
		chunk := min(n-len(out), allocStep)
		b, err := d.readN(chunk)
		if err != nil {
			return nil, err
		}
		for _, v := range b {
			out = append(out, int8(v))
		}
	}
	return out, nil
}

func (d *Decoder) readIntArray() (IntArray, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	out := make(IntArray, 0, min(n, allocStep))
	for i := 0; i < n; i++ {
		b, err := d.readN(4)
		if err != nil {
			return nil, err
		}
		out = append(out, int32(binary.BigEndian.Uint32(b)))
	}
	return out, nil
}

func (d *Decoder) readLongArray() (LongArray, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	out := make(LongArray, 0, min(n, allocStep))
	for i := 0; i < n; i++ {
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		out = append(out, int64(binary.BigEndian.Uint64(b)))
	}
	return out, nil
}

func (d *Decoder) readType() (TagType, error) {
	b, err := d.readN(1)
	if err != nil {
		return 0, err
	}
	typ := TagType(b[0])
	if !typ.valid() {
		d.offset--
		return 0, fmt.Errorf("%w: %d", ErrUnknownTag, b[0])
	}
	return typ, nil
}

func (d *Decoder) readLength() (int, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	n := int32(binary.BigEndian.Uint32(b))
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}
	return int(n), nil
}

func (d *Decoder) readString() (string, error) {
	b, err := d.readN(2)
	if err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(b))
	raw, err := d.readN(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

// readN returns the next n bytes. Short reads use the scratch buffer, longer ones allocate.
func (d *Decoder) readN(n int) ([]byte, error) {
	var b []byte
	if n <= len(d.buf) {
		b = d.buf[:n]
	} else {
		b = make([]byte, n)
	}
	read, err := io.ReadFull(d.r, b)
	d.offset += int64(read)
	if err != nil {
		return nil, err
	}
	return b, nil
}
