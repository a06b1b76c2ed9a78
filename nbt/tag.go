package nbt

import (
	"fmt"
	"strconv"
)

// TagType is the one-byte type identifier that precedes every named tag.
type TagType byte

const (
	TagEnd TagType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = [...]string{
	"TAG_End", "TAG_Byte", "TAG_Short", "TAG_Int", "TAG_Long", "TAG_Float", "TAG_Double",
	"TAG_Byte_Array", "TAG_String", "TAG_List", "TAG_Compound", "TAG_Int_Array", "TAG_Long_Array",
}

func (t TagType) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "TAG_Unknown(" + strconv.Itoa(int(t)) + ")"
}

func (t TagType) valid() bool {
	return t <= TagLongArray
}

// Tag is any decoded tag value. The concrete types below form a closed set.
type Tag interface {
	Type() TagType
}

type (
	End       struct{}
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []int8
	String    string
	IntArray  []int32
	LongArray []int64
)

func (End) Type() TagType       { return TagEnd }
func (Byte) Type() TagType      { return TagByte }
func (Short) Type() TagType     { return TagShort }
func (Int) Type() TagType       { return TagInt }
func (Long) Type() TagType      { return TagLong }
func (Float) Type() TagType     { return TagFloat }
func (Double) Type() TagType    { return TagDouble }
func (ByteArray) Type() TagType { return TagByteArray }
func (String) Type() TagType    { return TagString }
func (IntArray) Type() TagType  { return TagIntArray }
func (LongArray) Type() TagType { return TagLongArray }

// Bytes returns a copy of the array as unsigned bytes.
func (a ByteArray) Bytes() []byte {
	out := make([]byte, len(a))
	for i, b := range a {
		out[i] = byte(b)
	}
	return out
}

// List is a homogeneous sequence. Its element type is fixed when it is created.
type List struct {
	elem  TagType
	items []Tag
}

func (*List) Type() TagType { return TagList }

// NewList builds a list of elem-typed tags. Mixing element types is an error.
func NewList(elem TagType, items ...Tag) (*List, error) {
	l := &List{elem: elem}
	for _, it := range items {
		if err := l.Append(it); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *List) Append(t Tag) error {
	if l.elem == TagEnd && len(l.items) == 0 {
		l.elem = t.Type()
	}
	if t.Type() != l.elem {
		return fmt.Errorf("%w: list of %s cannot hold %s", ErrMixedList, l.elem, t.Type())
	}
	l.items = append(l.items, t)
	return nil
}

func (l *List) ElemType() TagType { return l.elem }
func (l *List) Len() int          { return len(l.items) }
func (l *List) At(i int) Tag      { return l.items[i] }
func (l *List) Items() []Tag      { return l.items }

// Compounds returns the list's elements when it is a list of compounds. Empty lists of any declared
// element type yield nil.
func (l *List) Compounds() []*Compound {
	if l == nil || l.elem != TagCompound {
		return nil
	}
	out := make([]*Compound, len(l.items))
	for i, it := range l.items {
		out[i] = it.(*Compound)
	}
	return out
}

// Compound keeps its entries in insertion (on-disk) order, looked up by name.
type Compound struct {
	names []string
	index map[string]int
	vals  []Tag
}

func (*Compound) Type() TagType { return TagCompound }

func NewCompound() *Compound {
	return &Compound{index: make(map[string]int)}
}

// Set adds or replaces name. Replacing keeps the original position.
func (c *Compound) Set(name string, t Tag) {
	if i, ok := c.index[name]; ok {
		c.vals[i] = t
		return
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
	c.vals = append(c.vals, t)
}

func (c *Compound) Get(name string) (Tag, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.vals[i], true
}

func (c *Compound) Len() int { return len(c.names) }

// Names returns entry names in on-disk order.
func (c *Compound) Names() []string {
	return append([]string(nil), c.names...)
}

// Each visits entries in on-disk order until fn returns false.
func (c *Compound) Each(fn func(name string, t Tag) bool) {
	for i, n := range c.names {
		if !fn(n, c.vals[i]) {
			return
		}
	}
}

func (c *Compound) Compound(name string) (*Compound, bool) {
	t, _ := c.Get(name)
	v, ok := t.(*Compound)
	return v, ok
}

func (c *Compound) List(name string) (*List, bool) {
	t, _ := c.Get(name)
	v, ok := t.(*List)
	return v, ok
}

func (c *Compound) String(name string) (string, bool) {
	t, _ := c.Get(name)
	v, ok := t.(String)
	return string(v), ok
}

func (c *Compound) ByteArray(name string) (ByteArray, bool) {
	t, _ := c.Get(name)
	v, ok := t.(ByteArray)
	return v, ok
}

func (c *Compound) IntArray(name string) (IntArray, bool) {
	t, _ := c.Get(name)
	v, ok := t.(IntArray)
	return v, ok
}

func (c *Compound) LongArray(name string) (LongArray, bool) {
	t, _ := c.Get(name)
	v, ok := t.(LongArray)
	return v, ok
}

// Int returns any integral tag widened to int64. Schematic writers disagree on
// whether sizes are shorts or ints, so callers should not care.
func (c *Compound) Int(name string) (int64, bool) {
	t, _ := c.Get(name)
	switch v := t.(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Long:
		return int64(v), true
	}
	return 0, false
}

// Float returns a floating point tag widened to float64.
func (c *Compound) Float(name string) (float64, bool) {
	t, _ := c.Get(name)
	switch v := t.(type) {
	case Float:
		return float64(v), true
	case Double:
		return float64(v), true
	}
	return 0, false
}

// Has reports whether name is present with the given type.
func (c *Compound) Has(name string, typ TagType) bool {
	t, ok := c.Get(name)
	return ok && t.Type() == typ
}
