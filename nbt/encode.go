package nbt

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Encode writes root as a named, uncompressed tag tree.
func Encode(w io.Writer, name string, root Tag) error {
	return NewEncoder(w).Encode(name, root)
}

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(name string, root Tag) error {
	if root == nil || root.Type() == TagEnd {
		return errors.New("nbt: cannot encode an empty root")
	}
	if err := e.writeTag(root.Type(), name); err != nil {
		return err
	}
	return e.writePayload(root)
}

func (e *Encoder) writePayload(t Tag) error {
	switch v := t.(type) {
	case Byte:
		_, err := e.w.Write([]byte{byte(v)})
		return err
	case Short:
		return e.writeInt16(int16(v))
	case Int:
		return e.writeInt32(int32(v))
	case Long:
		return e.writeInt64(int64(v))
	case Float:
		return e.writeInt32(int32(math.Float32bits(float32(v))))
	case Double:
		return e.writeInt64(int64(math.Float64bits(float64(v))))
	case ByteArray:
		if err := e.writeInt32(int32(len(v))); err != nil {
			return err
		}
		_, err := e.w.Write(v.Bytes())
		return err
	case String:
		return e.writeString(string(v))
	case *List:
		return e.writeList(v)
	case *Compound:
		return e.writeCompound(v)
	case IntArray:
		if err := e.writeInt32(int32(len(v))); err != nil {
			return err
		}
		for _, n := range v {
			if err := e.writeInt32(n); err != nil {
				return err
			}
		}
		return nil
	case LongArray:
		if err := e.writeInt32(int32(len(v))); err != nil {
			return err
		}
		for _, n := range v {
			if err := e.writeInt64(n); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: cannot encode %T", ErrUnknownTag, t)
}

func (e *Encoder) writeList(l *List) error {
	if _, err := e.w.Write([]byte{byte(l.elem)}); err != nil {
		return err
	}
	if err := e.writeInt32(int32(len(l.items))); err != nil {
		return err
	}
	for _, it := range l.items {
		if err := e.writePayload(it); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeCompound(c *Compound) error {
	for i, name := range c.names {
		val := c.vals[i]
		if err := e.writeTag(val.Type(), name); err != nil {
			return err
		}
		if err := e.writePayload(val); err != nil {
			return err
		}
	}
	_, err := e.w.Write([]byte{byte(TagEnd)})
	return err
}

func (e *Encoder) writeTag(tagType TagType, tagName string) error {
	if _, err := e.w.Write([]byte{byte(tagType)}); err != nil {
		return err
	}
	return e.writeString(tagName)
}

func (e *Encoder) writeString(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes is too long", len(s))
	}
	if err := e.writeInt16(int16(uint16(len(s)))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

func (e *Encoder) writeInt16(n int16) error {
	_, err := e.w.Write([]byte{byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt32(n int32) error {
	_, err := e.w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt64(n int64) error {
	_, err := e.w.Write([]byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}
