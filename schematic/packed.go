package schematic

import (
	"fmt"
	"math/bits"
)

// bitsPerEntry is the packed width for a palette of n entries: ceil(log2(n)), at least 1.
func bitsPerEntry(n int) int {
	if n <= 2 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

// bitCursor walks values of a fixed width packed low-bit-first across 64-bit words with no
// padding. A value may straddle two words; its low bits then come from the top of the current
// word and its high bits from the bottom of the next.
type bitCursor struct {
	words []int64
	width uint
	mask  uint64
	count int

	word int
	off  uint
}

// newBitCursor checks up front that words hold count values of the given width.
func newBitCursor(words []int64, width, count int) (*bitCursor, error) {
	if width < 1 || width > 32 {
		return nil, fmt.Errorf("schematic: packed width %d outside 1..32", width)
	}
	need := (count*width + 63) / 64
	if len(words) < need {
		return nil, fmt.Errorf("%w: %d words hold %d of %d values", ErrTruncatedStream,
			len(words), len(words)*64/width, count)
	}
	return &bitCursor{
		words: words,
		width: uint(width),
		mask:  1<<uint(width) - 1,
		count: count,
	}, nil
}

// seek positions the cursor before value i.
func (c *bitCursor) seek(i int) {
	bit := uint64(i) * uint64(c.width)
	c.word = int(bit / 64)
	c.off = uint(bit % 64)
}

func (c *bitCursor) next() uint32 {
	v := uint64(c.words[c.word]) >> c.off
	end := c.off + c.width
	if end > 64 {
		v |= uint64(c.words[c.word+1]) << (64 - c.off)
	}
	if end >= 64 {
		c.word++
		c.off = end - 64
	} else {
		c.off = end
	}
	return uint32(v & c.mask)
}
