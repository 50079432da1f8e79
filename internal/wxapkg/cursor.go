package wxapkg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by ReadString for names that are not valid UTF-8
var ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

// Cursor is a bounds-checked big-endian reader over an immutable buffer.
// Slices it returns alias the buffer; nothing is copied.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a Cursor positioned at the start of buf
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read position
func (c *Cursor) Pos() int { return c.pos }

// Len returns the length of the underlying buffer
func (c *Cursor) Len() int { return len(c.buf) }

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (byte, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU32 reads a big-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadBytes returns buf[pos:pos+n] and advances past it.
// The position is left alone on failure.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.SliceAt(c.pos, n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

// ReadString reads n bytes as text. Invalid UTF-8 is rejected rather than
// passed on, since names end up as file paths.
func (c *Cursor) ReadString(n int) (string, error) {
	start := c.pos
	b, err := c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		c.pos = start
		return "", fmt.Errorf("%w: %d bytes at offset %d", ErrInvalidUTF8, n, start)
	}
	return string(b), nil
}

// SliceAt returns buf[offset:offset+n] without touching the read position.
func (c *Cursor) SliceAt(offset, n int) ([]byte, error) {
	// offset+n is compared as an unsigned sum so huge sizes from a 32-bit
	// field cannot wrap around on 32-bit platforms.
	if offset < 0 || n < 0 || uint64(offset)+uint64(n) > uint64(len(c.buf)) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, buffer has %d",
			ErrUnexpectedEOF, n, offset, len(c.buf))
	}
	return c.buf[offset : offset+n : offset+n], nil
}
