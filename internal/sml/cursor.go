package sml

import (
	"encoding/binary"
	"fmt"
	"math"
)

// cursor reads sequentially from an in-memory file. Every read is bounds
// checked; reads past the end leave the offset untouched and return an error.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) remaining() int {
	return len(c.data) - c.off
}

func (c *cursor) need(n int) error {
	if c.off+n > len(c.data) {
		return fmt.Errorf("read of %d bytes at offset %d exceeds file size %d", n, c.off, len(c.data))
	}
	return nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) f32() (float32, error) {
	v, err := c.u32()
	return math.Float32frombits(v), err
}

func (c *cursor) u32Triple() (a, b, v uint32, err error) {
	if a, err = c.u32(); err != nil {
		return
	}
	if b, err = c.u32(); err != nil {
		return
	}
	v, err = c.u32()
	return
}

func (c *cursor) f32Triple() (x, y, z float64, err error) {
	var fx, fy, fz float32
	if fx, err = c.f32(); err != nil {
		return
	}
	if fy, err = c.f32(); err != nil {
		return
	}
	if fz, err = c.f32(); err != nil {
		return
	}
	return float64(fx), float64(fy), float64(fz), nil
}

func (c *cursor) f64Triple() (x, y, z float64, err error) {
	if x, err = c.f64(); err != nil {
		return
	}
	if y, err = c.f64(); err != nil {
		return
	}
	z, err = c.f64()
	return
}

func (c *cursor) f64() (float64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(c.data[c.off:]))
	c.off += 8
	return v, nil
}
