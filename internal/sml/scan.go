package sml

import (
	"encoding/binary"
	"fmt"
)

// SegmentInfo describes one entry of the segment table.
type SegmentInfo struct {
	Offset int  `json:"offset"`
	Type   byte `json:"type"`
	Length int  `json:"length"`
}

// TypeName returns a human-readable name for the segment type.
func (s SegmentInfo) TypeName() string {
	switch s.Type {
	case SegComment:
		return "comment"
	case SegFloatVertices:
		return "float-vertices"
	case SegDoubleVertices:
		return "double-vertices"
	case SegTriangles:
		return "triangles"
	case SegQuads:
		return "quads"
	case SegTriangleStrip:
		return "triangle-strip"
	}
	return fmt.Sprintf("unknown(%d)", s.Type)
}

// Scan walks the segment table without decoding any payload. It shares the
// decoder's fatal rules for the header and segment accounting.
func Scan(data []byte) ([]SegmentInfo, error) {
	size := len(data)
	if size < minFileSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncatedFile, size, minFileSize)
	}
	if [4]byte(data[:4]) != magic {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrInvalidHeader, data[:4], magic[:])
	}

	var segs []SegmentInfo
	pos := headerSize
	for pos < size {
		if pos+segHeaderSize > size {
			return nil, fmt.Errorf("%w: segment header at offset %d overruns file size %d",
				ErrTruncatedSegment, pos, size)
		}
		segType := data[pos]
		segLen := int(binary.LittleEndian.Uint32(data[pos+1:]))
		if pos+segHeaderSize+segLen > size {
			return nil, fmt.Errorf("%w: segment at offset %d declares %d payload bytes, only %d remain",
				ErrTruncatedSegment, pos, segLen, size-pos-segHeaderSize)
		}
		segs = append(segs, SegmentInfo{Offset: pos, Type: segType, Length: segLen})
		pos += segHeaderSize + segLen
	}
	return segs, nil
}

// StoredChecksum returns the CRC32C recorded in the header. It does not
// verify anything; callers wanting verification should decode.
func StoredChecksum(data []byte) (uint32, error) {
	if len(data) < headerSize {
		return 0, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncatedFile, len(data), headerSize)
	}
	return binary.LittleEndian.Uint32(data[4:8]), nil
}
