// Package sml decodes the SML binary mesh container: a "SML1" magic token,
// a CRC32C of the body, then a run of length-prefixed segments carrying
// comments, vertex lists and face topology. Decoding produces a flat
// triangle soup plus a list of non-fatal diagnostics.
package sml

import "errors"

const (
	headerSize    = 8  // 4-byte magic + 4-byte stored CRC32C
	segHeaderSize = 5  // 1-byte type + 4-byte payload length
	minFileSize   = 13 // header + one empty segment
)

var magic = [4]byte{'S', 'M', 'L', '1'}

// Segment type tags. Anything else is skipped as forward-compatible.
const (
	SegComment        = 0
	SegFloatVertices  = 1 // 3×float32 per vertex
	SegDoubleVertices = 2 // 3×float64 per vertex
	SegTriangles      = 3 // 3×uint32 per face
	SegQuads          = 4 // 4×uint32 per face, fan-split on the a–c diagonal
	SegTriangleStrip  = 5 // uint32 stream, alternating winding
)

// Fatal decode failures. These abort the whole file: no mesh is returned.
// Wrapped errors carry offsets; match with errors.Is.
var (
	ErrTruncatedFile    = errors.New("sml: file truncated")
	ErrInvalidHeader    = errors.New("sml: invalid header")
	ErrTruncatedSegment = errors.New("sml: segment truncated")
	ErrCancelled        = errors.New("sml: decode cancelled")
)

// DiagKind classifies a non-fatal decode diagnostic.
type DiagKind int

const (
	ChecksumMismatch DiagKind = iota
	ChecksumUnavailable
	PositionDesync
	UnsupportedSegment
	IndexOutOfRange
)

func (k DiagKind) String() string {
	switch k {
	case ChecksumMismatch:
		return "checksum-mismatch"
	case ChecksumUnavailable:
		return "checksum-unavailable"
	case PositionDesync:
		return "position-desync"
	case UnsupportedSegment:
		return "unsupported-segment"
	case IndexOutOfRange:
		return "index-out-of-range"
	}
	return "unknown"
}

// MarshalText renders the kind as its string form in JSON reports.
func (k DiagKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic reports a recoverable problem found while decoding.
// Offset is the byte offset of the segment (or region) involved. Element is
// the element index inside the segment payload, or -1 when not applicable.
type Diagnostic struct {
	Kind    DiagKind `json:"kind"`
	Offset  int      `json:"offset"`
	Element int      `json:"element"`
	Detail  string   `json:"detail"`
}

func (d Diagnostic) String() string {
	return d.Kind.String() + ": " + d.Detail
}
