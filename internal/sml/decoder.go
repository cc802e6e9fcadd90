package sml

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"sml-renderer/internal/mesh"
)

// Decoder decodes SML files into triangle soup. The zero value is ready to use.
type Decoder struct {
	// SkipChecksum disables CRC32C verification. The skip is reported as a
	// ChecksumUnavailable diagnostic, never silently.
	SkipChecksum bool

	// Yield, when set, is called at every cooperative checkpoint: after each
	// checksum chunk, after each segment and after each decoded element.
	// Returning a non-nil error cancels the decode with ErrCancelled.
	Yield func() error
}

// Decode decodes one SML file with default options.
func Decode(ctx context.Context, data []byte) (*mesh.Mesh, []Diagnostic, error) {
	var d Decoder
	return d.Decode(ctx, data)
}

// Decode decodes one SML file. On success it returns the decoded mesh and any
// non-fatal diagnostics collected along the way. A fatal condition
// (ErrTruncatedFile, ErrInvalidHeader, ErrTruncatedSegment, ErrCancelled)
// returns no mesh at all: partial results are discarded.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*mesh.Mesh, []Diagnostic, error) {
	size := len(data)
	if size < minFileSize {
		return nil, nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncatedFile, size, minFileSize)
	}
	if [4]byte(data[:4]) != magic {
		return nil, nil, fmt.Errorf("%w: got %q, want %q", ErrInvalidHeader, data[:4], magic[:])
	}
	stored := binary.LittleEndian.Uint32(data[4:8])

	s := &session{
		dec: d,
		ctx: ctx,
		cur: cursor{data: data, off: headerSize},
	}

	if d.SkipChecksum {
		s.diag(Diagnostic{Kind: ChecksumUnavailable, Offset: 4, Element: -1,
			Detail: "checksum verification disabled, decoding unchecked"})
	} else {
		crc, err := bodyChecksum(data[headerSize:], s.checkpoint)
		if err != nil {
			return nil, nil, err
		}
		if crc != stored {
			// Advisory only. The segment table is self-describing enough to
			// attempt a best-effort decode of a corrupted file.
			s.diag(Diagnostic{Kind: ChecksumMismatch, Offset: 4, Element: -1,
				Detail: fmt.Sprintf("stored %#010x, computed %#010x", stored, crc)})
		}
	}

	if err := s.run(); err != nil {
		return nil, nil, err
	}
	return &mesh.Mesh{Triangles: s.tris}, s.diags, nil
}

// session holds the state of a single decode call. The vertex pool is owned
// here and replaced wholesale on every vertex-list segment; face decoding
// only ever reads it.
type session struct {
	dec   *Decoder
	ctx   context.Context
	cur   cursor
	pool  []mgl64.Vec3
	tris  []mesh.Triangle
	diags []Diagnostic
}

func (s *session) diag(d Diagnostic) {
	s.diags = append(s.diags, d)
}

func (s *session) checkpoint() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	if s.dec.Yield != nil {
		if err := s.dec.Yield(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
	}
	return nil
}

// run is the segment dispatch loop, starting just past the header.
func (s *session) run() error {
	size := len(s.cur.data)
	pos := headerSize

	for pos < size {
		// Position accounting drifts when a segment declares more payload
		// than its elements consume (length not a multiple of the element
		// stride). Resync to the cursor and keep going.
		if pos != s.cur.off {
			s.diag(Diagnostic{Kind: PositionDesync, Offset: s.cur.off, Element: -1,
				Detail: fmt.Sprintf("expected position %d, cursor at %d", pos, s.cur.off)})
			pos = s.cur.off
		}

		segStart := pos
		segType, err := s.cur.u8()
		if err != nil {
			return fmt.Errorf("%w: segment header at offset %d: %v", ErrTruncatedSegment, segStart, err)
		}
		rawLen, err := s.cur.u32()
		if err != nil {
			return fmt.Errorf("%w: segment header at offset %d: %v", ErrTruncatedSegment, segStart, err)
		}
		segLen := int(rawLen)
		pos += segHeaderSize
		if pos+segLen > size {
			// The rest of the file is unreliable; give up rather than guess.
			return fmt.Errorf("%w: segment at offset %d declares %d payload bytes, only %d remain",
				ErrTruncatedSegment, segStart, segLen, size-pos)
		}
		pos += segLen

		switch segType {
		case SegComment:
			err = s.cur.skip(segLen)
		case SegFloatVertices:
			err = s.decodeVertices(segStart, segLen/12, false)
		case SegDoubleVertices:
			err = s.decodeVertices(segStart, segLen/24, true)
		case SegTriangles:
			err = s.decodeTriangles(segStart, segLen/12)
		case SegQuads:
			err = s.decodeQuads(segStart, segLen/16)
		case SegTriangleStrip:
			err = s.decodeStrip(segStart, segLen/4)
		default:
			s.diag(Diagnostic{Kind: UnsupportedSegment, Offset: segStart, Element: -1,
				Detail: fmt.Sprintf("unknown segment type %d, skipping %d bytes", segType, segLen)})
			err = s.cur.skip(segLen)
		}
		if err != nil {
			return err
		}

		if err := s.checkpoint(); err != nil {
			return err
		}
	}
	return nil
}

// remap converts a source Z-up triple to the Y-up point the format mandates.
func remap(x, y, z float64) mgl64.Vec3 {
	return mgl64.Vec3{x, z, -y}
}

func (s *session) decodeVertices(segStart, count int, double bool) error {
	pool := make([]mgl64.Vec3, 0, count)
	for i := 0; i < count; i++ {
		var x, y, z float64
		var err error
		if double {
			x, y, z, err = s.cur.f64Triple()
		} else {
			x, y, z, err = s.cur.f32Triple()
		}
		if err != nil {
			return s.payloadErr(segStart, err)
		}
		pool = append(pool, remap(x, y, z))
		if err := s.checkpoint(); err != nil {
			return err
		}
	}
	// Replace, never append: only the most recent vertex list is valid
	// context for the face segments that follow.
	s.pool = pool
	return nil
}

func (s *session) decodeTriangles(segStart, count int) error {
	for i := 0; i < count; i++ {
		a, b, c, err := s.cur.u32Triple()
		if err != nil {
			return s.payloadErr(segStart, err)
		}
		s.emit(segStart, i, a, b, c)
		if err := s.checkpoint(); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) decodeQuads(segStart, count int) error {
	n := uint32(len(s.pool))
	for i := 0; i < count; i++ {
		a, b, c, err := s.cur.u32Triple()
		if err != nil {
			return s.payloadErr(segStart, err)
		}
		d, err := s.cur.u32()
		if err != nil {
			return s.payloadErr(segStart, err)
		}
		if a >= n || b >= n || c >= n || d >= n {
			s.diag(Diagnostic{Kind: IndexOutOfRange, Offset: segStart, Element: i,
				Detail: fmt.Sprintf("a=%d b=%d c=%d d=%d vertices=%d", a, b, c, d, n)})
		} else {
			// Fan split on the fixed a–c diagonal.
			s.tris = append(s.tris,
				mesh.Triangle{V1: s.pool[a], V2: s.pool[b], V3: s.pool[c]},
				mesh.Triangle{V1: s.pool[a], V2: s.pool[c], V3: s.pool[d]})
		}
		if err := s.checkpoint(); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) decodeStrip(segStart, count int) error {
	if count < 3 {
		// Too short to form even one triangle; consume the declared indices.
		for i := 0; i < count; i++ {
			if _, err := s.cur.u32(); err != nil {
				return s.payloadErr(segStart, err)
			}
		}
		return nil
	}

	a, b, c, err := s.cur.u32Triple()
	if err != nil {
		return s.payloadErr(segStart, err)
	}
	n := uint32(len(s.pool))
	if a >= n || b >= n || c >= n {
		// The bad corner lingers for a triangle or two, but the strip
		// recovers on its own once fresh in-range indices arrive.
		s.diag(Diagnostic{Kind: IndexOutOfRange, Offset: segStart, Element: 0,
			Detail: fmt.Sprintf("strip start a=%d b=%d c=%d vertices=%d", a, b, c, n)})
	} else {
		s.tris = append(s.tris, mesh.Triangle{V1: s.pool[a], V2: s.pool[b], V3: s.pool[c]})
	}
	if err := s.checkpoint(); err != nil {
		return err
	}

	for i := 3; i < count; i++ {
		if i&1 == 1 {
			b = c
		} else {
			a = c
		}
		c, err = s.cur.u32()
		if err != nil {
			return s.payloadErr(segStart, err)
		}
		switch {
		case c >= n:
			s.diag(Diagnostic{Kind: IndexOutOfRange, Offset: segStart, Element: i,
				Detail: fmt.Sprintf("c=%d vertices=%d", c, n)})
		case a < n && b < n:
			s.tris = append(s.tris, mesh.Triangle{V1: s.pool[a], V2: s.pool[b], V3: s.pool[c]})
		}
		// A corner inherited from an out-of-range index drops silently here:
		// it was already reported when it entered the strip.
		if err := s.checkpoint(); err != nil {
			return err
		}
	}
	return nil
}

// emit resolves one triangle against the current pool, dropping it with a
// diagnostic when any index is out of range.
func (s *session) emit(segStart, elem int, a, b, c uint32) {
	n := uint32(len(s.pool))
	if a >= n || b >= n || c >= n {
		s.diag(Diagnostic{Kind: IndexOutOfRange, Offset: segStart, Element: elem,
			Detail: fmt.Sprintf("a=%d b=%d c=%d vertices=%d", a, b, c, n)})
		return
	}
	s.tris = append(s.tris, mesh.Triangle{V1: s.pool[a], V2: s.pool[b], V3: s.pool[c]})
}

func (s *session) payloadErr(segStart int, err error) error {
	return fmt.Errorf("%w: payload of segment at offset %d: %v", ErrTruncatedSegment, segStart, err)
}
