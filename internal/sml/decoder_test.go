package sml

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
	"testing"

	"github.com/beorn7/floats"
	"github.com/go-gl/mathgl/mgl64"

	"sml-renderer/internal/mesh"
)

// seg assembles one segment: type byte, little-endian length, payload.
func seg(typ byte, payload []byte) []byte {
	out := make([]byte, 0, segHeaderSize+len(payload))
	out = append(out, typ)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// buildFile assembles a full SML file with a correct stored checksum.
func buildFile(segs ...[]byte) []byte {
	out := []byte("SML1")
	out = append(out, 0, 0, 0, 0) // checksum placeholder
	for _, s := range segs {
		out = append(out, s...)
	}
	crc := crc32.Checksum(out[headerSize:], castagnoli)
	binary.LittleEndian.PutUint32(out[4:8], crc)
	return out
}

func f32s(vals ...float32) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func f64s(vals ...float64) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

func u32s(vals ...uint32) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

// unitVertices returns a float vertex payload where vertex i sits at (i, 0, 0).
// The axis remap keeps X untouched, so X identifies the pool index after decode.
func unitVertices(n int) []byte {
	var vals []float32
	for i := 0; i < n; i++ {
		vals = append(vals, float32(i), 0, 0)
	}
	return f32s(vals...)
}

func mustDecode(t *testing.T, data []byte) (*mesh.Mesh, []Diagnostic) {
	t.Helper()
	m, diags, err := Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return m, diags
}

func vecAlmostEqual(a, b mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if !floats.AlmostEqual(a[k], b[k], 1e-6) {
			return false
		}
	}
	return true
}

func triIndices(t *testing.T, tri mesh.Triangle) [3]int {
	t.Helper()
	return [3]int{int(tri.V1[0]), int(tri.V2[0]), int(tri.V3[0])}
}

func TestEmptySegmentFile(t *testing.T) {
	// Smallest clean file: header, checksum, one zero-length comment.
	data := buildFile(seg(SegComment, nil))
	if len(data) != minFileSize {
		t.Fatalf("fixture is %d bytes, want %d", len(data), minFileSize)
	}
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 0 {
		t.Errorf("got %d triangles, want 0", m.TriangleCount())
	}
	if len(diags) != 0 {
		t.Errorf("got diagnostics %v, want none", diags)
	}
}

func TestTruncatedFile(t *testing.T) {
	for _, n := range []int{0, 4, 8, 12} {
		data := make([]byte, n)
		copy(data, "SML1")
		_, _, err := Decode(context.Background(), data)
		if !errors.Is(err, ErrTruncatedFile) {
			t.Errorf("size %d: got %v, want ErrTruncatedFile", n, err)
		}
	}
}

func TestInvalidHeader(t *testing.T) {
	data := buildFile(seg(SegComment, nil))
	copy(data, "STL1")
	_, _, err := Decode(context.Background(), data)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("got %v, want ErrInvalidHeader", err)
	}
}

func TestVertexRemap(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, f32s(1, 2, 3, 0, 0, 0, 0, 0, 0)),
		seg(SegTriangles, u32s(0, 1, 2)),
	)
	m, diags := mustDecode(t, data)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if m.TriangleCount() != 1 {
		t.Fatalf("got %d triangles, want 1", m.TriangleCount())
	}
	want := mgl64.Vec3{1, 3, -2}
	if got := m.Triangles[0].V1; !vecAlmostEqual(got, want) {
		t.Errorf("remapped vertex = %v, want %v", got, want)
	}
}

func TestDoubleVertexRemap(t *testing.T) {
	data := buildFile(
		seg(SegDoubleVertices, f64s(1.5, -2.25, 3.125, 0, 0, 0, 0, 0, 0)),
		seg(SegTriangles, u32s(0, 1, 2)),
	)
	m, _ := mustDecode(t, data)
	if m.TriangleCount() != 1 {
		t.Fatalf("got %d triangles, want 1", m.TriangleCount())
	}
	want := mgl64.Vec3{1.5, 3.125, 2.25}
	if got := m.Triangles[0].V1; !vecAlmostEqual(got, want) {
		t.Errorf("remapped vertex = %v, want %v", got, want)
	}
}

func TestQuadFanSplit(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(4)),
		seg(SegQuads, u32s(0, 1, 2, 3)),
	)
	m, diags := mustDecode(t, data)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if m.TriangleCount() != 2 {
		t.Fatalf("got %d triangles, want 2", m.TriangleCount())
	}
	if got := triIndices(t, m.Triangles[0]); got != [3]int{0, 1, 2} {
		t.Errorf("first triangle = %v, want [0 1 2]", got)
	}
	if got := triIndices(t, m.Triangles[1]); got != [3]int{0, 2, 3} {
		t.Errorf("second triangle = %v, want [0 2 3]", got)
	}
}

func TestTriangleStripAlternation(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(5)),
		seg(SegTriangleStrip, u32s(0, 1, 2, 3, 4)),
	)
	m, diags := mustDecode(t, data)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	want := [][3]int{{0, 1, 2}, {0, 2, 3}, {3, 2, 4}}
	if m.TriangleCount() != len(want) {
		t.Fatalf("got %d triangles, want %d", m.TriangleCount(), len(want))
	}
	for i, w := range want {
		if got := triIndices(t, m.Triangles[i]); got != w {
			t.Errorf("triangle %d = %v, want %v", i, got, w)
		}
	}
}

func TestIndexOutOfRangeDropsFaceOnly(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(3)),
		seg(SegTriangles, u32s(
			0, 1, 2,
			0, 1, 99,
			2, 1, 0,
		)),
	)
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 2 {
		t.Fatalf("got %d triangles, want 2", m.TriangleCount())
	}
	if got := triIndices(t, m.Triangles[1]); got != [3]int{2, 1, 0} {
		t.Errorf("surviving triangle = %v, want [2 1 0]", got)
	}
	if len(diags) != 1 {
		t.Fatalf("got diagnostics %v, want exactly one", diags)
	}
	if diags[0].Kind != IndexOutOfRange || diags[0].Element != 1 {
		t.Errorf("diagnostic = %+v, want IndexOutOfRange at element 1", diags[0])
	}
}

func TestStripRecoversAfterBadStart(t *testing.T) {
	// Initial triangle references index 9 with only 3 vertices in the pool.
	// The poisoned corner lingers until the alternation swaps it out at i=5.
	data := buildFile(
		seg(SegFloatVertices, unitVertices(3)),
		seg(SegTriangleStrip, u32s(0, 1, 9, 2, 1, 0)),
	)
	m, diags := mustDecode(t, data)
	if len(diags) != 1 {
		t.Fatalf("got diagnostics %v, want exactly one", diags)
	}
	if diags[0].Kind != IndexOutOfRange || diags[0].Element != 0 {
		t.Errorf("diagnostic = %+v, want IndexOutOfRange at element 0", diags[0])
	}
	if m.TriangleCount() != 1 {
		t.Fatalf("got %d triangles, want 1", m.TriangleCount())
	}
	if got := triIndices(t, m.Triangles[0]); got != [3]int{2, 1, 0} {
		t.Errorf("recovered triangle = %v, want [2 1 0]", got)
	}
}

func TestShortStripEmitsNothing(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(3)),
		seg(SegTriangleStrip, u32s(0, 1)),
	)
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 0 {
		t.Errorf("got %d triangles, want 0", m.TriangleCount())
	}
	if len(diags) != 0 {
		t.Errorf("got diagnostics %v, want none", diags)
	}
}

func TestChecksumMismatchIsAdvisory(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(3)),
		seg(SegTriangles, u32s(0, 1, 2)),
	)
	binary.LittleEndian.PutUint32(data[4:8], 0xdeadbeef)

	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 1 {
		t.Errorf("got %d triangles, want 1 despite checksum mismatch", m.TriangleCount())
	}
	if len(diags) != 1 || diags[0].Kind != ChecksumMismatch {
		t.Errorf("diagnostics = %v, want one ChecksumMismatch", diags)
	}
}

func TestSkipChecksum(t *testing.T) {
	data := buildFile(seg(SegComment, []byte("hello")))
	binary.LittleEndian.PutUint32(data[4:8], 0xdeadbeef) // would mismatch if verified

	d := Decoder{SkipChecksum: true}
	m, diags, err := d.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.TriangleCount() != 0 {
		t.Errorf("got %d triangles, want 0", m.TriangleCount())
	}
	if len(diags) != 1 || diags[0].Kind != ChecksumUnavailable {
		t.Errorf("diagnostics = %v, want one ChecksumUnavailable", diags)
	}
}

func TestTruncatedSegmentIsFatal(t *testing.T) {
	good := seg(SegFloatVertices, unitVertices(3))
	bad := []byte{SegComment, 0xff, 0xff, 0, 0} // declares 65535 payload bytes
	data := buildFile(good, bad)

	m, diags, err := Decode(context.Background(), data)
	if !errors.Is(err, ErrTruncatedSegment) {
		t.Fatalf("got %v, want ErrTruncatedSegment", err)
	}
	if m != nil || diags != nil {
		t.Errorf("got mesh %v diags %v, want none on fatal error", m, diags)
	}
}

func TestUnsupportedSegmentSkipped(t *testing.T) {
	data := buildFile(
		seg(200, []byte{1, 2, 3, 4}),
		seg(SegFloatVertices, unitVertices(3)),
		seg(SegTriangles, u32s(0, 1, 2)),
	)
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 1 {
		t.Errorf("got %d triangles, want 1", m.TriangleCount())
	}
	if len(diags) != 1 || diags[0].Kind != UnsupportedSegment {
		t.Errorf("diagnostics = %v, want one UnsupportedSegment", diags)
	}
}

func TestPositionDesyncRecovery(t *testing.T) {
	// A float vertex list declaring 13 payload bytes holds one vertex plus a
	// stray byte. The stray byte is left unread, so the accounting check
	// fires on the next iteration and the loop resynchronizes. The stray 0x00
	// then parses as a zero-length comment segment.
	payload := append(f32s(7, 0, 0), 0x00)
	data := buildFile(
		seg(SegFloatVertices, payload),
		u32s(0), // length field of the comment segment the stray byte starts
	)
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 0 {
		t.Errorf("got %d triangles, want 0", m.TriangleCount())
	}
	if len(diags) != 1 || diags[0].Kind != PositionDesync {
		t.Fatalf("diagnostics = %v, want one PositionDesync", diags)
	}
}

func TestVertexPoolReplacedNotAppended(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(5)),
		seg(SegFloatVertices, unitVertices(2)),
		seg(SegTriangles, u32s(0, 1, 4)), // 4 was valid in the first pool only
	)
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 0 {
		t.Errorf("got %d triangles, want 0", m.TriangleCount())
	}
	if len(diags) != 1 || diags[0].Kind != IndexOutOfRange {
		t.Errorf("diagnostics = %v, want one IndexOutOfRange", diags)
	}
}

func TestFacesBeforeAnyVertexList(t *testing.T) {
	data := buildFile(seg(SegTriangles, u32s(0, 1, 2)))
	m, diags := mustDecode(t, data)
	if m.TriangleCount() != 0 {
		t.Errorf("got %d triangles, want 0", m.TriangleCount())
	}
	if len(diags) != 1 || diags[0].Kind != IndexOutOfRange {
		t.Errorf("diagnostics = %v, want one IndexOutOfRange", diags)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := buildFile(seg(SegFloatVertices, unitVertices(3)))
	m, diags, err := Decode(ctx, data)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
	if m != nil || diags != nil {
		t.Errorf("got mesh %v diags %v, want partial output discarded", m, diags)
	}
}

func TestYieldCancel(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(10)),
		seg(SegTriangles, u32s(0, 1, 2)),
	)

	calls := 0
	d := Decoder{Yield: func() error {
		calls++
		if calls > 5 {
			return errors.New("host shutdown")
		}
		return nil
	}}
	m, _, err := d.Decode(context.Background(), data)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
	if m != nil {
		t.Error("got a mesh, want partial output discarded")
	}
}

func TestYieldCheckpointCount(t *testing.T) {
	data := buildFile(
		seg(SegFloatVertices, unitVertices(2)),
		seg(SegTriangles, u32s(0, 1, 1)),
	)

	calls := 0
	d := Decoder{Yield: func() error { calls++; return nil }}
	if _, _, err := d.Decode(context.Background(), data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// One checksum chunk, two vertices, one face, two segment boundaries.
	if want := 6; calls != want {
		t.Errorf("yield called %d times, want %d", calls, want)
	}
}

func TestSegmentAccounting(t *testing.T) {
	// For a well-formed file the sum of (5 + length) over all segments plus
	// the 8-byte header equals the file size exactly.
	segs := [][]byte{
		seg(SegComment, []byte("generator: test")),
		seg(SegFloatVertices, unitVertices(4)),
		seg(SegQuads, u32s(0, 1, 2, 3)),
	}
	data := buildFile(segs...)

	total := headerSize
	infos, err := Scan(data)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, s := range infos {
		total += segHeaderSize + s.Length
	}
	if total != len(data) {
		t.Errorf("accounted %d bytes, file is %d", total, len(data))
	}

	if _, diags := mustDecode(t, data); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}
