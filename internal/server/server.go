// Package server exposes SML decoding and preview rendering over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/HugoSmits86/nativewebp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v5"

	"sml-renderer/internal/logger"
	"sml-renderer/internal/mesh"
	"sml-renderer/internal/postprocess"
	"sml-renderer/internal/raster"
	"sml-renderer/internal/sml"
)

// maxUpload bounds request bodies; SML files past this are rejected outright.
const maxUpload = 64 << 20

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Log         logger.Logger
	RenderSize  int
	Supersample int
	Matcap      *image.NRGBA
	CacheSize   int     // rendered previews kept in memory
	RateLimit   float64 // uploads per second per client, 0 disables
	Burst       int
}

// Server handles preview and inspection requests.
type Server struct {
	opts  Options
	log   logger.Logger
	cache *lru.Cache[cacheKey, []byte]
	lims  *limiterPool
}

// cacheKey identifies one rendered preview: body identity plus render params.
type cacheKey struct {
	crc    uint32
	length int
	size   int
	yaw    float64
	pitch  float64
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	if opts.RenderSize <= 0 {
		opts.RenderSize = 512
	}
	if opts.Supersample <= 0 {
		opts.Supersample = 2
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}

	cache, err := lru.New[cacheKey, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("server: cache: %w", err)
	}

	return &Server{
		opts:  opts,
		log:   opts.Log,
		cache: cache,
		lims:  newLimiterPool(opts.RateLimit, opts.Burst),
	}, nil
}

// Register attaches routes and middleware to the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.Use(s.requestID)
	e.Use(s.throttle)

	e.POST("/v1/previews", s.handlePreview)
	e.POST("/v1/inspect", s.handleInspect)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePreview(c *echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	size := queryInt(c, "size", s.opts.RenderSize)
	yaw := queryFloat(c, "yaw", 0)
	pitch := queryFloat(c, "pitch", 0)

	key, haveKey := previewKey(body, size, yaw, pitch)
	if haveKey {
		if webp, ok := s.cache.Get(key); ok {
			c.Response().Header().Set("X-Cache", "hit")
			return c.Blob(http.StatusOK, "image/webp", webp)
		}
	}

	m, diags, err := sml.Decode(c.Request().Context(), body)
	if err != nil {
		return decodeError(c, err)
	}
	s.logDiagnostics(c, diags)

	img := raster.Render(m, raster.Options{
		Size:        size,
		Supersample: s.opts.Supersample,
		Yaw:         yaw,
		Pitch:       pitch,
		Matcap:      s.opts.Matcap,
	})
	if s.opts.Supersample > 1 {
		img = postprocess.Downsample(img, size)
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", fmt.Sprintf("webp encode: %v", err))
	}
	if haveKey {
		s.cache.Add(key, buf.Bytes())
	}

	c.Response().Header().Set("X-Sml-Diagnostics", strconv.Itoa(len(diags)))
	return c.Blob(http.StatusOK, "image/webp", buf.Bytes())
}

// InspectReport is the JSON reply of /v1/inspect.
type InspectReport struct {
	Triangles   int               `json:"triangles"`
	BoundsMin   [3]float64        `json:"bounds_min"`
	BoundsMax   [3]float64        `json:"bounds_max"`
	Segments    []sml.SegmentInfo `json:"segments"`
	Diagnostics []sml.Diagnostic  `json:"diagnostics"`
}

func (s *Server) handleInspect(c *echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	m, diags, err := sml.Decode(c.Request().Context(), body)
	if err != nil {
		return decodeError(c, err)
	}
	s.logDiagnostics(c, diags)

	segs, _ := sml.Scan(body) // decode already validated the table

	report := InspectReport{
		Triangles:   m.TriangleCount(),
		Segments:    segs,
		Diagnostics: diags,
	}
	report.BoundsMin, report.BoundsMax = bounds(m)
	return c.JSON(http.StatusOK, report)
}

func (s *Server) logDiagnostics(c *echo.Context, diags []sml.Diagnostic) {
	for _, d := range diags {
		s.log.Warn("decode diagnostic",
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"kind", d.Kind.String(),
			"detail", d.Detail)
	}
}

func bounds(m *mesh.Mesh) ([3]float64, [3]float64) {
	min, max := m.BoundingBox()
	return [3]float64(min), [3]float64(max)
}

func readBody(c *echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxUpload {
		return nil, fmt.Errorf("body exceeds %d bytes", maxUpload)
	}
	return body, nil
}

func previewKey(body []byte, size int, yaw, pitch float64) (cacheKey, bool) {
	crc, err := sml.StoredChecksum(body)
	if err != nil {
		return cacheKey{}, false
	}
	return cacheKey{crc: crc, length: len(body), size: size, yaw: yaw, pitch: pitch}, true
}

func queryInt(c *echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func queryFloat(c *echo.Context, name string, def float64) float64 {
	if v := c.QueryParam(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// decodeError maps the fatal decode taxonomy onto HTTP error envelopes.
func decodeError(c *echo.Context, err error) error {
	kind := "decode_error"
	switch {
	case errors.Is(err, sml.ErrInvalidHeader):
		kind = "invalid_header"
	case errors.Is(err, sml.ErrTruncatedFile):
		kind = "truncated_file"
	case errors.Is(err, sml.ErrTruncatedSegment):
		kind = "truncated_segment"
	case errors.Is(err, sml.ErrCancelled):
		kind = "cancelled"
	}
	return writeError(c, http.StatusUnprocessableEntity, kind, err.Error())
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": map[string]any{
			"type":    errType,
			"message": msg,
		},
	})
}
