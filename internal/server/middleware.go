package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"
)

// requestID tags every response with a fresh request id unless the
// client supplied one.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

// throttle applies a per-client token bucket to upload endpoints.
func (s *Server) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if c.Request().Method != http.MethodPost {
			return next(c)
		}
		if !s.lims.allow(c.RealIP()) {
			return writeError(c, http.StatusTooManyRequests, "rate_limited", "too many uploads")
		}
		return next(c)
	}
}

// limiterPool keeps one token bucket per client address.
type limiterPool struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byIP  map[string]*rate.Limiter
}

func newLimiterPool(perSecond float64, burst int) *limiterPool {
	return &limiterPool{
		limit: rate.Limit(perSecond),
		burst: burst,
		byIP:  make(map[string]*rate.Limiter),
	}
}

func (p *limiterPool) allow(ip string) bool {
	if p.limit <= 0 {
		return true
	}
	p.mu.Lock()
	lim, ok := p.byIP[ip]
	if !ok {
		lim = rate.NewLimiter(p.limit, p.burst)
		p.byIP[ip] = lim
	}
	p.mu.Unlock()
	return lim.Allow()
}
