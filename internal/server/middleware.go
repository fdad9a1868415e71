package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/quoteshare/internal/observability/logger"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/pkg/telemetry"
	"go.uber.org/zap"
)

const HeaderOrg = "X-Org-ID"

// OrgContext requires the authenticated org the calling layer forwards in
// X-Org-ID and stores it in the request context.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := orgcontext.ParseOrgID(c.GetHeader(HeaderOrg))
		if !ok {
			AbortWithError(c, ErrOrgRequired)
			return
		}
		c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), int64(orgID)))
		c.Next()
	}
}

// OptionalOrgContext attaches X-Org-ID when present and well formed.
func OptionalOrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" {
			c.Next()
			return
		}
		orgID, ok := orgcontext.ParseOrgID(raw)
		if !ok {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid X-Org-ID header"))
			return
		}
		c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), int64(orgID)))
		c.Next()
	}
}

func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// ShareRateLimit throttles the public share surface per token and client IP.
func (s *Server) ShareRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.AllowAccess(ctx, c.Param("token"), c.ClientIP())
		if err != nil {
			obslogger.FromContext(ctx).Warn("share rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			s.denyRateLimited(c, res.RetryAfter)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

// ShareEditLock admits one edit at a time per share token.
func (s *Server) ShareEditLock() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		token := c.Param("token")
		lease, ok, err := s.limiter.TryLockEdit(ctx, token)
		if err != nil {
			obslogger.FromContext(ctx).Warn("share edit lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			AbortWithError(c, ErrEditInProgress)
			return
		}
		defer func() {
			// the request context may already be cancelled
			if err := s.limiter.ReleaseEdit(context.WithoutCancel(ctx), token, lease); err != nil {
				obslogger.FromContext(ctx).Warn("share edit unlock failed", zap.Error(err))
			}
		}()
		c.Next()
	}
}

func (s *Server) denyRateLimited(c *gin.Context, retryAfter time.Duration) {
	ctx := c.Request.Context()
	route := c.FullPath()
	obslogger.WithShareToken(obslogger.FromContext(ctx), c.Param("token")).Warn("share rate limit exceeded",
		zap.String("route", route),
		zap.String("client_ip", c.ClientIP()),
	)
	s.metrics.ObserveRateLimitDenied(route)

	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	AbortWithError(c, ErrRateLimited)
}
