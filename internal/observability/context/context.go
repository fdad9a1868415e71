package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/pkg/telemetry/correlation"
)

// WithRequestID stores the request identifier. It doubles as the correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return correlation.ContextWithCorrelationID(ctx, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request identifier, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	return correlation.ExtractCorrelationID(ctx)
}

// OrgIDFromContext returns the caller org as a log-friendly string.
func OrgIDFromContext(ctx context.Context) string {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ""
	}
	return orgID.String()
}
