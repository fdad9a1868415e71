package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smallbiznis/quoteshare/internal/orgcontext"
)

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "***", RedactToken("abc"))
	assert.Equal(t, "abcdef***", RedactToken("abcdefghijklmnop"))
}

func TestWithContextAddsOrgAndRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := orgcontext.WithOrgID(context.Background(), 42)

	WithContext(ctx, zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "42", fields["org_id"])
	assert.Contains(t, fields, "request_id")
	assert.Contains(t, fields, "trace_id")
}

func TestGinMiddlewareRedactsTokenAndSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core), MiddlewareConfig{
		ErrorClassifier: func(err error) (string, string) { return "test", err.Error() },
	}))
	r.GET("/share/:token", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusGone)
	})

	req := httptest.NewRequest(http.MethodGet, "/share/abcdefghijklmnop", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/share/abcdef***", fields["path"])
	assert.Equal(t, "/share/:token", fields["route"])
	assert.Equal(t, "boom", fields["error_code"])
}

func TestGinMiddlewareKeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(GinMiddleware(zap.NewNop(), MiddlewareConfig{}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE share_links SET views_count = views_count + 1", 1
	}, errors.New("locked"))
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, gormlogger.ErrRecordNotFound)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "gorm.query", entry.Message)
	assert.Equal(t, "UPDATE", entry.ContextMap()["operation"])
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "DELETE", operationFromSQL("  delete from offers"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
