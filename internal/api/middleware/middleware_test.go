package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"promo-meal-planner/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(10))
	r.POST("/", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 11))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	defer d.Close()

	r := gin.New()
	r.Use(d.Middleware())
	r.POST("/plan", ok)
	r.GET("/plan", ok)

	send := func(method, body string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, "/plan", strings.NewReader(body)))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, `{"query":"a"}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, `{"query":"a"}`))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, `{"query":"b"}`))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, ""))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, ""))
}

func TestDeduplicator_Cleanup(t *testing.T) {
	d := NewDeduplicator(time.Millisecond)
	defer d.Close()

	now := time.Now()
	assert.False(t, d.seen("k", now))
	assert.True(t, d.seen("k", now))

	d.cleanup(now.Add(time.Second))
	assert.Empty(t, d.requests)
	assert.False(t, d.seen("k", now.Add(time.Second)))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(2, time.Hour))
	r.GET("/", ok)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Contains(t, last.Body.String(), common.ErrTooManyRequests.Code)

	// 不同 IP 各自計算
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), Logger())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(requestid.New(), RequestContext(time.Minute))

	var id string
	var hasDeadline bool
	r.GET("/", func(c *gin.Context) {
		id = common.RequestIDFromContext(c.Request.Context())
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", id)
	assert.True(t, hasDeadline)
}
