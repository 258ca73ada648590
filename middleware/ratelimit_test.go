package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// errorBody decodes the shared error envelope the middleware and handlers
// both emit.
func errorBody(t *testing.T, w *httptest.ResponseRecorder) (msg, code string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error, body.Code
}

func limitedEngine(rps rate.Limit, burst int) *gin.Engine {
	eng := gin.New()
	eng.Use(RateLimit(rps, burst))
	eng.GET("/board", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func getAs(eng *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("X-Real-IP", ip)
	w := httptest.NewRecorder()
	eng.ServeHTTP(w, req)
	return w
}

func TestRateLimitExhaustedBurstRejectsWithEnvelope(t *testing.T) {
	// Near-zero refill so the bucket never recovers within the test.
	eng := limitedEngine(0.001, 2)

	for i := 0; i < 2; i++ {
		w := getAs(eng, "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "request %d within burst", i+1)
	}

	w := getAs(eng, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	msg, code := errorBody(t, w)
	assert.Equal(t, "rate_limited", code)
	assert.NotEmpty(t, msg)
}

func TestRateLimitBucketsArePerIP(t *testing.T) {
	eng := limitedEngine(0.001, 1)

	require.Equal(t, http.StatusOK, getAs(eng, "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, getAs(eng, "10.0.0.1").Code)

	// A different client still has its full burst.
	assert.Equal(t, http.StatusOK, getAs(eng, "10.0.0.2").Code)
}

func TestVisitorsEvictIdle(t *testing.T) {
	now := time.Now()
	v := &visitors{
		byIP:    make(map[string]*visitor),
		rps:     1,
		burst:   1,
		nowFunc: func() time.Time { return now },
	}

	v.take("10.0.0.1")
	now = now.Add(limiterIdleCutoff + time.Minute)
	v.take("10.0.0.2")

	v.evictIdle()

	v.mu.Lock()
	defer v.mu.Unlock()
	assert.NotContains(t, v.byIP, "10.0.0.1")
	assert.Contains(t, v.byIP, "10.0.0.2")
}
