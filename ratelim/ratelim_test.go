package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Limit(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h(rr, req, nil)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3333"), "same host, new port")
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111"))
}

func TestSweepForgetsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	now := time.Now()
	rl.getLimiter("1.2.3.4", now.Add(-11*time.Minute))
	rl.getLimiter("5.6.7.8", now)

	rl.Sweep(now)
	assert.NotContains(t, rl.visitors, "1.2.3.4")
	assert.Contains(t, rl.visitors, "5.6.7.8")
}
