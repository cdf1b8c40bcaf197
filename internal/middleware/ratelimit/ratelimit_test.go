package rateLimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitByIP_PerClientBudget(t *testing.T) {
	h := limitByIP(3, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec.Code
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit("10.0.0.1:1234"))
	}

	// Первый клиент исчерпал лимит.
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1234"))

	// Лимит первого не задевает второго.
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1234"))
}
