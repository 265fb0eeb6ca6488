package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func admitRoute(limiter gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/sessions", limiter, func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	return r
}

func TestAdmitRateLimit_Disabled(t *testing.T) {
	r := admitRoute(AdmitRateLimit(0, 5))

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d: status %d with throttling disabled", i, w.Code)
		}
	}
}

func TestAdmitRateLimit_ThrottlesPastBurst(t *testing.T) {
	r := admitRoute(AdmitRateLimit(1, 3))

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	for i := 0; i < 3; i++ {
		if statuses[i] != http.StatusCreated {
			t.Errorf("request %d: status %d, want 201 within burst", i, statuses[i])
		}
	}
	for i := 3; i < 5; i++ {
		if statuses[i] != http.StatusTooManyRequests {
			t.Errorf("request %d: status %d, want 429 past burst", i, statuses[i])
		}
	}
}

func TestAdmitRateLimit_KeysAreIndependent(t *testing.T) {
	r := admitRoute(AdmitRateLimit(1, 1))

	for i, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Errorf("client %d: status %d, want 201 (separate limiter per client)", i, w.Code)
		}
	}
}
