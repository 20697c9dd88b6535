package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newProtectedRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ServiceAuthMiddleware(token))
	r.GET("/secure", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestServiceAuthMiddleware_NoHeader(t *testing.T) {
	r := newProtectedRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/secure", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestServiceAuthMiddleware_BadToken(t *testing.T) {
	r := newProtectedRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/secure", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestServiceAuthMiddleware_ValidToken(t *testing.T) {
	r := newProtectedRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/secure", nil)
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestValidateServiceToken(t *testing.T) {
	if err := ValidateServiceToken("", "secret"); err != ErrMissingServiceToken {
		t.Fatalf("expected ErrMissingServiceToken, got %v", err)
	}
	if err := ValidateServiceToken("nope", "secret"); err != ErrInvalidServiceToken {
		t.Fatalf("expected ErrInvalidServiceToken, got %v", err)
	}
	if err := ValidateServiceToken("secret", "secret"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
