package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(verify TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/chair", ChairAuth(verify), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"chair": ChairFrom(c)})
	})
	return r
}

func TestChairAuth_ValidToken(t *testing.T) {
	var seen string
	r := newAuthRouter(func(token string) (string, error) {
		seen = token
		return "madam-chair", nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chair", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if seen != "tok-123" {
		t.Fatalf("verifier got %q", seen)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["chair"] != "madam-chair" {
		t.Fatalf("chair in context = %v", body["chair"])
	}
}

func TestChairAuth_Rejections(t *testing.T) {
	r := newAuthRouter(func(string) (string, error) {
		return "", errors.New("bad token")
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"verifier rejects", "Bearer nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/chair", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["code"] != "unauthorized" {
				t.Fatalf("body = %v", body)
			}
		})
	}
}

func TestChairFrom_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if got := ChairFrom(c); got != "" {
		t.Fatalf("unauthenticated ChairFrom = %q", got)
	}
	c.Set(chairUsernameKey, 42) // wrong type must not panic
	if got := ChairFrom(c); got != "" {
		t.Fatalf("non-string ChairFrom = %q", got)
	}
}
