package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": requestIDFromContext(c.Request.Context())})
	})
	return router
}

func doRequestID(router *gin.Engine, inbound string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDKeepsPlausibleInboundID(t *testing.T) {
	router := requestIDRouter()

	rec := doRequestID(router, "edge-7f3a.42")
	if got := rec.Header().Get("X-Request-ID"); got != "edge-7f3a.42" {
		t.Fatalf("inbound id was not kept, got %q", got)
	}
}

func TestRequestIDReplacesImplausibleIDs(t *testing.T) {
	router := requestIDRouter()

	for _, inbound := range []string{
		"",
		"has spaces",
		"line\nbreak",
		strings.Repeat("a", 65),
	} {
		rec := doRequestID(router, inbound)
		got := rec.Header().Get("X-Request-ID")
		if got == "" {
			t.Fatalf("no id generated for inbound %q", inbound)
		}
		if got == inbound {
			t.Fatalf("implausible inbound id %q was kept", inbound)
		}
	}
}
