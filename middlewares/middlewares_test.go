package middlewares

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	log.SetOutput(io.Discard)
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" || w.Body.String() != generated {
		t.Fatalf("header=%q body=%q", generated, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("propagated id=%q", got)
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.New(core)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["rid"] != "rid-1" || fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("fields=%v", fields)
	}
	if _, ok := fields["user_id"]; ok {
		t.Fatalf("anonymous request logged a user: %v", fields)
	}
}

func TestRequestLogger_AuthenticatedUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/x", func(c *gin.Context) {
		c.Set(UserIDKey, int64(7))
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 || entries[0].ContextMap()["user_id"] != int64(7) {
		t.Fatalf("entries=%v", entries)
	}
}

func TestRequestID_ReplacesUnsafeValues(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, rid := range []string{strings.Repeat("a", 65), "has space", "tab\there", "héllo"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header[RequestIDHeader] = []string{rid}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(RequestIDHeader)
		if got == rid || len(got) != 36 {
			t.Fatalf("rid %q echoed as %q", rid, got)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("b", 64))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != strings.Repeat("b", 64) {
		t.Fatalf("64-char id replaced with %q", got)
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	r.GET("/x", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		<-c.Request.Context().Done()
		if c.Request.Context().Err() != context.DeadlineExceeded {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusGatewayTimeout)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestTimeout_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(0))
	r.GET("/x", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware("secret"))
	r.GET("/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetInt64(UserIDKey)})
	})

	valid, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if tc.want == http.StatusOK && !strings.Contains(w.Body.String(), `"user":7`) {
				t.Fatalf("body=%s", w.Body.String())
			}
		})
	}
}

func TestPrometheusMiddleware_CountsRequests(t *testing.T) {
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/metrics-probe/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, "/metrics-probe/:id", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-probe/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-probe/2", nil))
	after := testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, "/metrics-probe/:id", "200"))

	if after-before != 2 {
		t.Fatalf("counter grew by %v, want 2", after-before)
	}
}

func TestRecordOrderOperation(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{http.StatusCreated, "success"},
		{http.StatusNotFound, "rejected"},
		{http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		before := testutil.ToFloat64(orderOperations.WithLabelValues("probe", tc.want))
		RecordOrderOperation("probe", tc.code)
		if got := testutil.ToFloat64(orderOperations.WithLabelValues("probe", tc.want)) - before; got != 1 {
			t.Fatalf("code %d: %s counter grew by %v", tc.code, tc.want, got)
		}
	}
}

func TestObserveOrderItems(t *testing.T) {
	sampleCount := func() uint64 {
		var m dto.Metric
		if err := orderItems.Write(&m); err != nil {
			t.Fatal(err)
		}
		return m.GetHistogram().GetSampleCount()
	}

	before := sampleCount()
	ObserveOrderItems(3)
	if got := sampleCount() - before; got != 1 {
		t.Fatalf("samples grew by %d", got)
	}
}
