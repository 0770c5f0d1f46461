package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warehouse-ops/warehouse-ops/internal/audit"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
)

// captureSink collects persisted audit events via a buffered channel so tests
// can wait on the async write.
type captureSink struct {
	ch chan *models.AuditEvent
}

func newCaptureSink(buf int) *captureSink {
	return &captureSink{ch: make(chan *models.AuditEvent, buf)}
}

func (s *captureSink) Log(_ context.Context, e *models.AuditEvent) error {
	s.ch <- e
	return nil
}

// waitForEvent blocks until an event arrives or the timeout fires.
func (s *captureSink) waitForEvent(t *testing.T, timeout time.Duration) *models.AuditEvent {
	t.Helper()
	select {
	case e := <-s.ch:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for audit event")
		return nil
	}
}

// assertNoEvent fails if an event arrives within the grace window.
func (s *captureSink) assertNoEvent(t *testing.T, reason string) {
	t.Helper()
	select {
	case <-s.ch:
		t.Errorf("audit event persisted, want none (%s)", reason)
	case <-time.After(100 * time.Millisecond):
	}
}

// failingSink always errors, for testing that persistence failures never
// reach the client.
type failingSink struct{}

func (failingSink) Log(context.Context, *models.AuditEvent) error {
	return errors.New("database is down")
}

// captureShipper collects shipped entries.
type captureShipper struct {
	ch chan *audit.Entry
}

func newCaptureShipper(buf int) *captureShipper {
	return &captureShipper{ch: make(chan *audit.Entry, buf)}
}

func (s *captureShipper) Ship(_ context.Context, e *audit.Entry) error {
	s.ch <- e
	return nil
}

func (s *captureShipper) Close() error { return nil }

// staticLookups returns canned enrichment results.
type staticLookups struct {
	names map[string]string // sku/barcode → name
	tasks map[string]string // pick task → sku
	items map[string]string // order item → sku
}

func (l staticLookups) ProductNameBySKUOrBarcode(_ context.Context, code string) (string, error) {
	return l.names[code], nil
}

func (l staticLookups) SKUByPickTaskID(_ context.Context, id string) (string, error) {
	return l.tasks[id], nil
}

func (l staticLookups) SKUByOrderItemID(_ context.Context, id string) (string, error) {
	return l.items[id], nil
}

func auditRouter(sink AuditSink, shipper audit.Shipper, store audit.LookupStore) *gin.Engine {
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(sink, audit.NewResolver(store), shipper))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:52341"
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Skip paths: OPTIONS, GET, excluded prefixes
// ---------------------------------------------------------------------------

func TestAuditMiddleware_OptionsSkipped(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.OPTIONS("/api/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/orders", nil)
	r.ServeHTTP(w, req)

	sink.assertNoEvent(t, "OPTIONS request")
}

func TestAuditMiddleware_GetNeverAudited(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.GET("/api/orders/:orderId", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/orders/SO71004", nil)
	r.ServeHTTP(w, req)

	sink.assertNoEvent(t, "GET request")
}

func TestAuditMiddleware_ExcludedPathsSkipped(t *testing.T) {
	paths := []string{
		"/health",
		"/api/idle",
		"/api/auth/refresh",
		"/api/orders/SO71004/picker-status",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			sink := newCaptureSink(1)
			r := auditRouter(sink, nil, nil)
			r.POST(path, func(c *gin.Context) { c.Status(http.StatusOK) })

			postJSON(t, r, path, "")
			sink.assertNoEvent(t, "excluded path")
		})
	}
}

// ---------------------------------------------------------------------------
// Happy path: classification, extraction, category
// ---------------------------------------------------------------------------

func TestAuditMiddleware_PickScanClassifiedAndExtracted(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, staticLookups{names: map[string]string{"SKU-1": "Widget A"}})
	r.POST("/api/orders/:orderId/pick", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	postJSON(t, r, "/api/orders/SO71004/pick", `{"sku":"SKU-1"}`)

	e := sink.waitForEvent(t, time.Second)
	if e.ActionType != string(audit.ActionItemScanned) {
		t.Errorf("ActionType = %q, want ITEM_SCANNED", e.ActionType)
	}
	if e.ActionCategory != string(audit.CategoryDataModification) {
		t.Errorf("ActionCategory = %q, want DATA_MODIFICATION", e.ActionCategory)
	}
	if e.ResourceID == nil || *e.ResourceID != "SO71004" {
		t.Errorf("ResourceID = %v, want SO71004", e.ResourceID)
	}
	if e.ResourceType != "orders" {
		t.Errorf("ResourceType = %q, want orders", e.ResourceType)
	}
	if !strings.Contains(e.ActionDescription, "Widget A") {
		t.Errorf("ActionDescription = %q, want product name included", e.ActionDescription)
	}
}

func TestAuditMiddleware_UnclaimBeforeClaim(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/orders/:orderId/unclaim", func(c *gin.Context) { c.Status(http.StatusOK) })

	postJSON(t, r, "/api/orders/SO71004/unclaim", "")

	e := sink.waitForEvent(t, time.Second)
	if e.ActionType != string(audit.ActionOrderUnclaimed) {
		t.Errorf("ActionType = %q, want ORDER_UNCLAIMED", e.ActionType)
	}
}

func TestAuditMiddleware_UnmatchedFallsBackToAPIAccess(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/frobnicate", func(c *gin.Context) { c.Status(http.StatusOK) })

	postJSON(t, r, "/api/frobnicate", "")

	e := sink.waitForEvent(t, time.Second)
	if e.ActionType != string(audit.ActionAPIAccess) {
		t.Errorf("ActionType = %q, want API_ACCESS", e.ActionType)
	}
}

// ---------------------------------------------------------------------------
// Response-body backfill for server-generated IDs
// ---------------------------------------------------------------------------

func TestAuditMiddleware_WaveIDBackfilledFromResponse(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/waves", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"data": gin.H{"waveId": "W100"}})
	})

	postJSON(t, r, "/api/waves", `{"orderIds":["SO1001","SO1002"]}`)

	e := sink.waitForEvent(t, time.Second)
	if e.ActionType != string(audit.ActionWaveCreated) {
		t.Errorf("ActionType = %q, want WAVE_CREATED", e.ActionType)
	}
	if e.ResourceID == nil || *e.ResourceID != "W100" {
		t.Errorf("ResourceID = %v, want W100 backfilled from response", e.ResourceID)
	}
}

// ---------------------------------------------------------------------------
// Actor identity and pre-auth events
// ---------------------------------------------------------------------------

func TestAuditMiddleware_AuthenticatedActorRecorded(t *testing.T) {
	sink := newCaptureSink(1)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(UserIDContextKey, "user-42")
		c.Set(UserEmailContextKey, "picker@warehouse.test")
		c.Set(UserRoleContextKey, "picker")
		c.Next()
	})
	r.Use(AuditMiddlewareWithShipper(sink, audit.NewResolver(nil), nil))
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) { c.Status(http.StatusOK) })

	postJSON(t, r, "/api/orders/SO71004/claim", "")

	e := sink.waitForEvent(t, time.Second)
	if e.UserID == nil || *e.UserID != "user-42" {
		t.Errorf("UserID = %v, want user-42", e.UserID)
	}
	if e.UserEmail == nil || *e.UserEmail != "picker@warehouse.test" {
		t.Errorf("UserEmail = %v, want picker@warehouse.test", e.UserEmail)
	}
	if e.UserRole == nil || *e.UserRole != "picker" {
		t.Errorf("UserRole = %v, want picker", e.UserRole)
	}
}

func TestAuditMiddleware_FailedLoginReadsEmailFromBody(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	})

	postJSON(t, r, "/api/auth/login", `{"email":"jo@warehouse.test","password":"wrong"}`)

	e := sink.waitForEvent(t, time.Second)
	if e.ActionType != string(audit.ActionLoginFailed) {
		t.Errorf("ActionType = %q, want LOGIN_FAILED", e.ActionType)
	}
	if e.ActionCategory != string(audit.CategoryAuthentication) {
		t.Errorf("ActionCategory = %q, want AUTHENTICATION", e.ActionCategory)
	}
	if e.UserEmail == nil || *e.UserEmail != "jo@warehouse.test" {
		t.Errorf("UserEmail = %v, want jo@warehouse.test from request body", e.UserEmail)
	}
	// Auth events carry no technical sub-object.
	if _, ok := e.Metadata["technical"]; ok {
		t.Error("Metadata contains technical block for auth event, want omitted")
	}
	if e.Metadata["error"] != "Invalid credentials" {
		t.Errorf("Metadata error = %v, want handler's error message", e.Metadata["error"])
	}
}

// ---------------------------------------------------------------------------
// Secrets never persisted
// ---------------------------------------------------------------------------

func TestAuditMiddleware_PasswordNeverStored(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/users", func(c *gin.Context) { c.Status(http.StatusCreated) })

	postJSON(t, r, "/api/users", `{"email":"new@warehouse.test","password":"hunter2","sku":"ABC"}`)

	e := sink.waitForEvent(t, time.Second)
	if e.NewValues == nil {
		t.Fatal("NewValues = nil, want sanitized body")
	}
	if e.NewValues["password"] != "[REDACTED]" {
		t.Errorf("NewValues password = %v, want [REDACTED]", e.NewValues["password"])
	}
	if e.NewValues["sku"] != "ABC" {
		t.Errorf("NewValues sku = %v, want ABC untouched", e.NewValues["sku"])
	}
}

func TestAuditMiddleware_ClaimOmitsNewValues(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) { c.Status(http.StatusOK) })

	postJSON(t, r, "/api/orders/SO71004/claim", `{"pickerId":"user-42"}`)

	e := sink.waitForEvent(t, time.Second)
	if e.NewValues != nil {
		t.Errorf("NewValues = %v, want nil for claim events", e.NewValues)
	}
}

// ---------------------------------------------------------------------------
// Failure isolation: the response is never altered
// ---------------------------------------------------------------------------

func TestAuditMiddleware_SinkFailureDoesNotAlterResponse(t *testing.T) {
	r := auditRouter(failingSink{}, nil, nil)
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"claimed": true})
	})

	w := postJSON(t, r, "/api/orders/SO71004/claim", "")
	time.Sleep(100 * time.Millisecond) // let the async write fail

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite sink failure", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"claimed":true`) {
		t.Errorf("body = %q, want handler output untouched", w.Body.String())
	}
}

func TestAuditMiddleware_OversizedBodyReachesHandlerWhole(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)

	var received int
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			t.Errorf("handler failed to read body: %v", err)
		}
		received = len(raw)
		c.Status(http.StatusOK)
	})

	// A JSON body well past the 1 MiB capture limit. The middleware only
	// snapshots the prefix; the handler must still see every byte.
	padding := strings.Repeat("x", 2*1024*1024)
	body := `{"pickerId":"user-42","notes":"` + padding + `"}`

	w := postJSON(t, r, "/api/orders/SO71004/claim", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if received != len(body) {
		t.Errorf("handler received %d bytes, want %d", received, len(body))
	}
	sink.waitForEvent(t, time.Second)
}

func TestAuditMiddleware_NilSinkAndShipperNoPanic(t *testing.T) {
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(nil, audit.NewResolver(nil), nil))
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := postJSON(t, r, "/api/orders/SO71004/claim", "")
	time.Sleep(50 * time.Millisecond)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Idempotence: one record per request even if the log path fires twice
// ---------------------------------------------------------------------------

func TestLogRequest_IdempotentPerRequest(t *testing.T) {
	sink := newCaptureSink(2)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/orders/SO71004/claim", nil)
	c.Request.RemoteAddr = "10.0.0.1:1234"

	resolver := audit.NewResolver(nil)
	logRequest(c, sink, resolver, nil, time.Now(), nil, nil)
	logRequest(c, sink, resolver, nil, time.Now(), nil, nil)

	sink.waitForEvent(t, time.Second)
	select {
	case <-sink.ch:
		t.Error("second audit event persisted for same request, want exactly one")
	case <-time.After(150 * time.Millisecond):
	}
}

// ---------------------------------------------------------------------------
// Shipping
// ---------------------------------------------------------------------------

func TestAuditMiddleware_EventShipped(t *testing.T) {
	sink := newCaptureSink(1)
	shipper := newCaptureShipper(1)
	r := auditRouter(sink, shipper, nil)
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) { c.Status(http.StatusOK) })

	postJSON(t, r, "/api/orders/SO71004/claim", "")

	sink.waitForEvent(t, time.Second)
	select {
	case entry := <-shipper.ch:
		if entry.ActionType != string(audit.ActionOrderClaimed) {
			t.Errorf("shipped ActionType = %q, want ORDER_CLAIMED", entry.ActionType)
		}
		if entry.ResourceID != "SO71004" {
			t.Errorf("shipped ResourceID = %q, want SO71004", entry.ResourceID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shipped entry")
	}
}

// ---------------------------------------------------------------------------
// Client IP precedence
// ---------------------------------------------------------------------------

func TestClientIP_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"xff first hop wins", "203.0.113.9, 10.0.0.1", "198.51.100.2", "10.0.0.3:80", "203.0.113.9"},
		{"x-real-ip when no xff", "", "198.51.100.2", "10.0.0.3:80", "198.51.100.2"},
		{"socket address fallback", "", "", "10.0.0.3:80", "10.0.0.3"},
		{"socket without port", "", "", "10.0.0.3", "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodPost, "/", nil)
			if tt.xff != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				c.Request.Header.Set("X-Real-Ip", tt.realIP)
			}
			c.Request.RemoteAddr = tt.remoteAddr

			if got := clientIP(c); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Metadata technical block
// ---------------------------------------------------------------------------

func TestAuditMiddleware_TechnicalMetadataForNonAuthEvents(t *testing.T) {
	sink := newCaptureSink(1)
	r := auditRouter(sink, nil, nil)
	r.POST("/api/orders/:orderId/claim", func(c *gin.Context) { c.Status(http.StatusOK) })

	postJSON(t, r, "/api/orders/SO71004/claim", "")

	e := sink.waitForEvent(t, time.Second)
	tech, ok := e.Metadata["technical"].(map[string]interface{})
	if !ok {
		t.Fatalf("Metadata technical = %T, want map", e.Metadata["technical"])
	}
	if tech["method"] != http.MethodPost {
		t.Errorf("technical method = %v, want POST", tech["method"])
	}
	if tech["statusCode"] != http.StatusOK {
		t.Errorf("technical statusCode = %v, want 200", tech["statusCode"])
	}
	if e.Metadata["summary"] == "" {
		t.Error("Metadata summary is empty, want populated")
	}
}
