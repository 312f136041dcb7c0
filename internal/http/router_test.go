package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munstack/conference-backend/internal/archive"
	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/config"
	"github.com/munstack/conference-backend/internal/format"
	"github.com/munstack/conference-backend/internal/http/handlers"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		Port:      "0",
		GinMode:   "test",
		RateRPS:   1000,
		RateBurst: 1000,
		JWTSecret: "router-test-secret",
		OTEL:      config.OTELConfig{ServiceName: "conference-backend-test"},
	}
}

func newRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(io.Discard)

	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := broadcast.NewBus(zerolog.Nop())
	uploads, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	chatFiles, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	auth := services.NewAuthService(db, []byte(cfg.JWTSecret))

	h := handlers.New(
		services.NewClauseService(db, bus, uploads, nil),
		services.NewAmendmentService(db, bus, archive.NewLog(filepath.Join(t.TempDir(), "archive.json"))),
		services.NewChatService(db, bus, chatFiles, zerolog.Nop()),
		services.NewGroupService(db, bus, chatFiles),
		auth,
		services.NewContentService(db, bus),
		format.NewClient("http://127.0.0.1:0", "", "test-model"),
		bus,
		chatFiles,
	)

	r := gin.New()
	RegisterRoutes(r, Deps{Handlers: h, Auth: auth}, cfg)
	return r
}

func TestRouter_Health(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestRouter_FallbackEnvelopes(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/definitely-not-a-route", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("no route: %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["code"] != "not_found" {
		t.Fatalf("no-route body = %v", body)
	}
	if rid, _ := body["request_id"].(string); rid == "" || rid != w.Header().Get("X-Request-ID") {
		t.Fatalf("request id not correlated: %v / %q", body, w.Header().Get("X-Request-ID"))
	}

	// Wrong method on a registered path.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no method: %d", w.Code)
	}
	body = map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["code"] != "method_not_allowed" {
		t.Fatalf("no-method body = %v", body)
	}
}

func TestRouter_CrossCuttingHeaders(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	h := w.Header()
	if h.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing: %#v", h)
	}
	// No origins configured means the permissive posture.
	if h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS header = %q", h.Get("Access-Control-Allow-Origin"))
	}
}

func TestRouter_CORSPreflightWithAllowList(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://mun.example"}
	r := newRouter(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "https://mun.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://mun.example" {
		t.Fatalf("allow-origin = %q", got)
	}

	// An origin outside the list is refused.
	req = httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign origin preflight: %d", w.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	r := newRouter(t, testConfig())

	// Generate one request so counters exist.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "identity")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics exposition missing counters")
	}
}

func TestRouter_SwaggerDisabledByDefault(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off: %d", w.Code)
	}
}

func TestRouter_ChairRouteRequiresToken(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chair", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("chair without token: %d", w.Code)
	}
}
