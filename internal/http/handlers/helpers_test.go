package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munstack/conference-backend/internal/archive"
	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/format"
	"github.com/munstack/conference-backend/internal/http/middleware"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/storage"
)

// stubConv satisfies convert.Converter without shelling out to pandoc.
type stubConv struct {
	html string
	err  error
}

func (s stubConv) ToHTML(context.Context, string) (string, error) { return s.html, s.err }

type testEnv struct {
	handlers *Handlers
	db       *gorm.DB
	bus      *broadcast.Bus
	auth     *services.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:h_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := broadcast.NewBus(zerolog.Nop())
	uploads, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	chatFiles, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("chat store: %v", err)
	}

	auth := services.NewAuthService(db, []byte("handler-test-secret"))
	h := New(
		services.NewClauseService(db, bus, uploads, stubConv{html: "<p>converted</p>"}),
		services.NewAmendmentService(db, bus, archive.NewLog(filepath.Join(t.TempDir(), "archive.json"))),
		services.NewChatService(db, bus, chatFiles, zerolog.Nop()),
		services.NewGroupService(db, bus, chatFiles),
		auth,
		services.NewContentService(db, bus),
		format.NewClient("http://127.0.0.1:0", "", "test-model"),
		bus,
		chatFiles,
	)
	return &testEnv{handlers: h, db: db, bus: bus, auth: auth}
}

// newAPIRouter mounts the routes under test exactly as the real router does.
func newAPIRouter(env *testEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := env.handlers
	r := gin.New()

	r.POST("/login", h.ChairLogin)
	r.POST("/api/login", h.DelegateLogin)
	chairOnly := middleware.ChairAuth(func(token string) (string, error) {
		claims, err := env.auth.VerifyChairToken(token)
		if err != nil {
			return "", err
		}
		return claims.Username, nil
	})
	r.GET("/chair", chairOnly, h.ChairWhoAmI)

	r.POST("/upload/:committee", h.UploadClause)
	r.GET("/files/:committee", h.ListFiles)
	r.GET("/clause/:id", h.GetClause)
	r.GET("/clause/:id/status", h.ClauseStatus)
	r.POST("/clause/:id/publish", h.PublishClause)
	r.POST("/clause/:id/reject", h.RejectClause)
	r.POST("/clause/:id/unpublish", h.UnpublishClause)
	r.POST("/clause/:id/update-content", h.UpdateClauseContent)
	r.GET("/clause/:id/stream-format", h.StreamFormat)
	r.GET("/committee/:committee/published-clause", h.PublishedClause)
	r.GET("/committee/:committee/current-clause", h.CurrentClause)
	r.PUT("/committee/:committee/current-clause", h.OpenDebate)

	r.POST("/amendments/add", h.AddAmendment)
	r.GET("/amendments", h.ListAmendments)
	r.GET("/amendments/:id", h.GetAmendment)
	r.POST("/amendments/:id/approve", h.ApproveAmendment)
	r.POST("/amendments/delete", h.DeleteAllAmendments)
	r.DELETE("/amendments/delete/:id", h.DeleteAmendment)

	r.POST("/messages", h.PostMessage)
	r.DELETE("/messages/:id", h.DeleteMessage)
	r.GET("/groups/:id/messages", h.GroupMessages)
	r.POST("/groups", h.CreateGroup)
	r.GET("/searchgroup/:id", h.SearchGroups)
	r.GET("/delegates", h.Delegates)
	r.GET("/unread/:userID/:groupID", h.GetUnread)
	r.POST("/unread/:userID/:groupID", h.SetUnread)
	r.GET("/chatfiles/:name", h.DownloadChatFile)

	r.GET("/current", h.CurrentContent)
	r.POST("/current", h.SetCurrentContent)
	r.GET("/api/resolutions/:committee", h.Resolutions)
	r.POST("/api/resolutions/:committee", h.AddResolution)

	r.GET("/events", h.Events)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func seedHandlerClause(t *testing.T, db *gorm.DB, committee string, published bool) *domain.Clause {
	t.Helper()
	cl := &domain.Clause{
		Committee:   committee,
		Country:     "France",
		Filename:    "draft.docx",
		HTMLContent: "<p>original</p>",
		IsPublished: published,
	}
	if err := db.Create(cl).Error; err != nil {
		t.Fatalf("seed clause: %v", err)
	}
	return cl
}
