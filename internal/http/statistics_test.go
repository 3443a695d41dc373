package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	auditrepo "github.com/mlukasik/shelfkeeper/internal/database/audit"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/entities"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

type statisticsTestEnv struct {
	books   *books.Repository
	lending *lending.Service
	auditor *audit.Service
	router  *gin.Engine
	staff   *entities.User
}

func setupStatisticsTest(t *testing.T) (*statisticsTestEnv, func()) {
	t.Helper()
	db, cleanup := setupHTTPTestDB(t)

	auditRepo := auditrepo.NewRepository(db.DB)
	auditor := audit.NewService(auditRepo)
	booksRepo := books.NewRepository(db.DB)
	lendingService := lending.NewService(db.DB, 14)
	controller := NewStatisticsController(lendingService, auditRepo)

	staff := createHTTPTestUser(t, db, "librarian", true)

	router := gin.New()
	router.Use(asUser(staff))
	router.GET("/api/statistics", controller.GetStatistics)
	router.GET("/api/audit", controller.ListAuditEvents)

	return &statisticsTestEnv{
		books:   booksRepo,
		lending: lendingService,
		auditor: auditor,
		router:  router,
		staff:   staff,
	}, func() {
		auditor.Wait()
		cleanup()
	}
}

func TestStatisticsController_GetStatistics(t *testing.T) {
	env, cleanup := setupStatisticsTest(t)
	defer cleanup()

	first := &entities.Book{Title: "First", Author: "A"}
	second := &entities.Book{Title: "Second", Author: "B"}
	require.NoError(t, env.books.Create(first))
	require.NoError(t, env.books.Create(second))

	_, err := env.lending.BorrowBook(env.staff.ID, first.ID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/statistics", nil)
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var stats lending.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalBooks)
	assert.Equal(t, int64(1), stats.AvailableBooks)
	assert.Equal(t, int64(1), stats.BorrowedBooks)
	assert.Equal(t, int64(1), stats.ActiveBorrows)
	assert.Equal(t, int64(1), stats.TotalUsers)
}

func TestStatisticsController_ListAuditEvents(t *testing.T) {
	t.Run("lists recorded events", func(t *testing.T) {
		env, cleanup := setupStatisticsTest(t)
		defer cleanup()

		env.auditor.LogCatalog(env.staff.ID, "create", 1, "First")
		env.auditor.LogAuth(env.staff.ID, "login", "127.0.0.1", true)
		env.auditor.Wait()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/audit", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Events []entities.AuditEvent `json:"events"`
			Total  int64                 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.Total)
		assert.Len(t, resp.Events, 2)
	})

	t.Run("filters by event type", func(t *testing.T) {
		env, cleanup := setupStatisticsTest(t)
		defer cleanup()

		env.auditor.LogCatalog(env.staff.ID, "create", 1, "First")
		env.auditor.LogAuth(env.staff.ID, "login", "127.0.0.1", true)
		env.auditor.Wait()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/audit?type="+string(entities.AuditEventAuth), nil)
		env.router.ServeHTTP(w, req)

		var resp struct {
			Events []entities.AuditEvent `json:"events"`
			Total  int64                 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, int64(1), resp.Total)
		assert.Equal(t, entities.AuditEventAuth, resp.Events[0].EventType)
	})

	t.Run("rejects an invalid user_id", func(t *testing.T) {
		env, cleanup := setupStatisticsTest(t)
		defer cleanup()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/audit?user_id=abc", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStatisticsController_MemberDenied(t *testing.T) {
	db, cleanup := setupHTTPTestDB(t)
	defer cleanup()

	controller := NewStatisticsController(lending.NewService(db.DB, 14), auditrepo.NewRepository(db.DB))
	member := createHTTPTestUser(t, db, "member", false)

	router := gin.New()
	router.Use(asUser(member))
	router.GET("/api/statistics", controller.GetStatistics)
	router.GET("/api/audit", controller.ListAuditEvents)

	for _, path := range []string{"/api/statistics", "/api/audit"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestHealthController(t *testing.T) {
	t.Run("reports healthy with a live database", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()

		controller := NewHealthController(db, "test")
		router := gin.New()
		router.GET("/health", controller.Status)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("ping responds pong", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/ping", Ping)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "pong")
	})
}
