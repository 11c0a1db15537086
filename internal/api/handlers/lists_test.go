package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Luigii1506/ohara-backend/internal/database"
	"github.com/Luigii1506/ohara-backend/internal/models"
)

func setupListRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Card{}, &models.List{}, &models.ListCard{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	database.DB = db
	t.Cleanup(func() { database.DB = nil })

	handler := NewListHandler()
	router := gin.New()
	router.POST("/api/lists", handler.CreateList)
	router.POST("/api/lists/:id/cards", handler.AddCard)
	return router, db
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAddCardMergesDuplicates(t *testing.T) {
	router, db := setupListRouter(t)

	db.Create(&models.Card{Code: "ST01-001", Name: "Monkey.D.Luffy"})
	list := models.List{Name: "My Binder", Slug: "my-binder"}
	db.Create(&list)

	w := postJSON(t, router, "/api/lists/1/cards", models.AddListCardRequest{CardCode: "ST01-001", Quantity: 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("First add returned %d: %s", w.Code, w.Body.String())
	}
	var first models.ListCardResponse
	json.Unmarshal(w.Body.Bytes(), &first)
	if first.Operation != "added" || first.Entry.Quantity != 2 {
		t.Errorf("First add: operation=%q quantity=%d, expected added/2", first.Operation, first.Entry.Quantity)
	}

	// Same card again merges into the existing entry
	w = postJSON(t, router, "/api/lists/1/cards", models.AddListCardRequest{CardCode: "ST01-001", Quantity: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("Second add returned %d: %s", w.Code, w.Body.String())
	}
	var second models.ListCardResponse
	json.Unmarshal(w.Body.Bytes(), &second)
	if second.Operation != "merged" || second.Entry.Quantity != 5 {
		t.Errorf("Second add: operation=%q quantity=%d, expected merged/5", second.Operation, second.Entry.Quantity)
	}

	var count int64
	db.Model(&models.ListCard{}).Where("list_id = ?", list.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected a single entry after merge, got %d", count)
	}
}

func TestAddCardValidation(t *testing.T) {
	router, db := setupListRouter(t)

	db.Create(&models.Card{Code: "ST01-001", Name: "Monkey.D.Luffy"})
	db.Create(&models.List{Name: "My Binder", Slug: "my-binder"})

	// Unknown card
	w := postJSON(t, router, "/api/lists/1/cards", models.AddListCardRequest{CardCode: "OP99-999"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Unknown card returned %d, expected 400", w.Code)
	}

	// Quantity over the cap
	w = postJSON(t, router, "/api/lists/1/cards", models.AddListCardRequest{CardCode: "ST01-001", Quantity: 10000})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Oversized quantity returned %d, expected 400", w.Code)
	}

	// Unknown list
	w = postJSON(t, router, "/api/lists/42/cards", models.AddListCardRequest{CardCode: "ST01-001"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown list returned %d, expected 404", w.Code)
	}
}

func TestCreateListSlug(t *testing.T) {
	router, _ := setupListRouter(t)

	w := postJSON(t, router, "/api/lists", models.CreateListRequest{Name: "Straw Hat Crew!"})
	if w.Code != http.StatusCreated {
		t.Fatalf("CreateList returned %d: %s", w.Code, w.Body.String())
	}
	var list models.List
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Slug != "straw-hat-crew" {
		t.Errorf("Slug = %q, expected straw-hat-crew", list.Slug)
	}

	// Duplicate names get a disambiguated slug
	w = postJSON(t, router, "/api/lists", models.CreateListRequest{Name: "Straw Hat Crew!"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Second CreateList returned %d: %s", w.Code, w.Body.String())
	}
	var second models.List
	json.Unmarshal(w.Body.Bytes(), &second)
	if second.Slug == list.Slug || second.Slug == "" {
		t.Errorf("Duplicate list slug %q should be disambiguated from %q", second.Slug, list.Slug)
	}
}
