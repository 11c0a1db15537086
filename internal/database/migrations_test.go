package database

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

func openMigrationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Card{}, &models.List{}, &models.ListCard{}, &models.CardSale{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"My Binder", "my-binder"},
		{"OP-05 Box (Sealed!)", "op-05-box-sealed"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"already-slugged", "already-slugged"},
		{"!!!", ""},
		{"", ""},
	}

	for _, test := range tests {
		if got := Slugify(test.input); got != test.expected {
			t.Errorf("Slugify(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestNormalizeSaleConditions(t *testing.T) {
	db := openMigrationTestDB(t)

	legacy := []string{"Near Mint", "Lightly Played", "Moderately Played", "Heavily Played", "Damaged", "NM"}
	for _, condition := range legacy {
		db.Exec(`INSERT INTO card_sales (card_code, order_date, condition, purchase_price) VALUES (?, date('now'), ?, 1.0)`, "ST01-001", condition)
	}

	if err := normalizeSaleConditions(db); err != nil {
		t.Fatalf("normalizeSaleConditions failed: %v", err)
	}

	var conditions []string
	db.Model(&models.CardSale{}).Order("id").Pluck("condition", &conditions)
	expected := []string{"NM", "LP", "MP", "HP", "DMG", "NM"}
	for i, condition := range conditions {
		if condition != expected[i] {
			t.Errorf("Condition %d = %q, expected %q", i, condition, expected[i])
		}
	}
}

func TestDedupeCardSales(t *testing.T) {
	db := openMigrationTestDB(t)

	// Three identical rows plus one distinct
	for i := 0; i < 3; i++ {
		db.Exec(`INSERT INTO card_sales (card_code, order_date, condition, purchase_price) VALUES ('ST01-001', '2026-08-01', 'NM', 10.0)`)
	}
	db.Exec(`INSERT INTO card_sales (card_code, order_date, condition, purchase_price) VALUES ('ST01-001', '2026-08-01', 'NM', 12.0)`)

	if err := dedupeCardSales(db); err != nil {
		t.Fatalf("dedupeCardSales failed: %v", err)
	}

	var count int64
	db.Model(&models.CardSale{}).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 sales after dedupe, got %d", count)
	}
}

func TestBackfillListSlugs(t *testing.T) {
	db := openMigrationTestDB(t)

	db.Exec(`INSERT INTO lists (name, slug) VALUES ('My Binder', '')`)
	db.Exec(`INSERT INTO lists (name, slug) VALUES ('Trades', 'trades')`)

	if err := backfillListSlugs(db); err != nil {
		t.Fatalf("backfillListSlugs failed: %v", err)
	}

	var lists []models.List
	db.Order("id").Find(&lists)
	if len(lists) != 2 {
		t.Fatalf("Expected 2 lists, got %d", len(lists))
	}
	if lists[0].Slug != "my-binder" {
		t.Errorf("Backfilled slug = %q, expected my-binder", lists[0].Slug)
	}
	if lists[1].Slug != "trades" {
		t.Errorf("Existing slug changed to %q", lists[1].Slug)
	}
}
