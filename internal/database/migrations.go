package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

// RunMigrations runs custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := normalizeSaleConditions(db); err != nil {
		return err
	}
	if err := dedupeCardSales(db); err != nil {
		return err
	}
	if err := backfillListSlugs(db); err != nil {
		return err
	}
	return nil
}

// normalizeSaleConditions rewrites legacy long-form condition strings
// ("Near Mint", "Lightly Played", ...) to the abbreviated SaleCondition
// values. Safe to run multiple times.
func normalizeSaleConditions(db *gorm.DB) error {
	if !db.Migrator().HasTable("card_sales") {
		return nil
	}

	result := db.Exec(`
		UPDATE card_sales
		SET condition = CASE LOWER(condition)
			WHEN 'near mint' THEN 'NM'
			WHEN 'mint' THEN 'NM'
			WHEN 'lightly played' THEN 'LP'
			WHEN 'excellent' THEN 'LP'
			WHEN 'moderately played' THEN 'MP'
			WHEN 'good' THEN 'MP'
			WHEN 'heavily played' THEN 'HP'
			WHEN 'played' THEN 'HP'
			WHEN 'damaged' THEN 'DMG'
			WHEN 'poor' THEN 'DMG'
			ELSE condition
		END
		WHERE LOWER(condition) IN (
			'near mint', 'mint', 'lightly played', 'excellent',
			'moderately played', 'good', 'heavily played', 'played',
			'damaged', 'poor'
		)
	`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Normalized %d card_sales condition values", result.RowsAffected)
	}

	// Anything still unrecognized falls back to NM
	db.Exec(`UPDATE card_sales SET condition = 'NM' WHERE condition IS NULL OR condition = ''`)

	return nil
}

// dedupeCardSales removes duplicate sale rows (same card, date, condition and
// price) that older fetch runs could insert before upsert keys existed,
// keeping the most recently created row.
func dedupeCardSales(db *gorm.DB) error {
	if !db.Migrator().HasTable("card_sales") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM card_sales
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM card_sales
			GROUP BY card_code, order_date, condition, purchase_price
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate card_sales entries", result.RowsAffected)
	}

	return nil
}

// backfillListSlugs generates slugs for lists created before the slug column
// existed. Slugs feed the report download filename.
func backfillListSlugs(db *gorm.DB) error {
	if !db.Migrator().HasTable("lists") {
		return nil
	}

	var lists []models.List
	if err := db.Where("slug IS NULL OR slug = ''").Find(&lists).Error; err != nil {
		return err
	}

	for _, list := range lists {
		slug := Slugify(list.Name)
		if slug == "" {
			slug = fmt.Sprintf("list-%d", list.ID)
		}
		// Disambiguate collisions with the list ID
		var count int64
		db.Model(&models.List{}).Where("slug = ? AND id != ?", slug, list.ID).Count(&count)
		if count > 0 {
			slug = fmt.Sprintf("%s-%d", slug, list.ID)
		}
		if err := db.Model(&models.List{}).Where("id = ?", list.ID).Update("slug", slug).Error; err != nil {
			log.Printf("Warning: failed to backfill slug for list %d: %v", list.ID, err)
		}
	}

	if len(lists) > 0 {
		log.Printf("Backfilled slugs for %d lists", len(lists))
	}

	return nil
}

// Slugify lowercases a list name and collapses every non-alphanumeric run
// into a single dash. Used for slugs and report download filenames.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
