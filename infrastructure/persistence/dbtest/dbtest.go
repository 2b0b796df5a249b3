// Package dbtest opens throwaway sqlite stores for tests that exercise the
// authorization tables.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hilthontt/kindred/domain/model"
	"github.com/hilthontt/kindred/infrastructure/config"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/persistence/database"
	"github.com/hilthontt/kindred/infrastructure/persistence/migration"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.PostgresConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := migration.Up1(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func InsertMatch(t *testing.T, db *gorm.DB, id, user1, user2 int64) {
	t.Helper()
	m := model.Match{ID: id, User1ID: user1, User2ID: user2, CreatedAt: time.Now().UTC()}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("insert match %d: %v", id, err)
	}
}

func DeleteMatch(t *testing.T, db *gorm.DB, id int64) {
	t.Helper()
	if err := db.Delete(&model.Match{}, id).Error; err != nil {
		t.Fatalf("delete match %d: %v", id, err)
	}
}

func InsertRegistration(t *testing.T, db *gorm.DB, eventID, userID int64) {
	t.Helper()
	r := model.EventRegistration{EventID: eventID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("insert registration %d/%d: %v", eventID, userID, err)
	}
}

func DeleteRegistration(t *testing.T, db *gorm.DB, eventID, userID int64) {
	t.Helper()
	err := db.Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&model.EventRegistration{}).Error
	if err != nil {
		t.Fatalf("delete registration %d/%d: %v", eventID, userID, err)
	}
}
