package migration

import (
	"github.com/hilthontt/kindred/domain/model"
	"gorm.io/gorm"
)

// Up1 creates the tables the realtime layer reads from. The HTTP side owns
// these tables in production; this only runs against embedded sqlite stores.
func Up1(database *gorm.DB) error {
	return createTables(database)
}

func createTables(database *gorm.DB) error {
	tables := []any{}

	tables = addNewTable(database, model.Match{}, tables)
	tables = addNewTable(database, model.EventRegistration{}, tables)

	if len(tables) == 0 {
		return nil
	}
	return database.Migrator().CreateTable(tables...)
}

func addNewTable(database *gorm.DB, model any, tables []any) []any {
	if !database.Migrator().HasTable(model) {
		tables = append(tables, model)
	}
	return tables
}
