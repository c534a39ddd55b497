package store

import (
	"fmt"

	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/database"
	"gorm.io/gorm"
)

// Open builds the Store selected by cfg.DBType. The gorm handle is nil for the
// jsonfile backend. Relational schemas are migrated before returning.
func Open(cfg *config.Config) (Store, *gorm.DB, error) {
	if cfg.DBType == "jsonfile" {
		s, err := OpenFileStore(cfg.DBDatabase)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewGormStore(db), db, nil
}
