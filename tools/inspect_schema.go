package main

import (
	"fmt"
	"log"

	"github.com/localnerve/retroboard/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	// Migrate and index to see what GORM and the setup script create
	result, err := database.SetupSchema(db)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("migrated %d models, ran %d statements\n", result.Migrated, result.Statements)

	var objects []struct {
		Type string
		Name string
		SQL  string
	}
	db.Raw("SELECT type, name, sql FROM sqlite_master WHERE type IN ('table', 'index') AND sql IS NOT NULL ORDER BY tbl_name, type DESC, name").Scan(&objects)

	for _, obj := range objects {
		fmt.Printf("\n=== %s: %s ===\n", obj.Type, obj.Name)
		fmt.Println(obj.SQL)
	}
}
