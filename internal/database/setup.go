package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/localnerve/retroboard/data"
	"gorm.io/gorm"
)

// SetupResult reports what SetupSchema did
type SetupResult struct {
	Dialect    string `json:"dialect"`
	Migrated   int    `json:"migrated"`
	Statements int    `json:"statements"`
}

// Script returns the embedded index script for a gorm dialector name
func Script(dialect string) string {
	switch dialect {
	case "mysql":
		return data.InitdbMariaDBIndexes
	case "postgres":
		return data.InitdbPostgresIndexes
	case "sqlite":
		return data.InitdbSQLiteIndexes
	case "sqlserver":
		return data.InitdbSQLServerIndexes
	}
	return ""
}

// SetupSchema migrates every model and runs the dialect's embedded script.
// Every statement in the scripts is guarded, so it can be run repeatedly.
func SetupSchema(db *gorm.DB) (*SetupResult, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	dialect := db.Dialector.Name()
	statements := SplitStatements(Script(dialect))
	for _, q := range statements {
		if err := db.Exec(q).Error; err != nil {
			return nil, fmt.Errorf("%s : when executing > %s", err.Error(), q)
		}
	}

	log.Printf("Database setup complete for %s: %d models, %d statements", dialect, len(Models), len(statements))

	return &SetupResult{Dialect: dialect, Migrated: len(Models), Statements: len(statements)}, nil
}

// SplitStatements strips -- comments and splits a script on semicolons
func SplitStatements(script string) []string {
	lines := strings.Split(script, "\n")

	ncls := make([]string, 0, len(lines))
	for _, l := range lines {
		ncls = append(ncls, excludeComment(l))
	}

	var queries []string
	for _, q := range strings.Split(strings.Join(ncls, " "), ";") {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// excludeComment drops a trailing -- comment that is not inside a quoted string
func excludeComment(line string) string {
	var nc string
	ck := line

	for len(ck) > 0 {
		di := indexOr(ck, `"`)
		si := indexOr(ck, "'")
		ci := indexOr(ck, "--")

		switch {
		case ci < di && ci < si:
			return nc + ck[:ci]
		case di < si && di < ci:
			nc += ck[:di+1]
			ck = ck[di+1:]
			ei := strings.Index(ck, `"`)
			if ei < 0 {
				return nc + ck
			}
			nc += ck[:ei+1]
			ck = ck[ei+1:]
		case si < di && si < ci:
			nc += ck[:si+1]
			ck = ck[si+1:]
			ei := strings.Index(ck, "'")
			if ei < 0 {
				return nc + ck
			}
			nc += ck[:ei+1]
			ck = ck[ei+1:]
		default:
			return nc + ck
		}
	}
	return nc
}

func indexOr(s, sub string) int {
	if i := strings.Index(s, sub); i >= 0 {
		return i
	}
	return len(s) + 1
}
