package data

import (
	_ "embed"
)

//go:embed initdb/mariadb/001-indexes.sql
var InitdbMariaDBIndexes string

//go:embed initdb/postgres/001-indexes.sql
var InitdbPostgresIndexes string

//go:embed initdb/sqlite/001-indexes.sql
var InitdbSQLiteIndexes string

//go:embed initdb/sqlserver/001-indexes.sql
var InitdbSQLServerIndexes string
