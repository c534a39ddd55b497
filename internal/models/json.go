package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList is a JSON encoded list of ids stored in a single column.
// It is used for set-like data such as voted user ids and board members.
// Storage goes through datatypes.JSONSlice[string]; StringList adds the
// never-null guarantee and the set helpers.
type StringList []string

// Value stores the list as a datatypes.JSONSlice. A nil list is stored as [].
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return datatypes.JSONSlice[string](l).Value()
}

// Scan reads the list through datatypes.JSONSlice. NULL and null read as [].
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var raw datatypes.JSONSlice[string]
	if err := raw.Scan(value); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	if raw == nil {
		raw = datatypes.JSONSlice[string]{}
	}
	*l = StringList(raw)
	return nil
}

// MarshalJSON always emits an array, never null
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// GormDataType gorm common data type
func (StringList) GormDataType() string {
	return "json"
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}

// Contains reports whether id is in the list
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// With returns a copy of the list with id appended when missing
func (l StringList) With(id string) StringList {
	out := l.Clone()
	if out.Contains(id) {
		return out
	}
	return append(out, id)
}

// Without returns a copy of the list with every occurrence of id removed
func (l StringList) Without(id string) StringList {
	out := make(StringList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a non-nil copy of the list
func (l StringList) Clone() StringList {
	out := make(StringList, len(l))
	copy(out, l)
	return out
}
