package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Column describes one column of a live table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// sqliteColumn is a row of PRAGMA table_info.
type sqliteColumn struct {
	Name    string
	Type    string
	Notnull int
	Pk      int
}

// mysqlColumn is a row of SHOW COLUMNS.
type mysqlColumn struct {
	Field string
	Type  string
	Null  string
	Key   string
}

// requiredColumns are the columns the engine reads and writes.
var requiredColumns = []string{"domain", "id", "sort_key", "payload", "created_at", "updated_at"}

// TableColumns lists the columns of table from the catalogue of the connected dialect.
// Names and types are lowercased. A missing table yields no columns.
func TableColumns(db *gorm.DB, table string) ([]Column, error) {
	if db.Dialector.Name() == DriverSQLite {
		var rows []sqliteColumn
		query := fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(table))
		if err := db.Raw(query).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		columns := make([]Column, 0, len(rows))
		for _, r := range rows {
			columns = append(columns, Column{
				Name:       strings.ToLower(r.Name),
				Type:       strings.ToLower(r.Type),
				Nullable:   r.Notnull == 0 && r.Pk == 0,
				PrimaryKey: r.Pk > 0,
			})
		}
		return columns, nil
	}

	// SHOW COLUMNS keeps the exact MySQL type strings
	var rows []mysqlColumn
	if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", strings.ReplaceAll(table, "`", ""))).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	columns := make([]Column, 0, len(rows))
	for _, r := range rows {
		columns = append(columns, Column{
			Name:       strings.ToLower(r.Field),
			Type:       strings.ToLower(r.Type),
			Nullable:   strings.EqualFold(r.Null, "YES"),
			PrimaryKey: strings.EqualFold(r.Key, "PRI"),
		})
	}
	return columns, nil
}

func quoteSQLite(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Columns returns the columns of the records table.
func (e *Engine) Columns(ctx context.Context) ([]Column, error) {
	var columns []Column
	err := e.Perform(ctx, func(db *gorm.DB) error {
		var err error
		columns, err = TableColumns(db, Record{}.TableName())
		return err
	})
	return columns, err
}

// CheckSchema verifies that the records table has every column the engine uses. It is
// meant for stores opened with SkipMigrate.
func (e *Engine) CheckSchema(ctx context.Context) error {
	columns, err := e.Columns(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c.Name] = true
	}
	var missing []string
	for _, name := range requiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: records table lacks %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}
