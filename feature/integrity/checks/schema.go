package checks

import (
	"fmt"
	"reflect"
	"strings"

	"diary-sync/core/database"
	"diary-sync/core/models"

	"gorm.io/gorm"
)

// SchemaReport strictly types the result of a schema check.
type SchemaReport struct {
	Dialect string                 `json:"dialect"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

// TableReport is the result for one table.
type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Status         string   `json:"status"` // "ok", "missing", "error"
}

// CheckSchema verifies the diary tables against the GORM models.
// Column presence comes from database.ExpectedColumns, column types from the
// explicit type: tags of the models.
func CheckSchema(db *gorm.DB) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Dialect: db.Dialector.Name(),
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}
	expected := database.ExpectedColumns()

	for _, model := range models.All() {
		tabler, ok := model.(interface{ TableName() string })
		if !ok {
			return nil, fmt.Errorf("model %T does not implement TableName", model)
		}
		table := tabler.TableName()

		actual, err := database.GetTableColumns(db, table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("failed to inspect table %s: %v", table, err))
			report.Matched = false
			continue
		}

		tbl := TableReport{MissingColumns: []string{}, TypeMismatches: []string{}, Status: "ok"}
		if len(actual) == 0 {
			tbl.MissingColumns = append(tbl.MissingColumns, expected[table]...)
			tbl.Status = "missing"
			report.Tables[table] = tbl
			report.Matched = false
			continue
		}

		byName := make(map[string]database.ColumnInfo, len(actual))
		for _, col := range actual {
			byName[col.Field] = col
		}
		for _, name := range expected[table] {
			if _, ok := byName[name]; !ok {
				tbl.MissingColumns = append(tbl.MissingColumns, name)
			}
		}

		typ := reflect.TypeOf(model).Elem()
		for i := 0; i < typ.NumField(); i++ {
			tag := typ.Field(i).Tag.Get("gorm")
			colName, expType := parseGormColumn(tag), parseGormType(tag)
			if colName == "" || expType == "" {
				continue
			}
			col, ok := byName[colName]
			if !ok {
				continue
			}
			if !typeMatches(strings.ToLower(expType), col.Type) {
				tbl.TypeMismatches = append(tbl.TypeMismatches,
					fmt.Sprintf("%s: expected %s, got %s", colName, expType, col.Type))
			}
		}

		if len(tbl.MissingColumns) > 0 || len(tbl.TypeMismatches) > 0 {
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[table] = tbl
	}

	return report, nil
}

// typeMatches is a soft comparison. Postgres reports varchar columns as
// "character varying" without a length.
func typeMatches(expected, actual string) bool {
	if strings.Contains(actual, expected) {
		return true
	}
	base, _, _ := strings.Cut(expected, "(")
	return base == "varchar" && actual == "character varying"
}

func parseGormColumn(tag string) string {
	return tagValue(tag, "column:")
}

func parseGormType(tag string) string {
	return tagValue(tag, "type:")
}

func tagValue(tag, key string) string {
	for _, p := range strings.Split(tag, ";") {
		if v, ok := strings.CutPrefix(p, key); ok {
			return v
		}
	}
	return ""
}
