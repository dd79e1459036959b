// Package catalog describes the tables the engine may touch: ordered
// columns, their types, primary keys and which columns are derived by
// business rules.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
)

type ColumnType int

const (
	Int ColumnType = iota
	Decimal
	String
	Date
)

func (t ColumnType) String() string {
	switch t {
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	case String:
		return "string"
	case Date:
		return "date"
	}
	return "unknown"
}

type Column struct {
	Name    string
	Type    ColumnType
	SQLType string
	// Size bounds String columns in characters; 0 means unbounded.
	Size          int
	Nullable      bool
	Default       string
	AutoIncrement bool
	// Derived columns are computed by business rules and never accepted
	// from callers.
	Derived bool
	// Parse overrides type coercion for non-null values.
	Parse func(v any) (any, error)
}

type Table struct {
	Name       string
	PrimaryKey string
	Columns    []Column

	index map[string]int
}

func NewTable(name, primaryKey string, columns ...Column) *Table {
	t := &Table{
		Name:       name,
		PrimaryKey: primaryKey,
		Columns:    columns,
		index:      make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.index[c.Name] = i
	}
	return t
}

func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// CheckColumns fails with a ValidationError when any name is not a column.
func (t *Table) CheckColumns(names ...string) error {
	var details []apperrors.ValidationDetail
	for _, n := range names {
		if _, ok := t.index[n]; !ok {
			details = append(details, apperrors.ValidationDetail{
				Field:   n,
				Message: fmt.Sprintf("unknown column of table %s", t.Name),
			})
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("unknown columns", details...)
	}
	return nil
}

// DerivedIn lists the derived columns present in fields, sorted.
func (t *Table) DerivedIn(fields domain.Fields) []string {
	var out []string
	for name := range fields {
		if c, ok := t.Column(name); ok && c.Derived {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Required reports whether an insert has to supply the column.
func (c Column) Required() bool {
	return !c.Nullable && c.Default == "" && !c.AutoIncrement && !c.Derived
}

// CheckRequired rejects an insert that omits a required column. Missing
// columns are reported in table order.
func (t *Table) CheckRequired(fields domain.Fields) error {
	var details []apperrors.ValidationDetail
	for _, c := range t.Columns {
		if c.Required() && !fields.Has(c.Name) {
			details = append(details, apperrors.ValidationDetail{Field: c.Name, Message: "is required"})
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError(fmt.Sprintf("missing required fields for table %s", t.Name), details...)
	}
	return nil
}

// Normalize checks every field against the table and coerces each value to
// its column type. Decimals become decimal.Decimal, integers int64, dates
// YYYY-MM-DD strings.
func (t *Table) Normalize(fields domain.Fields) (domain.Fields, error) {
	out := make(domain.Fields, len(fields))
	var details []apperrors.ValidationDetail

	for _, name := range fields.Columns() {
		v, err := t.NormalizeValue(name, fields[name])
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: name, Message: err.Error()})
			continue
		}
		out[name] = v
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid fields for table %s", t.Name), details...)
	}
	return out, nil
}

func (t *Table) NormalizeValue(name string, v any) (any, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("unknown column of table %s", t.Name)
	}

	if domain.IsNull(v) && c.Type != String {
		if c.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("must not be empty")
	}
	if c.Parse != nil {
		return c.Parse(v)
	}

	switch c.Type {
	case Int:
		n, err := domain.AsInt(v)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return n, nil
	case Decimal:
		d, err := domain.AsDecimal(v)
		if err != nil {
			return nil, fmt.Errorf("must be a decimal number")
		}
		return d, nil
	case Date:
		d, err := domain.AsDate(v)
		if err != nil {
			return nil, fmt.Errorf("must be a date (%s)", domain.DateLayout)
		}
		return d.Format(domain.DateLayout), nil
	case String:
		if v == nil {
			if c.Nullable {
				return nil, nil
			}
			return nil, fmt.Errorf("must not be empty")
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("must be a string")
		}
		if c.Size > 0 && utf8.RuneCountInString(s) > c.Size {
			return nil, fmt.Errorf("must be at most %d characters", c.Size)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", c.Type)
}

// DDL renders the CREATE TABLE statement of the table.
func (t *Table) DDL() string {
	lines := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		var b strings.Builder
		b.WriteString("`" + c.Name + "` " + c.SQLType)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if c.AutoIncrement {
			b.WriteString(" AUTO_INCREMENT")
		}
		if c.Default != "" {
			b.WriteString(" DEFAULT " + c.Default)
		}
		if c.Name == t.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		lines = append(lines, "\t"+b.String())
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n%s\n) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci",
		t.Name, strings.Join(lines, ",\n"))
}

type Catalog struct {
	tables map[string]*Table
	order  []string
}

func New(tables ...*Table) *Catalog {
	c := &Catalog{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		c.tables[t.Name] = t
		c.order = append(c.order, t.Name)
	}
	return c
}

// Table looks up a table; unknown names are a ValidationError.
func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown table %q", name), apperrors.ValidationDetail{
			Field:   "table",
			Message: "table is not part of the schema",
		})
	}
	return t, nil
}

// MustTable is Table for names known at compile time.
func (c *Catalog) MustTable(name string) *Table {
	t, err := c.Table(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (c *Catalog) Tables() []*Table {
	out := make([]*Table, len(c.order))
	for i, n := range c.order {
		out[i] = c.tables[n]
	}
	return out
}

// DDL returns one CREATE TABLE IF NOT EXISTS statement per table.
func (c *Catalog) DDL() []string {
	out := make([]string, len(c.order))
	for i, t := range c.Tables() {
		out[i] = t.DDL()
	}
	return out
}
