// Package query renders parameterized MySQL statements from structured
// descriptions. Table and column names are identifiers from the schema
// catalog and are quoted into the SQL text; every value is bound through a
// ? placeholder.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidPredicate  = errors.New("invalid predicate")
	ErrUnsafePredicate   = errors.New("unsafe raw predicate")
	ErrEmptyList         = errors.New("empty value list")
	ErrNoColumns         = errors.New("no columns")
	// ErrUnscopedMutation guards UPDATE and DELETE without a predicate.
	ErrUnscopedMutation = errors.New("update or delete without predicate")
)

// Statement is a rendered SQL template and its bound arguments in order.
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	return s.SQL
}

// Order is one ORDER BY term.
type Order struct {
	Field string
	Desc  bool
}

// Asc orders by field ascending.
func Asc(field string) Order { return Order{Field: field} }

// Desc orders by field descending.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Select describes a SELECT; empty Fields selects every column.
type Select struct {
	Table     string
	Fields    []string
	Where     Where
	OrderBy   []Order
	Limit     int
	ForUpdate bool
}

// Build renders the SELECT, appending FOR UPDATE when ForUpdate is set.
func (s Select) Build() (Statement, error) {
	table, err := quoteIdent(s.Table)
	if err != nil {
		return Statement{}, err
	}

	cols := "*"
	if len(s.Fields) > 0 {
		quoted, err := quoteIdents(s.Fields)
		if err != nil {
			return Statement{}, err
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	b.WriteString("SELECT " + cols + " FROM " + table)

	where, args, err := s.Where.build()
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if err := writeOrderLimit(&b, s.OrderBy, s.Limit); err != nil {
		return Statement{}, err
	}
	if s.ForUpdate {
		b.WriteString(" FOR UPDATE")
	}

	return Statement{SQL: b.String(), Args: args}, nil
}

// Insert describes a single-row INSERT.
type Insert struct {
	Table  string
	Fields map[string]any
}

// Build renders the INSERT with columns in sorted order.
func (i Insert) Build() (Statement, error) {
	table, err := quoteIdent(i.Table)
	if err != nil {
		return Statement{}, err
	}
	if len(i.Fields) == 0 {
		return Statement{}, fmt.Errorf("%w: insert into %s", ErrNoColumns, i.Table)
	}

	names := sortedKeys(i.Fields)
	cols, err := quoteIdents(names)
	if err != nil {
		return Statement{}, err
	}
	args := make([]any, len(names))
	for idx, name := range names {
		args[idx] = i.Fields[name]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(names)))
	return Statement{SQL: sql, Args: args}, nil
}

// Update describes an UPDATE restricted by Where.
type Update struct {
	Table   string
	Set     map[string]any
	Where   Where
	OrderBy []Order
	Limit   int
	// AllowFullTable must be set explicitly to update without a predicate.
	AllowFullTable bool
}

// Build renders the UPDATE. An empty Where fails with ErrUnscopedMutation
// unless AllowFullTable is set.
func (u Update) Build() (Statement, error) {
	table, err := quoteIdent(u.Table)
	if err != nil {
		return Statement{}, err
	}
	if len(u.Set) == 0 {
		return Statement{}, fmt.Errorf("%w: update %s", ErrNoColumns, u.Table)
	}
	if u.Where.IsEmpty() && !u.AllowFullTable {
		return Statement{}, fmt.Errorf("%w: update %s", ErrUnscopedMutation, u.Table)
	}

	names := sortedKeys(u.Set)
	assignments := make([]string, len(names))
	args := make([]any, 0, len(names))
	for idx, name := range names {
		col, err := quoteIdent(name)
		if err != nil {
			return Statement{}, err
		}
		assignments[idx] = col + " = ?"
		args = append(args, u.Set[name])
	}

	var b strings.Builder
	b.WriteString("UPDATE " + table + " SET " + strings.Join(assignments, ", "))

	where, whereArgs, err := u.Where.build()
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		b.WriteString(" WHERE " + where)
		args = append(args, whereArgs...)
	}
	if err := writeOrderLimit(&b, u.OrderBy, u.Limit); err != nil {
		return Statement{}, err
	}

	return Statement{SQL: b.String(), Args: args}, nil
}

// Delete describes a DELETE restricted by Where.
type Delete struct {
	Table          string
	Where          Where
	OrderBy        []Order
	Limit          int
	AllowFullTable bool
}

// Build renders the DELETE under the same scoping rule as Update.
func (d Delete) Build() (Statement, error) {
	table, err := quoteIdent(d.Table)
	if err != nil {
		return Statement{}, err
	}
	if d.Where.IsEmpty() && !d.AllowFullTable {
		return Statement{}, fmt.Errorf("%w: delete from %s", ErrUnscopedMutation, d.Table)
	}

	var b strings.Builder
	b.WriteString("DELETE FROM " + table)

	where, args, err := d.Where.build()
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if err := writeOrderLimit(&b, d.OrderBy, d.Limit); err != nil {
		return Statement{}, err
	}

	return Statement{SQL: b.String(), Args: args}, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name may be used as a table or column name.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

func quoteIdent(name string) (string, error) {
	if !ValidIdent(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return "`" + name + "`", nil
}

func quoteIdents(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := quoteIdent(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func writeOrderLimit(b *strings.Builder, orderBy []Order, limit int) error {
	if len(orderBy) > 0 {
		parts := make([]string, len(orderBy))
		for i, o := range orderBy {
			col, err := quoteIdent(o.Field)
			if err != nil {
				return err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = col + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidPredicate, limit)
	}
	if limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(limit))
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
