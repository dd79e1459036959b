package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/query"
)

var hundred = decimal.NewFromInt(100)

func invalid(field, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return apperrors.NewValidationError(fmt.Sprintf("%s %s", field, msg), apperrors.ValidationDetail{
		Field:   field,
		Message: msg,
	})
}

func requiredInt(f domain.Fields, col string) (int64, error) {
	v, ok := f[col]
	if !ok || domain.IsNull(v) {
		return 0, invalid(col, "is required")
	}
	n, err := domain.AsInt(v)
	if err != nil {
		return 0, invalid(col, "must be an integer")
	}
	return n, nil
}

func positiveInt(f domain.Fields, col string) (int64, error) {
	n, err := requiredInt(f, col)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, invalid(col, "must be greater than zero")
	}
	return n, nil
}

func requiredDecimal(f domain.Fields, col string) (decimal.Decimal, error) {
	v, ok := f[col]
	if !ok || domain.IsNull(v) {
		return decimal.Zero, invalid(col, "is required")
	}
	d, err := domain.AsDecimal(v)
	if err != nil {
		return decimal.Zero, invalid(col, "must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, invalid(col, "must not be negative")
	}
	return d, nil
}

// percent reads an optional 0..100 percentage; absent means zero.
func percent(f domain.Fields, col string) (decimal.Decimal, error) {
	v, ok := f[col]
	if !ok || domain.IsNull(v) {
		return decimal.Zero, nil
	}
	d, err := domain.AsDecimal(v)
	if err != nil {
		return decimal.Zero, invalid(col, "must be a number")
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.Zero, invalid(col, "must be between 0 and 100")
	}
	return d, nil
}

// anyOf reports whether fields sets at least one of cols.
func anyOf(f domain.Fields, cols ...string) bool {
	for _, c := range cols {
		if f.Has(c) {
			return true
		}
	}
	return false
}

// rowChange is a set of derived values for a single target row.
type rowChange struct {
	key any
	set domain.Fields
}

// applyPerRow folds identical per-row changes covering every target into the
// main SET clause. Otherwise each row gets its own UPDATE, run after the
// main statement.
func applyPerRow(m *Mutation, targets int, changes []rowChange) ([]query.Statement, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	if len(changes) == targets && uniform(changes) {
		for k, v := range changes[0].set {
			m.Fields[k] = v
		}
		return nil, nil
	}

	stmts := make([]query.Statement, 0, len(changes))
	for _, c := range changes {
		stmt, err := query.Update{
			Table: m.Table.Name,
			Set:   c.set,
			Where: query.WhereEq(query.Eq(m.Table.PrimaryKey, c.key)),
		}.Build()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func uniform(changes []rowChange) bool {
	first := changes[0].set
	for _, c := range changes[1:] {
		if len(c.set) != len(first) {
			return false
		}
		for k, v := range first {
			other, ok := c.set[k]
			if !ok || !sameValue(v, other) {
				return false
			}
		}
	}
	return true
}

func sameValue(a, b any) bool {
	da, aok := a.(decimal.Decimal)
	db, bok := b.(decimal.Decimal)
	if aok && bok {
		return da.Equal(db)
	}
	if aok != bok {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
