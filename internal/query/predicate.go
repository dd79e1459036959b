package query

import (
	"fmt"
	"regexp"
	"strings"
)

type Op string

const (
	OpEq     Op = "="
	OpNe     Op = "<>"
	OpLt     Op = "<"
	OpLte    Op = "<="
	OpGt     Op = ">"
	OpGte    Op = ">="
	OpIn     Op = "IN"
	OpIsNull Op = "IS NULL"
)

type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Cond is one (field, operator, value) term of a predicate.
type Cond struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

func In(field string, values ...any) Cond {
	return Cond{Field: field, Op: OpIn, Value: values}
}

// Raw is a caller-written boolean expression. Values must be passed through
// ? placeholders in Args; literals are rejected.
type Raw struct {
	SQL  string
	Args []any
}

// Where is either a list of conditions joined by one combinator or a raw
// expression, never both.
type Where struct {
	Conds      []Cond
	Combinator Combinator
	Raw        *Raw
}

func (w Where) IsEmpty() bool {
	return len(w.Conds) == 0 && w.Raw == nil
}

// WhereEq builds a predicate of equality pairs joined by AND, in the given order.
func WhereEq(pairs ...Cond) Where {
	return Where{Conds: pairs, Combinator: And}
}

var (
	rawForbidden   = []string{"'", `"`, ";", "--", "/*", "*/", "#", `\`}
	rawLiteralExpr = regexp.MustCompile(`(^|[^A-Za-z0-9_])[0-9]+(\.[0-9]+)?`)
	rawKeywords    = regexp.MustCompile(`(?i)\b(select|union|insert|update|delete|drop|alter|sleep|benchmark)\b`)
)

func (w Where) build() (string, []any, error) {
	if w.Raw != nil && len(w.Conds) > 0 {
		return "", nil, fmt.Errorf("%w: conditions and raw predicate are mutually exclusive", ErrInvalidPredicate)
	}
	if w.Raw != nil {
		return w.Raw.build()
	}
	if len(w.Conds) == 0 {
		return "", nil, nil
	}

	comb := w.Combinator
	if comb == "" {
		comb = And
	}
	if comb != And && comb != Or {
		return "", nil, fmt.Errorf("%w: unknown combinator %q", ErrInvalidPredicate, comb)
	}

	parts := make([]string, 0, len(w.Conds))
	var args []any
	for _, c := range w.Conds {
		sql, condArgs, err := c.build()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, condArgs...)
	}

	if len(parts) == 1 {
		return parts[0], args, nil
	}
	return "(" + strings.Join(parts, ") "+string(comb)+" (") + ")", args, nil
}

func (c Cond) build() (string, []any, error) {
	col, err := quoteIdent(c.Field)
	if err != nil {
		return "", nil, err
	}

	op := c.Op
	if op == "" {
		op = OpEq
	}

	switch op {
	case OpEq, OpNe:
		if c.Value == nil {
			if op == OpEq {
				return col + " IS NULL", nil, nil
			}
			return col + " IS NOT NULL", nil, nil
		}
		return col + " " + string(op) + " ?", []any{c.Value}, nil
	case OpLt, OpLte, OpGt, OpGte:
		if c.Value == nil {
			return "", nil, fmt.Errorf("%w: %s %s requires a value", ErrInvalidPredicate, c.Field, op)
		}
		return col + " " + string(op) + " ?", []any{c.Value}, nil
	case OpIsNull:
		return col + " IS NULL", nil, nil
	case OpIn:
		values, ok := c.Value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s IN requires a list", ErrInvalidPredicate, c.Field)
		}
		if len(values) == 0 {
			return "", nil, fmt.Errorf("%w: %s IN ()", ErrEmptyList, c.Field)
		}
		return col + " IN (" + placeholders(len(values)) + ")", append([]any(nil), values...), nil
	}

	return "", nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidPredicate, op)
}

func (r Raw) build() (string, []any, error) {
	sql := strings.TrimSpace(r.SQL)
	if sql == "" {
		return "", nil, fmt.Errorf("%w: empty raw predicate", ErrInvalidPredicate)
	}
	for _, bad := range rawForbidden {
		if strings.Contains(sql, bad) {
			return "", nil, fmt.Errorf("%w: raw predicate contains %q", ErrUnsafePredicate, bad)
		}
	}
	if rawLiteralExpr.MatchString(sql) {
		return "", nil, fmt.Errorf("%w: raw predicate contains a literal value, bind it with ?", ErrUnsafePredicate)
	}
	if rawKeywords.MatchString(sql) {
		return "", nil, fmt.Errorf("%w: raw predicate contains a statement keyword", ErrUnsafePredicate)
	}
	if n := strings.Count(sql, "?"); n != len(r.Args) {
		return "", nil, fmt.Errorf("%w: raw predicate has %d placeholders but %d args", ErrInvalidPredicate, n, len(r.Args))
	}
	return "(" + sql + ")", append([]any(nil), r.Args...), nil
}
