package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"webshop/internal/domain"
	"webshop/internal/query"
)

// Executor runs rendered statements inside one transaction.
type Executor interface {
	Exec(ctx context.Context, stmt query.Statement) (sql.Result, error)
	Query(ctx context.Context, stmt query.Statement) ([]*domain.Row, error)
}

// Session is the Executor bound to an open transaction.
type Session struct {
	tx *sqlx.Tx
}

func (s *Session) Exec(ctx context.Context, stmt query.Statement) (sql.Result, error) {
	res, err := s.tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, Classify(err)
	}
	return res, nil
}

// Query returns rows in SELECT column order. Text and decimal columns come
// back as strings, DATE columns as YYYY-MM-DD.
func (s *Session) Query(ctx context.Context, stmt query.Statement) ([]*domain.Row, error) {
	rows, err := s.tx.QueryxContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, Classify(err)
	}

	var out []*domain.Row
	for rows.Next() {
		values := make(map[string]any, len(cols))
		if err := rows.MapScan(values); err != nil {
			return nil, Classify(err)
		}
		r := domain.NewRow()
		for _, c := range cols {
			r.Set(c, scanned(values[c]))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return out, nil
}

func scanned(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(domain.DateLayout)
		}
		return t.Format(time.RFC3339)
	}
	return v
}
