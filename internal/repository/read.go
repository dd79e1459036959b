package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"webshop/internal/catalog"
	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/infrastructure/mysql"
	"webshop/internal/query"
)

type ReadOptions struct {
	// Fields to select; empty selects every column.
	Fields []string
	// Where holds column = value pairs joined with Combinator (AND by default).
	// A nil value matches NULL.
	Where      domain.Fields
	Combinator query.Combinator
	// Raw is a placeholder-only predicate used instead of Where.
	Raw     *query.Raw
	OrderBy []query.Order
	Limit   int
	// WithProductCode attaches productName to every row carrying a prodId.
	WithProductCode bool
}

// Read returns the matching rows in SELECT column order. No match is an
// empty result, not an error.
func (r *Repository) Read(ctx context.Context, table string, opts ReadOptions) ([]*domain.Row, error) {
	log := r.opLogger("read", table)

	t, err := r.catalog.Table(table)
	if err != nil {
		logFailure(log, err)
		return nil, err
	}
	sel, err := r.selectFor(t, opts)
	if err != nil {
		logFailure(log, err)
		return nil, err
	}
	stmt, err := sel.Build()
	if err != nil {
		err = builderError(err)
		logFailure(log, err)
		return nil, err
	}

	var rows []*domain.Row
	err = r.tx.WithTx(ctx, true, func(ctx context.Context, ex mysql.Executor) error {
		var err error
		if rows, err = ex.Query(ctx, stmt); err != nil {
			return err
		}
		if opts.WithProductCode {
			return attachProductCodes(ctx, ex, rows)
		}
		return nil
	})
	if err != nil {
		logFailure(log, err)
		return nil, err
	}

	log.Debug("rows read", zap.Int("rows", len(rows)))
	if rows == nil {
		rows = []*domain.Row{}
	}
	return rows, nil
}

func (r *Repository) selectFor(t *catalog.Table, opts ReadOptions) (query.Select, error) {
	if err := t.CheckColumns(opts.Fields...); err != nil {
		return query.Select{}, err
	}
	for _, o := range opts.OrderBy {
		if err := t.CheckColumns(o.Field); err != nil {
			return query.Select{}, err
		}
	}
	if opts.Limit < 0 {
		return query.Select{}, apperrors.NewValidationError("limit must not be negative", apperrors.ValidationDetail{
			Field:   "limit",
			Message: fmt.Sprintf("got %d", opts.Limit),
		})
	}

	where := query.Where{Combinator: opts.Combinator, Raw: opts.Raw}
	if len(opts.Where) > 0 {
		if opts.Raw != nil {
			return query.Select{}, apperrors.NewValidationError("where pairs and raw predicate are mutually exclusive")
		}
		if err := t.CheckColumns(opts.Where.Columns()...); err != nil {
			return query.Select{}, err
		}
		for _, col := range opts.Where.Columns() {
			v := opts.Where[col]
			if v != nil {
				var err error
				if v, err = t.NormalizeValue(col, r.sanitizer.Value(v)); err != nil {
					return query.Select{}, apperrors.NewValidationError("invalid filter value", apperrors.ValidationDetail{
						Field:   col,
						Message: err.Error(),
					})
				}
			}
			where.Conds = append(where.Conds, query.Eq(col, v))
		}
	}

	return query.Select{
		Table:   t.Name,
		Fields:  opts.Fields,
		Where:   where,
		OrderBy: opts.OrderBy,
		Limit:   opts.Limit,
	}, nil
}

// attachProductCodes looks up the code of every referenced product in one
// query and sets it as productName.
func attachProductCodes(ctx context.Context, ex mysql.Executor, rows []*domain.Row) error {
	ids := map[int64]struct{}{}
	var keys []any
	for _, row := range rows {
		v, ok := row.Get(domain.ColProdID)
		if !ok || domain.IsNull(v) {
			continue
		}
		id, err := domain.AsInt(v)
		if err != nil {
			continue
		}
		if _, seen := ids[id]; !seen {
			ids[id] = struct{}{}
			keys = append(keys, id)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	stmt, err := query.Select{
		Table:  domain.TableProducts,
		Fields: []string{domain.ColProdID, domain.ColProdCode},
		Where:  query.WhereEq(query.In(domain.ColProdID, keys...)),
	}.Build()
	if err != nil {
		return builderError(err)
	}
	products, err := ex.Query(ctx, stmt)
	if err != nil {
		return err
	}

	codes := make(map[int64]any, len(products))
	for _, p := range products {
		id, err := domain.AsInt(p.Value(domain.ColProdID))
		if err != nil {
			return apperrors.NewPersistenceError("decoding product id", err)
		}
		codes[id] = p.Value(domain.ColProdCode)
	}

	for _, row := range rows {
		v, ok := row.Get(domain.ColProdID)
		if !ok || domain.IsNull(v) {
			continue
		}
		id, err := domain.AsInt(v)
		if err != nil {
			continue
		}
		if code, found := codes[id]; found {
			row.Set(domain.ColProductName, code)
		}
	}
	return nil
}
