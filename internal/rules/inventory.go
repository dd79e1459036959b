package rules

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/query"
)

// stockDeltas accumulates inventory movements per product id.
type stockDeltas map[int64]int64

func (d stockDeltas) add(productID, delta int64) {
	d[productID] += delta
}

// adjustStock locks the touched products in ascending id order and returns
// the statements writing their new totals. A product that does not exist is
// a NotFoundError; stock that would go negative is a ValidationError.
func (e *engine) adjustStock(ctx context.Context, q Querier, deltas stockDeltas) ([]query.Statement, error) {
	ids := make([]int64, 0, len(deltas))
	for id, delta := range deltas {
		if delta != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	keys := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = id
	}
	rows, err := q.Select(ctx, query.Select{
		Table:     domain.TableProducts,
		Fields:    []string{domain.ColProdID, domain.ColProdCode, domain.ColProdQuantTot},
		Where:     query.WhereEq(query.In(domain.ColProdID, keys...)),
		OrderBy:   []query.Order{query.Asc(domain.ColProdID)},
		ForUpdate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}

	products := make(map[int64]domain.Product, len(rows))
	for _, r := range rows {
		p, err := domain.ProductFromRow(r)
		if err != nil {
			return nil, apperrors.NewPersistenceError("decoding product row", err)
		}
		products[p.ID] = p
	}

	stmts := make([]query.Statement, 0, len(ids))
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %d not found", id))
		}
		next, err := p.Adjusted(deltas[id])
		if err != nil {
			e.logger.Warn("insufficient stock",
				zap.Int64("prodId", id),
				zap.Int64("available", p.TotalQuantity),
				zap.Int64("delta", deltas[id]))
			return nil, apperrors.NewValidationError("insufficient stock", apperrors.ValidationDetail{
				Field:   domain.ColProdQuant,
				Message: err.Error(),
			})
		}

		stmt, err := query.Update{
			Table: domain.TableProducts,
			Set:   map[string]any{domain.ColProdQuantTot: next},
			Where: query.WhereEq(query.Eq(domain.ColProdID, id)),
		}.Build()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// requireRow fails with a NotFoundError unless table has a row with the
// given primary key value, and returns it.
func requireRow(ctx context.Context, q Querier, table, pk string, id int64, fields ...string) (*domain.Row, error) {
	rows, err := q.Select(ctx, query.Select{
		Table:  table,
		Fields: fields,
		Where:  query.WhereEq(query.Eq(pk, id)),
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("looking up %s %d: %w", table, id, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s %d not found", table, id))
	}
	return rows[0], nil
}
