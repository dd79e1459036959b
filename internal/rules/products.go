package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/query"
)

// productBeforeDelete removes the price rows of every doomed product first.
func (e *engine) productBeforeDelete(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	rows, err := m.Targets(ctx, q, domain.ColProdID)
	if err != nil {
		return Plan{}, fmt.Errorf("locking products: %w", err)
	}
	if len(rows) == 0 {
		return Plan{}, nil
	}

	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		id, err := domain.AsInt(r.Value(domain.ColProdID))
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding product id", err)
		}
		ids = append(ids, id)
	}

	stmt, err := query.Delete{
		Table: domain.TablePrice,
		Where: query.WhereEq(query.In(domain.ColProdID, ids...)),
	}.Build()
	if err != nil {
		return Plan{}, err
	}
	e.logger.Debug("cascading product delete to prices", zap.Int("products", len(ids)))
	return Plan{Before: []query.Statement{stmt}}, nil
}
