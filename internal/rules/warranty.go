package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/query"
)

func (e *engine) warrantyBeforeCreate(_ context.Context, _ Querier, m *Mutation) (Plan, error) {
	span, err := requiredInt(m.Fields, domain.ColWarrTimeSpan)
	if err != nil {
		return Plan{}, err
	}
	if span < 0 {
		return Plan{}, invalid(domain.ColWarrTimeSpan, "must not be negative")
	}
	return Plan{}, nil
}

// warrantyBeforeUpdate cascades a new time span to the end date of every
// sold item that references one of the targeted warranties and carries a
// running warranty.
func (e *engine) warrantyBeforeUpdate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	if !m.Fields.Has(domain.ColWarrTimeSpan) {
		return Plan{}, nil
	}
	span, err := requiredInt(m.Fields, domain.ColWarrTimeSpan)
	if err != nil {
		return Plan{}, err
	}
	if span < 0 {
		return Plan{}, invalid(domain.ColWarrTimeSpan, "must not be negative")
	}

	targets, err := m.Targets(ctx, q, domain.ColWarrID)
	if err != nil {
		return Plan{}, fmt.Errorf("locking warranties: %w", err)
	}
	if len(targets) == 0 {
		return Plan{}, nil
	}
	ids := make([]any, 0, len(targets))
	for _, r := range targets {
		id, err := domain.AsInt(r.Value(domain.ColWarrID))
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding warranty id", err)
		}
		ids = append(ids, id)
	}

	rows, err := q.Select(ctx, query.Select{
		Table:     domain.TableSoldItem,
		Fields:    []string{domain.ColSID, domain.ColWarrID, domain.ColWarrStat, domain.ColWarrStart},
		Where:     query.WhereEq(query.In(domain.ColWarrID, ids...)),
		OrderBy:   []query.Order{query.Asc(domain.ColSID)},
		ForUpdate: true,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("locking sold items: %w", err)
	}

	var after []query.Statement
	for _, r := range rows {
		item, err := domain.SoldItemFromRow(r)
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding sold item row", err)
		}
		if item.WarrantyStatus == domain.WarrantyInactive {
			continue
		}
		if item.StartDate == nil {
			e.logger.Warn("sold item has a running warranty without start date",
				zap.Int64("sId", item.ID), zap.Int64("warrId", item.WarrantyID))
			continue
		}

		stmt, err := query.Update{
			Table: domain.TableSoldItem,
			Set: map[string]any{
				domain.ColWarrEnd: domain.WarrantyEndDate(*item.StartDate, span).Format(domain.DateLayout),
			},
			Where: query.WhereEq(query.Eq(domain.ColSID, item.ID)),
		}.Build()
		if err != nil {
			return Plan{}, err
		}
		after = append(after, stmt)
	}

	e.logger.Debug("cascading warranty time span",
		zap.Int("warranties", len(ids)), zap.Int("soldItems", len(after)))
	return Plan{After: after}, nil
}
