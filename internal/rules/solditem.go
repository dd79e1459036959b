package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/query"
)

// soldItemBeforeCreate takes the sold quantity out of inventory, prices the
// sale from the product's first price row and dates an active warranty.
func (e *engine) soldItemBeforeCreate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	prodID, err := requiredInt(m.Fields, domain.ColProdID)
	if err != nil {
		return Plan{}, err
	}
	quantity, err := positiveInt(m.Fields, domain.ColProdQuant)
	if err != nil {
		return Plan{}, err
	}
	if err := checkClaimedQuantity(m.Fields, quantity); err != nil {
		return Plan{}, err
	}

	deltas := stockDeltas{}
	deltas.add(prodID, -quantity)
	before, err := e.adjustStock(ctx, q, deltas)
	if err != nil {
		return Plan{}, err
	}

	unit, err := unitPrice(ctx, q, prodID)
	if err != nil {
		return Plan{}, err
	}
	m.Fields[domain.ColSTotalPrice] = domain.LineTotal(unit, quantity)

	item := domain.SoldItem{ProductID: prodID, Quantity: quantity}
	if item.WarrantyStatus, err = warrantyStatus(m.Fields); err != nil {
		return Plan{}, err
	}
	if m.Fields.Has(domain.ColWarrID) && !domain.IsNull(m.Fields[domain.ColWarrID]) {
		if item.WarrantyID, err = requiredInt(m.Fields, domain.ColWarrID); err != nil {
			return Plan{}, err
		}
	}
	if item.StartDate, err = startDate(m.Fields[domain.ColWarrStart], m.Fields[domain.ColSDate]); err != nil {
		return Plan{}, err
	}

	spans := warrantySpans{}
	if item.WarrantyID != 0 {
		if _, err := spans.get(ctx, q, item.WarrantyID); err != nil {
			return Plan{}, err
		}
	}
	if item.WarrantyStatus == domain.WarrantyActive {
		set, err := activeWarranty(ctx, q, spans, item)
		if err != nil {
			return Plan{}, err
		}
		for k, v := range set {
			m.Fields[k] = v
		}
	}
	return Plan{Before: before}, nil
}

// soldItemBeforeUpdate reconciles inventory and totals when the product or
// quantity changes and recomputes warranty dates when warranty fields change.
func (e *engine) soldItemBeforeUpdate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	stockChanged := anyOf(m.Fields, domain.ColProdID, domain.ColProdQuant)
	warrantyChanged := anyOf(m.Fields, domain.ColWarrStat, domain.ColWarrStart, domain.ColWarrID)
	if !stockChanged && !warrantyChanged && !m.Fields.Has(domain.ColWarrQuant) {
		return Plan{}, nil
	}

	var next domain.SoldItem
	var err error
	if m.Fields.Has(domain.ColProdID) {
		if next.ProductID, err = requiredInt(m.Fields, domain.ColProdID); err != nil {
			return Plan{}, err
		}
	}
	if m.Fields.Has(domain.ColProdQuant) {
		if next.Quantity, err = positiveInt(m.Fields, domain.ColProdQuant); err != nil {
			return Plan{}, err
		}
	}
	if next.WarrantyStatus, err = warrantyStatus(m.Fields); err != nil {
		return Plan{}, err
	}
	if m.Fields.Has(domain.ColWarrID) && !domain.IsNull(m.Fields[domain.ColWarrID]) {
		if next.WarrantyID, err = requiredInt(m.Fields, domain.ColWarrID); err != nil {
			return Plan{}, err
		}
	}

	spans := warrantySpans{}
	if next.WarrantyID != 0 {
		if _, err := spans.get(ctx, q, next.WarrantyID); err != nil {
			return Plan{}, err
		}
	}

	rows, err := m.Targets(ctx, q, domain.ColSID, domain.ColProdID, domain.ColProdQuant, domain.ColSDate,
		domain.ColWarrID, domain.ColWarrStat, domain.ColWarrStart)
	if err != nil {
		return Plan{}, fmt.Errorf("locking sold items: %w", err)
	}

	deltas := stockDeltas{}
	prices := map[int64]decimal.Decimal{}
	changes := make([]rowChange, 0, len(rows))
	for _, r := range rows {
		old, err := domain.SoldItemFromRow(r)
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding sold item row", err)
		}
		merged := old
		if m.Fields.Has(domain.ColProdID) {
			merged.ProductID = next.ProductID
		}
		if m.Fields.Has(domain.ColProdQuant) {
			merged.Quantity = next.Quantity
		}
		if m.Fields.Has(domain.ColWarrID) {
			merged.WarrantyID = next.WarrantyID
		}
		if m.Fields.Has(domain.ColWarrStat) {
			merged.WarrantyStatus = next.WarrantyStatus
		}
		if err := checkClaimedQuantity(m.Fields, merged.Quantity); err != nil {
			return Plan{}, err
		}

		set := domain.Fields{}
		if stockChanged {
			deltas.add(old.ProductID, old.Quantity)
			deltas.add(merged.ProductID, -merged.Quantity)

			unit, ok := prices[merged.ProductID]
			if !ok {
				if unit, err = unitPrice(ctx, q, merged.ProductID); err != nil {
					return Plan{}, err
				}
				prices[merged.ProductID] = unit
			}
			set[domain.ColSTotalPrice] = domain.LineTotal(unit, merged.Quantity)
		}

		if warrantyChanged {
			start := r.Value(domain.ColWarrStart)
			if m.Fields.Has(domain.ColWarrStart) {
				start = m.Fields[domain.ColWarrStart]
			}
			if merged.StartDate, err = startDate(start, r.Value(domain.ColSDate)); err != nil {
				return Plan{}, err
			}

			switch merged.WarrantyStatus {
			case domain.WarrantyActive:
				dates, err := activeWarranty(ctx, q, spans, merged)
				if err != nil {
					return Plan{}, err
				}
				for k, v := range dates {
					set[k] = v
				}
			case domain.WarrantyInactive:
				set[domain.ColWarrEnd] = nil
			}
		}

		if len(set) > 0 {
			changes = append(changes, rowChange{key: old.ID, set: set})
		}
	}

	before, err := e.adjustStock(ctx, q, deltas)
	if err != nil {
		return Plan{}, err
	}
	after, err := applyPerRow(m, len(rows), changes)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Before: before, After: after}, nil
}

// soldItemBeforeDelete returns the sold quantity to inventory.
func (e *engine) soldItemBeforeDelete(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	rows, err := m.Targets(ctx, q, domain.ColSID, domain.ColProdID, domain.ColProdQuant)
	if err != nil {
		return Plan{}, fmt.Errorf("locking sold items: %w", err)
	}

	deltas := stockDeltas{}
	for _, r := range rows {
		s, err := domain.SoldItemFromRow(r)
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding sold item row", err)
		}
		deltas.add(s.ProductID, s.Quantity)
	}

	before, err := e.adjustStock(ctx, q, deltas)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Before: before}, nil
}

// unitPrice is the total price of the product's lowest-id price row.
func unitPrice(ctx context.Context, q Querier, prodID int64) (decimal.Decimal, error) {
	rows, err := q.Select(ctx, query.Select{
		Table:   domain.TablePrice,
		Fields:  []string{domain.ColPriceID, domain.ColTotalPrice},
		Where:   query.WhereEq(query.Eq(domain.ColProdID, prodID)),
		OrderBy: []query.Order{query.Asc(domain.ColPriceID)},
		Limit:   1,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("looking up price of product %d: %w", prodID, err)
	}
	if len(rows) == 0 {
		return decimal.Zero, apperrors.NewNotFoundError(fmt.Sprintf("no price for product %d", prodID))
	}
	p, err := domain.PriceFromRow(rows[0])
	if err != nil {
		return decimal.Zero, apperrors.NewPersistenceError("decoding price row", err)
	}
	return p.TotalPrice, nil
}

// warrantySpans caches warranty time spans for one mutation.
type warrantySpans map[int64]int64

func (s warrantySpans) get(ctx context.Context, q Querier, id int64) (int64, error) {
	if span, ok := s[id]; ok {
		return span, nil
	}
	row, err := requireRow(ctx, q, domain.TableWarranty, domain.ColWarrID, id, domain.ColWarrID, domain.ColWarrTimeSpan)
	if err != nil {
		return 0, err
	}
	w, err := domain.WarrantyFromRow(row)
	if err != nil {
		return 0, apperrors.NewPersistenceError("decoding warranty row", err)
	}
	s[id] = w.TimeSpan
	return w.TimeSpan, nil
}

// activeWarranty returns the start and end dates of an active warranty.
func activeWarranty(ctx context.Context, q Querier, spans warrantySpans, item domain.SoldItem) (domain.Fields, error) {
	if item.WarrantyID == 0 {
		return nil, invalid(domain.ColWarrID, "is required for an active warranty")
	}
	if item.StartDate == nil {
		return nil, invalid(domain.ColWarrStart, "is required for an active warranty")
	}
	span, err := spans.get(ctx, q, item.WarrantyID)
	if err != nil {
		return nil, err
	}
	return domain.Fields{
		domain.ColWarrStart: item.StartDate.Format(domain.DateLayout),
		domain.ColWarrEnd:   domain.WarrantyEndDate(*item.StartDate, span).Format(domain.DateLayout),
	}, nil
}

// startDate is the explicit warranty start, falling back to the sale date.
func startDate(start, saleDate any) (*time.Time, error) {
	for _, v := range []any{start, saleDate} {
		if domain.IsNull(v) {
			continue
		}
		d, err := domain.AsDate(v)
		if err != nil {
			return nil, invalid(domain.ColWarrStart, "must be a date (%s)", domain.DateLayout)
		}
		return &d, nil
	}
	return nil, nil
}

func warrantyStatus(f domain.Fields) (domain.WarrantyStatus, error) {
	v, ok := f[domain.ColWarrStat]
	if !ok || domain.IsNull(v) {
		return domain.WarrantyInactive, nil
	}
	st, err := domain.ParseWarrantyStatus(v)
	if err != nil {
		return 0, invalid(domain.ColWarrStat, "%s", err.Error())
	}
	return st, nil
}

func checkClaimedQuantity(f domain.Fields, quantity int64) error {
	if !f.Has(domain.ColWarrQuant) || domain.IsNull(f[domain.ColWarrQuant]) {
		return nil
	}
	claimed, err := requiredInt(f, domain.ColWarrQuant)
	if err != nil {
		return err
	}
	if claimed < 0 || claimed > quantity {
		return invalid(domain.ColWarrQuant, "must be between 0 and %d", quantity)
	}
	return nil
}
