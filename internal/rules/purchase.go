package rules

import (
	"context"
	"fmt"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
)

// purchaseBeforeCreate receives stock into inventory and derives the item and
// shipment totals.
func (e *engine) purchaseBeforeCreate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	prodID, err := requiredInt(m.Fields, domain.ColProdID)
	if err != nil {
		return Plan{}, err
	}
	quantity, err := positiveInt(m.Fields, domain.ColProdQuant)
	if err != nil {
		return Plan{}, err
	}
	p := domain.Purchase{ProductID: prodID, Quantity: quantity}
	if p.ItemNetPrice, err = requiredDecimal(m.Fields, domain.ColItemNetPrice); err != nil {
		return Plan{}, err
	}
	if p.VATPercent, err = percent(m.Fields, domain.ColVAT); err != nil {
		return Plan{}, err
	}
	if p.Discount, err = percent(m.Fields, domain.ColDiscount); err != nil {
		return Plan{}, err
	}
	if err := e.checkPartner(ctx, q, m.Fields); err != nil {
		return Plan{}, err
	}

	deltas := stockDeltas{}
	deltas.add(prodID, quantity)
	before, err := e.adjustStock(ctx, q, deltas)
	if err != nil {
		return Plan{}, err
	}

	for k, v := range purchaseTotals(p) {
		m.Fields[k] = v
	}
	return Plan{Before: before}, nil
}

// purchaseBeforeUpdate moves inventory by the difference between the old and
// new quantities and re-derives totals of each targeted row.
func (e *engine) purchaseBeforeUpdate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	if err := e.checkPartner(ctx, q, m.Fields); err != nil {
		return Plan{}, err
	}
	stockChanged := anyOf(m.Fields, domain.ColProdID, domain.ColProdQuant)
	priceChanged := anyOf(m.Fields, domain.ColProdQuant, domain.ColItemNetPrice, domain.ColVAT, domain.ColDiscount)
	if !stockChanged && !priceChanged {
		return Plan{}, nil
	}

	var next domain.Purchase
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
	if m.Fields.Has(domain.ColItemNetPrice) {
		if next.ItemNetPrice, err = requiredDecimal(m.Fields, domain.ColItemNetPrice); err != nil {
			return Plan{}, err
		}
	}
	if next.VATPercent, err = percent(m.Fields, domain.ColVAT); err != nil {
		return Plan{}, err
	}
	if next.Discount, err = percent(m.Fields, domain.ColDiscount); err != nil {
		return Plan{}, err
	}

	rows, err := m.Targets(ctx, q, domain.ColPurchID, domain.ColProdID, domain.ColProdQuant,
		domain.ColItemNetPrice, domain.ColVAT, domain.ColDiscount)
	if err != nil {
		return Plan{}, fmt.Errorf("locking purchases: %w", err)
	}

	deltas := stockDeltas{}
	changes := make([]rowChange, 0, len(rows))
	for _, r := range rows {
		old, err := domain.PurchaseFromRow(r)
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding purchase row", err)
		}
		merged := old
		if m.Fields.Has(domain.ColProdID) {
			merged.ProductID = next.ProductID
		}
		if m.Fields.Has(domain.ColProdQuant) {
			merged.Quantity = next.Quantity
		}
		if m.Fields.Has(domain.ColItemNetPrice) {
			merged.ItemNetPrice = next.ItemNetPrice
		}
		if m.Fields.Has(domain.ColVAT) {
			merged.VATPercent = next.VATPercent
		}
		if m.Fields.Has(domain.ColDiscount) {
			merged.Discount = next.Discount
		}

		if stockChanged {
			deltas.add(old.ProductID, -old.Quantity)
			deltas.add(merged.ProductID, merged.Quantity)
		}
		if priceChanged {
			changes = append(changes, rowChange{key: old.ID, set: purchaseTotals(merged)})
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

// purchaseBeforeDelete takes the purchased quantity back out of inventory.
func (e *engine) purchaseBeforeDelete(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	rows, err := m.Targets(ctx, q, domain.ColPurchID, domain.ColProdID, domain.ColProdQuant)
	if err != nil {
		return Plan{}, fmt.Errorf("locking purchases: %w", err)
	}

	deltas := stockDeltas{}
	for _, r := range rows {
		p, err := domain.PurchaseFromRow(r)
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding purchase row", err)
		}
		deltas.add(p.ProductID, -p.Quantity)
	}

	before, err := e.adjustStock(ctx, q, deltas)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Before: before}, nil
}

func (e *engine) checkPartner(ctx context.Context, q Querier, f domain.Fields) error {
	if !f.Has(domain.ColPartner) {
		return nil
	}
	id, err := requiredInt(f, domain.ColPartner)
	if err != nil || id == 0 {
		return err
	}
	_, err = requireRow(ctx, q, domain.TablePartners, domain.ColPartnerID, id, domain.ColPartnerID)
	return err
}

func purchaseTotals(p domain.Purchase) domain.Fields {
	item := domain.TotalPrice(p.ItemNetPrice, p.VATPercent, p.Discount)
	return domain.Fields{
		domain.ColItemTotal:     item,
		domain.ColShipmentTotal: domain.LineTotal(item, p.Quantity),
	}
}
