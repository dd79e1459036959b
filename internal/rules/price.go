package rules

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
)

func (e *engine) priceBeforeCreate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	prodID, err := requiredInt(m.Fields, domain.ColProdID)
	if err != nil {
		return Plan{}, err
	}
	net, err := requiredDecimal(m.Fields, domain.ColNetPrice)
	if err != nil {
		return Plan{}, err
	}
	vat, err := percent(m.Fields, domain.ColVAT)
	if err != nil {
		return Plan{}, err
	}
	discount, err := percent(m.Fields, domain.ColDiscount)
	if err != nil {
		return Plan{}, err
	}
	if _, err := requireRow(ctx, q, domain.TableProducts, domain.ColProdID, prodID, domain.ColProdID); err != nil {
		return Plan{}, err
	}

	m.Fields[domain.ColTotalPrice] = domain.TotalPrice(net, vat, discount)
	return Plan{}, nil
}

// priceBeforeUpdate recomputes totalPrice of every targeted row whenever one
// of its inputs changes.
func (e *engine) priceBeforeUpdate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	if m.Fields.Has(domain.ColProdID) {
		prodID, err := requiredInt(m.Fields, domain.ColProdID)
		if err != nil {
			return Plan{}, err
		}
		if _, err := requireRow(ctx, q, domain.TableProducts, domain.ColProdID, prodID, domain.ColProdID); err != nil {
			return Plan{}, err
		}
	}
	if !anyOf(m.Fields, domain.ColNetPrice, domain.ColVAT, domain.ColDiscount) {
		return Plan{}, nil
	}
	edit, err := priceEditOf(m.Fields)
	if err != nil {
		return Plan{}, err
	}

	rows, err := m.Targets(ctx, q, domain.ColPriceID, domain.ColNetPrice, domain.ColVAT, domain.ColDiscount)
	if err != nil {
		return Plan{}, fmt.Errorf("locking prices: %w", err)
	}

	changes := make([]rowChange, 0, len(rows))
	for _, r := range rows {
		p, err := domain.PriceFromRow(r)
		if err != nil {
			return Plan{}, apperrors.NewPersistenceError("decoding price row", err)
		}
		edit.apply(&p)
		changes = append(changes, rowChange{
			key: p.ID,
			set: domain.Fields{domain.ColTotalPrice: domain.TotalPrice(p.NetPrice, p.VATPercent, p.Discount)},
		})
	}

	after, err := applyPerRow(m, len(rows), changes)
	if err != nil {
		return Plan{}, err
	}
	return Plan{After: after}, nil
}

// priceEdit holds the validated price inputs of an update; nil means unchanged.
type priceEdit struct {
	net, vat, discount *decimal.Decimal
}

func priceEditOf(f domain.Fields) (priceEdit, error) {
	var edit priceEdit
	if f.Has(domain.ColNetPrice) {
		net, err := requiredDecimal(f, domain.ColNetPrice)
		if err != nil {
			return priceEdit{}, err
		}
		edit.net = &net
	}
	if f.Has(domain.ColVAT) {
		vat, err := percent(f, domain.ColVAT)
		if err != nil {
			return priceEdit{}, err
		}
		edit.vat = &vat
	}
	if f.Has(domain.ColDiscount) {
		discount, err := percent(f, domain.ColDiscount)
		if err != nil {
			return priceEdit{}, err
		}
		edit.discount = &discount
	}
	return edit, nil
}

func (e priceEdit) apply(p *domain.Price) {
	if e.net != nil {
		p.NetPrice = *e.net
	}
	if e.vat != nil {
		p.VATPercent = *e.vat
	}
	if e.discount != nil {
		p.Discount = *e.discount
	}
}
