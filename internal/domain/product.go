package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64
	Code          string
	TotalQuantity int64
}

// Adjusted returns the stock level after applying delta, failing when it
// would go negative.
func (p Product) Adjusted(delta int64) (int64, error) {
	next := p.TotalQuantity + delta
	if next < 0 {
		return 0, fmt.Errorf("product %d has %d in stock, %d requested", p.ID, p.TotalQuantity, -delta)
	}
	return next, nil
}

func ProductFromRow(r *Row) (Product, error) {
	var p Product
	var err error
	if p.ID, err = AsInt(r.Value(ColProdID)); err != nil {
		return p, fmt.Errorf("decoding %s: %w", ColProdID, err)
	}
	if v, ok := r.Get(ColProdCode); ok && v != nil {
		p.Code = fmt.Sprint(v)
	}
	if v, ok := r.Get(ColProdQuantTot); ok && v != nil {
		if p.TotalQuantity, err = AsInt(v); err != nil {
			return p, fmt.Errorf("decoding %s: %w", ColProdQuantTot, err)
		}
	}
	return p, nil
}

type Price struct {
	ID         int64
	ProductID  int64
	NetPrice   decimal.Decimal
	VATPercent decimal.Decimal
	Discount   decimal.Decimal
	TotalPrice decimal.Decimal
}

func PriceFromRow(r *Row) (Price, error) {
	var p Price
	var err error
	if p.ID, err = AsInt(r.Value(ColPriceID)); err != nil {
		return p, fmt.Errorf("decoding %s: %w", ColPriceID, err)
	}
	if v, ok := r.Get(ColProdID); ok && v != nil {
		if p.ProductID, err = AsInt(v); err != nil {
			return p, fmt.Errorf("decoding %s: %w", ColProdID, err)
		}
	}
	if p.NetPrice, err = decimalOrZero(r, ColNetPrice); err != nil {
		return p, err
	}
	if p.VATPercent, err = decimalOrZero(r, ColVAT); err != nil {
		return p, err
	}
	if p.Discount, err = decimalOrZero(r, ColDiscount); err != nil {
		return p, err
	}
	if p.TotalPrice, err = decimalOrZero(r, ColTotalPrice); err != nil {
		return p, err
	}
	return p, nil
}

type Purchase struct {
	ID           int64
	ProductID    int64
	Quantity     int64
	ItemNetPrice decimal.Decimal
	VATPercent   decimal.Decimal
	Discount     decimal.Decimal
}

func PurchaseFromRow(r *Row) (Purchase, error) {
	var p Purchase
	var err error
	if p.ID, err = AsInt(r.Value(ColPurchID)); err != nil {
		return p, fmt.Errorf("decoding %s: %w", ColPurchID, err)
	}
	if p.ProductID, err = AsInt(r.Value(ColProdID)); err != nil {
		return p, fmt.Errorf("decoding %s: %w", ColProdID, err)
	}
	if p.Quantity, err = AsInt(r.Value(ColProdQuant)); err != nil {
		return p, fmt.Errorf("decoding %s: %w", ColProdQuant, err)
	}
	if p.ItemNetPrice, err = decimalOrZero(r, ColItemNetPrice); err != nil {
		return p, err
	}
	if p.VATPercent, err = decimalOrZero(r, ColVAT); err != nil {
		return p, err
	}
	if p.Discount, err = decimalOrZero(r, ColDiscount); err != nil {
		return p, err
	}
	return p, nil
}

type SoldItem struct {
	ID             int64
	ProductID      int64
	Quantity       int64
	WarrantyID     int64
	WarrantyStatus WarrantyStatus
	StartDate      *time.Time
}

func SoldItemFromRow(r *Row) (SoldItem, error) {
	var s SoldItem
	var err error
	if s.ID, err = AsInt(r.Value(ColSID)); err != nil {
		return s, fmt.Errorf("decoding %s: %w", ColSID, err)
	}
	if v, ok := r.Get(ColProdID); ok {
		if s.ProductID, err = AsInt(v); err != nil {
			return s, fmt.Errorf("decoding %s: %w", ColProdID, err)
		}
	}
	if v, ok := r.Get(ColProdQuant); ok {
		if s.Quantity, err = AsInt(v); err != nil {
			return s, fmt.Errorf("decoding %s: %w", ColProdQuant, err)
		}
	}
	if v, ok := r.Get(ColWarrID); ok && !IsNull(v) {
		if s.WarrantyID, err = AsInt(v); err != nil {
			return s, fmt.Errorf("decoding %s: %w", ColWarrID, err)
		}
	}
	if v, ok := r.Get(ColWarrStat); ok && !IsNull(v) {
		if s.WarrantyStatus, err = ParseWarrantyStatus(v); err != nil {
			return s, err
		}
	}
	if v, ok := r.Get(ColWarrStart); ok && !IsNull(v) {
		d, err := AsDate(v)
		if err != nil {
			return s, fmt.Errorf("decoding %s: %w", ColWarrStart, err)
		}
		s.StartDate = &d
	}
	return s, nil
}

type Warranty struct {
	ID       int64
	Name     string
	TimeSpan int64
}

func WarrantyFromRow(r *Row) (Warranty, error) {
	var w Warranty
	var err error
	if v, ok := r.Get(ColWarrID); ok {
		if w.ID, err = AsInt(v); err != nil {
			return w, fmt.Errorf("decoding %s: %w", ColWarrID, err)
		}
	}
	if v, ok := r.Get(ColWarrName); ok && v != nil {
		w.Name = fmt.Sprint(v)
	}
	if w.TimeSpan, err = AsInt(r.Value(ColWarrTimeSpan)); err != nil {
		return w, fmt.Errorf("decoding %s: %w", ColWarrTimeSpan, err)
	}
	return w, nil
}

func decimalOrZero(r *Row, column string) (decimal.Decimal, error) {
	v, ok := r.Get(column)
	if !ok || IsNull(v) {
		return decimal.Zero, nil
	}
	d, err := AsDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decoding %s: %w", column, err)
	}
	return d, nil
}
