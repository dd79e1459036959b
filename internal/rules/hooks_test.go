package rules

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webshop/internal/domain"
	"webshop/internal/query"
)

func assertDecimal(t *testing.T, want string, got any) {
	t.Helper()
	d, ok := got.(decimal.Decimal)
	require.True(t, ok, "expected decimal, got %T", got)
	assert.True(t, dec(want).Equal(d), "want %s, got %s", want, d)
}

func TestPriceCreate_DerivesTotal(t *testing.T) {
	r := newTestRegistry()
	m := newMutation(Create, domain.TablePrice, domain.Fields{
		"prodId": int64(1), "netPrice": dec("100"), "VAT": int64(20), "discount": int64(10),
	})

	plan, err := r.Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assertDecimal(t, "108", m.Fields["totalPrice"])
}

func TestPriceCreate_Validation(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	_, err := r.Run(ctx, shop(), newMutation(Create, domain.TablePrice, domain.Fields{
		"prodId": int64(1), "netPrice": dec("100"), "VAT": int64(120),
	}))
	requireValidation(t, err, "VAT")

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TablePrice, domain.Fields{"prodId": int64(1)}))
	requireValidation(t, err, "netPrice")

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TablePrice, domain.Fields{
		"prodId": int64(42), "netPrice": dec("1"),
	}))
	requireNotFound(t, err)
}

func TestPriceUpdate_SingleRowFoldsIntoSet(t *testing.T) {
	r := newTestRegistry()
	m := newMutation(Update, domain.TablePrice, domain.Fields{"discount": int64(0)}, int64(7))

	plan, err := r.Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assertDecimal(t, "120", m.Fields["totalPrice"])
}

func TestPriceUpdate_RowsWithDifferentTotals(t *testing.T) {
	r := newTestRegistry()
	m := newMutation(Update, domain.TablePrice, domain.Fields{"VAT": int64(10)}, int64(7), int64(9))

	plan, err := r.Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.False(t, m.Fields.Has("totalPrice"))
	require.Len(t, plan.After, 2)
	// 100 * 1.10 * 0.90 and 50 * 1.10
	assertDecimal(t, "99", plan.After[0].Args[0])
	assert.Equal(t, int64(7), plan.After[0].Args[1])
	assertDecimal(t, "55", plan.After[1].Args[0])
	assert.Equal(t, int64(9), plan.After[1].Args[1])
}

func TestPriceUpdate_UnrelatedFieldsSkipReads(t *testing.T) {
	q := shop()
	m := newMutation(Update, domain.TablePrice, domain.Fields{}, int64(7))

	plan, err := newTestRegistry().Run(context.Background(), q, m)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, q.selects)
}

func TestPriceUpdate_InvalidInputLocksNothing(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	q := shop()
	_, err := r.Run(ctx, q, newMutation(Update, domain.TablePrice, domain.Fields{"discount": int64(101)}, int64(7)))
	requireValidation(t, err, "discount")
	assert.Empty(t, q.selects)

	q = shop()
	_, err = r.Run(ctx, q, newMutation(Update, domain.TablePrice, domain.Fields{"netPrice": "cheap"}, int64(7)))
	requireValidation(t, err, "netPrice")
	assert.Empty(t, q.selects)
}

func TestPriceUpdate_NetPriceKeepsStoredPercentages(t *testing.T) {
	m := newMutation(Update, domain.TablePrice, domain.Fields{"netPrice": dec("200")}, int64(7))

	plan, err := newTestRegistry().Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	// 200 * 1.20 * 0.90
	assertDecimal(t, "216", m.Fields["totalPrice"])
}

func TestPurchaseCreate_ReceivesStock(t *testing.T) {
	m := newMutation(Create, domain.TablePurchase, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(5), "partner": int64(4),
		"itemNetPrice": dec("10"), "VAT": int64(27), "discount": int64(0),
	})

	plan, err := newTestRegistry().Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 15)}, plan.Before)
	assertDecimal(t, "12.7", m.Fields["itemTotalPrice"])
	assertDecimal(t, "63.5", m.Fields["shipmentTotalPrice"])
}

func TestPurchaseCreate_Validation(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	_, err := r.Run(ctx, shop(), newMutation(Create, domain.TablePurchase, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(0), "itemNetPrice": dec("1"),
	}))
	requireValidation(t, err, "prodQuant")

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TablePurchase, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(1), "itemNetPrice": dec("1"), "partner": int64(77),
	}))
	requireNotFound(t, err)

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TablePurchase, domain.Fields{
		"prodId": int64(5), "prodQuant": int64(1), "itemNetPrice": dec("1"),
	}))
	requireNotFound(t, err)
}

func purchases(q *fakeQuerier) *fakeQuerier {
	q.tables[domain.TablePurchase] = []*domain.Row{
		row("purchId", int64(1), "prodId", int64(1), "prodQuant", int64(5), "itemNetPrice", dec("10"), "VAT", int64(0), "discount", int64(0)),
	}
	return q
}

func TestPurchaseUpdate_MovesStockDifference(t *testing.T) {
	m := newMutation(Update, domain.TablePurchase, domain.Fields{"prodQuant": int64(3)}, int64(1))

	plan, err := newTestRegistry().Run(context.Background(), purchases(shop()), m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 8)}, plan.Before)
	assertDecimal(t, "10", m.Fields["itemTotalPrice"])
	assertDecimal(t, "30", m.Fields["shipmentTotalPrice"])
}

func TestPurchaseUpdate_ChangeOfProduct(t *testing.T) {
	m := newMutation(Update, domain.TablePurchase, domain.Fields{"prodId": int64(2)}, int64(1))

	plan, err := newTestRegistry().Run(context.Background(), purchases(shop()), m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 5), stockUpdate(2, 5)}, plan.Before)
	assert.False(t, m.Fields.Has("itemTotalPrice"))
}

func TestPurchaseDelete_ReversesStock(t *testing.T) {
	q := purchases(shop())
	m := newMutation(Delete, domain.TablePurchase, nil, int64(1))

	plan, err := newTestRegistry().Run(context.Background(), q, m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 5)}, plan.Before)

	q.tables[domain.TableProducts][0].Set("prodQuantTotal", int64(2))
	_, err = newTestRegistry().Run(context.Background(), q, m)
	requireValidation(t, err, "prodQuant")
}

func TestSoldItemCreate_TakesStockAndPrices(t *testing.T) {
	m := newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(3), "invNum": "INV-1", "sDate": "2024-01-15",
	})

	plan, err := newTestRegistry().Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 7)}, plan.Before)
	assertDecimal(t, "324", m.Fields["sTotalPrice"])
	assert.False(t, m.Fields.Has("warrEndDate"))
}

func TestSoldItemCreate_ActiveWarranty(t *testing.T) {
	m := newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(1), "sDate": "2024-01-10",
		"warrId": int64(1), "warrStat": int64(domain.WarrantyActive), "warrStartDate": "2024-01-15",
	})

	_, err := newTestRegistry().Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", m.Fields["warrStartDate"])
	assert.Equal(t, "2025-01-15", m.Fields["warrEndDate"])
}

func TestSoldItemCreate_WarrantyStartsAtSaleDate(t *testing.T) {
	m := newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(1), "sDate": "2024-02-29",
		"warrId": int64(1), "warrStat": int64(domain.WarrantyActive),
	})

	_, err := newTestRegistry().Run(context.Background(), shop(), m)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", m.Fields["warrStartDate"])
	assert.Equal(t, "2025-03-01", m.Fields["warrEndDate"])
}

func TestSoldItemCreate_Errors(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	_, err := r.Run(ctx, shop(), newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(11),
	}))
	requireValidation(t, err, "prodQuant")

	q := shop()
	q.tables[domain.TableProducts][1].Set("prodQuantTotal", int64(4))
	_, err = r.Run(ctx, q, newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(2), "prodQuant": int64(1),
	}))
	requireNotFound(t, err)

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(1), "warrId": int64(8), "warrStat": int64(domain.WarrantyActive),
		"warrStartDate": "2024-01-01",
	}))
	requireNotFound(t, err)

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(1), "warrStat": int64(domain.WarrantyActive),
	}))
	requireValidation(t, err, "warrId")

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TableSoldItem, domain.Fields{
		"prodId": int64(1), "prodQuant": int64(2), "warrQuant": int64(3),
	}))
	requireValidation(t, err, "warrQuant")
}

func soldItems(q *fakeQuerier) *fakeQuerier {
	q.tables[domain.TableSoldItem] = []*domain.Row{
		row("sId", int64(1), "prodId", int64(1), "prodQuant", int64(2), "sDate", "2024-01-15",
			"warrId", int64(1), "warrStat", int64(1), "warrStartDate", "2024-01-15"),
		row("sId", int64(2), "prodId", int64(1), "prodQuant", int64(1), "sDate", "2024-03-01",
			"warrId", int64(1), "warrStat", int64(1), "warrStartDate", "2024-03-01"),
		row("sId", int64(3), "prodId", int64(1), "prodQuant", int64(1), "sDate", "2024-03-01",
			"warrId", int64(1), "warrStat", int64(0), "warrStartDate", nil),
	}
	return q
}

func TestSoldItemUpdate_Deactivate(t *testing.T) {
	m := newMutation(Update, domain.TableSoldItem, domain.Fields{"warrStat": int64(0)}, int64(1), int64(2))

	plan, err := newTestRegistry().Run(context.Background(), soldItems(shop()), m)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.True(t, m.Fields.Has("warrEndDate"))
	assert.Nil(t, m.Fields["warrEndDate"])
}

func TestSoldItemUpdate_ActivateUsesEachRowsStart(t *testing.T) {
	m := newMutation(Update, domain.TableSoldItem, domain.Fields{"warrStat": int64(1)}, int64(1), int64(2))

	plan, err := newTestRegistry().Run(context.Background(), soldItems(shop()), m)
	require.NoError(t, err)
	require.Len(t, plan.After, 2)
	assert.Equal(t, "UPDATE `soldItem` SET `warrEndDate` = ?, `warrStartDate` = ? WHERE `sId` = ?", plan.After[0].SQL)
	assert.Equal(t, []any{"2025-01-15", "2024-01-15", int64(1)}, plan.After[0].Args)
	assert.Equal(t, []any{"2025-03-01", "2024-03-01", int64(2)}, plan.After[1].Args)
}

func TestSoldItemUpdate_QuantityReconcilesStockAndTotal(t *testing.T) {
	m := newMutation(Update, domain.TableSoldItem, domain.Fields{"prodQuant": int64(5)}, int64(1))

	plan, err := newTestRegistry().Run(context.Background(), soldItems(shop()), m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 7)}, plan.Before)
	assertDecimal(t, "540", m.Fields["sTotalPrice"])
}

func TestSoldItemDelete_ReturnsStock(t *testing.T) {
	m := newMutation(Delete, domain.TableSoldItem, nil, int64(1), int64(2), int64(3))

	plan, err := newTestRegistry().Run(context.Background(), soldItems(shop()), m)
	require.NoError(t, err)
	assert.Equal(t, []query.Statement{stockUpdate(1, 14)}, plan.Before)
}

func TestWarrantyUpdate_CascadesToRunningWarranties(t *testing.T) {
	q := soldItems(shop())
	m := newMutation(Update, domain.TableWarranty, domain.Fields{"warrTimeSpan": int64(24)}, int64(1))

	plan, err := newTestRegistry().Run(context.Background(), q, m)
	require.NoError(t, err)
	require.Len(t, plan.After, 2)
	assert.Equal(t, "UPDATE `soldItem` SET `warrEndDate` = ? WHERE `sId` = ?", plan.After[0].SQL)
	assert.Equal(t, []any{"2026-01-15", int64(1)}, plan.After[0].Args)
	assert.Equal(t, []any{"2026-03-01", int64(2)}, plan.After[1].Args)

	last := q.selects[len(q.selects)-1]
	assert.Equal(t, domain.TableSoldItem, last.Table)
	assert.True(t, last.ForUpdate)
}

func TestWarrantyUpdate_NameOnly(t *testing.T) {
	q := soldItems(shop())
	m := newMutation(Update, domain.TableWarranty, domain.Fields{"warrName": "Gold"}, int64(1))

	plan, err := newTestRegistry().Run(context.Background(), q, m)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, q.selects)
}

func TestWarrantyCreate_NegativeSpan(t *testing.T) {
	_, err := newTestRegistry().Run(context.Background(), shop(),
		newMutation(Create, domain.TableWarranty, domain.Fields{"warrTimeSpan": int64(-1)}))
	requireValidation(t, err, "warrTimeSpan")
}

func TestProductDelete_CascadesToPrices(t *testing.T) {
	m := newMutation(Delete, domain.TableProducts, nil, int64(1), int64(2), int64(99))

	plan, err := newTestRegistry().Run(context.Background(), shop(), m)
	require.NoError(t, err)
	require.Len(t, plan.Before, 1)
	assert.Equal(t, "DELETE FROM `price` WHERE `prodId` IN (?, ?)", plan.Before[0].SQL)
	assert.Equal(t, []any{int64(1), int64(2)}, plan.Before[0].Args)
}

func TestProductDelete_NoMatches(t *testing.T) {
	plan, err := newTestRegistry().Run(context.Background(), shop(),
		newMutation(Delete, domain.TableProducts, nil, int64(99)))
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPartner_Email(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	m := newMutation(Create, domain.TablePartners, domain.Fields{"partnerName": "Acme", "partnerEmail": " sales@acme.example "})
	_, err := r.Run(ctx, shop(), m)
	require.NoError(t, err)
	assert.Equal(t, "sales@acme.example", m.Fields["partnerEmail"])

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TablePartners, domain.Fields{"partnerEmail": "acme"}))
	requireValidation(t, err, "partnerEmail")

	_, err = r.Run(ctx, shop(), newMutation(Create, domain.TablePartners, domain.Fields{"partnerName": "Acme"}))
	requireValidation(t, err, "partnerEmail")

	_, err = r.Run(ctx, shop(), newMutation(Update, domain.TablePartners, domain.Fields{"partnerName": "Acme Ltd"}, int64(4)))
	require.NoError(t, err)

	_, err = r.Run(ctx, shop(), newMutation(Update, domain.TablePartners, domain.Fields{"partnerEmail": "nope"}, int64(4)))
	requireValidation(t, err, "partnerEmail")
}
