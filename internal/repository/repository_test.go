package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	mysqlinfra "webshop/internal/infrastructure/mysql"
	"webshop/internal/query"
)

// Mock implementations
type mockTransactor struct {
	ex       *mockExecutor
	calls    int
	readOnly []bool
}

func (m *mockTransactor) WithTx(ctx context.Context, readOnly bool, fn func(ctx context.Context, ex mysqlinfra.Executor) error) error {
	m.calls++
	m.readOnly = append(m.readOnly, readOnly)
	return mysqlinfra.Classify(fn(ctx, m.ex))
}

type fakeResult struct {
	lastID   int64
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type mockExecutor struct {
	QueryFunc func(ctx context.Context, stmt query.Statement) ([]*domain.Row, error)
	ExecFunc  func(ctx context.Context, stmt query.Statement) (sql.Result, error)

	queries []query.Statement
	execs   []query.Statement
}

func (m *mockExecutor) Query(ctx context.Context, stmt query.Statement) ([]*domain.Row, error) {
	m.queries = append(m.queries, stmt)
	if m.QueryFunc == nil {
		return nil, nil
	}
	return m.QueryFunc(ctx, stmt)
}

func (m *mockExecutor) Exec(ctx context.Context, stmt query.Statement) (sql.Result, error) {
	m.execs = append(m.execs, stmt)
	if m.ExecFunc == nil {
		return fakeResult{lastID: 1, affected: 1}, nil
	}
	return m.ExecFunc(ctx, stmt)
}

func (m *mockExecutor) execSQL() []string {
	out := make([]string, len(m.execs))
	for i, s := range m.execs {
		out[i] = s.SQL
	}
	return out
}

func row(pairs ...any) *domain.Row {
	r := domain.NewRow()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

// shopRows answers rule lookups the way MySQL returns them: integers as
// int64, decimals as strings.
func shopRows(_ context.Context, stmt query.Statement) ([]*domain.Row, error) {
	switch {
	case strings.HasPrefix(stmt.SQL, "SELECT `prodId`, `prodCode`, `prodQuantTotal` FROM `products`"):
		return []*domain.Row{row("prodId", int64(1), "prodCode", "WIDGET", "prodQuantTotal", int64(10))}, nil
	case strings.HasPrefix(stmt.SQL, "SELECT `prodId` FROM `products`"):
		return []*domain.Row{row("prodId", int64(1))}, nil
	case strings.HasPrefix(stmt.SQL, "SELECT `priceId`, `totalPrice` FROM `price`"):
		return []*domain.Row{row("priceId", int64(7), "totalPrice", "108.00")}, nil
	}
	return nil, nil
}

func newTestRepository() (*Repository, *mockTransactor, *mockExecutor) {
	ex := &mockExecutor{QueryFunc: shopRows}
	tx := &mockTransactor{ex: ex}
	return NewDefault(tx, zap.NewNop()), tx, ex
}

func requireValidation(t *testing.T, err error) *apperrors.ValidationError {
	t.Helper()
	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)
	return ve
}

func TestCreate_RejectedBeforeTransaction(t *testing.T) {
	repo, tx, _ := newTestRepository()
	ctx := context.Background()

	cases := []struct {
		name   string
		table  string
		fields domain.Fields
	}{
		{"unknown table", "orders", domain.Fields{"id": 1}},
		{"unknown column", domain.TableProducts, domain.Fields{"colour": "red"}},
		{"derived column", domain.TableProducts, domain.Fields{"prodCode": "X", "prodQuantTotal": 100}},
		{"bad value", domain.TablePrice, domain.Fields{"prodId": "one"}},
		{"no fields", domain.TableProducts, domain.Fields{}},
		{"missing required", domain.TableSoldItem, domain.Fields{"prodId": 1, "prodQuant": 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tc.table, tc.fields)
			requireValidation(t, err)
		})
	}
	assert.Equal(t, 0, tx.calls)
}

func TestCreate_MissingRequiredListsColumns(t *testing.T) {
	repo, tx, _ := newTestRepository()

	_, err := repo.Create(context.Background(), domain.TablePurchase, domain.Fields{
		"prodId": 1, "prodQuant": 5, "itemNetPrice": 10,
	})
	ve := requireValidation(t, err)
	require.Len(t, ve.Details, 2)
	assert.Equal(t, "purchDate", ve.Details[0].Field)
	assert.Equal(t, "invNum", ve.Details[1].Field)
	assert.Equal(t, 0, tx.calls)
}

func TestCreate_PartnerEmailRejectedWithoutWrites(t *testing.T) {
	repo, _, ex := newTestRepository()

	_, err := repo.Create(context.Background(), domain.TablePartners, domain.Fields{
		"partnerName": "Acme", "partnerAddress": "1 Main St", "partnerEmail": "not-an-email", "partnerPhone": "555",
	})
	ve := requireValidation(t, err)
	assert.Equal(t, "partnerEmail", ve.Details[0].Field)
	assert.Empty(t, ex.execs)
}

func TestCreate_PriceDerivesTotal(t *testing.T) {
	repo, tx, ex := newTestRepository()
	ex.ExecFunc = func(context.Context, query.Statement) (sql.Result, error) {
		return fakeResult{lastID: 7, affected: 1}, nil
	}

	res, err := repo.Create(context.Background(), domain.TablePrice, domain.Fields{
		"prodId": "1", "netPrice": "100", "VAT": "20", "discount": "10",
	})
	require.NoError(t, err)
	assert.Equal(t, Result{RowsAffected: 1, LastInsertID: 7}, res)
	assert.Equal(t, []bool{false}, tx.readOnly)

	require.Len(t, ex.execs, 1)
	insert := ex.execs[0]
	assert.Equal(t, "INSERT INTO `price` (`VAT`, `discount`, `netPrice`, `prodId`, `totalPrice`) VALUES (?, ?, ?, ?, ?)", insert.SQL)
	total, ok := insert.Args[4].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, total.Equal(decimal.NewFromInt(108)))
}

func TestCreate_SoldItemAdjustsStockBeforeInsert(t *testing.T) {
	repo, _, ex := newTestRepository()

	_, err := repo.Create(context.Background(), domain.TableSoldItem, domain.Fields{
		"prodId": 1, "prodQuant": 2, "invNum": "INV-9", "sDate": "2024-05-01",
	})
	require.NoError(t, err)

	require.Len(t, ex.execs, 2)
	assert.Equal(t, "UPDATE `products` SET `prodQuantTotal` = ? WHERE `prodId` = ?", ex.execs[0].SQL)
	assert.Equal(t, []any{int64(8), int64(1)}, ex.execs[0].Args)
	assert.True(t, strings.HasPrefix(ex.execs[1].SQL, "INSERT INTO `soldItem`"))

	// Product locks are taken with FOR UPDATE.
	assert.Contains(t, ex.queries[0].SQL, "FOR UPDATE")
}

func TestCreate_InsufficientStockWritesNothing(t *testing.T) {
	repo, _, ex := newTestRepository()

	_, err := repo.Create(context.Background(), domain.TableSoldItem, domain.Fields{
		"prodId": 1, "prodQuant": 11, "invNum": "INV-9", "sDate": "2024-05-01",
	})
	requireValidation(t, err)
	assert.Empty(t, ex.execs)
}

func TestCreate_ConflictIsClassified(t *testing.T) {
	repo, _, ex := newTestRepository()
	ex.ExecFunc = func(context.Context, query.Statement) (sql.Result, error) {
		return nil, mysqlinfra.Classify(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	}

	_, err := repo.Create(context.Background(), domain.TableProducts, domain.Fields{"prodCode": "WIDGET"})
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestCreate_SanitizesStrings(t *testing.T) {
	repo, _, ex := newTestRepository()

	_, err := repo.Create(context.Background(), domain.TableProducts, domain.Fields{"prodCode": "  <WIDGET> "})
	require.NoError(t, err)
	assert.Equal(t, []any{"&lt;WIDGET&gt;"}, ex.execs[0].Args)
}

func TestUpdate_Validation(t *testing.T) {
	repo, tx, _ := newTestRepository()
	ctx := context.Background()

	_, err := repo.Update(ctx, domain.TableProducts, domain.Fields{"prodCode": "X"}, "prodId", nil, 0)
	requireValidation(t, err)

	_, err = repo.Update(ctx, domain.TableProducts, domain.Fields{"prodCode": "X"}, "nope", []any{1}, 0)
	requireValidation(t, err)

	_, err = repo.Update(ctx, domain.TableProducts, domain.Fields{"prodId": 2}, "prodId", []any{1}, 0)
	requireValidation(t, err)

	_, err = repo.Update(ctx, domain.TableProducts, domain.Fields{"prodCode": "X"}, "prodId", []any{"abc"}, 0)
	requireValidation(t, err)

	_, err = repo.Update(ctx, domain.TableProducts, domain.Fields{"prodCode": "X"}, "prodId", []any{1}, -1)
	requireValidation(t, err)

	assert.Equal(t, 0, tx.calls)
}

func TestUpdate_LimitOrdersByPrimaryKey(t *testing.T) {
	repo, _, ex := newTestRepository()

	res, err := repo.Update(context.Background(), domain.TableProducts, domain.Fields{"prodCode": "NEW"}, "prodCode", []any{"OLD"}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Zero(t, res.LastInsertID)

	require.Len(t, ex.execs, 1)
	assert.Equal(t, "UPDATE `products` SET `prodCode` = ? WHERE `prodCode` IN (?) ORDER BY `prodId` ASC LIMIT 1", ex.execs[0].SQL)
	assert.Equal(t, []any{"NEW", "OLD"}, ex.execs[0].Args)
}

func TestDelete_ProductCascadesToPrices(t *testing.T) {
	repo, _, ex := newTestRepository()

	_, err := repo.Delete(context.Background(), domain.TableProducts, "prodId", []any{"1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DELETE FROM `price` WHERE `prodId` IN (?)",
		"DELETE FROM `products` WHERE `prodId` IN (?)",
	}, ex.execSQL())
	assert.Equal(t, []any{int64(1)}, ex.execs[1].Args)
}

func TestRead_BuildsFilter(t *testing.T) {
	repo, tx, ex := newTestRepository()
	ex.QueryFunc = func(context.Context, query.Statement) ([]*domain.Row, error) { return nil, nil }

	rows, err := repo.Read(context.Background(), domain.TablePrice, ReadOptions{
		Fields:     []string{"priceId", "totalPrice"},
		Where:      domain.Fields{"prodId": "1", "VAT": 20},
		Combinator: query.Or,
		OrderBy:    []query.Order{query.Desc("priceId")},
		Limit:      5,
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Equal(t, []bool{true}, tx.readOnly)

	require.Len(t, ex.queries, 1)
	assert.Equal(t, "SELECT `priceId`, `totalPrice` FROM `price` WHERE (`VAT` = ?) OR (`prodId` = ?) ORDER BY `priceId` DESC LIMIT 5", ex.queries[0].SQL)
	assert.Equal(t, []any{int64(20), int64(1)}, ex.queries[0].Args)
}

func TestRead_WithProductCode(t *testing.T) {
	repo, _, ex := newTestRepository()
	ex.QueryFunc = func(_ context.Context, stmt query.Statement) ([]*domain.Row, error) {
		if strings.Contains(stmt.SQL, "FROM `products`") {
			return []*domain.Row{
				row("prodId", int64(1), "prodCode", "WIDGET"),
				row("prodId", int64(2), "prodCode", "GADGET"),
			}, nil
		}
		return []*domain.Row{
			row("priceId", int64(7), "prodId", int64(1)),
			row("priceId", int64(8), "prodId", int64(2)),
			row("priceId", int64(9), "prodId", int64(1)),
		}, nil
	}

	rows, err := repo.Read(context.Background(), domain.TablePrice, ReadOptions{WithProductCode: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "WIDGET", rows[0].Value("productName"))
	assert.Equal(t, "GADGET", rows[1].Value("productName"))
	assert.Equal(t, "WIDGET", rows[2].Value("productName"))
	assert.Equal(t, []string{"priceId", "prodId", "productName"}, rows[0].Columns())

	require.Len(t, ex.queries, 2)
	assert.Equal(t, []any{int64(1), int64(2)}, ex.queries[1].Args)
}

func TestRead_Validation(t *testing.T) {
	repo, tx, _ := newTestRepository()
	ctx := context.Background()

	_, err := repo.Read(ctx, domain.TablePrice, ReadOptions{Fields: []string{"colour"}})
	requireValidation(t, err)

	_, err = repo.Read(ctx, domain.TablePrice, ReadOptions{Raw: &query.Raw{SQL: "1=1 OR netPrice > 0"}})
	requireValidation(t, err)

	_, err = repo.Read(ctx, domain.TablePrice, ReadOptions{
		Where: domain.Fields{"prodId": 1},
		Raw:   &query.Raw{SQL: "`prodId` = ?", Args: []any{1}},
	})
	requireValidation(t, err)

	_, err = repo.Read(ctx, domain.TablePrice, ReadOptions{Where: domain.Fields{"netPrice": "cheap"}})
	requireValidation(t, err)

	assert.Equal(t, 0, tx.calls)
}

func TestRead_RawPredicate(t *testing.T) {
	repo, _, ex := newTestRepository()
	ex.QueryFunc = func(context.Context, query.Statement) ([]*domain.Row, error) { return nil, nil }

	_, err := repo.Read(context.Background(), domain.TablePrice, ReadOptions{
		Raw: &query.Raw{SQL: "`netPrice` > ? AND `VAT` = ?", Args: []any{50, 20}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `price` WHERE (`netPrice` > ? AND `VAT` = ?)", ex.queries[0].SQL)
}
