// Package repository exposes generic create, read, update and delete over
// the catalog tables. Every call runs in one transaction together with the
// side effects of the table's business rules.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webshop/internal/catalog"
	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
	"webshop/internal/infrastructure/mysql"
	"webshop/internal/query"
	"webshop/internal/rules"
	"webshop/internal/sanitize"
)

type Transactor interface {
	WithTx(ctx context.Context, readOnly bool, fn func(ctx context.Context, ex mysql.Executor) error) error
}

type Result struct {
	RowsAffected int64 `json:"rowsAffected"`
	LastInsertID int64 `json:"lastInsertId,omitempty"`
}

type Repository struct {
	tx        Transactor
	catalog   *catalog.Catalog
	sanitizer *sanitize.Sanitizer
	rules     *rules.Registry
	logger    *zap.Logger
}

func New(
	tx Transactor,
	cat *catalog.Catalog,
	sanitizer *sanitize.Sanitizer,
	registry *rules.Registry,
	logger *zap.Logger,
) *Repository {
	return &Repository{
		tx:        tx,
		catalog:   cat,
		sanitizer: sanitizer,
		rules:     registry,
		logger:    logger,
	}
}

// NewDefault wires the webshop catalog, sanitizer and rules.
func NewDefault(tx Transactor, logger *zap.Logger) *Repository {
	san := sanitize.Default()
	return New(tx, catalog.Default(), san, rules.Default(san, logger), logger)
}

// Create inserts one row built from fields.
func (r *Repository) Create(ctx context.Context, table string, fields domain.Fields) (Result, error) {
	log := r.opLogger(rules.Create.String(), table)

	t, clean, err := r.prepare(table, fields)
	if err != nil {
		return r.fail(log, err)
	}
	if len(clean) == 0 {
		return r.fail(log, apperrors.NewValidationError(fmt.Sprintf("no fields to insert into %s", table)))
	}
	if err := t.CheckRequired(clean); err != nil {
		return r.fail(log, err)
	}

	m := &rules.Mutation{Kind: rules.Create, Table: t, Fields: clean}
	res, err := r.mutate(ctx, m, func(m *rules.Mutation) (query.Statement, error) {
		return query.Insert{Table: t.Name, Fields: m.Fields}.Build()
	})
	if err != nil {
		return r.fail(log, err)
	}

	log.Info("row created", zap.Int64("lastInsertId", res.LastInsertID))
	return res, nil
}

// Update sets fields on the rows whose keyColumn is one of keys. A positive
// limit restricts the update to the first rows in primary key order.
func (r *Repository) Update(ctx context.Context, table string, fields domain.Fields, keyColumn string, keys []any, limit int) (Result, error) {
	log := r.opLogger(rules.Update.String(), table)

	t, clean, err := r.prepare(table, fields)
	if err != nil {
		return r.fail(log, err)
	}
	if len(clean) == 0 {
		return r.fail(log, apperrors.NewValidationError(fmt.Sprintf("no fields to update in %s", table)))
	}
	if clean.Has(t.PrimaryKey) {
		return r.fail(log, apperrors.NewValidationError("primary key cannot be updated", apperrors.ValidationDetail{
			Field:   t.PrimaryKey,
			Message: "is immutable",
		}))
	}
	scope, err := r.scope(t, keyColumn, keys, limit)
	if err != nil {
		return r.fail(log, err)
	}

	m := &rules.Mutation{Kind: rules.Update, Table: t, Fields: clean, KeyColumn: keyColumn, Keys: scope, Limit: limit}
	res, err := r.mutate(ctx, m, func(m *rules.Mutation) (query.Statement, error) {
		return query.Update{
			Table:   t.Name,
			Set:     m.Fields,
			Where:   m.Where(),
			OrderBy: m.OrderBy(),
			Limit:   m.Limit,
		}.Build()
	})
	if err != nil {
		return r.fail(log, err)
	}

	log.Info("rows updated", zap.Int64("rowsAffected", res.RowsAffected))
	return res, nil
}

// Delete removes the rows whose keyColumn is one of keys.
func (r *Repository) Delete(ctx context.Context, table string, keyColumn string, keys []any, limit int) (Result, error) {
	log := r.opLogger(rules.Delete.String(), table)

	t, err := r.catalog.Table(table)
	if err != nil {
		return r.fail(log, err)
	}
	scope, err := r.scope(t, keyColumn, keys, limit)
	if err != nil {
		return r.fail(log, err)
	}

	m := &rules.Mutation{Kind: rules.Delete, Table: t, Fields: domain.Fields{}, KeyColumn: keyColumn, Keys: scope, Limit: limit}
	res, err := r.mutate(ctx, m, func(m *rules.Mutation) (query.Statement, error) {
		return query.Delete{
			Table:   t.Name,
			Where:   m.Where(),
			OrderBy: m.OrderBy(),
			Limit:   m.Limit,
		}.Build()
	})
	if err != nil {
		return r.fail(log, err)
	}

	log.Info("rows deleted", zap.Int64("rowsAffected", res.RowsAffected))
	return res, nil
}

// mutate runs the table hook, its Before statements, the main statement and
// the After statements in one transaction.
func (r *Repository) mutate(ctx context.Context, m *rules.Mutation, main func(*rules.Mutation) (query.Statement, error)) (Result, error) {
	var res Result
	err := r.tx.WithTx(ctx, false, func(ctx context.Context, ex mysql.Executor) error {
		plan, err := r.rules.Run(ctx, querier{ex: ex}, m)
		if err != nil {
			return err
		}

		stmt, err := main(m)
		if err != nil {
			return builderError(err)
		}

		if err := execAll(ctx, ex, plan.Before); err != nil {
			return err
		}
		out, err := ex.Exec(ctx, stmt)
		if err != nil {
			return err
		}
		if res, err = resultOf(out, m.Kind); err != nil {
			return err
		}
		return execAll(ctx, ex, plan.After)
	})
	return res, err
}

// prepare resolves the table and turns raw caller fields into sanitized,
// type-normalized values. Derived columns are refused.
func (r *Repository) prepare(table string, fields domain.Fields) (*catalog.Table, domain.Fields, error) {
	t, err := r.catalog.Table(table)
	if err != nil {
		return nil, nil, err
	}
	if derived := t.DerivedIn(fields); len(derived) > 0 {
		details := make([]apperrors.ValidationDetail, len(derived))
		for i, col := range derived {
			details[i] = apperrors.ValidationDetail{Field: col, Message: "is derived and cannot be set"}
		}
		return nil, nil, apperrors.NewValidationError("derived columns cannot be set", details...)
	}

	clean, err := t.Normalize(r.sanitizer.Fields(fields))
	if err != nil {
		return nil, nil, err
	}
	return t, clean, nil
}

// scope validates the key column and normalizes the key values.
func (r *Repository) scope(t *catalog.Table, keyColumn string, keys []any, limit int) ([]any, error) {
	if err := t.CheckColumns(keyColumn); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, apperrors.NewValidationError("at least one key value is required", apperrors.ValidationDetail{
			Field:   keyColumn,
			Message: "no key values",
		})
	}
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative", apperrors.ValidationDetail{
			Field:   "limit",
			Message: fmt.Sprintf("got %d", limit),
		})
	}

	out := make([]any, len(keys))
	for i, k := range keys {
		v, err := t.NormalizeValue(keyColumn, r.sanitizer.Value(k))
		if err != nil {
			return nil, apperrors.NewValidationError("invalid key value", apperrors.ValidationDetail{
				Field:   keyColumn,
				Message: err.Error(),
			})
		}
		out[i] = v
	}
	return out, nil
}

func (r *Repository) opLogger(op, table string) *zap.Logger {
	return r.logger.With(
		zap.String("opId", uuid.NewString()),
		zap.String("op", op),
		zap.String("table", table),
	)
}

func (r *Repository) fail(log *zap.Logger, err error) (Result, error) {
	logFailure(log, err)
	return Result{}, err
}

func logFailure(log *zap.Logger, err error) {
	if isClientError(err) {
		log.Warn("operation rejected", zap.Error(err))
		return
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		log.Warn("operation conflicted", zap.Error(err))
		return
	}
	log.Error("operation failed", zap.Error(err))
}

func isClientError(err error) bool {
	if _, ok := apperrors.IsValidationError(err); ok {
		return true
	}
	_, ok := apperrors.IsNotFoundError(err)
	return ok
}

func execAll(ctx context.Context, ex mysql.Executor, stmts []query.Statement) error {
	for _, s := range stmts {
		if _, err := ex.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func resultOf(out sql.Result, kind rules.Kind) (Result, error) {
	var res Result
	var err error
	if res.RowsAffected, err = out.RowsAffected(); err != nil {
		return Result{}, mysql.Classify(err)
	}
	if kind == rules.Create {
		if res.LastInsertID, err = out.LastInsertId(); err != nil {
			return Result{}, mysql.Classify(err)
		}
	}
	return res, nil
}

func builderError(err error) error {
	return apperrors.NewValidationError("invalid statement", apperrors.ValidationDetail{
		Field:   "query",
		Message: err.Error(),
	})
}

// querier gives rules read access to the running transaction.
type querier struct {
	ex mysql.Executor
}

func (q querier) Select(ctx context.Context, s query.Select) ([]*domain.Row, error) {
	stmt, err := s.Build()
	if err != nil {
		return nil, fmt.Errorf("building rule query: %w", err)
	}
	return q.ex.Query(ctx, stmt)
}
