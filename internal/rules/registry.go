// Package rules holds the per-table business rules that run inside the
// mutation's transaction: derived totals, inventory bookkeeping, warranty
// dates and cascades.
package rules

import (
	"context"
	"fmt"

	"webshop/internal/catalog"
	"webshop/internal/domain"
	"webshop/internal/query"
)

type Kind int

const (
	Create Kind = iota
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Querier reads rows inside the transaction of the running mutation.
type Querier interface {
	Select(ctx context.Context, q query.Select) ([]*domain.Row, error)
}

// Mutation is the write a hook inspects. Hooks may change Fields in place;
// the repository renders the main statement from Fields after the hook
// returns.
type Mutation struct {
	Kind   Kind
	Table  *catalog.Table
	Fields domain.Fields

	// KeyColumn and Keys scope updates and deletes.
	KeyColumn string
	Keys      []any
	Limit     int
}

// Where selects the rows an update or delete touches.
func (m *Mutation) Where() query.Where {
	return query.WhereEq(query.In(m.KeyColumn, m.Keys...))
}

// OrderBy pins the rows a limited mutation touches to primary key order.
func (m *Mutation) OrderBy() []query.Order {
	if m.Limit <= 0 {
		return nil
	}
	return []query.Order{query.Asc(m.Table.PrimaryKey)}
}

// Targets locks and returns the rows the mutation will touch.
func (m *Mutation) Targets(ctx context.Context, q Querier, fields ...string) ([]*domain.Row, error) {
	return q.Select(ctx, query.Select{
		Table:     m.Table.Name,
		Fields:    fields,
		Where:     m.Where(),
		OrderBy:   m.OrderBy(),
		Limit:     m.Limit,
		ForUpdate: true,
	})
}

// Plan lists side-effect statements around the main statement.
type Plan struct {
	Before []query.Statement
	After  []query.Statement
}

func (p Plan) Empty() bool {
	return len(p.Before) == 0 && len(p.After) == 0
}

// Hook validates and enriches a mutation and returns its side effects.
type Hook func(ctx context.Context, q Querier, m *Mutation) (Plan, error)

type Hooks struct {
	BeforeCreate Hook
	BeforeUpdate Hook
	BeforeDelete Hook
}

func (h Hooks) For(k Kind) Hook {
	switch k {
	case Create:
		return h.BeforeCreate
	case Update:
		return h.BeforeUpdate
	case Delete:
		return h.BeforeDelete
	}
	return nil
}

// Registry maps table names to hooks. Tables without hooks pass through.
type Registry struct {
	hooks map[string]Hooks
}

func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hooks)}
}

func (r *Registry) Register(table string, h Hooks) {
	r.hooks[table] = h
}

func (r *Registry) Lookup(table string) Hooks {
	return r.hooks[table]
}

// Run executes the hook registered for the mutation's table and kind.
func (r *Registry) Run(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	hook := r.Lookup(m.Table.Name).For(m.Kind)
	if hook == nil {
		return Plan{}, nil
	}
	return hook(ctx, q, m)
}
