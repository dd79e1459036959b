package rules

import (
	"context"

	"webshop/internal/domain"
)

func (e *engine) partnerBeforeCreate(_ context.Context, _ Querier, m *Mutation) (Plan, error) {
	email, err := e.sanitizer.Email(domain.ColPartnerEmail, m.Fields[domain.ColPartnerEmail])
	if err != nil {
		return Plan{}, err
	}
	m.Fields[domain.ColPartnerEmail] = email
	return Plan{}, nil
}

func (e *engine) partnerBeforeUpdate(ctx context.Context, q Querier, m *Mutation) (Plan, error) {
	if !m.Fields.Has(domain.ColPartnerEmail) {
		return Plan{}, nil
	}
	return e.partnerBeforeCreate(ctx, q, m)
}
