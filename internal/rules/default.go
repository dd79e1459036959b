package rules

import (
	"go.uber.org/zap"

	"webshop/internal/domain"
	"webshop/internal/sanitize"
)

type engine struct {
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
}

// Default registers the webshop rules.
func Default(sanitizer *sanitize.Sanitizer, logger *zap.Logger) *Registry {
	e := &engine{sanitizer: sanitizer, logger: logger}

	r := NewRegistry()
	r.Register(domain.TableProducts, Hooks{
		BeforeDelete: e.productBeforeDelete,
	})
	r.Register(domain.TablePrice, Hooks{
		BeforeCreate: e.priceBeforeCreate,
		BeforeUpdate: e.priceBeforeUpdate,
	})
	r.Register(domain.TablePurchase, Hooks{
		BeforeCreate: e.purchaseBeforeCreate,
		BeforeUpdate: e.purchaseBeforeUpdate,
		BeforeDelete: e.purchaseBeforeDelete,
	})
	r.Register(domain.TableSoldItem, Hooks{
		BeforeCreate: e.soldItemBeforeCreate,
		BeforeUpdate: e.soldItemBeforeUpdate,
		BeforeDelete: e.soldItemBeforeDelete,
	})
	r.Register(domain.TableWarranty, Hooks{
		BeforeCreate: e.warrantyBeforeCreate,
		BeforeUpdate: e.warrantyBeforeUpdate,
	})
	r.Register(domain.TablePartners, Hooks{
		BeforeCreate: e.partnerBeforeCreate,
		BeforeUpdate: e.partnerBeforeUpdate,
	})
	return r
}
