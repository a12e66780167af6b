package graph

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
)

// objectFields resolves the relations the models only carry as ids. All lookups go
// through the request's dataloaders, so a list of invoices costs one query per relation.
func (r *Resolver) objectFields() map[string]fieldResolver {
	return map[string]fieldResolver{
		"Product.unit": on(func(ctx context.Context, p *models.Product) (interface{}, error) {
			if p.UnitId == 0 {
				return nil, nil
			}
			return middlewares.GetProductUnit(ctx, p.UnitId)
		}),
		"Product.isVatInclusive": on(func(ctx context.Context, p *models.Product) (interface{}, error) {
			return p.VatInclusive(), nil
		}),
		"Product.isActive": on(func(ctx context.Context, p *models.Product) (interface{}, error) {
			return p.Active(), nil
		}),
		"ProductStock.location": on(func(ctx context.Context, s *models.ProductStock) (interface{}, error) {
			return location(ctx, s.LocationId)
		}),
		"CashRegister.location": on(func(ctx context.Context, c *models.CashRegister) (interface{}, error) {
			return location(ctx, c.LocationId)
		}),
		"Invoice.location": on(func(ctx context.Context, inv *models.Invoice) (interface{}, error) {
			return location(ctx, inv.LocationId)
		}),
		"Invoice.customer": on(func(ctx context.Context, inv *models.Invoice) (interface{}, error) {
			if !inv.Type.IsCustomerSide() || inv.PartnerId == 0 {
				return nil, nil
			}
			return middlewares.GetCustomer(ctx, inv.PartnerId)
		}),
		"Invoice.supplier": on(func(ctx context.Context, inv *models.Invoice) (interface{}, error) {
			if inv.Type.IsCustomerSide() || inv.PartnerId == 0 {
				return nil, nil
			}
			return middlewares.GetSupplier(ctx, inv.PartnerId)
		}),
		"InvoiceItem.product": on(func(ctx context.Context, item *models.InvoiceItem) (interface{}, error) {
			return product(ctx, item.ProductId)
		}),
		"TransferItem.product": on(func(ctx context.Context, item *models.TransferItem) (interface{}, error) {
			return product(ctx, item.ProductId)
		}),
		"Transfer.sourceLocation": on(func(ctx context.Context, t *models.TransferDocument) (interface{}, error) {
			return location(ctx, t.SourceLocationId)
		}),
		"Transfer.targetLocation": on(func(ctx context.Context, t *models.TransferDocument) (interface{}, error) {
			return location(ctx, t.TargetLocationId)
		}),
	}
}

// on adapts a typed resolver; the executor always hands over a pointer to the object.
func on[T any](fn func(ctx context.Context, obj *T) (interface{}, error)) fieldResolver {
	return func(ctx context.Context, obj interface{}, args map[string]interface{}) (interface{}, error) {
		return fn(ctx, obj.(*T))
	}
}

func location(ctx context.Context, id int) (interface{}, error) {
	if id == 0 {
		return nil, nil
	}
	return middlewares.GetLocation(ctx, id)
}

func product(ctx context.Context, id int) (interface{}, error) {
	if id == 0 {
		return nil, nil
	}
	return middlewares.GetProduct(ctx, id)
}
