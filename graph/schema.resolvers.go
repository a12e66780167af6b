package graph

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/models/reports"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"go.opentelemetry.io/otel/trace"
)

type fieldArgs = map[string]interface{}

// rootFields binds Query and Mutation fields to the model operations.
func (r *Resolver) rootFields() map[string]rootResolver {
	return map[string]rootResolver{
		// Query

		"Query.products": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			filter, err := decodeFilter[models.ProductFilter]("ProductFilter", a["filter"])
			if err != nil {
				return nil, err
			}
			return models.ListProducts(ctx, *filter)
		},
		"Query.product": byId(models.GetProduct),
		"Query.productByCode": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			return orNil(models.GetProductByCode(ctx, stringArg(a, "code")))
		},
		"Query.productCategories": list(models.ListProductCategories),
		"Query.productUnits":      list(models.ListProductUnits),
		"Query.customers":         list(models.ListCustomers),
		"Query.suppliers":         list(models.ListSuppliers),
		"Query.locations":         list(models.ListLocations),
		"Query.cashRegisters":     list(models.ListCashRegisters),
		"Query.bankAccounts":      list(models.ListBankAccounts),
		"Query.invoices": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			filter, err := decodeFilter[models.InvoiceFilter]("InvoiceFilter", a["filter"])
			if err != nil {
				return nil, err
			}
			return models.ListInvoices(ctx, *filter)
		},
		"Query.invoice": byId(models.GetInvoice),
		"Query.transactions": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			filter, err := decodeFilter[models.TransactionFilter]("TransactionFilter", a["filter"])
			if err != nil {
				return nil, err
			}
			return models.ListTransactions(ctx, *filter)
		},
		"Query.transfers": list(models.ListTransfers),
		"Query.transfer":  byId(models.GetTransfer),
		"Query.accounts":  list(models.ListAccounts),
		"Query.accountBalance": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			id, err := intArg(a, "id")
			if err != nil {
				return nil, err
			}
			start, end, err := period(a)
			if err != nil {
				return nil, err
			}
			return models.ComputeBalance(ctx, id, start, end)
		},
		"Query.balanceSheet": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			start, end, err := period(a)
			if err != nil {
				return nil, err
			}
			return reports.GetBalanceSheetReport(ctx, start, end)
		},
		"Query.stockLevels": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			locationId, err := intArg(a, "locationId")
			if err != nil {
				return nil, err
			}
			return models.GetStockLevels(ctx, locationId)
		},
		"Query.xReport": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			registerId, err := intArg(a, "registerId")
			if err != nil {
				return nil, err
			}
			return models.GetRegisterXReport(ctx, registerId)
		},

		// Mutation

		"Mutation.checkout": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			input, err := decodeInput[models.NewCheckout]("NewCheckout", a["input"])
			if err != nil {
				return nil, err
			}
			if r.Tracer != nil {
				var span trace.Span
				ctx, span = r.Tracer.Start(ctx, "graph.checkout")
				defer span.End()
			}
			return models.InitiateCheckout(ctx, input)
		},
		"Mutation.confirmOfflineCheckout": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			return models.ConfirmOfflineCheckout(ctx, stringArg(a, "pendingCheckoutId"))
		},
		"Mutation.cancelPendingCheckout": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			if err := models.CancelPendingCheckout(stringArg(a, "pendingCheckoutId")); err != nil {
				return nil, err
			}
			return true, nil
		},
		"Mutation.createInvoice":       create("NewInvoice", models.CreateInvoice),
		"Mutation.createReturnInvoice": create("NewInvoiceReturn", models.CreateReturnInvoice),
		"Mutation.settleInvoicePayment": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			invoiceId, err := intArg(a, "invoiceId")
			if err != nil {
				return nil, err
			}
			input, err := decodeInput[models.NewInvoicePayment]("NewInvoicePayment", a["input"])
			if err != nil {
				return nil, err
			}
			return models.SettleInvoicePayment(ctx, invoiceId, input)
		},
		"Mutation.voidInvoice": func(ctx context.Context, a fieldArgs) (interface{}, error) {
			id, err := intArg(a, "id")
			if err != nil {
				return nil, err
			}
			return models.VoidInvoice(ctx, id, stringArg(a, "reason"))
		},
		"Mutation.deleteInvoice":      withId(models.DeleteInvoice),
		"Mutation.createTransaction":  create("NewTransaction", models.CreateTransaction),
		"Mutation.deleteTransaction":  withId(models.DeleteTransaction),
		"Mutation.createTransfer":     create("NewTransfer", models.CreateTransfer),
		"Mutation.openRegisterShift":  shift(models.OpenRegisterShift),
		"Mutation.closeRegisterShift": shift(models.CloseRegisterShift),
	}
}

func list[T any](fn func(ctx context.Context) ([]*T, error)) rootResolver {
	return func(ctx context.Context, a fieldArgs) (interface{}, error) {
		return fn(ctx)
	}
}

// byId serves single lookups; a missing row on a nullable field is null, not an error.
func byId[T any](fn func(ctx context.Context, id int) (*T, error)) rootResolver {
	return func(ctx context.Context, a fieldArgs) (interface{}, error) {
		id, err := intArg(a, "id")
		if err != nil {
			return nil, err
		}
		return orNil(fn(ctx, id))
	}
}

func withId[T any](fn func(ctx context.Context, id int) (*T, error)) rootResolver {
	return func(ctx context.Context, a fieldArgs) (interface{}, error) {
		id, err := intArg(a, "id")
		if err != nil {
			return nil, err
		}
		return fn(ctx, id)
	}
}

func orNil[T any](obj *T, err error) (interface{}, error) {
	if utils.IsRecordNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func create[I any, T any](inputType string, fn func(ctx context.Context, input *I) (*T, error)) rootResolver {
	return func(ctx context.Context, a fieldArgs) (interface{}, error) {
		input, err := decodeInput[I](inputType, a["input"])
		if err != nil {
			return nil, err
		}
		return fn(ctx, input)
	}
}

// shift runs a device shift command; registerId 0 or absent means the caller's register.
func shift(fn func(ctx context.Context, registerId int) error) rootResolver {
	return func(ctx context.Context, a fieldArgs) (interface{}, error) {
		registerId, err := intArg(a, "registerId")
		if err != nil {
			return nil, err
		}
		if err := fn(ctx, registerId); err != nil {
			return nil, err
		}
		return true, nil
	}
}

// period reads startDate/endDate. The end defaults to now and a plain end date covers the whole day.
func period(a fieldArgs) (time.Time, time.Time, error) {
	start, err := timeArg(a, "startDate", time.Time{}, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := timeArg(a, "endDate", time.Now().UTC(), true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
