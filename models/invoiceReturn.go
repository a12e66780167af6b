package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewInvoiceReturn struct {
	ParentInvoiceId int             `json:"parent_invoice_id" validate:"required"`
	Date            time.Time       `json:"date"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	BankAccountId   int             `json:"bank_account_id"`
	Items           []NewReturnItem `json:"items" validate:"required,min=1,dive"`
}

// NewReturnItem asks to return ReturnQuantity of one original line.
type NewReturnItem struct {
	ParentItemId   int             `json:"parent_item_id" validate:"required"`
	ReturnQuantity decimal.Decimal `json:"return_quantity"`
}

// CreateReturnInvoice builds the complementary document for part or all of an invoice and
// commits it. The parent's discount rate and location carry over.
func CreateReturnInvoice(ctx context.Context, input *NewInvoiceReturn) (*Invoice, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	parent, err := GetInvoice(ctx, input.ParentInvoiceId)
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, utils.NewValidationError("parent_invoice_id", "original invoice %d not found", input.ParentInvoiceId)
		}
		return nil, err
	}
	returnType, ok := parent.Type.ReturnType()
	if !ok {
		return nil, utils.NewValidationError("parent_invoice_id", "%s invoices cannot be returned", parent.Type)
	}
	if parent.Status == InvoiceStatusVoid {
		return nil, utils.NewValidationError("parent_invoice_id", "original invoice is void")
	}

	method := input.PaymentMethod
	if method == "" {
		method = parent.PaymentMethod
	}
	if method == PaymentMethodMixed {
		// a refund is paid out one way
		method = PaymentMethodCash
	}
	bankId := input.BankAccountId
	if bankId == 0 && method == PaymentMethodCard {
		bankId = parent.BankAccountId
	}

	lines := make(map[int]InvoiceItem, len(parent.Items))
	for _, item := range parent.Items {
		lines[item.ID] = item
	}
	ret := &Invoice{
		Type:            returnType,
		PartnerId:       parent.PartnerId,
		PartnerName:     parent.PartnerName,
		Date:            input.Date,
		LocationId:      parent.LocationId,
		DiscountRate:    parent.DiscountRate,
		PaymentMethod:   method,
		BankAccountId:   bankId,
		ParentInvoiceId: parent.ID,
	}
	for i, req := range input.Items {
		line, ok := lines[req.ParentItemId]
		if !ok {
			return nil, utils.NewValidationError("items", "line %d is not part of invoice %s", i+1, parent.InvoiceNumber)
		}
		if !req.ReturnQuantity.IsPositive() {
			return nil, utils.NewValidationError("items", "line %d return quantity must be greater than zero", i+1)
		}
		ret.Items = append(ret.Items, InvoiceItem{
			ProductId:    line.ProductId,
			ProductName:  line.ProductName,
			Quantity:     req.ReturnQuantity,
			UnitPrice:    line.UnitPrice,
			ParentItemId: line.ID,
		})
	}
	return CommitInvoice(ctx, ret)
}

// checkReturnQuantities enforces, per original line, that this return plus every earlier
// non-void return never exceeds what was originally sold or bought.
func checkReturnQuantities(ctx context.Context, tx *gorm.DB, ret *Invoice) error {
	var parent Invoice
	if err := tx.WithContext(ctx).Preload("Items").First(&parent, ret.ParentInvoiceId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewValidationError("parent_invoice_id", "original invoice %d not found", ret.ParentInvoiceId)
		}
		return err
	}
	if expected, ok := parent.Type.ReturnType(); !ok || expected != ret.Type {
		return utils.NewValidationError("type", "%s cannot return a %s invoice", ret.Type, parent.Type)
	}
	if parent.Status == InvoiceStatusVoid {
		return utils.NewValidationError("parent_invoice_id", "original invoice is void")
	}
	returned, err := returnedToDate(ctx, tx, parent.ID, ret.ID)
	if err != nil {
		return err
	}
	original := make(map[int]InvoiceItem, len(parent.Items))
	for _, item := range parent.Items {
		original[item.ID] = item
	}
	requested := make(map[int]decimal.Decimal)
	for _, item := range ret.Items {
		line, ok := original[item.ParentItemId]
		if !ok {
			return utils.NewValidationError("items", "line %d is not part of invoice %s", item.ParentItemId, parent.InvoiceNumber)
		}
		if line.ProductId != item.ProductId {
			return utils.NewValidationError("items", "return line product does not match the original line")
		}
		requested[item.ParentItemId] = requested[item.ParentItemId].Add(item.Quantity)
	}
	for lineId, qty := range requested {
		line := original[lineId]
		available := line.Quantity.Sub(returned[lineId])
		if qty.GreaterThan(available) {
			return utils.NewValidationError("items",
				"cannot return %s of %s: %s sold, %s already returned",
				qty.String(), line.ProductName, line.Quantity.String(), returned[lineId].String())
		}
	}
	return nil
}
