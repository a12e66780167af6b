package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/fiscal"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CheckoutStatus string

const (
	CheckoutStatusCompleted               CheckoutStatus = "COMPLETED"
	CheckoutStatusOfflineDecisionRequired CheckoutStatus = "OFFLINE_DECISION_REQUIRED"
)

type NewCheckout struct {
	// Type defaults to SALE. Only sales are sent to the fiscal device.
	Type           InvoiceType       `json:"type"`
	CustomerId     int               `json:"customer_id"`
	SupplierId     int               `json:"supplier_id"`
	LocationId     int               `json:"location_id"`
	PaymentMethod  PaymentMethod     `json:"payment_method" validate:"required"`
	BankAccountId  int               `json:"bank_account_id"`
	CashAmount     decimal.Decimal   `json:"cash_amount"`
	CardAmount     decimal.Decimal   `json:"card_amount"`
	TenderedAmount decimal.Decimal   `json:"tendered_amount"`
	Date           time.Time         `json:"date"`
	Items          []NewCheckoutItem `json:"items"`
}

type NewCheckoutItem struct {
	ProductId int             `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	// UnitPrice overrides the catalog price; zero means catalog price.
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CheckoutResult is either a committed invoice or a request to decide about offline saving.
type CheckoutResult struct {
	Status            CheckoutStatus  `json:"status"`
	Invoice           *Invoice        `json:"invoice,omitempty"`
	ChangeAmount      decimal.Decimal `json:"change_amount"`
	PendingCheckoutId string          `json:"pending_checkout_id,omitempty"`
	DeviceError       string          `json:"device_error,omitempty"`
	Cart              *NewCheckout    `json:"cart,omitempty"`
}

var (
	deviceMu       sync.RWMutex
	deviceProvider func() fiscal.Device
)

// SetFiscalDeviceProvider replaces the device used by checkout and shift operations.
// Passing nil restores the HTTP device.
func SetFiscalDeviceProvider(provider func() fiscal.Device) {
	deviceMu.Lock()
	defer deviceMu.Unlock()
	deviceProvider = provider
}

func fiscalDevice() fiscal.Device {
	deviceMu.RLock()
	provider := deviceProvider
	deviceMu.RUnlock()
	if provider != nil {
		return provider()
	}
	return fiscal.NewHTTPDevice(config.FiscalDeviceTimeout(), config.FiscalDevicePort())
}

func (input *NewCheckout) partnerId() int {
	if input.Type.IsCustomerSide() {
		return input.CustomerId
	}
	return input.SupplierId
}

// buildInvoice validates the cart against the catalog and prices it.
func (input *NewCheckout) buildInvoice(ctx context.Context) (*Invoice, map[int]*Product, error) {
	if input.Type == "" {
		input.Type = InvoiceTypeSale
	}
	if input.Type != InvoiceTypeSale && input.Type != InvoiceTypePurchase {
		return nil, nil, utils.NewValidationError("type", "checkout only handles sales and purchases")
	}
	if len(input.Items) == 0 {
		return nil, nil, utils.NewValidationError("items", "cart is empty")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	productIds := make([]int, 0, len(input.Items))
	for i, item := range input.Items {
		if err := utils.ValidateStruct(item); err != nil {
			return nil, nil, err
		}
		if !item.Quantity.IsPositive() {
			return nil, nil, utils.NewValidationError("items", "line %d quantity must be greater than zero", i+1)
		}
		productIds = append(productIds, item.ProductId)
	}
	products, err := GetProductsByIds(ctx, config.GetDB(), productIds)
	if err != nil {
		return nil, nil, err
	}
	canEditPrice, _ := utils.GetCanEditPriceFromContext(ctx)

	inv := &Invoice{
		Type:          input.Type,
		PartnerId:     input.partnerId(),
		Date:          input.Date,
		LocationId:    input.LocationId,
		PaymentMethod: input.PaymentMethod,
		BankAccountId: input.BankAccountId,
		CashAmount:    input.CashAmount,
		CardAmount:    input.CardAmount,
	}
	for i, item := range input.Items {
		p, ok := products[item.ProductId]
		if !ok {
			return nil, nil, utils.NewValidationError("items", "line %d product %d not found", i+1, item.ProductId)
		}
		if !p.Active() {
			return nil, nil, utils.NewValidationError("items", "line %d product %s is inactive", i+1, p.Code)
		}
		catalog := p.SalesPrice
		if input.Type == InvoiceTypePurchase {
			catalog = p.PurchasePrice
		}
		price := catalog
		if !item.UnitPrice.IsZero() && !item.UnitPrice.Equal(catalog) {
			if !canEditPrice {
				return nil, nil, utils.NewValidationError("items", "line %d price change is not permitted", i+1)
			}
			if item.UnitPrice.IsNegative() {
				return nil, nil, utils.NewValidationError("items", "line %d price must not be negative", i+1)
			}
			price = item.UnitPrice
		}
		inv.Items = append(inv.Items, InvoiceItem{
			ProductId:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		})
	}

	if input.Type.IsCustomerSide() && input.CustomerId > 0 {
		customer, err := GetCustomer(ctx, input.CustomerId)
		if err != nil {
			return nil, nil, utils.NewValidationError("customer_id", "customer not found")
		}
		inv.DiscountRate = customer.EffectiveDiscountRate()
	}

	if err := inv.validate(ctx); err != nil {
		return nil, nil, err
	}
	if err := inv.checkAvailableStock(products); err != nil {
		return nil, nil, err
	}
	inv.computeTotals(products)

	if inv.PaymentMethod == PaymentMethodCash {
		if input.TenderedAmount.LessThan(inv.Total) {
			return nil, nil, utils.NewValidationError("tendered_amount", "tendered %s is less than total %s",
				input.TenderedAmount.StringFixed(2), inv.Total.StringFixed(2))
		}
		inv.TenderedAmount = input.TenderedAmount
		inv.ChangeAmount = input.TenderedAmount.Sub(inv.Total)
	}
	return inv, products, nil
}

// checkAvailableStock rejects a sale the stored stock cannot cover, before anything
// reaches the fiscal device. The commit re-checks under the stock locks.
func (inv *Invoice) checkAvailableStock(products map[int]*Product) error {
	if inv.Type != InvoiceTypeSale || config.AllowNegativeStock() {
		return nil
	}
	requested := make(map[int]decimal.Decimal)
	for _, item := range inv.Items {
		requested[item.ProductId] = requested[item.ProductId].Add(item.Quantity)
	}
	for _, item := range inv.Items {
		p := products[item.ProductId]
		available := p.StockAt(inv.LocationId)
		if want := requested[item.ProductId]; want.GreaterThan(available) {
			return utils.NewValidationError("quantity",
				"insufficient stock for %s at location %d: available %s, requested %s",
				p.Code, inv.LocationId, available.String(), want.String())
		}
	}
	return nil
}

// saleRequest is the device payload for a priced sale.
func saleRequest(ctx context.Context, inv *Invoice, products map[int]*Product) fiscal.SaleRequest {
	req := fiscal.SaleRequest{
		ClientName:  inv.PartnerName,
		CashierName: utils.UserNameOrSystem(ctx),
		Currency:    config.FiscalCurrency(),
	}
	switch inv.PaymentMethod {
	case PaymentMethodCash:
		req.CashPayment = inv.Total
	case PaymentMethodCard:
		req.CardPayment = inv.Total
	case PaymentMethodMixed:
		req.CashPayment = inv.CashAmount
		req.CardPayment = inv.CardAmount
	case PaymentMethodCredit:
		req.CreditPayment = inv.Total
	}
	units := make(map[int]string)
	for _, item := range inv.Items {
		p := products[item.ProductId]
		price := item.UnitPrice.Sub(utils.CalculateDiscountAmount(item.UnitPrice, inv.DiscountRate))
		saleItem := fiscal.SaleItem{
			Name:         item.ProductName,
			Quantity:     item.Quantity,
			SalePrice:    utils.RoundMoney(price),
			QuantityType: fiscal.QuantityPiece,
			VatType:      fiscal.VatStandard,
			CodeType:     fiscal.CodeTypePlain,
		}
		if p != nil {
			saleItem.Code = p.Code
			saleItem.PurchasePrice = p.PurchasePrice
			if p.Barcode != "" {
				saleItem.Code = p.Barcode
				saleItem.CodeType = fiscal.CodeTypeBarcode
			}
			if p.VatRate.IsZero() {
				saleItem.VatType = fiscal.VatExempt
			}
			if p.UnitId > 0 {
				name, ok := units[p.UnitId]
				if !ok {
					if unit, err := GetProductUnit(ctx, p.UnitId); err == nil {
						name = unit.Name
					}
					units[p.UnitId] = name
				}
				saleItem.QuantityType = fiscal.ClassifyUnit(name)
			}
		}
		req.Items = append(req.Items, saleItem)
	}
	return req
}

// registerSale sends the sale to the device serving this request.
func registerSale(ctx context.Context, inv *Invoice, products map[int]*Product) (fiscal.DocumentIds, error) {
	register, ok := resolveDeviceRegister(ctx)
	if !ok {
		return fiscal.DocumentIds{}, &fiscal.DeviceError{Operation: fiscal.OperationSale, Err: fiscal.ErrNoDeviceConfigured}
	}
	return fiscalDevice().Sale(ctx, register.fiscalTarget(ctx), saleRequest(ctx, inv, products))
}

// InitiateCheckout prices the cart, registers sales with the fiscal device and commits.
// A device failure commits nothing and asks the cashier whether to save offline.
func InitiateCheckout(ctx context.Context, input *NewCheckout) (*CheckoutResult, error) {
	ctx, span := tracer.Start(ctx, "InitiateCheckout")
	defer span.End()

	inv, products, err := input.buildInvoice(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("checkout.payment_method", string(inv.PaymentMethod)),
		attribute.String("checkout.total", inv.Total.String()),
	)

	if inv.Type == InvoiceTypeSale {
		ids, err := registerSale(ctx, inv, products)
		if err != nil {
			if !errors.Is(err, fiscal.ErrDeviceUnavailable) {
				return nil, err
			}
			span.AddEvent("fiscal device unavailable")
			config.LogError(config.GetLogger(), "Checkout", "InitiateCheckout", "fiscal sale", inv.Total.String(), err)
			cart := *input
			pendingId := pendingCheckouts.put(inv, cart)
			return &CheckoutResult{
				Status:            CheckoutStatusOfflineDecisionRequired,
				ChangeAmount:      inv.ChangeAmount,
				PendingCheckoutId: pendingId,
				DeviceError:       err.Error(),
				Cart:              &cart,
			}, nil
		}
		inv.FiscalDocumentId = ids.DocumentId
		inv.FiscalShortDocumentId = ids.ShortDocumentId
		inv.FiscalStatus = FiscalStatusRegistered
	} else {
		inv.FiscalStatus = FiscalStatusNotApplicable
	}

	committed, err := CommitInvoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{Status: CheckoutStatusCompleted, Invoice: committed, ChangeAmount: committed.ChangeAmount}, nil
}

var errPendingNotFound = utils.NewValidationError("pending_checkout_id", "pending checkout not found or expired")

// ConfirmOfflineCheckout saves a pending sale without fiscal registration.
func ConfirmOfflineCheckout(ctx context.Context, pendingId string) (*CheckoutResult, error) {
	pending, ok := pendingCheckouts.take(pendingId)
	if !ok {
		return nil, errPendingNotFound
	}
	inv := pending.invoice
	inv.FiscalDocumentId = ""
	inv.FiscalShortDocumentId = ""
	inv.FiscalStatus = FiscalStatusOffline
	committed, err := CommitInvoice(ctx, inv)
	if err != nil {
		if !utils.IsValidationError(err) {
			pendingCheckouts.restore(pendingId, pending)
		}
		return nil, err
	}
	return &CheckoutResult{Status: CheckoutStatusCompleted, Invoice: committed, ChangeAmount: committed.ChangeAmount}, nil
}

// CancelPendingCheckout drops a pending sale; nothing was written for it.
func CancelPendingCheckout(pendingId string) error {
	if _, ok := pendingCheckouts.take(pendingId); !ok {
		return errPendingNotFound
	}
	return nil
}

func shiftRegister(ctx context.Context, registerId int) (*CashRegister, error) {
	if registerId == 0 {
		register, ok := resolveDeviceRegister(ctx)
		if !ok {
			return nil, utils.NewValidationError("register_id", "no register has a fiscal device")
		}
		return register, nil
	}
	register, err := GetCashRegister(ctx, registerId)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(register.DeviceIp) == "" {
		return nil, utils.NewValidationError("register_id", "register %s has no fiscal device", register.Name)
	}
	return register, nil
}

// OpenRegisterShift opens the fiscal shift on the register's device (0 = the caller's register).
func OpenRegisterShift(ctx context.Context, registerId int) error {
	register, err := shiftRegister(ctx, registerId)
	if err != nil {
		return err
	}
	return fiscalDevice().OpenShift(ctx, register.fiscalTarget(ctx))
}

func CloseRegisterShift(ctx context.Context, registerId int) error {
	register, err := shiftRegister(ctx, registerId)
	if err != nil {
		return err
	}
	return fiscalDevice().CloseShift(ctx, register.fiscalTarget(ctx))
}

func GetRegisterXReport(ctx context.Context, registerId int) (json.RawMessage, error) {
	register, err := shiftRegister(ctx, registerId)
	if err != nil {
		return nil, err
	}
	return fiscalDevice().XReport(ctx, register.fiscalTarget(ctx))
}
