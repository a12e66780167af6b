package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceNumber   string          `gorm:"uniqueIndex;size:30;not null" json:"invoice_number"`
	Type            InvoiceType     `gorm:"size:20;index;not null" json:"type"`
	PartnerId       int             `gorm:"index;not null;default:0" json:"partner_id"`
	PartnerName     string          `gorm:"size:100" json:"partner_name"`
	Date            time.Time       `gorm:"index;not null" json:"date"`
	Items           []InvoiceItem   `gorm:"foreignKey:InvoiceId" json:"items"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	DiscountRate    decimal.Decimal `gorm:"type:decimal(7,4);default:0" json:"discount_rate"`
	Discount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Tax             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	PaymentMethod   PaymentMethod   `gorm:"size:10;not null" json:"payment_method"`
	BankAccountId   int             `gorm:"index;not null;default:0" json:"bank_account_id"`
	CashAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cash_amount"`
	CardAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"card_amount"`
	TenderedAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tendered_amount"`
	ChangeAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"change_amount"`
	ParentInvoiceId int             `gorm:"index;not null;default:0" json:"parent_invoice_id"`
	LocationId      int             `gorm:"index;not null" json:"location_id"`
	Status          InvoiceStatus   `gorm:"size:10;index;not null" json:"status"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	// Fiscal ids stay empty for sales saved while the device was unreachable.
	FiscalDocumentId      string       `gorm:"size:100" json:"fiscal_document_id"`
	FiscalShortDocumentId string       `gorm:"size:50" json:"fiscal_short_document_id"`
	FiscalStatus          FiscalStatus `gorm:"size:20;not null;default:'NOT_APPLICABLE'" json:"fiscal_status"`
	VoidReason            string       `gorm:"size:255" json:"void_reason,omitempty"`
	VoidedAt              *time.Time   `json:"voided_at,omitempty"`
	UserName              string       `gorm:"size:100" json:"user_name"`
	CreatedAt             time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoiceItem is one line. On a return invoice Quantity is the amount being returned and
// ParentItemId points at the original line.
type InvoiceItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	InvoiceId    int             `gorm:"index;not null" json:"invoice_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	ProductName  string          `gorm:"size:255" json:"product_name"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	ParentItemId int             `gorm:"index;not null;default:0" json:"parent_item_id"`
	// ReturnedToDateQuantity is derived from other return invoices and never stored.
	ReturnedToDateQuantity decimal.Decimal `gorm:"-" json:"returned_to_date_quantity"`
}

// InvoiceNumberSeries keeps the last issued number per prefix.
type InvoiceNumberSeries struct {
	Prefix     string `gorm:"primaryKey;size:10"`
	LastNumber int    `gorm:"not null;default:0"`
}

type NewInvoice struct {
	Type          InvoiceType      `json:"type" validate:"required"`
	PartnerId     int              `json:"partner_id"`
	Date          time.Time        `json:"date"`
	LocationId    int              `json:"location_id"`
	PaymentMethod PaymentMethod    `json:"payment_method" validate:"required"`
	BankAccountId int              `json:"bank_account_id"`
	CashAmount    decimal.Decimal  `json:"cash_amount"`
	CardAmount    decimal.Decimal  `json:"card_amount"`
	DiscountRate  decimal.Decimal  `json:"discount_rate"`
	Items         []NewInvoiceItem `json:"items" validate:"required,min=1,dive"`
}

type NewInvoiceItem struct {
	ProductId int             `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type InvoiceFilter struct {
	Type      InvoiceType   `form:"type"`
	Status    InvoiceStatus `form:"status"`
	PartnerId int           `form:"partner_id"`
	StartDate *time.Time    `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time    `form:"end_date" time_format:"2006-01-02"`
}

func invoiceLockKey(id int) string {
	return fmt.Sprintf("invoice:%d", id)
}

func seriesLockKey(t InvoiceType) string {
	return "series:" + t.NumberPrefix()
}

// nextInvoiceNumber issues the next number for the type's prefix inside the unit of work.
// Callers hold the series lock.
func nextInvoiceNumber(ctx context.Context, tx *gorm.DB, t InvoiceType) (string, error) {
	prefix := t.NumberPrefix()
	var series InvoiceNumberSeries
	result := tx.WithContext(ctx).Where("prefix = ?", prefix).Limit(1).Find(&series)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		series = InvoiceNumberSeries{Prefix: prefix, LastNumber: 1}
		if err := tx.WithContext(ctx).Create(&series).Error; err != nil {
			return "", err
		}
	} else {
		series.LastNumber++
		if err := tx.WithContext(ctx).Model(&InvoiceNumberSeries{}).Where("prefix = ?", prefix).
			Update("last_number", series.LastNumber).Error; err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s-%06d", prefix, series.LastNumber), nil
}

// computeTotals recalculates every line total and the document totals.
// total = subtotal - discount; tax is the VAT share reported on receipts and to the device.
func (inv *Invoice) computeTotals(products map[int]*Product) {
	subtotal := decimal.Zero
	for i := range inv.Items {
		item := &inv.Items[i]
		item.Total = item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(item.Total)
	}
	inv.Subtotal = subtotal
	inv.Discount = utils.CalculateDiscountAmount(subtotal, inv.DiscountRate)
	inv.Total = subtotal.Sub(inv.Discount)

	tax := decimal.Zero
	for _, item := range inv.Items {
		p, ok := products[item.ProductId]
		if !ok {
			continue
		}
		net := item.Total.Sub(utils.CalculateDiscountAmount(item.Total, inv.DiscountRate))
		tax = tax.Add(utils.CalculateTaxAmount(net, p.VatRate, p.VatInclusive()))
	}
	inv.Tax = utils.RoundMoney(tax)
}

// Outstanding is what is still owed on a credit document.
func (inv *Invoice) Outstanding() decimal.Decimal {
	return inv.Total.Sub(inv.PaidAmount)
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()
	invoice, err := utils.FetchModelTx[Invoice](ctx, db, id, "Items")
	if err != nil {
		return nil, err
	}
	if err := fillReturnedToDate(ctx, db, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Items")
	if filter.Type != "" {
		dbCtx = dbCtx.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.PartnerId > 0 {
		dbCtx = dbCtx.Where("partner_id = ?", filter.PartnerId)
	}
	if filter.StartDate != nil {
		dbCtx = dbCtx.Where("date >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		dbCtx = dbCtx.Where("date <= ?", filter.EndDate.UTC())
	}
	var invoices []*Invoice
	if err := dbCtx.Order("date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// returnedToDate sums, per original line, the quantities on non-void returns of parentId.
// excludeInvoiceId lets a return being built ignore itself.
func returnedToDate(ctx context.Context, db *gorm.DB, parentId int, excludeInvoiceId int) (map[int]decimal.Decimal, error) {
	var returns []Invoice
	query := db.WithContext(ctx).Preload("Items").
		Where("parent_invoice_id = ? AND status <> ?", parentId, InvoiceStatusVoid)
	if excludeInvoiceId > 0 {
		query = query.Where("id <> ?", excludeInvoiceId)
	}
	if err := query.Find(&returns).Error; err != nil {
		return nil, err
	}
	result := make(map[int]decimal.Decimal)
	for _, r := range returns {
		for _, item := range r.Items {
			if item.ParentItemId == 0 {
				continue
			}
			result[item.ParentItemId] = result[item.ParentItemId].Add(item.Quantity)
		}
	}
	return result, nil
}

func fillReturnedToDate(ctx context.Context, db *gorm.DB, invoice *Invoice) error {
	if invoice.Type.IsReturn() {
		return nil
	}
	returned, err := returnedToDate(ctx, db, invoice.ID, 0)
	if err != nil {
		return err
	}
	for i := range invoice.Items {
		invoice.Items[i].ReturnedToDateQuantity = returned[invoice.Items[i].ID]
	}
	return nil
}

// CreateInvoice builds and commits a document entered directly (purchases, back-office sales).
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Type.IsReturn() {
		return nil, utils.NewValidationError("type", "returns are created against their original invoice")
	}
	invoice := &Invoice{
		Type:          input.Type,
		PartnerId:     input.PartnerId,
		Date:          input.Date,
		LocationId:    input.LocationId,
		PaymentMethod: input.PaymentMethod,
		BankAccountId: input.BankAccountId,
		CashAmount:    input.CashAmount,
		CardAmount:    input.CardAmount,
		DiscountRate:  input.DiscountRate,
	}
	for _, item := range input.Items {
		invoice.Items = append(invoice.Items, InvoiceItem{
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return CommitInvoice(ctx, invoice)
}
