package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is one ledger row: money in or out of the cash register or a bank.
// Amount is never negative; the direction is carried by Type.
type Transaction struct {
	ID                int               `gorm:"primary_key" json:"id"`
	Date              time.Time         `gorm:"index;not null" json:"date"`
	Type              TransactionType   `gorm:"size:10;index;not null" json:"type"`
	Category          string            `gorm:"size:100" json:"category"`
	ExpenseCategoryId int               `gorm:"index;not null;default:0" json:"expense_category_id"`
	InvoiceId         int               `gorm:"index;not null;default:0" json:"invoice_id"`
	PartnerId         int               `gorm:"index;not null;default:0" json:"partner_id"`
	Amount            decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description       string            `gorm:"size:255" json:"description"`
	Source            TransactionSource `gorm:"size:20;index;not null" json:"source"`
	BankAccountId     int               `gorm:"index;not null;default:0" json:"bank_account_id"`
	UserName          string            `gorm:"size:100" json:"user_name"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

type NewTransaction struct {
	Date              time.Time         `json:"date"`
	Type              TransactionType   `json:"type" validate:"required"`
	Category          string            `json:"category" validate:"max=100"`
	ExpenseCategoryId int               `json:"expense_category_id"`
	PartnerId         int               `json:"partner_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description" validate:"max=255"`
	Source            TransactionSource `json:"source" validate:"required"`
	BankAccountId     int               `json:"bank_account_id"`
}

type TransactionFilter struct {
	Type              TransactionType   `form:"type"`
	Source            TransactionSource `form:"source"`
	BankAccountId     int               `form:"bank_account_id"`
	ExpenseCategoryId int               `form:"expense_category_id"`
	PartnerId         int               `form:"partner_id"`
	InvoiceId         int               `form:"invoice_id"`
	StartDate         *time.Time        `form:"start_date" time_format:"2006-01-02"`
	EndDate           *time.Time        `form:"end_date" time_format:"2006-01-02"`
}

func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	if t.Amount.IsNegative() {
		return utils.NewValidationError("amount", "ledger amount must not be negative")
	}
	return nil
}

func (input *NewTransaction) validate(ctx context.Context) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Type.IsValid() {
		return utils.NewValidationError("type", "must be INCOME or EXPENSE")
	}
	if !input.Source.IsValid() {
		return utils.NewValidationError("source", "must be CASH_REGISTER or BANK")
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "must be greater than zero")
	}
	if input.Source == TransactionSourceBank {
		if input.BankAccountId == 0 {
			return utils.NewValidationError("bank_account_id", "bank account is required for BANK transactions")
		}
		if err := utils.ValidateResourceId[BankAccount](ctx, input.BankAccountId); err != nil {
			return utils.NewValidationError("bank_account_id", "bank account not found")
		}
	}
	if input.ExpenseCategoryId > 0 {
		if input.Type != TransactionTypeExpense {
			return utils.NewValidationError("expense_category_id", "only expenses carry an expense category")
		}
		if err := utils.ValidateResourceId[ExpenseCategory](ctx, input.ExpenseCategoryId); err != nil {
			return utils.NewValidationError("expense_category_id", "expense category not found")
		}
	}
	return nil
}

// CreateTransaction records a manual income or expense (rent, salaries, owner deposits).
func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	bankId := 0
	if input.Source == TransactionSourceBank {
		bankId = input.BankAccountId
	}
	transaction := Transaction{
		Date:              date.UTC(),
		Type:              input.Type,
		Category:          input.Category,
		ExpenseCategoryId: input.ExpenseCategoryId,
		PartnerId:         input.PartnerId,
		Amount:            input.Amount,
		Description:       input.Description,
		Source:            input.Source,
		BankAccountId:     bankId,
		UserName:          utils.UserNameOrSystem(ctx),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

// DeleteTransaction is admin only. Rows produced by an invoice can only be undone by voiding it.
func DeleteTransaction(ctx context.Context, id int) (*Transaction, error) {
	if !utils.IsAdmin(ctx) {
		return nil, utils.ErrForbidden
	}
	transaction, err := utils.FetchModel[Transaction](ctx, id)
	if err != nil {
		return nil, err
	}
	if transaction.InvoiceId != 0 {
		return nil, utils.NewValidationError("id", "transaction belongs to invoice %d; void the invoice instead", transaction.InvoiceId)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(transaction).Error; err != nil {
		return nil, err
	}
	return transaction, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	return utils.FetchModel[Transaction](ctx, id)
}

func ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error) {
	var transactions []*Transaction
	err := filter.apply(config.GetDB().WithContext(ctx)).
		Order("date DESC, id DESC").Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (f TransactionFilter) apply(dbCtx *gorm.DB) *gorm.DB {
	if f.Type != "" {
		dbCtx = dbCtx.Where("type = ?", f.Type)
	}
	if f.Source != "" {
		dbCtx = dbCtx.Where("source = ?", f.Source)
	}
	if f.BankAccountId > 0 {
		dbCtx = dbCtx.Where("bank_account_id = ?", f.BankAccountId)
	}
	if f.ExpenseCategoryId > 0 {
		dbCtx = dbCtx.Where("expense_category_id = ?", f.ExpenseCategoryId)
	}
	if f.PartnerId > 0 {
		dbCtx = dbCtx.Where("partner_id = ?", f.PartnerId)
	}
	if f.InvoiceId > 0 {
		dbCtx = dbCtx.Where("invoice_id = ?", f.InvoiceId)
	}
	if f.StartDate != nil {
		dbCtx = dbCtx.Where("date >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		dbCtx = dbCtx.Where("date <= ?", f.EndDate.UTC())
	}
	return dbCtx
}

// sumLedger adds up amounts matching the filter. Summation happens in Go so decimal
// precision does not depend on the driver's SUM type.
func sumLedger(ctx context.Context, db *gorm.DB, filter TransactionFilter) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := filter.apply(db.WithContext(ctx).Model(&Transaction{})).Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total, nil
}

// netLedger is income minus expense for the filter (its Type is ignored).
func netLedger(ctx context.Context, db *gorm.DB, filter TransactionFilter) (decimal.Decimal, error) {
	filter.Type = TransactionTypeIncome
	income, err := sumLedger(ctx, db, filter)
	if err != nil {
		return decimal.Zero, err
	}
	filter.Type = TransactionTypeExpense
	expense, err := sumLedger(ctx, db, filter)
	if err != nil {
		return decimal.Zero, err
	}
	return income.Sub(expense), nil
}
