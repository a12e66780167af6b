package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BankAccount struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Name           string          `gorm:"uniqueIndex;size:100;not null" json:"name"`
	AccountNumber  string          `gorm:"size:50" json:"account_number"`
	Iban           string          `gorm:"size:50" json:"iban"`
	Currency       string          `gorm:"size:3" json:"currency"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"initial_balance"`
	// Balance = InitialBalance + BANK income - BANK expense, filled on read.
	Balance   decimal.Decimal `gorm:"-" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBankAccount struct {
	Name           string          `json:"name" validate:"required,max=100"`
	AccountNumber  string          `json:"account_number" validate:"max=50"`
	Iban           string          `json:"iban" validate:"max=50"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (input *NewBankAccount) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[BankAccount](ctx, "name", input.Name, id)
}

func CreateBankAccount(ctx context.Context, input *NewBankAccount) (*BankAccount, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	account := BankAccount{
		Name:           input.Name,
		AccountNumber:  input.AccountNumber,
		Iban:           input.Iban,
		Currency:       input.Currency,
		InitialBalance: input.InitialBalance,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	account.Balance = account.InitialBalance
	invalidate(account)
	return &account, nil
}

func UpdateBankAccount(ctx context.Context, id int, input *NewBankAccount) (*BankAccount, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[BankAccount](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Updates(map[string]interface{}{
		"name":            input.Name,
		"account_number":  input.AccountNumber,
		"iban":            input.Iban,
		"currency":        input.Currency,
		"initial_balance": input.InitialBalance,
	}).Error; err != nil {
		return nil, err
	}
	invalidate(*account)
	return GetBankAccount(ctx, id)
}

func DeleteBankAccount(ctx context.Context, id int) (*BankAccount, error) {
	account, err := utils.FetchModel[BankAccount](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Transaction](ctx, "bank_account_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "bank account has %d transactions", count)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(account).Error; err != nil {
		return nil, err
	}
	invalidate(*account)
	return account, nil
}

// GetBankAccount always recomputes the running balance; the cached copy only holds static fields.
func GetBankAccount(ctx context.Context, id int) (*BankAccount, error) {
	account, err := GetResource[BankAccount](ctx, id)
	if err != nil {
		return nil, err
	}
	balance, err := bankBalance(ctx, config.GetDB(), id, nil)
	if err != nil {
		return nil, err
	}
	account.Balance = account.InitialBalance.Add(balance)
	return account, nil
}

func ListBankAccounts(ctx context.Context) ([]*BankAccount, error) {
	accounts, err := ListAllResource[BankAccount](ctx, "name")
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	for _, a := range accounts {
		balance, err := bankBalance(ctx, db, a.ID, nil)
		if err != nil {
			return nil, err
		}
		a.Balance = a.InitialBalance.Add(balance)
	}
	return accounts, nil
}

// bankBalance is BANK income minus expense for one bank (or all when bankId is 0), up to endDate when given.
func bankBalance(ctx context.Context, db *gorm.DB, bankId int, endDate *time.Time) (decimal.Decimal, error) {
	filter := TransactionFilter{Source: TransactionSourceBank, BankAccountId: bankId, EndDate: endDate}
	return netLedger(ctx, db, filter)
}
