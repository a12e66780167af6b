package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Phone        string          `gorm:"size:20" json:"phone"`
	Email        string          `gorm:"size:100" json:"email"`
	DiscountRate decimal.Decimal `gorm:"type:decimal(7,4);default:0" json:"discount_rate"`
	// IsGeneral marks the walk-in customer; it never gets a discount.
	IsGeneral bool `gorm:"not null;default:false" json:"is_general"`
	// Balance is the live receivable, moved by credit sales, returns and settlements.
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name           string          `json:"name" validate:"required,max=100"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
	IsGeneral      bool            `json:"is_general"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (input *NewCustomer) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := normalizeContact(&input.Phone, &input.Email); err != nil {
		return err
	}
	if input.DiscountRate.IsNegative() || input.DiscountRate.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError("discount_rate", "must be between 0 and 100")
	}
	if input.IsGeneral {
		count, err := utils.ResourceCountWhere[Customer](ctx, "is_general = ? AND id <> ?", true, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewValidationError("is_general", "a general customer already exists")
		}
	}
	return nil
}

// EffectiveDiscountRate is 0 for the walk-in customer.
func (c *Customer) EffectiveDiscountRate() decimal.Decimal {
	if c == nil || c.IsGeneral {
		return decimal.Zero
	}
	return c.DiscountRate
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	customer := Customer{
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        input.Email,
		DiscountRate: input.DiscountRate,
		IsGeneral:    input.IsGeneral,
		Balance:      input.OpeningBalance,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	invalidate(customer)
	return &customer, nil
}

// UpdateCustomer never touches the balance; only documents and settlements move it.
func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(customer).Updates(map[string]interface{}{
		"name":          input.Name,
		"phone":         input.Phone,
		"email":         input.Email,
		"discount_rate": input.DiscountRate,
		"is_general":    input.IsGeneral,
	}).Error; err != nil {
		return nil, err
	}
	invalidate(*customer)
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Invoice](ctx, "partner_id = ? AND type IN ?", id,
		[]InvoiceType{InvoiceTypeSale, InvoiceTypeSaleReturn})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "customer has %d invoices", count)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	invalidate(*customer)
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return GetResource[Customer](ctx, id)
}

func ListCustomers(ctx context.Context) ([]*Customer, error) {
	return ListAllResource[Customer](ctx, "name")
}
