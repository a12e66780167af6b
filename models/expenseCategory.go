package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

type ExpenseCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpenseCategory struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (input *NewExpenseCategory) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[ExpenseCategory](ctx, "name", input.Name, id)
}

func CreateExpenseCategory(ctx context.Context, input *NewExpenseCategory) (*ExpenseCategory, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	category := ExpenseCategory{Name: input.Name}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	invalidate(category)
	return &category, nil
}

func UpdateExpenseCategory(ctx context.Context, id int, input *NewExpenseCategory) (*ExpenseCategory, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	category, err := utils.FetchModel[ExpenseCategory](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(category).Update("name", input.Name).Error; err != nil {
		return nil, err
	}
	invalidate(*category)
	return category, nil
}

func DeleteExpenseCategory(ctx context.Context, id int) (*ExpenseCategory, error) {
	category, err := utils.FetchModel[ExpenseCategory](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Transaction](ctx, "expense_category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "expense category is used by %d transactions", count)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return nil, err
	}
	invalidate(*category)
	return category, nil
}

func ListExpenseCategories(ctx context.Context) ([]*ExpenseCategory, error) {
	return ListAllResource[ExpenseCategory](ctx, "name")
}
