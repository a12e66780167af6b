package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

type ProductCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductCategory struct {
	Name string `json:"name" validate:"required,max=100"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProductCategory) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[ProductCategory](ctx, "name", input.Name, id)
}

func CreateProductCategory(ctx context.Context, input *NewProductCategory) (*ProductCategory, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	category := ProductCategory{Name: input.Name}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	invalidate(category)
	return &category, nil
}

func UpdateProductCategory(ctx context.Context, id int, input *NewProductCategory) (*ProductCategory, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	category, err := utils.FetchModel[ProductCategory](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(category).Updates(map[string]interface{}{"name": input.Name}).Error; err != nil {
		return nil, err
	}
	invalidate(*category)
	return category, nil
}

func DeleteProductCategory(ctx context.Context, id int) (*ProductCategory, error) {
	category, err := utils.FetchModel[ProductCategory](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Product](ctx, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "category is used by %d products", count)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return nil, err
	}
	invalidate(*category)
	return category, nil
}

func GetProductCategory(ctx context.Context, id int) (*ProductCategory, error) {
	return GetResource[ProductCategory](ctx, id)
}

func ListProductCategories(ctx context.Context) ([]*ProductCategory, error) {
	return ListAllResource[ProductCategory](ctx, "name")
}

// findOrCreateCategory resolves a category by name, creating it when missing. Used by bulk import.
func findOrCreateCategory(ctx context.Context, uow *UnitOfWork, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	var category ProductCategory
	tx := uow.Tx()
	result := tx.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&category)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		return category.ID, nil
	}
	category = ProductCategory{Name: name}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return 0, err
	}
	uow.AfterCommit(func() { invalidate(category) })
	return category.ID, nil
}
