package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// ProductUnit is a unit of measure. Its name decides the quantity type sent to the fiscal device.
type ProductUnit struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Abbreviation string    `gorm:"size:20" json:"abbreviation"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductUnit struct {
	Name         string `json:"name" validate:"required,max=100"`
	Abbreviation string `json:"abbreviation" validate:"max=20"`
}

func (input *NewProductUnit) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[ProductUnit](ctx, "name", input.Name, id)
}

func CreateProductUnit(ctx context.Context, input *NewProductUnit) (*ProductUnit, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	unit := ProductUnit{Name: input.Name, Abbreviation: input.Abbreviation}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}
	invalidate(unit)
	return &unit, nil
}

func UpdateProductUnit(ctx context.Context, id int, input *NewProductUnit) (*ProductUnit, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	unit, err := utils.FetchModel[ProductUnit](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(unit).Updates(map[string]interface{}{
		"name":         input.Name,
		"abbreviation": input.Abbreviation,
	}).Error; err != nil {
		return nil, err
	}
	invalidate(*unit)
	return unit, nil
}

func DeleteProductUnit(ctx context.Context, id int) (*ProductUnit, error) {
	unit, err := utils.FetchModel[ProductUnit](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Product](ctx, "unit_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "unit is used by %d products", count)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(unit).Error; err != nil {
		return nil, err
	}
	invalidate(*unit)
	return unit, nil
}

func GetProductUnit(ctx context.Context, id int) (*ProductUnit, error) {
	return GetResource[ProductUnit](ctx, id)
}

func ListProductUnits(ctx context.Context) ([]*ProductUnit, error) {
	return ListAllResource[ProductUnit](ctx, "name")
}

func findOrCreateUnit(ctx context.Context, uow *UnitOfWork, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	var unit ProductUnit
	tx := uow.Tx()
	result := tx.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&unit)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		return unit.ID, nil
	}
	unit = ProductUnit{Name: name}
	if err := tx.WithContext(ctx).Create(&unit).Error; err != nil {
		return 0, err
	}
	uow.AfterCommit(func() { invalidate(unit) })
	return unit.ID, nil
}
