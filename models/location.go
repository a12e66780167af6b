package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"gorm.io/gorm"
)

// Location is a stock-holding place (shop floor, warehouse). Exactly one is primary.
type Location struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Address   string    `gorm:"size:255" json:"address"`
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLocation struct {
	Name      string `json:"name" validate:"required,max=100"`
	Address   string `json:"address" validate:"max=255"`
	IsPrimary bool   `json:"is_primary"`
}

const defaultPrimaryLocationName = "Main"

func (input *NewLocation) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[Location](ctx, "name", input.Name, id)
}

// makePrimary clears the flag on every other location.
func makePrimary(tx *gorm.DB, id int) error {
	return tx.Model(&Location{}).Where("id <> ? AND is_primary = ?", id, true).Update("is_primary", false).Error
}

func CreateLocation(ctx context.Context, input *NewLocation) (*Location, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	location := Location{Name: input.Name, Address: input.Address, IsPrimary: input.IsPrimary}
	db := config.GetDB()
	err := RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		return uow.Step("location", func(tx *gorm.DB) error {
			if err := tx.Create(&location).Error; err != nil {
				return err
			}
			if location.IsPrimary {
				return makePrimary(tx, location.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Location]()
	return &location, nil
}

func UpdateLocation(ctx context.Context, id int, input *NewLocation) (*Location, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	location, err := utils.FetchModel[Location](ctx, id)
	if err != nil {
		return nil, err
	}
	if location.IsPrimary && !input.IsPrimary {
		return nil, utils.NewValidationError("is_primary", "mark another location primary instead")
	}
	db := config.GetDB()
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		return uow.Step("location", func(tx *gorm.DB) error {
			if err := tx.Model(location).Updates(map[string]interface{}{
				"name":       input.Name,
				"address":    input.Address,
				"is_primary": input.IsPrimary,
			}).Error; err != nil {
				return err
			}
			if input.IsPrimary {
				return makePrimary(tx, id)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Location](id)
	return location, nil
}

func DeleteLocation(ctx context.Context, id int) (*Location, error) {
	location, err := utils.FetchModel[Location](ctx, id)
	if err != nil {
		return nil, err
	}
	if location.IsPrimary {
		return nil, utils.NewValidationError("id", "primary location cannot be deleted")
	}
	count, err := utils.ResourceCountWhere[ProductStock](ctx, "location_id = ? AND qty <> 0", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "location still holds stock")
	}
	db := config.GetDB()
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		return uow.Step("location", func(tx *gorm.DB) error {
			if err := tx.Where("location_id = ?", id).Delete(&ProductStock{}).Error; err != nil {
				return err
			}
			return tx.Delete(location).Error
		})
	})
	if err != nil {
		return nil, err
	}
	invalidate(*location)
	return location, nil
}

func GetLocation(ctx context.Context, id int) (*Location, error) {
	return GetResource[Location](ctx, id)
}

func ListLocations(ctx context.Context) ([]*Location, error) {
	return ListAllResource[Location](ctx, "id")
}

// GetPrimaryLocation returns the fallback location for documents that name none.
func GetPrimaryLocation(ctx context.Context) (*Location, error) {
	return primaryLocation(ctx, config.GetDB())
}

func primaryLocation(ctx context.Context, db *gorm.DB) (*Location, error) {
	var location Location
	err := db.WithContext(ctx).Where("is_primary = ?", true).Order("id").First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewValidationError("location_id", "no primary location configured")
		}
		return nil, err
	}
	return &location, nil
}

// EnsurePrimaryLocation creates the default primary location on an empty database.
func EnsurePrimaryLocation(ctx context.Context, db *gorm.DB) (*Location, error) {
	location, err := primaryLocation(ctx, db)
	if err == nil {
		return location, nil
	}
	if !utils.IsValidationError(err) {
		return nil, err
	}
	location = &Location{Name: defaultPrimaryLocationName, IsPrimary: true}
	if err := db.WithContext(ctx).Create(location).Error; err != nil {
		return nil, err
	}
	return location, nil
}
