package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/fiscal"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"gorm.io/gorm"
)

// CashRegister is a till. DeviceIp points at its fiscal printer when one is attached.
type CashRegister struct {
	ID             int    `gorm:"primary_key" json:"id"`
	Name           string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	LocationId     int    `gorm:"index;not null;default:0" json:"location_id"`
	DeviceIp       string `gorm:"size:64" json:"device_ip"`
	DeviceUsername string `gorm:"size:100" json:"device_username"`
	DevicePassword string `gorm:"size:100" json:"-"`
	// HasDevicePassword tells clients a password is stored without exposing it.
	HasDevicePassword bool      `gorm:"-" json:"has_device_password"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *CashRegister) AfterFind(tx *gorm.DB) error {
	r.HasDevicePassword = r.DevicePassword != ""
	return nil
}

type NewCashRegister struct {
	Name           string `json:"name" validate:"required,max=100"`
	LocationId     int    `json:"location_id"`
	DeviceIp       string `json:"device_ip" validate:"omitempty,ip|hostname"`
	DeviceUsername string `json:"device_username" validate:"max=100"`
	DevicePassword string `json:"device_password" validate:"max=100"`
}

func (input *NewCashRegister) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	input.DeviceIp = strings.TrimSpace(input.DeviceIp)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := utils.ValidateUnique[CashRegister](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.LocationId > 0 {
		if err := utils.ValidateResourceId[Location](ctx, input.LocationId); err != nil {
			return utils.NewValidationError("location_id", "location not found")
		}
	}
	return nil
}

// fiscalTarget addresses the register's device. Cached registers carry no password,
// so it is read back from the database.
func (r CashRegister) fiscalTarget(ctx context.Context) fiscal.Target {
	target := fiscal.Target{IP: r.DeviceIp, Username: r.DeviceUsername, Password: r.DevicePassword}
	if target.Password != "" || !r.HasDevicePassword {
		return target
	}
	var stored CashRegister
	db := config.GetDB()
	if err := db.WithContext(ctx).Select("id", "device_password").Where("id = ?", r.ID).Limit(1).Find(&stored).Error; err != nil {
		config.LogError(config.GetLogger(), "CashRegister", "fiscalTarget", "read device password", r.ID, err)
		return target
	}
	target.Password = stored.DevicePassword
	return target
}

func CreateCashRegister(ctx context.Context, input *NewCashRegister) (*CashRegister, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	register := CashRegister{
		Name:           input.Name,
		LocationId:     input.LocationId,
		DeviceIp:       input.DeviceIp,
		DeviceUsername: input.DeviceUsername,
		DevicePassword: input.DevicePassword,
	}
	register.HasDevicePassword = register.DevicePassword != ""
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&register).Error; err != nil {
		return nil, err
	}
	invalidate(register)
	return &register, nil
}

func UpdateCashRegister(ctx context.Context, id int, input *NewCashRegister) (*CashRegister, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	register, err := utils.FetchModel[CashRegister](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	updates := map[string]interface{}{
		"name":            input.Name,
		"location_id":     input.LocationId,
		"device_ip":       input.DeviceIp,
		"device_username": input.DeviceUsername,
	}
	// the password is never read back by clients, so an empty one keeps the stored value
	if input.DevicePassword != "" {
		updates["device_password"] = input.DevicePassword
	}
	if err := db.WithContext(ctx).Model(register).Updates(updates).Error; err != nil {
		return nil, err
	}
	invalidate(*register)
	return GetCashRegister(ctx, id)
}

func DeleteCashRegister(ctx context.Context, id int) (*CashRegister, error) {
	register, err := utils.FetchModel[CashRegister](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(register).Error; err != nil {
		return nil, err
	}
	invalidate(*register)
	return register, nil
}

func GetCashRegister(ctx context.Context, id int) (*CashRegister, error) {
	return GetResource[CashRegister](ctx, id)
}

func ListCashRegisters(ctx context.Context) ([]*CashRegister, error) {
	return ListAllResource[CashRegister](ctx, "id")
}

// resolveDeviceRegister picks the register whose device serves this request:
// the caller's own register when it has a device, else the first register with one.
func resolveDeviceRegister(ctx context.Context) (*CashRegister, bool) {
	if registerId, ok := utils.GetRegisterIdFromContext(ctx); ok && registerId > 0 {
		if register, err := GetCashRegister(ctx, registerId); err == nil && strings.TrimSpace(register.DeviceIp) != "" {
			return register, true
		}
	}
	registers, err := ListCashRegisters(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "CashRegister", "resolveDeviceRegister", "list registers", nil, err)
		return nil, false
	}
	for _, r := range registers {
		if strings.TrimSpace(r.DeviceIp) != "" {
			return r, true
		}
	}
	return nil, false
}
