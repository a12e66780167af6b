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

// MaxAccountLevel is the deepest level an account may sit at.
const MaxAccountLevel = 7

type Account struct {
	ID       int    `gorm:"primary_key" json:"id"`
	Code     string `gorm:"uniqueIndex;size:100;not null" json:"code"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Level    int    `gorm:"not null;default:1" json:"level"`
	ParentId int    `gorm:"index;not null;default:0" json:"parent_id"`
	// SystemLink selects where the balance comes from; SystemLinkId narrows it to one bank, category or partner.
	SystemLink    SystemLink      `gorm:"size:20;not null;default:'NONE'" json:"system_link"`
	SystemLinkId  int             `gorm:"not null;default:0" json:"system_link_id"`
	ManualBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"manual_balance"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Code          string          `json:"code" validate:"required,max=100"`
	Name          string          `json:"name" validate:"required,max=100"`
	ParentId      int             `json:"parent_id"`
	SystemLink    SystemLink      `json:"system_link"`
	SystemLinkId  int             `json:"system_link_id"`
	ManualBalance decimal.Decimal `json:"manual_balance"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewAccount) validate(ctx context.Context, id int) error {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.SystemLink == "" {
		input.SystemLink = SystemLinkNone
	}
	if !input.SystemLink.IsValid() {
		return utils.NewValidationError("system_link", "unknown system link %s", input.SystemLink)
	}
	if id > 0 && id == input.ParentId {
		return utils.NewValidationError("parent_id", "self-parent not allowed")
	}
	if err := utils.ValidateUnique[Account](ctx, "code", input.Code, id); err != nil {
		return err
	}
	if input.ParentId > 0 {
		if err := utils.ValidateResourceId[Account](ctx, input.ParentId); err != nil {
			return utils.NewValidationError("parent_id", "parent not found")
		}
	}
	return nil
}

// parentLevel is 0 for a root.
func parentLevel(ctx context.Context, db *gorm.DB, parentId int) (int, error) {
	if parentId == 0 {
		return 0, nil
	}
	parent, err := utils.FetchModelTx[Account](ctx, db, parentId)
	if err != nil {
		return 0, err
	}
	return parent.Level, nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	db := config.GetDB()
	level, err := parentLevel(ctx, db, input.ParentId)
	if err != nil {
		return nil, err
	}
	if level+1 > MaxAccountLevel {
		return nil, utils.NewValidationError("parent_id", "account level cannot exceed %d", MaxAccountLevel)
	}
	account := Account{
		Code:          input.Code,
		Name:          input.Name,
		Level:         level + 1,
		ParentId:      input.ParentId,
		SystemLink:    input.SystemLink,
		SystemLinkId:  input.SystemLinkId,
		ManualBalance: input.ManualBalance,
	}
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		if utils.IsDuplicateKey(err) {
			return nil, utils.NewValidationError("code", "duplicate code")
		}
		return nil, err
	}
	invalidate(account)
	return &account, nil
}

// childrenIds lists direct children of parentId.
func childrenIds(ctx context.Context, db *gorm.DB, parentId int) ([]int, error) {
	var ids []int
	err := db.WithContext(ctx).Model(&Account{}).
		Where("parent_id = ?", parentId).Order("code").
		Pluck("id", &ids).Error
	return ids, err
}

// subtreeDepth is how many levels lie below id (0 for a leaf).
func subtreeDepth(ctx context.Context, db *gorm.DB, id int, seen map[int]bool) (int, error) {
	if seen[id] {
		return 0, utils.NewValidationError("parent_id", "account %d is part of a cycle", id)
	}
	seen[id] = true
	ids, err := childrenIds(ctx, db, id)
	if err != nil {
		return 0, err
	}
	depth := 0
	for _, childId := range ids {
		d, err := subtreeDepth(ctx, db, childId, seen)
		if err != nil {
			return 0, err
		}
		if d+1 > depth {
			depth = d + 1
		}
	}
	return depth, nil
}

// isDescendant reports whether candidate sits anywhere below id.
func isDescendant(ctx context.Context, db *gorm.DB, id int, candidate int) (bool, error) {
	current := candidate
	for steps := 0; current != 0; steps++ {
		if current == id {
			return true, nil
		}
		if steps > MaxAccountLevel*4 {
			return false, utils.NewValidationError("parent_id", "account %d is part of a cycle", candidate)
		}
		var parentId int
		if err := db.WithContext(ctx).Model(&Account{}).Where("id = ?", current).
			Pluck("parent_id", &parentId).Error; err != nil {
			return false, err
		}
		current = parentId
	}
	return false, nil
}

// relevel walks the subtree and rewrites levels from the given root level.
func relevel(ctx context.Context, tx *gorm.DB, id int, level int) error {
	if err := tx.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Update("level", level).Error; err != nil {
		return err
	}
	ids, err := childrenIds(ctx, tx, id)
	if err != nil {
		return err
	}
	for _, childId := range ids {
		if err := relevel(ctx, tx, childId, level+1); err != nil {
			return err
		}
	}
	return nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	db := config.GetDB()
	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return nil, err
	}
	if input.ParentId > 0 {
		cyclic, err := isDescendant(ctx, db, id, input.ParentId)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, utils.NewValidationError("parent_id", "an account cannot move under its own descendant")
		}
	}
	level, err := parentLevel(ctx, db, input.ParentId)
	if err != nil {
		return nil, err
	}
	depth, err := subtreeDepth(ctx, db, id, map[int]bool{})
	if err != nil {
		return nil, err
	}
	if level+1+depth > MaxAccountLevel {
		return nil, utils.NewValidationError("parent_id", "account level cannot exceed %d", MaxAccountLevel)
	}

	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		if err := uow.Step("account", func(tx *gorm.DB) error {
			return tx.Model(&Account{}).Where("id = ?", id).Updates(map[string]interface{}{
				"code":           input.Code,
				"name":           input.Name,
				"parent_id":      input.ParentId,
				"system_link":    input.SystemLink,
				"system_link_id": input.SystemLinkId,
				"manual_balance": input.ManualBalance,
			}).Error
		}); err != nil {
			return err
		}
		if account.ParentId != input.ParentId || account.Level != level+1 {
			return uow.Step("relevel", func(tx *gorm.DB) error {
				return relevel(ctx, tx, id, level+1)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(account)
	return utils.FetchModel[Account](ctx, id)
}

func DeleteAccount(ctx context.Context, id int) (*Account, error) {
	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Account](ctx, "parent_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "account has children")
	}
	if err := config.GetDB().WithContext(ctx).Delete(account).Error; err != nil {
		return nil, err
	}
	invalidate(account)
	return account, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	return GetResource[Account](ctx, id)
}

func ListAccounts(ctx context.Context) ([]*Account, error) {
	return ListAllResource[Account](ctx, "code")
}
