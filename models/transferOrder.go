package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TransferDocument moves stock between two locations without any ledger effect.
type TransferDocument struct {
	ID               int            `gorm:"primary_key" json:"id"`
	Date             time.Time      `gorm:"index;not null" json:"date"`
	SourceLocationId int            `gorm:"index;not null" json:"source_location_id"`
	TargetLocationId int            `gorm:"index;not null" json:"target_location_id"`
	Items            []TransferItem `gorm:"foreignKey:TransferDocumentId" json:"items"`
	Note             string         `gorm:"size:255" json:"note"`
	UserName         string         `gorm:"size:100" json:"user_name"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type TransferItem struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	TransferDocumentId int             `gorm:"index;not null" json:"transfer_document_id"`
	ProductId          int             `gorm:"index;not null" json:"product_id"`
	ProductName        string          `gorm:"size:255" json:"product_name"`
	Quantity           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type NewTransfer struct {
	Date             time.Time         `json:"date"`
	SourceLocationId int               `json:"source_location_id" validate:"required"`
	TargetLocationId int               `json:"target_location_id" validate:"required"`
	Note             string            `json:"note" validate:"max=255"`
	Items            []NewTransferItem `json:"items"`
}

type NewTransferItem struct {
	ProductId int             `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// validate input for both create & update.
func (input *NewTransfer) validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("items", "transfer has no items")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.SourceLocationId == input.TargetLocationId {
		return utils.NewValidationError("target_location_id", "source and target location must differ")
	}
	if err := utils.ValidateResourcesId[Location](ctx, []int{input.SourceLocationId, input.TargetLocationId}); err != nil {
		return utils.NewValidationError("source_location_id", "location not found")
	}
	productIds := make([]int, 0, len(input.Items))
	for i, item := range input.Items {
		if err := utils.ValidateStruct(item); err != nil {
			return err
		}
		if !item.Quantity.IsPositive() {
			return utils.NewValidationError("items", "line %d quantity must be greater than zero", i+1)
		}
		productIds = append(productIds, item.ProductId)
	}
	if err := utils.ValidateResourcesId[Product](ctx, productIds); err != nil {
		return utils.NewValidationError("items", "product not found")
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}
	input.Date = input.Date.UTC()
	return nil
}

// stockDeltas moves every line out of the source and into the target; sign -1 undoes it.
func (doc *TransferDocument) stockDeltas(sign decimal.Decimal) []stockDelta {
	deltas := make([]stockDelta, 0, len(doc.Items)*2)
	for _, item := range doc.Items {
		qty := item.Quantity.Mul(sign)
		deltas = append(deltas,
			stockDelta{ProductId: item.ProductId, LocationId: doc.SourceLocationId, Qty: qty.Neg()},
			stockDelta{ProductId: item.ProductId, LocationId: doc.TargetLocationId, Qty: qty},
		)
	}
	return deltas
}

func (input *NewTransfer) toDocument(ctx context.Context, products map[int]*Product) TransferDocument {
	doc := TransferDocument{
		Date:             input.Date,
		SourceLocationId: input.SourceLocationId,
		TargetLocationId: input.TargetLocationId,
		Note:             input.Note,
		UserName:         utils.UserNameOrSystem(ctx),
	}
	for _, item := range input.Items {
		name := ""
		if p, ok := products[item.ProductId]; ok {
			name = p.Name
		}
		doc.Items = append(doc.Items, TransferItem{ProductId: item.ProductId, ProductName: name, Quantity: item.Quantity})
	}
	return doc
}

func logTransfer(action string, doc *TransferDocument) {
	if !config.DebugCommits() {
		return
	}
	config.GetLogger().WithFields(logrus.Fields{
		"action":             action,
		"transfer_id":        doc.ID,
		"source_location_id": doc.SourceLocationId,
		"target_location_id": doc.TargetLocationId,
		"lines":              len(doc.Items),
	}).Debug("transfer")
}

func CreateTransfer(ctx context.Context, input *NewTransfer) (*TransferDocument, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	db := config.GetDB()
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		productIds = append(productIds, item.ProductId)
	}
	products, err := GetProductsByIds(ctx, db, productIds)
	if err != nil {
		return nil, err
	}
	doc := input.toDocument(ctx, products)

	release, err := utils.LockKeys(ctx, stockLockKeys(doc.stockDeltas(decimal.NewFromInt(1))))
	if err != nil {
		return nil, err
	}
	defer release()

	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		if err := uow.Step("transfer", func(tx *gorm.DB) error {
			return tx.Create(&doc).Error
		}); err != nil {
			return err
		}
		if err := uow.Step("stock", func(tx *gorm.DB) error {
			return applyStockDeltas(ctx, tx, doc.stockDeltas(decimal.NewFromInt(1)))
		}); err != nil {
			return err
		}
		uow.AfterCommit(func() { invalidate(productCacheIds(productIds)) })
		return nil
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Transfer", "CreateTransfer", "commit", input, err)
		return nil, err
	}
	logTransfer("create", &doc)
	return &doc, nil
}

// UpdateTransfer undoes the stored document's movement and applies the new one in one unit.
func UpdateTransfer(ctx context.Context, id int, input *NewTransfer) (*TransferDocument, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	db := config.GetDB()
	old, err := utils.FetchModel[TransferDocument](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	productIds := make([]int, 0, len(input.Items)+len(old.Items))
	for _, item := range input.Items {
		productIds = append(productIds, item.ProductId)
	}
	for _, item := range old.Items {
		productIds = append(productIds, item.ProductId)
	}
	products, err := GetProductsByIds(ctx, db, productIds)
	if err != nil {
		return nil, err
	}
	doc := input.toDocument(ctx, products)
	doc.ID = id
	doc.CreatedAt = old.CreatedAt

	keys := append(stockLockKeys(old.stockDeltas(decimal.NewFromInt(1))), stockLockKeys(doc.stockDeltas(decimal.NewFromInt(1)))...)
	release, err := utils.LockKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		if err := uow.Tx().Preload("Items").First(old, id).Error; err != nil {
			return err
		}
		if err := uow.Step("stock", func(tx *gorm.DB) error {
			// one merged application so stock only has to be sufficient for the net effect
			deltas := append(old.stockDeltas(decimal.NewFromInt(-1)), doc.stockDeltas(decimal.NewFromInt(1))...)
			return applyStockDeltas(ctx, tx, deltas)
		}); err != nil {
			return err
		}
		if err := uow.Step("transfer", func(tx *gorm.DB) error {
			if err := tx.Where("transfer_document_id = ?", id).Delete(&TransferItem{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&TransferDocument{}).Where("id = ?", id).Updates(map[string]interface{}{
				"date":               doc.Date,
				"source_location_id": doc.SourceLocationId,
				"target_location_id": doc.TargetLocationId,
				"note":               doc.Note,
				"user_name":          doc.UserName,
			}).Error; err != nil {
				return err
			}
			for i := range doc.Items {
				doc.Items[i].TransferDocumentId = id
			}
			return tx.Create(&doc.Items).Error
		}); err != nil {
			return err
		}
		uow.AfterCommit(func() { invalidate(productCacheIds(productIds)) })
		return nil
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Transfer", "UpdateTransfer", "commit", id, err)
		return nil, err
	}
	logTransfer("update", &doc)
	return GetTransfer(ctx, id)
}

// DeleteTransfer moves the goods back and removes the document.
func DeleteTransfer(ctx context.Context, id int) (*TransferDocument, error) {
	db := config.GetDB()
	doc, err := utils.FetchModel[TransferDocument](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	release, err := utils.LockKeys(ctx, stockLockKeys(doc.stockDeltas(decimal.NewFromInt(1))))
	if err != nil {
		return nil, err
	}
	defer release()

	productIds := deltaProductIds(doc.stockDeltas(decimal.NewFromInt(1)))
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		if err := uow.Step("stock", func(tx *gorm.DB) error {
			return applyStockDeltas(ctx, tx, doc.stockDeltas(decimal.NewFromInt(-1)))
		}); err != nil {
			return err
		}
		if err := uow.Step("transfer", func(tx *gorm.DB) error {
			if err := tx.Where("transfer_document_id = ?", id).Delete(&TransferItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&TransferDocument{}, id).Error
		}); err != nil {
			return err
		}
		uow.AfterCommit(func() { invalidate(productCacheIds(productIds)) })
		return nil
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Transfer", "DeleteTransfer", "commit", id, err)
		return nil, err
	}
	logTransfer("delete", doc)
	return doc, nil
}

func GetTransfer(ctx context.Context, id int) (*TransferDocument, error) {
	return utils.FetchModel[TransferDocument](ctx, id, "Items")
}

func ListTransfers(ctx context.Context) ([]*TransferDocument, error) {
	var docs []*TransferDocument
	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Items").Order("date DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
