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

type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Code           string          `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Barcode        string          `gorm:"index;size:100" json:"barcode"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	CategoryId     int             `gorm:"index;not null;default:0" json:"category_id"`
	Brand          string          `gorm:"size:100" json:"brand"`
	UnitId         int             `gorm:"index;not null;default:0" json:"unit_id"`
	SalesPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sales_price"`
	PurchasePrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	VatRate        decimal.Decimal `gorm:"type:decimal(7,4);default:0" json:"vat_rate"`
	IsVatInclusive *bool           `gorm:"not null;default:true" json:"is_vat_inclusive"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	Stocks         []ProductStock  `gorm:"foreignKey:ProductId" json:"stocks"`
	// Stock is the sum of Stocks, never persisted.
	Stock     decimal.Decimal `gorm:"-" json:"stock"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductStock is the quantity of one product at one location. The only stored stock figure.
type ProductStock struct {
	ProductId  int             `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	LocationId int             `gorm:"primaryKey;autoIncrement:false;index" json:"location_id"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Code           string            `json:"code" validate:"required,max=50"`
	Barcode        string            `json:"barcode" validate:"max=100"`
	Name           string            `json:"name" validate:"required,max=255"`
	CategoryId     int               `json:"category_id"`
	Brand          string            `json:"brand" validate:"max=100"`
	UnitId         int               `json:"unit_id"`
	SalesPrice     decimal.Decimal   `json:"sales_price"`
	PurchasePrice  decimal.Decimal   `json:"purchase_price"`
	VatRate        decimal.Decimal   `json:"vat_rate"`
	IsVatInclusive *bool             `json:"is_vat_inclusive"`
	OpeningStocks  []NewOpeningStock `json:"opening_stocks"`
}

type NewOpeningStock struct {
	LocationId int             `json:"location_id"`
	Qty        decimal.Decimal `json:"qty"`
}

type ProductFilter struct {
	Search     string `form:"search"`
	CategoryId int    `form:"category_id"`
	ActiveOnly bool   `form:"active_only"`
	LocationId int    `form:"location_id"`
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.computeStock()
	return nil
}

func (p *Product) computeStock() {
	total := decimal.Zero
	for _, s := range p.Stocks {
		total = total.Add(s.Qty)
	}
	p.Stock = total
}

// StockAt is the quantity held at one location.
func (p *Product) StockAt(locationId int) decimal.Decimal {
	for _, s := range p.Stocks {
		if s.LocationId == locationId {
			return s.Qty
		}
	}
	return decimal.Zero
}

func (p Product) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

func (p Product) VatInclusive() bool {
	return p.IsVatInclusive == nil || *p.IsVatInclusive
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, id int) error {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.SalesPrice.IsNegative() {
		return utils.NewValidationError("sales_price", "must not be negative")
	}
	if input.PurchasePrice.IsNegative() {
		return utils.NewValidationError("purchase_price", "must not be negative")
	}
	if input.VatRate.IsNegative() || input.VatRate.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError("vat_rate", "must be between 0 and 100")
	}
	if err := utils.ValidateUnique[Product](ctx, "code", input.Code, id); err != nil {
		return err
	}
	if input.CategoryId > 0 {
		if err := utils.ValidateResourceId[ProductCategory](ctx, input.CategoryId); err != nil {
			return utils.NewValidationError("category_id", "category not found")
		}
	}
	if input.UnitId > 0 {
		if err := utils.ValidateResourceId[ProductUnit](ctx, input.UnitId); err != nil {
			return utils.NewValidationError("unit_id", "unit not found")
		}
	}
	if id == 0 {
		locationIds := make([]int, 0, len(input.OpeningStocks))
		for _, s := range input.OpeningStocks {
			if s.Qty.IsNegative() {
				return utils.NewValidationError("opening_stocks", "opening quantity must not be negative")
			}
			locationIds = append(locationIds, s.LocationId)
		}
		if len(utils.UniqueSlice(locationIds)) != len(locationIds) {
			return utils.NewValidationError("opening_stocks", "duplicate location")
		}
		if err := utils.ValidateResourcesId[Location](ctx, locationIds); err != nil {
			return utils.NewValidationError("opening_stocks", "location not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	product := Product{
		Code:           input.Code,
		Barcode:        strings.TrimSpace(input.Barcode),
		Name:           input.Name,
		CategoryId:     input.CategoryId,
		Brand:          input.Brand,
		UnitId:         input.UnitId,
		SalesPrice:     input.SalesPrice,
		PurchasePrice:  input.PurchasePrice,
		VatRate:        input.VatRate,
		IsVatInclusive: input.IsVatInclusive,
		IsActive:       utils.NewTrue(),
	}
	if product.IsVatInclusive == nil {
		product.IsVatInclusive = utils.NewTrue()
	}
	for _, s := range input.OpeningStocks {
		if s.Qty.IsZero() {
			continue
		}
		product.Stocks = append(product.Stocks, ProductStock{LocationId: s.LocationId, Qty: s.Qty})
	}

	db := config.GetDB()
	err := RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		return uow.Step("product", func(tx *gorm.DB) error {
			return tx.Create(&product).Error
		})
	})
	if err != nil {
		return nil, err
	}
	product.computeStock()
	utils.RemoveRedisItem[Product]()
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}
	isVatInclusive := input.IsVatInclusive
	if isVatInclusive == nil {
		isVatInclusive = product.IsVatInclusive
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"code":             input.Code,
		"barcode":          strings.TrimSpace(input.Barcode),
		"name":             input.Name,
		"category_id":      input.CategoryId,
		"brand":            input.Brand,
		"unit_id":          input.UnitId,
		"sales_price":      input.SalesPrice,
		"purchase_price":   input.PurchasePrice,
		"vat_rate":         input.VatRate,
		"is_vat_inclusive": isVatInclusive,
	}).Error; err != nil {
		return nil, err
	}
	invalidate(*product)
	return GetProduct(ctx, id)
}

// ToggleActiveProduct replaces deletion; products stay referenced by historical invoices.
func ToggleActiveProduct(ctx context.Context, id int, isActive bool) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(product).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	invalidate(*product)
	return GetProduct(ctx, id)
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, id, "Stocks")
}

// GetProductByCode resolves a scanned barcode or product code.
func GetProductByCode(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, utils.NewValidationError("code", "code is required")
	}
	var product Product
	db := config.GetDB()
	result := db.WithContext(ctx).Preload("Stocks").
		Where("barcode = ? OR code = ?", code, code).
		Order("id").Limit(1).Find(&product)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &product, nil
}

func ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Stocks")
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR code LIKE ? OR barcode LIKE ?", like, like, like)
	}
	if filter.CategoryId > 0 {
		dbCtx = dbCtx.Where("category_id = ?", filter.CategoryId)
	}
	if filter.ActiveOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	var products []*Product
	if err := dbCtx.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductsByIds loads products with stocks, keyed by id. Missing ids are simply absent.
func GetProductsByIds(ctx context.Context, db *gorm.DB, ids []int) (map[int]*Product, error) {
	result := make(map[int]*Product, len(ids))
	ids = utils.UniqueSlice(ids)
	if len(ids) == 0 {
		return result, nil
	}
	var products []*Product
	if err := db.WithContext(ctx).Preload("Stocks").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}
