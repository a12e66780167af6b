package models

import (
	"context"
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// stockDelta is a signed quantity change for one product at one location.
type stockDelta struct {
	ProductId  int
	LocationId int
	Qty        decimal.Decimal
}

func stockLockKey(productId int, locationId int) string {
	return fmt.Sprintf("stock:%d:%d", productId, locationId)
}

// mergeStockDeltas folds deltas on the same product-location and returns them in a stable order.
func mergeStockDeltas(deltas []stockDelta) []stockDelta {
	type key struct{ productId, locationId int }
	sums := make(map[key]decimal.Decimal)
	order := make([]key, 0, len(deltas))
	for _, d := range deltas {
		k := key{d.ProductId, d.LocationId}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] = sums[k].Add(d.Qty)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].productId != order[j].productId {
			return order[i].productId < order[j].productId
		}
		return order[i].locationId < order[j].locationId
	})
	merged := make([]stockDelta, 0, len(order))
	for _, k := range order {
		merged = append(merged, stockDelta{ProductId: k.productId, LocationId: k.locationId, Qty: sums[k]})
	}
	return merged
}

func stockLockKeys(deltas []stockDelta) []string {
	keys := make([]string, 0, len(deltas))
	for _, d := range deltas {
		keys = append(keys, stockLockKey(d.ProductId, d.LocationId))
	}
	return keys
}

// applyStockDeltas writes every delta as an upsert on the per-location row.
// Decreases that would go below zero are rejected unless negative stock is allowed.
// Callers must hold the product-location locks.
func applyStockDeltas(ctx context.Context, tx *gorm.DB, deltas []stockDelta) error {
	allowNegative := config.AllowNegativeStock()
	for _, d := range mergeStockDeltas(deltas) {
		if d.Qty.IsZero() {
			continue
		}
		var row ProductStock
		result := tx.WithContext(ctx).
			Where("product_id = ? AND location_id = ?", d.ProductId, d.LocationId).
			Limit(1).Find(&row)
		if result.Error != nil {
			return result.Error
		}
		current := decimal.Zero
		if result.RowsAffected > 0 {
			current = row.Qty
		}
		next := current.Add(d.Qty)
		if next.IsNegative() && d.Qty.IsNegative() && !allowNegative {
			return utils.NewValidationError("quantity",
				"insufficient stock for product %d at location %d: available %s, requested %s",
				d.ProductId, d.LocationId, current.String(), d.Qty.Neg().String())
		}
		if result.RowsAffected == 0 {
			row = ProductStock{ProductId: d.ProductId, LocationId: d.LocationId, Qty: next}
			if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
				return err
			}
		} else {
			if err := tx.WithContext(ctx).Model(&ProductStock{}).
				Where("product_id = ? AND location_id = ?", d.ProductId, d.LocationId).
				Update("qty", next).Error; err != nil {
				return err
			}
		}
		if config.DebugCommits() {
			config.GetLogger().WithFields(logrus.Fields{
				"product_id":  d.ProductId,
				"location_id": d.LocationId,
				"delta":       d.Qty.String(),
				"qty":         next.String(),
			}).Debug("stock delta applied")
		}
	}
	return nil
}

func deltaProductIds(deltas []stockDelta) []int {
	ids := make([]int, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.ProductId)
	}
	return utils.UniqueSlice(ids)
}

// StockLevel is one row of the per-location stock report.
type StockLevel struct {
	ProductId    int             `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	LocationId   int             `json:"location_id"`
	LocationName string          `json:"location_name"`
	Qty          decimal.Decimal `json:"qty"`
}

// GetStockLevels lists non-zero stock per product and location, optionally for one location.
func GetStockLevels(ctx context.Context, locationId int) ([]*StockLevel, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&ProductStock{}).Where("qty <> 0")
	if locationId > 0 {
		dbCtx = dbCtx.Where("location_id = ?", locationId)
	}
	var rows []ProductStock
	if err := dbCtx.Order("product_id, location_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	productIds := make([]int, 0, len(rows))
	for _, r := range rows {
		productIds = append(productIds, r.ProductId)
	}
	products, err := GetProductsByIds(ctx, db, productIds)
	if err != nil {
		return nil, err
	}
	locations, err := ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	locationNames := make(map[int]string, len(locations))
	for _, l := range locations {
		locationNames[l.ID] = l.Name
	}
	levels := make([]*StockLevel, 0, len(rows))
	for _, r := range rows {
		level := &StockLevel{
			ProductId:    r.ProductId,
			LocationId:   r.LocationId,
			LocationName: locationNames[r.LocationId],
			Qty:          r.Qty,
		}
		if p, ok := products[r.ProductId]; ok {
			level.ProductCode = p.Code
			level.ProductName = p.Name
		}
		levels = append(levels, level)
	}
	return levels, nil
}
