package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/shopspring/decimal"
)

type StockSummaryResponse struct {
	LocationId int                  `json:"location_id"`
	Levels     []*models.StockLevel `json:"levels"`
	TotalQty   decimal.Decimal      `json:"total_qty"`
}

// GetStockSummaryReport lists stock per product and location; locationId 0 covers every location.
func GetStockSummaryReport(ctx context.Context, locationId int) (*StockSummaryResponse, error) {
	defer logSlowReport(ctx, "stock_summary", time.Now(), map[string]any{"location_id": locationId})
	levels, err := models.GetStockLevels(ctx, locationId)
	if err != nil {
		return nil, err
	}
	response := &StockSummaryResponse{LocationId: locationId, Levels: levels, TotalQty: decimal.Zero}
	for _, l := range levels {
		response.TotalQty = response.TotalQty.Add(l.Qty)
	}
	return response, nil
}
