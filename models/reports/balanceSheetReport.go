package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// BalanceSheetRow is one account of the flattened balance sheet, in tree order.
type BalanceSheetRow struct {
	AccountId   int               `json:"account_id"`
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Level       int               `json:"level"`
	SystemLink  models.SystemLink `json:"system_link"`
	OwnBalance  decimal.Decimal   `json:"own_balance"`
	Balance     decimal.Decimal   `json:"balance"`
	HasChildren bool              `json:"has_children"`
}

type BalanceSheetResponse struct {
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Rows      []*BalanceSheetRow `json:"rows"`
	Total     decimal.Decimal    `json:"total"`
}

func flattenBalances(nodes []*models.AccountBalance, rows []*BalanceSheetRow) []*BalanceSheetRow {
	for _, n := range nodes {
		rows = append(rows, &BalanceSheetRow{
			AccountId:   n.Account.ID,
			Code:        n.Account.Code,
			Name:        n.Account.Name,
			Level:       n.Account.Level,
			SystemLink:  n.Account.SystemLink,
			OwnBalance:  utils.RoundMoney(n.Own),
			Balance:     utils.RoundMoney(n.Balance),
			HasChildren: len(n.Children) > 0,
		})
		rows = flattenBalances(n.Children, rows)
	}
	return rows
}

// GetBalanceSheetReport evaluates the chart of accounts for the window. A zero start means "since ever".
func GetBalanceSheetReport(ctx context.Context, startDate time.Time, endDate time.Time) (*BalanceSheetResponse, error) {
	if endDate.IsZero() {
		endDate = time.Now()
	}
	if startDate.After(endDate) {
		return nil, utils.NewValidationError("start_date", "start date is after end date")
	}
	started := time.Now()
	defer logSlowReport(ctx, "balance_sheet", started, map[string]any{"start": startDate, "end": endDate})

	key := windowCacheKey("balance_sheet", startDate, endDate)
	var cached BalanceSheetResponse
	if ok, err := cacheGet(key, &cached); err == nil && ok {
		return &cached, nil
	}
	roots, err := models.GetBalanceSheet(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	response := &BalanceSheetResponse{StartDate: startDate, EndDate: endDate, Total: decimal.Zero}
	for _, r := range roots {
		response.Total = response.Total.Add(r.Balance)
	}
	response.Total = utils.RoundMoney(response.Total)
	response.Rows = flattenBalances(roots, nil)
	cacheSet(key, response)
	return response, nil
}
