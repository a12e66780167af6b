package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/shopspring/decimal"
)

type PartnerBalance struct {
	PartnerId int             `json:"partner_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

type PartnerBalancesResponse struct {
	Receivables      []*PartnerBalance `json:"receivables"`
	Payables         []*PartnerBalance `json:"payables"`
	TotalReceivable  decimal.Decimal   `json:"total_receivable"`
	TotalPayable     decimal.Decimal   `json:"total_payable"`
	BankBalances     []*PartnerBalance `json:"bank_balances"`
	TotalBankBalance decimal.Decimal   `json:"total_bank_balance"`
}

// GetPartnerBalancesReport lists non-zero customer and supplier balances plus every bank's running balance.
func GetPartnerBalancesReport(ctx context.Context) (*PartnerBalancesResponse, error) {
	defer logSlowReport(ctx, "partner_balances", time.Now(), nil)
	response := &PartnerBalancesResponse{}

	customers, err := models.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		if c.Balance.IsZero() {
			continue
		}
		response.Receivables = append(response.Receivables, &PartnerBalance{PartnerId: c.ID, Name: c.Name, Balance: c.Balance})
		response.TotalReceivable = response.TotalReceivable.Add(c.Balance)
	}

	suppliers, err := models.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range suppliers {
		if s.Balance.IsZero() {
			continue
		}
		response.Payables = append(response.Payables, &PartnerBalance{PartnerId: s.ID, Name: s.Name, Balance: s.Balance})
		response.TotalPayable = response.TotalPayable.Add(s.Balance)
	}

	banks, err := models.ListBankAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range banks {
		response.BankBalances = append(response.BankBalances, &PartnerBalance{PartnerId: b.ID, Name: b.Name, Balance: b.Balance})
		response.TotalBankBalance = response.TotalBankBalance.Add(b.Balance)
	}
	return response, nil
}
