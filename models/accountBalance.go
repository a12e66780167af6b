package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceSource produces the own value of an account for a reporting window.
// Cumulative sources only look at end; period sources use both bounds.
type BalanceSource interface {
	Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error)
}

type manualSource struct {
	amount decimal.Decimal
}

func (s manualSource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	return s.amount, nil
}

// cashRegisterSource is the cumulative drawer balance.
type cashRegisterSource struct{}

func (cashRegisterSource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	return netLedger(ctx, db, TransactionFilter{Source: TransactionSourceCashRegister, EndDate: &end})
}

// bankSource is the cumulative balance of one bank, or all banks when bankId is 0, including initial balances.
type bankSource struct {
	bankId int
}

func (s bankSource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	balance, err := bankBalance(ctx, db, s.bankId, &end)
	if err != nil {
		return decimal.Zero, err
	}
	dbCtx := db.WithContext(ctx).Model(&BankAccount{})
	if s.bankId > 0 {
		dbCtx = dbCtx.Where("id = ?", s.bankId)
	}
	var initials []decimal.Decimal
	if err := dbCtx.Pluck("initial_balance", &initials).Error; err != nil {
		return decimal.Zero, err
	}
	for _, v := range initials {
		balance = balance.Add(v)
	}
	return balance, nil
}

// inventorySource values stock rebuilt from invoice history at purchase price.
type inventorySource struct {
	categoryId int
}

type inventoryMovement struct {
	ProductId int
	Quantity  decimal.Decimal
	Type      InvoiceType
}

func (s inventorySource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	var movements []inventoryMovement
	err := db.WithContext(ctx).Table("invoice_items").
		Select("invoice_items.product_id, invoice_items.quantity, invoices.type").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.status <> ? AND invoices.date <= ?", InvoiceStatusVoid, end.UTC()).
		Scan(&movements).Error
	if err != nil {
		return decimal.Zero, err
	}
	running := make(map[int]decimal.Decimal)
	for _, m := range movements {
		running[m.ProductId] = running[m.ProductId].Add(m.Quantity.Mul(m.Type.StockSign()))
	}
	ids := make([]int, 0, len(running))
	for id := range running {
		ids = append(ids, id)
	}
	products, err := GetProductsByIds(ctx, db, ids)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for id, qty := range running {
		p, ok := products[id]
		if !ok || !qty.IsPositive() {
			continue
		}
		if s.categoryId > 0 && p.CategoryId != s.categoryId {
			continue
		}
		total = total.Add(qty.Mul(p.PurchasePrice))
	}
	return total, nil
}

// expenseSource sums expenses in the window, optionally for one expense category.
type expenseSource struct {
	categoryId int
}

func (s expenseSource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	return sumLedger(ctx, db, TransactionFilter{
		Type:              TransactionTypeExpense,
		ExpenseCategoryId: s.categoryId,
		StartDate:         &start,
		EndDate:           &end,
	})
}

// salesSource sums income in the window, optionally for one partner.
type salesSource struct {
	partnerId int
}

func (s salesSource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	return sumLedger(ctx, db, TransactionFilter{
		Type:      TransactionTypeIncome,
		PartnerId: s.partnerId,
		StartDate: &start,
		EndDate:   &end,
	})
}

// receivableSource is the live receivable of one customer or of all of them.
type receivableSource struct {
	customerId int
}

func (s receivableSource) Balance(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) (decimal.Decimal, error) {
	dbCtx := db.WithContext(ctx).Model(&Customer{})
	if s.customerId > 0 {
		dbCtx = dbCtx.Where("id = ?", s.customerId)
	}
	var balances []decimal.Decimal
	if err := dbCtx.Pluck("balance", &balances).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total, nil
}

// Source maps the account's system link onto its balance source.
func (a *Account) Source() BalanceSource {
	switch a.SystemLink {
	case SystemLinkCash, SystemLinkCashRegister:
		return cashRegisterSource{}
	case SystemLinkBank:
		return bankSource{bankId: a.SystemLinkId}
	case SystemLinkInventory:
		return inventorySource{categoryId: a.SystemLinkId}
	case SystemLinkExpense:
		return expenseSource{categoryId: a.SystemLinkId}
	case SystemLinkSales:
		return salesSource{partnerId: a.SystemLinkId}
	case SystemLinkCustomerAR:
		return receivableSource{customerId: a.SystemLinkId}
	}
	return manualSource{amount: a.ManualBalance}
}

// AccountBalance is one node of the balance sheet.
type AccountBalance struct {
	Account  *Account          `json:"account"`
	Own      decimal.Decimal   `json:"own"`
	Balance  decimal.Decimal   `json:"balance"`
	Children []*AccountBalance `json:"children"`
}

// accountTree is the whole chart indexed by parent, loaded once per evaluation.
type accountTree struct {
	byId     map[int]*Account
	children map[int][]*Account
}

func loadAccountTree(ctx context.Context, db *gorm.DB) (*accountTree, error) {
	var accounts []*Account
	if err := db.WithContext(ctx).Order("code").Find(&accounts).Error; err != nil {
		return nil, err
	}
	tree := &accountTree{byId: make(map[int]*Account), children: make(map[int][]*Account)}
	for _, a := range accounts {
		tree.byId[a.ID] = a
		tree.children[a.ParentId] = append(tree.children[a.ParentId], a)
	}
	return tree, nil
}

func (t *accountTree) evaluate(ctx context.Context, db *gorm.DB, a *Account, start time.Time, end time.Time, path map[int]bool) (*AccountBalance, error) {
	if path[a.ID] {
		return nil, utils.NewValidationError("parent_id", "account %s is part of a cycle", a.Code)
	}
	path[a.ID] = true
	defer delete(path, a.ID)

	own, err := a.Source().Balance(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	node := &AccountBalance{Account: a, Own: own, Balance: own}
	for _, child := range t.children[a.ID] {
		if child.ID == a.ID {
			return nil, utils.NewValidationError("parent_id", "account %s is its own parent", a.Code)
		}
		childNode, err := t.evaluate(ctx, db, child, start, end, path)
		if err != nil {
			return nil, err
		}
		node.Balance = node.Balance.Add(childNode.Balance)
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// ComputeBalance is the account's own value plus the balances of all its descendants.
func ComputeBalance(ctx context.Context, accountId int, start time.Time, end time.Time) (decimal.Decimal, error) {
	db := config.GetDB()
	tree, err := loadAccountTree(ctx, db)
	if err != nil {
		return decimal.Zero, err
	}
	account, ok := tree.byId[accountId]
	if !ok {
		return decimal.Zero, utils.ErrorRecordNotFound
	}
	node, err := tree.evaluate(ctx, db, account, start.UTC(), end.UTC(), map[int]bool{})
	if err != nil {
		config.LogError(config.GetLogger(), "Account", "ComputeBalance", "evaluate", accountId, err)
		return decimal.Zero, err
	}
	return node.Balance, nil
}

// GetBalanceSheet evaluates every root account of the chart.
func GetBalanceSheet(ctx context.Context, start time.Time, end time.Time) ([]*AccountBalance, error) {
	db := config.GetDB()
	tree, err := loadAccountTree(ctx, db)
	if err != nil {
		return nil, err
	}
	var roots []*AccountBalance
	reached := 0
	for _, root := range tree.children[0] {
		node, err := tree.evaluate(ctx, db, root, start.UTC(), end.UTC(), map[int]bool{})
		if err != nil {
			return nil, err
		}
		reached += countNodes(node)
		roots = append(roots, node)
	}
	// accounts never reached from a root hang off a cycle
	if reached != len(tree.byId) {
		return nil, utils.NewValidationError("parent_id", "chart of accounts contains a cycle or orphaned accounts")
	}
	return roots, nil
}

func countNodes(node *AccountBalance) int {
	n := 1
	for _, c := range node.Children {
		n += countNodes(c)
	}
	return n
}
