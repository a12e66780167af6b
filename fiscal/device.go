// Package fiscal talks to the fiscal printer that registers each sale for tax purposes.
package fiscal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDeviceUnavailable is matched by every failure to reach the device or get a usable answer.
// Callers treat it as "offer the offline path", never as a fatal error.
var ErrDeviceUnavailable = errors.New("fiscal device unavailable")

// ErrNoDeviceConfigured means no register has a device IP.
var ErrNoDeviceConfigured = errors.New("no fiscal device configured")

const (
	OperationSale       = "sale"
	OperationOpenShift  = "openShift"
	OperationCloseShift = "closeShift"
	OperationXReport    = "getXReport"

	SuccessMessage = "Success operation"
)

// Target addresses one device and the credentials it expects in the envelope.
type Target struct {
	IP       string
	Username string
	Password string
}

type SaleItem struct {
	Name          string
	Code          string
	Quantity      decimal.Decimal
	SalePrice     decimal.Decimal
	PurchasePrice decimal.Decimal
	CodeType      int
	QuantityType  QuantityType
	VatType       VatType
}

type SaleRequest struct {
	Items          []SaleItem
	CashPayment    decimal.Decimal
	CardPayment    decimal.Decimal
	CreditPayment  decimal.Decimal
	DepositPayment decimal.Decimal
	BonusPayment   decimal.Decimal
	ClientName     string
	CashierName    string
	Currency       string
}

// DocumentIds are issued by the device for a registered sale.
type DocumentIds struct {
	DocumentId      string
	ShortDocumentId string
}

type Device interface {
	Sale(ctx context.Context, target Target, req SaleRequest) (DocumentIds, error)
	OpenShift(ctx context.Context, target Target) error
	CloseShift(ctx context.Context, target Target) error
	XReport(ctx context.Context, target Target) (json.RawMessage, error)
}

// DeviceError keeps the operation and cause while still matching ErrDeviceUnavailable.
type DeviceError struct {
	Operation string
	Err       error
}

func (e *DeviceError) Error() string {
	return "fiscal " + e.Operation + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() []error {
	return []error{ErrDeviceUnavailable, e.Err}
}
