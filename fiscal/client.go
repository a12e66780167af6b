package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPDevice speaks the JSON envelope protocol over plain HTTP on a fixed port.
type HTTPDevice struct {
	port int
	http *http.Client
}

func NewHTTPDevice(timeout time.Duration, port int) *HTTPDevice {
	return &HTTPDevice{
		port: port,
		http: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Data      any    `json:"data"`
	Operation string `json:"operation"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type saleItemPayload struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Quantity      float64 `json:"quantity"`
	SalePrice     float64 `json:"salePrice"`
	PurchasePrice float64 `json:"purchasePrice"`
	CodeType      int     `json:"codeType"`
	QuantityType  int     `json:"quantityType"`
	VatType       int     `json:"vatType"`
}

type salePayload struct {
	CashPayment    float64           `json:"cashPayment"`
	CardPayment    float64           `json:"cardPayment"`
	CreditPayment  float64           `json:"creditPayment"`
	DepositPayment float64           `json:"depositPayment"`
	BonusPayment   float64           `json:"bonusPayment"`
	Items          []saleItemPayload `json:"items"`
	ClientName     string            `json:"clientName"`
	CashierName    string            `json:"cashierName"`
	Currency       string            `json:"currency"`
}

type deviceResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type saleResponseData struct {
	DocumentId      string `json:"document_id"`
	ShortDocumentId string `json:"short_document_id"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func newSalePayload(req SaleRequest) salePayload {
	items := make([]saleItemPayload, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, saleItemPayload{
			Name:          it.Name,
			Code:          it.Code,
			Quantity:      it.Quantity.InexactFloat64(),
			SalePrice:     money(it.SalePrice),
			PurchasePrice: money(it.PurchasePrice),
			CodeType:      it.CodeType,
			QuantityType:  int(it.QuantityType),
			VatType:       int(it.VatType),
		})
	}
	return salePayload{
		CashPayment:    money(req.CashPayment),
		CardPayment:    money(req.CardPayment),
		CreditPayment:  money(req.CreditPayment),
		DepositPayment: money(req.DepositPayment),
		BonusPayment:   money(req.BonusPayment),
		Items:          items,
		ClientName:     req.ClientName,
		CashierName:    req.CashierName,
		Currency:       req.Currency,
	}
}

func (d *HTTPDevice) Sale(ctx context.Context, target Target, req SaleRequest) (DocumentIds, error) {
	resp, err := d.call(ctx, target, OperationSale, newSalePayload(req))
	if err != nil {
		return DocumentIds{}, err
	}
	var data saleResponseData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return DocumentIds{}, &DeviceError{Operation: OperationSale, Err: err}
		}
	}
	if data.DocumentId == "" {
		msg := resp.Message
		if msg == "" {
			msg = "sale rejected by device"
		}
		return DocumentIds{}, &DeviceError{Operation: OperationSale, Err: errors.New(msg)}
	}
	return DocumentIds{DocumentId: data.DocumentId, ShortDocumentId: data.ShortDocumentId}, nil
}

func (d *HTTPDevice) OpenShift(ctx context.Context, target Target) error {
	return d.expectSuccess(ctx, target, OperationOpenShift)
}

func (d *HTTPDevice) CloseShift(ctx context.Context, target Target) error {
	return d.expectSuccess(ctx, target, OperationCloseShift)
}

func (d *HTTPDevice) XReport(ctx context.Context, target Target) (json.RawMessage, error) {
	resp, err := d.call(ctx, target, OperationXReport, struct{}{})
	if err != nil {
		return nil, err
	}
	if resp.Message != SuccessMessage {
		return nil, &DeviceError{Operation: OperationXReport, Err: errors.New(resp.Message)}
	}
	return resp.Data, nil
}

func (d *HTTPDevice) expectSuccess(ctx context.Context, target Target, operation string) error {
	resp, err := d.call(ctx, target, operation, struct{}{})
	if err != nil {
		return err
	}
	if resp.Message != SuccessMessage {
		return &DeviceError{Operation: operation, Err: errors.New(resp.Message)}
	}
	return nil
}

func (d *HTTPDevice) endpoint(ip string) string {
	return fmt.Sprintf("http://%s:%d/", ip, d.port)
}

func (d *HTTPDevice) call(ctx context.Context, target Target, operation string, data any) (deviceResponse, error) {
	if strings.TrimSpace(target.IP) == "" {
		return deviceResponse{}, &DeviceError{Operation: operation, Err: ErrNoDeviceConfigured}
	}
	body, err := json.Marshal(envelope{
		Data:      data,
		Operation: operation,
		Username:  target.Username,
		Password:  target.Password,
	})
	if err != nil {
		return deviceResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint(target.IP), bytes.NewReader(body))
	if err != nil {
		return deviceResponse{}, &DeviceError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return deviceResponse{}, &DeviceError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return deviceResponse{}, &DeviceError{
			Operation: operation,
			Err:       fmt.Errorf("device http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}
	var parsed deviceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return deviceResponse{}, &DeviceError{Operation: operation, Err: err}
	}
	return parsed, nil
}
