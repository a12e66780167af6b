package fiscal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestDevice(t *testing.T, timeout time.Duration, handler http.HandlerFunc) (*HTTPDevice, Target) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return NewHTTPDevice(timeout, port), Target{IP: host, Username: "cashier", Password: "secret"}
}

func TestSaleSendsEnvelopeAndReadsDocumentIds(t *testing.T) {
	var got map[string]any
	dev, target := newTestDevice(t, time.Second, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"code":0,"message":"Success operation","data":{"document_id":"DOC-1","short_document_id":"S1"}}`))
	})

	ids, err := dev.Sale(context.Background(), target, SaleRequest{
		Items: []SaleItem{{
			Name:         "Apple",
			Code:         "A1",
			Quantity:     decimal.NewFromInt(2),
			SalePrice:    decimal.RequireFromString("1.50"),
			QuantityType: QuantityKilogram,
			VatType:      VatStandard,
		}},
		CashPayment: decimal.RequireFromString("3.00"),
		Currency:    "AZN",
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if ids.DocumentId != "DOC-1" || ids.ShortDocumentId != "S1" {
		t.Fatalf("unexpected ids %+v", ids)
	}
	if got["operation"] != OperationSale || got["username"] != "cashier" || got["password"] != "secret" {
		t.Fatalf("unexpected envelope %v", got)
	}
	data, ok := got["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data in envelope")
	}
	if data["cashPayment"].(float64) != 3 {
		t.Fatalf("cashPayment=%v", data["cashPayment"])
	}
	items := data["items"].([]any)
	item := items[0].(map[string]any)
	if item["quantityType"].(float64) != float64(QuantityKilogram) || item["salePrice"].(float64) != 1.5 {
		t.Fatalf("unexpected item %v", item)
	}
}

func TestSaleTimeoutIsDeviceUnavailable(t *testing.T) {
	dev, target := newTestDevice(t, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	_, err := dev.Sale(context.Background(), target, SaleRequest{})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestSaleRejectedByDevice(t *testing.T) {
	dev, target := newTestDevice(t, time.Second, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":1,"message":"Shift is closed"}`))
	})
	_, err := dev.Sale(context.Background(), target, SaleRequest{})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestMissingIPIsDeviceUnavailable(t *testing.T) {
	dev := NewHTTPDevice(time.Second, 5544)
	err := dev.OpenShift(context.Background(), Target{})
	if !errors.Is(err, ErrDeviceUnavailable) || !errors.Is(err, ErrNoDeviceConfigured) {
		t.Fatalf("unexpected err %v", err)
	}
}

func TestShiftOperationsRequireSuccessMessage(t *testing.T) {
	dev, target := newTestDevice(t, time.Second, func(w http.ResponseWriter, r *http.Request) {
		var env map[string]any
		_ = json.NewDecoder(r.Body).Decode(&env)
		if env["operation"] == OperationCloseShift {
			w.Write([]byte(`{"message":"Shift already closed"}`))
			return
		}
		w.Write([]byte(`{"message":"Success operation","data":{"total":10}}`))
	})
	if err := dev.OpenShift(context.Background(), target); err != nil {
		t.Fatalf("open shift: %v", err)
	}
	if err := dev.CloseShift(context.Background(), target); err == nil {
		t.Fatalf("expected close shift failure")
	}
	report, err := dev.XReport(context.Background(), target)
	if err != nil || len(report) == 0 {
		t.Fatalf("x report: %v %s", err, report)
	}
}

func TestClassifyUnit(t *testing.T) {
	cases := map[string]QuantityType{
		"":             QuantityPiece,
		"ədəd":         QuantityPiece,
		"Kilogram":     QuantityKilogram,
		"kq":           QuantityKilogram,
		"Liter":        QuantityLiter,
		"l":            QuantityLiter,
		"meter":        QuantityMeter,
		"m":            QuantityMeter,
		"m2":           QuantitySquareMeter,
		"square meter": QuantitySquareMeter,
		"m³":           QuantityCubicMeter,
		"cubic metre":  QuantityCubicMeter,
	}
	for name, want := range cases {
		if got := ClassifyUnit(name); got != want {
			t.Fatalf("ClassifyUnit(%q)=%d, want %d", name, got, want)
		}
	}
}
