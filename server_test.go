package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/fiscal"
	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := config.OpenDatabase(config.DriverSQLite, fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	config.SetDB(conn)
	if err := models.MigrateTable(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	return newRouter(config.GetLogger())
}

func doRequest(r http.Handler, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRespondErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		key    string
		want   string
	}{
		{"validation", utils.NewValidationError("quantity", "must be positive"), http.StatusBadRequest, "field", "quantity"},
		{"not found", fmt.Errorf("load: %w", utils.ErrorRecordNotFound), http.StatusNotFound, "", ""},
		{"forbidden", utils.ErrForbidden, http.StatusForbidden, "", ""},
		{"commit step", &utils.CommitStepError{Step: "stock", Err: errors.New("disk full")}, http.StatusInternalServerError, "step", "stock"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			if w.Code != tc.status {
				t.Fatalf("status: got %d, want %d", w.Code, tc.status)
			}
			if tc.key == "" {
				return
			}
			if got := decodeBody(t, w)[tc.key]; got != tc.want {
				t.Fatalf("%s: got %v, want %s", tc.key, got, tc.want)
			}
		})
	}
}

func TestHealthzAndUnknownRoute(t *testing.T) {
	r := setupRouter(t)
	if w := doRequest(r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("healthz: got %d", w.Code)
	}
	w := doRequest(r, http.MethodGet, "/api/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: got %d", w.Code)
	}
	if w.Header().Get(middlewares.HeaderCorrelationId) == "" {
		t.Fatalf("missing correlation id header")
	}
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodPost, "/api/checkout", "{", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestCheckoutWithoutRegisterThenConfirmOffline(t *testing.T) {
	r := setupRouter(t)
	ctx := utils.SetUserNameInContext(t.Context(), "tester")
	location, err := models.GetPrimaryLocation(ctx)
	if err != nil {
		t.Fatalf("GetPrimaryLocation: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Code:          "HTTP-1",
		Name:          "Water",
		SalesPrice:    decimal.NewFromInt(2),
		OpeningStocks: []models.NewOpeningStock{{LocationId: location.ID, Qty: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	body := fmt.Sprintf(`{"payment_method":"CASH","tendered_amount":"5","items":[{"product_id":%d,"quantity":"2"}]}`, product.ID)
	w := doRequest(r, http.MethodPost, "/api/checkout", body, map[string]string{middlewares.HeaderUserName: "cashier"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("checkout: got %d, body %s", w.Code, w.Body.String())
	}
	pendingId, _ := decodeBody(t, w)["pending_checkout_id"].(string)
	if pendingId == "" {
		t.Fatalf("missing pending checkout id: %s", w.Body.String())
	}

	w = doRequest(r, http.MethodPost, "/api/checkout/"+pendingId+"/confirm-offline", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm: got %d, body %s", w.Code, w.Body.String())
	}
	invoice, _ := decodeBody(t, w)["invoice"].(map[string]any)
	if invoice["fiscal_status"] != string(models.FiscalStatusOffline) {
		t.Fatalf("fiscal status: got %v", invoice["fiscal_status"])
	}

	w = doRequest(r, http.MethodPost, "/api/checkout/"+pendingId+"/confirm-offline", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second confirm: got %d", w.Code)
	}
}

func TestDeleteTransactionRequiresAdmin(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodDelete, "/api/transactions/1", "", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin: got %d", w.Code)
	}
	w = doRequest(r, http.MethodDelete, "/api/transactions/1", "", map[string]string{middlewares.HeaderIsAdmin: "true"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("admin on missing row: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestEndOfDayKeepsTheLastSecond(t *testing.T) {
	day := time.Date(2026, time.March, 10, 8, 30, 0, 0, time.UTC)
	end := endOfDay(day)
	last := time.Date(2026, time.March, 10, 23, 59, 59, 999_000_000, time.UTC)
	if end.Before(last) {
		t.Fatalf("end of day %s excludes %s", end, last)
	}
	if next := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC); !end.Before(next) {
		t.Fatalf("end of day %s reaches into the next day", end)
	}
}

func TestListTransactionsEndDateIsInclusive(t *testing.T) {
	r := setupRouter(t)
	ctx := utils.SetUserNameInContext(t.Context(), "tester")
	for _, date := range []time.Time{
		time.Date(2026, time.March, 10, 23, 59, 59, 500_000_000, time.UTC),
		time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC),
	} {
		_, err := models.CreateTransaction(ctx, &models.NewTransaction{
			Date:     date,
			Type:     models.TransactionTypeIncome,
			Category: "Sales",
			Amount:   decimal.NewFromInt(5),
			Source:   models.TransactionSourceCashRegister,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	w := doRequest(r, http.MethodGet, "/api/transactions?end_date=2026-03-10", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows up to 2026-03-10: got %d, want 1", len(rows))
	}
}

// shiftDevice records the targets of shift operations.
type shiftDevice struct {
	targets []fiscal.Target
}

func (d *shiftDevice) Sale(ctx context.Context, target fiscal.Target, req fiscal.SaleRequest) (fiscal.DocumentIds, error) {
	return fiscal.DocumentIds{}, &fiscal.DeviceError{Operation: fiscal.OperationSale, Err: errors.New("not used")}
}

func (d *shiftDevice) OpenShift(ctx context.Context, target fiscal.Target) error {
	d.targets = append(d.targets, target)
	return nil
}

func (d *shiftDevice) CloseShift(ctx context.Context, target fiscal.Target) error {
	d.targets = append(d.targets, target)
	return nil
}

func (d *shiftDevice) XReport(ctx context.Context, target fiscal.Target) (json.RawMessage, error) {
	d.targets = append(d.targets, target)
	return json.RawMessage(`{"target":"` + target.IP + `"}`), nil
}

func TestShiftRoutesUseCallersRegister(t *testing.T) {
	r := setupRouter(t)
	device := &shiftDevice{}
	models.SetFiscalDeviceProvider(func() fiscal.Device { return device })
	t.Cleanup(func() { models.SetFiscalDeviceProvider(nil) })

	ctx := utils.SetUserNameInContext(t.Context(), "tester")
	if _, err := models.CreateCashRegister(ctx, &models.NewCashRegister{Name: "Till 1", DeviceIp: "10.0.0.5"}); err != nil {
		t.Fatalf("CreateCashRegister: %v", err)
	}
	own, err := models.CreateCashRegister(ctx, &models.NewCashRegister{
		Name:           "Till 2",
		DeviceIp:       "10.0.0.6",
		DeviceUsername: "admin",
		DevicePassword: "s3cret",
	})
	if err != nil {
		t.Fatalf("CreateCashRegister: %v", err)
	}
	session := map[string]string{middlewares.HeaderRegisterId: fmt.Sprint(own.ID)}

	if w := doRequest(r, http.MethodPost, "/api/shift/open", "", session); w.Code != http.StatusOK {
		t.Fatalf("open shift: got %d, body %s", w.Code, w.Body.String())
	}
	w := doRequest(r, http.MethodGet, "/api/shift/x-report", "", session)
	if w.Code != http.StatusOK || decodeBody(t, w)["target"] != "10.0.0.6" {
		t.Fatalf("x-report: got %d, body %s", w.Code, w.Body.String())
	}
	if len(device.targets) != 2 {
		t.Fatalf("device calls: got %d, want 2", len(device.targets))
	}
	for _, target := range device.targets {
		if target.IP != "10.0.0.6" || target.Password != "s3cret" {
			t.Fatalf("device target: got %+v", target)
		}
	}

	// without a session register the first register with a device serves
	if w := doRequest(r, http.MethodPost, "/api/shift/close", "", nil); w.Code != http.StatusOK {
		t.Fatalf("close shift: got %d, body %s", w.Code, w.Body.String())
	}
	if got := device.targets[2].IP; got != "10.0.0.5" {
		t.Fatalf("fallback register: got %s", got)
	}

	if w := doRequest(r, http.MethodPost, "/api/cash-registers/0/open-shift", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("explicit id 0: got %d", w.Code)
	}
}

func TestCashRegisterResponseHidesDevicePassword(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodPost, "/api/cash-registers",
		`{"name":"Till 1","device_ip":"10.0.0.5","device_username":"admin","device_password":"s3cret"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "s3cret") || strings.Contains(w.Body.String(), "device_password") {
		t.Fatalf("create response leaks the password: %s", w.Body.String())
	}
	created := decodeBody(t, w)
	if created["has_device_password"] != true {
		t.Fatalf("has_device_password: got %v", created["has_device_password"])
	}

	w = doRequest(r, http.MethodGet, fmt.Sprintf("/api/cash-registers/%v", created["id"]), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "s3cret") {
		t.Fatalf("get response leaks the password: %s", w.Body.String())
	}
	w = doRequest(r, http.MethodGet, "/api/cash-registers", "", nil)
	if strings.Contains(w.Body.String(), "s3cret") {
		t.Fatalf("list response leaks the password: %s", w.Body.String())
	}
}

func TestGraphQLEndpointUsesSession(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodPost, "/api/cash-registers",
		`{"name":"Till 1","device_ip":"10.0.0.5","device_password":"s3cret"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create register: got %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodPost, "/query",
		`{"query":"{ cashRegisters { name hasDevicePassword location { isPrimary } } }"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("query: got %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			CashRegisters []struct {
				Name              string `json:"name"`
				HasDevicePassword bool   `json:"hasDevicePassword"`
				Location          *struct {
					IsPrimary bool `json:"isPrimary"`
				} `json:"location"`
			} `json:"cashRegisters"`
		} `json:"data"`
		Errors []map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if len(resp.Errors) > 0 || len(resp.Data.CashRegisters) != 1 {
		t.Fatalf("unexpected response %s", w.Body.String())
	}
	if !resp.Data.CashRegisters[0].HasDevicePassword || strings.Contains(w.Body.String(), "s3cret") {
		t.Fatalf("unexpected register %s", w.Body.String())
	}

	deleteQuery := `{"query":"mutation { deleteInvoice(id: 1) { id } }"}`
	w = doRequest(r, http.MethodPost, "/query", deleteQuery, nil)
	if !strings.Contains(w.Body.String(), `"FORBIDDEN"`) {
		t.Fatalf("delete without the admin header should be forbidden: %s", w.Body.String())
	}
	w = doRequest(r, http.MethodPost, "/query", deleteQuery, map[string]string{middlewares.HeaderIsAdmin: "true"})
	if !strings.Contains(w.Body.String(), `"NOT_FOUND"`) {
		t.Fatalf("admin delete of a missing invoice should be not found: %s", w.Body.String())
	}
}
