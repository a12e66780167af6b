package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/shopspring/decimal"
)

type gqlError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path"`
	Extensions map[string]interface{} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type session struct {
	admin bool
}

func setupGraph(t *testing.T) (*handler.Server, context.Context) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := config.OpenDatabase(config.DriverSQLite, fmt.Sprintf("file:graph_%s?mode=memory&cache=shared", name))
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

	srv := handler.New(NewExecutableSchema(Config{Resolvers: &Resolver{}}))
	srv.AddTransport(transport.POST{})
	srv.Use(extension.Introspection{})
	srv.SetErrorPresenter(PresentError)
	return srv, utils.SetUserNameInContext(context.Background(), "tester")
}

// exec posts one operation the way the router does: fresh loaders and the caller's session.
func exec(t *testing.T, srv http.Handler, s session, query string, variables map[string]interface{}) gqlResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middlewares.WithLoaders(req.Context(), middlewares.NewLoaders(config.GetDB()))
	ctx = utils.SetUserNameInContext(ctx, "tester")
	ctx = utils.SetIsAdminInContext(ctx, s.admin)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req.WithContext(ctx))

	var resp gqlResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func mustData(t *testing.T, resp gqlResponse, dest interface{}) {
	t.Helper()
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
}

func seedProduct(t *testing.T, ctx context.Context, code string, price string, qty string) (*models.Product, int) {
	t.Helper()
	primary, err := models.GetPrimaryLocation(ctx)
	if err != nil {
		t.Fatalf("GetPrimaryLocation: %v", err)
	}
	unit, err := models.CreateProductUnit(ctx, &models.NewProductUnit{Name: "Piece " + code, Abbreviation: "pc"})
	if err != nil {
		t.Fatalf("CreateProductUnit: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Code:          code,
		Name:          "Product " + code,
		UnitId:        unit.ID,
		SalesPrice:    decimal.RequireFromString(price),
		PurchasePrice: decimal.RequireFromString(price),
		OpeningStocks: []models.NewOpeningStock{{LocationId: primary.ID, Qty: decimal.RequireFromString(qty)}},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return product, primary.ID
}

func TestProductsQueryResolvesRelations(t *testing.T) {
	srv, ctx := setupGraph(t)
	seedProduct(t, ctx, "P-1", "2.5", "10")
	_, primaryId := seedProduct(t, ctx, "P-2", "4", "3")

	resp := exec(t, srv, session{}, `query($loc: Int!) {
		products(filter: {search: "P-"}) {
			code
			salesPrice
			isVatInclusive
			isActive
			stock
			stockAt(locationId: $loc)
			unit { abbreviation }
			stocks { qty location { name isPrimary } }
		}
	}`, map[string]interface{}{"loc": primaryId})

	var data struct {
		Products []struct {
			Code           string `json:"code"`
			SalesPrice     string `json:"salesPrice"`
			IsVatInclusive bool   `json:"isVatInclusive"`
			IsActive       bool   `json:"isActive"`
			Stock          string `json:"stock"`
			StockAt        string `json:"stockAt"`
			Unit           *struct {
				Abbreviation string `json:"abbreviation"`
			} `json:"unit"`
			Stocks []struct {
				Qty      string `json:"qty"`
				Location *struct {
					Name      string `json:"name"`
					IsPrimary bool   `json:"isPrimary"`
				} `json:"location"`
			} `json:"stocks"`
		} `json:"products"`
	}
	mustData(t, resp, &data)
	if len(data.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(data.Products))
	}
	p := data.Products[0]
	if p.Code != "P-1" || p.SalesPrice != "2.5" || p.Stock != "10" || p.StockAt != "10" {
		t.Fatalf("unexpected product %+v", p)
	}
	if !p.IsVatInclusive || !p.IsActive {
		t.Fatalf("flags should default to true: %+v", p)
	}
	if p.Unit == nil || p.Unit.Abbreviation != "pc" {
		t.Fatalf("unit not resolved: %+v", p.Unit)
	}
	if len(p.Stocks) != 1 || p.Stocks[0].Location == nil || !p.Stocks[0].Location.IsPrimary {
		t.Fatalf("stock location not resolved: %+v", p.Stocks)
	}
}

func TestCheckoutOfflineThenConfirm(t *testing.T) {
	srv, ctx := setupGraph(t)
	product, primaryId := seedProduct(t, ctx, "C-1", "3", "10")

	// no register has a device, so the sale needs the cashier's offline decision
	resp := exec(t, srv, session{}, `mutation($input: NewCheckout!) {
		checkout(input: $input) { status pendingCheckoutId deviceError invoice { id } }
	}`, map[string]interface{}{"input": map[string]interface{}{
		"paymentMethod":  "CASH",
		"tenderedAmount": "10",
		"items":          []interface{}{map[string]interface{}{"productId": product.ID, "quantity": "2"}},
	}})
	var started struct {
		Checkout struct {
			Status            string           `json:"status"`
			PendingCheckoutId string           `json:"pendingCheckoutId"`
			DeviceError       string           `json:"deviceError"`
			Invoice           *json.RawMessage `json:"invoice"`
		} `json:"checkout"`
	}
	mustData(t, resp, &started)
	if started.Checkout.Status != "OFFLINE_DECISION_REQUIRED" || started.Checkout.PendingCheckoutId == "" {
		t.Fatalf("unexpected checkout result %+v", started.Checkout)
	}
	if started.Checkout.DeviceError == "" || started.Checkout.Invoice != nil {
		t.Fatalf("nothing should be committed before the decision: %+v", started.Checkout)
	}

	resp = exec(t, srv, session{}, `mutation($id: String!) {
		confirmOfflineCheckout(pendingCheckoutId: $id) {
			status
			changeAmount
			invoice {
				type
				fiscalStatus
				total
				outstanding
				location { isPrimary }
				items { quantity product { code stockAt(locationId: `+fmt.Sprint(primaryId)+`) } }
			}
		}
	}`, map[string]interface{}{"id": started.Checkout.PendingCheckoutId})
	var confirmed struct {
		ConfirmOfflineCheckout struct {
			Status       string `json:"status"`
			ChangeAmount string `json:"changeAmount"`
			Invoice      struct {
				Type         string `json:"type"`
				FiscalStatus string `json:"fiscalStatus"`
				Total        string `json:"total"`
				Outstanding  string `json:"outstanding"`
				Location     struct {
					IsPrimary bool `json:"isPrimary"`
				} `json:"location"`
				Items []struct {
					Quantity string `json:"quantity"`
					Product  struct {
						Code    string `json:"code"`
						StockAt string `json:"stockAt"`
					} `json:"product"`
				} `json:"items"`
			} `json:"invoice"`
		} `json:"confirmOfflineCheckout"`
	}
	mustData(t, resp, &confirmed)
	result := confirmed.ConfirmOfflineCheckout
	if result.Status != "COMPLETED" || result.ChangeAmount != "4" {
		t.Fatalf("unexpected confirmation %+v", result)
	}
	inv := result.Invoice
	if inv.Type != "SALE" || inv.FiscalStatus != "OFFLINE" || inv.Total != "6" || inv.Outstanding != "0" {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if !inv.Location.IsPrimary || len(inv.Items) != 1 {
		t.Fatalf("unexpected invoice relations %+v", inv)
	}
	if inv.Items[0].Product.Code != "C-1" || inv.Items[0].Product.StockAt != "8" {
		t.Fatalf("stock should drop to 8: %+v", inv.Items[0])
	}
}

func TestValidationErrorsCarryField(t *testing.T) {
	srv, ctx := setupGraph(t)
	product, _ := seedProduct(t, ctx, "V-1", "3", "1")

	cases := []struct {
		name     string
		quantity string
		field    string
	}{
		{"short stock", "5", "quantity"},
		{"not a number", "lots", "quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := exec(t, srv, session{}, `mutation($input: NewCheckout!) { checkout(input: $input) { status } }`,
				map[string]interface{}{"input": map[string]interface{}{
					"paymentMethod":  "CASH",
					"tenderedAmount": "100",
					"items":          []interface{}{map[string]interface{}{"productId": product.ID, "quantity": tc.quantity}},
				}})
			if len(resp.Errors) != 1 {
				t.Fatalf("expected one error, got %+v", resp.Errors)
			}
			ext := resp.Errors[0].Extensions
			if ext["code"] != "BAD_USER_INPUT" || ext["field"] != tc.field {
				t.Fatalf("unexpected extensions %+v", ext)
			}
			if len(resp.Errors[0].Path) != 1 || resp.Errors[0].Path[0] != "checkout" {
				t.Fatalf("unexpected path %+v", resp.Errors[0].Path)
			}
		})
	}
}

func TestAdminOnlyMutation(t *testing.T) {
	srv, _ := setupGraph(t)

	resp := exec(t, srv, session{}, `mutation {
		createTransaction(input: {type: INCOME, amount: "25.50", source: CASH_REGISTER, description: "float"}) { id amount source }
	}`, nil)
	var created struct {
		CreateTransaction struct {
			Id     int    `json:"id"`
			Amount string `json:"amount"`
			Source string `json:"source"`
		} `json:"createTransaction"`
	}
	mustData(t, resp, &created)
	if created.CreateTransaction.Amount != "25.5" || created.CreateTransaction.Source != "CASH_REGISTER" {
		t.Fatalf("unexpected transaction %+v", created.CreateTransaction)
	}

	remove := fmt.Sprintf(`mutation { deleteTransaction(id: %d) { id } }`, created.CreateTransaction.Id)
	resp = exec(t, srv, session{}, remove, nil)
	if len(resp.Errors) != 1 || resp.Errors[0].Extensions["code"] != "FORBIDDEN" {
		t.Fatalf("cashier delete should be forbidden, got %+v", resp.Errors)
	}

	resp = exec(t, srv, session{admin: true}, remove, nil)
	var deleted struct {
		DeleteTransaction struct {
			Id int `json:"id"`
		} `json:"deleteTransaction"`
	}
	mustData(t, resp, &deleted)
	if deleted.DeleteTransaction.Id != created.CreateTransaction.Id {
		t.Fatalf("deleted the wrong row: %+v", deleted)
	}
}

func TestMissingRowIsNull(t *testing.T) {
	srv, _ := setupGraph(t)

	resp := exec(t, srv, session{}, `{ invoice(id: 404) { id } product(id: 404) { id } }`, nil)
	var data struct {
		Invoice *json.RawMessage `json:"invoice"`
		Product *json.RawMessage `json:"product"`
	}
	mustData(t, resp, &data)
	if data.Invoice != nil || data.Product != nil {
		t.Fatalf("expected nulls, got %s", resp.Data)
	}
}

func TestIntrospectionListsFields(t *testing.T) {
	srv, _ := setupGraph(t)

	resp := exec(t, srv, session{}, `{ __type(name: "Invoice") { name fields { name } } }`, nil)
	var data struct {
		Type struct {
			Name   string `json:"name"`
			Fields []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"__type"`
	}
	mustData(t, resp, &data)
	names := make(map[string]bool)
	for _, f := range data.Type.Fields {
		names[f.Name] = true
	}
	if data.Type.Name != "Invoice" || !names["outstanding"] || !names["fiscalStatus"] {
		t.Fatalf("unexpected introspection %+v", data.Type)
	}
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"productId":         "product_id",
		"bankAccountId":     "bank_account_id",
		"items":             "items",
		"pendingCheckoutId": "pending_checkout_id",
	}
	for in, want := range cases {
		if got := camelToSnake(in); got != want {
			t.Fatalf("camelToSnake(%s) = %s, want %s", in, got, want)
		}
	}
}
