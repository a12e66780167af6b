package middlewares

import (
	"context"
	"reflect"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch the per-row lookups a single request makes while it renders lists.
type Loaders struct {
	productLoader     *dataloader.Loader[int, *models.Product]
	productUnitLoader *dataloader.Loader[int, *models.ProductUnit]
	customerLoader    *dataloader.Loader[int, *models.Customer]
	supplierLoader    *dataloader.Loader[int, *models.Supplier]
	locationLoader    *dataloader.Loader[int, *models.Location]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	productReader := &productReader{db: conn}
	productUnitReader := &productUnitReader{db: conn}
	customerReader := &customerReader{db: conn}
	supplierReader := &supplierReader{db: conn}
	locationReader := &locationReader{db: conn}

	return &Loaders{
		productLoader:     dataloader.NewBatchedLoader(productReader.getProducts, dataloader.WithWait[int, *models.Product](time.Millisecond)),
		productUnitLoader: dataloader.NewBatchedLoader(productUnitReader.getProductUnits, dataloader.WithWait[int, *models.ProductUnit](time.Millisecond)),
		customerLoader:    dataloader.NewBatchedLoader(customerReader.getCustomers, dataloader.WithWait[int, *models.Customer](time.Millisecond)),
		supplierLoader:    dataloader.NewBatchedLoader(supplierReader.getSuppliers, dataloader.WithWait[int, *models.Supplier](time.Millisecond)),
		locationLoader:    dataloader.NewBatchedLoader(locationReader.getLocations, dataloader.WithWait[int, *models.Location](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := WithLoaders(c.Request.Context(), loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// For returns the request's loaders, creating fresh ones when the middleware did not run.
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return loaders
	}
	return NewLoaders(config.GetDB())
}

func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	resultMap := make(map[int]T)
	var resultZero T
	resultMap[0] = resultZero.GetDefault(0).(T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}

// readByIds is the shared batch function body: one IN query, results in key order.
func readByIds[T models.Data](ctx context.Context, db *gorm.DB, ids []int, associations ...string) []*dataloader.Result[*T] {
	dbCtx := db.WithContext(ctx)
	for _, a := range associations {
		dbCtx = dbCtx.Preload(a)
	}
	var results []T
	if err := dbCtx.Where("id IN ?", ids).Find(&results).Error; err != nil {
		return handleError[*T](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}
