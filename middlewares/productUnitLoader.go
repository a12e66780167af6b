package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type productUnitReader struct {
	db *gorm.DB
}

func (r *productUnitReader) getProductUnits(ctx context.Context, ids []int) []*dataloader.Result[*models.ProductUnit] {
	return readByIds[models.ProductUnit](ctx, r.db, ids)
}

func GetProductUnit(ctx context.Context, id int) (*models.ProductUnit, error) {
	loaders := For(ctx)
	return loaders.productUnitLoader.Load(ctx, id)()
}
