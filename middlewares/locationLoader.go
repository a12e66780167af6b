package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type locationReader struct {
	db *gorm.DB
}

func (r *locationReader) getLocations(ctx context.Context, ids []int) []*dataloader.Result[*models.Location] {
	return readByIds[models.Location](ctx, r.db, ids)
}

func GetLocation(ctx context.Context, id int) (*models.Location, error) {
	loaders := For(ctx)
	return loaders.locationLoader.Load(ctx, id)()
}
