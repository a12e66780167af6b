package models

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// first find in redis, then in db, cache result
// (may return RecordNotFound error)
func GetResource[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		config.LogError(config.GetLogger(), "Generics", "GetResource", "redis read", id, err)
		result = nil
	}
	if result != nil {
		return result, nil
	}
	// fetch from db
	result, err = utils.FetchModel[T](ctx, id, associations...)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[T](result, id); err != nil {
		config.LogError(config.GetLogger(), "Generics", "GetResource", "redis write", id, err)
	}
	return result, nil
}

// list all resources, redis or db, cache result
func ListAllResource[T any](ctx context.Context, orders ...string) ([]*T, error) {
	results, err := utils.RetrieveRedisList[T]()
	if err != nil {
		config.LogError(config.GetLogger(), "Generics", "ListAllResource", "redis read", nil, err)
		results = nil
	}
	if results != nil {
		return results, nil
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if len(orders) == 0 {
		orders = []string{"id"}
	}
	for _, order := range orders {
		dbCtx = dbCtx.Order(order)
	}
	var model T
	if err = dbCtx.Model(&model).Find(&results).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList[T](results); err != nil {
		config.LogError(config.GetLogger(), "Generics", "ListAllResource", "redis write", nil, err)
	}
	return results, nil
}
