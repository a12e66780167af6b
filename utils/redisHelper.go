package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// check if model has expiration date
func typeHasExpiration(typeName string) bool {
	expirableTypes := map[string]bool{
		"Product":         true,
		"ProductCategory": true,
		"ProductUnit":     true,
	}
	return expirableTypes[typeName]
}

func redisItemKey[T any](id int) string {
	return GetTypeName[T]() + ":" + fmt.Sprint(id)
}

func redisListKey[T any]() string {
	return GetTypeName[T]() + "List"
}

// store instance, obj should be a pointer
func StoreRedis[T any](obj *T, id int) error {
	typeName := GetTypeName[T]()
	var duration time.Duration
	if typeHasExpiration(typeName) {
		duration = GetCacheLifespan()
	}
	return config.SetRedisObject(redisItemKey[T](id), obj, duration)
}

func StoreRedisList[T any](obj []*T) error {
	var duration time.Duration
	if typeHasExpiration(GetTypeName[T]()) {
		duration = GetCacheLifespan()
	}
	return config.SetRedisObject(redisListKey[T](), obj, duration)
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result T
	exists, err := config.GetRedisObject(redisItemKey[T](id), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &result, nil
}

func RetrieveRedisList[T any]() ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(redisListKey[T](), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove an instance, Type:$id, and the Type list it belongs to
func RemoveRedisItem[T any](ids ...int) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, redisItemKey[T](id))
	}
	keys = append(keys, redisListKey[T]())
	return config.RemoveRedisKey(keys...)
}
