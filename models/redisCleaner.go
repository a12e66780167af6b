package models

import (
	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// RedisCleaner drops the cached copy of one entity and the list it appears in.
type RedisCleaner interface {
	RemoveRedis() error
}

// invalidate runs every cleaner and logs failures; a stale cache never fails a committed write.
func invalidate(cleaners ...RedisCleaner) {
	for _, c := range cleaners {
		if err := c.RemoveRedis(); err != nil {
			config.LogError(config.GetLogger(), "RedisCleaner", "invalidate", "remove cache", c, err)
		}
	}
}

type productCacheIds []int

func (ids productCacheIds) RemoveRedis() error {
	if len(ids) == 0 {
		return nil
	}
	return utils.RemoveRedisItem[Product](ids...)
}

type customerCacheIds []int

func (ids customerCacheIds) RemoveRedis() error {
	if len(ids) == 0 {
		return nil
	}
	return utils.RemoveRedisItem[Customer](ids...)
}

type supplierCacheIds []int

func (ids supplierCacheIds) RemoveRedis() error {
	if len(ids) == 0 {
		return nil
	}
	return utils.RemoveRedisItem[Supplier](ids...)
}

func (obj Product) RemoveRedis() error {
	return utils.RemoveRedisItem[Product](obj.ID)
}

func (obj ProductCategory) RemoveRedis() error {
	return utils.RemoveRedisItem[ProductCategory](obj.ID)
}

func (obj ProductUnit) RemoveRedis() error {
	return utils.RemoveRedisItem[ProductUnit](obj.ID)
}

func (obj Customer) RemoveRedis() error {
	return utils.RemoveRedisItem[Customer](obj.ID)
}

func (obj Supplier) RemoveRedis() error {
	return utils.RemoveRedisItem[Supplier](obj.ID)
}

func (obj Location) RemoveRedis() error {
	return utils.RemoveRedisItem[Location](obj.ID)
}

func (obj CashRegister) RemoveRedis() error {
	return utils.RemoveRedisItem[CashRegister](obj.ID)
}

func (obj ExpenseCategory) RemoveRedis() error {
	return utils.RemoveRedisItem[ExpenseCategory](obj.ID)
}

func (obj BankAccount) RemoveRedis() error {
	return utils.RemoveRedisItem[BankAccount](obj.ID)
}

func (obj Account) RemoveRedis() error {
	return utils.RemoveRedisItem[Account](obj.ID)
}
