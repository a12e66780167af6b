package models

import "bitbucket.org/mmdatafocus/pos_backend/utils"

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

func (p Product) GetId() int {
	return p.ID
}

func (p Product) GetDefault(id int) Data {
	return Product{ID: id, IsActive: utils.NewFalse(), IsVatInclusive: utils.NewTrue()}
}

func (c Customer) GetId() int {
	return c.ID
}

func (c Customer) GetDefault(id int) Data {
	return Customer{ID: id}
}

func (s Supplier) GetId() int {
	return s.ID
}

func (s Supplier) GetDefault(id int) Data {
	return Supplier{ID: id}
}

func (l Location) GetId() int {
	return l.ID
}

func (l Location) GetDefault(id int) Data {
	return Location{ID: id}
}

func (u ProductUnit) GetId() int {
	return u.ID
}

func (u ProductUnit) GetDefault(id int) Data {
	return ProductUnit{ID: id}
}
