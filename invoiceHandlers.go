package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/gin-gonic/gin"
)

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.InvoiceFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
			return
		}
		if filter.EndDate != nil {
			end := endOfDay(*filter.EndDate)
			filter.EndDate = &end
		}
		invoices, err := models.ListInvoices(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	}
}

type invoiceLine struct {
	models.InvoiceItem
	ProductCode string `json:"product_code"`
	Barcode     string `json:"barcode"`
	UnitName    string `json:"unit_name"`
}

type invoiceDetail struct {
	*models.Invoice
	Lines        []invoiceLine `json:"lines"`
	LocationName string        `json:"location_name"`
	PartnerPhone string        `json:"partner_phone"`
}

// invoiceDetailHandler returns the invoice with catalog codes per line for receipt printing.
func invoiceDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		invoice, err := models.GetInvoice(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		ids := make([]int, 0, len(invoice.Items))
		for _, item := range invoice.Items {
			ids = append(ids, item.ProductId)
		}
		products, errs := middlewares.GetProducts(ctx, ids)
		detail := invoiceDetail{Invoice: invoice}
		for i, item := range invoice.Items {
			line := invoiceLine{InvoiceItem: item}
			if i < len(errs) && errs[i] != nil {
				respondError(c, errs[i])
				return
			}
			if i < len(products) && products[i] != nil {
				line.ProductCode = products[i].Code
				line.Barcode = products[i].Barcode
				if products[i].UnitId > 0 {
					if unit, err := middlewares.GetProductUnit(ctx, products[i].UnitId); err == nil {
						line.UnitName = unit.Name
					}
				}
			}
			detail.Lines = append(detail.Lines, line)
		}
		if location, err := middlewares.GetLocation(ctx, invoice.LocationId); err == nil {
			detail.LocationName = location.Name
		}
		if invoice.PartnerId > 0 {
			if invoice.Type.IsCustomerSide() {
				if customer, err := middlewares.GetCustomer(ctx, invoice.PartnerId); err == nil {
					detail.PartnerPhone = customer.Phone
				}
			} else if supplier, err := middlewares.GetSupplier(ctx, invoice.PartnerId); err == nil {
				detail.PartnerPhone = supplier.Phone
			}
		}
		c.JSON(http.StatusOK, detail)
	}
}

func voidInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c)
		if !ok {
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if !bindJSON(c, &body) {
			return
		}
		invoice, err := models.VoidInvoice(c.Request.Context(), id, body.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}
