package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/gin-gonic/gin"
)

func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ProductFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
			return
		}
		products, err := models.ListProducts(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func productByCodeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := models.GetProductByCode(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func toggleProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c)
		if !ok {
			return
		}
		var body struct {
			IsActive bool `json:"is_active"`
		}
		if !bindJSON(c, &body) {
			return
		}
		product, err := models.ToggleActiveProduct(c.Request.Context(), id, body.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
