package main

import (
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/gin-gonic/gin"
)

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.TransactionFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
			return
		}
		if filter.EndDate != nil {
			end := endOfDay(*filter.EndDate)
			filter.EndDate = &end
		}
		transactions, err := models.ListTransactions(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transactions)
	}
}

type transferView struct {
	*models.TransferDocument
	SourceLocationName string `json:"source_location_name"`
	TargetLocationName string `json:"target_location_name"`
}

func listTransfersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		transfers, err := models.ListTransfers(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		views := make([]transferView, 0, len(transfers))
		for _, t := range transfers {
			view := transferView{TransferDocument: t}
			if l, err := middlewares.GetLocation(ctx, t.SourceLocationId); err == nil {
				view.SourceLocationName = l.Name
			}
			if l, err := middlewares.GetLocation(ctx, t.TargetLocationId); err == nil {
				view.TargetLocationName = l.Name
			}
			views = append(views, view)
		}
		c.JSON(http.StatusOK, views)
	}
}

func accountBalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c)
		if !ok {
			return
		}
		start, ok := queryDate(c, "start_date", time.Time{})
		if !ok {
			return
		}
		end, ok := queryDate(c, "end_date", time.Now().UTC())
		if !ok {
			return
		}
		balance, err := models.ComputeBalance(c.Request.Context(), id, start, endOfDay(end))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"account_id": id, "balance": balance})
	}
}
