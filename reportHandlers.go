package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func balanceSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start, ok := queryDate(c, "start_date", time.Time{})
		if !ok {
			return
		}
		end, ok := queryDate(c, "end_date", time.Now().UTC())
		if !ok {
			return
		}
		report, err := reports.GetBalanceSheetReport(c.Request.Context(), start, endOfDay(end))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func stockLevelsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locationId, _ := strconv.Atoi(c.Query("location_id"))
		report, err := reports.GetStockSummaryReport(c.Request.Context(), locationId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func partnerBalancesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.GetPartnerBalancesReport(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
