package main

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/gin-gonic/gin"
)

func checkoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCheckout
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.InitiateCheckout(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusCreated
		if result.Status == models.CheckoutStatusOfflineDecisionRequired {
			status = http.StatusAccepted
		}
		c.JSON(status, result)
	}
}

func confirmOfflineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := models.ConfirmOfflineCheckout(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func cancelPendingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.CancelPendingCheckout(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// registerParam is the register in the path. Routes without one act on the caller's register (0).
func registerParam(c *gin.Context) (int, bool) {
	if c.Param("id") == "" {
		return 0, true
	}
	return paramId(c)
}

func shiftHandler(fn func(context.Context, int) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := registerParam(c)
		if !ok {
			return
		}
		if err := fn(c.Request.Context(), id); err != nil {
			respondDeviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	}
}

func xReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := registerParam(c)
		if !ok {
			return
		}
		report, err := models.GetRegisterXReport(c.Request.Context(), id)
		if err != nil {
			respondDeviceError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", report)
	}
}
