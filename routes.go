package main

import (
	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/gin-gonic/gin"
)

func registerRoutes(api *gin.RouterGroup) {
	products := api.Group("/products")
	products.GET("", listProductsHandler())
	products.GET("/:id", byIdHandler(models.GetProduct))
	products.GET("/code/:code", productByCodeHandler())
	products.POST("", createHandler(models.CreateProduct))
	products.PUT("/:id", updateHandler(models.UpdateProduct))
	products.POST("/:id/toggle-active", toggleProductHandler())
	products.GET("/export", exportProductsHandler())
	products.POST("/import", importProductsHandler())

	categories := api.Group("/product-categories")
	categories.GET("", listHandler(models.ListProductCategories))
	categories.GET("/:id", byIdHandler(models.GetProductCategory))
	categories.POST("", createHandler(models.CreateProductCategory))
	categories.PUT("/:id", updateHandler(models.UpdateProductCategory))
	categories.DELETE("/:id", byIdHandler(models.DeleteProductCategory))

	units := api.Group("/product-units")
	units.GET("", listHandler(models.ListProductUnits))
	units.GET("/:id", byIdHandler(models.GetProductUnit))
	units.POST("", createHandler(models.CreateProductUnit))
	units.PUT("/:id", updateHandler(models.UpdateProductUnit))
	units.DELETE("/:id", byIdHandler(models.DeleteProductUnit))

	customers := api.Group("/customers")
	customers.GET("", listHandler(models.ListCustomers))
	customers.GET("/:id", byIdHandler(models.GetCustomer))
	customers.POST("", createHandler(models.CreateCustomer))
	customers.PUT("/:id", updateHandler(models.UpdateCustomer))
	customers.DELETE("/:id", byIdHandler(models.DeleteCustomer))

	suppliers := api.Group("/suppliers")
	suppliers.GET("", listHandler(models.ListSuppliers))
	suppliers.GET("/:id", byIdHandler(models.GetSupplier))
	suppliers.POST("", createHandler(models.CreateSupplier))
	suppliers.PUT("/:id", updateHandler(models.UpdateSupplier))
	suppliers.DELETE("/:id", byIdHandler(models.DeleteSupplier))

	locations := api.Group("/locations")
	locations.GET("", listHandler(models.ListLocations))
	locations.GET("/:id", byIdHandler(models.GetLocation))
	locations.POST("", createHandler(models.CreateLocation))
	locations.PUT("/:id", updateHandler(models.UpdateLocation))
	locations.DELETE("/:id", byIdHandler(models.DeleteLocation))

	registers := api.Group("/cash-registers")
	registers.GET("", listHandler(models.ListCashRegisters))
	registers.GET("/:id", byIdHandler(models.GetCashRegister))
	registers.POST("", createHandler(models.CreateCashRegister))
	registers.PUT("/:id", updateHandler(models.UpdateCashRegister))
	registers.DELETE("/:id", byIdHandler(models.DeleteCashRegister))
	registers.POST("/:id/open-shift", shiftHandler(models.OpenRegisterShift))
	registers.POST("/:id/close-shift", shiftHandler(models.CloseRegisterShift))
	registers.GET("/:id/x-report", xReportHandler())

	// the caller's own register, picked from the session
	shift := api.Group("/shift")
	shift.POST("/open", shiftHandler(models.OpenRegisterShift))
	shift.POST("/close", shiftHandler(models.CloseRegisterShift))
	shift.GET("/x-report", xReportHandler())

	expenseCategories := api.Group("/expense-categories")
	expenseCategories.GET("", listHandler(models.ListExpenseCategories))
	expenseCategories.POST("", createHandler(models.CreateExpenseCategory))
	expenseCategories.PUT("/:id", updateHandler(models.UpdateExpenseCategory))
	expenseCategories.DELETE("/:id", byIdHandler(models.DeleteExpenseCategory))

	banks := api.Group("/bank-accounts")
	banks.GET("", listHandler(models.ListBankAccounts))
	banks.GET("/:id", byIdHandler(models.GetBankAccount))
	banks.POST("", createHandler(models.CreateBankAccount))
	banks.PUT("/:id", updateHandler(models.UpdateBankAccount))
	banks.DELETE("/:id", byIdHandler(models.DeleteBankAccount))

	transactions := api.Group("/transactions")
	transactions.GET("", listTransactionsHandler())
	transactions.GET("/:id", byIdHandler(models.GetTransaction))
	transactions.POST("", createHandler(models.CreateTransaction))
	transactions.DELETE("/:id", middlewares.AdminOnly(), byIdHandler(models.DeleteTransaction))

	checkout := api.Group("/checkout")
	checkout.POST("", checkoutHandler())
	checkout.POST("/:id/confirm-offline", confirmOfflineHandler())
	checkout.POST("/:id/cancel", cancelPendingHandler())

	invoices := api.Group("/invoices")
	invoices.GET("", listInvoicesHandler())
	invoices.GET("/:id", invoiceDetailHandler())
	invoices.POST("", createHandler(models.CreateInvoice))
	invoices.POST("/returns", createHandler(models.CreateReturnInvoice))
	invoices.POST("/:id/payments", updateHandler(models.SettleInvoicePayment))
	invoices.POST("/:id/void", voidInvoiceHandler())
	invoices.DELETE("/:id", middlewares.AdminOnly(), byIdHandler(models.DeleteInvoice))

	transfers := api.Group("/transfers")
	transfers.GET("", listTransfersHandler())
	transfers.GET("/:id", byIdHandler(models.GetTransfer))
	transfers.POST("", createHandler(models.CreateTransfer))
	transfers.PUT("/:id", updateHandler(models.UpdateTransfer))
	transfers.DELETE("/:id", byIdHandler(models.DeleteTransfer))

	accounts := api.Group("/accounts")
	accounts.GET("", listHandler(models.ListAccounts))
	accounts.GET("/:id", byIdHandler(models.GetAccount))
	accounts.GET("/:id/balance", accountBalanceHandler())
	accounts.POST("", createHandler(models.CreateAccount))
	accounts.PUT("/:id", updateHandler(models.UpdateAccount))
	accounts.DELETE("/:id", byIdHandler(models.DeleteAccount))

	reports := api.Group("/reports")
	reports.GET("/balance-sheet", balanceSheetHandler())
	reports.GET("/balance-sheet/export", exportBalanceSheetHandler())
	reports.GET("/stock-levels", stockLevelsHandler())
	reports.GET("/partner-balances", partnerBalancesHandler())
}
