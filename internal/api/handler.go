package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"retail-inventory/internal/models"
	"retail-inventory/internal/service"
	"retail-inventory/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleCheckout processes carts
type SaleCheckout interface {
	Checkout(ctx context.Context, ownerID int64, idempotencyKey string, cart []models.CartLine) (*models.SaleReceipt, error)
}

// Catalog maintains products and their stock
type Catalog interface {
	AddProduct(ctx context.Context, req *service.AddProductRequest) (*models.Product, error)
	Replenish(ctx context.Context, req *service.ReplenishRequest) (*models.StockAddition, error)
	Archive(ctx context.Context, ownerID, productID int64) error
	ListProducts(ctx context.Context, ownerID int64) ([]models.Product, error)
	LowStock(ctx context.Context, ownerID int64) ([]models.LowStockItem, error)
	CountLowStock(ctx context.Context, ownerID int64) (int, error)
}

// Reports reads the audit trail
type Reports interface {
	Report(ctx context.Context, ownerID int64, filter, month string) (*models.Report, error)
	Analytics(ctx context.Context, ownerID int64, period string) (*service.Analytics, error)
	SalesHistory(ctx context.Context, ownerID int64, from, to *time.Time) ([]models.SaleTransactionDetail, error)
	Invoice(ctx context.Context, ownerID int64, invoiceID string) (*service.Invoice, error)
}

// Expenses records operating costs
type Expenses interface {
	AddExpense(ctx context.Context, req *service.AddExpenseRequest) (*models.Expense, error)
	ExpenseSummary(ctx context.Context, ownerID int64) (*models.ExpenseSummary, error)
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sales     SaleCheckout
	catalog   Catalog
	reports   Reports
	expenses  Expenses
	readiness map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(sales SaleCheckout, catalog Catalog, reports Reports, expenses Expenses, readiness map[string]Pinger) *Handler {
	return &Handler{
		sales:     sales,
		catalog:   catalog,
		reports:   reports,
		expenses:  expenses,
		readiness: readiness,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sales", h.createSale)
		v1.GET("/sales/history", h.salesHistory)
		v1.GET("/invoices/:invoice_id", h.getInvoice)

		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.addProduct)
		v1.POST("/products/:id/stock", h.replenish)
		v1.DELETE("/products/:id", h.archiveProduct)

		v1.GET("/reports", h.getReport)
		v1.GET("/analytics", h.getAnalytics)
		v1.GET("/notifications", h.getNotifications)

		v1.POST("/expenses", h.addExpense)
		v1.GET("/expenses/summary", h.expenseSummary)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency the service cannot work without
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type saleRequest struct {
	UserID int64          `json:"user_id"`
	Cart   []cartItemBody `json:"cart"`
}

type cartItemBody struct {
	ID        int64           `json:"id"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

// createSale handles checkout of a cart
func (h *Handler) createSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart := make([]models.CartLine, len(req.Cart))
	for i, item := range req.Cart {
		cart[i] = models.CartLine{
			ProductID:     item.ID,
			Quantity:      item.Quantity,
			UnitSalePrice: item.SalePrice,
		}
	}

	receipt, err := h.sales.Checkout(c.Request.Context(), req.UserID, c.GetHeader("Idempotency-Key"), cart)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// salesHistory lists transaction details, optionally bounded by from/to
func (h *Handler) salesHistory(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	from, err := parseBound(c.Query("from"), false)
	if err != nil {
		h.writeError(c, &models.ValidationError{Field: "from", Message: err.Error()})
		return
	}
	to, err := parseBound(c.Query("to"), true)
	if err != nil {
		h.writeError(c, &models.ValidationError{Field: "to", Message: err.Error()})
		return
	}

	details, err := h.reports.SalesHistory(c.Request.Context(), ownerID, from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// getInvoice returns the lines of one invoice and its grand total
func (h *Handler) getInvoice(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	invoice, err := h.reports.Invoice(c.Request.Context(), ownerID, c.Param("invoice_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) listProducts(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), ownerID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) addProduct(c *gin.Context) {
	var req service.AddProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.catalog.AddProduct(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

type replenishBody struct {
	UserID        int64 `json:"user_id"`
	QuantityToAdd int   `json:"quantity_to_add"`
}

func (h *Handler) replenish(c *gin.Context) {
	productID, ok := productFromPath(c)
	if !ok {
		return
	}

	var body replenishBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	addition, err := h.catalog.Replenish(c.Request.Context(), &service.ReplenishRequest{
		OwnerID:       body.UserID,
		ProductID:     productID,
		QuantityToAdd: body.QuantityToAdd,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, addition)
}

func (h *Handler) archiveProduct(c *gin.Context) {
	productID, ok := productFromPath(c)
	if !ok {
		return
	}
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	if err := h.catalog.Archive(c.Request.Context(), ownerID, productID); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product archived"})
}

func (h *Handler) getReport(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	report, err := h.reports.Report(c.Request.Context(), ownerID, c.Query("filter"), c.Query("month"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) getAnalytics(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	analytics, err := h.reports.Analytics(c.Request.Context(), ownerID, c.Query("period"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

func (h *Handler) getNotifications(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	switch action := c.DefaultQuery("action", "get_all"); action {
	case "get_count":
		count, err := h.catalog.CountLowStock(c.Request.Context(), ownerID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})

	case "get_all":
		items, err := h.catalog.LowStock(c.Request.Context(), ownerID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": items})

	default:
		h.writeError(c, &models.ValidationError{Field: "action", Message: "must be get_count or get_all"})
	}
}

func (h *Handler) addExpense(c *gin.Context) {
	var req service.AddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	expense, err := h.expenses.AddExpense(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, expense)
}

func (h *Handler) expenseSummary(c *gin.Context) {
	ownerID, ok := ownerFromQuery(c)
	if !ok {
		return
	}

	summary, err := h.expenses.ExpenseSummary(c.Request.Context(), ownerID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func ownerFromQuery(c *gin.Context) (int64, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid input",
			"details": "user_id is required",
		})
		return 0, false
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ownerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid input",
			"details": "user_id must be a positive integer",
		})
		return 0, false
	}
	return ownerID, true
}

func productFromPath(c *gin.Context) (int64, bool) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid product ID",
			"details": "id must be a positive integer",
		})
		return 0, false
	}
	return productID, true
}

// parseBound accepts RFC 3339 timestamps or plain dates. A plain upper bound
// covers its whole day.
func parseBound(raw string, upper bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
