package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimishshah/portfolio_engine/internal/model"
)

// Service is the portfolio engine surface the API exposes.
type Service interface {
	CreatePortfolio(ctx context.Context, name, description, benchmark string) (int64, error)
	GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error)
	GetPortfolioSummaries(ctx context.Context) ([]model.PortfolioSummary, error)
	UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, benchmark string) error
	ArchivePortfolio(ctx context.Context, portfolioID int64) error

	AddTransaction(ctx context.Context, portfolioID int64, input model.TransactionInput) (model.Transaction, error)
	ListTransactions(ctx context.Context, portfolioID int64, txnType model.TxnType, limit int) ([]model.Transaction, error)
	BulkImport(ctx context.Context, imp model.BulkImport) (int64, error)

	GetHoldingsView(ctx context.Context, portfolioID int64) ([]model.HoldingView, model.HoldingsTotals, error)
	GetAllocation(ctx context.Context, portfolioID int64) (model.Allocation, error)
	GetPerformance(ctx context.Context, portfolioID int64) (model.Performance, error)
	GetNavHistory(ctx context.Context, portfolioID int64, period string) ([]model.NavPoint, error)

	BackfillNav(ctx context.Context, portfolioID int64, fromOverride string) (int, error)
	ComputeNav(ctx context.Context, portfolioID int64) (model.NavSnapshot, error)
	ComputeNavAll(ctx context.Context) (int, error)

	ExportHoldings(ctx context.Context, portfolioID int64) ([]byte, string, error)
	ExportTransactions(ctx context.Context, portfolioID int64) ([]byte, string, error)
}

type PortfolioController struct {
	service Service
}

func NewPortfolioController(service Service) *PortfolioController {
	return &PortfolioController{service: service}
}

func (ctrl *PortfolioController) Register(r *gin.Engine) {
	r.GET("/health", ctrl.health)

	group := r.Group("/api/portfolios")
	group.GET("", ctrl.listPortfolios)
	group.POST("", ctrl.createPortfolio)
	group.POST("/bulk-import", ctrl.bulkImport)
	group.POST("/compute-nav", ctrl.computeNavAll)
	group.GET("/:id", ctrl.getPortfolio)
	group.PUT("/:id", ctrl.updatePortfolio)
	group.DELETE("/:id", ctrl.archivePortfolio)
	group.GET("/:id/transactions", ctrl.listTransactions)
	group.POST("/:id/transactions", ctrl.addTransaction)
	group.GET("/:id/holdings", ctrl.getHoldings)
	group.GET("/:id/nav-history", ctrl.getNavHistory)
	group.GET("/:id/performance", ctrl.getPerformance)
	group.GET("/:id/allocation", ctrl.getAllocation)
	group.POST("/:id/compute-nav", ctrl.computeNav)
	group.POST("/:id/backfill-nav", ctrl.backfillNav)
	group.GET("/:id/export/holdings", ctrl.exportHoldings)
	group.GET("/:id/export/transactions", ctrl.exportTransactions)
}

func (ctrl *PortfolioController) health(c *gin.Context) {
	Ok(c, gin.H{"status": "up", "service": "portfolio-engine", "version": "1.0.0"}, nil)
}

func portfolioID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		Error(c, http.StatusBadRequest, "invalid portfolio id", nil)
		return 0, false
	}
	return id, true
}

func (ctrl *PortfolioController) listPortfolios(c *gin.Context) {
	summaries, err := ctrl.service.GetPortfolioSummaries(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := make([]portfolioSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, toSummaryResponse(s))
	}
	Ok(c, resp, map[string]any{"count": len(resp)})
}

func (ctrl *PortfolioController) createPortfolio(c *gin.Context) {
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	id, err := ctrl.service.CreatePortfolio(c.Request.Context(), req.Name, req.Description, req.Benchmark)
	if err != nil {
		respondErr(c, err)
		return
	}

	portfolio, err := ctrl.service.GetPortfolio(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, toPortfolioResponse(portfolio), nil)
}

func (ctrl *PortfolioController) getPortfolio(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	portfolio, err := ctrl.service.GetPortfolio(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, toPortfolioResponse(portfolio), nil)
}

func (ctrl *PortfolioController) updatePortfolio(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := ctrl.service.UpdatePortfolio(c.Request.Context(), id, req.Name, req.Description, req.Benchmark); err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, nil, nil)
}

func (ctrl *PortfolioController) archivePortfolio(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	if err := ctrl.service.ArchivePortfolio(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, nil, nil)
}

func (ctrl *PortfolioController) listTransactions(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	txnType := model.TxnType(c.Query("txn_type"))
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
	}

	txns, err := ctrl.service.ListTransactions(c.Request.Context(), id, txnType, limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		resp = append(resp, toTransactionResponse(t))
	}
	Ok(c, resp, map[string]any{"count": len(resp)})
}

func (ctrl *PortfolioController) addTransaction(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	txn, err := ctrl.service.AddTransaction(c.Request.Context(), id, model.TransactionInput{
		Ticker:   req.Ticker,
		Type:     model.TxnType(req.TxnType),
		Quantity: req.Quantity,
		Price:    req.Price,
		TxnDate:  req.TxnDate,
		Notes:    req.Notes,
		Exchange: req.Exchange,
		Sector:   req.Sector,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, toTransactionResponse(txn), nil)
}

func (ctrl *PortfolioController) getHoldings(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	views, totals, err := ctrl.service.GetHoldingsView(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, toHoldingsResponse(views, totals), nil)
}

func (ctrl *PortfolioController) getNavHistory(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "all")
	switch period {
	case "1m", "3m", "6m", "1y", "ytd", "all":
	default:
		Error(c, http.StatusBadRequest, "invalid period", nil)
		return
	}

	points, err := ctrl.service.GetNavHistory(c.Request.Context(), id, period)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := make([]navPointResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, navPointResponse{
			Date:           p.Date,
			TotalValue:     p.TotalValue,
			TotalCost:      p.TotalCost,
			UnrealizedPnl:  p.UnrealizedPnl,
			BenchmarkValue: p.BenchmarkValue,
		})
	}
	Ok(c, resp, map[string]any{"period": period, "count": len(resp)})
}

func (ctrl *PortfolioController) getPerformance(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	perf, err := ctrl.service.GetPerformance(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, performanceResponse{
		TotalInvested:      perf.TotalInvested,
		CurrentValue:       perf.CurrentValue,
		UnrealizedPnl:      perf.UnrealizedPnl,
		UnrealizedPnlPct:   perf.UnrealizedPnlPct,
		RealizedPnl:        perf.RealizedPnl,
		TotalReturn:        perf.TotalReturn,
		TotalReturnPct:     perf.TotalReturnPct,
		XIRR:               perf.XIRR,
		CAGR:               perf.CAGR,
		MaxDrawdown:        perf.MaxDrawdown,
		BenchmarkReturnPct: perf.BenchmarkReturnPct,
		Alpha:              perf.Alpha,
	}, nil)
}

func (ctrl *PortfolioController) getAllocation(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	allocation, err := ctrl.service.GetAllocation(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, toAllocationResponse(allocation), nil)
}

func (ctrl *PortfolioController) computeNav(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	snapshot, err := ctrl.service.ComputeNav(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, gin.H{
		"date":           snapshot.Date,
		"total_value":    snapshot.TotalValue,
		"total_cost":     snapshot.TotalCost,
		"num_holdings":   snapshot.NumHoldings,
		"realized_pnl":   snapshot.RealizedPnlCumulative,
		"unrealized_pnl": snapshot.UnrealizedPnl,
	}, nil)
}

func (ctrl *PortfolioController) computeNavAll(c *gin.Context) {
	computed, err := ctrl.service.ComputeNavAll(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, gin.H{"computed": computed}, nil)
}

func (ctrl *PortfolioController) backfillNav(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	var req backfillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}

	count, err := ctrl.service.BackfillNav(c.Request.Context(), id, req.From)
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, gin.H{"snapshots": count}, nil)
}

func (ctrl *PortfolioController) bulkImport(c *gin.Context) {
	var req bulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	id, err := ctrl.service.BulkImport(c.Request.Context(), req.toModel())
	if err != nil {
		respondErr(c, err)
		return
	}
	Ok(c, gin.H{"portfolio_id": id}, nil)
}

func (ctrl *PortfolioController) exportHoldings(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	fileBytes, filename, err := ctrl.service.ExportHoldings(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	serveXlsx(c, fileBytes, filename)
}

func (ctrl *PortfolioController) exportTransactions(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	fileBytes, filename, err := ctrl.service.ExportTransactions(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	serveXlsx(c, fileBytes, filename)
}

func serveXlsx(c *gin.Context, fileBytes []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileBytes)
}
