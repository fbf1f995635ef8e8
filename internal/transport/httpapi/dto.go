package httpapi

import (
	"time"

	"github.com/nimishshah/portfolio_engine/internal/model"
)

type createPortfolioRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Benchmark   string `json:"benchmark"`
}

type updatePortfolioRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Benchmark   string `json:"benchmark"`
}

type transactionRequest struct {
	Ticker   string  `json:"ticker" binding:"required"`
	TxnType  string  `json:"txn_type" binding:"required,oneof=BUY SELL"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	TxnDate  string  `json:"txn_date" binding:"required"`
	Notes    string  `json:"notes"`
	Exchange string  `json:"exchange"`
	Sector   string  `json:"sector"`
}

type backfillRequest struct {
	From string `json:"from"`
}

type bulkImportRequest struct {
	Name          string                `json:"name" binding:"required"`
	Description   string                `json:"description"`
	Benchmark     string                `json:"benchmark"`
	InceptionDate string                `json:"inception_date" binding:"required"`
	StatementDate string                `json:"statement_date" binding:"required"`
	Holdings      []bulkHoldingRequest  `json:"holdings"`
	RealizedGains []bulkRealizedRequest `json:"realized_gains"`
	Nav           *bulkNavRequest       `json:"nav"`
}

type bulkHoldingRequest struct {
	Ticker    string  `json:"ticker" binding:"required"`
	Sector    string  `json:"sector"`
	Exchange  string  `json:"exchange"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	AvgCost   float64 `json:"avg_cost"`
	TotalCost float64 `json:"total_cost"`
}

type bulkRealizedRequest struct {
	Ticker    string  `json:"ticker" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	BuyValue  float64 `json:"buy_value"`
	SellValue float64 `json:"sell_value"`
	GainLoss  float64 `json:"gain_loss"`
	ReturnPct float64 `json:"return_pct"`
}

type bulkNavRequest struct {
	TotalValue float64 `json:"total_value"`
	TotalCost  float64 `json:"total_cost"`
}

func (r bulkImportRequest) toModel() model.BulkImport {
	imp := model.BulkImport{
		Name:          r.Name,
		Description:   r.Description,
		Benchmark:     r.Benchmark,
		InceptionDate: r.InceptionDate,
		StatementDate: r.StatementDate,
	}
	for _, h := range r.Holdings {
		imp.Holdings = append(imp.Holdings, model.BulkHolding{
			Ticker:    h.Ticker,
			Sector:    h.Sector,
			Exchange:  h.Exchange,
			Quantity:  h.Quantity,
			AvgCost:   h.AvgCost,
			TotalCost: h.TotalCost,
		})
	}
	for _, g := range r.RealizedGains {
		imp.RealizedGains = append(imp.RealizedGains, model.BulkRealizedGain{
			Ticker:    g.Ticker,
			Quantity:  g.Quantity,
			BuyValue:  g.BuyValue,
			SellValue: g.SellValue,
			GainLoss:  g.GainLoss,
			ReturnPct: g.ReturnPct,
		})
	}
	if r.Nav != nil {
		imp.Nav = &model.BulkNav{TotalValue: r.Nav.TotalValue, TotalCost: r.Nav.TotalCost}
	}
	return imp
}

type portfolioResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Benchmark   string `json:"benchmark"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toPortfolioResponse(p model.Portfolio) portfolioResponse {
	return portfolioResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Benchmark:   p.Benchmark,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

type portfolioSummaryResponse struct {
	portfolioResponse
	NumHoldings    int     `json:"num_holdings"`
	TotalInvested  float64 `json:"total_invested"`
	CurrentValue   float64 `json:"current_value"`
	RealizedPnl    float64 `json:"realized_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`
}

func toSummaryResponse(s model.PortfolioSummary) portfolioSummaryResponse {
	return portfolioSummaryResponse{
		portfolioResponse: toPortfolioResponse(s.Portfolio),
		NumHoldings:       s.NumHoldings,
		TotalInvested:     s.TotalInvested,
		CurrentValue:      s.CurrentValue,
		RealizedPnl:       s.RealizedPnl,
		TotalReturnPct:    s.TotalReturnPct,
	}
}

type holdingResponse struct {
	Ticker           string   `json:"ticker"`
	Exchange         string   `json:"exchange"`
	Sector           string   `json:"sector,omitempty"`
	Quantity         int      `json:"quantity"`
	AvgCost          float64  `json:"avg_cost"`
	TotalCost        float64  `json:"total_cost"`
	CurrentPrice     *float64 `json:"current_price"`
	CurrentValue     *float64 `json:"current_value"`
	UnrealizedPnl    *float64 `json:"unrealized_pnl"`
	UnrealizedPnlPct *float64 `json:"unrealized_pnl_pct"`
	DayChangePct     *float64 `json:"day_change_pct"`
	WeightPct        float64  `json:"weight_pct"`
}

type holdingsTotalsResponse struct {
	TotalInvested    float64 `json:"total_invested"`
	CurrentValue     float64 `json:"current_value"`
	UnrealizedPnl    float64 `json:"unrealized_pnl"`
	UnrealizedPnlPct float64 `json:"unrealized_pnl_pct"`
	RealizedPnl      float64 `json:"realized_pnl"`
	NumHoldings      int     `json:"num_holdings"`
}

type holdingsResponse struct {
	Holdings []holdingResponse      `json:"holdings"`
	Totals   holdingsTotalsResponse `json:"totals"`
}

func toHoldingsResponse(views []model.HoldingView, totals model.HoldingsTotals) holdingsResponse {
	resp := holdingsResponse{
		Holdings: make([]holdingResponse, 0, len(views)),
		Totals: holdingsTotalsResponse{
			TotalInvested:    totals.TotalInvested,
			CurrentValue:     totals.CurrentValue,
			UnrealizedPnl:    totals.UnrealizedPnl,
			UnrealizedPnlPct: totals.UnrealizedPnlPct,
			RealizedPnl:      totals.RealizedPnl,
			NumHoldings:      totals.NumHoldings,
		},
	}
	for _, v := range views {
		resp.Holdings = append(resp.Holdings, holdingResponse{
			Ticker:           v.Ticker,
			Exchange:         v.Exchange,
			Sector:           v.Sector,
			Quantity:         v.Quantity,
			AvgCost:          v.AvgCost,
			TotalCost:        v.TotalCost,
			CurrentPrice:     v.CurrentPrice,
			CurrentValue:     v.CurrentValue,
			UnrealizedPnl:    v.UnrealizedPnl,
			UnrealizedPnlPct: v.UnrealizedPnlPct,
			DayChangePct:     v.DayChangePct,
			WeightPct:        v.WeightPct,
		})
	}
	return resp
}

type transactionResponse struct {
	ID              int64    `json:"id"`
	Ticker          string   `json:"ticker"`
	Exchange        string   `json:"exchange"`
	TxnType         string   `json:"txn_type"`
	Quantity        int      `json:"quantity"`
	Price           float64  `json:"price"`
	TotalValue      float64  `json:"total_value"`
	TxnDate         string   `json:"txn_date"`
	Notes           string   `json:"notes,omitempty"`
	RealizedPnl     *float64 `json:"realized_pnl,omitempty"`
	RealizedPnlPct  *float64 `json:"realized_pnl_pct,omitempty"`
	CostBasisAtSell *float64 `json:"cost_basis_at_sell,omitempty"`
}

func toTransactionResponse(t model.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Ticker:          t.Ticker,
		Exchange:        t.Exchange,
		TxnType:         string(t.Type),
		Quantity:        t.Quantity,
		Price:           t.Price,
		TotalValue:      t.TotalValue,
		TxnDate:         t.TxnDate,
		Notes:           t.Notes,
		RealizedPnl:     t.RealizedPnl,
		RealizedPnlPct:  t.RealizedPnlPct,
		CostBasisAtSell: t.CostBasisAtSell,
	}
}

type navPointResponse struct {
	Date           string   `json:"date"`
	TotalValue     float64  `json:"total_value"`
	TotalCost      float64  `json:"total_cost"`
	UnrealizedPnl  float64  `json:"unrealized_pnl"`
	BenchmarkValue *float64 `json:"benchmark_value"`
}

type performanceResponse struct {
	TotalInvested      float64  `json:"total_invested"`
	CurrentValue       float64  `json:"current_value"`
	UnrealizedPnl      float64  `json:"unrealized_pnl"`
	UnrealizedPnlPct   float64  `json:"unrealized_pnl_pct"`
	RealizedPnl        float64  `json:"realized_pnl"`
	TotalReturn        float64  `json:"total_return"`
	TotalReturnPct     float64  `json:"total_return_pct"`
	XIRR               *float64 `json:"xirr,omitempty"`
	CAGR               *float64 `json:"cagr,omitempty"`
	MaxDrawdown        *float64 `json:"max_drawdown,omitempty"`
	BenchmarkReturnPct *float64 `json:"benchmark_return_pct,omitempty"`
	Alpha              *float64 `json:"alpha,omitempty"`
}

type allocationItemResponse struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
}

type allocationResponse struct {
	ByStock  []allocationItemResponse `json:"by_stock"`
	BySector []allocationItemResponse `json:"by_sector"`
}

func toAllocationResponse(a model.Allocation) allocationResponse {
	resp := allocationResponse{
		ByStock:  make([]allocationItemResponse, 0, len(a.ByStock)),
		BySector: make([]allocationItemResponse, 0, len(a.BySector)),
	}
	for _, item := range a.ByStock {
		resp.ByStock = append(resp.ByStock, allocationItemResponse(item))
	}
	for _, item := range a.BySector {
		resp.BySector = append(resp.BySector, allocationItemResponse(item))
	}
	return resp
}
