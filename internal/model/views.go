package model

// PortfolioSummary is the list-endpoint enrichment of a portfolio with
// live valuation.
type PortfolioSummary struct {
	Portfolio
	NumHoldings    int
	TotalInvested  float64
	CurrentValue   float64
	RealizedPnl    float64
	TotalReturnPct float64
}

// HoldingView is a holding enriched with live pricing. Price-derived fields
// are nil when no quote was available.
type HoldingView struct {
	Holding
	CurrentPrice     *float64
	CurrentValue     *float64
	UnrealizedPnl    *float64
	UnrealizedPnlPct *float64
	DayChangePct     *float64
	WeightPct        float64
}

type HoldingsTotals struct {
	TotalInvested    float64
	CurrentValue     float64
	UnrealizedPnl    float64
	UnrealizedPnlPct float64
	RealizedPnl      float64
	NumHoldings      int
}

type Performance struct {
	TotalInvested      float64
	CurrentValue       float64
	UnrealizedPnl      float64
	UnrealizedPnlPct   float64
	RealizedPnl        float64
	TotalReturn        float64
	TotalReturnPct     float64
	XIRR               *float64
	CAGR               *float64
	MaxDrawdown        *float64
	BenchmarkReturnPct *float64
	Alpha              *float64
}

// NavPoint is one charted day: the stored snapshot plus the benchmark close
// rebased to the portfolio's starting value. BenchmarkValue is nil when the
// series could not be normalized for that day.
type NavPoint struct {
	Date           string
	TotalValue     float64
	TotalCost      float64
	UnrealizedPnl  float64
	BenchmarkValue *float64
}

type AllocationItem struct {
	Label string
	Value float64
	Pct   float64
}

type Allocation struct {
	ByStock  []AllocationItem
	BySector []AllocationItem
}

// TransactionInput is a validated request to append one trade.
type TransactionInput struct {
	Ticker   string
	Type     TxnType
	Quantity int
	Price    float64
	TxnDate  string
	Notes    string
	Exchange string
	Sector   string
}

// Bulk import of a whole portfolio from a PMS statement.

type BulkImport struct {
	Name          string
	Description   string
	Benchmark     string
	InceptionDate string
	StatementDate string
	Holdings      []BulkHolding
	RealizedGains []BulkRealizedGain
	Nav           *BulkNav
}

type BulkHolding struct {
	Ticker    string
	Sector    string
	Exchange  string
	Quantity  int
	AvgCost   float64
	TotalCost float64
}

type BulkRealizedGain struct {
	Ticker    string
	Quantity  int
	BuyValue  float64
	SellValue float64
	GainLoss  float64
	ReturnPct float64
}

type BulkNav struct {
	TotalValue float64
	TotalCost  float64
}
