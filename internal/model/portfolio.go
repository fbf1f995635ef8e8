package model

import "time"

type PortfolioStatus string

const (
	PortfolioStatusActive   PortfolioStatus = "ACTIVE"
	PortfolioStatusArchived PortfolioStatus = "ARCHIVED"
)

type TxnType string

const (
	TxnTypeBuy  TxnType = "BUY"
	TxnTypeSell TxnType = "SELL"
)

// DateLayout is the calendar-date form used for txn_date, NAV dates and
// index-price dates everywhere, including storage.
const DateLayout = "2006-01-02"

type Portfolio struct {
	ID          int64
	Name        string
	Description string
	Benchmark   string
	Status      PortfolioStatus
	TenantID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Holding struct {
	ID          int64
	PortfolioID int64
	Ticker      string
	Exchange    string
	Sector      string
	Quantity    int
	AvgCost     float64
	TotalCost   float64
}

type Transaction struct {
	ID          int64
	PortfolioID int64
	Ticker      string
	Exchange    string
	Type        TxnType
	Quantity    int
	Price       float64
	TotalValue  float64
	TxnDate     string // YYYY-MM-DD accounting date
	Notes       string
	CreatedAt   time.Time

	// populated on SELL rows only
	RealizedPnl     *float64
	RealizedPnlPct  *float64
	CostBasisAtSell *float64
}

type NavSnapshot struct {
	PortfolioID           int64
	Date                  string
	TotalValue            float64
	TotalCost             float64
	UnrealizedPnl         float64
	RealizedPnlCumulative float64
	NumHoldings           int
}

type IndexPrice struct {
	Date   string
	Symbol string
	Close  float64
	Open   *float64
	High   *float64
	Low    *float64
	Volume *int64
}

// Quote is an intraday price with its previous close.
type Quote struct {
	Price        float64
	PrevClose    float64
	DayChangePct *float64
}
