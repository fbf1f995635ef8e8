package dbModel

import (
	"database/sql"
	"time"
)

type Portfolio struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Benchmark   string         `db:"benchmark"`
	Status      string         `db:"status"`
	TenantID    string         `db:"tenant_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type Holding struct {
	ID          int64          `db:"id"`
	PortfolioID int64          `db:"portfolio_id"`
	Ticker      string         `db:"ticker"`
	Exchange    string         `db:"exchange"`
	Sector      sql.NullString `db:"sector"`
	Quantity    int            `db:"quantity"`
	AvgCost     float64        `db:"avg_cost"`
	TotalCost   float64        `db:"total_cost"`
}

type Transaction struct {
	ID              int64           `db:"id"`
	PortfolioID     int64           `db:"portfolio_id"`
	Ticker          string          `db:"ticker"`
	Exchange        string          `db:"exchange"`
	TxnType         string          `db:"txn_type"`
	Quantity        int             `db:"quantity"`
	Price           float64         `db:"price"`
	TotalValue      float64         `db:"total_value"`
	TxnDate         string          `db:"txn_date"`
	Notes           sql.NullString  `db:"notes"`
	RealizedPnl     sql.NullFloat64 `db:"realized_pnl"`
	RealizedPnlPct  sql.NullFloat64 `db:"realized_pnl_pct"`
	CostBasisAtSell sql.NullFloat64 `db:"cost_basis_at_sell"`
	CreatedAt       time.Time       `db:"created_at"`
}

type NavSnapshot struct {
	PortfolioID           int64   `db:"portfolio_id"`
	Date                  string  `db:"date"`
	TotalValue            float64 `db:"total_value"`
	TotalCost             float64 `db:"total_cost"`
	UnrealizedPnl         float64 `db:"unrealized_pnl"`
	RealizedPnlCumulative float64 `db:"realized_pnl_cumulative"`
	NumHoldings           int     `db:"num_holdings"`
}

type IndexPrice struct {
	Date   string          `db:"date"`
	Symbol string          `db:"symbol"`
	Close  float64         `db:"close_price"`
	Open   sql.NullFloat64 `db:"open_price"`
	High   sql.NullFloat64 `db:"high_price"`
	Low    sql.NullFloat64 `db:"low_price"`
	Volume sql.NullInt64   `db:"volume"`
}
