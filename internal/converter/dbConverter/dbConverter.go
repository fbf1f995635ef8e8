package dbConverter

import (
	"database/sql"

	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/model/dbModel"
)

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func ConvertPortfolio(p dbModel.Portfolio) model.Portfolio {
	return model.Portfolio{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description.String,
		Benchmark:   p.Benchmark,
		Status:      model.PortfolioStatus(p.Status),
		TenantID:    p.TenantID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ConvertHolding(h dbModel.Holding) model.Holding {
	return model.Holding{
		ID:          h.ID,
		PortfolioID: h.PortfolioID,
		Ticker:      h.Ticker,
		Exchange:    h.Exchange,
		Sector:      h.Sector.String,
		Quantity:    h.Quantity,
		AvgCost:     h.AvgCost,
		TotalCost:   h.TotalCost,
	}
}

func ConvertTransaction(t dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:              t.ID,
		PortfolioID:     t.PortfolioID,
		Ticker:          t.Ticker,
		Exchange:        t.Exchange,
		Type:            model.TxnType(t.TxnType),
		Quantity:        t.Quantity,
		Price:           t.Price,
		TotalValue:      t.TotalValue,
		TxnDate:         t.TxnDate,
		Notes:           t.Notes.String,
		CreatedAt:       t.CreatedAt,
		RealizedPnl:     nullFloat(t.RealizedPnl),
		RealizedPnlPct:  nullFloat(t.RealizedPnlPct),
		CostBasisAtSell: nullFloat(t.CostBasisAtSell),
	}
}

func ConvertNavSnapshot(n dbModel.NavSnapshot) model.NavSnapshot {
	return model.NavSnapshot{
		PortfolioID:           n.PortfolioID,
		Date:                  n.Date,
		TotalValue:            n.TotalValue,
		TotalCost:             n.TotalCost,
		UnrealizedPnl:         n.UnrealizedPnl,
		RealizedPnlCumulative: n.RealizedPnlCumulative,
		NumHoldings:           n.NumHoldings,
	}
}

func ConvertIndexPrice(p dbModel.IndexPrice) model.IndexPrice {
	return model.IndexPrice{
		Date:   p.Date,
		Symbol: p.Symbol,
		Close:  p.Close,
		Open:   nullFloat(p.Open),
		High:   nullFloat(p.High),
		Low:    nullFloat(p.Low),
		Volume: nullInt(p.Volume),
	}
}
