package portfolioService

import (
	"log/slog"

	"github.com/nimishshah/portfolio_engine/internal/model"
)

// position is the replayed per-ticker state. avg cost is derived, never
// stored: totalCost / quantity while quantity > 0.
type position struct {
	quantity  int
	totalCost float64
}

func (p position) avgCost() float64 {
	if p.quantity <= 0 {
		return 0
	}
	return p.totalCost / float64(p.quantity)
}

// positionReplay walks an ascending transaction stream and reconstructs
// holdings under average-cost accounting. Input must be ordered by txn_date
// with insertion order as a tiebreak; given a stable order the replay is
// deterministic.
type positionReplay struct {
	txns        []model.Transaction
	idx         int
	positions   map[string]position
	realizedPnl float64
}

func newPositionReplay(txns []model.Transaction) *positionReplay {
	r := &positionReplay{
		txns:      txns,
		positions: make(map[string]position),
	}
	r.seedOpeningPositions()
	return r
}

// seedOpeningPositions handles imported histories whose opening BUYs predate
// the import: when a ticker sells more than it ever bought, the excess is
// seeded as an opening position priced from the recorded cost basis at sell.
func (r *positionReplay) seedOpeningPositions() {
	type tickerTotals struct {
		buyQty       int
		sellQty      int
		costBasisSum float64
		hasCostBasis bool
	}

	totals := make(map[string]*tickerTotals)
	for _, t := range r.txns {
		tt, ok := totals[t.Ticker]
		if !ok {
			tt = &tickerTotals{}
			totals[t.Ticker] = tt
		}
		switch t.Type {
		case model.TxnTypeBuy:
			tt.buyQty += t.Quantity
		case model.TxnTypeSell:
			tt.sellQty += t.Quantity
			if t.CostBasisAtSell != nil {
				tt.costBasisSum += *t.CostBasisAtSell
				tt.hasCostBasis = true
			}
		}
	}

	for ticker, tt := range totals {
		if tt.sellQty <= tt.buyQty {
			continue
		}

		excess := tt.sellQty - tt.buyQty
		avgCost := 0.0
		if tt.hasCostBasis {
			avgCost = tt.costBasisSum / float64(tt.sellQty)
		} else {
			slog.Warn(
				"seeding opening position without cost basis, avg cost falls to 0",
				slog.String("ticker", ticker),
				slog.Int("quantity", excess),
			)
		}

		r.positions[ticker] = position{
			quantity:  excess,
			totalCost: avgCost * float64(excess),
		}
	}
}

// advanceTo applies every transaction with txn_date <= date. Dates compare
// lexically in YYYY-MM-DD form.
func (r *positionReplay) advanceTo(date string) {
	for r.idx < len(r.txns) && r.txns[r.idx].TxnDate <= date {
		r.apply(r.txns[r.idx])
		r.idx++
	}
}

// advanceAll applies the remaining transactions.
func (r *positionReplay) advanceAll() {
	for r.idx < len(r.txns) {
		r.apply(r.txns[r.idx])
		r.idx++
	}
}

func (r *positionReplay) apply(t model.Transaction) {
	pos := r.positions[t.Ticker]

	switch t.Type {
	case model.TxnTypeBuy:
		pos.quantity += t.Quantity
		pos.totalCost += t.TotalValue

	case model.TxnTypeSell:
		if pos.quantity <= 0 {
			// sell against an empty position: keep the reported pnl so
			// cumulative realized stays honest for corrupt imports
			if t.RealizedPnl != nil {
				r.realizedPnl += *t.RealizedPnl
			}
			slog.Warn(
				"sell against empty position ignored",
				slog.String("ticker", t.Ticker),
				slog.String("txnDate", t.TxnDate),
			)
			r.positions[t.Ticker] = pos
			return
		}

		avgCost := pos.totalCost / float64(pos.quantity)
		costOfSold := avgCost * float64(t.Quantity)

		pos.quantity -= t.Quantity
		pos.totalCost -= costOfSold

		if t.RealizedPnl != nil {
			r.realizedPnl += *t.RealizedPnl
		} else {
			r.realizedPnl += t.TotalValue - costOfSold
		}

		// clamp: guards against floating-point drift on full exits
		if pos.quantity <= 0 {
			pos.quantity = 0
			pos.totalCost = 0
		}
	}

	r.positions[t.Ticker] = pos
}

// openPositions returns tickers with quantity > 0.
func (r *positionReplay) openPositions() map[string]position {
	open := make(map[string]position, len(r.positions))
	for ticker, pos := range r.positions {
		if pos.quantity > 0 {
			open[ticker] = pos
		}
	}
	return open
}
