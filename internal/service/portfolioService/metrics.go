package portfolioService

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/nimishshah/portfolio_engine/internal/externalApi/yahooApi"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/utils"
)

type cashflow struct {
	date   time.Time
	amount float64
}

// xirr solves sum(a_i / (1+r)^t_i) = 0 by Newton-Raphson with t in years
// from the first flow. Returns the rate in percent, or nil when the
// iteration diverges or leaves (-0.99, 100).
func xirr(flows []cashflow) *float64 {
	if len(flows) < 2 {
		return nil
	}

	t0 := flows[0].date
	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.date.Sub(t0).Hours() / 24 / 365
	}

	rate := 0.10
	for i := 0; i < 100; i++ {
		var f, df float64
		for j, flow := range flows {
			v := math.Pow(1+rate, years[j])
			f += flow.amount / v
			df -= years[j] * flow.amount / (v * (1 + rate))
		}

		if math.Abs(df) < 1e-12 {
			return nil
		}

		next := rate - f/df
		if next <= -0.99 || next >= 100 {
			return nil
		}

		if math.Abs(next-rate) < 1e-8 {
			result := next * 100
			return &result
		}
		rate = next
	}

	return nil
}

// cagr returns the compound annual growth rate in percent, nil when
// undefined.
func cagr(currentValue, realizedPnl, totalInvested, years float64) *float64 {
	if years <= 0 || totalInvested <= 0 {
		return nil
	}

	ratio := (currentValue + realizedPnl) / totalInvested
	if ratio <= 0 {
		return nil
	}

	result := (math.Pow(ratio, 1/years) - 1) * 100
	return &result
}

// maxDrawdown scans values in date order against a running peak and returns
// the deepest decline in percent (negative), nil for short series.
func maxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	peak := values[0]
	worst := 0.0
	for _, v := range values[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			if dd := (v - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}

	result := worst * 100
	return &result
}

// GetPerformance computes the metrics bundle: totals from live-priced
// holdings, XIRR over the cash-flow history, CAGR, max drawdown over the
// NAV series, and benchmark-relative alpha.
func (s *PortfolioService) GetPerformance(ctx context.Context, portfolioID int64) (perf model.Performance, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPerformance"

	slog.Debug("GetPerformance start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("GetPerformance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPerformance finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
		}
	}()

	portfolio, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Performance{}, err
	}

	holdings, err := s.repo.GetHoldings(ctx, portfolioID)
	if err != nil {
		return model.Performance{}, err
	}

	realized, err := s.repo.GetRealizedPnlSum(ctx, portfolioID)
	if err != nil {
		return model.Performance{}, err
	}

	quotes := s.getQuotes(ctx, tickersOf(holdings))

	totalInvested := 0.0
	currentValue := 0.0
	for _, h := range holdings {
		totalInvested += h.TotalCost
		currentValue += float64(h.Quantity) * s.currentPrice(ctx, h, quotes)
	}

	perf.TotalInvested = utils.Round2(totalInvested)
	perf.CurrentValue = utils.Round2(currentValue)
	perf.UnrealizedPnl = utils.Round2(currentValue - totalInvested)
	perf.RealizedPnl = utils.Round2(realized)
	perf.TotalReturn = utils.Round2(currentValue - totalInvested + realized)
	if totalInvested > 0 {
		perf.UnrealizedPnlPct = utils.Round2((currentValue - totalInvested) / totalInvested * 100)
		perf.TotalReturnPct = utils.Round2((currentValue - totalInvested + realized) / totalInvested * 100)
	}

	txns, err := s.repo.GetTransactionsAsc(ctx, portfolioID)
	if err != nil {
		return model.Performance{}, err
	}

	now := time.Now().In(s.loc)
	today := now.Format(model.DateLayout)

	flows := make([]cashflow, 0, len(txns)+1)
	for _, t := range txns {
		d, parseErr := time.Parse(model.DateLayout, t.TxnDate)
		if parseErr != nil {
			continue
		}
		amount := t.TotalValue
		if t.Type == model.TxnTypeBuy {
			amount = -amount
		}
		flows = append(flows, cashflow{date: d, amount: amount})
	}
	if len(flows) > 0 && currentValue > 0 {
		flows = append(flows, cashflow{date: now, amount: currentValue})
	}
	if v := xirr(flows); v != nil {
		rounded := utils.Round2(*v)
		perf.XIRR = &rounded
	}

	if len(txns) > 0 {
		firstDate, parseErr := time.Parse(model.DateLayout, txns[0].TxnDate)
		if parseErr == nil {
			years := now.Sub(firstDate).Hours() / 24 / 365
			if v := cagr(currentValue, realized, totalInvested, years); v != nil {
				rounded := utils.Round2(*v)
				perf.CAGR = &rounded
			}
		}

		benchSymbol, ok := yahooApi.MapSymbol(portfolio.Benchmark)
		if ok {
			start, startErr := s.repo.GetFirstIndexPriceOnOrAfter(ctx, benchSymbol, txns[0].TxnDate)
			end, endErr := s.repo.GetLatestIndexPriceOnOrBefore(ctx, benchSymbol, today)
			if startErr == nil && endErr == nil && start.Close > 0 {
				benchReturn := utils.Round2((end.Close/start.Close - 1) * 100)
				perf.BenchmarkReturnPct = &benchReturn

				alpha := utils.Round2(perf.TotalReturnPct - benchReturn)
				perf.Alpha = &alpha
			}
		}
	}

	snapshots, err := s.repo.GetNavHistory(ctx, portfolioID, "")
	if err != nil {
		return model.Performance{}, err
	}
	values := make([]float64, 0, len(snapshots))
	for _, snap := range snapshots {
		values = append(values, snap.TotalValue)
	}
	if v := maxDrawdown(values); v != nil {
		rounded := utils.Round2(*v)
		perf.MaxDrawdown = &rounded
	}

	return perf, nil
}

// periodStart maps a chart period to its from-date; "" means the whole
// series.
func (s *PortfolioService) periodStart(period string) string {
	now := time.Now().In(s.loc)
	switch period {
	case "1m":
		return now.AddDate(0, -1, 0).Format(model.DateLayout)
	case "3m":
		return now.AddDate(0, -3, 0).Format(model.DateLayout)
	case "6m":
		return now.AddDate(0, -6, 0).Format(model.DateLayout)
	case "1y":
		return now.AddDate(-1, 0, 0).Format(model.DateLayout)
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc).Format(model.DateLayout)
	default:
		return ""
	}
}

// GetNavHistory returns the snapshot series for the period with the
// benchmark rebased to the series' starting value. The rebase anchors on the
// first row only: when that date has no benchmark close, the whole series
// goes out without benchmark values.
func (s *PortfolioService) GetNavHistory(ctx context.Context, portfolioID int64, period string) (points []model.NavPoint, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetNavHistory"

	slog.Debug("GetNavHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.String("period", period))
	defer func() {
		if err != nil {
			slog.Error("GetNavHistory failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetNavHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("points", len(points)))
		}
	}()

	portfolio, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.repo.GetNavHistory(ctx, portfolioID, s.periodStart(period))
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return []model.NavPoint{}, nil
	}

	benchCloses := make(map[string]float64)
	if benchSymbol, ok := yahooApi.MapSymbol(portfolio.Benchmark); ok {
		bars, benchErr := s.repo.GetIndexCloses(ctx, benchSymbol, snapshots[0].Date, snapshots[len(snapshots)-1].Date)
		if benchErr != nil {
			slog.Warn("can't read benchmark closes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", benchErr.Error()))
		}
		for _, bar := range bars {
			benchCloses[bar.Date] = bar.Close
		}
	}

	firstNav := snapshots[0].TotalValue
	firstBench, hasFirstBench := benchCloses[snapshots[0].Date]

	points = make([]model.NavPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		point := model.NavPoint{
			Date:          snap.Date,
			TotalValue:    snap.TotalValue,
			TotalCost:     snap.TotalCost,
			UnrealizedPnl: snap.UnrealizedPnl,
		}

		if hasFirstBench && firstBench > 0 {
			if close, ok := benchCloses[snap.Date]; ok {
				normalized := utils.Round2(close / firstBench * firstNav)
				point.BenchmarkValue = &normalized
			}
		}

		points = append(points, point)
	}

	return points, nil
}
