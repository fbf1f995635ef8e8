package portfolioService

import (
	"context"
	"log/slog"
	"time"

	"github.com/nimishshah/portfolio_engine/internal/externalApi/yahooApi"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/service"
	"github.com/nimishshah/portfolio_engine/utils"
)

// priceSeries maps ticker -> date -> close.
type priceSeries map[string]map[string]float64

// tradingDays lists the dates with a benchmark close inside [from, to].
// Without benchmark data it falls back to Mon-Fri.
func tradingDays(benchBars []model.IndexPrice, from, to string) []string {
	days := make([]string, 0, len(benchBars))
	for _, bar := range benchBars {
		if bar.Date >= from && bar.Date <= to {
			days = append(days, bar.Date)
		}
	}
	if len(days) > 0 {
		return days
	}

	fromT, err := time.Parse(model.DateLayout, from)
	if err != nil {
		return nil
	}
	toT, err := time.Parse(model.DateLayout, to)
	if err != nil {
		return nil
	}

	for d := fromT; !d.After(toT); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d.Format(model.DateLayout))
	}
	return days
}

// buildDailySeries produces one snapshot per trading day by replaying the
// transaction log and valuing open positions with forward-filled closes.
// A position whose ticker has never printed a price is valued at cost.
func buildDailySeries(portfolioID int64, txns []model.Transaction, days []string, prices priceSeries) []model.NavSnapshot {
	replay := newPositionReplay(txns)
	lastKnown := make(map[string]float64)

	snapshots := make([]model.NavSnapshot, 0, len(days))
	for _, day := range days {
		replay.advanceTo(day)

		totalValue := 0.0
		totalCost := 0.0
		numHoldings := 0

		for ticker, pos := range replay.openPositions() {
			if series, ok := prices[ticker]; ok {
				if close, ok := series[day]; ok {
					lastKnown[ticker] = close
				}
			}

			if price, seen := lastKnown[ticker]; seen {
				totalValue += float64(pos.quantity) * price
			} else if pos.totalCost > 0 {
				totalValue += pos.totalCost
			}

			totalCost += pos.totalCost
			numHoldings++
		}

		snapshots = append(snapshots, model.NavSnapshot{
			PortfolioID:           portfolioID,
			Date:                  day,
			TotalValue:            totalValue,
			TotalCost:             totalCost,
			UnrealizedPnl:         totalValue - totalCost,
			RealizedPnlCumulative: replay.realizedPnl,
			NumHoldings:           numHoldings,
		})
	}

	return snapshots
}

// BackfillNav rebuilds the full NAV history of a portfolio from inception
// (or fromOverride) to today. The existing series is replaced atomically:
// delete plus batched insert in one transaction. Concurrent backfills of the
// same portfolio are not supported.
func (s *PortfolioService) BackfillNav(ctx context.Context, portfolioID int64, fromOverride string) (snapshotCount int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BackfillNav"

	slog.Debug("BackfillNav start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("BackfillNav failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("BackfillNav finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("snapshots", snapshotCount))
		}
	}()

	portfolio, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return 0, err
	}

	txns, err := s.repo.GetTransactionsAsc(ctx, portfolioID)
	if err != nil {
		return 0, err
	}
	if len(txns) == 0 {
		return 0, service.ErrValidation
	}

	inception := txns[0].TxnDate
	if fromOverride != "" {
		if _, err = time.Parse(model.DateLayout, fromOverride); err != nil {
			return 0, service.ErrValidation
		}
		inception = fromOverride
	}
	today := s.today()

	benchBars := s.fetchBars(ctx, portfolio.Benchmark, inception, today)

	prices := make(priceSeries)
	for _, ticker := range distinctTickers(txns) {
		bars := s.fetchBars(ctx, ticker, inception, today)
		if len(bars) == 0 {
			continue
		}
		series := make(map[string]float64, len(bars))
		for _, bar := range bars {
			series[bar.Date] = bar.Close
		}
		prices[ticker] = series
	}

	days := tradingDays(benchBars, inception, today)
	snapshots := buildDailySeries(portfolioID, txns, days, prices)

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteNavHistory(ctx, portfolioID); err != nil {
			return err
		}
		return s.repo.InsertNavSnapshots(ctx, snapshots)
	})
	if err != nil {
		return 0, err
	}

	return len(snapshots), nil
}

// fetchBars pulls daily closes for a ticker from the oracle and persists
// them into the price cache. When the oracle fails it serves whatever is
// already cached; an unmapped ticker yields nothing.
func (s *PortfolioService) fetchBars(ctx context.Context, ticker, from, to string) []model.IndexPrice {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.fetchBars"

	symbol, ok := yahooApi.MapSymbol(ticker)
	if !ok {
		slog.Warn("ticker has no quote symbol, skipping", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
		return nil
	}

	bars, err := s.oracle.GetDailyBars(ctx, symbol, from, to)
	if err != nil {
		slog.Warn("oracle fetch failed, using cached closes", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
	} else if len(bars) > 0 {
		if storeErr := s.repo.UpsertIndexPrices(ctx, bars); storeErr != nil {
			slog.Warn("can't cache closes", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", storeErr.Error()))
		}
		return bars
	}

	cached, err := s.repo.GetIndexCloses(ctx, symbol, from, to)
	if err != nil {
		slog.Warn("can't read cached closes", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return nil
	}
	return cached
}

func distinctTickers(txns []model.Transaction) []string {
	seen := make(map[string]struct{}, len(txns))
	tickers := make([]string, 0, len(txns))
	for _, t := range txns {
		if _, ok := seen[t.Ticker]; ok {
			continue
		}
		seen[t.Ticker] = struct{}{}
		tickers = append(tickers, t.Ticker)
	}
	return tickers
}

// ComputeNav writes today's snapshot for one portfolio from the live
// holdings table, pricing each position at the most recent stored close and
// falling back to avg cost.
func (s *PortfolioService) ComputeNav(ctx context.Context, portfolioID int64) (snapshot model.NavSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ComputeNav"

	slog.Debug("ComputeNav start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("ComputeNav failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ComputeNav finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
		}
	}()

	if _, err = s.GetPortfolio(ctx, portfolioID); err != nil {
		return model.NavSnapshot{}, err
	}

	holdings, err := s.repo.GetHoldings(ctx, portfolioID)
	if err != nil {
		return model.NavSnapshot{}, err
	}

	today := s.today()

	totalValue := 0.0
	totalCost := 0.0
	for _, h := range holdings {
		price := h.AvgCost
		if symbol, ok := yahooApi.MapSymbol(h.Ticker); ok {
			if stored, priceErr := s.repo.GetLatestIndexPriceOnOrBefore(ctx, symbol, today); priceErr == nil {
				price = stored.Close
			}
		}
		totalValue += float64(h.Quantity) * price
		totalCost += h.TotalCost
	}

	realized, err := s.repo.GetRealizedPnlSumUpTo(ctx, portfolioID, today)
	if err != nil {
		return model.NavSnapshot{}, err
	}

	snapshot = model.NavSnapshot{
		PortfolioID:           portfolioID,
		Date:                  today,
		TotalValue:            totalValue,
		TotalCost:             totalCost,
		UnrealizedPnl:         totalValue - totalCost,
		RealizedPnlCumulative: realized,
		NumHoldings:           len(holdings),
	}

	if err = s.repo.UpsertNavSnapshot(ctx, snapshot); err != nil {
		return model.NavSnapshot{}, err
	}

	return snapshot, nil
}

// ComputeNavAll runs the today-snapshot path for every active portfolio.
// Per-portfolio failures are logged and skipped.
func (s *PortfolioService) ComputeNavAll(ctx context.Context) (computed int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ComputeNavAll"

	slog.Debug("ComputeNavAll start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ComputeNavAll finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("computed", computed))
	}()

	portfolios, err := s.repo.GetActivePortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActivePortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	for _, p := range portfolios {
		if _, navErr := s.ComputeNav(ctx, p.ID); navErr != nil {
			slog.Error("compute nav failed for portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", p.ID), slog.String("err", navErr.Error()))
			continue
		}
		computed++
	}

	return computed, nil
}
