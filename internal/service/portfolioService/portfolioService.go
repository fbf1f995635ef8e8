package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nimishshah/portfolio_engine/config"
	"github.com/nimishshah/portfolio_engine/data/repository"
	"github.com/nimishshah/portfolio_engine/internal/externalApi/yahooApi"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/service"
	"github.com/nimishshah/portfolio_engine/utils"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	CreatePortfolio(ctx context.Context, name, description, benchmark, tenantID string) (portfolioID int64, err error)
	GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error)
	GetActivePortfolios(ctx context.Context) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, benchmark string) error
	ArchivePortfolio(ctx context.Context, portfolioID int64) error
	TouchPortfolio(ctx context.Context, portfolioID int64) error

	GetHolding(ctx context.Context, portfolioID int64, ticker string) (model.Holding, error)
	GetHoldings(ctx context.Context, portfolioID int64) ([]model.Holding, error)
	InsertHolding(ctx context.Context, holding model.Holding) error
	UpdateHolding(ctx context.Context, holdingID int64, quantity int, avgCost, totalCost float64) error
	DeleteHolding(ctx context.Context, holdingID int64) error

	InsertTransaction(ctx context.Context, txn model.Transaction) (txnID int64, err error)
	GetTransactions(ctx context.Context, portfolioID int64, txnType model.TxnType, limit int) ([]model.Transaction, error)
	GetTransactionsAsc(ctx context.Context, portfolioID int64) ([]model.Transaction, error)
	GetRealizedPnlSum(ctx context.Context, portfolioID int64) (float64, error)
	GetRealizedPnlSumUpTo(ctx context.Context, portfolioID int64, date string) (float64, error)

	DeleteNavHistory(ctx context.Context, portfolioID int64) error
	InsertNavSnapshots(ctx context.Context, snapshots []model.NavSnapshot) error
	UpsertNavSnapshot(ctx context.Context, snapshot model.NavSnapshot) error
	GetNavHistory(ctx context.Context, portfolioID int64, fromDate string) ([]model.NavSnapshot, error)

	UpsertIndexPrices(ctx context.Context, prices []model.IndexPrice) error
	GetIndexCloses(ctx context.Context, symbol, from, to string) ([]model.IndexPrice, error)
	GetLatestIndexPriceOnOrBefore(ctx context.Context, symbol, date string) (model.IndexPrice, error)
	GetFirstIndexPriceOnOrAfter(ctx context.Context, symbol, date string) (model.IndexPrice, error)
}

// PriceOracle covers both the historical-bars and the intraday paths of the
// quote source. Tests inject a deterministic in-memory implementation.
type PriceOracle interface {
	GetDailyBars(ctx context.Context, symbol, from, to string) ([]model.IndexPrice, error)
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuotes(ctx context.Context, quotes map[string]model.Quote) error
}

type ReportGenerator interface {
	GenerateHoldingsReport(ctx context.Context, portfolio model.Portfolio, holdings []model.HoldingView, totals model.HoldingsTotals) ([]byte, error)
	GenerateTransactionsReport(ctx context.Context, portfolio model.Portfolio, txns []model.Transaction) ([]byte, error)
}

type PortfolioService struct {
	repo      Repository
	cache     Cache
	oracle    PriceOracle
	reportGen ReportGenerator
	cfg       *config.Config
	loc       *time.Location
}

func New(cfg *config.Config, repo Repository, cache Cache, oracle PriceOracle, reportGen ReportGenerator) *PortfolioService {
	loc, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		loc = time.UTC
	}

	return &PortfolioService{
		repo:      repo,
		cache:     cache,
		oracle:    oracle,
		reportGen: reportGen,
		cfg:       cfg,
		loc:       loc,
	}
}

// today returns the current accounting date in the exchange timezone.
func (s *PortfolioService) today() string {
	return time.Now().In(s.loc).Format(model.DateLayout)
}

func (s *PortfolioService) CreatePortfolio(ctx context.Context, name, description, benchmark string) (portfolioID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreatePortfolio"

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		slog.Debug("CreatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	}()

	if name == "" {
		return 0, service.ErrValidation
	}
	if benchmark == "" {
		benchmark = "NIFTY"
	}

	portfolioID, err = s.repo.CreatePortfolio(ctx, name, description, benchmark, "default")
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.CreatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return portfolioID, nil
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Portfolio{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return portfolio, nil
}

// GetPortfolioSummaries lists active portfolios with live valuations.
func (s *PortfolioService) GetPortfolioSummaries(ctx context.Context) (summaries []model.PortfolioSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolioSummaries"

	slog.Debug("GetPortfolioSummaries start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolioSummaries finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolios, err := s.repo.GetActivePortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActivePortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	summaries = make([]model.PortfolioSummary, 0, len(portfolios))
	for _, p := range portfolios {
		holdings, err := s.repo.GetHoldings(ctx, p.ID)
		if err != nil {
			slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		realized, err := s.repo.GetRealizedPnlSum(ctx, p.ID)
		if err != nil {
			slog.Error("got error from repo.GetRealizedPnlSum", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		quotes := s.getQuotes(ctx, tickersOf(holdings))

		invested := 0.0
		currentValue := 0.0
		for _, h := range holdings {
			invested += h.TotalCost
			currentValue += float64(h.Quantity) * s.currentPrice(ctx, h, quotes)
		}

		summary := model.PortfolioSummary{
			Portfolio:     p,
			NumHoldings:   len(holdings),
			TotalInvested: utils.Round2(invested),
			CurrentValue:  utils.Round2(currentValue),
			RealizedPnl:   utils.Round2(realized),
		}
		if invested > 0 {
			summary.TotalReturnPct = utils.Round2(((currentValue - invested + realized) / invested) * 100)
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *PortfolioService) UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, benchmark string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdatePortfolio"

	if name == "" {
		return service.ErrValidation
	}

	current, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return err
	}
	if benchmark == "" {
		benchmark = current.Benchmark
	}

	err = s.repo.UpdatePortfolio(ctx, portfolioID, name, description, benchmark)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.UpdatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// ArchivePortfolio soft-deletes: NAV history stays valid.
func (s *PortfolioService) ArchivePortfolio(ctx context.Context, portfolioID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ArchivePortfolio"

	err := s.repo.ArchivePortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.ArchivePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// GetHoldingsView returns current positions with live P&L and weights.
func (s *PortfolioService) GetHoldingsView(ctx context.Context, portfolioID int64) (views []model.HoldingView, totals model.HoldingsTotals, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetHoldingsView"

	slog.Debug("GetHoldingsView start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("GetHoldingsView finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if _, err = s.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, model.HoldingsTotals{}, err
	}

	holdings, err := s.repo.GetHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, model.HoldingsTotals{}, err
	}

	realized, err := s.repo.GetRealizedPnlSum(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetRealizedPnlSum", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, model.HoldingsTotals{}, err
	}

	quotes := s.getQuotes(ctx, tickersOf(holdings))

	views = make([]model.HoldingView, 0, len(holdings))
	totalValue := 0.0
	for _, h := range holdings {
		view := model.HoldingView{Holding: h}

		symbol, ok := yahooApi.MapSymbol(h.Ticker)
		if ok {
			if quote, found := quotes[symbol]; found {
				price := utils.Round2(quote.Price)
				value := utils.Round2(float64(h.Quantity) * quote.Price)
				pnl := utils.Round2(value - h.TotalCost)
				view.CurrentPrice = &price
				view.CurrentValue = &value
				view.UnrealizedPnl = &pnl
				if h.TotalCost > 0 {
					pnlPct := utils.Round2(pnl / h.TotalCost * 100)
					view.UnrealizedPnlPct = &pnlPct
				}
				view.DayChangePct = quote.DayChangePct
			}
		}

		if view.CurrentValue != nil {
			totalValue += *view.CurrentValue
			totals.UnrealizedPnl += *view.UnrealizedPnl
		} else {
			// no quote: weight the position at cost
			totalValue += h.TotalCost
		}
		totals.TotalInvested += h.TotalCost

		views = append(views, view)
	}

	for i := range views {
		base := views[i].TotalCost
		if views[i].CurrentValue != nil {
			base = *views[i].CurrentValue
		}
		if totalValue > 0 {
			views[i].WeightPct = utils.Round2(base / totalValue * 100)
		}
	}

	totals.CurrentValue = utils.Round2(totalValue)
	totals.TotalInvested = utils.Round2(totals.TotalInvested)
	totals.UnrealizedPnl = utils.Round2(totals.UnrealizedPnl)
	if totals.TotalInvested > 0 {
		totals.UnrealizedPnlPct = utils.Round2(totals.UnrealizedPnl / totals.TotalInvested * 100)
	}
	totals.RealizedPnl = utils.Round2(realized)
	totals.NumHoldings = len(holdings)

	return views, totals, nil
}

// GetAllocation breaks current value down by ticker and by sector.
func (s *PortfolioService) GetAllocation(ctx context.Context, portfolioID int64) (allocation model.Allocation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetAllocation"

	slog.Debug("GetAllocation start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("GetAllocation finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if _, err = s.GetPortfolio(ctx, portfolioID); err != nil {
		return model.Allocation{}, err
	}

	holdings, err := s.repo.GetHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Allocation{}, err
	}

	quotes := s.getQuotes(ctx, tickersOf(holdings))

	total := 0.0
	values := make(map[string]float64, len(holdings))
	sectors := make(map[string]float64)
	for _, h := range holdings {
		value := float64(h.Quantity) * s.currentPrice(ctx, h, quotes)
		values[h.Ticker] = value

		sector := h.Sector
		if sector == "" {
			sector = "Unclassified"
		}
		sectors[sector] += value
		total += value
	}

	for _, h := range holdings {
		item := model.AllocationItem{Label: h.Ticker, Value: utils.Round2(values[h.Ticker])}
		if total > 0 {
			item.Pct = utils.Round2(values[h.Ticker] / total * 100)
		}
		allocation.ByStock = append(allocation.ByStock, item)
	}

	for sector, value := range sectors {
		item := model.AllocationItem{Label: sector, Value: utils.Round2(value)}
		if total > 0 {
			item.Pct = utils.Round2(value / total * 100)
		}
		allocation.BySector = append(allocation.BySector, item)
	}

	return allocation, nil
}

func tickersOf(holdings []model.Holding) []string {
	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}

// getQuotes resolves live quotes for tickers, cache first, oracle on miss.
// Failures leave the symbol out of the result; callers fall back per holding.
func (s *PortfolioService) getQuotes(ctx context.Context, tickers []string) map[string]model.Quote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.getQuotes"

	quotes := make(map[string]model.Quote, len(tickers))
	fresh := make(map[string]model.Quote)

	for _, ticker := range tickers {
		symbol, ok := yahooApi.MapSymbol(ticker)
		if !ok {
			continue
		}
		if _, done := quotes[symbol]; done {
			continue
		}

		quote, err := s.cache.GetQuote(ctx, symbol)
		if err == nil {
			quotes[symbol] = quote
			continue
		}

		quote, err = s.oracle.GetQuote(ctx, symbol)
		if err != nil {
			slog.Warn("can't get quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			continue
		}

		quotes[symbol] = quote
		fresh[symbol] = quote
	}

	if len(fresh) > 0 {
		if err := s.cache.SetQuotes(ctx, fresh); err != nil {
			slog.Warn("can't cache quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	return quotes
}

// currentPrice values a holding for totals: live quote when present, then
// the latest stored close, then avg cost.
func (s *PortfolioService) currentPrice(ctx context.Context, h model.Holding, quotes map[string]model.Quote) float64 {
	symbol, ok := yahooApi.MapSymbol(h.Ticker)
	if !ok {
		return h.AvgCost
	}

	if quote, found := quotes[symbol]; found {
		return quote.Price
	}

	stored, err := s.repo.GetLatestIndexPriceOnOrBefore(ctx, symbol, s.today())
	if err == nil {
		return stored.Close
	}

	return h.AvgCost
}
