package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nimishshah/portfolio_engine/data/repository"
	"github.com/nimishshah/portfolio_engine/internal/externalApi/yahooApi"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/service"
	"github.com/nimishshah/portfolio_engine/utils"
)

func validateTxnInput(input model.TransactionInput) error {
	if input.Ticker == "" {
		return service.ErrValidation
	}
	if input.Type != model.TxnTypeBuy && input.Type != model.TxnTypeSell {
		return service.ErrValidation
	}
	if input.Quantity <= 0 || input.Price <= 0 {
		return service.ErrValidation
	}
	if _, err := time.Parse(model.DateLayout, input.TxnDate); err != nil {
		return service.ErrValidation
	}
	return nil
}

// AddTransaction appends a BUY or SELL and applies the average-cost holding
// update in the same transaction. A SELL larger than the current position is
// rejected; SELL rows get realized pnl fields computed at the pre-sale avg
// cost.
func (s *PortfolioService) AddTransaction(ctx context.Context, portfolioID int64, input model.TransactionInput) (txn model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddTransaction"

	slog.Debug("AddTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.String("ticker", input.Ticker))
	defer func() {
		slog.Debug("AddTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID), slog.String("ticker", input.Ticker))
	}()

	if err = validateTxnInput(input); err != nil {
		return model.Transaction{}, err
	}

	if _, err = s.GetPortfolio(ctx, portfolioID); err != nil {
		return model.Transaction{}, err
	}

	if input.Exchange == "" {
		input.Exchange = "NSE"
	}

	holding, err := s.repo.GetHolding(ctx, portfolioID, input.Ticker)
	holdingExists := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("got error from repo.GetHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	txn = model.Transaction{
		PortfolioID: portfolioID,
		Ticker:      input.Ticker,
		Exchange:    input.Exchange,
		Type:        input.Type,
		Quantity:    input.Quantity,
		Price:       input.Price,
		TotalValue:  float64(input.Quantity) * input.Price,
		TxnDate:     input.TxnDate,
		Notes:       input.Notes,
	}

	newTicker := false

	switch input.Type {
	case model.TxnTypeBuy:
		newTicker = !holdingExists

	case model.TxnTypeSell:
		if !holdingExists || input.Quantity > holding.Quantity {
			return model.Transaction{}, service.ErrSellExceedsHolding
		}

		avgCost := holding.TotalCost / float64(holding.Quantity)
		realized := (input.Price - avgCost) * float64(input.Quantity)
		costBasis := avgCost * float64(input.Quantity)
		txn.RealizedPnl = &realized
		txn.CostBasisAtSell = &costBasis
		if avgCost > 0 {
			pct := (input.Price/avgCost - 1) * 100
			txn.RealizedPnlPct = &pct
		}
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		txnID, err := s.repo.InsertTransaction(ctx, txn)
		if err != nil {
			return err
		}
		txn.ID = txnID

		switch input.Type {
		case model.TxnTypeBuy:
			if !holdingExists {
				return s.repo.InsertHolding(ctx, model.Holding{
					PortfolioID: portfolioID,
					Ticker:      input.Ticker,
					Exchange:    input.Exchange,
					Sector:      input.Sector,
					Quantity:    input.Quantity,
					AvgCost:     input.Price,
					TotalCost:   txn.TotalValue,
				})
			}

			newQty := holding.Quantity + input.Quantity
			newCost := holding.TotalCost + txn.TotalValue
			return s.repo.UpdateHolding(ctx, holding.ID, newQty, newCost/float64(newQty), newCost)

		case model.TxnTypeSell:
			newQty := holding.Quantity - input.Quantity
			if newQty == 0 {
				return s.repo.DeleteHolding(ctx, holding.ID)
			}

			// sell never revalues avg cost
			avgCost := holding.TotalCost / float64(holding.Quantity)
			return s.repo.UpdateHolding(ctx, holding.ID, newQty, avgCost, avgCost*float64(newQty))
		}

		return nil
	})
	if err != nil {
		slog.Error("transaction write failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	if err = s.repo.TouchPortfolio(ctx, portfolioID); err != nil {
		slog.Warn("can't touch portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	if newTicker {
		// fire-and-forget: warm one year of daily closes for the new ticker
		go s.warmPriceHistory(context.WithoutCancel(ctx), input.Ticker)
	}

	return txn, nil
}

func (s *PortfolioService) warmPriceHistory(ctx context.Context, ticker string) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.warmPriceHistory"

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in warmPriceHistory", slog.String("op", op), slog.Any("panic", r))
		}
	}()

	symbol, ok := yahooApi.MapSymbol(ticker)
	if !ok {
		return
	}

	to := time.Now().In(s.loc)
	from := to.AddDate(0, 0, -s.cfg.Jobs.WarmHistoryDays)

	bars, err := s.oracle.GetDailyBars(ctx, symbol, from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		slog.Warn("price warm fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return
	}

	if err = s.repo.UpsertIndexPrices(ctx, bars); err != nil {
		slog.Warn("price warm store failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return
	}

	slog.Debug("price history warmed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Int("bars", len(bars)))
}

// ListTransactions returns newest-first rows, optionally filtered by type.
func (s *PortfolioService) ListTransactions(ctx context.Context, portfolioID int64, txnType model.TxnType, limit int) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListTransactions"

	if txnType != "" && txnType != model.TxnTypeBuy && txnType != model.TxnTypeSell {
		return nil, service.ErrValidation
	}
	if limit <= 0 {
		limit = 200
	}

	if _, err := s.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}

	txns, err := s.repo.GetTransactions(ctx, portfolioID, txnType, limit)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return txns, nil
}

// BulkImport creates a portfolio from a PMS statement in one transaction:
// current holdings become inception-dated BUYs, realized gains become
// statement-dated SELLs carrying the reported pnl, and the optional NAV
// figure becomes a statement-date snapshot.
func (s *PortfolioService) BulkImport(ctx context.Context, imp model.BulkImport) (portfolioID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BulkImport"

	slog.Debug("BulkImport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", imp.Name))
	defer func() {
		slog.Debug("BulkImport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", imp.Name))
	}()

	if imp.Name == "" {
		return 0, service.ErrValidation
	}
	if _, err = time.Parse(model.DateLayout, imp.InceptionDate); err != nil {
		return 0, service.ErrValidation
	}
	if _, err = time.Parse(model.DateLayout, imp.StatementDate); err != nil {
		return 0, service.ErrValidation
	}
	for _, h := range imp.Holdings {
		if h.Ticker == "" || h.Quantity <= 0 {
			return 0, service.ErrValidation
		}
	}
	for _, g := range imp.RealizedGains {
		if g.Ticker == "" || g.Quantity <= 0 {
			return 0, service.ErrValidation
		}
	}

	benchmark := imp.Benchmark
	if benchmark == "" {
		benchmark = "NIFTY"
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		portfolioID, err = s.repo.CreatePortfolio(ctx, imp.Name, imp.Description, benchmark, "default")
		if err != nil {
			return err
		}

		for _, h := range imp.Holdings {
			exchange := h.Exchange
			if exchange == "" {
				exchange = "NSE"
			}

			totalCost := h.TotalCost
			avgCost := h.AvgCost
			if totalCost == 0 {
				totalCost = avgCost * float64(h.Quantity)
			}
			if avgCost == 0 && h.Quantity > 0 {
				avgCost = totalCost / float64(h.Quantity)
			}

			err = s.repo.InsertHolding(ctx, model.Holding{
				PortfolioID: portfolioID,
				Ticker:      h.Ticker,
				Exchange:    exchange,
				Sector:      h.Sector,
				Quantity:    h.Quantity,
				AvgCost:     avgCost,
				TotalCost:   totalCost,
			})
			if err != nil {
				return err
			}

			_, err = s.repo.InsertTransaction(ctx, model.Transaction{
				PortfolioID: portfolioID,
				Ticker:      h.Ticker,
				Exchange:    exchange,
				Type:        model.TxnTypeBuy,
				Quantity:    h.Quantity,
				Price:       avgCost,
				TotalValue:  totalCost,
				TxnDate:     imp.InceptionDate,
				Notes:       "Imported opening position",
			})
			if err != nil {
				return err
			}
		}

		for _, g := range imp.RealizedGains {
			price := g.SellValue / float64(g.Quantity)
			realized := g.GainLoss
			costBasis := g.BuyValue
			pct := g.ReturnPct
			if pct == 0 && g.BuyValue > 0 {
				pct = g.GainLoss / g.BuyValue * 100
			}

			_, err = s.repo.InsertTransaction(ctx, model.Transaction{
				PortfolioID:     portfolioID,
				Ticker:          g.Ticker,
				Exchange:        "NSE",
				Type:            model.TxnTypeSell,
				Quantity:        g.Quantity,
				Price:           price,
				TotalValue:      g.SellValue,
				TxnDate:         imp.StatementDate,
				Notes:           "Imported realized gain",
				RealizedPnl:     &realized,
				RealizedPnlPct:  &pct,
				CostBasisAtSell: &costBasis,
			})
			if err != nil {
				return err
			}
		}

		if imp.Nav != nil {
			realizedSum := 0.0
			for _, g := range imp.RealizedGains {
				realizedSum += g.GainLoss
			}

			err = s.repo.UpsertNavSnapshot(ctx, model.NavSnapshot{
				PortfolioID:           portfolioID,
				Date:                  imp.StatementDate,
				TotalValue:            imp.Nav.TotalValue,
				TotalCost:             imp.Nav.TotalCost,
				UnrealizedPnl:         imp.Nav.TotalValue - imp.Nav.TotalCost,
				RealizedPnlCumulative: realizedSum,
				NumHoldings:           len(imp.Holdings),
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, service.ErrAlreadyExists
		}
		slog.Error("bulk import failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return portfolioID, nil
}
