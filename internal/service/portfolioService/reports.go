package portfolioService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nimishshah/portfolio_engine/utils"
)

// ExportHoldings renders the live holdings view as an xlsx workbook.
func (s *PortfolioService) ExportHoldings(ctx context.Context, portfolioID int64) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportHoldings"

	slog.Debug("ExportHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("ExportHoldings finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	portfolio, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	holdings, totals, err := s.GetHoldingsView(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	fileBytes, err = s.reportGen.GenerateHoldingsReport(ctx, portfolio, holdings, totals)
	if err != nil {
		slog.Error("got error from reportGen.GenerateHoldingsReport", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fmt.Sprintf("%s_holdings.xlsx", slugify(portfolio.Name)), nil
}

// ExportTransactions renders the full transaction log as an xlsx workbook.
func (s *PortfolioService) ExportTransactions(ctx context.Context, portfolioID int64) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportTransactions"

	slog.Debug("ExportTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("ExportTransactions finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	portfolio, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	txns, err := s.repo.GetTransactions(ctx, portfolioID, "", 0)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	fileBytes, err = s.reportGen.GenerateTransactionsReport(ctx, portfolio, txns)
	if err != nil {
		slog.Error("got error from reportGen.GenerateTransactionsReport", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fmt.Sprintf("%s_transactions.xlsx", slugify(portfolio.Name)), nil
}

func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}
