package sqlRepo

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/nimishshah/portfolio_engine/data/repository"
	"github.com/nimishshah/portfolio_engine/internal/converter/dbConverter"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/model/dbModel"
	"github.com/nimishshah/portfolio_engine/utils"
)

func (r *SqlRepo) GetHolding(ctx context.Context, portfolioID int64, ticker string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, portfolio_id, ticker, exchange, sector, quantity, avg_cost, total_cost FROM holdings WHERE portfolio_id = ? AND ticker = ?`

	slog.Debug("GetHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolding completed", slog.String("rqID", rqID))
		}
	}()

	dbHolding := dbModel.Holding{}
	q := r.txOrDb(ctx)
	err = q.GetContext(ctx, &dbHolding, q.Rebind(query), portfolioID, ticker)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, repository.ErrNotFound
		}
		return model.Holding{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

// GetHoldings returns the open positions of a portfolio, largest cost first.
func (r *SqlRepo) GetHoldings(ctx context.Context, portfolioID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, portfolio_id, ticker, exchange, sector, quantity, avg_cost, total_cost FROM holdings WHERE portfolio_id = ? AND quantity > 0 ORDER BY total_cost DESC`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID))
		}
	}()

	dbHoldings := make([]dbModel.Holding, 0)
	q := r.txOrDb(ctx)
	err = q.SelectContext(ctx, &dbHoldings, q.Rebind(query), portfolioID)
	if err != nil {
		return nil, err
	}

	holdings = make([]model.Holding, 0, len(dbHoldings))
	for _, h := range dbHoldings {
		holdings = append(holdings, dbConverter.ConvertHolding(h))
	}

	return holdings, nil
}

func (r *SqlRepo) InsertHolding(ctx context.Context, holding model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO holdings(portfolio_id, ticker, exchange, sector, quantity, avg_cost, total_cost) VALUES(?, ?, ?, ?, ?, ?, ?)`

	slog.Debug("InsertHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHolding completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	_, err = q.ExecContext(
		ctx,
		q.Rebind(query),
		holding.PortfolioID,
		holding.Ticker,
		holding.Exchange,
		holding.Sector,
		holding.Quantity,
		utils.Round2(holding.AvgCost),
		utils.Round2(holding.TotalCost),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (r *SqlRepo) UpdateHolding(ctx context.Context, holdingID int64, quantity int, avgCost, totalCost float64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE holdings SET quantity = ?, avg_cost = ?, total_cost = ? WHERE id = ?`

	slog.Debug("UpdateHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateHolding completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	_, err = q.ExecContext(ctx, q.Rebind(query), quantity, utils.Round2(avgCost), utils.Round2(totalCost), holdingID)
	return err
}

func (r *SqlRepo) DeleteHolding(ctx context.Context, holdingID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM holdings WHERE id = ?`

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHolding completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	_, err = q.ExecContext(ctx, q.Rebind(query), holdingID)
	return err
}
