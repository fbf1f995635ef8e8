package sqlRepo

import (
	"context"
	"log/slog"

	"github.com/nimishshah/portfolio_engine/internal/converter/dbConverter"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/model/dbModel"
	"github.com/nimishshah/portfolio_engine/utils"
)

func (r *SqlRepo) InsertTransaction(ctx context.Context, txn model.Transaction) (txnID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO transactions(portfolio_id, ticker, exchange, txn_type, quantity, price, total_value, txn_date, notes, realized_pnl, realized_pnl_pct, cost_basis_at_sell)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	slog.Debug("InsertTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID))
		}
	}()

	var realizedPnl, realizedPnlPct, costBasis interface{}
	if txn.RealizedPnl != nil {
		realizedPnl = utils.Round2(*txn.RealizedPnl)
	}
	if txn.RealizedPnlPct != nil {
		realizedPnlPct = utils.Round2(*txn.RealizedPnlPct)
	}
	if txn.CostBasisAtSell != nil {
		costBasis = utils.Round2(*txn.CostBasisAtSell)
	}

	q := r.txOrDb(ctx)
	err = q.QueryRowContext(
		ctx,
		q.Rebind(query),
		txn.PortfolioID,
		txn.Ticker,
		txn.Exchange,
		string(txn.Type),
		txn.Quantity,
		utils.Round2(txn.Price),
		utils.Round2(txn.TotalValue),
		txn.TxnDate,
		txn.Notes,
		realizedPnl,
		realizedPnlPct,
		costBasis,
	).Scan(&txnID)
	if err != nil {
		return 0, err
	}

	return txnID, nil
}

// GetTransactions returns newest-first rows, optionally filtered by type.
// limit <= 0 means no limit.
func (r *SqlRepo) GetTransactions(ctx context.Context, portfolioID int64, txnType model.TxnType, limit int) (txns []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, portfolio_id, ticker, exchange, txn_type, quantity, price, total_value, txn_date, notes, realized_pnl, realized_pnl_pct, cost_basis_at_sell, created_at
		FROM transactions WHERE portfolio_id = ?`

	args := []interface{}{portfolioID}
	if txnType != "" {
		query += ` AND txn_type = ?`
		args = append(args, string(txnType))
	}
	query += ` ORDER BY txn_date DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactions completed", slog.String("rqID", rqID))
		}
	}()

	dbTxns := make([]dbModel.Transaction, 0)
	q := r.txOrDb(ctx)
	err = q.SelectContext(ctx, &dbTxns, q.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	txns = make([]model.Transaction, 0, len(dbTxns))
	for _, t := range dbTxns {
		txns = append(txns, dbConverter.ConvertTransaction(t))
	}

	return txns, nil
}

// GetTransactionsAsc returns all rows of a portfolio in accounting order:
// txn_date ascending, insertion order within a date.
func (r *SqlRepo) GetTransactionsAsc(ctx context.Context, portfolioID int64) (txns []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, portfolio_id, ticker, exchange, txn_type, quantity, price, total_value, txn_date, notes, realized_pnl, realized_pnl_pct, cost_basis_at_sell, created_at
		FROM transactions WHERE portfolio_id = ? ORDER BY txn_date ASC, id ASC`

	slog.Debug("GetTransactionsAsc start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransactionsAsc failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactionsAsc completed", slog.String("rqID", rqID))
		}
	}()

	dbTxns := make([]dbModel.Transaction, 0)
	q := r.txOrDb(ctx)
	err = q.SelectContext(ctx, &dbTxns, q.Rebind(query), portfolioID)
	if err != nil {
		return nil, err
	}

	txns = make([]model.Transaction, 0, len(dbTxns))
	for _, t := range dbTxns {
		txns = append(txns, dbConverter.ConvertTransaction(t))
	}

	return txns, nil
}

func (r *SqlRepo) GetRealizedPnlSum(ctx context.Context, portfolioID int64) (sum float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT COALESCE(SUM(realized_pnl), 0) FROM transactions WHERE portfolio_id = ? AND txn_type = 'SELL'`

	slog.Debug("GetRealizedPnlSum start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetRealizedPnlSum failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetRealizedPnlSum completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	err = q.GetContext(ctx, &sum, q.Rebind(query), portfolioID)
	if err != nil {
		return 0, err
	}

	return sum, nil
}

func (r *SqlRepo) GetRealizedPnlSumUpTo(ctx context.Context, portfolioID int64, date string) (sum float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT COALESCE(SUM(realized_pnl), 0) FROM transactions WHERE portfolio_id = ? AND txn_type = 'SELL' AND txn_date <= ?`

	slog.Debug("GetRealizedPnlSumUpTo start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetRealizedPnlSumUpTo failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetRealizedPnlSumUpTo completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	err = q.GetContext(ctx, &sum, q.Rebind(query), portfolioID, date)
	if err != nil {
		return 0, err
	}

	return sum, nil
}
