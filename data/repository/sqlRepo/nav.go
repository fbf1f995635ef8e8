package sqlRepo

import (
	"context"
	"log/slog"

	"github.com/nimishshah/portfolio_engine/internal/converter/dbConverter"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/model/dbModel"
	"github.com/nimishshah/portfolio_engine/utils"
)

func navSnapshotToDb(s model.NavSnapshot) dbModel.NavSnapshot {
	return dbModel.NavSnapshot{
		PortfolioID:           s.PortfolioID,
		Date:                  s.Date,
		TotalValue:            utils.Round2(s.TotalValue),
		TotalCost:             utils.Round2(s.TotalCost),
		UnrealizedPnl:         utils.Round2(s.UnrealizedPnl),
		RealizedPnlCumulative: utils.Round2(s.RealizedPnlCumulative),
		NumHoldings:           s.NumHoldings,
	}
}

func (r *SqlRepo) DeleteNavHistory(ctx context.Context, portfolioID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM nav_snapshots WHERE portfolio_id = ?`

	slog.Debug("DeleteNavHistory start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteNavHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteNavHistory completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	_, err = q.ExecContext(ctx, q.Rebind(query), portfolioID)
	return err
}

// InsertNavSnapshots writes snapshots in chunks of batchSize rows.
func (r *SqlRepo) InsertNavSnapshots(ctx context.Context, snapshots []model.NavSnapshot) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO nav_snapshots(portfolio_id, date, total_value, total_cost, unrealized_pnl, realized_pnl_cumulative, num_holdings)
		VALUES(:portfolio_id, :date, :total_value, :total_cost, :unrealized_pnl, :realized_pnl_cumulative, :num_holdings)`

	slog.Debug("InsertNavSnapshots start", slog.String("rqID", rqID), slog.Int("rows", len(snapshots)))
	defer func() {
		if err != nil {
			slog.Error("InsertNavSnapshots failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertNavSnapshots completed", slog.String("rqID", rqID))
		}
	}()

	rows := make([]dbModel.NavSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, navSnapshotToDb(s))
	}

	q := r.txOrDb(ctx)
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if _, err = q.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (r *SqlRepo) UpsertNavSnapshot(ctx context.Context, snapshot model.NavSnapshot) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO nav_snapshots(portfolio_id, date, total_value, total_cost, unrealized_pnl, realized_pnl_cumulative, num_holdings)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, date) DO UPDATE SET
			total_value = excluded.total_value,
			total_cost = excluded.total_cost,
			unrealized_pnl = excluded.unrealized_pnl,
			realized_pnl_cumulative = excluded.realized_pnl_cumulative,
			num_holdings = excluded.num_holdings`

	slog.Debug("UpsertNavSnapshot start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertNavSnapshot failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertNavSnapshot completed", slog.String("rqID", rqID))
		}
	}()

	row := navSnapshotToDb(snapshot)
	q := r.txOrDb(ctx)
	_, err = q.ExecContext(
		ctx,
		q.Rebind(query),
		row.PortfolioID,
		row.Date,
		row.TotalValue,
		row.TotalCost,
		row.UnrealizedPnl,
		row.RealizedPnlCumulative,
		row.NumHoldings,
	)
	return err
}

// GetNavHistory returns snapshots from fromDate (inclusive) in date order.
// fromDate == "" returns the whole series.
func (r *SqlRepo) GetNavHistory(ctx context.Context, portfolioID int64, fromDate string) (snapshots []model.NavSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT portfolio_id, date, total_value, total_cost, unrealized_pnl, realized_pnl_cumulative, num_holdings FROM nav_snapshots WHERE portfolio_id = ?`

	args := []interface{}{portfolioID}
	if fromDate != "" {
		query += ` AND date >= ?`
		args = append(args, fromDate)
	}
	query += ` ORDER BY date ASC`

	slog.Debug("GetNavHistory start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetNavHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetNavHistory completed", slog.String("rqID", rqID))
		}
	}()

	dbSnapshots := make([]dbModel.NavSnapshot, 0)
	q := r.txOrDb(ctx)
	err = q.SelectContext(ctx, &dbSnapshots, q.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	snapshots = make([]model.NavSnapshot, 0, len(dbSnapshots))
	for _, s := range dbSnapshots {
		snapshots = append(snapshots, dbConverter.ConvertNavSnapshot(s))
	}

	return snapshots, nil
}
