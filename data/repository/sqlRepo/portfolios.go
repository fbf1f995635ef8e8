package sqlRepo

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/nimishshah/portfolio_engine/data/repository"
	"github.com/nimishshah/portfolio_engine/internal/converter/dbConverter"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/model/dbModel"
	"github.com/nimishshah/portfolio_engine/utils"
)

func isUniqueViolation(err error) bool {
	// 23505 is the postgres unique_violation code; mattn/go-sqlite3 reports
	// "UNIQUE constraint failed" in the error text.
	return strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SqlRepo) CreatePortfolio(ctx context.Context, name, description, benchmark, tenantID string) (portfolioID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO portfolios(name, description, benchmark, status, tenant_id) VALUES(?, ?, ?, 'ACTIVE', ?) RETURNING id`

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreatePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	err = q.QueryRowContext(ctx, q.Rebind(query), name, description, benchmark, tenantID).Scan(&portfolioID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return portfolioID, nil
}

func (r *SqlRepo) GetPortfolio(ctx context.Context, portfolioID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, name, description, benchmark, status, tenant_id, created_at, updated_at FROM portfolios WHERE id = ?`

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	q := r.txOrDb(ctx)
	err = q.GetContext(ctx, &dbPortfolio, q.Rebind(query), portfolioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, repository.ErrNotFound
		}
		return model.Portfolio{}, err
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

func (r *SqlRepo) GetActivePortfolios(ctx context.Context) (portfolios []model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, name, description, benchmark, status, tenant_id, created_at, updated_at FROM portfolios WHERE status = 'ACTIVE' ORDER BY updated_at DESC`

	slog.Debug("GetActivePortfolios start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetActivePortfolios failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetActivePortfolios completed", slog.String("rqID", rqID))
		}
	}()

	dbPortfolios := make([]dbModel.Portfolio, 0)
	q := r.txOrDb(ctx)
	err = q.SelectContext(ctx, &dbPortfolios, q.Rebind(query))
	if err != nil {
		return nil, err
	}

	portfolios = make([]model.Portfolio, 0, len(dbPortfolios))
	for _, p := range dbPortfolios {
		portfolios = append(portfolios, dbConverter.ConvertPortfolio(p))
	}

	return portfolios, nil
}

func (r *SqlRepo) UpdatePortfolio(ctx context.Context, portfolioID int64, name, description, benchmark string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE portfolios SET name = ?, description = ?, benchmark = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdatePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), name, description, benchmark, portfolioID)
	if err != nil {
		return err
	}

	if n, raErr := res.RowsAffected(); raErr == nil && n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SqlRepo) ArchivePortfolio(ctx context.Context, portfolioID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE portfolios SET status = 'ARCHIVED', updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	slog.Debug("ArchivePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ArchivePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ArchivePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), portfolioID)
	if err != nil {
		return err
	}

	if n, raErr := res.RowsAffected(); raErr == nil && n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SqlRepo) TouchPortfolio(ctx context.Context, portfolioID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE portfolios SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	slog.Debug("TouchPortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("TouchPortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("TouchPortfolio completed", slog.String("rqID", rqID))
		}
	}()

	q := r.txOrDb(ctx)
	_, err = q.ExecContext(ctx, q.Rebind(query), portfolioID)
	return err
}
