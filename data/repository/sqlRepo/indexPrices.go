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

func indexPriceToDb(p model.IndexPrice) dbModel.IndexPrice {
	row := dbModel.IndexPrice{
		Date:   p.Date,
		Symbol: p.Symbol,
		Close:  p.Close,
	}
	if p.Open != nil {
		row.Open = sql.NullFloat64{Float64: *p.Open, Valid: true}
	}
	if p.High != nil {
		row.High = sql.NullFloat64{Float64: *p.High, Valid: true}
	}
	if p.Low != nil {
		row.Low = sql.NullFloat64{Float64: *p.Low, Valid: true}
	}
	if p.Volume != nil {
		row.Volume = sql.NullInt64{Int64: *p.Volume, Valid: true}
	}
	return row
}

// UpsertIndexPrices writes daily bars in chunks of batchSize rows, replacing
// values already stored for the same symbol and date.
func (r *SqlRepo) UpsertIndexPrices(ctx context.Context, prices []model.IndexPrice) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO index_prices(date, symbol, close_price, open_price, high_price, low_price, volume)
		VALUES(:date, :symbol, :close_price, :open_price, :high_price, :low_price, :volume)
		ON CONFLICT(symbol, date) DO UPDATE SET
			close_price = excluded.close_price,
			open_price = excluded.open_price,
			high_price = excluded.high_price,
			low_price = excluded.low_price,
			volume = excluded.volume`

	slog.Debug("UpsertIndexPrices start", slog.String("rqID", rqID), slog.Int("rows", len(prices)))
	defer func() {
		if err != nil {
			slog.Error("UpsertIndexPrices failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertIndexPrices completed", slog.String("rqID", rqID))
		}
	}()

	rows := make([]dbModel.IndexPrice, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, indexPriceToDb(p))
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

// GetIndexCloses returns the bars of a symbol between from and to inclusive,
// oldest first.
func (r *SqlRepo) GetIndexCloses(ctx context.Context, symbol, from, to string) (prices []model.IndexPrice, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT date, symbol, close_price, open_price, high_price, low_price, volume FROM index_prices WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date ASC`

	slog.Debug("GetIndexCloses start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetIndexCloses failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetIndexCloses completed", slog.String("rqID", rqID))
		}
	}()

	dbPrices := make([]dbModel.IndexPrice, 0)
	q := r.txOrDb(ctx)
	err = q.SelectContext(ctx, &dbPrices, q.Rebind(query), symbol, from, to)
	if err != nil {
		return nil, err
	}

	prices = make([]model.IndexPrice, 0, len(dbPrices))
	for _, p := range dbPrices {
		prices = append(prices, dbConverter.ConvertIndexPrice(p))
	}

	return prices, nil
}

func (r *SqlRepo) GetLatestIndexPriceOnOrBefore(ctx context.Context, symbol, date string) (price model.IndexPrice, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT date, symbol, close_price, open_price, high_price, low_price, volume FROM index_prices WHERE symbol = ? AND date <= ? ORDER BY date DESC LIMIT 1`

	slog.Debug("GetLatestIndexPriceOnOrBefore start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetLatestIndexPriceOnOrBefore failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestIndexPriceOnOrBefore completed", slog.String("rqID", rqID))
		}
	}()

	dbPrice := dbModel.IndexPrice{}
	q := r.txOrDb(ctx)
	err = q.GetContext(ctx, &dbPrice, q.Rebind(query), symbol, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.IndexPrice{}, repository.ErrNotFound
		}
		return model.IndexPrice{}, err
	}

	return dbConverter.ConvertIndexPrice(dbPrice), nil
}

func (r *SqlRepo) GetFirstIndexPriceOnOrAfter(ctx context.Context, symbol, date string) (price model.IndexPrice, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT date, symbol, close_price, open_price, high_price, low_price, volume FROM index_prices WHERE symbol = ? AND date >= ? ORDER BY date ASC LIMIT 1`

	slog.Debug("GetFirstIndexPriceOnOrAfter start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetFirstIndexPriceOnOrAfter failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetFirstIndexPriceOnOrAfter completed", slog.String("rqID", rqID))
		}
	}()

	dbPrice := dbModel.IndexPrice{}
	q := r.txOrDb(ctx)
	err = q.GetContext(ctx, &dbPrice, q.Rebind(query), symbol, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.IndexPrice{}, repository.ErrNotFound
		}
		return model.IndexPrice{}, err
	}

	return dbConverter.ConvertIndexPrice(dbPrice), nil
}
