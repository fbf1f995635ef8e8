package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nimishshah/portfolio_engine/config"
	"github.com/nimishshah/portfolio_engine/internal/externalApi"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/model/yahooModel"
	"github.com/nimishshah/portfolio_engine/utils"
)

// NiftySymbol is the NIFTY 50 index on Yahoo Finance.
const NiftySymbol = "^NSEI"

// symbolMap holds portfolio tickers whose Yahoo symbol is not simply
// ticker + ".NS". A nil entry means the ticker has no usable quote source
// (recent listings) and must be skipped.
var symbolMap = map[string]*string{
	"NIFTYBEES":            ptr("NIFTYBEES.NS"),
	"GOLDBEES":             ptr("GOLDBEES.NS"),
	"BANKBEES":             ptr("BANKBEES.NS"),
	"LIQUIDCASE":           ptr("LIQUIDBEES.NS"),
	"CPSEETF":              ptr("CPSEETF.NS"),
	"METALETF":             ptr("METALIETF.NS"),
	"SENSEXETF":            ptr("SENSEXETF.NS"),
	"MASPTOP50":            ptr("MASPTOP50.NS"),
	"NETFMID150":           ptr("NETFMID150.NS"),
	"GROWWDEFNC":           nil,
	"FMCGIETF":             ptr("FMCGIETF.NS"),
	"JUNIORBEES":           ptr("JUNIORBEES.NS"),
	"HNGSNGBEES":           ptr("HNGSNGBEES.NS"),
	"PSUBNKBEES":           ptr("PSUBNKBEES.NS"),
	"SILVERBEES":           ptr("SILVERBEES.NS"),
	"INFRABEES":            ptr("INFRABEES.NS"),
	"PHARMABEES":           ptr("PHARMABEES.NS"),
	"OIL ETF":              ptr("OILIETF.NS"),
	"NIPPONAMC - NETFAUTO": ptr("NETFAUTO.NS"),
	"NIFTY":                ptr(NiftySymbol),
}

func ptr(s string) *string { return &s }

// MapSymbol maps a portfolio ticker to its Yahoo Finance symbol. ok is false
// for tickers with no quote source.
func MapSymbol(ticker string) (symbol string, ok bool) {
	if mapped, found := symbolMap[ticker]; found {
		if mapped == nil {
			return "", false
		}
		return *mapped, true
	}
	return ticker + ".NS", true
}

type YahooApi struct {
	client *resty.Client
	loc    *time.Location
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooAPI.URL).
		SetHeader("User-Agent", cfg.API.YahooAPI.UserAgent)

	loc, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		loc = time.UTC
	}

	return &YahooApi{client: client, loc: loc}
}

// GetDailyBars fetches daily bars for symbol between from and to inclusive
// (YYYY-MM-DD). Bar timestamps are converted to dates in the exchange
// timezone. Null bars are skipped.
func (a *YahooApi) GetDailyBars(ctx context.Context, symbol, from, to string) ([]model.IndexPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	fromT, err := time.ParseInLocation(model.DateLayout, from, a.loc)
	if err != nil {
		return nil, fmt.Errorf("parse from date: %w", err)
	}
	toT, err := time.ParseInLocation(model.DateLayout, to, a.loc)
	if err != nil {
		return nil, fmt.Errorf("parse to date: %w", err)
	}

	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"period1":  fmt.Sprintf("%d", fromT.Unix()),
		"period2":  fmt.Sprintf("%d", toT.Unix()+86400), // include the end date
		"interval": "1d",
	}

	slog.Debug("start YahooApi.GetDailyBars request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	chartResp := yahooModel.ChartResponse{}
	err = json.Unmarshal(resp.Body(), &chartResp)
	if err != nil {
		slog.Error("can't unmarshal response into yahooModel.ChartResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if chartResp.Chart.Error != nil {
		slog.Error(
			"YahooApi returned error",
			slog.String("rqID", rqID),
			slog.String("symbol", symbol),
			slog.String("code", chartResp.Chart.Error.Code),
		)
		return nil, externalApi.ErrNoData
	}

	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, externalApi.ErrNoData
	}

	result := chartResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]model.IndexPrice, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := model.IndexPrice{
			Date:   time.Unix(ts, 0).In(a.loc).Format(model.DateLayout),
			Symbol: symbol,
			Close:  *quote.Close[i],
		}
		if i < len(quote.Open) {
			bar.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			bar.High = quote.High[i]
		}
		if i < len(quote.Low) {
			bar.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			bar.Volume = quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	slog.Debug("YahooApi.GetDailyBars request complete", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.Int("bars", len(bars)))

	return bars, nil
}

// GetQuote fetches the current price and previous close for symbol.
func (a *YahooApi) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"interval": "1d",
		"range":    "2d",
	}

	slog.Debug("start YahooApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	chartResp := yahooModel.ChartResponse{}
	err = json.Unmarshal(resp.Body(), &chartResp)
	if err != nil {
		slog.Error("can't unmarshal response into yahooModel.ChartResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	if len(chartResp.Chart.Result) == 0 {
		return model.Quote{}, externalApi.ErrNoData
	}

	meta := chartResp.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return model.Quote{}, externalApi.ErrNoData
	}

	quote := model.Quote{Price: *meta.RegularMarketPrice}

	prevClose := meta.PreviousClose
	if prevClose == nil {
		prevClose = meta.ChartPreviousClose
	}
	if prevClose != nil && *prevClose > 0 {
		quote.PrevClose = *prevClose
		changePct := utils.Round2((quote.Price/quote.PrevClose - 1) * 100)
		quote.DayChangePct = &changePct
	}

	slog.Debug("YahooApi.GetQuote request complete", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return quote, nil
}
