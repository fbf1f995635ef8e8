package yahooApi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nimishshah/portfolio_engine/config"
	"github.com/nimishshah/portfolio_engine/internal/externalApi"
)

func TestMapSymbol(t *testing.T) {
	tests := []struct {
		ticker string
		want   string
		ok     bool
	}{
		{ticker: "RELIANCE", want: "RELIANCE.NS", ok: true},
		{ticker: "NIFTY", want: "^NSEI", ok: true},
		{ticker: "LIQUIDCASE", want: "LIQUIDBEES.NS", ok: true},
		{ticker: "METALETF", want: "METALIETF.NS", ok: true},
		{ticker: "OIL ETF", want: "OILIETF.NS", ok: true},
		{ticker: "NIPPONAMC - NETFAUTO", want: "NETFAUTO.NS", ok: true},
		{ticker: "GROWWDEFNC", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			got, ok := MapSymbol(tt.ticker)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("MapSymbol(%q) = (%q, %v), want (%q, %v)", tt.ticker, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *YahooApi {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.YahooAPI.URL = srv.URL
	cfg.API.YahooAPI.UserAgent = "test-agent"
	cfg.Jobs.Timezone = "UTC"

	return New(cfg)
}

func TestGetDailyBars(t *testing.T) {
	// 2024-01-02 and 2024-01-03 midnight UTC
	body := `{"chart":{"result":[{
		"meta":{"symbol":"RELIANCE.NS","currency":"INR"},
		"timestamp":[1704153600,1704240000,1704326400],
		"indicators":{"quote":[{
			"open":[2500.0,2520.5,null],
			"high":[2550.0,2560.0,null],
			"low":[2490.0,2500.0,null],
			"close":[2540.5,2555.0,null],
			"volume":[1000000,1200000,null]
		}]}
	}],"error":null}}`

	var gotPath string
	api := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("interval = %q, want 1d", got)
		}
		w.Write([]byte(body))
	})

	bars, err := api.GetDailyBars(context.Background(), "RELIANCE.NS", "2024-01-01", "2024-01-05")
	if err != nil {
		t.Fatalf("GetDailyBars: %v", err)
	}
	if gotPath != "/v8/finance/chart/RELIANCE.NS" {
		t.Fatalf("path = %q", gotPath)
	}

	// the null third bar is skipped
	if len(bars) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(bars))
	}
	if bars[0].Date != "2024-01-02" || bars[0].Close != 2540.5 {
		t.Fatalf("bars[0] = %+v", bars[0])
	}
	if bars[1].Date != "2024-01-03" || bars[1].Close != 2555.0 {
		t.Fatalf("bars[1] = %+v", bars[1])
	}
	if bars[0].Symbol != "RELIANCE.NS" {
		t.Fatalf("bars[0].Symbol = %q", bars[0].Symbol)
	}
	if bars[0].Open == nil || *bars[0].Open != 2500.0 {
		t.Fatalf("bars[0].Open = %v", bars[0].Open)
	}
	if bars[0].Volume == nil || *bars[0].Volume != 1000000 {
		t.Fatalf("bars[0].Volume = %v", bars[0].Volume)
	}
}

func TestGetDailyBarsUpstreamError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`

	api := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(body))
	})

	_, err := api.GetDailyBars(context.Background(), "NOPE.NS", "2024-01-01", "2024-01-05")
	if !errors.Is(err, externalApi.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestGetQuote(t *testing.T) {
	body := `{"chart":{"result":[{
		"meta":{"symbol":"RELIANCE.NS","regularMarketPrice":2600.0,"previousClose":2500.0},
		"timestamp":[],
		"indicators":{"quote":[{}]}
	}],"error":null}}`

	api := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("range"); got != "2d" {
			t.Errorf("range = %q, want 2d", got)
		}
		w.Write([]byte(body))
	})

	quote, err := api.GetQuote(context.Background(), "RELIANCE.NS")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if quote.Price != 2600.0 || quote.PrevClose != 2500.0 {
		t.Fatalf("quote = %+v", quote)
	}
	if quote.DayChangePct == nil || *quote.DayChangePct != 4.00 {
		t.Fatalf("DayChangePct = %v, want 4.00", quote.DayChangePct)
	}
}

func TestGetQuoteFallsBackToChartPreviousClose(t *testing.T) {
	body := `{"chart":{"result":[{
		"meta":{"symbol":"^NSEI","regularMarketPrice":22000.0,"chartPreviousClose":20000.0},
		"timestamp":[],
		"indicators":{"quote":[{}]}
	}],"error":null}}`

	api := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	quote, err := api.GetQuote(context.Background(), "^NSEI")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if quote.PrevClose != 20000.0 {
		t.Fatalf("PrevClose = %v, want 20000", quote.PrevClose)
	}
	if quote.DayChangePct == nil || *quote.DayChangePct != 10.00 {
		t.Fatalf("DayChangePct = %v, want 10.00", quote.DayChangePct)
	}
}

func TestGetQuoteNoPrice(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"symbol":"X.NS"}}],"error":null}}`

	api := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	_, err := api.GetQuote(context.Background(), "X.NS")
	if !errors.Is(err, externalApi.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}
