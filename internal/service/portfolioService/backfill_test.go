package portfolioService

import (
	"math"
	"reflect"
	"testing"

	"github.com/nimishshah/portfolio_engine/internal/model"
)

func bars(symbol string, dates ...string) []model.IndexPrice {
	out := make([]model.IndexPrice, 0, len(dates))
	for _, d := range dates {
		out = append(out, model.IndexPrice{Symbol: symbol, Date: d, Close: 100})
	}
	return out
}

func TestTradingDaysFollowBenchmark(t *testing.T) {
	benchBars := bars("^NSEI", "2024-01-01", "2024-01-02", "2024-01-04", "2024-01-08")

	got := tradingDays(benchBars, "2024-01-02", "2024-01-05")
	want := []string{"2024-01-02", "2024-01-04"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tradingDays = %v, want %v", got, want)
	}
}

func TestTradingDaysWeekdayFallback(t *testing.T) {
	// 2024-01-06 and 2024-01-07 are a weekend
	got := tradingDays(nil, "2024-01-04", "2024-01-09")
	want := []string{"2024-01-04", "2024-01-05", "2024-01-08", "2024-01-09"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tradingDays = %v, want %v", got, want)
	}
}

func TestBuildDailySeriesValuesAndPnl(t *testing.T) {
	txns := []model.Transaction{
		buy("ACME", "2021-01-01", 10, 100),
		buy("ACME", "2021-06-01", 10, 120),
		sell("ACME", "2022-01-01", 5, 150),
	}
	days := []string{"2022-01-03"}
	prices := priceSeries{"ACME": {"2022-01-03": 130}}

	snapshots := buildDailySeries(42, txns, days, prices)
	if len(snapshots) != 1 {
		t.Fatalf("len(snapshots) = %d, want 1", len(snapshots))
	}

	snap := snapshots[0]
	if snap.PortfolioID != 42 || snap.Date != "2022-01-03" {
		t.Fatalf("snapshot identity = %+v", snap)
	}
	if !almostEqual(snap.TotalValue, 1950) {
		t.Fatalf("TotalValue = %v, want 1950", snap.TotalValue)
	}
	if !almostEqual(snap.TotalCost, 1650) {
		t.Fatalf("TotalCost = %v, want 1650", snap.TotalCost)
	}
	if !almostEqual(snap.UnrealizedPnl, 300) {
		t.Fatalf("UnrealizedPnl = %v, want 300", snap.UnrealizedPnl)
	}
	if !almostEqual(snap.RealizedPnlCumulative, 200) {
		t.Fatalf("RealizedPnlCumulative = %v, want 200", snap.RealizedPnlCumulative)
	}
	if snap.NumHoldings != 1 {
		t.Fatalf("NumHoldings = %d, want 1", snap.NumHoldings)
	}
}

func TestBuildDailySeriesForwardFill(t *testing.T) {
	txns := []model.Transaction{buy("ACME", "2024-01-01", 10, 100)}
	days := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	prices := priceSeries{"ACME": {
		"2024-01-01": 110,
		// no close on 01-02
		"2024-01-03": 90,
	}}

	snapshots := buildDailySeries(1, txns, days, prices)

	wantValues := []float64{1100, 1100, 900}
	for i, want := range wantValues {
		if !almostEqual(snapshots[i].TotalValue, want) {
			t.Fatalf("day %s TotalValue = %v, want %v", snapshots[i].Date, snapshots[i].TotalValue, want)
		}
	}
}

func TestBuildDailySeriesValuesUnpricedAtCost(t *testing.T) {
	txns := []model.Transaction{
		buy("ACME", "2024-01-01", 10, 100),
		buy("GROWWDEFNC", "2024-01-01", 5, 40),
	}
	days := []string{"2024-01-01", "2024-01-02"}
	prices := priceSeries{"ACME": {"2024-01-01": 120, "2024-01-02": 120}}

	snapshots := buildDailySeries(1, txns, days, prices)

	// priced leg 10*120 plus the unpriced leg at its 200 cost
	for _, snap := range snapshots {
		if !almostEqual(snap.TotalValue, 1400) {
			t.Fatalf("day %s TotalValue = %v, want 1400", snap.Date, snap.TotalValue)
		}
		if !almostEqual(snap.UnrealizedPnl, snap.TotalValue-snap.TotalCost) {
			t.Fatalf("day %s UnrealizedPnl = %v, TotalValue-TotalCost = %v", snap.Date, snap.UnrealizedPnl, snap.TotalValue-snap.TotalCost)
		}
	}
}

func TestBuildDailySeriesClosedPositionDropsOut(t *testing.T) {
	txns := []model.Transaction{
		buy("ACME", "2024-01-01", 10, 100),
		sell("ACME", "2024-01-02", 10, 110),
	}
	days := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	prices := priceSeries{"ACME": {"2024-01-01": 100, "2024-01-02": 110, "2024-01-03": 120}}

	snapshots := buildDailySeries(1, txns, days, prices)

	if snapshots[0].NumHoldings != 1 {
		t.Fatalf("day 1 NumHoldings = %d, want 1", snapshots[0].NumHoldings)
	}
	for _, snap := range snapshots[1:] {
		if snap.NumHoldings != 0 {
			t.Fatalf("day %s NumHoldings = %d, want 0", snap.Date, snap.NumHoldings)
		}
		if !almostEqual(snap.TotalValue, 0) || !almostEqual(snap.TotalCost, 0) {
			t.Fatalf("day %s value/cost = %v/%v, want 0/0", snap.Date, snap.TotalValue, snap.TotalCost)
		}
		if !almostEqual(snap.RealizedPnlCumulative, 100) {
			t.Fatalf("day %s RealizedPnlCumulative = %v, want 100", snap.Date, snap.RealizedPnlCumulative)
		}
	}
}

func TestBuildDailySeriesDeterministic(t *testing.T) {
	txns := []model.Transaction{
		buy("ACME", "2024-01-01", 10, 100),
		buy("BOLT", "2024-01-02", 4, 250),
		sell("ACME", "2024-01-03", 5, 120),
	}
	days := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	prices := priceSeries{
		"ACME": {"2024-01-01": 100, "2024-01-03": 120},
		"BOLT": {"2024-01-02": 260, "2024-01-04": 240},
	}

	first := buildDailySeries(1, txns, days, prices)
	second := buildDailySeries(1, txns, days, prices)

	if len(first) != len(second) {
		t.Fatalf("series lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if math.Abs(first[i].TotalValue-second[i].TotalValue) > 1e-9 ||
			math.Abs(first[i].RealizedPnlCumulative-second[i].RealizedPnlCumulative) > 1e-9 {
			t.Fatalf("rebuild diverged on day %s: %+v vs %+v", first[i].Date, first[i], second[i])
		}
	}
}

func TestDistinctTickersPreservesOrder(t *testing.T) {
	txns := []model.Transaction{
		buy("ACME", "2024-01-01", 1, 1),
		buy("BOLT", "2024-01-02", 1, 1),
		sell("ACME", "2024-01-03", 1, 1),
	}

	got := distinctTickers(txns)
	want := []string{"ACME", "BOLT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("distinctTickers = %v, want %v", got, want)
	}
}
