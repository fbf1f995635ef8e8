package portfolioService

import (
	"math"
	"testing"
	"time"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestXIRRSingleYearRoundTrip(t *testing.T) {
	flows := []cashflow{
		{date: day("2021-01-01"), amount: -100},
		{date: day("2022-01-01"), amount: 110},
	}

	got := xirr(flows)
	if got == nil {
		t.Fatal("xirr returned nil")
	}
	if math.Abs(*got-10.00) > 0.01 {
		t.Fatalf("xirr = %v, want 10.00 +/- 0.01", *got)
	}
}

func TestXIRRSolvesNPVToZero(t *testing.T) {
	flows := []cashflow{
		{date: day("2020-01-01"), amount: -1000},
		{date: day("2020-07-01"), amount: -500},
		{date: day("2021-03-01"), amount: 200},
		{date: day("2022-01-01"), amount: 1600},
	}

	got := xirr(flows)
	if got == nil {
		t.Fatal("xirr returned nil")
	}

	// substituting the solution back must leave a negligible residual
	rate := *got / 100
	t0 := flows[0].date
	var npv float64
	for _, f := range flows {
		years := f.date.Sub(t0).Hours() / 24 / 365
		npv += f.amount / math.Pow(1+rate, years)
	}
	if math.Abs(npv) > 1e-4 {
		t.Fatalf("residual npv = %v at rate %v%%, want < 1e-4", npv, *got)
	}
}

func TestXIRRDegenerateInputs(t *testing.T) {
	tests := []struct {
		name  string
		flows []cashflow
	}{
		{name: "empty", flows: nil},
		{name: "single flow", flows: []cashflow{{date: day("2020-01-01"), amount: -100}}},
		{
			// total loss pushes the rate below -99%
			name: "near total loss",
			flows: []cashflow{
				{date: day("2020-01-01"), amount: -100000},
				{date: day("2021-01-01"), amount: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := xirr(tt.flows); got != nil {
				t.Fatalf("xirr = %v, want nil", *got)
			}
		})
	}
}

func TestCAGR(t *testing.T) {
	two := 2.0
	tests := []struct {
		name          string
		currentValue  float64
		realizedPnl   float64
		totalInvested float64
		years         float64
		want          *float64 // nil means undefined
		wantPct       float64
	}{
		{name: "doubling over one year", currentValue: 200, totalInvested: 100, years: 1, want: &two, wantPct: 100},
		{name: "realized counts toward the ending value", currentValue: 150, realizedPnl: 50, totalInvested: 100, years: 2, want: &two, wantPct: 41.42},
		{name: "zero years", currentValue: 200, totalInvested: 100, years: 0},
		{name: "nothing invested", currentValue: 200, totalInvested: 0, years: 1},
		{name: "wiped out", currentValue: 0, realizedPnl: 0, totalInvested: 100, years: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cagr(tt.currentValue, tt.realizedPnl, tt.totalInvested, tt.years)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("cagr = %v, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("cagr returned nil")
			}
			if math.Abs(*got-tt.wantPct) > 0.01 {
				t.Fatalf("cagr = %v, want %v +/- 0.01", *got, tt.wantPct)
			}
		})
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   *float64
		wantDD float64
	}{
		{name: "empty", values: nil},
		{name: "single point", values: []float64{100}},
		{name: "monotonic rise", values: []float64{100, 110, 120}, want: fptr(0), wantDD: 0},
		{name: "deepest decline wins", values: []float64{100, 120, 90, 150, 80}, want: fptr(0), wantDD: -46.67},
		{name: "peak before recovery", values: []float64{100, 50, 200, 180}, want: fptr(0), wantDD: -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maxDrawdown(tt.values)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("maxDrawdown = %v, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("maxDrawdown returned nil")
			}
			if math.Abs(*got-tt.wantDD) > 0.01 {
				t.Fatalf("maxDrawdown = %v, want %v +/- 0.01", *got, tt.wantDD)
			}
		})
	}
}
