package portfolioService

import (
	"context"
	"errors"
	"testing"

	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/service"
)

func TestBulkImport(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	id, err := svc.BulkImport(ctx, model.BulkImport{
		Name:          "PMS Statement",
		InceptionDate: "2023-04-01",
		StatementDate: "2024-03-31",
		Holdings: []model.BulkHolding{
			{Ticker: "ACME", Sector: "Industrials", Quantity: 10, AvgCost: 100},
			{Ticker: "BOLT", Quantity: 4, TotalCost: 1000},
		},
		RealizedGains: []model.BulkRealizedGain{
			{Ticker: "ZETA", Quantity: 20, BuyValue: 2000, SellValue: 2600, GainLoss: 600},
		},
		Nav: &model.BulkNav{TotalValue: 2100, TotalCost: 2000},
	})
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}

	portfolio, err := svc.GetPortfolio(ctx, id)
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if portfolio.Benchmark != "NIFTY" {
		t.Fatalf("Benchmark = %q, want NIFTY default", portfolio.Benchmark)
	}

	// avg cost and total cost back-fill each other
	acme, err := repo.GetHolding(ctx, id, "ACME")
	if err != nil {
		t.Fatalf("GetHolding ACME: %v", err)
	}
	if !almostEqual(acme.TotalCost, 1000) {
		t.Fatalf("ACME TotalCost = %v, want 1000", acme.TotalCost)
	}
	bolt, err := repo.GetHolding(ctx, id, "BOLT")
	if err != nil {
		t.Fatalf("GetHolding BOLT: %v", err)
	}
	if !almostEqual(bolt.AvgCost, 250) {
		t.Fatalf("BOLT AvgCost = %v, want 250", bolt.AvgCost)
	}

	txns, err := repo.GetTransactionsAsc(ctx, id)
	if err != nil {
		t.Fatalf("GetTransactionsAsc: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("len(txns) = %d, want 3", len(txns))
	}
	if txns[0].TxnDate != "2023-04-01" || txns[0].Type != model.TxnTypeBuy {
		t.Fatalf("txns[0] = %+v, want inception BUY", txns[0])
	}

	sellTxn := txns[2]
	if sellTxn.Type != model.TxnTypeSell || sellTxn.TxnDate != "2024-03-31" {
		t.Fatalf("txns[2] = %+v, want statement-date SELL", sellTxn)
	}
	if !almostEqual(sellTxn.Price, 130) {
		t.Fatalf("sell price = %v, want 130", sellTxn.Price)
	}
	if sellTxn.RealizedPnl == nil || !almostEqual(*sellTxn.RealizedPnl, 600) {
		t.Fatalf("RealizedPnl = %v, want 600", sellTxn.RealizedPnl)
	}
	if sellTxn.RealizedPnlPct == nil || !almostEqual(*sellTxn.RealizedPnlPct, 30) {
		t.Fatalf("RealizedPnlPct = %v, want 30", sellTxn.RealizedPnlPct)
	}
	if sellTxn.CostBasisAtSell == nil || !almostEqual(*sellTxn.CostBasisAtSell, 2000) {
		t.Fatalf("CostBasisAtSell = %v, want 2000", sellTxn.CostBasisAtSell)
	}

	snapshots, err := repo.GetNavHistory(ctx, id, "")
	if err != nil {
		t.Fatalf("GetNavHistory: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("len(snapshots) = %d, want 1", len(snapshots))
	}
	snap := snapshots[0]
	if snap.Date != "2024-03-31" || !almostEqual(snap.TotalValue, 2100) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if !almostEqual(snap.RealizedPnlCumulative, 600) {
		t.Fatalf("RealizedPnlCumulative = %v, want 600", snap.RealizedPnlCumulative)
	}
}

func TestBulkImportValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	tests := []struct {
		name string
		imp  model.BulkImport
	}{
		{name: "missing name", imp: model.BulkImport{InceptionDate: "2023-04-01", StatementDate: "2024-03-31"}},
		{name: "bad inception date", imp: model.BulkImport{Name: "X", InceptionDate: "April 2023", StatementDate: "2024-03-31"}},
		{name: "bad statement date", imp: model.BulkImport{Name: "X", InceptionDate: "2023-04-01", StatementDate: ""}},
		{
			name: "holding without ticker",
			imp: model.BulkImport{
				Name: "X", InceptionDate: "2023-04-01", StatementDate: "2024-03-31",
				Holdings: []model.BulkHolding{{Quantity: 1, AvgCost: 10}},
			},
		},
		{
			name: "realized gain with zero quantity",
			imp: model.BulkImport{
				Name: "X", InceptionDate: "2023-04-01", StatementDate: "2024-03-31",
				RealizedGains: []model.BulkRealizedGain{{Ticker: "ZETA"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.BulkImport(context.Background(), tt.imp); !errors.Is(err, service.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestBulkImportDuplicateName(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	imp := model.BulkImport{Name: "PMS Statement", InceptionDate: "2023-04-01", StatementDate: "2024-03-31"}
	if _, err := svc.BulkImport(ctx, imp); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := svc.BulkImport(ctx, imp); !errors.Is(err, service.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}
