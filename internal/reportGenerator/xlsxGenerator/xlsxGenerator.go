package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

// GenerateHoldingsReport renders current positions with live valuations into
// a single-sheet workbook.
func (g *XLSXGenerator) GenerateHoldingsReport(ctx context.Context, portfolio model.Portfolio, holdings []model.HoldingView, totals model.HoldingsTotals) (fileBytes []byte, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.GenerateHoldingsReport"

	slog.Debug("GenerateHoldingsReport start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", closeErr.Error()))
		}
	}()

	sheetName := "Holdings"
	if _, err = f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err = f.MergeCell(sheetName, "A1", "I1"); err != nil {
		return nil, err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — Holdings", portfolio.Name))

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return nil, err
	}
	if err = f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return nil, fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "ticker")
	_ = f.SetCellStr(sheetName, "B2", "sector")
	_ = f.SetCellStr(sheetName, "C2", "quantity")
	_ = f.SetCellStr(sheetName, "D2", "avg cost")
	_ = f.SetCellStr(sheetName, "E2", "invested")
	_ = f.SetCellStr(sheetName, "F2", "price")
	_ = f.SetCellStr(sheetName, "G2", "value")
	_ = f.SetCellStr(sheetName, "H2", "unrealized pnl")
	_ = f.SetCellStr(sheetName, "I2", "weight %")

	for i, h := range holdings {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), h.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), h.Sector)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("C%d", row), int(h.Quantity))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), utils.Round2(h.AvgCost))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), utils.Round2(h.TotalCost))
		if h.CurrentPrice != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), *h.CurrentPrice)
		}
		if h.CurrentValue != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), *h.CurrentValue)
		}
		if h.UnrealizedPnl != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), *h.UnrealizedPnl)
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), h.WeightPct)
	}

	totalsRow := len(holdings) + 4
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", totalsRow), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalsRow), totals.TotalInvested)
	_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", totalsRow), totals.CurrentValue)
	_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", totalsRow), totals.UnrealizedPnl)

	if err = f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("GenerateHoldingsReport completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), nil
}

// GenerateTransactionsReport renders the transaction log newest-first.
func (g *XLSXGenerator) GenerateTransactionsReport(ctx context.Context, portfolio model.Portfolio, txns []model.Transaction) (fileBytes []byte, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.GenerateTransactionsReport"

	slog.Debug("GenerateTransactionsReport start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", closeErr.Error()))
		}
	}()

	sheetName := "Transactions"
	if _, err = f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err = f.MergeCell(sheetName, "A1", "H1"); err != nil {
		return nil, err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — Transactions", portfolio.Name))

	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return nil, err
	}
	if err = f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return nil, fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "date")
	_ = f.SetCellStr(sheetName, "B2", "ticker")
	_ = f.SetCellStr(sheetName, "C2", "type")
	_ = f.SetCellStr(sheetName, "D2", "quantity")
	_ = f.SetCellStr(sheetName, "E2", "price")
	_ = f.SetCellStr(sheetName, "F2", "total value")
	_ = f.SetCellStr(sheetName, "G2", "realized pnl")
	_ = f.SetCellStr(sheetName, "H2", "notes")

	for i, t := range txns {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), t.TxnDate)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), t.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), string(t.Type))
		_ = f.SetCellInt(sheetName, fmt.Sprintf("D%d", row), int(t.Quantity))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), t.Price)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), t.TotalValue)
		if t.RealizedPnl != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), *t.RealizedPnl)
		}
		_ = f.SetCellStr(sheetName, fmt.Sprintf("H%d", row), t.Notes)
	}

	if err = f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("GenerateTransactionsReport completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), nil
}
