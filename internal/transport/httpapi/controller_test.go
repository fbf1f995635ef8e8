package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/internal/service"
)

// stubService answers through optional function fields; anything not stubbed
// reports not found.
type stubService struct {
	createPortfolio func(ctx context.Context, name, description, benchmark string) (int64, error)
	getPortfolio    func(ctx context.Context, portfolioID int64) (model.Portfolio, error)
	addTransaction  func(ctx context.Context, portfolioID int64, input model.TransactionInput) (model.Transaction, error)
	getNavHistory   func(ctx context.Context, portfolioID int64, period string) ([]model.NavPoint, error)
	backfillNav     func(ctx context.Context, portfolioID int64, fromOverride string) (int, error)
}

func (s *stubService) CreatePortfolio(ctx context.Context, name, description, benchmark string) (int64, error) {
	if s.createPortfolio != nil {
		return s.createPortfolio(ctx, name, description, benchmark)
	}
	return 0, service.ErrNotFound
}

func (s *stubService) GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	if s.getPortfolio != nil {
		return s.getPortfolio(ctx, portfolioID)
	}
	return model.Portfolio{}, service.ErrNotFound
}

func (s *stubService) GetPortfolioSummaries(context.Context) ([]model.PortfolioSummary, error) {
	return []model.PortfolioSummary{}, nil
}

func (s *stubService) UpdatePortfolio(context.Context, int64, string, string, string) error {
	return service.ErrNotFound
}

func (s *stubService) ArchivePortfolio(context.Context, int64) error { return service.ErrNotFound }

func (s *stubService) AddTransaction(ctx context.Context, portfolioID int64, input model.TransactionInput) (model.Transaction, error) {
	if s.addTransaction != nil {
		return s.addTransaction(ctx, portfolioID, input)
	}
	return model.Transaction{}, service.ErrNotFound
}

func (s *stubService) ListTransactions(context.Context, int64, model.TxnType, int) ([]model.Transaction, error) {
	return []model.Transaction{}, nil
}

func (s *stubService) BulkImport(context.Context, model.BulkImport) (int64, error) {
	return 0, service.ErrValidation
}

func (s *stubService) GetHoldingsView(context.Context, int64) ([]model.HoldingView, model.HoldingsTotals, error) {
	return nil, model.HoldingsTotals{}, service.ErrNotFound
}

func (s *stubService) GetAllocation(context.Context, int64) (model.Allocation, error) {
	return model.Allocation{}, service.ErrNotFound
}

func (s *stubService) GetPerformance(context.Context, int64) (model.Performance, error) {
	return model.Performance{}, service.ErrNotFound
}

func (s *stubService) GetNavHistory(ctx context.Context, portfolioID int64, period string) ([]model.NavPoint, error) {
	if s.getNavHistory != nil {
		return s.getNavHistory(ctx, portfolioID, period)
	}
	return nil, service.ErrNotFound
}

func (s *stubService) BackfillNav(ctx context.Context, portfolioID int64, fromOverride string) (int, error) {
	if s.backfillNav != nil {
		return s.backfillNav(ctx, portfolioID, fromOverride)
	}
	return 0, service.ErrNotFound
}

func (s *stubService) ComputeNav(context.Context, int64) (model.NavSnapshot, error) {
	return model.NavSnapshot{}, service.ErrNotFound
}

func (s *stubService) ComputeNavAll(context.Context) (int, error) { return 0, nil }

func (s *stubService) ExportHoldings(context.Context, int64) ([]byte, string, error) {
	return nil, "", service.ErrNotFound
}

func (s *stubService) ExportTransactions(context.Context, int64) ([]byte, string, error) {
	return nil, "", service.ErrNotFound
}

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewPortfolioController(svc).Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubService{})

	w, resp := doRequest(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp.Message != "ok" {
		t.Fatalf("message = %q, want ok", resp.Message)
	}
}

func TestCreatePortfolio(t *testing.T) {
	svc := &stubService{
		createPortfolio: func(_ context.Context, name, _, benchmark string) (int64, error) {
			if name != "Core" {
				t.Fatalf("name = %q", name)
			}
			return 7, nil
		},
		getPortfolio: func(_ context.Context, portfolioID int64) (model.Portfolio, error) {
			return model.Portfolio{ID: portfolioID, Name: "Core", Benchmark: "NIFTY", Status: model.PortfolioStatusActive}, nil
		},
	}
	r := newTestRouter(svc)

	w, resp := doRequest(t, r, http.MethodPost, "/api/portfolios", `{"name":"Core"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", resp.Data)
	}
	if data["id"] != float64(7) {
		t.Fatalf("id = %v, want 7", data["id"])
	}
}

func TestCreatePortfolioMissingName(t *testing.T) {
	r := newTestRouter(&stubService{})

	w, _ := doRequest(t, r, http.MethodPost, "/api/portfolios", `{"description":"no name"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetPortfolioNotFound(t *testing.T) {
	r := newTestRouter(&stubService{})

	w, resp := doRequest(t, r, http.MethodGet, "/api/portfolios/42", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp.Message != "portfolio not found" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestInvalidPortfolioID(t *testing.T) {
	r := newTestRouter(&stubService{})

	for _, path := range []string{
		"/api/portfolios/abc",
		"/api/portfolios/0",
		"/api/portfolios/-3",
	} {
		w, _ := doRequest(t, r, http.MethodGet, path, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestAddTransactionBindingRejectsBadPayloads(t *testing.T) {
	r := newTestRouter(&stubService{
		addTransaction: func(_ context.Context, _ int64, _ model.TransactionInput) (model.Transaction, error) {
			t.Fatal("service must not be reached on binding failure")
			return model.Transaction{}, nil
		},
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: `{}`},
		{name: "bad type", body: `{"ticker":"ACME","txn_type":"SHORT","quantity":1,"price":10,"txn_date":"2024-01-01"}`},
		{name: "zero quantity", body: `{"ticker":"ACME","txn_type":"BUY","quantity":0,"price":10,"txn_date":"2024-01-01"}`},
		{name: "negative price", body: `{"ticker":"ACME","txn_type":"BUY","quantity":1,"price":-10,"txn_date":"2024-01-01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(t, r, http.MethodPost, "/api/portfolios/1/transactions", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestAddTransactionSellExceedsHolding(t *testing.T) {
	r := newTestRouter(&stubService{
		addTransaction: func(_ context.Context, _ int64, _ model.TransactionInput) (model.Transaction, error) {
			return model.Transaction{}, service.ErrSellExceedsHolding
		},
	})

	body := `{"ticker":"ACME","txn_type":"SELL","quantity":99,"price":10,"txn_date":"2024-01-01"}`
	w, resp := doRequest(t, r, http.MethodPost, "/api/portfolios/1/transactions", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Message != "sell quantity exceeds current holding" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestNavHistoryPeriodWhitelist(t *testing.T) {
	var gotPeriod string
	r := newTestRouter(&stubService{
		getNavHistory: func(_ context.Context, _ int64, period string) ([]model.NavPoint, error) {
			gotPeriod = period
			return []model.NavPoint{}, nil
		},
	})

	w, _ := doRequest(t, r, http.MethodGet, "/api/portfolios/1/nav-history?period=2w", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad period: status = %d, want 400", w.Code)
	}

	w, resp := doRequest(t, r, http.MethodGet, "/api/portfolios/1/nav-history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("default period: status = %d, want 200", w.Code)
	}
	if gotPeriod != "all" {
		t.Fatalf("period = %q, want all", gotPeriod)
	}
	if resp.Meta["period"] != "all" {
		t.Fatalf("meta.period = %v", resp.Meta["period"])
	}
}

func TestBackfillNavEmptyBody(t *testing.T) {
	var gotFrom string
	r := newTestRouter(&stubService{
		backfillNav: func(_ context.Context, _ int64, fromOverride string) (int, error) {
			gotFrom = fromOverride
			return 12, nil
		},
	})

	// an empty POST means backfill from inception
	w, resp := doRequest(t, r, http.MethodPost, "/api/portfolios/1/backfill-nav", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if gotFrom != "" {
		t.Fatalf("fromOverride = %q, want empty", gotFrom)
	}

	data := resp.Data.(map[string]any)
	if data["snapshots"] != float64(12) {
		t.Fatalf("snapshots = %v, want 12", data["snapshots"])
	}

	w, _ = doRequest(t, r, http.MethodPost, "/api/portfolios/1/backfill-nav", `{"from":"2024-01-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotFrom != "2024-01-01" {
		t.Fatalf("fromOverride = %q, want 2024-01-01", gotFrom)
	}
}
