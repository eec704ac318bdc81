package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/financas/server/internal/config"
	"github.com/financas/server/internal/core"
	"github.com/financas/server/internal/domain"
	"github.com/financas/server/internal/importer"
	"github.com/financas/server/internal/store/memstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 10 * time.Second,
		},
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Import: config.ImportConfig{MaxFileSize: 1 << 20},
		Rate:   config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T) (*Server, *core.Service) {
	t.Helper()
	svc := core.NewService(memstore.New())
	return NewServer(testConfig(), svc, core.NewImportRunner(svc), nil), svc
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestCategoryEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/categories", domain.Category{Name: "Lazer", Type: domain.TypeExpense})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body)
	}
	var created domain.Category
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("no id in response")
	}

	// Duplicate name conflicts.
	w = doJSON(t, s, http.MethodPost, "/api/categories", domain.Category{Name: "LAZER", Type: domain.TypeExpense})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}

	// Invalid type is a bad request.
	w = doJSON(t, s, http.MethodPost, "/api/categories", domain.Category{Name: "X", Type: "transfer"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var cats []domain.Category
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Fatalf("categories = %d, want 1", len(cats))
	}

	w = doJSON(t, s, http.MethodPut, "/api/categories/"+created.ID,
		domain.Category{Name: "Entretenimento", Type: domain.TypeExpense})
	if w.Code != http.StatusOK {
		t.Errorf("update status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/categories/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPut, "/api/categories/"+created.ID,
		domain.Category{Name: "X", Type: domain.TypeExpense})
	if w.Code != http.StatusNotFound {
		t.Errorf("update after delete status = %d", w.Code)
	}
}

func TestTransactionPayEndpoint(t *testing.T) {
	s, svc := newTestServer(t)

	tx, err := svc.AddTransaction(context.Background(), "anonymous", domain.Transaction{
		Date: "2024-08-05", Description: "Mercado", Type: domain.TypeExpense,
		CategoryID: "c1", AccountID: "a1", Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, s, http.MethodPost, "/api/transactions/"+tx.ID+"/pay",
		map[string]string{"sourceAccountId": "a1", "paymentDate": "2024-08-10"})
	if w.Code != http.StatusOK {
		t.Fatalf("pay status = %d, body %s", w.Code, w.Body)
	}

	w = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	var txs []domain.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Status != domain.StatusPaid || txs[0].PaymentInfo == nil {
		t.Errorf("transactions = %+v", txs)
	}

	// Bad date on schedule.
	w = doJSON(t, s, http.MethodPost, "/api/transactions/"+tx.ID+"/schedule",
		map[string]string{"scheduledDate": "10/08/2024"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("schedule with bad date status = %d", w.Code)
	}
}

func TestUserScopingHeader(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/categories",
		strings.NewReader(`{"name":"Lazer","type":"expense"}`))
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	// Anonymous requests see an empty list.
	w = doJSON(t, s, http.MethodGet, "/api/categories", nil)
	var cats []domain.Category
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != 0 {
		t.Errorf("anonymous sees %d categories", len(cats))
	}
}

func uploadRequest(t *testing.T, path, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportEndpoints(t *testing.T) {
	s, svc := newTestServer(t)

	csv := "Data,Descricao,Valor,Tipo,Categoria,Conta\n" +
		"05/08/2024,Salário,5500.00,Receita,Salário,Conta Corrente\n"

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, uploadRequest(t, "/api/import", "dados.csv", csv))
	if w.Code != http.StatusAccepted {
		t.Fatalf("import status = %d, body %s", w.Code, w.Body)
	}

	deadline := time.After(5 * time.Second)
	for {
		w = doJSON(t, s, http.MethodGet, "/api/import/status", nil)
		var st importer.Status
		if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
			t.Fatal(err)
		}
		if st.Phase == importer.PhaseSuccess {
			break
		}
		if st.Phase == importer.PhaseError {
			t.Fatalf("import failed: %+v", st)
		}
		select {
		case <-deadline:
			t.Fatalf("import did not finish: %+v", st)
		case <-time.After(5 * time.Millisecond):
		}
	}

	txs, err := svc.ListTransactions(context.Background(), "anonymous")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Errorf("transactions = %d, want 1", len(txs))
	}

	// Acknowledge the result.
	w = doJSON(t, s, http.MethodDelete, "/api/import/status", nil)
	var st importer.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Phase != importer.PhaseIdle {
		t.Errorf("status after reset = %+v", st)
	}
}

func TestImportRequiresFile(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/import", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestImportTemplateDownload(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/import/template", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, importer.TemplateFileName) {
		t.Errorf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip container")
	}
}

func TestAnalysisUnconfigured(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/analysis", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestStreamUnknownCollection(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/stream/secrets", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStreamDeliversSnapshots(t *testing.T) {
	s, svc := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	if _, err := svc.AddCategory(context.Background(), "anonymous",
		domain.Category{Name: "Lazer", Type: domain.TypeExpense}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream/categories", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}

	if event != "snapshot" {
		t.Errorf("event = %q", event)
	}
	var docs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("snapshot docs = %d, want 1", len(docs))
	}
}

func TestRateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	svc := core.NewService(memstore.New())
	s := NewServer(cfg, svc, core.NewImportRunner(svc), nil)

	for i := 0; i < 2; i++ {
		w := doJSON(t, s, http.MethodGet, "/healthz", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}
	w := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
