package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/financas/server/internal/domain"
	"github.com/financas/server/internal/importer"
	"github.com/financas/server/internal/store"
	"github.com/financas/server/internal/store/memstore"
)

const importCSV = "Data,Descricao,Valor,Tipo,Categoria,Conta\n" +
	"05/08/2024,Salário de Agosto,5500.00,Receita,Salário,Conta Corrente\n" +
	"10/08/2024,Compras no mercado,\"450,25\",Despesa,Alimentação,Cartão de Crédito\n"

// waitTerminal polls until the import reaches a terminal phase.
func waitTerminal(t *testing.T, r *ImportRunner) importer.Status {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("import did not finish, status: %+v", r.Status())
		default:
		}
		st := r.Status()
		if st.Phase == importer.PhaseSuccess || st.Phase == importer.PhaseError {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestImportRunnerEndToEnd(t *testing.T) {
	svc := newTestService()
	runner := NewImportRunner(svc)
	ctx := context.Background()

	if err := runner.Start(ctx, testUser, "dados.csv", []byte(importCSV)); err != nil {
		t.Fatal(err)
	}

	st := waitTerminal(t, runner)
	if st.Phase != importer.PhaseSuccess || st.Message != "2 transactions imported" {
		t.Fatalf("status = %+v", st)
	}

	txs, err := svc.ListTransactions(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}

	cats, _ := svc.ListCategories(ctx, testUser)
	accounts, _ := svc.ListAccounts(ctx, testUser)
	if len(cats) != 2 || len(accounts) != 2 {
		t.Errorf("created %d categories and %d accounts, want 2 and 2", len(cats), len(accounts))
	}
	for _, a := range accounts {
		if a.Type != domain.AccountBank || !a.InitialBalance.IsZero() {
			t.Errorf("import-created account = %+v, want bank with zero balance", a)
		}
	}

	// The run must be resolvable against existing entities on a second
	// import without creating duplicates.
	runner.Reset()
	if err := runner.Start(ctx, testUser, "dados.csv", []byte(importCSV)); err != nil {
		t.Fatal(err)
	}
	waitTerminal(t, runner)

	cats, _ = svc.ListCategories(ctx, testUser)
	accounts, _ = svc.ListAccounts(ctx, testUser)
	if len(cats) != 2 || len(accounts) != 2 {
		t.Errorf("second run duplicated entities: %d categories %d accounts", len(cats), len(accounts))
	}
}

func TestImportRunnerSingleFlight(t *testing.T) {
	svc := newTestService()
	runner := NewImportRunner(svc)
	ctx := context.Background()

	if err := runner.Start(ctx, testUser, "dados.csv", []byte(importCSV)); err != nil {
		t.Fatal(err)
	}
	err := runner.Start(ctx, testUser, "dados.csv", []byte(importCSV))
	if err != nil && !errors.Is(err, ErrImportInFlight) {
		t.Fatalf("err = %v, want ErrImportInFlight or nil after fast finish", err)
	}
	waitTerminal(t, runner)
}

// gateStore holds batch writes until released, keeping a run parked on
// its commit.
type gateStore struct {
	store.Store
	release chan struct{}
}

func (g *gateStore) BatchWrite(ctx context.Context, userID string, writes []store.Write) error {
	<-g.release
	return g.Store.BatchWrite(ctx, userID, writes)
}

func TestResetCannotBypassSingleFlight(t *testing.T) {
	gate := &gateStore{Store: memstore.New(), release: make(chan struct{})}
	svc := NewService(gate)
	runner := NewImportRunner(svc)
	ctx := context.Background()

	if err := runner.Start(ctx, testUser, "dados.csv", []byte(importCSV)); err != nil {
		t.Fatal(err)
	}

	// Wait until the run reaches the gated commit.
	deadline := time.After(5 * time.Second)
	for runner.Status().Message != "saving 2 transactions..." {
		select {
		case <-deadline:
			t.Fatalf("run never reached commit, status: %+v", runner.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A mid-run reset must be refused and must not let a second run in.
	if runner.Reset() {
		t.Fatal("Reset succeeded while a run is in flight")
	}
	if err := runner.Start(ctx, testUser, "dados.csv", []byte(importCSV)); !errors.Is(err, ErrImportInFlight) {
		t.Fatalf("second start err = %v, want ErrImportInFlight", err)
	}

	close(gate.release)
	st := waitTerminal(t, runner)
	if st.Phase != importer.PhaseSuccess {
		t.Fatalf("status = %+v", st)
	}

	txs, err := svc.ListTransactions(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Errorf("transactions = %d, want one run's worth", len(txs))
	}

	if !runner.Reset() {
		t.Error("Reset after the run finished must succeed")
	}
}

func TestImportRunnerRejectionAbort(t *testing.T) {
	svc := newTestService()
	runner := NewImportRunner(svc)
	ctx := context.Background()

	bad := "Data,Descricao,Valor,Tipo,Categoria,Conta\n" +
		"2024-08-05,Errada,10.00,Despesa,Lazer,Carteira\n"

	if err := runner.Start(ctx, testUser, "dados.csv", []byte(bad)); err != nil {
		t.Fatal(err)
	}

	st := waitTerminal(t, runner)
	if st.Phase != importer.PhaseError {
		t.Fatalf("status = %+v", st)
	}

	txs, _ := svc.ListTransactions(ctx, testUser)
	if len(txs) != 0 {
		t.Errorf("aborted import committed %d transactions", len(txs))
	}

	// Reset clears the terminal state so a corrected file can be
	// imported.
	runner.Reset()
	if got := runner.Status(); got.Phase != importer.PhaseIdle {
		t.Errorf("status after reset = %+v", got)
	}
}
