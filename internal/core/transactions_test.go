package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/financas/server/internal/domain"
)

func validTransaction() domain.Transaction {
	return domain.Transaction{
		Date:        "2024-08-05",
		Description: "Mercado",
		Amount:      decimal.RequireFromString("450.25"),
		Type:        domain.TypeExpense,
		CategoryID:  "c1",
		AccountID:   "a1",
		Status:      domain.StatusPending,
	}
}

func TestAddTransaction(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Transaction)
		wantErr bool
	}{
		{name: "valid", mutate: func(*domain.Transaction) {}},
		{name: "bad date", mutate: func(tx *domain.Transaction) { tx.Date = "05/08/2024" }, wantErr: true},
		{name: "empty description", mutate: func(tx *domain.Transaction) { tx.Description = " " }, wantErr: true},
		{name: "bad type", mutate: func(tx *domain.Transaction) { tx.Type = "transfer" }, wantErr: true},
		{name: "bad status", mutate: func(tx *domain.Transaction) { tx.Status = "done" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			tx := validTransaction()
			tt.mutate(&tx)

			created, err := svc.AddTransaction(context.Background(), testUser, tx)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("err = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if created.ID == "" {
				t.Error("no id assigned")
			}
		})
	}
}

func TestPaymentFlow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.AddTransaction(ctx, testUser, validTransaction())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.PayTransaction(ctx, testUser, created.ID, "a1", "2024-08-10"); err != nil {
		t.Fatal(err)
	}
	got, err := svc.getTransaction(ctx, testUser, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusPaid {
		t.Errorf("status = %q, want paid", got.Status)
	}
	if got.PaymentInfo == nil || got.PaymentInfo.SourceAccountID != "a1" || got.PaymentInfo.PaymentDate != "2024-08-10" {
		t.Errorf("payment info = %+v", got.PaymentInfo)
	}

	if err := svc.UndoPayment(ctx, testUser, created.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.getTransaction(ctx, testUser, created.ID)
	if got.Status != domain.StatusPending || got.PaymentInfo != nil {
		t.Errorf("after undo: status = %q payment info = %+v", got.Status, got.PaymentInfo)
	}

	if err := svc.PayTransaction(ctx, testUser, created.ID, "a1", "10/08/2024"); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid for non-ISO payment date", err)
	}
}

func TestSchedulingFlow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.AddTransaction(ctx, testUser, validTransaction())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ScheduleTransaction(ctx, testUser, created.ID, "2024-09-01"); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.getTransaction(ctx, testUser, created.ID)
	if got.Status != domain.StatusScheduled || got.ScheduledDate != "2024-09-01" {
		t.Errorf("scheduled: %+v", got)
	}

	// Paying a scheduled transaction clears the scheduled date.
	if err := svc.PayTransaction(ctx, testUser, created.ID, "a1", "2024-09-01"); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.getTransaction(ctx, testUser, created.ID)
	if got.ScheduledDate != "" {
		t.Errorf("scheduled date survived payment: %q", got.ScheduledDate)
	}

	if err := svc.ScheduleTransaction(ctx, testUser, created.ID, "2024-10-01"); err != nil {
		t.Fatal(err)
	}
	if err := svc.CancelScheduling(ctx, testUser, created.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.getTransaction(ctx, testUser, created.ID)
	if got.Status != domain.StatusPending || got.ScheduledDate != "" {
		t.Errorf("after cancel: %+v", got)
	}
}

func TestConfirmForecastedIncome(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	forecast, err := svc.AddForecastedIncome(ctx, testUser, domain.ForecastedIncome{
		Description:  "Salário de Setembro",
		Amount:       decimal.RequireFromString("5500.00"),
		ExpectedDate: "2024-09-05",
		CategoryID:   "c1",
		AccountID:    "a1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if forecast.Status != domain.ForecastPending {
		t.Fatalf("default status = %q, want forecast", forecast.Status)
	}

	if err := svc.ConfirmForecastedIncome(ctx, testUser, forecast.ID); err != nil {
		t.Fatal(err)
	}

	incomes, err := svc.ListForecastedIncomes(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(incomes) != 1 || incomes[0].Status != domain.ForecastReceived {
		t.Fatalf("forecast after confirm = %+v", incomes)
	}

	txs, err := svc.ListTransactions(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Type != domain.TypeIncome || tx.Status != domain.StatusPaid {
		t.Errorf("materialized transaction = %+v", tx)
	}
	if !strings.HasPrefix(tx.Description, "Receita Prevista: ") {
		t.Errorf("description = %q", tx.Description)
	}
	if tx.Date != "2024-09-05" || !tx.Amount.Equal(forecast.Amount) {
		t.Errorf("date/amount = %q %s", tx.Date, tx.Amount)
	}

	// Confirming twice is invalid and must not create another
	// transaction.
	if err := svc.ConfirmForecastedIncome(ctx, testUser, forecast.ID); !errors.Is(err, ErrInvalid) {
		t.Errorf("second confirm err = %v, want ErrInvalid", err)
	}
	txs, _ = svc.ListTransactions(ctx, testUser)
	if len(txs) != 1 {
		t.Errorf("transactions after double confirm = %d", len(txs))
	}
}

func TestAddForecastedIncomeValidatesDate(t *testing.T) {
	svc := newTestService()
	_, err := svc.AddForecastedIncome(context.Background(), testUser, domain.ForecastedIncome{
		Description:  "Salário",
		Amount:       decimal.New(1, 0),
		ExpectedDate: "05/09/2024",
	})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}
