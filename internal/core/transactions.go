package core

import (
	"context"
	"fmt"

	"github.com/financas/server/internal/domain"
	"github.com/financas/server/internal/store"
)

/* ----------------------------------------
	Transactions
---------------------------------------- */

func (s *Service) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	docs, err := s.store.List(ctx, userID, store.ColTransactions)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		var t domain.Transaction
		if err := store.Decode(doc, &t); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", doc.ID, err)
		}
		t.ID = doc.ID
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) getTransaction(ctx context.Context, userID, id string) (domain.Transaction, error) {
	doc, err := s.store.Get(ctx, userID, store.ColTransactions, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	var t domain.Transaction
	if err := store.Decode(doc, &t); err != nil {
		return domain.Transaction{}, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	t.ID = doc.ID
	return t, nil
}

func (s *Service) putTransaction(ctx context.Context, userID string, t domain.Transaction) error {
	id := t.ID
	t.ID = ""
	data, err := store.Encode(t)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if err := s.store.Update(ctx, userID, store.ColTransactions, id, data); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (s *Service) AddTransaction(ctx context.Context, userID string, t domain.Transaction) (domain.Transaction, error) {
	t.ID = ""
	if err := t.Validate(); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	data, err := store.Encode(t)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("encode transaction: %w", err)
	}
	id, err := s.store.Create(ctx, userID, store.ColTransactions, data)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	t.ID = id
	return t, nil
}

func (s *Service) UpdateTransaction(ctx context.Context, userID string, t domain.Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalid)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s.putTransaction(ctx, userID, t)
}

func (s *Service) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, store.ColTransactions, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

/* ----------------------------------------
	Payment and scheduling flows
---------------------------------------- */

// PayTransaction settles a pending transaction: status becomes paid and
// the payment source and date are recorded.
func (s *Service) PayTransaction(ctx context.Context, userID, id, sourceAccountID, paymentDate string) error {
	if !domain.ValidISODate(paymentDate) {
		return fmt.Errorf("%w: invalid payment date %q", ErrInvalid, paymentDate)
	}
	t, err := s.getTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	t.Status = domain.StatusPaid
	t.PaymentInfo = &domain.PaymentInfo{SourceAccountID: sourceAccountID, PaymentDate: paymentDate}
	t.ScheduledDate = ""
	return s.putTransaction(ctx, userID, t)
}

// UndoPayment reverts a paid transaction to pending and drops its
// payment info.
func (s *Service) UndoPayment(ctx context.Context, userID, id string) error {
	t, err := s.getTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	t.Status = domain.StatusPending
	t.PaymentInfo = nil
	return s.putTransaction(ctx, userID, t)
}

// ScheduleTransaction marks a transaction for payment on a future date.
func (s *Service) ScheduleTransaction(ctx context.Context, userID, id, scheduledDate string) error {
	if !domain.ValidISODate(scheduledDate) {
		return fmt.Errorf("%w: invalid scheduled date %q", ErrInvalid, scheduledDate)
	}
	t, err := s.getTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	t.Status = domain.StatusScheduled
	t.ScheduledDate = scheduledDate
	return s.putTransaction(ctx, userID, t)
}

// CancelScheduling reverts a scheduled transaction to pending.
func (s *Service) CancelScheduling(ctx context.Context, userID, id string) error {
	t, err := s.getTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	t.Status = domain.StatusPending
	t.ScheduledDate = ""
	return s.putTransaction(ctx, userID, t)
}

/* ----------------------------------------
	Forecasted incomes
---------------------------------------- */

func (s *Service) ListForecastedIncomes(ctx context.Context, userID string) ([]domain.ForecastedIncome, error) {
	docs, err := s.store.List(ctx, userID, store.ColForecastedIncomes)
	if err != nil {
		return nil, fmt.Errorf("list forecasted incomes: %w", err)
	}
	out := make([]domain.ForecastedIncome, 0, len(docs))
	for _, doc := range docs {
		var f domain.ForecastedIncome
		if err := store.Decode(doc, &f); err != nil {
			return nil, fmt.Errorf("decode forecasted income %s: %w", doc.ID, err)
		}
		f.ID = doc.ID
		out = append(out, f)
	}
	return out, nil
}

func (s *Service) AddForecastedIncome(ctx context.Context, userID string, f domain.ForecastedIncome) (domain.ForecastedIncome, error) {
	if !domain.ValidISODate(f.ExpectedDate) {
		return domain.ForecastedIncome{}, fmt.Errorf("%w: invalid expected date %q", ErrInvalid, f.ExpectedDate)
	}
	f.ID = ""
	if f.Status == "" {
		f.Status = domain.ForecastPending
	}
	data, err := store.Encode(f)
	if err != nil {
		return domain.ForecastedIncome{}, fmt.Errorf("encode forecasted income: %w", err)
	}
	id, err := s.store.Create(ctx, userID, store.ColForecastedIncomes, data)
	if err != nil {
		return domain.ForecastedIncome{}, fmt.Errorf("add forecasted income: %w", err)
	}
	f.ID = id
	return f, nil
}

func (s *Service) UpdateForecastedIncome(ctx context.Context, userID string, f domain.ForecastedIncome) error {
	if f.ID == "" {
		return fmt.Errorf("%w: missing forecasted income id", ErrInvalid)
	}
	id := f.ID
	f.ID = ""
	data, err := store.Encode(f)
	if err != nil {
		return fmt.Errorf("encode forecasted income: %w", err)
	}
	if err := s.store.Update(ctx, userID, store.ColForecastedIncomes, id, data); err != nil {
		return fmt.Errorf("update forecasted income: %w", err)
	}
	return nil
}

func (s *Service) DeleteForecastedIncome(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, store.ColForecastedIncomes, id); err != nil {
		return fmt.Errorf("delete forecasted income: %w", err)
	}
	return nil
}

// ConfirmForecastedIncome materializes a forecasted income into a real
// paid income transaction. Both writes go through one atomic batch: the
// forecast is marked received and the transaction is created together.
func (s *Service) ConfirmForecastedIncome(ctx context.Context, userID, id string) error {
	doc, err := s.store.Get(ctx, userID, store.ColForecastedIncomes, id)
	if err != nil {
		return fmt.Errorf("get forecasted income: %w", err)
	}
	var f domain.ForecastedIncome
	if err := store.Decode(doc, &f); err != nil {
		return fmt.Errorf("decode forecasted income %s: %w", id, err)
	}
	if f.Status == domain.ForecastReceived {
		return fmt.Errorf("%w: forecasted income already received", ErrInvalid)
	}

	f.Status = domain.ForecastReceived
	f.ID = ""
	forecastData, err := store.Encode(f)
	if err != nil {
		return fmt.Errorf("encode forecasted income: %w", err)
	}

	tx := domain.Transaction{
		Date:        f.ExpectedDate,
		Description: "Receita Prevista: " + f.Description,
		Amount:      f.Amount,
		Type:        domain.TypeIncome,
		CategoryID:  f.CategoryID,
		AccountID:   f.AccountID,
		Status:      domain.StatusPaid,
	}
	txData, err := store.Encode(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	err = s.store.BatchWrite(ctx, userID, []store.Write{
		{Op: store.OpUpdate, Collection: store.ColForecastedIncomes, ID: id, Data: forecastData},
		{Op: store.OpCreate, Collection: store.ColTransactions, Data: txData},
	})
	if err != nil {
		return fmt.Errorf("confirm forecasted income: %w", err)
	}
	return nil
}
