package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/financas/server/internal/domain"
)

// --- categories ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.ListCategories(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, cats)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if err := decodeBody(r, &c); err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.service.AddCategory(r.Context(), userID(r), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if err := decodeBody(r, &c); err != nil {
		respondError(w, r, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := s.service.UpdateCategory(r.Context(), userID(r), c); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCategory(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- accounts ---

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.service.ListAccounts(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, accounts)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if err := decodeBody(r, &a); err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.service.AddAccount(r.Context(), userID(r), a)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if err := decodeBody(r, &a); err != nil {
		respondError(w, r, err)
		return
	}
	a.ID = chi.URLParam(r, "id")
	if err := s.service.UpdateAccount(r.Context(), userID(r), a); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAccount(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- transactions ---

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.ListTransactions(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, txs)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var t domain.Transaction
	if err := decodeBody(r, &t); err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.service.AddTransaction(r.Context(), userID(r), t)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var t domain.Transaction
	if err := decodeBody(r, &t); err != nil {
		respondError(w, r, err)
		return
	}
	t.ID = chi.URLParam(r, "id")
	if err := s.service.UpdateTransaction(r.Context(), userID(r), t); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTransaction(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePayTransaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceAccountID string `json:"sourceAccountId"`
		PaymentDate     string `json:"paymentDate"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	err := s.service.PayTransaction(r.Context(), userID(r), chi.URLParam(r, "id"), body.SourceAccountID, body.PaymentDate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "paid"})
}

func (s *Server) handleUndoPayment(w http.ResponseWriter, r *http.Request) {
	if err := s.service.UndoPayment(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "pending"})
}

func (s *Server) handleScheduleTransaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ScheduledDate string `json:"scheduledDate"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	err := s.service.ScheduleTransaction(r.Context(), userID(r), chi.URLParam(r, "id"), body.ScheduledDate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "scheduled"})
}

func (s *Server) handleCancelScheduling(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelScheduling(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "pending"})
}

// --- forecasted incomes ---

func (s *Server) handleListForecastedIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.service.ListForecastedIncomes(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, incomes)
}

func (s *Server) handleAddForecastedIncome(w http.ResponseWriter, r *http.Request) {
	var f domain.ForecastedIncome
	if err := decodeBody(r, &f); err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.service.AddForecastedIncome(r.Context(), userID(r), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

func (s *Server) handleUpdateForecastedIncome(w http.ResponseWriter, r *http.Request) {
	var f domain.ForecastedIncome
	if err := decodeBody(r, &f); err != nil {
		respondError(w, r, err)
		return
	}
	f.ID = chi.URLParam(r, "id")
	if err := s.service.UpdateForecastedIncome(r.Context(), userID(r), f); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, f)
}

func (s *Server) handleDeleteForecastedIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteForecastedIncome(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfirmForecastedIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ConfirmForecastedIncome(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": domain.ForecastReceived})
}
