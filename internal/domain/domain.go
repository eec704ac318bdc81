// Package domain defines the finance-tracking data model: categories,
// accounts, transactions and forecasted incomes. The types mirror the
// document shapes persisted in the backing store, so all fields carry
// JSON tags in the document naming convention.
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusPaid      TransactionStatus = "paid"
	StatusScheduled TransactionStatus = "scheduled"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountBank       AccountType = "bank"
	AccountSavings    AccountType = "savings"
	AccountCash       AccountType = "cash"
	AccountCreditCard AccountType = "credit_card"
	AccountInvestment AccountType = "investment"
)

// Category groups transactions of a single type. Names are unique
// case-insensitively within a type.
type Category struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// Account holds money. Accounts created implicitly during import default
// to type bank with a zero initial balance.
type Account struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

// PaymentInfo records how a pending transaction was settled.
type PaymentInfo struct {
	SourceAccountID string `json:"sourceAccountId"`
	PaymentDate     string `json:"paymentDate"`
}

// Transaction is a single income or expense entry. Date is a calendar
// date in ISO form (YYYY-MM-DD) with no time component.
type Transaction struct {
	ID            string            `json:"id,omitempty"`
	Date          string            `json:"date"`
	Description   string            `json:"description"`
	Amount        decimal.Decimal   `json:"amount"`
	Type          TransactionType   `json:"type"`
	CategoryID    string            `json:"categoryId"`
	AccountID     string            `json:"accountId"`
	Status        TransactionStatus `json:"status"`
	PaymentInfo   *PaymentInfo      `json:"paymentInfo,omitempty"`
	ScheduledDate string            `json:"scheduledDate,omitempty"`
}

// ForecastedIncome is a predicted future income entry. Confirming it
// materializes a real paid income transaction.
type ForecastedIncome struct {
	ID           string          `json:"id,omitempty"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	ExpectedDate string          `json:"expectedDate"`
	CategoryID   string          `json:"categoryId"`
	AccountID    string          `json:"accountId"`
	Status       string          `json:"status"` // "forecast" or "received"
}

const (
	ForecastPending  = "forecast"
	ForecastReceived = "received"
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidISODate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidISODate(s string) bool {
	return isoDateRe.MatchString(s)
}

// ParseTransactionType converts a stored type token to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(s)) {
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// ParseAccountType converts a stored account type token to an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToLower(s)) {
	case AccountBank, AccountSavings, AccountCash, AccountCreditCard, AccountInvestment:
		return AccountType(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Validate checks the transaction's internal consistency.
func (t Transaction) Validate() error {
	if !ValidISODate(t.Date) {
		return fmt.Errorf("invalid date %q", t.Date)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("empty description")
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return fmt.Errorf("invalid type %q", t.Type)
	}
	switch t.Status {
	case StatusPending, StatusPaid, StatusScheduled:
	default:
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if t.CategoryID == "" {
		return fmt.Errorf("missing category")
	}
	if t.AccountID == "" {
		return fmt.Errorf("missing account")
	}
	return nil
}
