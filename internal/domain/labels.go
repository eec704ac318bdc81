package domain

// User-facing labels are Portuguese; stored tokens are English. These
// helpers translate between the two, matching the spreadsheet template
// and the UI vocabulary.

// LabelIncome and LabelExpense are the two user-facing type labels.
const (
	LabelIncome  = "Receita"
	LabelExpense = "Despesa"
)

// TypeLabel returns the user-facing label for a transaction type.
func TypeLabel(t TransactionType) string {
	switch t {
	case TypeIncome:
		return LabelIncome
	case TypeExpense:
		return LabelExpense
	}
	return string(t)
}

// StatusLabel returns the user-facing label for a transaction status.
func StatusLabel(s TransactionStatus) string {
	switch s {
	case StatusPaid:
		return "Pago"
	case StatusPending:
		return "Pendente"
	case StatusScheduled:
		return "Agendado"
	}
	return string(s)
}

// AccountTypeLabel returns the user-facing label for an account type.
func AccountTypeLabel(t AccountType) string {
	switch t {
	case AccountBank, AccountSavings:
		return "Conta Corrente/Poupança"
	case AccountCreditCard:
		return "Cartão de Crédito"
	case AccountCash:
		return "Dinheiro"
	case AccountInvestment:
		return "Investimento"
	}
	return string(t)
}
