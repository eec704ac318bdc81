package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/financas/server/internal/domain"
)

// Template column headers. The spreadsheet speaks Portuguese; stored
// tokens are English.
const (
	ColDate        = "Data"
	ColDescription = "Descricao"
	ColAmount      = "Valor"
	ColType        = "Tipo"
	ColCategory    = "Categoria"
	ColAccount     = "Conta"
)

// Columns lists the required headers in template order.
var Columns = []string{ColDate, ColDescription, ColAmount, ColType, ColCategory, ColAccount}

// Candidate is a row that passed validation: a fully normalized,
// not-yet-persisted transaction shape. Category and account are still
// names; the resolver turns them into ids.
type Candidate struct {
	Date         string // ISO YYYY-MM-DD
	Description  string
	Amount       decimal.Decimal
	Type         domain.TransactionType
	CategoryName string
	AccountName  string
}

// Rejection is a per-row validation failure. Row is the spreadsheet
// line number (header is row 1, first data row is row 2).
type Rejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("row %d: %s", r.Row, r.Reason)
}

// Dates must be exactly DD/MM/YYYY: no single-digit day or month, no
// alternate separators.
var dateRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// ValidateRow classifies one row as a transaction candidate or a
// rejection. It is pure: entity resolution belongs to the caller.
func ValidateRow(rec RowRecord, row int) (Candidate, *Rejection) {
	date, hasDate := rec[ColDate]
	desc, hasDesc := rec[ColDescription]
	amount, hasAmount := rec[ColAmount]
	typ, hasType := rec[ColType]
	category, hasCategory := rec[ColCategory]
	account, hasAccount := rec[ColAccount]

	if !hasDate || !hasDesc || !hasAmount || !hasType || !hasCategory || !hasAccount {
		return Candidate{}, &Rejection{Row: row, Reason: "missing required column"}
	}

	var txType domain.TransactionType
	switch strings.ToLower(typ) {
	case strings.ToLower(domain.LabelIncome):
		txType = domain.TypeIncome
	case strings.ToLower(domain.LabelExpense):
		txType = domain.TypeExpense
	default:
		return Candidate{}, &Rejection{
			Row:    row,
			Reason: fmt.Sprintf("invalid type %q: use %q or %q", typ, domain.LabelIncome, domain.LabelExpense),
		}
	}

	m := dateRe.FindStringSubmatch(date)
	if m == nil {
		return Candidate{}, &Rejection{
			Row:    row,
			Reason: fmt.Sprintf("invalid date format %q: use DD/MM/YYYY", date),
		}
	}
	isoDate := fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])

	// Decimal comma is the template convention; no currency-symbol
	// stripping. A value that still fails to parse is rejected rather
	// than silently producing a garbage amount.
	value, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", "."))
	if err != nil {
		return Candidate{}, &Rejection{
			Row:    row,
			Reason: fmt.Sprintf("invalid amount %q", amount),
		}
	}

	return Candidate{
		Date:         isoDate,
		Description:  desc,
		Amount:       value,
		Type:         txType,
		CategoryName: category,
		AccountName:  account,
	}, nil
}
