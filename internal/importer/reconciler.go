package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/financas/server/internal/domain"
)

// State tracks where a reconciliation run is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateReading    State = "reading"
	StateValidating State = "validating"
	StateCommitting State = "committing"
	StateSucceeded  State = "succeeded"
	StateAborted    State = "aborted"
)

// ErrCommitFailed marks a batch commit refused or failed by the store.
// Categories and accounts created earlier in the run are not rolled
// back.
var ErrCommitFailed = errors.New("batch commit failed")

// BatchCommitter atomically persists a list of transactions: all become
// visible together or none at all. Implemented by the core service over
// the store's batch-write primitive.
type BatchCommitter interface {
	CommitTransactions(ctx context.Context, txs []domain.Transaction) error
}

// Result is the outcome of one reconciliation run.
type Result struct {
	State     State                `json:"state"`
	Created   []domain.Transaction `json:"created,omitempty"`
	Errors    []Rejection          `json:"errors,omitempty"`
	Committed bool                 `json:"committed"`
}

// Reconciler drives the validator and resolver over every row of a
// file and decides commit-or-abort. Rows are processed strictly in
// file order because later rows may reference entities created by
// earlier ones.
type Reconciler struct {
	creator   EntityCreator
	committer BatchCommitter
	status    *StatusReporter
}

// NewReconciler wires the run's collaborators. status must not be nil;
// it receives every progress update.
func NewReconciler(creator EntityCreator, committer BatchCommitter, status *StatusReporter) *Reconciler {
	return &Reconciler{creator: creator, committer: committer, status: status}
}

// Run executes one import over file data against a snapshot of the
// currently known categories and accounts. The snapshot slices are
// never mutated.
//
// Every row is validated even after the first error so the user sees
// all problems in one pass. Any rejection aborts the commit; entity
// creations that already happened survive the abort. The returned
// error is non-nil only for run-level failures (malformed file, entity
// creation failure, commit failure); a rejection abort returns a nil
// error with the rejections in the result.
func (r *Reconciler) Run(ctx context.Context, fileName string, data []byte, categories []domain.Category, accounts []domain.Account) (*Result, error) {
	result := &Result{State: StateReading}

	r.status.Loading("reading file...")
	records, err := ParseFile(fileName, data)
	if err != nil {
		result.State = StateAborted
		r.status.Error(fmt.Sprintf("could not process the file: %v", err))
		return result, err
	}

	result.State = StateValidating
	r.status.Loading("validating rows...")

	resolver := NewResolver(r.creator, categories, accounts)
	var pending []domain.Transaction

	for i, rec := range records {
		// Spreadsheet line number: header is row 1.
		row := i + 2

		candidate, rej := ValidateRow(rec, row)
		if rej != nil {
			result.Errors = append(result.Errors, *rej)
			continue
		}

		if !resolver.HasCategory(candidate.CategoryName, candidate.Type) {
			r.status.Loading(fmt.Sprintf("creating category %q...", candidate.CategoryName))
		}
		category, _, err := resolver.ResolveCategory(ctx, candidate.CategoryName, candidate.Type)
		if err != nil {
			result.State = StateAborted
			r.status.Error(fmt.Sprintf("import failed: %v", err))
			return result, err
		}

		if !resolver.HasAccount(candidate.AccountName) {
			r.status.Loading(fmt.Sprintf("creating account %q...", candidate.AccountName))
		}
		account, _, err := resolver.ResolveAccount(ctx, candidate.AccountName)
		if err != nil {
			result.State = StateAborted
			r.status.Error(fmt.Sprintf("import failed: %v", err))
			return result, err
		}

		status := domain.StatusPaid
		if candidate.Type == domain.TypeExpense {
			status = domain.StatusPending
		}

		pending = append(pending, domain.Transaction{
			Date:        candidate.Date,
			Description: candidate.Description,
			Amount:      candidate.Amount,
			Type:        candidate.Type,
			CategoryID:  category.ID,
			AccountID:   account.ID,
			Status:      status,
		})
	}

	if len(result.Errors) > 0 {
		result.State = StateAborted
		r.status.Error(abortMessage(result.Errors))
		return result, nil
	}

	if len(pending) == 0 {
		result.State = StateAborted
		r.status.Error("no valid transactions to import")
		return result, nil
	}

	result.State = StateCommitting
	r.status.Loading(fmt.Sprintf("saving %d transactions...", len(pending)))

	if err := r.committer.CommitTransactions(ctx, pending); err != nil {
		result.State = StateAborted
		r.status.Error("an error occurred while saving the imported transactions")
		return result, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	result.State = StateSucceeded
	result.Created = pending
	result.Committed = true
	r.status.Success(fmt.Sprintf("%d transactions imported", len(pending)))
	return result, nil
}

// abortMessage itemizes every rejection, one line per row, never just
// the first.
func abortMessage(rejections []Rejection) string {
	var b strings.Builder
	b.WriteString("import aborted:")
	for _, rej := range rejections {
		b.WriteString("\n- ")
		b.WriteString(rej.String())
	}
	return b.String()
}
