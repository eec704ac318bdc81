package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/financas/server/internal/domain"
	"github.com/financas/server/internal/importer"
	"github.com/financas/server/internal/logging"
	"github.com/financas/server/internal/store"
)

// ErrImportInFlight is returned when an import is requested while a
// previous run has not finished.
var ErrImportInFlight = errors.New("an import is already in progress")

// userScope adapts the service to the importer's collaborator
// contracts, binding the user once per run.
type userScope struct {
	svc    *Service
	userID string
}

// CreateCategory persists a category for the import run. Unlike the
// explicit AddCategory it re-checks the current set and returns the
// existing entity on a casing clash, so resolution never creates a
// duplicate even when the run's snapshot is stale.
func (u userScope) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	existing, err := u.svc.ListCategories(ctx, u.userID)
	if err != nil {
		return domain.Category{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, c.Name) && e.Type == c.Type {
			return e, nil
		}
	}
	return u.svc.AddCategory(ctx, u.userID, c)
}

// CreateAccount persists an account for the import run with the same
// duplicate protection as CreateCategory.
func (u userScope) CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	existing, err := u.svc.ListAccounts(ctx, u.userID)
	if err != nil {
		return domain.Account{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, a.Name) {
			return e, nil
		}
	}
	return u.svc.AddAccount(ctx, u.userID, a)
}

// CommitTransactions persists the validated batch through the store's
// atomic multi-write primitive.
func (u userScope) CommitTransactions(ctx context.Context, txs []domain.Transaction) error {
	writes := make([]store.Write, 0, len(txs))
	for _, t := range txs {
		t.ID = ""
		data, err := store.Encode(t)
		if err != nil {
			return fmt.Errorf("encode transaction: %w", err)
		}
		writes = append(writes, store.Write{
			Op:         store.OpCreate,
			Collection: store.ColTransactions,
			Data:       data,
		})
	}
	if err := u.svc.store.BatchWrite(ctx, u.userID, writes); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}
	return nil
}

// ImportRunner owns the import status and enforces that only one import
// runs at a time.
type ImportRunner struct {
	svc    *Service
	status *importer.StatusReporter
}

// NewImportRunner starts idle.
func NewImportRunner(svc *Service) *ImportRunner {
	return &ImportRunner{svc: svc, status: importer.NewStatusReporter()}
}

// Status returns the latest reportable import state.
func (r *ImportRunner) Status() importer.Status {
	return r.status.Get()
}

// Reset returns the status to idle once a terminal result has been
// acknowledged, allowing the same file to be selected again. It reports
// false while a run is still loading, which keeps the single-import
// rule intact.
func (r *ImportRunner) Reset() bool {
	return r.status.Reset()
}

// Start launches an import in the background. It rejects a second start
// while one is loading. Once begun the run is not cancellable: it
// proceeds on a context detached from the request.
func (r *ImportRunner) Start(ctx context.Context, userID, fileName string, data []byte) error {
	if !r.status.TryStart("reading file...") {
		return ErrImportInFlight
	}

	categories, err := r.svc.ListCategories(ctx, userID)
	if err != nil {
		r.status.Error("could not load categories")
		return fmt.Errorf("seed categories: %w", err)
	}
	accounts, err := r.svc.ListAccounts(ctx, userID)
	if err != nil {
		r.status.Error("could not load accounts")
		return fmt.Errorf("seed accounts: %w", err)
	}

	scope := userScope{svc: r.svc, userID: userID}
	rec := importer.NewReconciler(scope, scope, r.status)

	runCtx := context.WithoutCancel(ctx)
	log := logging.FromContext(ctx).With("file", fileName, "user", userID)

	go func() {
		result, err := rec.Run(runCtx, fileName, data, categories, accounts)
		switch {
		case err != nil:
			log.Error("import failed", "state", result.State, "error", err)
		case !result.Committed:
			log.Warn("import aborted", "rows_rejected", len(result.Errors))
		default:
			log.Info("import succeeded", "transactions", len(result.Created))
		}
	}()

	return nil
}
