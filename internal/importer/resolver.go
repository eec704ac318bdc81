package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/financas/server/internal/domain"
)

// EntityCreator persists a new category or account through the external
// store and returns it with its generated id. Implemented by the core
// service, scoped to one user.
type EntityCreator interface {
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error)
}

// Resolver maps human-readable category and account names to entity
// ids, creating missing entities lazily. It works on run-local copies
// of the known sets seeded at import start: entities created mid-run
// are appended locally so later rows see them without another round
// trip, and the caller's snapshot is never mutated.
type Resolver struct {
	creator    EntityCreator
	categories []domain.Category
	accounts   []domain.Account
}

// NewResolver copies the seed snapshots; the originals stay untouched.
func NewResolver(creator EntityCreator, categories []domain.Category, accounts []domain.Account) *Resolver {
	return &Resolver{
		creator:    creator,
		categories: append([]domain.Category(nil), categories...),
		accounts:   append([]domain.Account(nil), accounts...),
	}
}

// HasCategory reports whether a category with this name (any casing)
// and type is already known to the run.
func (r *Resolver) HasCategory(name string, typ domain.TransactionType) bool {
	for _, c := range r.categories {
		if strings.EqualFold(c.Name, name) && c.Type == typ {
			return true
		}
	}
	return false
}

// HasAccount reports whether an account with this name (any casing) is
// already known to the run.
func (r *Resolver) HasAccount(name string) bool {
	for _, a := range r.accounts {
		if strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

// ResolveCategory finds a category by case-insensitive name and type,
// creating it when absent. The created flag reports whether a store
// write happened.
func (r *Resolver) ResolveCategory(ctx context.Context, name string, typ domain.TransactionType) (domain.Category, bool, error) {
	for _, c := range r.categories {
		if strings.EqualFold(c.Name, name) && c.Type == typ {
			return c, false, nil
		}
	}

	created, err := r.creator.CreateCategory(ctx, domain.Category{Name: name, Type: typ})
	if err != nil {
		return domain.Category{}, false, fmt.Errorf("create category %q: %w", name, err)
	}
	r.categories = append(r.categories, created)
	return created, true, nil
}

// ResolveAccount finds an account by case-insensitive name, creating it
// with the import defaults (type bank, zero initial balance) when
// absent.
func (r *Resolver) ResolveAccount(ctx context.Context, name string) (domain.Account, bool, error) {
	for _, a := range r.accounts {
		if strings.EqualFold(a.Name, name) {
			return a, false, nil
		}
	}

	created, err := r.creator.CreateAccount(ctx, domain.Account{
		Name:           name,
		Type:           domain.AccountBank,
		InitialBalance: decimal.Zero,
	})
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("create account %q: %w", name, err)
	}
	r.accounts = append(r.accounts, created)
	return created, true, nil
}
