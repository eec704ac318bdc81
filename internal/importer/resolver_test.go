package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/financas/server/internal/domain"
)

// fakeCreator records created entities and assigns sequential ids.
type fakeCreator struct {
	categories []domain.Category
	accounts   []domain.Account
	failWith   error
}

func (f *fakeCreator) CreateCategory(_ context.Context, c domain.Category) (domain.Category, error) {
	if f.failWith != nil {
		return domain.Category{}, f.failWith
	}
	c.ID = fmt.Sprintf("cat-%d", len(f.categories)+1)
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeCreator) CreateAccount(_ context.Context, a domain.Account) (domain.Account, error) {
	if f.failWith != nil {
		return domain.Account{}, f.failWith
	}
	a.ID = fmt.Sprintf("acc-%d", len(f.accounts)+1)
	f.accounts = append(f.accounts, a)
	return a, nil
}

func TestResolveCategory(t *testing.T) {
	seed := []domain.Category{
		{ID: "c1", Name: "Alimentação", Type: domain.TypeExpense},
	}

	t.Run("existing match by name and type", func(t *testing.T) {
		creator := &fakeCreator{}
		r := NewResolver(creator, seed, nil)

		got, created, err := r.ResolveCategory(context.Background(), "alimentação", domain.TypeExpense)
		if err != nil {
			t.Fatal(err)
		}
		if created {
			t.Error("expected no creation for existing category")
		}
		if got.ID != "c1" {
			t.Errorf("id = %q, want c1", got.ID)
		}
	})

	t.Run("same name different type creates new", func(t *testing.T) {
		creator := &fakeCreator{}
		r := NewResolver(creator, seed, nil)

		got, created, err := r.ResolveCategory(context.Background(), "Alimentação", domain.TypeIncome)
		if err != nil {
			t.Fatal(err)
		}
		if !created {
			t.Error("expected creation for type mismatch")
		}
		if got.Type != domain.TypeIncome {
			t.Errorf("type = %q, want income", got.Type)
		}
	})

	t.Run("second resolve reuses the created entity", func(t *testing.T) {
		creator := &fakeCreator{}
		r := NewResolver(creator, nil, nil)

		first, created, err := r.ResolveCategory(context.Background(), "Lazer", domain.TypeExpense)
		if err != nil || !created {
			t.Fatalf("first resolve: created=%v err=%v", created, err)
		}
		second, created, err := r.ResolveCategory(context.Background(), "LAZER", domain.TypeExpense)
		if err != nil {
			t.Fatal(err)
		}
		if created {
			t.Error("second resolve should hit the run-local cache")
		}
		if second.ID != first.ID {
			t.Errorf("ids differ: %q vs %q", second.ID, first.ID)
		}
		if len(creator.categories) != 1 {
			t.Errorf("store writes = %d, want 1", len(creator.categories))
		}
	})

	t.Run("creation error is wrapped with the name", func(t *testing.T) {
		creator := &fakeCreator{failWith: errors.New("store down")}
		r := NewResolver(creator, nil, nil)

		_, _, err := r.ResolveCategory(context.Background(), "Lazer", domain.TypeExpense)
		if err == nil {
			t.Fatal("expected error")
		}
		if want := `create category "Lazer"`; !errors.Is(err, creator.failWith) || !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, want wrapped %q", err, want)
		}
	})
}

func TestResolveAccount(t *testing.T) {
	t.Run("created account uses import defaults", func(t *testing.T) {
		creator := &fakeCreator{}
		r := NewResolver(creator, nil, nil)

		got, created, err := r.ResolveAccount(context.Background(), "Cartão de Crédito")
		if err != nil {
			t.Fatal(err)
		}
		if !created {
			t.Error("expected creation")
		}
		if got.Type != domain.AccountBank {
			t.Errorf("type = %q, want bank", got.Type)
		}
		if !got.InitialBalance.Equal(decimal.Zero) {
			t.Errorf("initial balance = %s, want 0", got.InitialBalance)
		}
	})

	t.Run("existing match ignores casing", func(t *testing.T) {
		creator := &fakeCreator{}
		seed := []domain.Account{{ID: "a1", Name: "Conta Corrente", Type: domain.AccountBank}}
		r := NewResolver(creator, nil, seed)

		got, created, err := r.ResolveAccount(context.Background(), "conta corrente")
		if err != nil {
			t.Fatal(err)
		}
		if created || got.ID != "a1" {
			t.Errorf("created=%v id=%q, want existing a1", created, got.ID)
		}
	})
}

func TestResolverDoesNotMutateSeed(t *testing.T) {
	creator := &fakeCreator{}
	seedCats := make([]domain.Category, 0, 4)
	seedCats = append(seedCats, domain.Category{ID: "c1", Name: "Salário", Type: domain.TypeIncome})

	r := NewResolver(creator, seedCats, nil)
	if _, _, err := r.ResolveCategory(context.Background(), "Lazer", domain.TypeExpense); err != nil {
		t.Fatal(err)
	}

	if len(seedCats) != 1 {
		t.Errorf("seed slice length changed to %d", len(seedCats))
	}
}

