// Package core provides the business operations over the document
// store: typed CRUD for the finance collections plus the payment,
// scheduling, forecast and import flows. It has no HTTP dependencies
// and can be driven by any frontend.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/financas/server/internal/domain"
	"github.com/financas/server/internal/store"
)

// ErrDuplicateName is returned when an explicit create would clash with
// an existing category or account name under any casing.
var ErrDuplicateName = errors.New("name already exists")

// ErrInvalid wraps user-input validation failures.
var ErrInvalid = errors.New("invalid input")

// Service owns the repositories over the store.
type Service struct {
	store store.Store
}

// NewService wraps a store driver.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Store exposes the underlying driver for the web layer's live feeds.
func (s *Service) Store() store.Store {
	return s.store
}

/* ----------------------------------------
	Categories
---------------------------------------- */

func (s *Service) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	docs, err := s.store.List(ctx, userID, store.ColCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		var c domain.Category
		if err := store.Decode(doc, &c); err != nil {
			return nil, fmt.Errorf("decode category %s: %w", doc.ID, err)
		}
		c.ID = doc.ID
		out = append(out, c)
	}
	return out, nil
}

// AddCategory creates a category after checking the unique-name
// invariant (case-insensitive within the type).
func (s *Service) AddCategory(ctx context.Context, userID string, c domain.Category) (domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, fmt.Errorf("%w: empty category name", ErrInvalid)
	}
	if c.Type != domain.TypeIncome && c.Type != domain.TypeExpense {
		return domain.Category{}, fmt.Errorf("%w: invalid category type %q", ErrInvalid, c.Type)
	}

	existing, err := s.ListCategories(ctx, userID)
	if err != nil {
		return domain.Category{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, c.Name) && e.Type == c.Type {
			return domain.Category{}, fmt.Errorf("category %q: %w", c.Name, ErrDuplicateName)
		}
	}

	c.ID = ""
	data, err := store.Encode(c)
	if err != nil {
		return domain.Category{}, fmt.Errorf("encode category: %w", err)
	}
	id, err := s.store.Create(ctx, userID, store.ColCategories, data)
	if err != nil {
		return domain.Category{}, fmt.Errorf("add category: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, userID string, c domain.Category) error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing category id", ErrInvalid)
	}
	id := c.ID
	c.ID = ""
	data, err := store.Encode(c)
	if err != nil {
		return fmt.Errorf("encode category: %w", err)
	}
	if err := s.store.Update(ctx, userID, store.ColCategories, id, data); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (s *Service) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, store.ColCategories, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

/* ----------------------------------------
	Accounts
---------------------------------------- */

func (s *Service) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	docs, err := s.store.List(ctx, userID, store.ColAccounts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]domain.Account, 0, len(docs))
	for _, doc := range docs {
		var a domain.Account
		if err := store.Decode(doc, &a); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", doc.ID, err)
		}
		a.ID = doc.ID
		out = append(out, a)
	}
	return out, nil
}

// AddAccount creates an account after checking the unique-name
// invariant (case-insensitive).
func (s *Service) AddAccount(ctx context.Context, userID string, a domain.Account) (domain.Account, error) {
	if strings.TrimSpace(a.Name) == "" {
		return domain.Account{}, fmt.Errorf("%w: empty account name", ErrInvalid)
	}
	if _, err := domain.ParseAccountType(string(a.Type)); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	existing, err := s.ListAccounts(ctx, userID)
	if err != nil {
		return domain.Account{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, a.Name) {
			return domain.Account{}, fmt.Errorf("account %q: %w", a.Name, ErrDuplicateName)
		}
	}

	a.ID = ""
	data, err := store.Encode(a)
	if err != nil {
		return domain.Account{}, fmt.Errorf("encode account: %w", err)
	}
	id, err := s.store.Create(ctx, userID, store.ColAccounts, data)
	if err != nil {
		return domain.Account{}, fmt.Errorf("add account: %w", err)
	}
	a.ID = id
	return a, nil
}

func (s *Service) UpdateAccount(ctx context.Context, userID string, a domain.Account) error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing account id", ErrInvalid)
	}
	id := a.ID
	a.ID = ""
	data, err := store.Encode(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := s.store.Update(ctx, userID, store.ColAccounts, id, data); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (s *Service) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, store.ColAccounts, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
