package store

import (
	"context"
	"errors"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the read side the reports are computed from. Each list call
// returns the complete collection; there is no pagination.
type Repository interface {
	ListSales(ctx context.Context) ([]domain.Sale, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
