// Package shared holds application-layer contracts used by more than one
// service: the transaction scope and its repository set.
package shared

import (
	"context"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
)

// TransactionScope provides transactional access to repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Stock checks rely on ProductRepo().FindByIDsForUpdate holding row locks
// until the transaction ends, so every stock mutation must go through the
// repositories handed to fn rather than repositories captured outside it.
type TransactionalRepositories interface {
	UserRepo() identity.UserRepository
	RefreshTokenRepo() identity.RefreshTokenRepository
	ProductRepo() catalog.ProductRepository
	CartRepo() cart.Repository
	OrderRepo() order.Repository
}

// Repositories is a plain set of repositories. It doubles as a
// TransactionalRepositories for NoOpTransactionScope.
type Repositories struct {
	Users         identity.UserRepository
	RefreshTokens identity.RefreshTokenRepository
	Products      catalog.ProductRepository
	Carts         cart.Repository
	Orders        order.Repository
}

// UserRepo returns the user repository.
func (r Repositories) UserRepo() identity.UserRepository { return r.Users }

// RefreshTokenRepo returns the refresh token repository.
func (r Repositories) RefreshTokenRepo() identity.RefreshTokenRepository { return r.RefreshTokens }

// ProductRepo returns the product repository.
func (r Repositories) ProductRepo() catalog.ProductRepository { return r.Products }

// CartRepo returns the cart repository.
func (r Repositories) CartRepo() cart.Repository { return r.Carts }

// OrderRepo returns the order repository.
func (r Repositories) OrderRepo() order.Repository { return r.Orders }

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = Repositories{}
)
