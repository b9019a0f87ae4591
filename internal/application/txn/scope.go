// Package txn defines the unit of work shared by the application services.
package txn

import (
	"context"

	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/procurement"
)

// Scope provides transactional access to the repositories.
// Everything done through the Repositories handed to fn is committed together
// when fn returns nil and rolled back when it returns an error.
type Scope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository within one transaction.
// All repositories returned share the same underlying database transaction.
type Repositories interface {
	Orders() procurement.OrderRepository
	Stock() inventory.StockRepository
	Journal() inventory.TransactionRepository
	Assets() asset.Repository
	Sequences() numbering.SequenceRepository
}

// Set is a plain bundle of repositories. It is what a NoOpScope hands out.
type Set struct {
	OrderRepo    procurement.OrderRepository
	StockRepo    inventory.StockRepository
	JournalRepo  inventory.TransactionRepository
	AssetRepo    asset.Repository
	SequenceRepo numbering.SequenceRepository
}

func (s *Set) Orders() procurement.OrderRepository      { return s.OrderRepo }
func (s *Set) Stock() inventory.StockRepository         { return s.StockRepo }
func (s *Set) Journal() inventory.TransactionRepository { return s.JournalRepo }
func (s *Set) Assets() asset.Repository                 { return s.AssetRepo }
func (s *Set) Sequences() numbering.SequenceRepository  { return s.SequenceRepo }

// NoOpScope runs fn against fixed repositories without a real transaction.
// This is useful for testing services against mocks.
type NoOpScope struct {
	repos *Set
}

// NewNoOpScope creates a NoOpScope handing out repos
func NewNoOpScope(repos *Set) *NoOpScope {
	return &NoOpScope{repos: repos}
}

// Execute runs fn directly; nothing is rolled back on error
func (s *NoOpScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}

var (
	_ Scope        = (*NoOpScope)(nil)
	_ Repositories = (*Set)(nil)
)
