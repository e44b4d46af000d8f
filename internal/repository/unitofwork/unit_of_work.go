package unitofwork

import (
	"context"

	"ai-budtender-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	// Do runs fn inside a transaction, rolling back when fn fails or panics.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	StrainRepository() contract.StrainRepository
	AttributeRepository() contract.AttributeRepository
}
