package unitofwork

import (
	"context"
	"fmt"

	"ai-budtender-be/internal/repository/contract"
	"ai-budtender-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(uow UnitOfWork) error) (err error) {
	if err := u.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = u.Rollback()
			err = fmt.Errorf("transaction panic: %v", r)
		}
	}()
	if err := fn(u); err != nil {
		if rbErr := u.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return u.Commit()
}

// Repository Accessors

func (u *UnitOfWorkImpl) StrainRepository() contract.StrainRepository {
	return implementation.NewStrainRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AttributeRepository() contract.AttributeRepository {
	return implementation.NewAttributeRepository(u.getDB())
}
