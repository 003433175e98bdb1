package uow

import (
	"context"

	"gorm.io/gorm"

	"journalflow/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm.
//
// Nested calls join the outer transaction so a use case can compose helpers
// that each ask for one.
type UnitOfWork struct {
	db *gorm.DB
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ports.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
}
