package uow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"journalflow/internal/ports"
)

type counter struct {
	ID    uint64 `gorm:"primaryKey"`
	Value int
}

func setupUnitOfWork(t *testing.T) (*UnitOfWork, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "uow.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&counter{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewUnitOfWork(db), db
}

func TestWithTxRollsBackOnError(t *testing.T) {
	u, db := setupUnitOfWork(t)
	boom := errors.New("boom")

	err := u.WithTx(context.Background(), func(ctx context.Context) error {
		tx := ports.TxFromContext(ctx).(*gorm.DB)
		if err := tx.Create(&counter{Value: 1}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v", err)
	}

	var count int64
	if err := db.Model(&counter{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rows after rollback = %d", count)
	}
}

func TestWithTxJoinsOuterTransaction(t *testing.T) {
	u, db := setupUnitOfWork(t)

	err := u.WithTx(context.Background(), func(outer context.Context) error {
		outerTx := ports.TxFromContext(outer)
		return u.WithTx(outer, func(inner context.Context) error {
			if ports.TxFromContext(inner) != outerTx {
				t.Fatalf("nested WithTx opened a new transaction")
			}
			return ports.TxFromContext(inner).(*gorm.DB).Create(&counter{Value: 2}).Error
		})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	var count int64
	if err := db.Model(&counter{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows after commit = %d", count)
	}
}
