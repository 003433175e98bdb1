package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"journalflow/internal/errs"
	"journalflow/internal/ports"
)

// dbFromContext joins the transaction carried by ctx, if any.
func dbFromContext(ctx context.Context, root *gorm.DB) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return root.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// inTx runs fn in the caller's transaction, opening one when ctx carries none.
func inTx(ctx context.Context, root *gorm.DB, fn func(db *gorm.DB) error) error {
	if ports.TxFromContext(ctx) != nil {
		db, err := dbFromContext(ctx, root)
		if err != nil {
			return err
		}
		return fn(db)
	}
	return root.WithContext(ctx).Transaction(fn)
}

// wrapDBError records where a driver error surfaced so logs carry its stack.
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.WithStack(err), msg)
}

// isUniqueConstraintError matches the unique violations of the sqlite and mysql drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed") || strings.Contains(value, "duplicate entry")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	return &t
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
