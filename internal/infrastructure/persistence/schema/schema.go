package schema

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journalflow/internal/errs"
	"journalflow/internal/infrastructure/persistence/sqlite/model"
)

// Version is bumped whenever Migrate changes the table layout.
const Version = 3

type Meta struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string    `gorm:"column:key;type:varchar(191);uniqueIndex;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (Meta) TableName() string {
	return "schema_meta"
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&Meta{},
		&model.User{},
		&model.UserCapability{},
		&model.Volume{},
		&model.Issue{},
		&model.Manuscript{},
		&model.AuthorRecord{},
		&model.Assignment{},
		&model.Review{},
		&model.ManuscriptEvent{},
		&model.NotificationIntent{},
		&model.KV{},
	}
}

// activeAssignmentIndex backs the one-active-invitation rule at the storage layer.
const activeAssignmentIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_active
ON assignments (manuscript_id, user_id, role)
WHERE status IN ('pending', 'accepted')`

// Migrate creates or updates every table and records the schema version.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(Models()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	if tx.Dialector.Name() == "sqlite" {
		if err := tx.Exec(activeAssignmentIndex).Error; err != nil {
			return errs.Wrap(err, "create active assignment index")
		}
	}

	row := Meta{Key: "schema_version", Value: strconv.Itoa(Version)}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "record schema version")
	}
	return nil
}

// CurrentVersion reads the recorded schema version, 0 when the schema was never migrated.
func CurrentVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var row Meta
	err := db.WithContext(ctx).Where("key = ?", "schema_version").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err, "query schema version")
	}
	v, err := strconv.Atoi(row.Value)
	if err != nil {
		return 0, errs.Wrapf(err, "parse schema version %q", row.Value)
	}
	return v, nil
}
