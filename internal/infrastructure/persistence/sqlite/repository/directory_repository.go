package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/infrastructure/persistence/sqlite/model"
	"journalflow/internal/ports"
)

// DirectoryRepository stores user accounts and their capabilities.
type DirectoryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.DirectoryRepository = (*DirectoryRepository)(nil)

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db, now: time.Now}
}

func (r *DirectoryRepository) CreateUser(ctx context.Context, name string, email string) (ports.UserProfile, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.UserProfile{}, err
	}

	row := model.User{
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: formatTime(r.now()),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.UserProfile{}, wrapDBError(err, "insert user")
	}
	return ports.UserProfile{UserID: row.UserID, Name: row.Name, Email: row.Email}, nil
}

func (r *DirectoryRepository) GetUser(ctx context.Context, userID uint64) (ports.UserProfile, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.UserProfile{}, err
	}

	var row model.User
	if err := db.Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.UserProfile{}, ports.ErrUserNotFound
		}
		return ports.UserProfile{}, wrapDBError(err, "query user")
	}

	caps, err := r.capabilities(db, []uint64{userID})
	if err != nil {
		return ports.UserProfile{}, err
	}
	return ports.UserProfile{
		UserID:       row.UserID,
		Name:         row.Name,
		Email:        row.Email,
		Capabilities: caps[userID],
	}, nil
}

func (r *DirectoryRepository) ListUsers(ctx context.Context) ([]ports.UserProfile, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.User
	if err := db.Order("user_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query users")
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	caps, err := r.capabilities(db, ids)
	if err != nil {
		return nil, err
	}

	items := make([]ports.UserProfile, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.UserProfile{
			UserID:       row.UserID,
			Name:         row.Name,
			Email:        row.Email,
			Capabilities: caps[row.UserID],
		})
	}
	return items, nil
}

func (r *DirectoryRepository) GrantCapability(ctx context.Context, userID uint64, capability editorial.Capability) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return wrapDBError(err, "query user")
	}
	if count == 0 {
		return ports.ErrUserNotFound
	}

	row := model.UserCapability{UserID: userID, Capability: string(capability)}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return wrapDBError(err, "grant capability")
	}
	return nil
}

func (r *DirectoryRepository) RevokeCapability(ctx context.Context, userID uint64, capability editorial.Capability) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	if err := db.Where("user_id = ? AND capability = ?", userID, string(capability)).
		Delete(&model.UserCapability{}).Error; err != nil {
		return wrapDBError(err, "revoke capability")
	}
	return nil
}

func (r *DirectoryRepository) HasCapability(ctx context.Context, userID uint64, capability editorial.Capability) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.UserCapability{}).
		Where("user_id = ? AND capability = ?", userID, string(capability)).
		Count(&count).Error; err != nil {
		return false, wrapDBError(err, "query capability")
	}
	return count > 0, nil
}

// UsersWithCapability returns the distinct users holding any of capabilities, ordered by id.
func (r *DirectoryRepository) UsersWithCapability(ctx context.Context, capabilities ...editorial.Capability) ([]uint64, error) {
	if len(capabilities) == 0 {
		return nil, nil
	}
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		names = append(names, string(c))
	}

	var ids []uint64
	if err := db.Model(&model.UserCapability{}).
		Distinct("user_id").
		Where("capability IN ?", names).
		Order("user_id asc").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBError(err, "query users with capability")
	}
	return ids, nil
}

func (r *DirectoryRepository) capabilities(db *gorm.DB, userIDs []uint64) (map[uint64][]editorial.Capability, error) {
	out := make(map[uint64][]editorial.Capability, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []model.UserCapability
	if err := db.Where("user_id IN ?", userIDs).Order("user_id asc, capability asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query capabilities")
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], editorial.Capability(row.Capability))
	}
	return out, nil
}
