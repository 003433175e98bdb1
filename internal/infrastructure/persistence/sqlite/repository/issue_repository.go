package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/infrastructure/persistence/sqlite/model"
	"journalflow/internal/ports"
)

type IssueRepository struct {
	db *gorm.DB
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) CreateVolume(ctx context.Context, v editorial.Volume) (editorial.Volume, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Volume{}, err
	}

	row := model.Volume{
		Number:    v.Number,
		Year:      v.Year,
		CreatedAt: formatTime(v.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return editorial.Volume{}, wrapDBError(err, "insert volume")
	}
	return mapVolume(row), nil
}

func (r *IssueRepository) GetVolume(ctx context.Context, volumeID uint64) (editorial.Volume, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Volume{}, err
	}

	var row model.Volume
	if err := db.Where("volume_id = ?", volumeID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editorial.Volume{}, ports.ErrVolumeNotFound
		}
		return editorial.Volume{}, wrapDBError(err, "query volume")
	}
	return mapVolume(row), nil
}

func (r *IssueRepository) ListVolumes(ctx context.Context) ([]editorial.Volume, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Volume
	if err := db.Order("number asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query volumes")
	}

	items := make([]editorial.Volume, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapVolume(row))
	}
	return items, nil
}

func (r *IssueRepository) CreateIssue(ctx context.Context, i editorial.Issue) (editorial.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Issue{}, err
	}

	row := model.Issue{
		VolumeID:   i.VolumeID,
		Number:     i.Number,
		Year:       i.Year,
		Month:      i.Month,
		Status:     string(i.Status),
		CoverAsset: stringPtr(i.CoverAsset),
		CreatedAt:  formatTime(i.CreatedAt),
		UpdatedAt:  formatTime(i.UpdatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return editorial.Issue{}, wrapDBError(err, "insert issue")
	}
	return mapIssue(row), nil
}

func (r *IssueRepository) GetIssue(ctx context.Context, issueID uint64) (editorial.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Issue{}, err
	}

	var row model.Issue
	if err := db.Where("issue_id = ?", issueID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editorial.Issue{}, ports.ErrIssueNotFound
		}
		return editorial.Issue{}, wrapDBError(err, "query issue")
	}
	return mapIssue(row), nil
}

// ListIssues returns every issue when volumeID is zero.
func (r *IssueRepository) ListIssues(ctx context.Context, volumeID uint64) ([]editorial.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Issue{})
	if volumeID != 0 {
		query = query.Where("volume_id = ?", volumeID)
	}

	var rows []model.Issue
	if err := query.Order("volume_id asc, number asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query issues")
	}

	items := make([]editorial.Issue, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapIssue(row))
	}
	return items, nil
}

func (r *IssueRepository) UpdateIssueStatus(ctx context.Context, issueID uint64, status editorial.IssueStatus, updatedAt time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.Issue{}).
		Where("issue_id = ?", issueID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": formatTime(updatedAt),
		})
	if result.Error != nil {
		return wrapDBError(result.Error, "update issue status")
	}
	if result.RowsAffected == 0 {
		return ports.ErrIssueNotFound
	}
	return nil
}

func mapVolume(row model.Volume) editorial.Volume {
	return editorial.Volume{
		ID:        row.VolumeID,
		Number:    row.Number,
		Year:      row.Year,
		CreatedAt: parseTime(row.CreatedAt),
	}
}

func mapIssue(row model.Issue) editorial.Issue {
	return editorial.Issue{
		ID:         row.IssueID,
		VolumeID:   row.VolumeID,
		Number:     row.Number,
		Year:       row.Year,
		Month:      row.Month,
		Status:     editorial.IssueStatus(row.Status),
		CoverAsset: derefString(row.CoverAsset),
		CreatedAt:  parseTime(row.CreatedAt),
		UpdatedAt:  parseTime(row.UpdatedAt),
	}
}
