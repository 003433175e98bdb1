package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/infrastructure/persistence/sqlite/model"
	"journalflow/internal/ports"
)

type EditorialRepository struct {
	db *gorm.DB
}

var _ ports.EditorialRepository = (*EditorialRepository)(nil)

func NewEditorialRepository(db *gorm.DB) *EditorialRepository {
	return &EditorialRepository{db: db}
}

func (r *EditorialRepository) CreateManuscript(ctx context.Context, m editorial.Manuscript, authors []editorial.AuthorRecord) (editorial.Manuscript, error) {
	row, err := toManuscriptRow(m)
	if err != nil {
		return editorial.Manuscript{}, err
	}
	row.ManuscriptID = 0
	row.Version = 1

	if err := inTx(ctx, r.db, func(db *gorm.DB) error {
		if err := db.Create(&row).Error; err != nil {
			return wrapDBError(err, "insert manuscript")
		}

		authorRows := make([]model.AuthorRecord, 0, len(authors))
		for _, a := range authors {
			authorRows = append(authorRows, model.AuthorRecord{
				ManuscriptID: row.ManuscriptID,
				OrderIndex:   a.OrderIndex,
				Name:         a.Name,
				Email:        a.Email,
				Affiliation:  a.Affiliation,
				ORCID:        stringPtr(a.ORCID),
				IsPrimary:    a.IsPrimary,
			})
		}
		if len(authorRows) > 0 {
			if err := db.Create(&authorRows).Error; err != nil {
				return wrapDBError(err, "insert author records")
			}
		}
		return nil
	}); err != nil {
		return editorial.Manuscript{}, err
	}

	return mapManuscript(row), nil
}

func (r *EditorialRepository) GetManuscript(ctx context.Context, manuscriptID uint64) (editorial.Manuscript, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Manuscript{}, err
	}

	var row model.Manuscript
	if err := db.Where("manuscript_id = ?", manuscriptID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editorial.Manuscript{}, ports.ErrManuscriptNotFound
		}
		return editorial.Manuscript{}, wrapDBError(err, "query manuscript")
	}
	return mapManuscript(row), nil
}

func (r *EditorialRepository) GetManuscriptByTrackingCode(ctx context.Context, code string) (editorial.Manuscript, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Manuscript{}, err
	}

	var row model.Manuscript
	if err := db.Where("tracking_code = ?", code).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editorial.Manuscript{}, ports.ErrManuscriptNotFound
		}
		return editorial.Manuscript{}, wrapDBError(err, "query manuscript by tracking code")
	}
	return mapManuscript(row), nil
}

func (r *EditorialRepository) ListManuscripts(ctx context.Context, filter ports.ManuscriptFilter) ([]editorial.Manuscript, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Manuscript{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.SubmitterID != 0 {
		query = query.Where("submitter_id = ?", filter.SubmitterID)
	}
	if filter.HandlingEditorID != 0 {
		query = query.Where("handling_editor_id = ?", filter.HandlingEditorID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Manuscript
	if err := query.Order("manuscript_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query manuscripts")
	}

	items := make([]editorial.Manuscript, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapManuscript(row))
	}
	return items, nil
}

func (r *EditorialRepository) ListAuthors(ctx context.Context, manuscriptID uint64) ([]editorial.AuthorRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.AuthorRecord
	if err := db.Where("manuscript_id = ?", manuscriptID).Order("order_index asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query author records")
	}

	items := make([]editorial.AuthorRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, editorial.AuthorRecord{
			ID:           row.AuthorRecordID,
			ManuscriptID: row.ManuscriptID,
			Name:         row.Name,
			Email:        row.Email,
			Affiliation:  row.Affiliation,
			ORCID:        derefString(row.ORCID),
			IsPrimary:    row.IsPrimary,
			OrderIndex:   row.OrderIndex,
		})
	}
	return items, nil
}

func (r *EditorialRepository) UpdateManuscript(ctx context.Context, m editorial.Manuscript, expected editorial.ManuscriptStatus, expectedVersion uint64) (editorial.Manuscript, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Manuscript{}, err
	}

	row, err := toManuscriptRow(m)
	if err != nil {
		return editorial.Manuscript{}, err
	}

	result := db.Model(&model.Manuscript{}).
		Where("manuscript_id = ? AND status = ? AND version = ?", m.ID, string(expected), expectedVersion).
		Updates(map[string]any{
			"handling_editor_id": row.HandlingEditorID,
			"status":             row.Status,
			"file_ref":           row.FileRef,
			"issue_id":           row.IssueID,
			"page_start":         row.PageStart,
			"page_end":           row.PageEnd,
			"doi":                row.DOI,
			"published_at":       row.PublishedAt,
			"version":            expectedVersion + 1,
			"updated_at":         row.UpdatedAt,
		})
	if result.Error != nil {
		return editorial.Manuscript{}, wrapDBError(result.Error, "update manuscript")
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetManuscript(ctx, m.ID); err != nil {
			return editorial.Manuscript{}, err
		}
		return editorial.Manuscript{}, ports.ErrStaleWrite
	}

	m.Version = expectedVersion + 1
	return m, nil
}

func (r *EditorialRepository) CreateAssignment(ctx context.Context, a editorial.Assignment) (editorial.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Assignment{}, err
	}

	row := model.Assignment{
		ManuscriptID: a.ManuscriptID,
		UserID:       a.UserID,
		Role:         string(a.Role),
		Status:       string(a.Status),
		DueDate:      formatTime(a.DueDate),
		Version:      1,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return editorial.Assignment{}, fmt.Errorf("reviewer %d on manuscript %d: %w", a.UserID, a.ManuscriptID, editorial.ErrDuplicateAssignment)
		}
		return editorial.Assignment{}, wrapDBError(err, "insert assignment")
	}
	return mapAssignment(row), nil
}

func (r *EditorialRepository) GetAssignment(ctx context.Context, assignmentID uint64) (editorial.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Assignment{}, err
	}

	var row model.Assignment
	if err := db.Where("assignment_id = ?", assignmentID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editorial.Assignment{}, ports.ErrAssignmentNotFound
		}
		return editorial.Assignment{}, wrapDBError(err, "query assignment")
	}
	return mapAssignment(row), nil
}

func (r *EditorialRepository) ListAssignments(ctx context.Context, manuscriptID uint64) ([]editorial.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Assignment
	if err := db.Where("manuscript_id = ?", manuscriptID).Order("assignment_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query assignments")
	}
	return mapAssignments(rows), nil
}

func (r *EditorialRepository) ListAssignmentsForUser(ctx context.Context, userID uint64, statuses []editorial.AssignmentStatus) ([]editorial.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", assignmentStatusStrings(statuses))
	}

	var rows []model.Assignment
	if err := query.Order("due_date asc, assignment_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query user assignments")
	}
	return mapAssignments(rows), nil
}

func (r *EditorialRepository) FindActiveAssignment(ctx context.Context, manuscriptID uint64, userID uint64, role editorial.AssignmentRole) (editorial.Assignment, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Assignment{}, false, err
	}

	var rows []model.Assignment
	if err := db.
		Where("manuscript_id = ? AND user_id = ? AND role = ?", manuscriptID, userID, string(role)).
		Where("status IN ?", assignmentStatusStrings(editorial.ActiveAssignmentStatuses())).
		Order("assignment_id asc").
		Limit(1).
		Find(&rows).Error; err != nil {
		return editorial.Assignment{}, false, wrapDBError(err, "query active assignment")
	}
	if len(rows) == 0 {
		return editorial.Assignment{}, false, nil
	}
	return mapAssignment(rows[0]), true, nil
}

func (r *EditorialRepository) UpdateAssignmentStatus(ctx context.Context, a editorial.Assignment, next editorial.AssignmentStatus, at time.Time) (editorial.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Assignment{}, err
	}

	updates := map[string]any{
		"status":     string(next),
		"version":    a.Version + 1,
		"updated_at": formatTime(at),
	}
	if next == editorial.AssignmentAccepted || next == editorial.AssignmentDeclined {
		updates["responded_at"] = formatTime(at)
	}

	result := db.Model(&model.Assignment{}).
		Where("assignment_id = ? AND status = ? AND version = ?", a.ID, string(a.Status), a.Version).
		Updates(updates)
	if result.Error != nil {
		return editorial.Assignment{}, wrapDBError(result.Error, "update assignment status")
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetAssignment(ctx, a.ID); err != nil {
			return editorial.Assignment{}, err
		}
		return editorial.Assignment{}, ports.ErrStaleWrite
	}

	a.Status = next
	a.Version++
	a.UpdatedAt = at.UTC()
	if _, ok := updates["responded_at"]; ok {
		responded := at.UTC()
		a.RespondedAt = &responded
	}
	return a, nil
}

func (r *EditorialRepository) CreateReview(ctx context.Context, review editorial.Review) (editorial.Review, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Review{}, err
	}

	row := model.Review{
		AssignmentID:        review.AssignmentID,
		Relevance:           review.Scores.Relevance,
		Novelty:             review.Scores.Novelty,
		Methodology:         review.Scores.Methodology,
		CommentForAuthor:    review.CommentForAuthor,
		ConfidentialComment: review.ConfidentialComment,
		Recommendation:      string(review.Recommendation),
		SubmittedAt:         formatTime(review.SubmittedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return editorial.Review{}, wrapDBError(err, "insert review")
	}
	return mapReview(row), nil
}

func (r *EditorialRepository) GetReviewByAssignment(ctx context.Context, assignmentID uint64) (editorial.Review, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return editorial.Review{}, err
	}

	var row model.Review
	if err := db.Where("assignment_id = ?", assignmentID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editorial.Review{}, ports.ErrReviewNotFound
		}
		return editorial.Review{}, wrapDBError(err, "query review")
	}
	return mapReview(row), nil
}

func (r *EditorialRepository) ListReviews(ctx context.Context, manuscriptID uint64) ([]editorial.Review, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	assignmentIDs := db.Model(&model.Assignment{}).Select("assignment_id").Where("manuscript_id = ?", manuscriptID)

	var rows []model.Review
	if err := db.Where("assignment_id IN (?)", assignmentIDs).Order("review_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query reviews")
	}

	items := make([]editorial.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapReview(row))
	}
	return items, nil
}

func (r *EditorialRepository) AppendEvent(ctx context.Context, input ports.ManuscriptEventCreate) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.ManuscriptEvent{
		ManuscriptID: input.ManuscriptID,
		ActorID:      input.ActorID,
		Action:       input.Action,
		FromStatus:   input.FromStatus,
		ToStatus:     input.ToStatus,
		Note:         input.Note,
		CreatedAt:    formatTime(input.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return wrapDBError(err, "insert manuscript event")
	}
	return nil
}

func (r *EditorialRepository) ListEvents(ctx context.Context, manuscriptID uint64) ([]ports.ManuscriptEvent, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.ManuscriptEvent
	if err := db.Where("manuscript_id = ?", manuscriptID).Order("event_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query manuscript events")
	}
	return mapEvents(rows), nil
}

func (r *EditorialRepository) ListEventsAfter(ctx context.Context, afterEventID uint64, limit int) ([]ports.ManuscriptEvent, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	var rows []model.ManuscriptEvent
	if err := db.Where("event_id > ?", afterEventID).Order("event_id asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query manuscript events after cursor")
	}
	return mapEvents(rows), nil
}

func toManuscriptRow(m editorial.Manuscript) (model.Manuscript, error) {
	keywords := m.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	raw, err := json.Marshal(keywords)
	if err != nil {
		return model.Manuscript{}, errs.Wrap(err, "encode keywords")
	}

	row := model.Manuscript{
		ManuscriptID:     m.ID,
		TrackingCode:     m.TrackingCode,
		Title:            m.Title,
		Abstract:         m.Abstract,
		KeywordsJSON:     string(raw),
		Category:         m.Category,
		SubmitterID:      m.SubmitterID,
		HandlingEditorID: m.HandlingEditorID,
		Status:           string(m.Status),
		FileRef:          m.FileRef,
		Version:          m.Version,
		SubmittedAt:      formatTime(m.SubmittedAt),
		UpdatedAt:        formatTime(m.UpdatedAt),
	}
	if p := m.Publication; p != nil {
		issueID := p.IssueID
		row.IssueID = &issueID
		row.PageStart = stringPtr(p.PageStart)
		row.PageEnd = stringPtr(p.PageEnd)
		row.DOI = stringPtr(p.DOI)
		row.PublishedAt = formatTimePtr(&p.PublishedAt)
	}
	return row, nil
}

func mapManuscript(row model.Manuscript) editorial.Manuscript {
	var keywords []string
	if row.KeywordsJSON != "" {
		_ = json.Unmarshal([]byte(row.KeywordsJSON), &keywords)
	}

	m := editorial.Manuscript{
		ID:               row.ManuscriptID,
		TrackingCode:     row.TrackingCode,
		Title:            row.Title,
		Abstract:         row.Abstract,
		Keywords:         keywords,
		Category:         row.Category,
		SubmitterID:      row.SubmitterID,
		HandlingEditorID: row.HandlingEditorID,
		Status:           editorial.ManuscriptStatus(row.Status),
		FileRef:          row.FileRef,
		Version:          row.Version,
		SubmittedAt:      parseTime(row.SubmittedAt),
		UpdatedAt:        parseTime(row.UpdatedAt),
	}
	if row.IssueID != nil {
		p := &editorial.Publication{
			IssueID:   *row.IssueID,
			PageStart: derefString(row.PageStart),
			PageEnd:   derefString(row.PageEnd),
			DOI:       derefString(row.DOI),
		}
		if at := parseTimePtr(row.PublishedAt); at != nil {
			p.PublishedAt = *at
		}
		m.Publication = p
	}
	return m
}

func mapAssignment(row model.Assignment) editorial.Assignment {
	return editorial.Assignment{
		ID:           row.AssignmentID,
		ManuscriptID: row.ManuscriptID,
		UserID:       row.UserID,
		Role:         editorial.AssignmentRole(row.Role),
		Status:       editorial.AssignmentStatus(row.Status),
		DueDate:      parseTime(row.DueDate),
		Version:      row.Version,
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
		RespondedAt:  parseTimePtr(row.RespondedAt),
	}
}

func mapAssignments(rows []model.Assignment) []editorial.Assignment {
	items := make([]editorial.Assignment, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAssignment(row))
	}
	return items
}

func mapReview(row model.Review) editorial.Review {
	return editorial.Review{
		ID:           row.ReviewID,
		AssignmentID: row.AssignmentID,
		Scores: editorial.Scores{
			Relevance:   row.Relevance,
			Novelty:     row.Novelty,
			Methodology: row.Methodology,
		},
		CommentForAuthor:    row.CommentForAuthor,
		ConfidentialComment: row.ConfidentialComment,
		Recommendation:      editorial.Recommendation(row.Recommendation),
		SubmittedAt:         parseTime(row.SubmittedAt),
	}
}

func mapEvents(rows []model.ManuscriptEvent) []ports.ManuscriptEvent {
	items := make([]ports.ManuscriptEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.ManuscriptEvent{
			EventID:      row.EventID,
			ManuscriptID: row.ManuscriptID,
			ActorID:      row.ActorID,
			Action:       row.Action,
			FromStatus:   row.FromStatus,
			ToStatus:     row.ToStatus,
			Note:         row.Note,
			CreatedAt:    parseTime(row.CreatedAt),
		})
	}
	return items
}

func assignmentStatusStrings(statuses []editorial.AssignmentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
