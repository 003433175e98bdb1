package model

type Assignment struct {
	AssignmentID uint64  `gorm:"column:assignment_id;primaryKey;autoIncrement"`
	ManuscriptID uint64  `gorm:"column:manuscript_id;not null;index:idx_assignment_pair,priority:1"`
	UserID       uint64  `gorm:"column:user_id;not null;index:idx_assignment_pair,priority:2;index"`
	Role         string  `gorm:"column:role;type:varchar(32);not null;index:idx_assignment_pair,priority:3"`
	Status       string  `gorm:"column:status;type:varchar(32);not null;index"`
	DueDate      string  `gorm:"column:due_date;type:varchar(40);not null"`
	Version      uint64  `gorm:"column:version;not null;default:1"`
	CreatedAt    string  `gorm:"column:created_at;type:varchar(40);not null"`
	UpdatedAt    string  `gorm:"column:updated_at;type:varchar(40);not null"`
	RespondedAt  *string `gorm:"column:responded_at;type:varchar(40)"`
}

func (Assignment) TableName() string {
	return "assignments"
}

type Review struct {
	ReviewID            uint64 `gorm:"column:review_id;primaryKey;autoIncrement"`
	AssignmentID        uint64 `gorm:"column:assignment_id;not null;uniqueIndex"`
	Relevance           int    `gorm:"column:relevance;not null"`
	Novelty             int    `gorm:"column:novelty;not null"`
	Methodology         int    `gorm:"column:methodology;not null"`
	CommentForAuthor    string `gorm:"column:comment_for_author;type:text;not null"`
	ConfidentialComment string `gorm:"column:confidential_comment;type:text;not null"`
	Recommendation      string `gorm:"column:recommendation;type:varchar(32);not null"`
	SubmittedAt         string `gorm:"column:submitted_at;type:varchar(40);not null"`
}

func (Review) TableName() string {
	return "reviews"
}
