package model

type Manuscript struct {
	ManuscriptID     uint64  `gorm:"column:manuscript_id;primaryKey;autoIncrement"`
	TrackingCode     string  `gorm:"column:tracking_code;type:varchar(64);not null;uniqueIndex"`
	Title            string  `gorm:"column:title;type:text;not null"`
	Abstract         string  `gorm:"column:abstract;type:text;not null"`
	KeywordsJSON     string  `gorm:"column:keywords_json;type:text;not null"`
	Category         string  `gorm:"column:category;type:varchar(128);not null;index"`
	SubmitterID      uint64  `gorm:"column:submitter_id;not null;index"`
	HandlingEditorID *uint64 `gorm:"column:handling_editor_id;index"`
	Status           string  `gorm:"column:status;type:varchar(32);not null;index"`
	FileRef          string  `gorm:"column:file_ref;type:text;not null"`
	IssueID          *uint64 `gorm:"column:issue_id;index"`
	PageStart        *string `gorm:"column:page_start;type:varchar(32)"`
	PageEnd          *string `gorm:"column:page_end;type:varchar(32)"`
	DOI              *string `gorm:"column:doi;type:varchar(255)"`
	PublishedAt      *string `gorm:"column:published_at;type:varchar(40)"`
	Version          uint64  `gorm:"column:version;not null;default:1"`
	SubmittedAt      string  `gorm:"column:submitted_at;type:varchar(40);not null"`
	UpdatedAt        string  `gorm:"column:updated_at;type:varchar(40);not null"`
}

func (Manuscript) TableName() string {
	return "manuscripts"
}

type AuthorRecord struct {
	AuthorRecordID uint64  `gorm:"column:author_record_id;primaryKey;autoIncrement"`
	ManuscriptID   uint64  `gorm:"column:manuscript_id;not null;uniqueIndex:idx_author_order,priority:1"`
	OrderIndex     int     `gorm:"column:order_index;not null;uniqueIndex:idx_author_order,priority:2"`
	Name           string  `gorm:"column:name;type:varchar(200);not null"`
	Email          string  `gorm:"column:email;type:varchar(255);not null"`
	Affiliation    string  `gorm:"column:affiliation;type:varchar(300);not null;default:''"`
	ORCID          *string `gorm:"column:orcid;type:varchar(19)"`
	IsPrimary      bool    `gorm:"column:is_primary;not null;default:false"`
}

func (AuthorRecord) TableName() string {
	return "author_records"
}
