package model

type Volume struct {
	VolumeID  uint64 `gorm:"column:volume_id;primaryKey;autoIncrement"`
	Number    int    `gorm:"column:number;not null;uniqueIndex"`
	Year      int    `gorm:"column:year;not null"`
	CreatedAt string `gorm:"column:created_at;type:varchar(40);not null"`
}

func (Volume) TableName() string {
	return "volumes"
}

type Issue struct {
	IssueID    uint64  `gorm:"column:issue_id;primaryKey;autoIncrement"`
	VolumeID   uint64  `gorm:"column:volume_id;not null;uniqueIndex:idx_issue_number,priority:1"`
	Number     int     `gorm:"column:number;not null;uniqueIndex:idx_issue_number,priority:2"`
	Year       int     `gorm:"column:year;not null"`
	Month      int     `gorm:"column:month;not null"`
	Status     string  `gorm:"column:status;type:varchar(32);not null"`
	CoverAsset *string `gorm:"column:cover_asset;type:text"`
	CreatedAt  string  `gorm:"column:created_at;type:varchar(40);not null"`
	UpdatedAt  string  `gorm:"column:updated_at;type:varchar(40);not null"`
}

func (Issue) TableName() string {
	return "issues"
}
