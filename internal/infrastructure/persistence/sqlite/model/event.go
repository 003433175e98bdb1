package model

type ManuscriptEvent struct {
	EventID      uint64 `gorm:"column:event_id;primaryKey;autoIncrement"`
	ManuscriptID uint64 `gorm:"column:manuscript_id;not null;index"`
	ActorID      uint64 `gorm:"column:actor_id;not null"`
	Action       string `gorm:"column:action;type:varchar(64);not null"`
	FromStatus   string `gorm:"column:from_status;type:varchar(32);not null"`
	ToStatus     string `gorm:"column:to_status;type:varchar(32);not null"`
	Note         string `gorm:"column:note;type:text;not null"`
	CreatedAt    string `gorm:"column:created_at;type:varchar(40);not null"`
}

func (ManuscriptEvent) TableName() string {
	return "manuscript_events"
}
