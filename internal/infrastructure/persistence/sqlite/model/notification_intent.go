package model

type NotificationIntent struct {
	IntentID        uint64  `gorm:"column:intent_id;primaryKey;autoIncrement"`
	IdempotencyKey  string  `gorm:"column:idempotency_key;type:varchar(64);not null;uniqueIndex"`
	ManuscriptID    uint64  `gorm:"column:manuscript_id;not null;index"`
	TemplateKey     string  `gorm:"column:template_key;type:varchar(64);not null"`
	RecipientUserID uint64  `gorm:"column:recipient_user_id;not null"`
	PayloadJSON     string  `gorm:"column:payload_json;type:text;not null"`
	Status          string  `gorm:"column:status;type:varchar(16);not null;index"`
	Attempts        int     `gorm:"column:attempts;not null;default:0"`
	LastError       string  `gorm:"column:last_error;type:text;not null"`
	CreatedAt       string  `gorm:"column:created_at;type:varchar(40);not null"`
	DispatchedAt    *string `gorm:"column:dispatched_at;type:varchar(40)"`
}

func (NotificationIntent) TableName() string {
	return "notification_intents"
}
