package model

type KV struct {
	Key       string  `gorm:"column:cache_key;type:varchar(191);primaryKey"`
	Value     string  `gorm:"column:value;type:text;not null"`
	ExpiresAt *string `gorm:"column:expires_at;type:varchar(40)"`
	UpdatedAt string  `gorm:"column:updated_at;type:varchar(40);not null"`
}

func (KV) TableName() string {
	return "kv_store"
}
