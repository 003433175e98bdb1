package model

type User struct {
	UserID    uint64 `gorm:"column:user_id;primaryKey;autoIncrement"`
	Name      string `gorm:"column:name;type:varchar(200);not null"`
	Email     string `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	CreatedAt string `gorm:"column:created_at;type:varchar(40);not null"`
}

func (User) TableName() string {
	return "users"
}

type UserCapability struct {
	UserID     uint64 `gorm:"column:user_id;not null;primaryKey"`
	Capability string `gorm:"column:capability;type:varchar(32);not null;primaryKey;index"`
}

func (UserCapability) TableName() string {
	return "user_capabilities"
}
