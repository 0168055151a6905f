package models

import "time"

// KVEntry is one persisted storefront key, scoped by namespace (the API origin).
type KVEntry struct {
	Namespace string    `gorm:"column:namespace;primaryKey"`
	Key       string    `gorm:"column:entry_key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName pins the table created by the kv migration.
func (KVEntry) TableName() string {
	return "kv_entries"
}
