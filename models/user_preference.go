package models

import "time"

// UserPreference is a key/value preference row, upsert-on-write,
// unique per (user_id, preference_key).
type UserPreference struct {
	ID              int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID          int64      `gorm:"column:user_id;not null;unique_index:idx_prefs_user_key" json:"user_id"`
	PreferenceKey   string     `gorm:"column:preference_key;not null;unique_index:idx_prefs_user_key" json:"preference_key"`
	PreferenceValue string     `gorm:"column:preference_value;not null" json:"preference_value"`
	CreatedAt       *time.Time `json:"created_at"`
}
