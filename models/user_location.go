package models

import "time"

// UserLocation holds the single current location slot for a user.
// One row per user (unique user_id): new location reports overwrite
// in place, location history is deliberately not kept.
type UserLocation struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID       int64      `gorm:"column:user_id;not null;unique_index" json:"user_id"`
	Latitude     float64    `gorm:"not null" json:"latitude"`
	Longitude    float64    `gorm:"not null" json:"longitude"`
	Address      string     `gorm:"default:''" json:"address"`
	LocationName string     `gorm:"column:location_name;default:''" json:"location_name"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}
