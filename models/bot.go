package models

import "time"

/************************************************
/**** MARK: BOT TYPES ****/
/************************************************/
const BOT_TYPE_RESTAURANT = "restaurant"
const BOT_TYPE_WEATHER = "weather"

// Bot is the denormalized mirror row for a configured bot.
// Bots live in configuration; this row only exists so users can
// reference a stable internal id. Created lazily on first contact.
type Bot struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	BotID     string     `gorm:"column:bot_id;not null;unique_index" json:"bot_id"`
	Name      string     `gorm:"not null" json:"name"`
	CreatedAt *time.Time `json:"created_at"`
}
