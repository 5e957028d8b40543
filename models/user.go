package models

import "time"

// User representa um usuário do LINE, escopado por bot: o mesmo
// line_user_id em dois bots diferentes são duas linhas distintas.
type User struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	BotID      int64      `gorm:"column:bot_id;not null;unique_index:idx_users_bot_line_user" json:"bot_id"`
	LineUserID string     `gorm:"column:line_user_id;not null;unique_index:idx_users_bot_line_user" json:"line_user_id"`
	CreatedAt  *time.Time `json:"created_at"`
}
