package db

import (
	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/models"
)

// Coordinates is the lat/lng projection used by place searches.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Subscriber is one broadcast recipient of a bot. Location fields are
// nil when the user never shared a location.
type Subscriber struct {
	LineUserID   string   `json:"line_user_id"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Address      *string  `json:"address"`
	LocationName *string  `json:"location_name"`
}

// GetOrCreateBot returns the internal id of the mirror row for botID,
// creating it on first reference. Safe under concurrent first-contact:
// the unique index on bot_id makes the losing insert fail, and we
// re-select the winner's row.
func GetOrCreateBot(db *gorm.DB, botID string, name string) (int64, error) {
	var bot models.Bot
	err := db.Where("bot_id = ?", botID).First(&bot).Error
	if err == nil {
		return bot.ID, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return 0, err
	}

	if name == "" {
		name = botID
	}
	bot = models.Bot{BotID: botID, Name: name}
	if createErr := db.Create(&bot).Error; createErr != nil {
		// lost the insert race: another request created the row first
		if err := db.Where("bot_id = ?", botID).First(&bot).Error; err == nil {
			return bot.ID, nil
		}
		return 0, createErr
	}
	return bot.ID, nil
}

// GetOrCreateUser returns the internal id of the user row for
// (botID, lineUserID), creating bot and user rows as needed.
func GetOrCreateUser(db *gorm.DB, lineUserID string, botID string) (int64, error) {
	dbBotID, err := GetOrCreateBot(db, botID, "")
	if err != nil {
		return 0, err
	}

	var user models.User
	err = db.Where("line_user_id = ? AND bot_id = ?", lineUserID, dbBotID).First(&user).Error
	if err == nil {
		return user.ID, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return 0, err
	}

	user = models.User{BotID: dbBotID, LineUserID: lineUserID}
	if createErr := db.Create(&user).Error; createErr != nil {
		if err := db.Where("line_user_id = ? AND bot_id = ?", lineUserID, dbBotID).First(&user).Error; err == nil {
			return user.ID, nil
		}
		return 0, createErr
	}
	return user.ID, nil
}

// UpsertLocation saves the user's current location: update-first,
// insert on no match, inside one transaction so the single-row-per-user
// invariant holds. Last writer wins.
func UpsertLocation(db *gorm.DB, lineUserID string, botID string, lat, lon float64, address, locationName string) (int64, error) {
	userID, err := GetOrCreateUser(db, lineUserID, botID)
	if err != nil {
		return 0, err
	}

	tx := db.Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}

	res := tx.Model(&models.UserLocation{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"latitude":      lat,
		"longitude":     lon,
		"address":       address,
		"location_name": locationName,
	})
	if res.Error != nil {
		tx.Rollback()
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		loc := models.UserLocation{
			UserID:       userID,
			Latitude:     lat,
			Longitude:    lon,
			Address:      address,
			LocationName: locationName,
		}
		if err := tx.Create(&loc).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	var loc models.UserLocation
	if err := tx.Where("user_id = ?", userID).First(&loc).Error; err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return 0, err
	}
	return loc.ID, nil
}

// GetLocation returns the user's saved location or nil when the user
// (or the bot) is unknown or never shared one.
func GetLocation(db *gorm.DB, lineUserID string, botID string) (*models.UserLocation, error) {
	var loc models.UserLocation
	err := db.Table("user_locations").
		Select("user_locations.*").
		Joins("JOIN users ON users.id = user_locations.user_id").
		Joins("JOIN bots ON bots.id = users.bot_id").
		Where("users.line_user_id = ? AND bots.bot_id = ?", lineUserID, botID).
		Scan(&loc).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// GetLocationForSearch projects the saved location into the lat/lng
// shape expected by the places search, or nil when absent.
func GetLocationForSearch(db *gorm.DB, lineUserID string, botID string) (*Coordinates, error) {
	loc, err := GetLocation(db, lineUserID, botID)
	if err != nil || loc == nil {
		return nil, err
	}
	return &Coordinates{Lat: loc.Latitude, Lng: loc.Longitude}, nil
}

// ListSubscribers returns every user of a bot, most recently created
// first, with location fields nil for users who never shared one.
// An unknown bot yields an empty list, not an error.
func ListSubscribers(db *gorm.DB, botID string) ([]Subscriber, error) {
	var bot models.Bot
	if err := db.Where("bot_id = ?", botID).First(&bot).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	var subs []Subscriber
	err := db.Table("users").
		Select("users.line_user_id, user_locations.latitude, user_locations.longitude, user_locations.address, user_locations.location_name").
		Joins("LEFT JOIN user_locations ON user_locations.user_id = users.id").
		Where("users.bot_id = ?", bot.ID).
		Order("users.created_at DESC, users.id DESC").
		Scan(&subs).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}
	return subs, nil
}

// SetPreference upserts a (user, key) preference value.
func SetPreference(db *gorm.DB, lineUserID string, botID string, key, value string) error {
	userID, err := GetOrCreateUser(db, lineUserID, botID)
	if err != nil {
		return err
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	res := tx.Model(&models.UserPreference{}).
		Where("user_id = ? AND preference_key = ?", userID, key).
		Update("preference_value", value)
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		pref := models.UserPreference{UserID: userID, PreferenceKey: key, PreferenceValue: value}
		if err := tx.Create(&pref).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}
	return nil
}

// GetPreference returns the stored value or "" when user or key is unknown.
func GetPreference(db *gorm.DB, lineUserID string, botID string, key string) (string, error) {
	var pref models.UserPreference
	err := db.Table("user_preferences").
		Select("user_preferences.*").
		Joins("JOIN users ON users.id = user_preferences.user_id").
		Joins("JOIN bots ON bots.id = users.bot_id").
		Where("users.line_user_id = ? AND bots.bot_id = ? AND user_preferences.preference_key = ?", lineUserID, botID, key).
		Scan(&pref).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pref.PreferenceValue, nil
}
