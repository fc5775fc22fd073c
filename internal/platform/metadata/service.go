package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// If the key doesn't exist, return an empty string, which is a valid default.
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue creates or updates a value for a given key.
func SetValue(db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- Specific Helpers for Type Conversion ---

// GetLastSnapshotDigest returns the digest of the last snapshot, 0 when none was taken.
func GetLastSnapshotDigest(db *gorm.DB) (uint64, error) {
	valueStr, err := GetValue(db, LastSnapshotDigestKey)
	if err != nil {
		return 0, err
	}
	if valueStr == "" {
		return 0, nil
	}
	digest, err := strconv.ParseUint(valueStr, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析元数据 '%s' 的值: %w", LastSnapshotDigestKey, err)
	}
	return digest, nil
}

// SetLastSnapshotDigest formats and stores the digest of the last snapshot.
func SetLastSnapshotDigest(db *gorm.DB, digest uint64) error {
	return SetValue(db, LastSnapshotDigestKey, strconv.FormatUint(digest, 16))
}

// GetTime parses a time value stored under key; the zero time means unset.
func GetTime(db *gorm.DB, key string) (time.Time, error) {
	valueStr, err := GetValue(db, key)
	if err != nil || valueStr == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析元数据 '%s' 的值: %w", key, err)
	}
	return t, nil
}

// SetTime stores t under key in RFC3339 form.
func SetTime(db *gorm.DB, key string, t time.Time) error {
	return SetValue(db, key, t.UTC().Format(time.RFC3339))
}
