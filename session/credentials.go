package session

import (
	"encoding/json"
	"errors"
	"log"

	"gorm.io/gorm"

	"portfolio/models"
)

// Storage keys for the two persisted credential entries. They are always
// written and cleared together.
const (
	keyAuthToken = "auth_token"
	keyUser      = "user"
)

// Credentials is the durable client-side credential storage. It is the only
// place the token and cached user record live between restarts, and only the
// session store mutates it.
type Credentials struct {
	db *gorm.DB
}

func NewCredentials(db *gorm.DB) *Credentials {
	return &Credentials{db: db}
}

// Token returns the stored auth token, or "" when absent. Implements
// backend.TokenSource.
func (c *Credentials) Token() string {
	var cred models.Credential
	err := c.db.Where("key = ?", keyAuthToken).First(&cred).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("session: reading stored token: %v", err)
		}
		return ""
	}
	return cred.Value
}

// User returns the cached user record, if one is stored. The record is
// untrusted until the next successful verification.
func (c *Credentials) User() (*models.User, bool) {
	var cred models.Credential
	if err := c.db.Where("key = ?", keyUser).First(&cred).Error; err != nil {
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(cred.Value), &user); err != nil {
		log.Printf("session: corrupt stored user record: %v", err)
		return nil, false
	}
	return &user, true
}

// Save persists token and user record together.
func (c *Credentials) Save(token string, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.db.Transaction(func(tx *gorm.DB) error {
		for _, cred := range []models.Credential{
			{Key: keyAuthToken, Value: token},
			{Key: keyUser, Value: string(raw)},
		} {
			if err := tx.Save(&cred).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveUser refreshes the cached user record after a successful verification,
// leaving the token untouched.
func (c *Credentials) SaveUser(user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.db.Save(&models.Credential{Key: keyUser, Value: string(raw)}).Error
}

// Clear removes both entries.
func (c *Credentials) Clear() error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		return tx.Where("key IN ?", []string{keyAuthToken, keyUser}).
			Delete(&models.Credential{}).Error
	})
}
