package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"portfolio/models"
)

func TestCredentials_SaveAndRead(t *testing.T) {
	creds := NewCredentials(setupTestDB())

	assert.Empty(t, creds.Token())
	_, ok := creds.User()
	assert.False(t, ok)

	assert.NoError(t, creds.Save("tok", testUser()))
	assert.Equal(t, "tok", creds.Token())

	user, ok := creds.User()
	assert.True(t, ok)
	assert.Equal(t, "admin", user.Username)
}

func TestCredentials_SaveOverwrites(t *testing.T) {
	creds := NewCredentials(setupTestDB())

	creds.Save("first", testUser())
	creds.Save("second", testUser())

	assert.Equal(t, "second", creds.Token())
}

func TestCredentials_SaveUserKeepsToken(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("tok", testUser())

	updated := testUser()
	updated.Name = "New Name"
	assert.NoError(t, creds.SaveUser(updated))

	assert.Equal(t, "tok", creds.Token())
	user, _ := creds.User()
	assert.Equal(t, "New Name", user.Name)
}

func TestCredentials_Clear(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("tok", testUser())

	assert.NoError(t, creds.Clear())
	assert.Empty(t, creds.Token())
	_, ok := creds.User()
	assert.False(t, ok)
}

func TestCredentials_CorruptUserRecord(t *testing.T) {
	db := setupTestDB()
	creds := NewCredentials(db)

	db.Save(&models.Credential{Key: "user", Value: "{not json"})

	_, ok := creds.User()
	assert.False(t, ok)
}
