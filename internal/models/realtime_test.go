package models_test

import (
	"errors"
	"testing"

	"pairgo/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPreferencesWildcards(t *testing.T) {
	assert.True(t, models.Preferences{}.AnyGender())
	assert.True(t, models.Preferences{Gender: models.PrefAny}.AnyGender())
	assert.False(t, models.Preferences{Gender: "female"}.AnyGender())

	assert.True(t, models.Preferences{}.AnyInterests())
	assert.True(t, models.Preferences{Interests: []string{models.PrefAny}}.AnyInterests())
	assert.False(t, models.Preferences{Interests: []string{"music"}}.AnyInterests())
	assert.False(t, models.Preferences{Interests: []string{models.PrefAny, "music"}}.AnyInterests())
}

func TestAckHelpers(t *testing.T) {
	ack := models.Ack(models.EventFindMatch)
	assert.Equal(t, models.EventAck, ack.Type)
	assert.Equal(t, models.EventFindMatch, ack.Op)
	assert.True(t, ack.OK)
	assert.Empty(t, ack.Error)

	nack := models.Nack(models.EventRegister, errors.New("user is banned"))
	assert.Equal(t, models.EventAck, nack.Type)
	assert.Equal(t, models.EventRegister, nack.Op)
	assert.False(t, nack.OK)
	assert.Equal(t, "user is banned", nack.Error)
}
