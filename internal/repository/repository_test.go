package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/quizzo-backend/internal/repository/common"
)

func TestSentinelErrors(t *testing.T) {
	for _, err := range []error{ErrUserNotFound, ErrOTPNotFound, ErrSessionNotFound} {
		assert.ErrorIs(t, err, common.ErrNotFound)
	}
	for _, err := range []error{ErrPhoneExists, ErrEmailExists} {
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
	}
	assert.NotErrorIs(t, ErrSessionNotActive, common.ErrNotFound)
	assert.NotErrorIs(t, ErrUserNotFound, ErrOTPNotFound)
}
