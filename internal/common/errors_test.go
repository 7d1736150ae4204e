package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserErrorWrapsCause(t *testing.T) {
	err := NewUserError("could not open the local database", ErrNotFound)

	assert.Equal(t, "could not open the local database: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserErrorWithoutCause(t *testing.T) {
	err := NewUserError("nothing to show", nil)
	assert.Equal(t, "nothing to show", err.Error())
}
