package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"agora/internal/apperr"
)

func TestKindOf(t *testing.T) {
	err := apperr.New(apperr.KindNotFound, "thing %s not found", "x")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "thing x not found", err.Error())

	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(errors.New("plain")))
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(nil))
}

func TestKindOf_Wrapped(t *testing.T) {
	cause := errors.New("disk on fire")
	tagged := apperr.Wrap(apperr.KindStorage, cause, "could not save")

	// The kind survives further wrapping and the cause stays reachable.
	outer := fmt.Errorf("handler: %w", tagged)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(outer))
	assert.True(t, errors.Is(outer, cause))
	assert.Contains(t, tagged.Error(), "disk on fire")
}

func TestIs(t *testing.T) {
	err := apperr.New(apperr.KindSelfProtection, "no")
	assert.True(t, apperr.Is(err, apperr.KindSelfProtection))
	assert.False(t, apperr.Is(err, apperr.KindForbidden))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", apperr.KindValidation.String())
	assert.Equal(t, "self_protection", apperr.KindSelfProtection.String())
	assert.Equal(t, "unknown", apperr.KindUnknown.String())
}
