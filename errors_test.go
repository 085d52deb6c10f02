package verbench

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError(t *testing.T) {
	base := errors.New("store not writable")
	err := NewRuntimeError(base)

	assert.Equal(t, "runtime error: store not writable", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsRuntimeError(err))
	assert.True(t, IsRuntimeError(fmt.Errorf("batch exp: %w", err)))
	assert.False(t, IsRuntimeError(base))
	assert.False(t, IsRuntimeError(nil))
}
