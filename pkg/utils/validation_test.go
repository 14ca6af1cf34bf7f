package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	SessionID string `validate:"required,min=1,max=16"`
	Role      string `validate:"omitempty,oneof=user assistant system"`
	TurnLimit int    `validate:"omitempty,min=1"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(sampleRequest{SessionID: "s1", Role: "user", TurnLimit: 3}))
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sessionid is required")
	})

	t.Run("oneof violation names the choices", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{SessionID: "s1", Role: "narrator"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "role must be one of: user assistant system")
	})

	t.Run("multiple failures are joined", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{Role: "narrator"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "; ")
	})
}
