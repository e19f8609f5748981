package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("secreto1")
	require.NoError(t, err)
	assert.NotEqual(t, "secreto1", h)

	assert.True(t, CheckPassword(h, "secreto1"))
	assert.False(t, CheckPassword(h, "otro"))
	assert.False(t, CheckPassword("", "secreto1"))
}
