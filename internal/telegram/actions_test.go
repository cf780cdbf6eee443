package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionData(t *testing.T) {
	data := ActionData(ActionApprove, 7)
	assert.Equal(t, "approve_7", data)

	action, id, err := ParseActionData(data)
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, action)
	assert.Equal(t, int64(7), id)
}

func TestParseActionDataRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "approve", "approve_", "_7", "approve_x", "reject_-3", "reject_0"} {
		_, _, err := ParseActionData(data)
		assert.Error(t, err, data)
	}
}
