package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentStatusTerminal(t *testing.T) {
	assert.False(t, AssignmentAssigned.Terminal())
	assert.False(t, AssignmentInProgress.Terminal())
	assert.True(t, AssignmentSubmitted.Terminal())
	assert.True(t, AssignmentExpired.Terminal())
}
