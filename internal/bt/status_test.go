package bt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	for status, want := range map[Status]string{
		Idle:       "IDLE",
		Running:    "RUNNING",
		Success:    "SUCCESS",
		Failure:    "FAILURE",
		Skipped:    "SKIPPED",
		Status(99): "UNKNOWN",
	} {
		assert.Equal(t, want, status.String())
	}
}

func TestStatus_Predicates(t *testing.T) {
	t.Parallel()

	assert.True(t, Success.IsCompleted())
	assert.True(t, Failure.IsCompleted())
	assert.False(t, Running.IsCompleted())
	assert.False(t, Skipped.IsCompleted())

	assert.True(t, Running.IsActive())
	assert.False(t, Idle.IsActive())
	assert.False(t, Skipped.IsActive())

	assert.False(t, Idle.valid())
	assert.True(t, Skipped.valid())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Action", KindAction.String())
	assert.Equal(t, "Condition", KindCondition.String())
	assert.Equal(t, "Control", KindControl.String())
	assert.Equal(t, "Decorator", KindDecorator.String())
	assert.Equal(t, "Undefined", Kind(0).String())
}
