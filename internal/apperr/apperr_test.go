package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "validation with field",
			err:  Validation("create", "domain", "is required"),
			want: "create: domain: is required",
		},
		{
			name: "not found",
			err:  NotFound("export", "report", "abc"),
			want: "export: report not found: abc",
		},
		{
			name: "upstream with cause",
			err:  Upstream("next_exchange", errors.New("deadline exceeded")),
			want: "next_exchange: generation failed: deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Conflict("exchange", "busy"))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(nil, KindConflict))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("get_interview", cause)

	assert.ErrorIs(t, err, cause)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "sender: is required", Message(Validation("record_turn", "sender", "is required")))
	assert.Equal(t, "generation failed", Message(Upstream("op", errors.New("x"))))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
