package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/apperr"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	req := CreateUserRequest{Name: " Ada ", Email: " Ada@Example.COM "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Ada", req.Name)
	assert.Equal(t, "ada@example.com", req.Email)

	bad := CreateUserRequest{Name: "A", Email: "ada@example.com"}
	err := ValidationError("create_user", bad.Validate())
	require.Error(t, err)
	assert.Equal(t, "name: must be at least 2 characters", apperr.Message(err))

	bad = CreateUserRequest{Name: "Ada", Email: "nope"}
	err = ValidationError("create_user", bad.Validate())
	assert.Equal(t, "email: must be a valid email address", apperr.Message(err))
}

func TestUpdateProfileRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateProfileRequest{}).Validate())

	name := "  Grace  "
	req := UpdateProfileRequest{Name: &name}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Grace", *req.Name)

	short := "G"
	assert.Error(t, (&UpdateProfileRequest{Name: &short}).Validate())
}

func TestValidationError_Nil(t *testing.T) {
	assert.NoError(t, ValidationError("op", nil))
}

func TestUpdateProfileRequest_Email(t *testing.T) {
	email := " Grace@Example.com "
	req := UpdateProfileRequest{Email: &email}
	require.NoError(t, req.Validate())
	assert.Equal(t, "grace@example.com", *req.Email)

	bad := "grace"
	assert.Error(t, (&UpdateProfileRequest{Email: &bad}).Validate())
}
