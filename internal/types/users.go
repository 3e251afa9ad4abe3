package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/apperr"
)

var validate = validator.New()

// ErrDuplicateEmail is returned by stores when an email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// User is an account that owns interviews.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest is the input to user creation.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=50"`
	Email string `json:"email" validate:"required,email"`
	Bio   string `json:"bio" validate:"max=500"`
}

// Validate checks the request with the struct tags.
func (r *CreateUserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validate.Struct(r)
}

// UpdateProfileRequest updates the mutable profile fields. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
	Bio   *string `json:"bio" validate:"omitempty,max=500"`
}

// Validate checks the request with the struct tags.
func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &email
	}
	return validate.Struct(r)
}

// ValidationError converts a validator error into an apperr validation error
// naming the first failing field.
func ValidationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation(op, snakeCase(fe.Field()), describeTag(fe))
	}
	return apperr.Validation(op, "", err.Error())
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseID parses an identifier, accepting any form uuid.Parse accepts.
func ParseID(op, field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation(op, field, "must be a valid id")
	}
	return id, nil
}
