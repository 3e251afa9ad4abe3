// Package account manages users: creation, profile reads and updates, and
// account deletion with everything the user owns.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/types"
)

// Store is the persistence accounts need.
type Store interface {
	CreateUser(ctx context.Context, req types.CreateUserRequest) (*types.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req types.UpdateProfileRequest) (*types.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (bool, error)
	ListInterviewsByUser(ctx context.Context, userID uuid.UUID) ([]types.Interview, error)
}

// Service provides account operations.
type Service struct {
	store Store
	log   logging.Logger
}

// NewService creates a new account service.
func NewService(store Store, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{store: store, log: log.With("component", "account")}
}

// Profile is a user with their interviews.
type Profile struct {
	User           *types.User       `json:"user"`
	InterviewCount int               `json:"interview_count"`
	Interviews     []types.Interview `json:"interviews"`
}

// Create registers a user.
func (s *Service) Create(ctx context.Context, req types.CreateUserRequest) (*types.User, error) {
	const op = "create_user"

	if err := req.Validate(); err != nil {
		return nil, types.ValidationError(op, err)
	}
	user, err := s.store.CreateUser(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateEmail) {
			return nil, apperr.Conflict(op, "email already registered")
		}
		return nil, apperr.Internal(op, err)
	}
	s.log.Info(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// Profile returns a user with their interviews, newest first.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	const op = "get_profile"

	uid, err := types.ParseID(op, "user_id", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil {
		return nil, apperr.NotFound(op, "user", uid.String())
	}
	interviews, err := s.store.ListInterviewsByUser(ctx, uid)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if interviews == nil {
		interviews = []types.Interview{}
	}
	return &Profile{User: user, InterviewCount: len(interviews), Interviews: interviews}, nil
}

// Update changes the given profile fields.
func (s *Service) Update(ctx context.Context, userID string, req types.UpdateProfileRequest) (*types.User, error) {
	const op = "update_profile"

	uid, err := types.ParseID(op, "user_id", userID)
	if err != nil {
		return nil, err
	}
	if req.Name == nil && req.Email == nil && req.Bio == nil {
		return nil, apperr.Validation(op, "", "no fields to update")
	}
	if err := req.Validate(); err != nil {
		return nil, types.ValidationError(op, err)
	}
	if req.Name != nil && *req.Name == "" {
		return nil, apperr.Validation(op, "name", "is required")
	}
	if req.Email != nil && *req.Email == "" {
		return nil, apperr.Validation(op, "email", "is required")
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		req.Bio = &bio
	}

	user, err := s.store.UpdateUser(ctx, uid, req)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateEmail) {
			return nil, apperr.Conflict(op, "email already registered")
		}
		return nil, apperr.Internal(op, err)
	}
	if user == nil {
		return nil, apperr.NotFound(op, "user", uid.String())
	}
	return user, nil
}

// Delete removes the user and everything they own.
func (s *Service) Delete(ctx context.Context, userID string) error {
	const op = "delete_account"

	uid, err := types.ParseID(op, "user_id", userID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteUser(ctx, uid)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "user", uid.String())
	}
	s.log.Info(ctx, "account deleted", "user_id", uid)
	return nil
}
