package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go-pos-access/internal/event"
	"go-pos-access/internal/model"
	"go-pos-access/internal/policy"
	"go-pos-access/internal/repository"
	"go-pos-access/pkg/validator"

	"github.com/google/uuid"
)

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest, actor *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, actor *model.User) (*model.User, error)
	AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []string, actor *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID, deleterID string) error
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email,max=255"`
	Password    string   `json:"password" validate:"required,min=6"`
	FullName    string   `json:"full_name" validate:"required,max=255"`
	PhoneNumber string   `json:"phone_number" validate:"max=20"`
	RoleIDs     []string `json:"role_ids" validate:"min=1,dive,uuid_required"`
}

type UpdateUserRequest struct {
	Email       string   `json:"email" validate:"required,email,max=255"`
	Password    *string  `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
	FullName    string   `json:"full_name" validate:"required,max=255"`
	PhoneNumber string   `json:"phone_number" validate:"max=20"`
	RoleIDs     []string `json:"role_ids" validate:"min=1,dive,uuid_required"`
	IsActive    *bool    `json:"is_active"`
}

type assignRolesInput struct {
	RoleIDs []string `json:"role_ids" validate:"min=1,dive,uuid_required"`
}

type userService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	events   event.Publisher
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, events event.Publisher) UserService {
	if events == nil {
		events = event.Discard{}
	}
	return &userService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		events:   events,
	}
}

// CreateUser adds an active user. actor may only hand out roles it could
// exercise itself.
func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, actor *model.User) (*model.User, error) {
	// 1. Validate request
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	verr := validationFrom(validator.ValidateStruct(req))

	// 2. Check if email already exists
	if !verr.Has("email") {
		if err := s.checkEmailFree(ctx, req.Email, uuid.Nil, verr); err != nil {
			return nil, err
		}
	}

	// 3. Resolve roles
	roles, err := s.resolveRoles(ctx, req.RoleIDs, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if err := checkGrantable(actor, nil, roles); err != nil {
		return nil, err
	}

	// 4. Create user
	user := &model.User{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
		Roles:       roles,
	}
	user.Stamp(actorName(actor))

	// 5. Set password
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	// 6. Save
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ValidationError{Fields: []FieldError{{Field: "email", Message: "already exists"}}}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, event.UserRolesChanged, user.ID)
	return s.reload(ctx, user.ID)
}

func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, actor *model.User) (*model.User, error) {
	// 1. Validate request
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	verr := validationFrom(validator.ValidateStruct(req))

	// 2. Find existing user
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3. Check if email is being changed and already exists
	if req.Email != user.Email && !verr.Has("email") {
		if err := s.checkEmailFree(ctx, req.Email, user.ID, verr); err != nil {
			return nil, err
		}
	}

	// 4. Resolve roles
	roles, err := s.resolveRoles(ctx, req.RoleIDs, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if err := checkGrantable(actor, user, roles); err != nil {
		return nil, err
	}

	// 5. Update user fields
	user.Email = req.Email
	user.FullName = req.FullName
	user.PhoneNumber = req.PhoneNumber
	user.Roles = roles
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.Stamp(actorName(actor))

	// 6. Update password if provided
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, errors.New("failed to hash password")
		}
	}

	// 7. Save
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, event.UserRolesChanged, user.ID)
	return s.reload(ctx, userID)
}

// AssignRoles replaces the user's role assignment. actor must already hold
// everything the user holds now and everything the new roles grant.
func (s *userService) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []string, actor *model.User) (*model.User, error) {
	verr := validationFrom(validator.ValidateStruct(&assignRolesInput{RoleIDs: roleIDs}))

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := s.resolveRoles(ctx, roleIDs, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if err := checkGrantable(actor, user, roles); err != nil {
		return nil, err
	}

	user.Roles = roles
	user.Stamp(actorName(actor))
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, event.UserRolesChanged, user.ID)
	return s.reload(ctx, userID)
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID, deleterID string) error {
	if userID.String() == deleterID {
		return &ValidationError{Fields: []FieldError{{Field: "id", Message: "you cannot delete your own account"}}}
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "user", ID: userID.String()}
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.publish(ctx, event.UserDeleted, userID)
	return nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.findUser(ctx, id)
}

func (s *userService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "user", ID: id.String()}
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *userService) reload(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.findUser(ctx, id)
}

func (s *userService) save(ctx context.Context, user *model.User) error {
	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return &NotFoundError{Resource: "user", ID: user.ID.String()}
		case errors.Is(err, repository.ErrDuplicate):
			return &ValidationError{Fields: []FieldError{{Field: "email", Message: "already exists"}}}
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *userService) checkEmailFree(ctx context.Context, email string, self uuid.UUID, verr *ValidationError) error {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find user by email: %w", err)
	}
	if existing.ID != self {
		verr.add("email", "already exists")
	}
	return nil
}

// resolveRoles loads the referenced roles. Ids that do not parse are left to
// struct validation; ids that parse but do not exist are reported here.
func (s *userService) resolveRoles(ctx context.Context, raw []string, verr *ValidationError) ([]model.Role, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	roles, err := s.roleRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	if len(roles) != len(ids) {
		verr.add("role_ids", "one or more roles no longer exist")
		return nil, nil
	}
	model.SortRoles(roles)
	return roles, nil
}

// checkGrantable refuses when actor's access does not cover the target
// user's current access or any of the roles being assigned. A nil actor
// holds nothing.
func checkGrantable(actor, target *model.User, roles []model.Role) error {
	var grants []policy.Grant
	if actor != nil {
		grants = actor.Grants()
	}
	own := policy.Effective(grants)
	if target != nil && !own.Covers(policy.Effective(target.Grants())) {
		return &UserAccessError{UserID: target.ID.String()}
	}
	for i := range roles {
		if !own.Covers(roles[i].Grant()) {
			return &RoleGrantError{Role: roles[i].Name}
		}
	}
	return nil
}

func actorName(actor *model.User) string {
	if actor == nil {
		return "system"
	}
	return actor.ID.String()
}

func (s *userService) publish(ctx context.Context, typ event.Type, userID uuid.UUID) {
	e := event.Event{Type: typ, UserID: userID.String(), At: time.Now()}
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("Warning: failed to publish %s for user %s: %v", typ, userID, err)
	}
}
