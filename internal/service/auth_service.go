package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-access/internal/event"
	"go-pos-access/internal/model"
	"go-pos-access/internal/nav"
	"go-pos-access/internal/repository"
	"go-pos-access/pkg/jwt"

	"github.com/google/uuid"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*SessionResponse, error)
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
	Profile(user *model.User) *SessionResponse
}

type LoginResponse struct {
	Token string `json:"token"`
	SessionResponse
}

// SessionResponse describes what the signed in user holds and may see.
type SessionResponse struct {
	User        model.UserResponse         `json:"user"`
	Roles       []model.RoleResponse       `json:"roles"`
	Permissions model.EffectivePermissions `json:"permissions"`
	Navigation  []nav.Item                 `json:"navigation"`
}

type authService struct {
	userRepo    repository.UserRepository
	tokens      *jwt.Manager
	events      event.Publisher
	navigation  *nav.Resolver
	idleTimeout time.Duration
	now         func() time.Time
}

// NewAuthService wires login and session checks. An idleTimeout of zero
// disables the inactivity check.
func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, events event.Publisher, navigation *nav.Resolver, idleTimeout time.Duration) AuthService {
	if events == nil {
		events = event.Discard{}
	}
	if navigation == nil {
		navigation = nav.NewResolver(nav.AdminNav)
	}
	return &authService{
		userRepo:    userRepo,
		tokens:      tokens,
		events:      events,
		navigation:  navigation,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version invalidates older tokens
	version := uuid.New().String()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, version); err != nil {
		return nil, fmt.Errorf("update token version: %w", err)
	}
	if err := s.userRepo.UpdateLastSeen(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("update last seen: %w", err)
	}
	now := s.now()
	user.TokenVersion = version
	user.LastSeenAt = &now

	// 5. Generate JWT
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, user.RoleNames(), version)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{Token: token, SessionResponse: *s.Profile(user)}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user by email: %w", err)
	}

	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return &ValidationError{Fields: []FieldError{{Field: "new_password", Message: "must be at least 6 characters"}}}
	}

	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// Sign out every existing session.
	return s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

// Authenticate resolves a bearer token to the current user record. Roles
// come from the store, never from the token claims.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	if s.idleTimeout > 0 {
		if user.LastSeenAt == nil || s.now().Sub(*user.LastSeenAt) > s.idleTimeout {
			return nil, ErrSessionTimeout
		}
	}
	return user, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*SessionResponse, error) {
	user, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return s.Profile(user), nil
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update last seen: %w", err)
	}

	e := event.Event{Type: event.UserStatus, UserID: userID.String(), Status: "online", At: s.now()}
	if err := s.events.Publish(ctx, e); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

// Profile builds the session view for an already loaded user.
func (s *authService) Profile(user *model.User) *SessionResponse {
	roles := make([]model.RoleResponse, len(user.Roles))
	for i := range user.Roles {
		roles[i] = user.Roles[i].ToResponse()
	}
	return &SessionResponse{
		User:        user.ToResponse(),
		Roles:       roles,
		Permissions: user.EffectivePermissions(),
		Navigation:  s.navigation.Visible(model.RoleFingerprint(user.Roles), user.Grants()),
	}
}
