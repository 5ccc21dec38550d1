package model

import (
	"time"

	"go-pos-access/internal/permission"
	"go-pos-access/internal/policy"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated user in the system. Roles are held by
// reference through user_roles, so edits to a role reach every holder.
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string     `gorm:"type:varchar(255)" json:"full_name"`
	PhoneNumber  string     `gorm:"type:varchar(20)" json:"phone_number"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	Roles        []Role     `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	TokenVersion string     `gorm:"type:varchar(255);default:''" json:"-"` // single session enforcement
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

// UserRole is a row of the user_roles join table.
type UserRole struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Grants returns one grant per assigned role.
func (u *User) Grants() []policy.Grant {
	grants := make([]policy.Grant, len(u.Roles))
	for i := range u.Roles {
		grants[i] = u.Roles[i].Grant()
	}
	return grants
}

// Can reports whether any of the user's roles allows any of codes.
func (u *User) Can(codes ...permission.Code) bool {
	return policy.AllowsAny(u.Grants(), codes...)
}

// RoleIDs returns the ids of the assigned roles.
func (u *User) RoleIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(u.Roles))
	for i, r := range u.Roles {
		ids[i] = r.ID
	}
	return ids
}

// RoleNames returns the names of the assigned roles.
func (u *User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}
	return names
}

// EffectivePermissions is the union of the user's roles in wire form.
type EffectivePermissions struct {
	Unrestricted bool     `json:"unrestricted"`
	Permissions  []string `json:"permissions"`
}

// EffectivePermissions expands the user's grants. An unrestricted user is
// reported with every registered code plus the unrestricted flag.
func (u *User) EffectivePermissions() EffectivePermissions {
	eff := policy.Effective(u.Grants())
	if eff.IsUnrestricted() {
		all := permission.All()
		codes := make([]string, len(all))
		for i, p := range all {
			codes[i] = string(p.Code)
		}
		return EffectivePermissions{Unrestricted: true, Permissions: codes}
	}
	explicit := eff.Codes()
	codes := make([]string, len(explicit))
	for i, c := range explicit {
		codes[i] = string(c)
	}
	return EffectivePermissions{Permissions: codes}
}

// UserRoleRef is the compact role reference embedded in UserResponse.
type UserRoleRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID          uuid.UUID     `json:"id"`
	Email       string        `json:"email"`
	FullName    string        `json:"full_name"`
	PhoneNumber string        `json:"phone_number"`
	IsActive    bool          `json:"is_active"`
	LastSeenAt  *time.Time    `json:"last_seen_at,omitempty"`
	Roles       []UserRoleRef `json:"roles"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	roles := make([]UserRoleRef, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = UserRoleRef{ID: r.ID, Name: r.Name}
	}
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		IsActive:    u.IsActive,
		LastSeenAt:  u.LastSeenAt,
		Roles:       roles,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
