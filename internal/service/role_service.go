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
	"go-pos-access/internal/permission"
	"go-pos-access/internal/repository"
	"go-pos-access/pkg/validator"

	"github.com/google/uuid"
)

type RoleService interface {
	List(ctx context.Context) ([]model.Role, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Role, error)
	Create(ctx context.Context, req *CreateRoleRequest, actorID string) (*model.Role, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateRoleRequest, actorID string) (*model.Role, error)
	Delete(ctx context.Context, id uuid.UUID, actorID string) error
	Matrix(ctx context.Context) (*PermissionMatrix, error)
}

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleRequest is a patch: nil fields are left untouched.
type UpdateRoleRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

// roleInput is the fully merged role as it would be stored.
type roleInput struct {
	Name        string `json:"name" validate:"required,max=50,role_name"`
	Description string `json:"description" validate:"required,max=255"`
}

// PermissionMatrix feeds the role x permission editing screen.
type PermissionMatrix struct {
	Categories []permission.Category `json:"categories"`
	Roles      []MatrixRow           `json:"roles"`
}

type MatrixRow struct {
	Role     model.RoleResponse       `json:"role"`
	Editable bool                     `json:"editable"` // false when the permission set is locked
	Granted  map[permission.Code]bool `json:"granted"`
}

type roleService struct {
	roles  repository.RoleRepository
	events event.Publisher
	now    func() time.Time
}

func NewRoleService(roles repository.RoleRepository, events event.Publisher) RoleService {
	if events == nil {
		events = event.Discard{}
	}
	return &roleService{roles: roles, events: events, now: time.Now}
}

// NormalizeRoleName trims and upper-cases a submitted role name.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *roleService) List(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	model.SortRoles(roles)
	return roles, nil
}

func (s *roleService) Get(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return s.findRole(ctx, id)
}

func (s *roleService) Create(ctx context.Context, req *CreateRoleRequest, actorID string) (*model.Role, error) {
	// 1. Validate name and description
	in := roleInput{Name: NormalizeRoleName(req.Name), Description: strings.TrimSpace(req.Description)}
	verr := validationFrom(validator.ValidateStruct(&in))

	// 2. Validate permission selection
	codes := parsePermissions(req.Permissions, verr)

	// 3. Name must be unique
	if !verr.Has("name") {
		if err := s.checkNameFree(ctx, in.Name, uuid.Nil, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	// 4. Persist
	role := &model.Role{Name: in.Name, Description: in.Description}
	role.Stamp(actorID)
	role.SetPermissions(codes)

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ValidationError{Fields: []FieldError{{Field: "name", Message: "already exists"}}}
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	// 5. Notify only after the store acknowledged
	s.publish(ctx, event.RoleCreated, role.ID)
	return role, nil
}

func (s *roleService) Update(ctx context.Context, id uuid.UUID, req *UpdateRoleRequest, actorID string) (*model.Role, error) {
	// 1. Find existing role
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}

	// 2. Protection rules, checked before anything else so nothing is half applied
	if req.Name != nil && role.IsSystem && NormalizeRoleName(*req.Name) != role.Name {
		return nil, &ProtectedRoleError{Role: role.Name, Action: "rename a system role"}
	}
	if req.Permissions != nil && role.Unrestricted {
		return nil, &ProtectedRoleError{Role: role.Name, Action: "edit the permissions of an unrestricted role"}
	}

	// 3. Merge the patch and validate the result
	merged := roleInput{Name: role.Name, Description: role.Description}
	if req.Name != nil {
		merged.Name = NormalizeRoleName(*req.Name)
	}
	if req.Description != nil {
		merged.Description = strings.TrimSpace(*req.Description)
	}
	verr := validationFrom(validator.ValidateStruct(&merged))

	var codes []permission.Code
	if req.Permissions != nil {
		codes = parsePermissions(*req.Permissions, verr)
	}
	if merged.Name != role.Name && !verr.Has("name") {
		if err := s.checkNameFree(ctx, merged.Name, role.ID, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	// 4. Apply and persist
	role.Name = merged.Name
	role.Description = merged.Description
	if req.Permissions != nil {
		role.SetPermissions(codes)
	}
	role.Stamp(actorID)

	if err := s.roles.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, &NotFoundError{Resource: "role", ID: id.String()}
		case errors.Is(err, repository.ErrDuplicate):
			return nil, &ValidationError{Fields: []FieldError{{Field: "name", Message: "already exists"}}}
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.publish(ctx, event.RoleUpdated, role.ID)
	return role, nil
}

// Delete removes a custom role. System roles are refused, and so is any role
// still held by a user: holders must be reassigned first.
func (s *roleService) Delete(ctx context.Context, id uuid.UUID, actorID string) error {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return &ProtectedRoleError{Role: role.Name, Action: "delete a system role"}
	}

	holders, err := s.roles.CountHolders(ctx, id)
	if err != nil {
		return fmt.Errorf("count role holders: %w", err)
	}
	if holders > 0 {
		return &RoleInUseError{Role: role.Name, Holders: holders}
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "role", ID: id.String()}
		}
		return fmt.Errorf("delete role: %w", err)
	}

	log.Printf("role %s deleted by %s", role.Name, actorID)
	s.publish(ctx, event.RoleDeleted, id)
	return nil
}

func (s *roleService) Matrix(ctx context.Context) (*PermissionMatrix, error) {
	roles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	all := permission.All()
	rows := make([]MatrixRow, len(roles))
	for i := range roles {
		grant := roles[i].Grant()
		granted := make(map[permission.Code]bool, len(all))
		for _, p := range all {
			granted[p.Code] = grant.Contains(p.Code)
		}
		rows[i] = MatrixRow{
			Role:     roles[i].ToResponse(),
			Editable: !roles[i].Unrestricted,
			Granted:  granted,
		}
	}

	return &PermissionMatrix{Categories: permission.Categories(), Roles: rows}, nil
}

func (s *roleService) findRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "role", ID: id.String()}
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return role, nil
}

func (s *roleService) checkNameFree(ctx context.Context, name string, self uuid.UUID, verr *ValidationError) error {
	existing, err := s.roles.FindByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find role by name: %w", err)
	}
	if existing.ID != self {
		verr.add("name", "already exists")
	}
	return nil
}

func (s *roleService) publish(ctx context.Context, typ event.Type, roleID uuid.UUID) {
	e := event.Event{Type: typ, RoleID: roleID.String(), At: s.now()}
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("Warning: failed to publish %s for role %s: %v", typ, roleID, err)
	}
}

// parsePermissions turns submitted codes into registry codes, recording a
// problem on the permissions field of verr.
func parsePermissions(raw []string, verr *ValidationError) []permission.Code {
	if len(raw) == 0 {
		verr.add("permissions", "select at least one permission")
		return nil
	}
	for _, r := range raw {
		if strings.TrimSpace(r) == permission.FullSystemAccess {
			verr.add("permissions", permission.FullSystemAccess+" is reserved for the built-in administrator role")
			return nil
		}
	}
	codes, err := permission.ParseAll(raw)
	if err != nil {
		verr.add("permissions", err.Error())
		return nil
	}
	return codes
}
