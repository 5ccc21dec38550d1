package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-pos-access/internal/model"

	"github.com/google/uuid"
)

// MemoryStore keeps roles and users in process memory. It backs
// DB_DRIVER=memory for local runs and the service and handler tests.
// Users store role ids only and resolve them on every read, mirroring the
// user_roles join of the SQL store.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[uuid.UUID]model.Role
	users map[uuid.UUID]memUser
	now   func() time.Time
}

type memUser struct {
	user    model.User
	roleIDs []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles: make(map[uuid.UUID]model.Role),
		users: make(map[uuid.UUID]memUser),
		now:   time.Now,
	}
}

// Roles returns the RoleRepository view of the store.
func (s *MemoryStore) Roles() RoleRepository { return (*memRoleRepo)(s) }

// Users returns the UserRepository view of the store.
func (s *MemoryStore) Users() UserRepository { return (*memUserRepo)(s) }

// tick returns a timestamp strictly after the previous one so version
// based fingerprints change on every write.
func (s *MemoryStore) tick(prev time.Time) time.Time {
	t := s.now()
	if !t.After(prev) {
		t = prev.Add(time.Nanosecond)
	}
	return t
}

func cloneRole(r model.Role) model.Role {
	perms := make([]model.RolePermission, len(r.Permissions))
	copy(perms, r.Permissions)
	r.Permissions = perms
	return r
}

type memRoleRepo MemoryStore

func (r *memRoleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]model.Role, 0, len(r.roles))
	for _, role := range r.roles {
		roles = append(roles, cloneRole(role))
	}
	model.SortRoles(roles)
	return roles, nil
}

func (r *memRoleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRole(role)
	return &out, nil
}

func (r *memRoleRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]model.Role, 0, len(ids))
	for _, id := range ids {
		if role, ok := r.roles[id]; ok {
			roles = append(roles, cloneRole(role))
		}
	}
	return roles, nil
}

func (r *memRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, role := range r.roles {
		if role.Name == name {
			out := cloneRole(role)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRoleRepo) Create(ctx context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return ErrDuplicate
		}
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	if _, ok := r.roles[role.ID]; ok {
		return ErrDuplicate
	}
	now := (*MemoryStore)(r).tick(time.Time{})
	role.CreatedAt, role.UpdatedAt = now, now
	for i := range role.Permissions {
		role.Permissions[i].RoleID = role.ID
	}
	r.roles[role.ID] = cloneRole(*role)
	return nil
}

func (r *memRoleRepo) Update(ctx context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.roles[role.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range r.roles {
		if id != role.ID && existing.Name == role.Name {
			return ErrDuplicate
		}
	}
	role.CreatedAt = current.CreatedAt
	role.UpdatedAt = (*MemoryStore)(r).tick(current.UpdatedAt)
	if role.Unrestricted {
		role.Permissions = nil
	}
	for i := range role.Permissions {
		role.Permissions[i].RoleID = role.ID
	}
	r.roles[role.ID] = cloneRole(*role)
	return nil
}

func (r *memRoleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return ErrNotFound
	}
	delete(r.roles, id)
	for uid, u := range r.users {
		u.roleIDs = removeID(u.roleIDs, id)
		r.users[uid] = u
	}
	return nil
}

func (r *memRoleRepo) CountHolders(ctx context.Context, id uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, u := range r.users {
		for _, rid := range u.roleIDs {
			if rid == id {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *memRoleRepo) SeedDefaults(ctx context.Context) error {
	for _, def := range model.DefaultRoles {
		if _, err := r.FindByName(ctx, def.Name); err == nil {
			continue
		}
		if err := r.Create(ctx, def.NewRole()); err != nil {
			return err
		}
	}
	return nil
}

type memUserRepo MemoryStore

// resolve builds the caller's copy of a stored user with its live roles.
// Caller must hold the lock.
func (r *memUserRepo) resolve(mu memUser) *model.User {
	u := mu.user
	u.Roles = make([]model.Role, 0, len(mu.roleIDs))
	for _, id := range mu.roleIDs {
		if role, ok := r.roles[id]; ok {
			u.Roles = append(u.Roles, cloneRole(role))
		}
	}
	model.SortRoles(u.Roles)
	return &u
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mu := range r.users {
		if strings.EqualFold(mu.user.Email, email) {
			return r.resolve(mu), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mu, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.resolve(mu), nil
}

func (r *memUserRepo) FindAll(ctx context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]model.User, 0, len(r.users))
	for _, mu := range r.users {
		users = append(users, *r.resolve(mu))
	}
	sortUsers(users)
	return users, nil
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mu := range r.users {
		if strings.EqualFold(mu.user.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := (*MemoryStore)(r).tick(time.Time{})
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = r.store(user)
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	for id, mu := range r.users {
		if id != user.ID && strings.EqualFold(mu.user.Email, user.Email) {
			return ErrDuplicate
		}
	}
	user.CreatedAt = current.user.CreatedAt
	user.UpdatedAt = (*MemoryStore)(r).tick(current.user.UpdatedAt)
	r.users[user.ID] = r.store(user)
	return nil
}

// store keeps only references to roles that exist. Caller must hold the lock.
func (r *memUserRepo) store(user *model.User) memUser {
	mu := memUser{user: *user}
	mu.user.Roles = nil
	for _, role := range user.Roles {
		if _, ok := r.roles[role.ID]; ok {
			mu.roleIDs = append(mu.roleIDs, role.ID)
		}
	}
	return mu
}

func (r *memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	return r.mutate(userID, func(u *model.User) { u.Password = hashedPassword })
}

func (r *memUserRepo) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	return r.mutate(userID, func(u *model.User) { u.TokenVersion = version })
}

func (r *memUserRepo) UpdateLastSeen(ctx context.Context, userID uuid.UUID) error {
	return r.mutate(userID, func(u *model.User) {
		now := r.now()
		u.LastSeenAt = &now
	})
}

func (r *memUserRepo) mutate(id uuid.UUID, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mu, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&mu.user)
	r.users[id] = mu
	return nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortUsers(users []model.User) {
	sort.SliceStable(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
}
