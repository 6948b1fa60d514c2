package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore backs the in-memory repositories used by the service tests.
type fakeStore struct {
	mu          sync.Mutex
	roles       map[uuid.UUID]*model.Role
	perms       map[uuid.UUID][]model.Permission
	users       map[uuid.UUID]*model.User
	assignments map[uuid.UUID][]uuid.UUID
	prefs       map[uuid.UUID]*model.UserPreference
	audits      []model.AuditLog

	roleLookupErr error
	writes        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:       map[uuid.UUID]*model.Role{},
		perms:       map[uuid.UUID][]model.Permission{},
		users:       map[uuid.UUID]*model.User{},
		assignments: map[uuid.UUID][]uuid.UUID{},
		prefs:       map[uuid.UUID]*model.UserPreference{},
	}
}

func (s *fakeStore) roleCopy(r *model.Role) *model.Role {
	out := *r
	out.AllowedPages = slices.Clone(r.AllowedPages)
	out.Permissions = nil
	for i, p := range s.perms[r.ID] {
		out.Permissions = append(out.Permissions, model.RolePermission{RoleID: r.ID, Permission: p, Position: i})
	}
	return &out
}

func (s *fakeStore) addRole(name string, active bool, perms []model.Permission, pages []string, landing string) *model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &model.Role{ID: uuid.New(), Name: name, IsActive: active, AllowedPages: pages, DefaultLandingPage: landing}
	s.roles[r.ID] = r
	s.perms[r.ID] = perms
	return r
}

func (s *fakeStore) addUser(email, password string, active bool, roles ...*model.Role) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &model.User{ID: uuid.New(), Email: email, DisplayName: email, Password: string(hashed), IsActive: active}
	s.users[u.ID] = u
	for _, r := range roles {
		s.assignments[u.ID] = append(s.assignments[u.ID], r.ID)
	}
	return u
}

func (s *fakeStore) roleByName(name string) *model.Role {
	for _, r := range s.roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (s *fakeStore) roleNames(userID uuid.UUID) []string {
	var names []string
	for _, id := range s.assignments[userID] {
		if r, ok := s.roles[id]; ok {
			names = append(names, r.Name)
		}
	}
	return names
}

// --- roles ---

type fakeRoleRepo struct{ *fakeStore }

var _ repository.RoleRepository = fakeRoleRepo{}

func (f fakeRoleRepo) Create(_ context.Context, role *model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	stored := *role
	stored.Permissions = nil
	f.roles[role.ID] = &stored
	return nil
}

func (f fakeRoleRepo) Update(_ context.Context, role *model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	stored := *role
	stored.Permissions = nil
	f.roles[role.ID] = &stored
	return nil
}

func (f fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	delete(f.roles, id)
	delete(f.perms, id)
	return nil
}

func (f fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, apperr.ErrNotFound)
	}
	return f.roleCopy(r), nil
}

func (f fakeRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleLookupErr != nil {
		return nil, f.roleLookupErr
	}
	r := f.roleByName(name)
	if r == nil {
		return nil, fmt.Errorf("role %q: %w", name, apperr.ErrNotFound)
	}
	return f.roleCopy(r), nil
}

func (f fakeRoleRepo) LockByName(ctx context.Context, name string) (*model.Role, error) {
	return f.FindByName(ctx, name)
}

func (f fakeRoleRepo) ListAll(_ context.Context) ([]model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, *f.roleCopy(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeRoleRepo) ListActive(ctx context.Context) ([]model.Role, error) {
	all, _ := f.ListAll(ctx)
	out := all[:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeRoleRepo) ListPermissionsForRole(_ context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.perms[roleID]), nil
}

func (f fakeRoleRepo) ReplacePermissions(_ context.Context, roleID uuid.UUID, perms []model.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.perms[roleID] = slices.Clone(perms)
	return nil
}

func (f fakeRoleRepo) CountUsersForRole(_ context.Context, roleID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, ids := range f.assignments {
		if slices.Contains(ids, roleID) {
			n++
		}
	}
	return n, nil
}

// --- users ---

type fakeUserRepo struct{ *fakeStore }

var _ repository.UserRepository = fakeUserRepo{}

func (f fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (f fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, apperr.ErrNotFound)
}

func (f fakeUserRepo) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (f fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	delete(f.users, id)
	delete(f.assignments, id)
	return nil
}

func (f fakeUserRepo) ListRoleNames(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roleNames(userID), nil
}

func (f fakeUserRepo) ReplaceRoles(_ context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.assignments[userID] = slices.Clone(roleIDs)
	return nil
}

func (f fakeUserRepo) CountActiveUsersWithRole(_ context.Context, roleID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for userID, ids := range f.assignments {
		if u, ok := f.users[userID]; ok && u.IsActive && slices.Contains(ids, roleID) {
			n++
		}
	}
	return n, nil
}

// --- preferences ---

type fakePrefRepo struct{ *fakeStore }

var _ repository.PreferenceRepository = fakePrefRepo{}

func (f fakePrefRepo) Find(_ context.Context, userID uuid.UUID) (*model.UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (f fakePrefRepo) Upsert(_ context.Context, pref *model.UserPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *pref
	f.prefs[pref.UserID] = &stored
	return nil
}

// --- audit ---

type fakeAuditRepo struct{ *fakeStore }

var _ repository.AuditRepository = fakeAuditRepo{}

func (f fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, *entry)
	return nil
}

func (f fakeAuditRepo) List(_ context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLog
	for _, l := range f.audits {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

// fakeTx runs fn directly. Tests that check "nothing written" rely on the
// services validating before they write.
type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}
