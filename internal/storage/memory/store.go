package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/storage"
)

// Store is an in-memory implementation of the storage interface for
// testing. Groups are deep-copied on every boundary so readers never see a
// caller's in-flight mutation.
type Store struct {
	mu sync.RWMutex

	users    map[string]*domain.User    // key: id
	sessions map[string]*domain.Session // key: id
	groups   map[string]*domain.Group   // key: id
	freets   map[string]*domain.Freet   // key: id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
		groups:   make(map[string]*domain.Group),
		freets:   make(map[string]*domain.Freet),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{store: s}, nil
}

// ============================================
// Users
// ============================================

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrInvalidInput
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrDuplicateName
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) TouchUserActivity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastActiveAt = time.Now().UTC()
	return nil
}

// ============================================
// Sessions
// ============================================

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// ============================================
// Groups
// ============================================

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.ID]; ok {
		return domain.ErrInvalidInput
	}
	key := domain.NameKey(group.Name)
	for _, g := range s.groups {
		if domain.NameKey(g.Name) == key {
			return domain.ErrDuplicateName
		}
	}
	s.groups[group.ID] = group.Clone()
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *Store) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := domain.NameKey(name)
	for _, g := range s.groups {
		if domain.NameKey(g.Name) == key {
			return g.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make([]*domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g.Clone())
	}
	sortGroupsByName(groups)
	return groups, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var groups []*domain.Group
	for _, g := range s.groups {
		if g.IsMember(userID) {
			groups = append(groups, g.Clone())
		}
	}
	sortGroupsByName(groups)
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.ID]; !ok {
		return domain.ErrNotFound
	}
	key := domain.NameKey(group.Name)
	for id, g := range s.groups {
		if id != group.ID && domain.NameKey(g.Name) == key {
			return domain.ErrDuplicateName
		}
	}
	cp := group.Clone()
	cp.UpdatedAt = time.Now().UTC()
	s.groups[group.ID] = cp
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.groups, id)
	return nil
}

func sortGroupsByName(groups []*domain.Group) {
	sort.Slice(groups, func(i, j int) bool {
		return domain.NameKey(groups[i].Name) < domain.NameKey(groups[j].Name)
	})
}

// ============================================
// Freets
// ============================================

func (s *Store) CreateFreet(ctx context.Context, freet *domain.Freet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.freets[freet.ID]; ok {
		return domain.ErrInvalidInput
	}
	cp := *freet
	s.freets[freet.ID] = &cp
	return nil
}

func (s *Store) GetFreet(ctx context.Context, id string) (*domain.Freet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.freets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Store) FreetExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.freets[id]
	return ok, nil
}

func (s *Store) ListFreets(ctx context.Context, ids []string) ([]*domain.Freet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var freets []*domain.Freet
	for _, id := range ids {
		if f, ok := s.freets[id]; ok {
			cp := *f
			freets = append(freets, &cp)
		}
	}
	// Newest first, matching the presentation order of group feeds.
	sort.Slice(freets, func(i, j int) bool {
		return freets[i].CreatedAt.After(freets[j].CreatedAt)
	})
	return freets, nil
}

// Tx is a no-op transaction for the in-memory store.
type Tx struct {
	store *Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) Close() error    { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

// Forward all Tx methods to the underlying store
func (t *Tx) CreateUser(ctx context.Context, user *domain.User) error {
	return t.store.CreateUser(ctx, user)
}
func (t *Tx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return t.store.GetUser(ctx, id)
}
func (t *Tx) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return t.store.GetUserByUsername(ctx, username)
}
func (t *Tx) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return t.store.ListUsers(ctx)
}
func (t *Tx) UserExists(ctx context.Context, id string) (bool, error) {
	return t.store.UserExists(ctx, id)
}
func (t *Tx) TouchUserActivity(ctx context.Context, id string) error {
	return t.store.TouchUserActivity(ctx, id)
}
func (t *Tx) CreateSession(ctx context.Context, session *domain.Session) error {
	return t.store.CreateSession(ctx, session)
}
func (t *Tx) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return t.store.GetSessionByTokenHash(ctx, tokenHash)
}
func (t *Tx) DeleteSession(ctx context.Context, id string) error {
	return t.store.DeleteSession(ctx, id)
}
func (t *Tx) CreateGroup(ctx context.Context, group *domain.Group) error {
	return t.store.CreateGroup(ctx, group)
}
func (t *Tx) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	return t.store.GetGroup(ctx, id)
}
func (t *Tx) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	return t.store.GetGroupByName(ctx, name)
}
func (t *Tx) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	return t.store.ListGroups(ctx)
}
func (t *Tx) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	return t.store.ListGroupsForUser(ctx, userID)
}
func (t *Tx) UpdateGroup(ctx context.Context, group *domain.Group) error {
	return t.store.UpdateGroup(ctx, group)
}
func (t *Tx) DeleteGroup(ctx context.Context, id string) error {
	return t.store.DeleteGroup(ctx, id)
}
func (t *Tx) CreateFreet(ctx context.Context, freet *domain.Freet) error {
	return t.store.CreateFreet(ctx, freet)
}
func (t *Tx) GetFreet(ctx context.Context, id string) (*domain.Freet, error) {
	return t.store.GetFreet(ctx, id)
}
func (t *Tx) FreetExists(ctx context.Context, id string) (bool, error) {
	return t.store.FreetExists(ctx, id)
}
func (t *Tx) ListFreets(ctx context.Context, ids []string) ([]*domain.Freet, error) {
	return t.store.ListFreets(ctx, ids)
}
