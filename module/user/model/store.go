package model

import (
	"context"
	"sort"
	"strings"
	"sync"

	"SMProject/tools/errs"
)

// Store persists users and their profiles. Lookups of a missing record
// return errs.ErrRecordNotFound.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]*User, error)
	// ListUsers pages through users of one type, oldest first.
	ListUsers(ctx context.Context, userType string, skip, limit int64) ([]*User, int64, error)

	MusicianProfile(ctx context.Context, userID string) (*MusicianProfile, error)
	MusicianProfiles(ctx context.Context, userIDs []string) (map[string]*MusicianProfile, error)
	SaveMusicianProfile(ctx context.Context, p *MusicianProfile) error
	ClientProfile(ctx context.Context, userID string) (*ClientProfile, error)
	SaveClientProfile(ctx context.Context, p *ClientProfile) error
}

// MemoryStore keeps everything in process. It backs the service when Mongo
// is disabled and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*User
	musicians map[string]*MusicianProfile
	clients   map[string]*ClientProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*User),
		musicians: make(map[string]*MusicianProfile),
		clients:   make(map[string]*ClientProfile),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.users {
		if strings.EqualFold(cur.Email, u.Email) {
			return errs.ErrRecordIsExist.WrapMsg("user already exists", "email", u.Email)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "id", id)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "email", email)
}

func (s *MemoryStore) UsersByIDs(_ context.Context, ids []string) (map[string]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *MemoryStore) ListUsers(_ context.Context, userType string, skip, limit int64) ([]*User, int64, error) {
	s.mu.RLock()
	var all []*User
	for _, u := range s.users {
		if u.UserType == userType {
			cp := *u
			all = append(all, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := int64(len(all))
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (s *MemoryStore) MusicianProfile(_ context.Context, userID string) (*MusicianProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.musicians[userID]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("musician profile not found", "userId", userID)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) MusicianProfiles(_ context.Context, userIDs []string) (map[string]*MusicianProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*MusicianProfile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.musicians[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveMusicianProfile(_ context.Context, p *MusicianProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.musicians[p.UserID] = &cp
	return nil
}

func (s *MemoryStore) ClientProfile(_ context.Context, userID string) (*ClientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.clients[userID]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("client profile not found", "userId", userID)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) SaveClientProfile(_ context.Context, p *ClientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.clients[p.UserID] = &cp
	return nil
}
