package model

import (
	"context"
	"sort"
	"sync"

	"SMProject/tools/errs"
)

// Store persists projects and their applications. Missing records return
// errs.ErrRecordNotFound.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	ProjectByID(ctx context.Context, id string) (*Project, error)
	// ListProjects pages through matching projects, newest first.
	ListProjects(ctx context.Context, f Filter, skip, limit int64) ([]*Project, int64, error)
	ReplaceProject(ctx context.Context, p *Project) error
	// DeleteProject removes the project and every application to it.
	DeleteProject(ctx context.Context, id string) error

	// CreateApplication fails with errs.ErrRecordIsExist when the musician
	// already applied to the project.
	CreateApplication(ctx context.Context, a *Application) error
	ApplicationByID(ctx context.Context, id string) (*Application, error)
	ApplicationFor(ctx context.Context, projectID, musicianID string) (*Application, error)
	ApplicationsByProject(ctx context.Context, projectID string) ([]*Application, error)
	ReplaceApplication(ctx context.Context, a *Application) error
}

type MemoryStore struct {
	mu           sync.RWMutex
	projects     map[string]*Project
	applications map[string]*Application
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:     make(map[string]*Project),
		applications: make(map[string]*Application),
	}
}

func (s *MemoryStore) CreateProject(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return errs.ErrRecordIsExist.WrapMsg("project already exists", "id", p.ID)
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *MemoryStore) ProjectByID(_ context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("project not found", "id", id)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, f Filter, skip, limit int64) ([]*Project, int64, error) {
	s.mu.RLock()
	var all []*Project
	for _, p := range s.projects {
		if f.Match(p) {
			cp := *p
			all = append(all, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	if skip >= total {
		return nil, total, nil
	}
	end := min(skip+limit, total)
	return all[skip:end], total, nil
}

func (s *MemoryStore) ReplaceProject(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return errs.ErrRecordNotFound.WrapMsg("project not found", "id", p.ID)
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return errs.ErrRecordNotFound.WrapMsg("project not found", "id", id)
	}
	delete(s.projects, id)
	for aid, a := range s.applications {
		if a.ProjectID == id {
			delete(s.applications, aid)
		}
	}
	return nil
}

func (s *MemoryStore) CreateApplication(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.applications {
		if cur.ProjectID == a.ProjectID && cur.MusicianID == a.MusicianID {
			return errs.ErrRecordIsExist.WrapMsg("you have already applied to this project")
		}
	}
	cp := *a
	s.applications[a.ID] = &cp
	return nil
}

func (s *MemoryStore) ApplicationByID(_ context.Context, id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("application not found", "id", id)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ApplicationFor(_ context.Context, projectID, musicianID string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.applications {
		if a.ProjectID == projectID && a.MusicianID == musicianID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("application not found")
}

func (s *MemoryStore) ApplicationsByProject(_ context.Context, projectID string) ([]*Application, error) {
	s.mu.RLock()
	var out []*Application
	for _, a := range s.applications {
		if a.ProjectID == projectID {
			cp := *a
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ReplaceApplication(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[a.ID]; !ok {
		return errs.ErrRecordNotFound.WrapMsg("application not found", "id", a.ID)
	}
	cp := *a
	s.applications[a.ID] = &cp
	return nil
}
