package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"SMProject/logger"
	"SMProject/module/project/model"
	usermodel "SMProject/module/user/model"
	"SMProject/service/notify"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
	"SMProject/tools/ids"

	"go.uber.org/zap"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Caller is the requester; a zero Caller is anonymous.
type Caller struct {
	ID   string
	Role string
}

func (c Caller) Anonymous() bool { return c.ID == "" }

// Directory resolves user summaries. The user service implements it.
type Directory interface {
	Owners(ctx context.Context, userIDs []string) (map[string]usermodel.Summary, error)
}

type CreateReq struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Requirements []model.Requirement `json:"requirements"`
	Budget       *model.Budget       `json:"budget"`
	Timeline     *model.Timeline     `json:"timeline"`
	Visibility   string              `json:"visibility"`
}

type ListReq struct {
	Status     string
	MyProjects bool
	Page       int64
	Limit      int64
}

type ApplyReq struct {
	Proposal     string       `json:"proposal"`
	Rate         *float64     `json:"rate"`
	Availability []model.Slot `json:"availability"`
}

// ProjectView is a project with its owner resolved.
type ProjectView struct {
	*model.Project
	Client *usermodel.Summary `json:"client,omitempty"`
}

type ApplicationView struct {
	*model.Application
	Musician *usermodel.Summary `json:"musician,omitempty"`
}

// ProjectDetail adds what the caller may see about applications.
type ProjectDetail struct {
	ProjectView
	Applications    []ApplicationView  `json:"applications,omitempty"`
	UserApplication *model.Application `json:"userApplication,omitempty"`
}

type ProjectPage struct {
	Projects   []ProjectView `json:"projects"`
	Page       int64         `json:"page"`
	Limit      int64         `json:"limit"`
	TotalPages int64         `json:"totalPages"`
	TotalCount int64         `json:"totalCount"`
}

type Service struct {
	store    model.Store
	users    Directory
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(store model.Store, users Directory, notifier notify.Notifier) *Service {
	return &Service{store: store, users: users, notifier: notifier, now: time.Now}
}

// Create opens a new project owned by the calling client.
func (s *Service) Create(ctx context.Context, c Caller, req CreateReq) (*ProjectView, error) {
	if c.Role != usermodel.TypeClient {
		return nil, errs.ErrNoPermission.WrapMsg("only clients can create projects")
	}
	now := s.now()
	p := &model.Project{
		ID:           ids.GenerateString(),
		ClientID:     c.ID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Requirements: req.Requirements,
		Visibility:   req.Visibility,
		Status:       model.StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Budget != nil {
		p.Budget = *req.Budget
	}
	if req.Timeline != nil {
		p.Timeline = *req.Timeline
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	logger.Info("project created", zap.String("project", p.ID), zap.String("client", c.ID))
	return s.view(ctx, p)
}

// List shows public projects to everyone but clients, who see all of them
// and may narrow to their own.
func (s *Service) List(ctx context.Context, c Caller, req ListReq) (*ProjectPage, error) {
	page, limit := normPage(req.Page, req.Limit)
	f := model.Filter{Status: req.Status}
	isClient := !c.Anonymous() && c.Role == usermodel.TypeClient
	if !isClient {
		f.Visibility = model.VisibilityPublic
	}
	if req.MyProjects && isClient {
		f.ClientID = c.ID
	}
	ps, total, err := s.store.ListProjects(ctx, f, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]string, 0, len(ps))
	for _, p := range ps {
		ownerIDs = append(ownerIDs, p.ClientID)
	}
	owners, err := s.users.Owners(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	out := &ProjectPage{
		Projects:   make([]ProjectView, 0, len(ps)),
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
		TotalCount: total,
	}
	for _, p := range ps {
		out.Projects = append(out.Projects, ProjectView{Project: p, Client: summaryOf(owners, p.ClientID)})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, c Caller, id string) (*ProjectDetail, error) {
	p, err := s.store.ProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := !c.Anonymous() && c.ID == p.ClientID

	if p.Visibility != model.VisibilityPublic && !owner {
		if c.Anonymous() {
			return nil, errs.ErrUnauthenticated.WrapMsg("not authorized to view this project")
		}
		if p.Visibility == model.VisibilityPrivate {
			return nil, errs.ErrNoPermission.WrapMsg("not authorized to view this private project")
		}
		a, err := s.store.ApplicationFor(ctx, p.ID, c.ID)
		if err != nil && !errs.ErrRecordNotFound.Is(err) {
			return nil, err
		}
		if a == nil || a.Status != model.ApplicationInvited {
			return nil, errs.ErrNoPermission.WrapMsg("not authorized to view this invite-only project")
		}
	}

	v, err := s.view(ctx, p)
	if err != nil {
		return nil, err
	}
	d := &ProjectDetail{ProjectView: *v}
	if owner {
		if d.Applications, err = s.applicationViews(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	if !c.Anonymous() && c.Role == usermodel.TypeMusician {
		a, err := s.store.ApplicationFor(ctx, p.ID, c.ID)
		switch {
		case err == nil:
			d.UserApplication = a
		case !errs.ErrRecordNotFound.Is(err):
			return nil, err
		}
	}
	return d, nil
}

// Update overlays body onto the project. Only the owner may update.
func (s *Service) Update(ctx context.Context, c Caller, id string, body json.RawMessage) (*ProjectView, error) {
	p, err := s.owned(ctx, c, id, "not authorized to update this project")
	if err != nil {
		return nil, err
	}
	if err := decode.Merge(p, body, "id", "_id", "clientId", "createdAt", "updatedAt"); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.store.ReplaceProject(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *Service) Delete(ctx context.Context, c Caller, id string) error {
	if _, err := s.owned(ctx, c, id, "not authorized to delete this project"); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	logger.Info("project removed", zap.String("project", id))
	return nil
}

// Apply records a musician's application and tells the project owner.
func (s *Service) Apply(ctx context.Context, c Caller, projectID string, req ApplyReq) (*model.Application, error) {
	if c.Role != usermodel.TypeMusician {
		return nil, errs.ErrNoPermission.WrapMsg("only musicians can apply to projects")
	}
	p, err := s.store.ProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.StatusOpen {
		return nil, errs.ErrState.WrapMsg("this project is not accepting applications")
	}
	if strings.TrimSpace(req.Proposal) == "" {
		return nil, errs.ErrArgs.WrapMsg("please add a proposal")
	}
	if req.Rate == nil {
		return nil, errs.ErrArgs.WrapMsg("please specify your rate")
	}

	now := s.now()
	a := &model.Application{
		ID:           ids.GenerateString(),
		ProjectID:    p.ID,
		MusicianID:   c.ID,
		Proposal:     req.Proposal,
		Rate:         *req.Rate,
		Availability: req.Availability,
		Status:       model.ApplicationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.Availability == nil {
		a.Availability = []model.Slot{}
	}
	if err := s.store.CreateApplication(ctx, a); err != nil {
		return nil, err
	}

	musician, err := s.users.Owners(ctx, []string{c.ID})
	if err != nil {
		logger.Warn("resolve applicant failed", zap.String("musician", c.ID), zap.Error(err))
	}
	s.notify(ctx, p.ClientID, notify.EventApplicationSubmitted, map[string]any{
		"projectId":     p.ID,
		"projectTitle":  p.Title,
		"applicationId": a.ID,
		"musician":      summaryOf(musician, c.ID),
	})
	return a, nil
}

// UpdateApplicationStatus lets the owner accept, reject or invite.
func (s *Service) UpdateApplicationStatus(ctx context.Context, c Caller, projectID, applicationID, status string) (*model.Application, error) {
	p, err := s.owned(ctx, c, projectID, "not authorized to update applications for this project")
	if err != nil {
		return nil, err
	}
	a, err := s.store.ApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.ProjectID != p.ID {
		return nil, errs.ErrArgs.WrapMsg("application does not belong to this project")
	}
	if !model.ValidApplicationStatus(status) {
		return nil, errs.ErrArgs.WrapMsg("invalid application status", "status", status)
	}
	a.Status = status
	a.UpdatedAt = s.now()
	if err := s.store.ReplaceApplication(ctx, a); err != nil {
		return nil, err
	}
	s.notify(ctx, a.MusicianID, notify.EventApplicationStatusUpdated, map[string]any{
		"projectId":     p.ID,
		"projectTitle":  p.Title,
		"applicationId": a.ID,
		"status":        a.Status,
	})
	return a, nil
}

// notify is best effort; the request already succeeded.
func (s *Service) notify(ctx context.Context, userID, event string, data any) {
	if s.notifier == nil {
		return
	}
	n, err := notify.New(userID, event, data)
	if err == nil {
		err = s.notifier.Notify(ctx, n)
	}
	if err != nil {
		logger.Warn("notify failed", zap.String("user", userID), zap.String("event", event), zap.Error(err))
	}
}

func (s *Service) owned(ctx context.Context, c Caller, id, denied string) (*model.Project, error) {
	p, err := s.store.ProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Anonymous() || c.ID != p.ClientID {
		return nil, errs.ErrNoPermission.WrapMsg(denied)
	}
	return p, nil
}

func (s *Service) view(ctx context.Context, p *model.Project) (*ProjectView, error) {
	owners, err := s.users.Owners(ctx, []string{p.ClientID})
	if err != nil {
		return nil, err
	}
	return &ProjectView{Project: p, Client: summaryOf(owners, p.ClientID)}, nil
}

func (s *Service) applicationViews(ctx context.Context, projectID string) ([]ApplicationView, error) {
	as, err := s.store.ApplicationsByProject(ctx, projectID)
	if err != nil || len(as) == 0 {
		return nil, err
	}
	musicianIDs := make([]string, 0, len(as))
	for _, a := range as {
		musicianIDs = append(musicianIDs, a.MusicianID)
	}
	musicians, err := s.users.Owners(ctx, musicianIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicationView, 0, len(as))
	for _, a := range as {
		out = append(out, ApplicationView{Application: a, Musician: summaryOf(musicians, a.MusicianID)})
	}
	return out, nil
}

func summaryOf(m map[string]usermodel.Summary, id string) *usermodel.Summary {
	if s, ok := m[id]; ok {
		return &s
	}
	return nil
}

func normPage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, min(limit, maxLimit)
}
