package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"SMProject/logger"
	"SMProject/module/user/model"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
	"SMProject/tools/ids"
	"SMProject/tools/security"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	defaultLimit   = 10
	maxLimit       = 100
)

var emailRe = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`)

// Caller is the authenticated user behind a request.
type Caller struct {
	ID   string
	Role string
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// MusicianView is a musician account joined with its profile, if any.
type MusicianView struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	UserType  string                 `json:"userType"`
	CreatedAt time.Time              `json:"createdAt"`
	Profile   *model.MusicianProfile `json:"profile"`
}

type ClientView struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Email     string               `json:"email"`
	UserType  string               `json:"userType"`
	CreatedAt time.Time            `json:"createdAt"`
	Profile   *model.ClientProfile `json:"profile"`
}

type MusicianPage struct {
	Musicians  []MusicianView `json:"musicians"`
	Page       int64          `json:"page"`
	Limit      int64          `json:"limit"`
	TotalPages int64          `json:"totalPages"`
	TotalCount int64          `json:"totalCount"`
}

type ClientPage struct {
	Clients    []*model.User `json:"clients"`
	Page       int64         `json:"page"`
	Limit      int64         `json:"limit"`
	TotalPages int64         `json:"totalPages"`
	TotalCount int64         `json:"totalCount"`
}

type Service struct {
	store      model.Store
	jwt        security.Options
	bcryptCost int
	now        func() time.Time
}

func NewService(store model.Store, jwt security.Options) *Service {
	return &Service{store: store, jwt: jwt, bcryptCost: bcrypt.DefaultCost, now: time.Now}
}

// Register creates a musician or client account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterReq) (*AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.UserType == "" {
		req.UserType = model.TypeClient
	}
	switch {
	case req.Name == "":
		return nil, errs.ErrArgs.WrapMsg("please add a name")
	case !emailRe.MatchString(req.Email):
		return nil, errs.ErrArgs.WrapMsg("please add a valid email")
	case len(req.Password) < minPasswordLen:
		return nil, errs.ErrArgs.WrapMsg("password must be at least 6 characters")
	case req.UserType != model.TypeMusician && req.UserType != model.TypeClient:
		return nil, errs.ErrArgs.WrapMsg("userType must be musician or client", "userType", req.UserType)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, errs.WrapMsg(err, "hash password")
	}
	now := s.now()
	u := &model.User{
		ID:           ids.GenerateString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		UserType:     req.UserType,
		Timezone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	logger.Info("user registered", zap.String("user", u.ID), zap.String("type", u.UserType))
	return s.issue(u)
}

// Login checks the password. Unknown emails and wrong passwords look the same.
func (s *Service) Login(ctx context.Context, req LoginReq) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, errs.ErrArgs.WrapMsg("email and password are required")
	}
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return nil, errs.ErrPassword.WrapMsg("invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, errs.ErrPassword.WrapMsg("invalid credentials")
	}
	return s.issue(u)
}

func (s *Service) issue(u *model.User) (*AuthResult, error) {
	token, exp, err := security.Generate(s.jwt, u.ID, u.UserType)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *Service) Me(ctx context.Context, c Caller) (*model.User, error) {
	return s.store.UserByID(ctx, c.ID)
}

func (s *Service) ListMusicians(ctx context.Context, page, limit int64) (*MusicianPage, error) {
	page, limit = normPage(page, limit)
	users, total, err := s.store.ListUsers(ctx, model.TypeMusician, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}
	profiles, err := s.store.MusicianProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := &MusicianPage{
		Musicians:  make([]MusicianView, 0, len(users)),
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
		TotalCount: total,
	}
	for _, u := range users {
		out.Musicians = append(out.Musicians, musicianView(u, profiles[u.ID]))
	}
	return out, nil
}

func (s *Service) GetMusician(ctx context.Context, id string) (*MusicianView, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil || u.UserType != model.TypeMusician {
		return nil, notFoundOr(err, "musician not found")
	}
	p, err := s.optionalMusicianProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	v := musicianView(u, p)
	return &v, nil
}

// UpsertMusicianProfile applies the top-level fields of body to the
// caller's profile, creating it with defaults first when needed.
func (s *Service) UpsertMusicianProfile(ctx context.Context, c Caller, body json.RawMessage) (*model.MusicianProfile, error) {
	if c.Role != model.TypeMusician {
		return nil, errs.ErrNoPermission.WrapMsg("only musicians can create musician profiles")
	}
	p, err := s.optionalMusicianProfile(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if p == nil {
		p = model.NewMusicianProfile(c.ID, now)
	}
	if err := decode.Merge(p, body, protectedKeys...); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p.UpdatedAt = now
	if err := s.store.SaveMusicianProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListClients(ctx context.Context, c Caller, page, limit int64) (*ClientPage, error) {
	if c.Role != model.TypeAdmin {
		return nil, errs.ErrNoPermission.WrapMsg("not authorized as an admin")
	}
	page, limit = normPage(page, limit)
	users, total, err := s.store.ListUsers(ctx, model.TypeClient, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*model.User{}
	}
	return &ClientPage{
		Clients:    users,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
		TotalCount: total,
	}, nil
}

// GetClient is visible to admins and to the client themself.
func (s *Service) GetClient(ctx context.Context, c Caller, id string) (*ClientView, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil || u.UserType != model.TypeClient {
		return nil, notFoundOr(err, "client not found")
	}
	if c.Role != model.TypeAdmin && c.ID != u.ID {
		return nil, errs.ErrNoPermission.WrapMsg("not authorized to access this resource")
	}
	p, err := s.store.ClientProfile(ctx, u.ID)
	if err != nil && !errs.ErrRecordNotFound.Is(err) {
		return nil, err
	}
	return &ClientView{ID: u.ID, Name: u.Name, Email: u.Email, UserType: u.UserType, CreatedAt: u.CreatedAt, Profile: p}, nil
}

func (s *Service) UpsertClientProfile(ctx context.Context, c Caller, body json.RawMessage) (*model.ClientProfile, error) {
	if c.Role != model.TypeClient {
		return nil, errs.ErrNoPermission.WrapMsg("only clients can create client profiles")
	}
	now := s.now()
	p, err := s.store.ClientProfile(ctx, c.ID)
	switch {
	case errs.ErrRecordNotFound.Is(err):
		p = model.NewClientProfile(c.ID, now)
	case err != nil:
		return nil, err
	}
	if err := decode.Merge(p, body, protectedKeys...); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p.UpdatedAt = now
	if err := s.store.SaveClientProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Owners resolves user summaries for other modules.
func (s *Service) Owners(ctx context.Context, userIDs []string) (map[string]model.Summary, error) {
	users, err := s.store.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Summary, len(users))
	for id, u := range users {
		out[id] = u.Summary()
	}
	return out, nil
}

// fields a profile body may not overwrite
var protectedKeys = []string{"userId", "createdAt", "updatedAt", "ratings", "verified", "paymentVerified"}

func (s *Service) optionalMusicianProfile(ctx context.Context, userID string) (*model.MusicianProfile, error) {
	p, err := s.store.MusicianProfile(ctx, userID)
	if errs.ErrRecordNotFound.Is(err) {
		return nil, nil
	}
	return p, err
}

func musicianView(u *model.User, p *model.MusicianProfile) MusicianView {
	return MusicianView{ID: u.ID, Name: u.Name, Email: u.Email, UserType: u.UserType, CreatedAt: u.CreatedAt, Profile: p}
}

func notFoundOr(err error, msg string) error {
	if err != nil && !errs.ErrRecordNotFound.Is(err) {
		return err
	}
	return errs.ErrRecordNotFound.WrapMsg(msg)
}

func normPage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func totalPages(total, limit int64) int64 {
	return (total + limit - 1) / limit
}
