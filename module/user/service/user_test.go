package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"SMProject/module/user/model"
	"SMProject/tools/errs"
	"SMProject/tools/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *model.MemoryStore) {
	t.Helper()
	store := model.NewMemoryStore()
	s := NewService(store, security.DefaultOptions([]byte("test-secret")))
	s.bcryptCost = bcrypt.MinCost
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s, store
}

func register(t *testing.T, s *Service, name, email, userType string) *AuthResult {
	t.Helper()
	res, err := s.Register(context.Background(), RegisterReq{Name: name, Email: email, Password: "secret1", UserType: userType})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	res := register(t, s, "Ada", " Ada@Example.com ", "")
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, model.TypeClient, res.User.UserType)
	assert.NotEmpty(t, res.Token)

	claims, err := security.Verify(s.jwt, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, model.TypeClient, claims.Role)

	in, err := s.Login(ctx, LoginReq{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, in.User.ID)

	_, err = s.Login(ctx, LoginReq{Email: "ada@example.com", Password: "wrong-pass"})
	assert.True(t, errs.ErrPassword.Is(err))
	_, err = s.Login(ctx, LoginReq{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, errs.ErrPassword.Is(err))

	_, err = s.Register(ctx, RegisterReq{Name: "Dup", Email: "ada@example.com", Password: "secret1"})
	assert.True(t, errs.ErrRecordIsExist.Is(err))
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestService(t)
	cases := []RegisterReq{
		{Email: "a@b.co", Password: "secret1"},
		{Name: "x", Email: "not-an-email", Password: "secret1"},
		{Name: "x", Email: "a@b.co", Password: "short"},
		{Name: "x", Email: "a@b.co", Password: "secret1", UserType: model.TypeAdmin},
	}
	for _, c := range cases {
		_, err := s.Register(context.Background(), c)
		assert.True(t, errs.ErrArgs.Is(err), "%+v", c)
	}
}

func TestMusicianProfileUpsert(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	m := register(t, s, "Miles", "miles@example.com", model.TypeMusician)
	c := register(t, s, "Client", "client@example.com", model.TypeClient)

	_, err := s.UpsertMusicianProfile(ctx, Caller{ID: c.User.ID, Role: model.TypeClient}, json.RawMessage(`{}`))
	assert.True(t, errs.ErrNoPermission.Is(err))

	me := Caller{ID: m.User.ID, Role: model.TypeMusician}
	p, err := s.UpsertMusicianProfile(ctx, me, json.RawMessage(`{"genres":["jazz"],"hourlyRate":80,"userId":"someone-else","verified":true}`))
	require.NoError(t, err)
	assert.Equal(t, m.User.ID, p.UserID)
	assert.False(t, p.Verified)
	assert.Equal(t, []string{"jazz"}, p.Genres)
	assert.True(t, p.Availability.AvailableDays.Sunday)
	assert.Equal(t, "09:00", p.Availability.AvailableHours.Start)

	p, err = s.UpsertMusicianProfile(ctx, me, json.RawMessage(`{"dayRate":500}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz"}, p.Genres)
	assert.Equal(t, float64(80), p.HourlyRate)
	assert.Equal(t, float64(500), p.DayRate)

	_, err = s.UpsertMusicianProfile(ctx, me, json.RawMessage(`{"hourlyRate":"lots"}`))
	assert.True(t, errs.ErrArgs.Is(err))

	v, err := s.GetMusician(ctx, m.User.ID)
	require.NoError(t, err)
	require.NotNil(t, v.Profile)
	assert.Equal(t, float64(500), v.Profile.DayRate)

	_, err = s.GetMusician(ctx, c.User.ID)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
	_, err = s.GetMusician(ctx, "missing")
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func TestListMusiciansPaging(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	for _, n := range []string{"a", "b", "c"} {
		register(t, s, n, n+"@example.com", model.TypeMusician)
	}
	register(t, s, "client", "client@example.com", model.TypeClient)

	page, err := s.ListMusicians(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	assert.EqualValues(t, 2, page.TotalPages)
	require.Len(t, page.Musicians, 1)
	assert.Equal(t, "c", page.Musicians[0].Name)
	assert.Nil(t, page.Musicians[0].Profile)

	page, err = s.ListMusicians(ctx, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Page)
	assert.EqualValues(t, defaultLimit, page.Limit)
	assert.Len(t, page.Musicians, 3)
}

func TestClientAccess(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	c := register(t, s, "Client", "client@example.com", model.TypeClient)
	other := register(t, s, "Other", "other@example.com", model.TypeClient)
	admin := &model.User{ID: "admin-1", Name: "root", Email: "root@example.com", UserType: model.TypeAdmin}
	require.NoError(t, store.CreateUser(ctx, admin))

	self := Caller{ID: c.User.ID, Role: model.TypeClient}
	_, err := s.ListClients(ctx, self, 1, 10)
	assert.True(t, errs.ErrNoPermission.Is(err))

	list, err := s.ListClients(ctx, Caller{ID: admin.ID, Role: model.TypeAdmin}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.TotalCount)

	v, err := s.GetClient(ctx, self, c.User.ID)
	require.NoError(t, err)
	assert.Nil(t, v.Profile)

	_, err = s.GetClient(ctx, Caller{ID: other.User.ID, Role: model.TypeClient}, c.User.ID)
	assert.True(t, errs.ErrNoPermission.Is(err))

	_, err = s.UpsertClientProfile(ctx, self, json.RawMessage(`{"companyName":"Blue Note","paymentVerified":true}`))
	require.NoError(t, err)
	v, err = s.GetClient(ctx, Caller{ID: admin.ID, Role: model.TypeAdmin}, c.User.ID)
	require.NoError(t, err)
	require.NotNil(t, v.Profile)
	assert.Equal(t, "Blue Note", v.Profile.CompanyName)
	assert.False(t, v.Profile.PaymentVerified)

	_, err = s.GetClient(ctx, self, admin.ID)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func TestOwners(t *testing.T) {
	s, _ := newTestService(t)
	a := register(t, s, "A", "a@example.com", model.TypeClient)
	got, err := s.Owners(context.Background(), []string{a.User.ID, "ghost"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[a.User.ID].Name)
}
