package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"SMProject/module/project/model"
	usermodel "SMProject/module/user/model"
	"SMProject/service/notify"
	"SMProject/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directory map[string]usermodel.Summary

func (d directory) Owners(_ context.Context, userIDs []string) (map[string]usermodel.Summary, error) {
	out := make(map[string]usermodel.Summary)
	for _, id := range userIDs {
		if s, ok := d[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

var (
	owner    = Caller{ID: "client-1", Role: usermodel.TypeClient}
	rival    = Caller{ID: "client-2", Role: usermodel.TypeClient}
	musician = Caller{ID: "musician-1", Role: usermodel.TypeMusician}
	other    = Caller{ID: "musician-2", Role: usermodel.TypeMusician}
)

func newTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	dir := directory{
		owner.ID:    {ID: owner.ID, Name: "Blue Note", Email: "blue@example.com"},
		musician.ID: {ID: musician.ID, Name: "Miles", Email: "miles@example.com"},
	}
	rec := &recordingNotifier{}
	s := NewService(model.NewMemoryStore(), dir, rec)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s, rec
}

func create(t *testing.T, s *Service, c Caller, title, visibility string) *ProjectView {
	t.Helper()
	v, err := s.Create(context.Background(), c, CreateReq{Title: title, Description: "session work", Visibility: visibility})
	require.NoError(t, err)
	return v
}

func rate(v float64) *float64 { return &v }

func TestCreateDefaults(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, musician, CreateReq{Title: "x", Description: "y"})
	assert.True(t, errs.ErrNoPermission.Is(err))
	_, err = s.Create(ctx, owner, CreateReq{Description: "y"})
	assert.True(t, errs.ErrArgs.Is(err))
	_, err = s.Create(ctx, owner, CreateReq{Title: "x", Description: "y", Visibility: "secret"})
	assert.True(t, errs.ErrArgs.Is(err))

	v := create(t, s, owner, "Horn section", "")
	assert.Equal(t, model.StatusOpen, v.Status)
	assert.Equal(t, model.VisibilityPublic, v.Visibility)
	assert.Equal(t, "fixed", v.Budget.Type)
	assert.Equal(t, "flexible", v.Timeline.Flexibility)
	require.NotNil(t, v.Client)
	assert.Equal(t, "Blue Note", v.Client.Name)
}

func TestListVisibility(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	create(t, s, owner, "public one", model.VisibilityPublic)
	create(t, s, owner, "private one", model.VisibilityPrivate)
	create(t, s, rival, "rival public", model.VisibilityPublic)

	anon, err := s.List(ctx, Caller{}, ListReq{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, anon.TotalCount)
	assert.Equal(t, "rival public", anon.Projects[0].Title)

	asMusician, err := s.List(ctx, musician, ListReq{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, asMusician.TotalCount)

	asClient, err := s.List(ctx, rival, ListReq{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, asClient.TotalCount)

	mine, err := s.List(ctx, owner, ListReq{MyProjects: true, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.TotalCount)
	assert.EqualValues(t, 2, mine.TotalPages)
	require.Len(t, mine.Projects, 1)
	assert.Equal(t, "private one", mine.Projects[0].Title)

	ignored, err := s.List(ctx, musician, ListReq{MyProjects: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, ignored.TotalCount)

	closed, err := s.List(ctx, Caller{}, ListReq{Status: model.StatusCompleted})
	require.NoError(t, err)
	assert.Zero(t, closed.TotalCount)
	assert.NotNil(t, closed.Projects)
}

func TestGetVisibilityRules(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	private := create(t, s, owner, "private", model.VisibilityPrivate)
	invite := create(t, s, owner, "invite", model.VisibilityInviteOnly)

	_, err := s.Get(ctx, Caller{}, private.ID)
	assert.True(t, errs.ErrUnauthenticated.Is(err))
	_, err = s.Get(ctx, musician, private.ID)
	assert.True(t, errs.ErrNoPermission.Is(err))
	_, err = s.Get(ctx, owner, private.ID)
	assert.NoError(t, err)

	_, err = s.Get(ctx, musician, invite.ID)
	assert.True(t, errs.ErrNoPermission.Is(err))

	a, err := s.Apply(ctx, musician, invite.ID, ApplyReq{Proposal: "I play trumpet", Rate: rate(120)})
	require.NoError(t, err)
	_, err = s.Get(ctx, musician, invite.ID)
	assert.True(t, errs.ErrNoPermission.Is(err), "pending applicants are not invited")

	_, err = s.UpdateApplicationStatus(ctx, owner, invite.ID, a.ID, model.ApplicationInvited)
	require.NoError(t, err)
	d, err := s.Get(ctx, musician, invite.ID)
	require.NoError(t, err)
	require.NotNil(t, d.UserApplication)
	assert.Equal(t, model.ApplicationInvited, d.UserApplication.Status)
	assert.Empty(t, d.Applications)

	d, err = s.Get(ctx, owner, invite.ID)
	require.NoError(t, err)
	require.Len(t, d.Applications, 1)
	require.NotNil(t, d.Applications[0].Musician)
	assert.Equal(t, "Miles", d.Applications[0].Musician.Name)
	assert.Nil(t, d.UserApplication)

	_, err = s.Get(ctx, Caller{}, "missing")
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func TestApplyAndNotify(t *testing.T) {
	s, rec := newTestService(t)
	ctx := context.Background()
	p := create(t, s, owner, "Strings", "")

	_, err := s.Apply(ctx, owner, p.ID, ApplyReq{Proposal: "x", Rate: rate(1)})
	assert.True(t, errs.ErrNoPermission.Is(err))
	_, err = s.Apply(ctx, musician, p.ID, ApplyReq{Rate: rate(1)})
	assert.True(t, errs.ErrArgs.Is(err))
	_, err = s.Apply(ctx, musician, p.ID, ApplyReq{Proposal: "cello"})
	assert.True(t, errs.ErrArgs.Is(err))

	a, err := s.Apply(ctx, musician, p.ID, ApplyReq{Proposal: "cello", Rate: rate(0)})
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, a.Status)
	assert.NotNil(t, a.Availability)

	_, err = s.Apply(ctx, musician, p.ID, ApplyReq{Proposal: "again", Rate: rate(1)})
	assert.True(t, errs.ErrRecordIsExist.Is(err))

	require.Len(t, rec.sent, 1)
	n := rec.sent[0]
	assert.Equal(t, owner.ID, n.UserID)
	assert.Equal(t, notify.EventApplicationSubmitted, n.Event)
	var payload struct {
		ProjectID     string            `json:"projectId"`
		ApplicationID string            `json:"applicationId"`
		Musician      usermodel.Summary `json:"musician"`
	}
	require.NoError(t, json.Unmarshal(n.Data, &payload))
	assert.Equal(t, p.ID, payload.ProjectID)
	assert.Equal(t, a.ID, payload.ApplicationID)
	assert.Equal(t, "Miles", payload.Musician.Name)

	_, err = s.UpdateApplicationStatus(ctx, rival, p.ID, a.ID, model.ApplicationAccepted)
	assert.True(t, errs.ErrNoPermission.Is(err))
	_, err = s.UpdateApplicationStatus(ctx, owner, p.ID, a.ID, "maybe")
	assert.True(t, errs.ErrArgs.Is(err))

	got, err := s.UpdateApplicationStatus(ctx, owner, p.ID, a.ID, model.ApplicationAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationAccepted, got.Status)
	require.Len(t, rec.sent, 2)
	assert.Equal(t, musician.ID, rec.sent[1].UserID)
	assert.Equal(t, notify.EventApplicationStatusUpdated, rec.sent[1].Event)
	assert.JSONEq(t, `"accepted"`, string(mustField(t, rec.sent[1].Data, "status")))
}

func TestApplicationMustBelongToProject(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p1 := create(t, s, owner, "one", "")
	p2 := create(t, s, owner, "two", "")
	a, err := s.Apply(ctx, musician, p1.ID, ApplyReq{Proposal: "bass", Rate: rate(50)})
	require.NoError(t, err)

	_, err = s.UpdateApplicationStatus(ctx, owner, p2.ID, a.ID, model.ApplicationRejected)
	assert.True(t, errs.ErrArgs.Is(err))
	_, err = s.UpdateApplicationStatus(ctx, owner, p1.ID, "missing", model.ApplicationRejected)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func TestApplyRequiresOpenProject(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := create(t, s, owner, "Choir", "")

	_, err := s.Update(ctx, owner, p.ID, json.RawMessage(`{"status":"in-progress","clientId":"thief"}`))
	require.NoError(t, err)

	_, err = s.Apply(ctx, other, p.ID, ApplyReq{Proposal: "alto", Rate: rate(10)})
	assert.True(t, errs.ErrState.Is(err))
}

func TestUpdateAndDelete(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := create(t, s, owner, "Drums", "")

	_, err := s.Update(ctx, rival, p.ID, json.RawMessage(`{"title":"mine now"}`))
	assert.True(t, errs.ErrNoPermission.Is(err))
	_, err = s.Update(ctx, owner, p.ID, json.RawMessage(`{"visibility":"everyone"}`))
	assert.True(t, errs.ErrArgs.Is(err))

	v, err := s.Update(ctx, owner, p.ID, json.RawMessage(`{"title":"Drums and percussion","budget":{"min":100,"max":300,"type":"hourly"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Drums and percussion", v.Title)
	assert.Equal(t, owner.ID, v.ClientID)
	assert.Equal(t, "hourly", v.Budget.Type)
	assert.True(t, v.UpdatedAt.After(v.CreatedAt))

	a, err := s.Apply(ctx, musician, p.ID, ApplyReq{Proposal: "kit", Rate: rate(90)})
	require.NoError(t, err)

	assert.True(t, errs.ErrNoPermission.Is(s.Delete(ctx, rival, p.ID)))
	require.NoError(t, s.Delete(ctx, owner, p.ID))

	_, err = s.Get(ctx, owner, p.ID)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
	_, err = s.store.ApplicationByID(ctx, a.ID)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[key]
}
