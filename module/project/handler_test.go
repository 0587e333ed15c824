package project

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"SMProject/middleware"
	midsec "SMProject/middleware/security"
	"SMProject/module/project/model"
	"SMProject/module/project/service"
	usermodel "SMProject/module/user/model"
	"SMProject/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noUsers struct{}

func (noUsers) Owners(_ context.Context, _ []string) (map[string]usermodel.Summary, error) {
	return nil, nil
}

type testAPI struct {
	r   *gin.Engine
	jwt security.Options
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := security.DefaultOptions([]byte("project-secret"))
	svc := service.NewService(model.NewMemoryStore(), noUsers{}, nil)
	r := gin.New()
	RegisterRoutes(middleware.NewRouter(r.Group("/api"), midsec.DefaultOptions(jwt)), NewHandler(svc))
	return &testAPI{r: r, jwt: jwt}
}

func (a *testAPI) token(t *testing.T, id, role string) string {
	t.Helper()
	tok, _, err := security.Generate(a.jwt, id, role)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env.Data
}

func TestProjectRoutes(t *testing.T) {
	api := newTestAPI(t)
	client := api.token(t, "c1", usermodel.TypeClient)
	musician := api.token(t, "m1", usermodel.TypeMusician)

	status, _ := api.do(t, http.MethodPost, "/api/projects", "", map[string]string{"title": "t", "description": "d"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(t, http.MethodPost, "/api/projects", musician, map[string]string{"title": "t", "description": "d"})
	assert.Equal(t, http.StatusForbidden, status)

	status, data := api.do(t, http.MethodPost, "/api/projects", client, map[string]string{
		"title": "Brass", "description": "two trumpets", "visibility": model.VisibilityPrivate,
	})
	require.Equal(t, http.StatusCreated, status)
	var p struct {
		ID       string `json:"id"`
		ClientID string `json:"clientId"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "c1", p.ClientID)
	assert.Equal(t, model.StatusOpen, p.Status)

	status, _ = api.do(t, http.MethodGet, "/api/projects/"+p.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(t, http.MethodGet, "/api/projects/"+p.ID, musician, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = api.do(t, http.MethodGet, "/api/projects/"+p.ID, client, nil)
	assert.Equal(t, http.StatusOK, status)

	status, data = api.do(t, http.MethodGet, "/api/projects?myProjects=true", client, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		TotalCount int `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, 1, page.TotalCount)

	status, data = api.do(t, http.MethodGet, "/api/projects", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Zero(t, page.TotalCount)

	status, data = api.do(t, http.MethodPost, "/api/projects/"+p.ID+"/apply", musician, map[string]any{"proposal": "lead", "rate": 75})
	require.Equal(t, http.StatusCreated, status)
	var app struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &app))

	status, _ = api.do(t, http.MethodPost, "/api/projects/"+p.ID+"/apply", musician, map[string]any{"proposal": "lead", "rate": 75})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodPut, "/api/projects/"+p.ID+"/applications/"+app.ID, musician, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = api.do(t, http.MethodPut, "/api/projects/"+p.ID+"/applications/"+app.ID, client, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(t, http.MethodDelete, "/api/projects/"+p.ID, client, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(t, http.MethodGet, "/api/projects/"+p.ID, client, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
