package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"SMProject/middleware"
	midsec "SMProject/middleware/security"
	"SMProject/module/user/model"
	"SMProject/module/user/service"
	"SMProject/tools/errs"
	"SMProject/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := security.DefaultOptions([]byte("handler-secret"))
	svc := service.NewService(model.NewMemoryStore(), jwt)

	r := gin.New()
	RegisterRoutes(middleware.NewRouter(r.Group("/api"), midsec.DefaultOptions(jwt)), NewHandler(svc))
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func signUp(t *testing.T, r http.Handler, name, userType string) (token, id string) {
	t.Helper()
	status, env := do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "secret1", "userType": userType,
	})
	require.Equal(t, http.StatusCreated, status, env.Msg)
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Token, res.User.ID
}

func TestAuthRoutes(t *testing.T) {
	r := newTestRouter(t)
	token, id := signUp(t, r, "ella", model.TypeMusician)

	status, env := do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "again", "email": "ella@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.RecordIsExistError, env.Code)

	status, env = do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ella@example.com", "password": "nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, errs.PasswordError, env.Code)

	status, _ = do(t, r, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = do(t, r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		ID       string `json:"id"`
		Password string `json:"passwordHash"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, id, me.ID)
	assert.Empty(t, me.Password)
}

func TestProfileRoutesEnforceRoles(t *testing.T) {
	r := newTestRouter(t)
	musician, mid := signUp(t, r, "miles", model.TypeMusician)
	client, cid := signUp(t, r, "blue", model.TypeClient)

	status, _ := do(t, r, http.MethodPost, "/api/users/musicians/profile", client, map[string]any{"genres": []string{"rock"}})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, r, http.MethodPost, "/api/users/musicians/profile", musician, map[string]any{"genres": []string{"jazz"}})
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, r, http.MethodGet, "/api/users/musicians?page=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Musicians []struct {
			ID      string `json:"id"`
			Profile struct {
				Genres []string `json:"genres"`
			} `json:"profile"`
		} `json:"musicians"`
		TotalCount int `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Musicians, 1)
	assert.Equal(t, mid, page.Musicians[0].ID)
	assert.Equal(t, []string{"jazz"}, page.Musicians[0].Profile.Genres)

	status, _ = do(t, r, http.MethodGet, "/api/users/musicians/"+cid, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, r, http.MethodGet, "/api/users/clients", client, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, r, http.MethodGet, "/api/users/clients/"+cid, client, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodGet, "/api/users/clients/"+cid, musician, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, r, http.MethodPost, "/api/users/clients/profile", client, []int{1})
	assert.Equal(t, http.StatusBadRequest, status)
}
