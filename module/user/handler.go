package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"SMProject/global"
	midsec "SMProject/middleware/security"
	"SMProject/module/user/service"
	"SMProject/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, http.StatusCreated, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req service.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), caller(c))
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, u)
}

func (h *Handler) ListMusicians(c *gin.Context) {
	page, limit := paging(c)
	res, err := h.svc.ListMusicians(c.Request.Context(), page, limit)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) GetMusician(c *gin.Context) {
	res, err := h.svc.GetMusician(c.Request.Context(), c.Param("id"))
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) UpsertMusicianProfile(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}
	res, err := h.svc.UpsertMusicianProfile(c.Request.Context(), caller(c), body)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) ListClients(c *gin.Context) {
	page, limit := paging(c)
	res, err := h.svc.ListClients(c.Request.Context(), caller(c), page, limit)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) GetClient(c *gin.Context) {
	res, err := h.svc.GetClient(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) UpsertClientProfile(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}
	res, err := h.svc.UpsertClientProfile(c.Request.Context(), caller(c), body)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func caller(c *gin.Context) service.Caller {
	return service.Caller{ID: midsec.UserID(c), Role: midsec.Role(c)}
}

// paging reads ?page= and ?limit=; bad values fall back to the defaults.
func paging(c *gin.Context) (int64, int64) {
	page, _ := strconv.ParseInt(c.Query("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	return page, limit
}

func rawBody(c *gin.Context) (json.RawMessage, bool) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return nil, false
	}
	return body, true
}
