package project

import (
	"encoding/json"
	"net/http"
	"strconv"

	"SMProject/global"
	midsec "SMProject/middleware/security"
	"SMProject/module/project/service"
	"SMProject/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(c *gin.Context) {
	var req service.CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.ParseInt(c.Query("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	res, err := h.svc.List(c.Request.Context(), caller(c), service.ListReq{
		Status:     c.Query("status"),
		MyProjects: c.Query("myProjects") == "true",
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) Update(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), caller(c), c.Param("id"), body)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, gin.H{"message": "project removed"})
}

func (h *Handler) Apply(c *gin.Context) {
	var req service.ApplyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	res, err := h.svc.Apply(c.Request.Context(), caller(c), c.Param("id"), req)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, http.StatusCreated, res)
}

func (h *Handler) UpdateApplication(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	res, err := h.svc.UpdateApplicationStatus(c.Request.Context(), caller(c), c.Param("id"), c.Param("applicationId"), req.Status)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, 0, res)
}

func caller(c *gin.Context) service.Caller {
	return service.Caller{ID: midsec.UserID(c), Role: midsec.Role(c)}
}
