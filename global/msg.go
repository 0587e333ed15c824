package global

import (
	"net/http"

	"SMProject/logger"
	"SMProject/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Msg is the JSON body of every REST response.
type Msg struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func Success(data any) *Msg {
	return &Msg{Data: data}
}

// Failure renders err; foreign errors hide their text behind ServerInternalError.
func Failure(err error) *Msg {
	if ce, ok := errs.As(err); ok {
		return &Msg{Code: ce.Code, Msg: ce.Msg, Detail: ce.Detail}
	}
	return &Msg{Code: errs.ServerInternalError, Msg: errs.ErrInternalServer.Msg}
}

// OK writes data with status (200 when status is 0).
func OK(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Success(data))
}

// Fail writes err with the HTTP status its code maps to and aborts.
func Fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, Failure(err))
}
