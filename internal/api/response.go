package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/middleware"
	"go.uber.org/zap"
)

// Response 成功响应
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ok 返回成功响应
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// fail 将错误映射为HTTP状态码与错误响应，调用栈不对外输出
func fail(c *gin.Context, err error) {
	appErr, isApp := errors.As(err)
	if !isApp {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.GetLogger().Error("请求处理失败",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}

	public := &errors.AppError{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	c.JSON(status, errors.NewErrorResponse(public, middleware.GetRequestID(c)))
}

// badRequest 请求参数错误
func badRequest(c *gin.Context, err error) {
	fail(c, errors.Wrap(err, errors.ErrInvalidParam))
}
